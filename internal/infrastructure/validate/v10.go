package validate

import (
	"reflect"
	"regexp"
	"time"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

var recordIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// messages of the custom tags per locale, {0} is the field name
var customMessages = map[string]map[string]string{
	"en": {
		TagRecordID:  "{0} must be a valid record id",
		TagTimestamp: "{0} must be an RFC3339 timestamp",
	},
	"zh": {
		TagRecordID:  "{0}必须是有效的记录ID",
		TagTimestamp: "{0}必须是RFC3339格式的时间",
	},
}

func isRecordID(fl validator.FieldLevel) bool {
	return recordIDPattern.MatchString(fl.Field().String())
}

func isTimestamp(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.RFC3339, fl.Field().String())
	return err == nil
}

func registerCustomTags(validate *validator.Validate, trans ut.Translator, locale string) {
	validate.RegisterValidation(TagRecordID, isRecordID)
	validate.RegisterValidation(TagTimestamp, isTimestamp)
	for tag, msg := range customMessages[locale] {
		tag, msg := tag, msg
		validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
			return ut.Add(tag, msg, true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		})
	}
}

// PlaygroundV10 Validator implementation using go-playground
type PlaygroundV10 struct {
	core  *validator.Validate
	trans ut.Translator
}

var _ Validator = &PlaygroundV10{}

// NewValidator create a new Validator, locale selects the message language ("en" or "zh")
func NewValidator(locale ...string) *PlaygroundV10 {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, zh.New())

	validate := validator.New()
	name := "en"
	if len(locale) > 0 && locale[0] == "zh" {
		name = "zh"
	}
	trans, _ := uni.GetTranslator(name)
	if name == "zh" {
		zh_translations.RegisterDefaultTranslations(validate, trans)
	} else {
		en_translations.RegisterDefaultTranslations(validate, trans)
	}
	registerCustomTags(validate, trans, name)
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "-" || name == "" {
			name = fld.Tag.Get("yaml")
			if name == "-" || name == "" {
				return ""
			}
		}
		return name
	})
	return &PlaygroundV10{
		core:  validate,
		trans: trans,
	}
}

// Struct validate struct
func (v PlaygroundV10) Struct(s interface{}) []*FieldError {
	var result []*FieldError
	if err := v.core.Struct(s); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*FieldError{NewFieldError("", err.Error())}
		}
		for _, item := range verrs {
			result = append(result, NewFieldError(item.Field(), item.Translate(v.trans)))
		}
		return result
	}
	return nil
}

// Var validate a single value, messages are prefixed with name since bare values have no field name
func (v PlaygroundV10) Var(name string, value interface{}, tag string) []*FieldError {
	err := v.core.Var(value, tag)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []*FieldError{NewFieldError(name, err.Error())}
	}
	var result []*FieldError
	for _, item := range verrs {
		result = append(result, NewFieldError(name, name+item.Translate(v.trans)))
	}
	return result
}
