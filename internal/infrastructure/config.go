package infra

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix env prefix for viper
const EnvPrefix = "GOAPP"

// runtime environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig App option object
type AppConfig struct {
	AppID          string        `mapstructure:"app_id" json:"app_id" yaml:"app_id" validate:"required"`            // Application ID
	Host           string        `mapstructure:"host" json:"host" yaml:"host"`                                      // bind host address
	Port           int           `mapstructure:"port" json:"port" yaml:"port"`                                      // bind listen port
	Env            string        `mapstructure:"env" json:"env" yaml:"env" validate:"oneof=development production"` // runtime environment
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`     // abort handlers running longer than this
	Upstream       struct {
		BaseURL     string        `mapstructure:"base_url" json:"base_url" yaml:"base_url" validate:"required,url"`      // platform REST API root
		Timeout     time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`                                 // ordinary reads and writes
		LongTimeout time.Duration `mapstructure:"long_timeout" json:"long_timeout" yaml:"long_timeout"`                  // report/certificate generation calls, 60s-180s
		LessonLimit int           `mapstructure:"lesson_limit" json:"lesson_limit" yaml:"lesson_limit" validate:"min=1"` // page size when listing lessons of a course
	} `mapstructure:"upstream" json:"upstream" yaml:"upstream"`
	Session struct {
		TTL           time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl"`                                  // idle player sessions and authoring outlines are dropped after this
		SweepInterval time.Duration `mapstructure:"sweep_interval" json:"sweep_interval" yaml:"sweep_interval"` // how often idle sessions are looked for
	} `mapstructure:"session" json:"session" yaml:"session"`
	Cache struct {
		TTL time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl"` // stitched curriculum lifetime, 0 disables caching
	} `mapstructure:"cache" json:"cache" yaml:"cache"`
	Database struct {
		Driver   string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"required,oneof=mysql postgres"` // driver name
		Host     string `mapstructure:"host" json:"host" yaml:"host" validate:"required"`                            // server host
		MaxConn  int32  `mapstructure:"maxconn" json:"maxconn" yaml:"maxconn" validate:"min=1"`                      // maximum opening connections number
		Password string `mapstructure:"password" json:"-" yaml:"password" validate:"required"`                       // db password
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`                                                // server port
		Protocol string `mapstructure:"protocol" json:"protocol" yaml:"protocol" validate:"omitempty,oneof=tcp udp"` // connection protocol, eg.tcp
		Query    string `mapstructure:"query" json:"query" yaml:"query"`                                             // DSN query parameter
		Schema   string `mapstructure:"schema" json:"schema" yaml:"schema" validate:"required"`                      // use schema
		User     string `mapstructure:"username" json:"username" yaml:"username" validate:"required"`                // db username
	} `mapstructure:"database" json:"database" yaml:"database"`
	Logging struct {
		FilePath string `mapstructure:"file_path" json:"file_path" yaml:"file_path"`                            // log file path
		Level    string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"` // global logging level
	} `mapstructure:"logging" json:"logging" yaml:"logging"`
	Security struct {
		IDLength  int    `mapstructure:"id_length" json:"id_length" yaml:"id_length" validate:"min=8"` // length of generated session ids
		JWTMethod string `mapstructure:"jwt_method" json:"jwt_method" yaml:"jwt_method" validate:"oneof=HS256 HS512"`
		JWTSecret string `mapstructure:"jwt_secret" json:"-" yaml:"jwt_secret" validate:"required"`
		TokenName string `mapstructure:"token_name" json:"token_name" yaml:"token_name" validate:"required"` // jwt token name set in cookie
	} `mapstructure:"security" json:"security" yaml:"security"`
	KVStore struct {
		Host     string `mapstructure:"host" json:"host" yaml:"host"`                   // bind host address
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`                   // bind listen port
		Password string `mapstructure:"password" json:"-" yaml:"password"`              // password for security reasons
		DB       int    `mapstructure:"db" json:"db" yaml:"db" validate:"min=0,max=15"` // logical database
	} `mapstructure:"kv" json:"kv" yaml:"kv"`
	DevOP struct {
		APM bool `mapstructure:"apm" json:"apm" yaml:"apm"`
	} `mapstructure:"devop" json:"devop" yaml:"devop"`
}

// InitConfig init app config using viper
func InitConfig() (*AppConfig, error) {
	RegisterFlags(pflag.CommandLine)
	pflag.Parse()
	return LoadConfig(viper.GetViper(), pflag.CommandLine)
}

// RegisterFlags declare every config key with its default value
func RegisterFlags(fs *pflag.FlagSet) {
	// app
	fs.String("host", "", "binding address")
	fs.String("app_id", "learning-gateway", "application identifier")
	fs.String("env", EnvDevelopment, "runtime environment, can be 'development' or 'production'")
	fs.Int("port", 8081, "listening port")
	fs.Duration("request_timeout", 30*time.Second, "abort requests running longer than this")

	// upstream platform API
	fs.String("upstream.base_url", "", "platform REST API root, eg.http://127.0.0.1:5000/api/v1 (required)")
	fs.Duration("upstream.timeout", 20*time.Second, "timeout of ordinary platform calls")
	fs.Duration("upstream.long_timeout", 180*time.Second, "timeout of report/certificate generation calls (60s-180s)")
	fs.Int("upstream.lesson_limit", 1000, "page size used when listing the lessons of a course")

	// player sessions
	fs.Duration("session.ttl", 30*time.Minute, "drop player sessions and authoring outlines idle for this long")
	fs.Duration("session.sweep_interval", time.Minute, "idle session sweep interval")

	// cache
	fs.Duration("cache.ttl", 5*time.Minute, "stitched curriculum cache lifetime, 0 disables the cache")

	// database
	fs.String("database.driver", "postgres", "database driver to use")
	fs.String("database.host", "127.0.0.1", "database host")
	fs.Int("database.port", 5432, "database server port")
	fs.String("database.protocol", "", "connection protocol(if mysql is used, this flag must be set), eg.tcp")
	fs.String("database.username", "", "database username (required)")
	fs.String("database.password", "", "database password (required)")
	fs.String("database.schema", "", "database schema (required)")
	fs.String("database.query", "", `additional DSN query parameters('?' is auto prefixed), if you work with mysql and wish to
work with time.Time, you may specify "parseTime=true"`)
	fs.Int32("database.maxconn", 50, "max connection count")

	// logging
	fs.String("logging.level", "info", "logging level")
	fs.String("logging.file_path", "", "log to file")

	// security
	fs.Int("security.id_length", 21, "set length of generated session ids")
	fs.String("security.jwt_method", "HS256", "hash algorithm used for JWT auth")
	fs.String("security.jwt_secret", "", "JWT secret shared with the platform (required)")
	fs.String("security.token_name", "access_token", "cookie name carrying the token")

	// kv storage
	fs.String("kv.host", "127.0.0.1", "kv host")
	fs.Int("kv.port", 6379, "kv server port")
	fs.String("kv.password", "", "kv server password")
	fs.Int("kv.db", 0, "kv logical database")

	// DevOp
	fs.Bool("devop.apm", false, "enable apm metrics")
}

// LoadConfig bind flags and environment into an AppConfig and validate it
func LoadConfig(v *viper.Viper, flags *pflag.FlagSet) (*AppConfig, error) {
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config = new(AppConfig)
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if config.Logging.Level == "debug" {
		if configJSON, err := json.MarshalIndent(config, "", "  "); err == nil {
			log.Printf("App config: %s\n", string(configJSON))
		}
	}
	return config, nil
}

func validateConfig(config *AppConfig) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("mapstructure")
		if name == "-" || name == "" {
			return ""
		}
		return name
	})
	err := validate.Struct(config)
	if err == nil {
		return validateTimeouts(config)
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	var msg []string
	for _, field := range verrs {
		namespace := field.Namespace()
		fieldName := namespace[strings.IndexByte(namespace, '.')+1:] // trim top level namespace
		switch field.Tag() {
		case "required":
			msg = append(msg, fmt.Sprintf("%s is required", fieldName))
		case "oneof":
			msg = append(msg, fmt.Sprintf("%s must be one of (%s)", fieldName, field.Param()))
		case "min", "max":
			msg = append(msg, fmt.Sprintf("%s must satisfy %s=%s", fieldName, field.Tag(), field.Param()))
		default:
			msg = append(msg, fmt.Sprintf("%s is invalid (%s)", fieldName, field.Tag()))
		}
	}
	return fmt.Errorf("failed to validate config: \n%s", strings.Join(msg, "\n"))
}

func validateTimeouts(config *AppConfig) error {
	if lt := config.Upstream.LongTimeout; lt < time.Minute || lt > 3*time.Minute {
		return fmt.Errorf("failed to validate config: \nupstream.long_timeout must be between 60s and 180s, got %s", lt)
	}
	if config.Upstream.Timeout < 0 || config.Session.TTL < 0 || config.Cache.TTL < 0 {
		return fmt.Errorf("failed to validate config: \ntimeouts must not be negative")
	}
	return nil
}
