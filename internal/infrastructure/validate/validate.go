package validate

// tags registered on top of the go-playground built-ins
const (
	// TagRecordID platform record id as it appears in paths and bodies
	TagRecordID = "recordid"
	// TagTimestamp RFC3339 timestamp, eg. the ts query of the time-spent report
	TagTimestamp = "timestamp"
)

// FieldError one rejected request field, Domain names the field the way the client sent it
type FieldError struct {
	Domain string `json:"domain"`
	Reason string `json:"reason"`
}

// NewFieldError create new field error
func NewFieldError(domain string, reason string) *FieldError {
	return &FieldError{domain, reason}
}

// Validator request validation used by the REST handlers
type Validator interface {
	Struct(s interface{}) []*FieldError
	// Var check one path or query value against tag, eg. "required,recordid"
	Var(name string, value interface{}, tag string) []*FieldError
}
