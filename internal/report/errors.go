package report

import "fmt"

// MissingFieldError reports a required field that is absent or null
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// DateFormatError reports a date or time token that does not match its layout
type DateFormatError struct {
	Field  string
	Value  string
	Layout string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("field %q: cannot parse %q (expected %s)", e.Field, e.Value, e.Layout)
}

// InvalidValueError reports a value that parses but is outside its domain
type InvalidValueError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("field %q: invalid value %q: %s", e.Field, e.Value, e.Reason)
}

// DuplicateKeyError reports a derived id that already exists in storage
type DuplicateKeyError struct {
	Kind string // "delivery" or "restock"
	ID   string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Kind, e.ID)
}
