package records

import (
	"errors"
	"fmt"
)

// Sentinel errors for field queries. Use errors.Is to test a *FieldError.
var (
	ErrMissingField        = errors.New("missing field")
	ErrInvalidFieldType    = errors.New("invalid field type")
	ErrUnresolvedReference = errors.New("unresolved reference")
)

// FieldError reports a failed field query on a record.
type FieldError struct {
	// Record is the name of the queried record.
	Record string

	// Field is the queried field name.
	Field string

	// Err is one of the sentinel errors above.
	Err error

	// Want and Got are set for ErrInvalidFieldType.
	Want ValueKind
	Got  ValueKind

	// Target is the referenced name for ErrUnresolvedReference.
	Target string
}

func (e *FieldError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInvalidFieldType):
		return fmt.Sprintf("record %s: field %s: %v: want %s, got %s", e.Record, e.Field, e.Err, e.Want, e.Got)
	case errors.Is(e.Err, ErrUnresolvedReference):
		return fmt.Sprintf("record %s: field %s: %v to %s", e.Record, e.Field, e.Err, e.Target)
	default:
		return fmt.Sprintf("record %s: %v %s", e.Record, e.Err, e.Field)
	}
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
