package emitter

import (
	"errors"
	"fmt"

	"github.com/roach88/builtingen/internal/ir"
	"github.com/roach88/builtingen/internal/records"
)

// ErrDuplicateID is returned when two records share an ID.
var ErrDuplicateID = errors.New("duplicate record id")

// EmitError reports the record that aborted an emission.
type EmitError struct {
	Record   string
	ID       int64
	Category ir.Category
	Field    string
	Err      error
}

func (e *EmitError) Error() string {
	if errors.Is(e.Err, ErrDuplicateID) {
		return fmt.Sprintf("emit: builtin %s: %v %d", e.Record, e.Err, e.ID)
	}
	return fmt.Sprintf("emit: builtin %s (id %d): %s form requires field %s: %v",
		e.Record, e.ID, e.Category, e.Field, e.Err)
}

// Unwrap returns records.ErrMissingField or ErrDuplicateID.
func (e *EmitError) Unwrap() error {
	return e.Err
}

// fieldError attaches the aborting record to a classify.Check failure.
func fieldError(b ir.Builtin, err error) *EmitError {
	e := &EmitError{
		Record:   b.Record.Name,
		ID:       b.Record.ID,
		Category: b.Category,
		Err:      err,
	}
	var fe *records.FieldError
	if errors.As(err, &fe) {
		e.Field = fe.Field
		e.Err = fe.Err
	}
	return e
}
