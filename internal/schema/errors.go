package schema

import (
	"errors"
	"fmt"

	"github.com/SitadziMado/migration-aggregator/internal/ddl"
)

var (
	// ErrDuplicateObject: CREATE without IF NOT EXISTS / OR REPLACE hit an
	// existing name.
	ErrDuplicateObject = errors.New("duplicate object")
	// ErrMissingObject: ALTER, or DROP without IF EXISTS, named an absent object.
	ErrMissingObject = errors.New("missing object")
	// ErrMissingColumnOrConstraint: a column-level command named an absent
	// column, constraint or NOT NULL marker.
	ErrMissingColumnOrConstraint = errors.New("missing column or constraint")
)

// ObjectError locates a structural error. It unwraps to one of the sentinel
// errors above.
type ObjectError struct {
	Kind   ddl.Kind
	Name   ddl.QualifiedName
	Detail string
	Err    error
}

func (e *ObjectError) Error() string {
	msg := fmt.Sprintf("schema: %s %s: %v", e.Kind, e.Name, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ObjectError) Unwrap() error { return e.Err }

// UnsupportedError signals a statement, or the residual of a partially
// applied ALTER, that the replay cannot model. Schema.Execute converts it to
// a captured statement; it never aborts a run.
type UnsupportedError struct {
	Statement *ddl.Unsupported
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("schema: unsupported statement %T", e.Statement.Node().GetNode())
}
