package ddl

import (
	"errors"
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v5"
)

// ErrMalformedDropTarget reports a DROP object reference whose shape the
// adapter does not understand. It means parser and adapter disagree, so it
// is never skipped silently.
var ErrMalformedDropTarget = errors.New("malformed drop target")

// MalformedDropTargetError carries the offending reference.
type MalformedDropTargetError struct {
	Index  int
	Target Kind
	Object *pg_query.Node
}

func (e *MalformedDropTargetError) Error() string {
	return fmt.Sprintf("ddl: %v: DROP %s object #%d has shape %T",
		ErrMalformedDropTarget, e.Target, e.Index, e.Object.GetNode())
}

func (e *MalformedDropTargetError) Unwrap() error { return ErrMalformedDropTarget }

// Drop adapts DROP <kind> [IF EXISTS] name [, ...].
type Drop struct {
	node *pg_query.Node
	stmt *pg_query.DropStmt
}

func (s *Drop) Node() *pg_query.Node { return s.node }
func (*Drop) statement()             {}

// Target is the kind of the dropped objects.
func (s *Drop) Target() Kind { return KindFromObjectType(s.stmt.RemoveType) }

// MissingOK reports DROP ... IF EXISTS.
func (s *Drop) MissingOK() bool { return s.stmt.MissingOk }

// Names normalizes every object reference. Accepted shapes are an identifier
// list (tables, indexes, triggers), a bare identifier (schemas), a type name
// (types, enums) and a function signature.
func (s *Drop) Names() ([]QualifiedName, error) {
	target := s.Target()
	names := make([]QualifiedName, 0, len(s.stmt.Objects))
	for i, obj := range s.stmt.Objects {
		var (
			parts []string
			ok    bool
		)
		switch n := obj.GetNode().(type) {
		case *pg_query.Node_List:
			parts, ok = stringParts(n.List.GetItems())
		case *pg_query.Node_String_:
			parts, ok = []string{n.String_.Sval}, true
		case *pg_query.Node_TypeName:
			parts, ok = stringParts(n.TypeName.GetNames())
		case *pg_query.Node_ObjectWithArgs:
			parts, ok = stringParts(n.ObjectWithArgs.GetObjname())
		}
		if !ok || len(parts) == 0 {
			return nil, &MalformedDropTargetError{Index: i, Target: target, Object: obj}
		}
		names = append(names, nameFromParts(target, parts))
	}
	return names, nil
}
