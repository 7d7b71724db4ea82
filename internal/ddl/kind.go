package ddl

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v5"
)

// Kind identifies the repository bucket an object belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindEnum
	KindFunction
	KindIndex
	KindSchema
	KindTable
	KindTrigger
	KindType
)

var kindNames = map[Kind]string{
	KindUnknown:  "UNKNOWN",
	KindEnum:     "ENUM",
	KindFunction: "FUNCTION",
	KindIndex:    "INDEX",
	KindSchema:   "SCHEMA",
	KindTable:    "TABLE",
	KindTrigger:  "TRIGGER",
	KindType:     "TYPE",
}

// Kinds returns every populatable kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindEnum, KindFunction, KindIndex, KindSchema, KindTable, KindTrigger, KindType}
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a case-insensitive kind name such as "table" or "INDEX".
// UNKNOWN is not accepted.
func ParseKind(s string) (Kind, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if kindNames[k] == want {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("ddl: unknown object kind %q", s)
}

// KindFromObjectType maps a parser object type onto a repository kind.
// Object types without a bucket map to KindUnknown.
func KindFromObjectType(t pg_query.ObjectType) Kind {
	switch t {
	case pg_query.ObjectType_OBJECT_FUNCTION,
		pg_query.ObjectType_OBJECT_PROCEDURE,
		pg_query.ObjectType_OBJECT_ROUTINE:
		return KindFunction
	case pg_query.ObjectType_OBJECT_INDEX:
		return KindIndex
	case pg_query.ObjectType_OBJECT_SCHEMA:
		return KindSchema
	case pg_query.ObjectType_OBJECT_TABLE:
		return KindTable
	case pg_query.ObjectType_OBJECT_TRIGGER:
		return KindTrigger
	case pg_query.ObjectType_OBJECT_TYPE:
		return KindType
	default:
		return KindUnknown
	}
}

// ConflictBehavior governs CREATE when the target name is already taken.
type ConflictBehavior int

const (
	ConflictFail ConflictBehavior = iota
	ConflictIgnore
	ConflictReplace
)

func (c ConflictBehavior) String() string {
	switch c {
	case ConflictFail:
		return "fail"
	case ConflictIgnore:
		return "ignore"
	case ConflictReplace:
		return "replace"
	default:
		return fmt.Sprintf("ConflictBehavior(%d)", int(c))
	}
}
