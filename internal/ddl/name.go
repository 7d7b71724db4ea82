package ddl

import (
	"strings"

	"github.com/jackc/pgx/v5"
	pg_query "github.com/pganalyze/pg_query_go/v5"
)

// QualifiedName identifies an object within its kind.
//
// Relation is only set for objects scoped to a table (triggers). Schema is
// empty when the statement did not qualify the name; no search_path
// resolution is attempted, so "t" and "public.t" are distinct names.
type QualifiedName struct {
	Schema   string
	Relation string
	Name     string
}

// Parts returns the non-empty identifier parts in order.
func (n QualifiedName) Parts() []string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.Schema, n.Relation, n.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func (n QualifiedName) String() string {
	return strings.Join(n.Parts(), ".")
}

// Identifier returns the name as a pgx identifier.
func (n QualifiedName) Identifier() pgx.Identifier {
	return pgx.Identifier(n.Parts())
}

// Quoted renders the name as a quoted SQL identifier, e.g. "public"."users".
func (n QualifiedName) Quoted() string {
	return n.Identifier().Sanitize()
}

func nameFromRangeVar(rv *pg_query.RangeVar) QualifiedName {
	if rv == nil {
		return QualifiedName{}
	}
	return QualifiedName{Schema: rv.Schemaname, Name: rv.Relname}
}

// nameFromParts normalizes a dotted identifier list. Catalog qualifiers are
// dropped. For triggers the second to last part is the owning table.
func nameFromParts(kind Kind, parts []string) QualifiedName {
	var n QualifiedName
	if len(parts) == 0 {
		return n
	}
	n.Name = parts[len(parts)-1]
	rest := parts[:len(parts)-1]
	if kind == KindTrigger && len(rest) > 0 {
		n.Relation = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}
	if len(rest) > 0 {
		n.Schema = rest[len(rest)-1]
	}
	return n
}

// stringParts extracts String node values. ok is false if any node is not a
// plain string.
func stringParts(nodes []*pg_query.Node) (parts []string, ok bool) {
	parts = make([]string, 0, len(nodes))
	for _, node := range nodes {
		s := node.GetString_()
		if s == nil {
			return nil, false
		}
		parts = append(parts, s.Sval)
	}
	return parts, true
}
