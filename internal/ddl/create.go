package ddl

import (
	pg_query "github.com/pganalyze/pg_query_go/v5"
)

// Definition is a CREATE statement that defines one object. A repository
// slot owns the Definition for as long as the object lives.
type Definition interface {
	Statement
	Name() QualifiedName
	ConflictBehavior() ConflictBehavior
}

// Structured is a Definition with an ordered child list of ColumnDef and
// Constraint nodes (tables and composite types).
type Structured interface {
	Definition
	Children() []*pg_query.Node
	SetChildren([]*pg_query.Node)
}

func ifNotExists(set bool) ConflictBehavior {
	if set {
		return ConflictIgnore
	}
	return ConflictFail
}

func orReplace(set bool) ConflictBehavior {
	if set {
		return ConflictReplace
	}
	return ConflictFail
}

// CreateTable adapts CREATE TABLE.
type CreateTable struct {
	node *pg_query.Node
	stmt *pg_query.CreateStmt
}

func (s *CreateTable) Node() *pg_query.Node { return s.node }
func (*CreateTable) statement()             {}

func (s *CreateTable) Name() QualifiedName { return nameFromRangeVar(s.stmt.Relation) }

func (s *CreateTable) ConflictBehavior() ConflictBehavior { return ifNotExists(s.stmt.IfNotExists) }

func (s *CreateTable) Children() []*pg_query.Node { return s.stmt.TableElts }

func (s *CreateTable) SetChildren(children []*pg_query.Node) { s.stmt.TableElts = children }

// CreateType adapts CREATE TYPE ... AS (composite types).
type CreateType struct {
	node *pg_query.Node
	stmt *pg_query.CompositeTypeStmt
}

func (s *CreateType) Node() *pg_query.Node { return s.node }
func (*CreateType) statement()             {}

func (s *CreateType) Name() QualifiedName { return nameFromRangeVar(s.stmt.Typevar) }

func (*CreateType) ConflictBehavior() ConflictBehavior { return ConflictFail }

func (s *CreateType) Children() []*pg_query.Node { return s.stmt.Coldeflist }

func (s *CreateType) SetChildren(children []*pg_query.Node) { s.stmt.Coldeflist = children }

// CreateIndex adapts CREATE INDEX. An index declared without a name is keyed
// by the name PostgreSQL would generate; see Implicit.
type CreateIndex struct {
	node *pg_query.Node
	stmt *pg_query.IndexStmt
	// suffix disambiguates generated names, as PostgreSQL does with idx1, idx2.
	suffix string
}

func (s *CreateIndex) Node() *pg_query.Node { return s.node }
func (*CreateIndex) statement()             {}

func (s *CreateIndex) Name() QualifiedName {
	n := QualifiedName{Name: s.stmt.Idxname}
	if s.stmt.Relation != nil {
		n.Schema = s.stmt.Relation.Schemaname
	}
	if n.Name == "" {
		n.Name = IndexName(s.stmt.GetRelation().GetRelname(), s.columns()) + s.suffix
	}
	return n
}

func (s *CreateIndex) ConflictBehavior() ConflictBehavior { return ifNotExists(s.stmt.IfNotExists) }

// Implicit reports whether the index was declared without a name.
func (s *CreateIndex) Implicit() bool { return s.stmt.Idxname == "" }

// SetSuffix sets the numeric suffix appended to a generated name.
func (s *CreateIndex) SetSuffix(suffix string) { s.suffix = suffix }

func (s *CreateIndex) columns() []string {
	cols := make([]string, 0, len(s.stmt.IndexParams))
	for _, p := range s.stmt.IndexParams {
		elem := p.GetIndexElem()
		switch {
		case elem == nil:
		case elem.Name != "":
			cols = append(cols, elem.Name)
		case elem.Indexcolname != "":
			cols = append(cols, elem.Indexcolname)
		default:
			cols = append(cols, exprColumnName(elem.Expr))
		}
	}
	return cols
}

// exprColumnName names an index expression: a function call contributes its
// function name, anything else "expr".
func exprColumnName(expr *pg_query.Node) string {
	if fn := expr.GetFuncCall(); fn != nil {
		if parts, ok := stringParts(fn.Funcname); ok && len(parts) > 0 {
			return parts[len(parts)-1]
		}
	}
	return "expr"
}

// CreateFunction adapts CREATE FUNCTION and CREATE PROCEDURE. Overloads
// share a name; the argument signature is not part of the identity.
type CreateFunction struct {
	node *pg_query.Node
	stmt *pg_query.CreateFunctionStmt
}

func (s *CreateFunction) Node() *pg_query.Node { return s.node }
func (*CreateFunction) statement()             {}

func (s *CreateFunction) Name() QualifiedName {
	parts, _ := stringParts(s.stmt.Funcname)
	return nameFromParts(KindFunction, parts)
}

func (s *CreateFunction) ConflictBehavior() ConflictBehavior { return orReplace(s.stmt.Replace) }

// CreateEnum adapts CREATE TYPE ... AS ENUM.
type CreateEnum struct {
	node *pg_query.Node
	stmt *pg_query.CreateEnumStmt
}

func (s *CreateEnum) Node() *pg_query.Node { return s.node }
func (*CreateEnum) statement()             {}

func (s *CreateEnum) Name() QualifiedName {
	parts, _ := stringParts(s.stmt.TypeName)
	return nameFromParts(KindEnum, parts)
}

func (*CreateEnum) ConflictBehavior() ConflictBehavior { return ConflictFail }

// CreateTrigger adapts CREATE TRIGGER.
type CreateTrigger struct {
	node *pg_query.Node
	stmt *pg_query.CreateTrigStmt
}

func (s *CreateTrigger) Node() *pg_query.Node { return s.node }
func (*CreateTrigger) statement()             {}

func (s *CreateTrigger) Name() QualifiedName {
	n := nameFromRangeVar(s.stmt.Relation)
	return QualifiedName{Schema: n.Schema, Relation: n.Name, Name: s.stmt.Trigname}
}

func (s *CreateTrigger) ConflictBehavior() ConflictBehavior { return orReplace(s.stmt.Replace) }

// CreateSchema adapts CREATE SCHEMA. CREATE SCHEMA AUTHORIZATION role names
// the schema after the role.
type CreateSchema struct {
	node *pg_query.Node
	stmt *pg_query.CreateSchemaStmt
}

func (s *CreateSchema) Node() *pg_query.Node { return s.node }
func (*CreateSchema) statement()             {}

func (s *CreateSchema) Name() QualifiedName {
	name := s.stmt.Schemaname
	if name == "" {
		name = s.stmt.GetAuthrole().GetRolename()
	}
	return QualifiedName{Name: name}
}

func (s *CreateSchema) ConflictBehavior() ConflictBehavior { return ifNotExists(s.stmt.IfNotExists) }
