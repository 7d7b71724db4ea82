// Package ddl provides typed views over parsed PostgreSQL statements.
//
// The parser (pg_query) yields a generic node tree. Classify turns each
// top-level node into exactly one Statement variant:
//
//   - CREATE family: CreateTable, CreateType, CreateIndex, CreateFunction,
//     CreateEnum, CreateTrigger, CreateSchema (all implement Definition)
//   - AlterTable, carrying an ordered list of AlterCommand values
//   - Drop, whose object references normalize into QualifiedName values
//   - Ignored, for data manipulation that a schema replay skips on purpose
//   - Unsupported, for everything else
//
// Adapters wrap the parser node rather than copying it, so mutations made
// through Structured.SetChildren are visible when the node is rendered.
package ddl

import (
	pg_query "github.com/pganalyze/pg_query_go/v5"
)

// Statement is a classified top-level statement. The set of implementations
// is closed; consumers switch over the concrete types.
type Statement interface {
	// Node returns the underlying parser node.
	Node() *pg_query.Node
	statement()
}

// Classify wraps node in its Statement variant.
func Classify(node *pg_query.Node) Statement {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_CreateStmt:
		return &CreateTable{node: node, stmt: n.CreateStmt}
	case *pg_query.Node_CreateSchemaStmt:
		return &CreateSchema{node: node, stmt: n.CreateSchemaStmt}
	case *pg_query.Node_CreateFunctionStmt:
		return &CreateFunction{node: node, stmt: n.CreateFunctionStmt}
	case *pg_query.Node_CreateTrigStmt:
		return &CreateTrigger{node: node, stmt: n.CreateTrigStmt}
	case *pg_query.Node_CreateEnumStmt:
		return &CreateEnum{node: node, stmt: n.CreateEnumStmt}
	case *pg_query.Node_CompositeTypeStmt:
		return &CreateType{node: node, stmt: n.CompositeTypeStmt}
	case *pg_query.Node_IndexStmt:
		return &CreateIndex{node: node, stmt: n.IndexStmt}
	case *pg_query.Node_AlterTableStmt:
		return &AlterTable{node: node, stmt: n.AlterTableStmt}
	case *pg_query.Node_DropStmt:
		return &Drop{node: node, stmt: n.DropStmt}
	case *pg_query.Node_UpdateStmt:
		return &Ignored{node: node, Verb: "UPDATE"}
	case *pg_query.Node_DeleteStmt:
		return &Ignored{node: node, Verb: "DELETE"}
	default:
		return NewUnsupported(node)
	}
}

// Ignored is a non-DDL statement (UPDATE or DELETE) that has no effect on
// the aggregated schema.
type Ignored struct {
	node *pg_query.Node
	Verb string
}

func (s *Ignored) Node() *pg_query.Node { return s.node }
func (*Ignored) statement()             {}

// Unsupported is a statement, or the residual part of one, that the replay
// cannot model.
type Unsupported struct {
	node *pg_query.Node
}

// NewUnsupported wraps node as an unsupported statement.
func NewUnsupported(node *pg_query.Node) *Unsupported {
	return &Unsupported{node: node}
}

func (s *Unsupported) Node() *pg_query.Node { return s.node }
func (*Unsupported) statement()             {}
