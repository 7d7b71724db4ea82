package ddl

import (
	pg_query "github.com/pganalyze/pg_query_go/v5"
	"google.golang.org/protobuf/proto"
)

// AlterTable adapts ALTER TABLE and the ALTER INDEX/TYPE/VIEW forms that share
// its parse tree; Target tells them apart.
type AlterTable struct {
	node *pg_query.Node
	stmt *pg_query.AlterTableStmt
}

func (s *AlterTable) Node() *pg_query.Node { return s.node }
func (*AlterTable) statement()             {}

// Name is the altered object.
func (s *AlterTable) Name() QualifiedName { return nameFromRangeVar(s.stmt.Relation) }

// Target is the kind of the altered object.
func (s *AlterTable) Target() Kind { return KindFromObjectType(s.stmt.Objtype) }

// Commands returns the sub-commands in statement order.
func (s *AlterTable) Commands() []AlterCommand {
	out := make([]AlterCommand, 0, len(s.stmt.Cmds))
	for _, node := range s.stmt.Cmds {
		cmd := node.GetAlterTableCmd()
		if cmd == nil {
			continue
		}
		out = append(out, classifyCommand(cmd))
	}
	return out
}

// Residual returns a deep copy of the statement that carries only cmds.
// The receiver is left untouched.
func (s *AlterTable) Residual(cmds []AlterCommand) *Unsupported {
	clone := proto.Clone(s.node).(*pg_query.Node)
	stmt := clone.GetAlterTableStmt()
	stmt.Cmds = make([]*pg_query.Node, 0, len(cmds))
	for _, c := range cmds {
		raw := proto.Clone(c.Raw()).(*pg_query.AlterTableCmd)
		stmt.Cmds = append(stmt.Cmds, &pg_query.Node{Node: &pg_query.Node_AlterTableCmd{AlterTableCmd: raw}})
	}
	return NewUnsupported(clone)
}

// AlterCommand is one ALTER TABLE sub-command. The set of implementations is
// closed.
type AlterCommand interface {
	// Raw returns the parser node of the sub-command.
	Raw() *pg_query.AlterTableCmd
	alterCommand()
}

type rawCommand struct{ cmd *pg_query.AlterTableCmd }

func (c rawCommand) Raw() *pg_query.AlterTableCmd { return c.cmd }
func (rawCommand) alterCommand()                  {}

// AddColumn is ADD COLUMN [IF NOT EXISTS] (or ADD ATTRIBUTE on a composite type).
type AddColumn struct {
	rawCommand
	Column    *pg_query.Node
	MissingOK bool
}

// DropColumn is DROP COLUMN [IF EXISTS].
type DropColumn struct {
	rawCommand
	Column    string
	MissingOK bool
}

// AddConstraint is ADD [CONSTRAINT name] ....
type AddConstraint struct {
	rawCommand
	Constraint *pg_query.Node
}

// DropConstraint is DROP CONSTRAINT [IF EXISTS] name.
type DropConstraint struct {
	rawCommand
	Constraint string
	MissingOK  bool
}

// SetNotNull is ALTER COLUMN ... SET NOT NULL.
type SetNotNull struct {
	rawCommand
	Column string
}

// DropNotNull is ALTER COLUMN ... DROP NOT NULL. The grammar has no
// IF EXISTS form, so MissingOK is false for parsed statements.
type DropNotNull struct {
	rawCommand
	Column    string
	MissingOK bool
}

// SetColumnDefault is ALTER COLUMN ... SET DEFAULT expr. Expr is nil for
// DROP DEFAULT.
type SetColumnDefault struct {
	rawCommand
	Column string
	Expr   *pg_query.Node
}

// UnsupportedCommand is any sub-command the replay cannot model.
type UnsupportedCommand struct {
	rawCommand
}

func classifyCommand(cmd *pg_query.AlterTableCmd) AlterCommand {
	raw := rawCommand{cmd: cmd}
	switch cmd.Subtype {
	case pg_query.AlterTableType_AT_AddColumn:
		if cmd.Def.GetColumnDef() != nil {
			return &AddColumn{rawCommand: raw, Column: cmd.Def, MissingOK: cmd.MissingOk}
		}
	case pg_query.AlterTableType_AT_DropColumn:
		return &DropColumn{rawCommand: raw, Column: cmd.Name, MissingOK: cmd.MissingOk}
	case pg_query.AlterTableType_AT_AddConstraint:
		if cmd.Def.GetConstraint() != nil {
			return &AddConstraint{rawCommand: raw, Constraint: cmd.Def}
		}
	case pg_query.AlterTableType_AT_DropConstraint:
		return &DropConstraint{rawCommand: raw, Constraint: cmd.Name, MissingOK: cmd.MissingOk}
	case pg_query.AlterTableType_AT_SetNotNull:
		return &SetNotNull{rawCommand: raw, Column: cmd.Name}
	case pg_query.AlterTableType_AT_DropNotNull:
		return &DropNotNull{rawCommand: raw, Column: cmd.Name, MissingOK: cmd.MissingOk}
	case pg_query.AlterTableType_AT_ColumnDefault:
		return &SetColumnDefault{rawCommand: raw, Column: cmd.Name, Expr: cmd.Def}
	}
	return &UnsupportedCommand{rawCommand: raw}
}
