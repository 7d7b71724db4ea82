package schema

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v5"

	"github.com/SitadziMado/migration-aggregator/internal/ddl"
)

// apply runs one recognized sub-command against a structured definition.
func (r *Repository) apply(def ddl.Structured, cmd ddl.AlterCommand) error {
	name := def.Name()
	children := def.Children()

	switch c := cmd.(type) {
	case *ddl.AddColumn:
		if c.MissingOK && findColumn(children, c.Column.GetColumnDef().Colname) >= 0 {
			return nil
		}
		def.SetChildren(append(children, c.Column))

	case *ddl.DropColumn:
		i := findColumn(children, c.Column)
		if i < 0 {
			if c.MissingOK {
				return nil
			}
			return r.errorf(name, ErrMissingColumnOrConstraint, fmt.Sprintf("column %q", c.Column))
		}
		def.SetChildren(removeAt(children, i))

	case *ddl.AddConstraint:
		def.SetChildren(append(children, c.Constraint))

	case *ddl.DropConstraint:
		if r.dropConstraint(def, c.Constraint) || c.MissingOK {
			return nil
		}
		return r.errorf(name, ErrMissingColumnOrConstraint, fmt.Sprintf("constraint %q", c.Constraint))

	case *ddl.SetNotNull:
		col, err := r.column(def, c.Column)
		if err != nil {
			return err
		}
		col.Constraints = append(col.Constraints, newConstraint(pg_query.ConstrType_CONSTR_NOTNULL, nil))

	case *ddl.DropNotNull:
		col, err := r.column(def, c.Column)
		if err != nil {
			return err
		}
		i := findConstraint(col.Constraints, pg_query.ConstrType_CONSTR_NOTNULL)
		if i < 0 {
			if c.MissingOK {
				return nil
			}
			return r.errorf(name, ErrMissingColumnOrConstraint, fmt.Sprintf("NOT NULL on column %q", c.Column))
		}
		col.Constraints = removeAt(col.Constraints, i)

	case *ddl.SetColumnDefault:
		col, err := r.column(def, c.Column)
		if err != nil {
			return err
		}
		if c.Expr == nil {
			// DROP DEFAULT clears every DEFAULT the column has accumulated.
			for i := findConstraint(col.Constraints, pg_query.ConstrType_CONSTR_DEFAULT); i >= 0; i = findConstraint(col.Constraints, pg_query.ConstrType_CONSTR_DEFAULT) {
				col.Constraints = removeAt(col.Constraints, i)
			}
			return nil
		}
		col.Constraints = append(col.Constraints, newConstraint(pg_query.ConstrType_CONSTR_DEFAULT, c.Expr))

	default:
		return fmt.Errorf("schema: no handler for %T", cmd)
	}
	return nil
}

// column returns the named column of def or a missing-column error.
func (r *Repository) column(def ddl.Structured, column string) (*pg_query.ColumnDef, error) {
	children := def.Children()
	i := findColumn(children, column)
	if i < 0 {
		return nil, r.errorf(def.Name(), ErrMissingColumnOrConstraint, fmt.Sprintf("column %q", column))
	}
	return children[i].GetColumnDef(), nil
}

// dropConstraint removes the first constraint identified by target:
// a table-level constraint by explicit name, then a column constraint by
// explicit or derived name, then a table-level constraint by derived name.
func (r *Repository) dropConstraint(def ddl.Structured, target string) bool {
	children := def.Children()
	relation := def.Name().Name

	for i, child := range children {
		if c := child.GetConstraint(); c != nil && c.Conname == target {
			def.SetChildren(removeAt(children, i))
			return true
		}
	}

	for _, child := range children {
		col := child.GetColumnDef()
		if col == nil {
			continue
		}
		for j, node := range col.Constraints {
			c := node.GetConstraint()
			if c == nil {
				continue
			}
			if c.Conname == target ||
				(c.Conname == "" && r.naming(relation, []string{col.Colname}, c.Contype) == target) {
				col.Constraints = removeAt(col.Constraints, j)
				return true
			}
		}
	}

	for i, child := range children {
		c := child.GetConstraint()
		if c == nil || c.Conname != "" {
			continue
		}
		if r.naming(relation, constraintColumns(c), c.Contype) == target {
			def.SetChildren(removeAt(children, i))
			return true
		}
	}
	return false
}

func findColumn(children []*pg_query.Node, name string) int {
	for i, child := range children {
		if col := child.GetColumnDef(); col != nil && col.Colname == name {
			return i
		}
	}
	return -1
}

func findConstraint(constraints []*pg_query.Node, kind pg_query.ConstrType) int {
	for i, node := range constraints {
		if c := node.GetConstraint(); c != nil && c.Contype == kind {
			return i
		}
	}
	return -1
}

// constraintColumns lists the columns a table-level constraint covers.
func constraintColumns(c *pg_query.Constraint) []string {
	keys := c.Keys
	if c.Contype == pg_query.ConstrType_CONSTR_FOREIGN {
		keys = c.FkAttrs
	}
	cols := make([]string, 0, len(keys))
	for _, k := range keys {
		if s := k.GetString_(); s != nil {
			cols = append(cols, s.Sval)
		}
	}
	return cols
}

func newConstraint(kind pg_query.ConstrType, expr *pg_query.Node) *pg_query.Node {
	return &pg_query.Node{Node: &pg_query.Node_Constraint{Constraint: &pg_query.Constraint{
		Contype:  kind,
		RawExpr:  expr,
		Location: -1,
	}}}
}

// removeAt returns nodes without element i. The backing array is reused.
func removeAt(nodes []*pg_query.Node, i int) []*pg_query.Node {
	return append(nodes[:i], nodes[i+1:]...)
}
