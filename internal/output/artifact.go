// Package output turns a replay report into emitted artifacts.
//
// Build renders a report once into an Artifact; sinks registered with
// Register persist it (plain SQL files, a SQLite database). Sinks register
// themselves from init, so a binary enables them with a blank import of
// output/all or of the individual sink packages.
package output

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v5"

	"github.com/SitadziMado/migration-aggregator/internal/aggregate"
	"github.com/SitadziMado/migration-aggregator/internal/ddl"
	"github.com/SitadziMado/migration-aggregator/internal/render"
)

// Renderer turns a statement node into SQL text.
type Renderer func(*pg_query.Node) (string, error)

// Object is one surviving definition.
type Object struct {
	Kind ddl.Kind
	Name ddl.QualifiedName
	// Position is the 0-based insertion order within Kind.
	Position int
	SQL      string
}

// Statement is one captured unsupported statement.
type Statement struct {
	File  string
	Index int
	SQL   string
}

// Migration describes one replayed file.
type Migration struct {
	Path       string
	Version    uint64
	Checksum   string
	Statements int
}

// Artifact is the rendered result of a run.
type Artifact struct {
	// Kinds lists the requested kinds in emission order.
	Kinds       []ddl.Kind
	Objects     map[ddl.Kind][]Object
	Unsupported []Statement
	Migrations  []Migration
}

// FileName returns the schema file name of kind, e.g. final_schema_table.sql.
func FileName(kind ddl.Kind) string {
	return "final_schema_" + strings.ToLower(kind.String()) + ".sql"
}

// UnsupportedFileName is the file collecting captured statements.
const UnsupportedFileName = "unsupported.sql"

// Build renders the objects of the requested kinds, the captured statements
// and the migration list of r. A nil renderer uses render.Statement.
func Build(r *aggregate.Report, kinds []ddl.Kind, renderer Renderer) (*Artifact, error) {
	if renderer == nil {
		renderer = render.Statement
	}
	a := &Artifact{
		Kinds:   append([]ddl.Kind(nil), kinds...),
		Objects: make(map[ddl.Kind][]Object, len(kinds)),
	}

	for _, kind := range kinds {
		defs := r.Schema.Repository(kind).Definitions()
		objs := make([]Object, 0, len(defs))
		for i, def := range defs {
			sql, err := renderer(def.Node())
			if err != nil {
				return nil, fmt.Errorf("output: render %s %s: %w", kind, def.Name(), err)
			}
			objs = append(objs, Object{Kind: kind, Name: def.Name(), Position: i, SQL: sql})
		}
		a.Objects[kind] = objs
	}

	a.Unsupported = make([]Statement, 0, len(r.Unsupported))
	for _, c := range r.Unsupported {
		sql, err := renderer(c.Statement.Node())
		if err != nil {
			return nil, fmt.Errorf("output: render %s statement %d: %w", c.File, c.Index, err)
		}
		a.Unsupported = append(a.Unsupported, Statement{File: c.File, Index: c.Index, SQL: sql})
	}

	a.Migrations = make([]Migration, 0, len(r.Migrations))
	for _, m := range r.Migrations {
		a.Migrations = append(a.Migrations, Migration{
			Path:       m.File.Rel,
			Version:    m.File.Version,
			Checksum:   m.Checksum,
			Statements: m.Statements,
		})
	}
	return a, nil
}

// SQL returns the rendered objects of kind in order.
func (a *Artifact) SQL(kind ddl.Kind) []string {
	objs := a.Objects[kind]
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.SQL)
	}
	return out
}

// UnsupportedSQL returns the rendered captured statements in order.
func (a *Artifact) UnsupportedSQL() []string {
	out := make([]string, 0, len(a.Unsupported))
	for _, s := range a.Unsupported {
		out = append(out, s.SQL)
	}
	return out
}
