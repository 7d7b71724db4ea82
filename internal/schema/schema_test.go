package schema

import (
	"errors"
	"reflect"
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v5"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/SitadziMado/migration-aggregator/internal/ddl"
)

// newTestSchema returns a Schema with a silent, inspectable logger.
func newTestSchema(t *testing.T, opts ...Option) (*Schema, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(append([]Option{WithLogger(logger)}, opts...)...), hook
}

// run executes every statement in sql and stops at the first error.
func run(t *testing.T, s *Schema, sql string) ([]*ddl.Unsupported, error) {
	t.Helper()
	tree, err := pg_query.Parse(sql)
	if err != nil {
		t.Fatalf("parse %q: %v", sql, err)
	}
	var captured []*ddl.Unsupported
	for _, raw := range tree.Stmts {
		u, err := s.Execute(ddl.Classify(raw.Stmt))
		if err != nil {
			return captured, err
		}
		if u != nil {
			captured = append(captured, u)
		}
	}
	return captured, nil
}

// mustRun is run with a fatal error check.
func mustRun(t *testing.T, s *Schema, sql string) []*ddl.Unsupported {
	t.Helper()
	captured, err := run(t, s, sql)
	if err != nil {
		t.Fatalf("run %q: %v", sql, err)
	}
	return captured
}

func table(t *testing.T, s *Schema, name string) ddl.Structured {
	t.Helper()
	def, ok := s.Repository(ddl.KindTable).Get(ddl.QualifiedName{Name: name})
	if !ok {
		t.Fatalf("table %q not found", name)
	}
	return def.(ddl.Structured)
}

func columnNames(def ddl.Structured) []string {
	var out []string
	for _, child := range def.Children() {
		if col := child.GetColumnDef(); col != nil {
			out = append(out, col.Colname)
		}
	}
	return out
}

func constraintKinds(t *testing.T, def ddl.Structured, column string) []pg_query.ConstrType {
	t.Helper()
	for _, child := range def.Children() {
		col := child.GetColumnDef()
		if col == nil || col.Colname != column {
			continue
		}
		kinds := []pg_query.ConstrType{}
		for _, c := range col.Constraints {
			kinds = append(kinds, c.GetConstraint().Contype)
		}
		return kinds
	}
	t.Fatalf("column %q not found", column)
	return nil
}

// TestAddColumnsAppendInOrder: N independent ADD COLUMNs land after the
// original columns, in order.
func TestAddColumnsAppendInOrder(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	mustRun(t, s, `
		CREATE TABLE t (a int, b int);
		ALTER TABLE t ADD COLUMN c int;
		ALTER TABLE t ADD COLUMN d int;
		ALTER TABLE t ADD COLUMN e int;`)

	want := []string{"a", "b", "c", "d", "e"}
	if got := columnNames(table(t, s, "t")); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v; want %v", got, want)
	}
}

// TestDropThenAddMovesColumnToEnd: position is not preserved.
func TestDropThenAddMovesColumnToEnd(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	mustRun(t, s, `
		CREATE TABLE t (a int, b int, c int);
		ALTER TABLE t DROP COLUMN a;
		ALTER TABLE t ADD COLUMN a text;`)

	want := []string{"b", "c", "a"}
	if got := columnNames(table(t, s, "t")); !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v; want %v", got, want)
	}
}

func TestCreateConflicts(t *testing.T) {
	t.Parallel()

	t.Run("ignore is idempotent", func(t *testing.T) {
		t.Parallel()
		s, _ := newTestSchema(t)
		mustRun(t, s, `
			CREATE TABLE IF NOT EXISTS t (a int);
			CREATE TABLE IF NOT EXISTS t (z int);`)
		if got := columnNames(table(t, s, "t")); !reflect.DeepEqual(got, []string{"a"}) {
			t.Fatalf("columns = %v; want [a]", got)
		}
		if n := s.Repository(ddl.KindTable).Len(); n != 1 {
			t.Fatalf("Len() = %d; want 1", n)
		}
	})

	t.Run("fail raises duplicate", func(t *testing.T) {
		t.Parallel()
		s, _ := newTestSchema(t)
		_, err := run(t, s, `
			CREATE TABLE t (a int);
			CREATE TABLE t (a int);`)
		if !errors.Is(err, ErrDuplicateObject) {
			t.Fatalf("err = %v; want ErrDuplicateObject", err)
		}
		var oe *ObjectError
		if !errors.As(err, &oe) || oe.Kind != ddl.KindTable || oe.Name.Name != "t" {
			t.Fatalf("error details = %#v", oe)
		}
	})

	t.Run("replace keeps position", func(t *testing.T) {
		t.Parallel()
		s, _ := newTestSchema(t)
		mustRun(t, s, `
			CREATE FUNCTION f() RETURNS int AS 'select 1' LANGUAGE sql;
			CREATE FUNCTION g() RETURNS int AS 'select 2' LANGUAGE sql;
			CREATE OR REPLACE FUNCTION f() RETURNS int AS 'select 3' LANGUAGE sql;`)
		defs := s.Repository(ddl.KindFunction).Definitions()
		if len(defs) != 2 || defs[0].Name().Name != "f" || defs[1].Name().Name != "g" {
			t.Fatalf("definitions out of order: %v", defs)
		}
		if !defs[0].(*ddl.CreateFunction).Node().GetCreateFunctionStmt().Replace {
			t.Fatalf("f was not replaced by the OR REPLACE definition")
		}
	})
}

func TestDropMissing(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	mustRun(t, s, "DROP TABLE IF EXISTS never")

	_, err := run(t, s, "DROP TABLE never")
	if !errors.Is(err, ErrMissingObject) {
		t.Fatalf("err = %v; want ErrMissingObject", err)
	}
}

func TestDropRemovesAndRecreateAppends(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	mustRun(t, s, `
		CREATE TABLE a (id int);
		CREATE TABLE b (id int);
		DROP TABLE a;
		CREATE TABLE a (id int);`)

	var got []string
	for _, def := range s.Repository(ddl.KindTable).Definitions() {
		got = append(got, def.Name().Name)
	}
	if !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("order = %v; want [b a]", got)
	}
}

// TestPartiallyUnsupportedAlter: the supported sub-command is applied and
// only the unsupported one is captured.
func TestPartiallyUnsupportedAlter(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	captured := mustRun(t, s, `
		CREATE TABLE t (id int);
		ALTER TABLE t ADD COLUMN name text, ALTER COLUMN id TYPE bigint;`)

	if got := columnNames(table(t, s, "t")); !reflect.DeepEqual(got, []string{"id", "name"}) {
		t.Fatalf("columns = %v; want [id name]", got)
	}
	if len(captured) != 1 {
		t.Fatalf("captured %d statements; want 1", len(captured))
	}
	cmds := captured[0].Node().GetAlterTableStmt().Cmds
	if len(cmds) != 1 || cmds[0].GetAlterTableCmd().Subtype != pg_query.AlterTableType_AT_AlterColumnType {
		t.Fatalf("residual commands = %v", cmds)
	}
}

func TestDropConstraint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sql     string
		naming  ddl.NamingPolicy
		wantErr error
		check   func(t *testing.T, def ddl.Structured)
	}{
		{
			name: "implicit primary key by derived name",
			sql: `CREATE TABLE t (id int PRIMARY KEY, v int);
				ALTER TABLE t DROP CONSTRAINT t_pkey;`,
			check: func(t *testing.T, def ddl.Structured) {
				if got := constraintKinds(t, def, "id"); len(got) != 0 {
					t.Fatalf("id constraints = %v; want none", got)
				}
			},
		},
		{
			name: "legacy naming",
			sql: `CREATE TABLE t (id int PRIMARY KEY);
				ALTER TABLE t DROP CONSTRAINT t_id_pkey;`,
			naming: ddl.LegacyNaming,
		},
		{
			name: "explicit table constraint wins",
			sql: `CREATE TABLE t (a int, CONSTRAINT t_a_key CHECK (a > 0), UNIQUE (a));
				ALTER TABLE t DROP CONSTRAINT t_a_key;`,
			check: func(t *testing.T, def ddl.Structured) {
				children := def.Children()
				if len(children) != 2 || children[1].GetConstraint().Contype != pg_query.ConstrType_CONSTR_UNIQUE {
					t.Fatalf("expected the named CHECK to be removed, children = %v", children)
				}
			},
		},
		{
			name: "named column constraint",
			sql: `CREATE TABLE t (a int CONSTRAINT a_positive CHECK (a > 0));
				ALTER TABLE t DROP CONSTRAINT a_positive;`,
			check: func(t *testing.T, def ddl.Structured) {
				if got := constraintKinds(t, def, "a"); len(got) != 0 {
					t.Fatalf("a constraints = %v; want none", got)
				}
			},
		},
		{
			name: "table level unique by derived name",
			sql: `CREATE TABLE t (a int, b int, UNIQUE (a, b));
				ALTER TABLE t DROP CONSTRAINT t_a_b_key;`,
			check: func(t *testing.T, def ddl.Structured) {
				if n := len(def.Children()); n != 2 {
					t.Fatalf("children = %d; want 2", n)
				}
			},
		},
		{
			name: "added constraint",
			sql: `CREATE TABLE t (a int);
				ALTER TABLE t ADD CONSTRAINT u UNIQUE (a);
				ALTER TABLE t DROP CONSTRAINT u;`,
			check: func(t *testing.T, def ddl.Structured) {
				if n := len(def.Children()); n != 1 {
					t.Fatalf("children = %d; want 1", n)
				}
			},
		},
		{
			name:    "missing",
			sql:     `CREATE TABLE t (a int); ALTER TABLE t DROP CONSTRAINT nope;`,
			wantErr: ErrMissingColumnOrConstraint,
		},
		{
			name: "missing ok",
			sql:  `CREATE TABLE t (a int); ALTER TABLE t DROP CONSTRAINT IF EXISTS nope;`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, _ := newTestSchema(t, WithNaming(tt.naming))
			_, err := run(t, s, tt.sql)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v; want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, table(t, s, "t"))
			}
		})
	}
}

func TestColumnCommands(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	mustRun(t, s, `
		CREATE TABLE t (a int DEFAULT 1, b int NOT NULL);
		ALTER TABLE t ALTER COLUMN a SET DEFAULT 2;
		ALTER TABLE t ALTER COLUMN a SET NOT NULL;
		ALTER TABLE t ALTER COLUMN a SET NOT NULL;
		ALTER TABLE t ALTER COLUMN b DROP NOT NULL;
		ALTER TABLE t ALTER COLUMN b SET DEFAULT 0;
		ALTER TABLE t ALTER COLUMN b SET DEFAULT 1;
		ALTER TABLE t ALTER COLUMN b DROP DEFAULT;`)

	def := table(t, s, "t")
	wantA := []pg_query.ConstrType{
		pg_query.ConstrType_CONSTR_DEFAULT,
		pg_query.ConstrType_CONSTR_DEFAULT,
		pg_query.ConstrType_CONSTR_NOTNULL,
		pg_query.ConstrType_CONSTR_NOTNULL,
	}
	if got := constraintKinds(t, def, "a"); !reflect.DeepEqual(got, wantA) {
		t.Fatalf("a constraints = %v; want %v", got, wantA)
	}
	if got := constraintKinds(t, def, "b"); len(got) != 0 {
		t.Fatalf("b constraints = %v; want none", got)
	}

	// One DROP NOT NULL removes one of the two appended constraints.
	mustRun(t, s, "ALTER TABLE t ALTER COLUMN a DROP NOT NULL")
	wantA = wantA[:3]
	if got := constraintKinds(t, def, "a"); !reflect.DeepEqual(got, wantA) {
		t.Fatalf("a constraints after DROP NOT NULL = %v; want %v", got, wantA)
	}

	_, err := run(t, s, "ALTER TABLE t ALTER COLUMN b DROP NOT NULL")
	if !errors.Is(err, ErrMissingColumnOrConstraint) {
		t.Fatalf("DROP NOT NULL twice: err = %v", err)
	}
	_, err = run(t, s, "ALTER TABLE t ALTER COLUMN zz SET NOT NULL")
	if !errors.Is(err, ErrMissingColumnOrConstraint) {
		t.Fatalf("SET NOT NULL on absent column: err = %v", err)
	}
	_, err = run(t, s, "ALTER TABLE t DROP COLUMN zz")
	if !errors.Is(err, ErrMissingColumnOrConstraint) {
		t.Fatalf("DROP COLUMN absent: err = %v", err)
	}
	mustRun(t, s, "ALTER TABLE t DROP COLUMN IF EXISTS zz")
}

func TestAddColumnIfNotExists(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	captured := mustRun(t, s, `
		CREATE TABLE t (id int);
		ALTER TABLE t ADD COLUMN IF NOT EXISTS id bigint;
		ALTER TABLE t ADD COLUMN IF NOT EXISTS name text;`)
	if len(captured) != 0 {
		t.Fatalf("captured %d statements; want 0", len(captured))
	}

	def := table(t, s, "t")
	if got, want := columnNames(def), []string{"id", "name"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("columns = %v; want %v", got, want)
	}
	// The existing column keeps its original definition.
	typ := def.Children()[0].GetColumnDef().TypeName.Names
	if got := typ[len(typ)-1].GetString_().Sval; got != "int4" {
		t.Fatalf("id type = %q; want int4", got)
	}
}

// TestAlterMissingObject: an absent target is fatal even with IF EXISTS,
// so the statement can never vanish from both the schema and the report.
func TestAlterMissingObject(t *testing.T) {
	t.Parallel()

	for _, sql := range []string{
		"ALTER TABLE ghost ADD COLUMN a int",
		"ALTER TABLE IF EXISTS ghost ADD COLUMN a int",
		"ALTER INDEX IF EXISTS ghost_idx SET (fillfactor = 70)",
	} {
		s, _ := newTestSchema(t)
		captured, err := run(t, s, sql)
		if !errors.Is(err, ErrMissingObject) {
			t.Fatalf("%q: err = %v; want ErrMissingObject", sql, err)
		}
		if len(captured) != 0 {
			t.Fatalf("%q: captured %d statements; want 0", sql, len(captured))
		}
	}
}

// TestUnknownKindIsNeverPopulated: ALTER/DROP against kinds without a bucket
// behave as if the object never existed.
func TestUnknownKindIsNeverPopulated(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	captured := mustRun(t, s, "CREATE VIEW v AS SELECT 1")
	if len(captured) != 1 {
		t.Fatalf("CREATE VIEW should be captured as unsupported")
	}

	for _, sql := range []string{
		"ALTER VIEW v ALTER COLUMN c SET DEFAULT 1",
		"ALTER VIEW IF EXISTS v ALTER COLUMN c SET DEFAULT 1",
		"ALTER MATERIALIZED VIEW IF EXISTS mv SET (fillfactor = 70)",
	} {
		_, err := run(t, s, sql)
		if !errors.Is(err, ErrMissingObject) {
			t.Fatalf("%q: err = %v; want ErrMissingObject", sql, err)
		}
	}
	_, err := run(t, s, "DROP VIEW v")
	if !errors.Is(err, ErrMissingObject) {
		t.Fatalf("DROP VIEW: err = %v; want ErrMissingObject", err)
	}
	mustRun(t, s, "DROP VIEW IF EXISTS v")
}

func TestIgnoredStatementsLogNote(t *testing.T) {
	t.Parallel()

	s, hook := newTestSchema(t)
	captured := mustRun(t, s, "UPDATE t SET a = 1; DELETE FROM t;")
	if len(captured) != 0 {
		t.Fatalf("captured = %d; want 0", len(captured))
	}
	if len(hook.Entries) != 2 {
		t.Fatalf("log entries = %d; want 2", len(hook.Entries))
	}
	if got := hook.Entries[0].Message; got != "non-DDL UPDATE statement is deliberately ignored" {
		t.Fatalf("message = %q", got)
	}
}

func TestUnsupportedStatementsAreCaptured(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	captured := mustRun(t, s, `
		CREATE TABLE t (id int);
		INSERT INTO t VALUES (1);
		GRANT SELECT ON t TO joe;`)
	if len(captured) != 2 {
		t.Fatalf("captured = %d; want 2", len(captured))
	}
	if captured[0].Node().GetInsertStmt() == nil || captured[1].Node().GetGrantStmt() == nil {
		t.Fatalf("captured out of order: %T, %T", captured[0].Node().GetNode(), captured[1].Node().GetNode())
	}
}

func TestAlterLeafDefinitionIsUnsupported(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	captured := mustRun(t, s, `
		CREATE TABLE t (id int);
		CREATE INDEX i ON t (id);
		ALTER INDEX i SET (fillfactor = 50);`)
	if len(captured) != 1 || captured[0].Node().GetAlterTableStmt() == nil {
		t.Fatalf("ALTER INDEX should be captured, got %v", captured)
	}
}

func TestCompositeTypeAttributes(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	mustRun(t, s, `
		CREATE TYPE pair AS (a int, b int);
		ALTER TYPE pair ADD ATTRIBUTE c int;
		ALTER TYPE pair DROP ATTRIBUTE a;`)

	def, ok := s.Repository(ddl.KindType).Get(ddl.QualifiedName{Name: "pair"})
	if !ok {
		t.Fatalf("type pair missing")
	}
	if got := columnNames(def.(ddl.Structured)); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("attributes = %v; want [b c]", got)
	}
}

func TestDropTypeReachesEnums(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	mustRun(t, s, `
		CREATE TYPE mood AS ENUM ('sad', 'ok');
		CREATE TYPE pair AS (a int);
		DROP TYPE mood, pair;`)
	if s.Repository(ddl.KindEnum).Len() != 0 || s.Repository(ddl.KindType).Len() != 0 {
		t.Fatalf("DROP TYPE left objects behind")
	}
}

func TestUnnamedIndexesGetDistinctNames(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	mustRun(t, s, `
		CREATE TABLE t (a int);
		CREATE INDEX ON t (a);
		CREATE INDEX ON t (a);
		DROP INDEX t_a_idx1;`)

	defs := s.Repository(ddl.KindIndex).Definitions()
	if len(defs) != 1 || defs[0].Name().Name != "t_a_idx" {
		t.Fatalf("indexes = %v", defs)
	}
}

func TestTriggersAndSchemas(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	mustRun(t, s, `
		CREATE SCHEMA app;
		CREATE SCHEMA IF NOT EXISTS app;
		CREATE TABLE app.t (id int);
		CREATE FUNCTION app.touch() RETURNS trigger AS 'begin return new; end' LANGUAGE plpgsql;
		CREATE TRIGGER trg BEFORE UPDATE ON app.t FOR EACH ROW EXECUTE FUNCTION app.touch();
		DROP TRIGGER trg ON app.t;
		DROP FUNCTION app.touch();`)

	if s.Repository(ddl.KindSchema).Len() != 1 {
		t.Fatalf("schemas = %d; want 1", s.Repository(ddl.KindSchema).Len())
	}
	if s.Repository(ddl.KindTrigger).Len() != 0 || s.Repository(ddl.KindFunction).Len() != 0 {
		t.Fatalf("trigger or function survived its DROP")
	}
}

func TestMalformedDropTarget(t *testing.T) {
	t.Parallel()

	s, _ := newTestSchema(t)
	node := &pg_query.Node{Node: &pg_query.Node_DropStmt{DropStmt: &pg_query.DropStmt{
		RemoveType: pg_query.ObjectType_OBJECT_TABLE,
		Objects:    []*pg_query.Node{{Node: &pg_query.Node_Integer{Integer: &pg_query.Integer{Ival: 1}}}},
	}}}
	_, err := s.Execute(ddl.Classify(node))
	if !errors.Is(err, ddl.ErrMalformedDropTarget) {
		t.Fatalf("err = %v; want ErrMalformedDropTarget", err)
	}
}
