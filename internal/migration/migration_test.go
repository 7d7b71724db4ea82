package migration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v5"
)

func writeFile(t *testing.T, dir, rel, contents string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    uint64
		wantErr bool
	}{
		{name: "0001__init.sql", want: 1},
		{name: "V12__add_users.sql", want: 12},
		{name: "v3__x__y.sql", want: 3},
		{name: "42.sql", want: 42},
		{name: "dir/0007__nested.sql", want: 7},
		{name: "README.md", wantErr: true},
		{name: "V__nothing.sql", wantErr: true},
		{name: "1a__mixed.sql", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Version(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnversioned) {
					t.Fatalf("Version(%q) err = %v; want ErrUnversioned", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Version(%q): %v", tt.name, err)
			}
			if got != tt.want {
				t.Fatalf("Version(%q) = %d; want %d", tt.name, got, tt.want)
			}
		})
	}
}

// TestList_OrdersNumerically: V10 sorts after V9, nested directories are
// walked and hidden entries are skipped.
func TestList_OrdersNumerically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "V10__ten.sql", "")
	writeFile(t, dir, "V9__nine.sql", "")
	writeFile(t, dir, "sub/V2__two.sql", "")
	writeFile(t, dir, "V2__also_two.sql", "")
	writeFile(t, dir, ".hidden/V1__skip.sql", "")
	writeFile(t, dir, ".DS_Store", "")

	files, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for _, f := range files {
		got = append(got, f.Rel)
	}
	want := []string{"V2__also_two.sql", "sub/V2__two.sql", "V9__nine.sql", "V10__ten.sql"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %v; want %v", got, want)
	}
}

func TestList_Unversioned(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "0001__init.sql", "")
	writeFile(t, dir, "notes.txt", "")

	if _, err := List(dir); !errors.Is(err, ErrUnversioned) {
		t.Fatalf("List err = %v; want ErrUnversioned", err)
	}
}

func TestRead_StripsBOMAndNormalizes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// "e" followed by a combining acute accent composes to U+00E9 under NFC.
	path := writeFile(t, dir, "0001__bom.sql", "\ufeffCOMMENT ON TABLE t IS 'cafe\u0301';")

	got, err := Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := "COMMENT ON TABLE t IS 'caf\u00e9';"
	if got != want {
		t.Fatalf("Read = %q; want %q", got, want)
	}
}

func TestRead_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Read(ctx, "does-not-matter.sql"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Read err = %v; want context.Canceled", err)
	}
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	a := Checksum("CREATE TABLE t (id int);")
	if len(a) != 16 {
		t.Fatalf("Checksum length = %d; want 16", len(a))
	}
	if a != Checksum("CREATE TABLE t (id int);") {
		t.Fatalf("Checksum is not deterministic")
	}
	if a == Checksum("CREATE TABLE t (id bigint);") {
		t.Fatalf("different scripts share a checksum")
	}
}

func TestLoad_PreservesOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i, sql := range []string{
		"CREATE TABLE a (id int);",
		"CREATE TABLE b (id int); ALTER TABLE b ADD COLUMN v text;",
		"DROP TABLE a;",
	} {
		writeFile(t, dir, string(rune('1'+i))+"__step.sql", sql)
	}
	files, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	scripts, err := Load(context.Background(), files, Options{Parallelism: 3})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(scripts) != 3 {
		t.Fatalf("len(scripts) = %d; want 3", len(scripts))
	}
	wantCounts := []int{1, 2, 1}
	for i, s := range scripts {
		if s.File.Version != uint64(i+1) {
			t.Fatalf("scripts[%d].Version = %d", i, s.File.Version)
		}
		if len(s.Statements) != wantCounts[i] {
			t.Fatalf("scripts[%d] has %d statements; want %d", i, len(s.Statements), wantCounts[i])
		}
		if s.Checksum == "" {
			t.Fatalf("scripts[%d] has no checksum", i)
		}
	}
	if scripts[2].Statements[0].GetDropStmt() == nil {
		t.Fatalf("last statement is %T; want DropStmt", scripts[2].Statements[0].GetNode())
	}
}

func TestLoad_ParseError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "0001__ok.sql", "CREATE TABLE a (id int);")
	writeFile(t, dir, "0002__bad.sql", "CREATE TABLE (;")
	files, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	_, err = Load(context.Background(), files, Options{})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load err = %v; want *ParseError", err)
	}
	if pe.File.Rel != "0002__bad.sql" {
		t.Fatalf("ParseError.File = %q", pe.File.Rel)
	}
}

// TestLoad_CustomParser checks the ParseFunc hook and the parallelism bound.
func TestLoad_CustomParser(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"1__a.sql", "2__b.sql", "3__c.sql", "4__d.sql"} {
		writeFile(t, dir, name, "SELECT 1;")
	}
	files, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	var inFlight, peak int32
	parse := func(sql string) (*pg_query.ParseResult, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		if !strings.HasPrefix(sql, "SELECT") {
			t.Errorf("parser got %q", sql)
		}
		return &pg_query.ParseResult{}, nil
	}

	scripts, err := Load(context.Background(), files, Options{Parallelism: 1, Parse: parse})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(scripts) != 4 {
		t.Fatalf("len(scripts) = %d; want 4", len(scripts))
	}
	if peak != 1 {
		t.Fatalf("peak concurrency = %d; want 1", peak)
	}
}
