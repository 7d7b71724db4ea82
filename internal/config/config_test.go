package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/SitadziMado/migration-aggregator/internal/ddl"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "run.yaml", `
migration_dir: db/migrations
output_dir: build/schema
kinds: [table, INDEX]
parallelism: 4
sqlite:
  dsn: build/schema.db
metrics:
  backend: prompush
  pushgateway_url: http://pushgateway:9091
`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		MigrationDir: "db/migrations",
		OutputDir:    "build/schema",
		Kinds:        []string{"table", "INDEX"},
		Naming:       "postgres",
		Parallelism:  4,
		SQLite:       SQLite{DSN: "build/schema.db"},
		Metrics: Metrics{
			Backend:        "prompush",
			PushgatewayURL: "http://pushgateway:9091",
			Job:            "schemaagg",
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Load =\n%+v\nwant\n%+v", got, want)
	}
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "run.json", `{
	  "migration_dir": "m",
	  "output_dir": "o",
	  "naming": "legacy",
	  "metrics": { "backend": "datadog", "datadog_addr": "127.0.0.1:8125", "job": "ci" }
	}`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Naming != "legacy" || got.Metrics.DatadogAddr != "127.0.0.1:8125" || got.Metrics.Job != "ci" {
		t.Fatalf("Load = %+v", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, file, contents, wantSubstr string
	}{
		{"unknown yaml field", "c.yml", "migration_dirs: x\n", "migration_dirs"},
		{"unknown json field", "c.json", `{"output": "x"}`, "output"},
		{"bad extension", "c.toml", "x = 1", "unsupported extension"},
		{"malformed json", "c.json", `{`, "decode"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.file, tt.contents))
			if err == nil || !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Fatalf("Load err = %v; want it to mention %q", err, tt.wantSubstr)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load of a missing file succeeded")
	}
}

func TestObjectKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		kinds   []string
		want    []ddl.Kind
		wantErr bool
	}{
		{name: "empty means all", want: ddl.Kinds()},
		{name: "repeated and comma separated", kinds: []string{"table,index", "ENUM", "table"},
			want: []ddl.Kind{ddl.KindTable, ddl.KindIndex, ddl.KindEnum}},
		{name: "unknown", kinds: []string{"view"}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Config{Kinds: tt.kinds}.ObjectKinds()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ObjectKinds(%v) succeeded", tt.kinds)
				}
				return
			}
			if err != nil {
				t.Fatalf("ObjectKinds: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ObjectKinds = %v; want %v", got, tt.want)
			}
		})
	}
}
