// Package config defines the configuration model of a schema aggregation run.
//
// A Config can be decoded from a JSON or YAML file (chosen by extension) and
// is then overridden by command-line flags. Example (YAML):
//
//	migration_dir: db/migrations
//	output_dir: build/schema
//	kinds: [table, index, enum]
//	naming: postgres
//	parallelism: 4
//	sqlite:
//	  dsn: build/schema.db
//	metrics:
//	  backend: prompush
//	  pushgateway_url: http://pushgateway:9091
//	  job: nightly-schema
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/SitadziMado/migration-aggregator/internal/ddl"
)

// Config describes one run.
type Config struct {
	// MigrationDir is walked recursively for migration scripts.
	MigrationDir string `json:"migration_dir" yaml:"migration_dir"`

	// OutputDir receives final_schema_<kind>.sql and unsupported.sql.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Kinds lists the object kinds to emit (case-insensitive). Empty means all.
	Kinds []string `json:"kinds" yaml:"kinds"`

	// Naming selects the constraint naming policy: "postgres" or "legacy".
	Naming string `json:"naming" yaml:"naming"`

	// Parallelism bounds concurrent file loading. Zero means one per CPU.
	Parallelism int `json:"parallelism" yaml:"parallelism"`

	SQLite  SQLite  `json:"sqlite" yaml:"sqlite"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// SQLite configures the optional SQLite artifact store.
type SQLite struct {
	// DSN enables the store when non-empty.
	DSN string `json:"dsn" yaml:"dsn"`
}

// Metrics configures the metrics backend.
type Metrics struct {
	// Backend is "none", "prompush" or "datadog".
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr"`
	// Job labels every metric of the run.
	Job string `json:"job" yaml:"job"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Naming:  "postgres",
		Metrics: Metrics{Backend: "none", Job: "schemaagg"},
	}
}

// Load decodes the file at path over Default(). Files ending in .yaml or
// .yml are YAML, .json is JSON. Unknown fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("config: decode %s: %w", path, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("config: %s: unsupported extension %q (want .json, .yaml or .yml)", path, filepath.Ext(path))
	}
	return cfg, nil
}

// ObjectKinds resolves Kinds. Comma-separated entries are split; an empty
// list yields every kind. Duplicates are dropped.
func (c Config) ObjectKinds() ([]ddl.Kind, error) {
	var out []ddl.Kind
	seen := map[ddl.Kind]bool{}
	for _, entry := range c.Kinds {
		for _, name := range strings.Split(entry, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			k, err := ddl.ParseKind(name)
			if err != nil {
				return nil, err
			}
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	if len(out) == 0 {
		return ddl.Kinds(), nil
	}
	return out, nil
}
