// Package aggregate replays parsed migration scripts into a schema and
// collects what could not be modelled.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/SitadziMado/migration-aggregator/internal/ddl"
	"github.com/SitadziMado/migration-aggregator/internal/metrics"
	"github.com/SitadziMado/migration-aggregator/internal/migration"
	"github.com/SitadziMado/migration-aggregator/internal/schema"
)

// Options configures a run.
type Options struct {
	Naming ddl.NamingPolicy
	Logger logrus.FieldLogger
	// Job labels emitted metrics.
	Job string
}

// Captured is a statement, or the residual of one, that the replay skipped.
type Captured struct {
	File string
	// Index is the 1-based position of the statement within File.
	Index     int
	Statement *ddl.Unsupported
}

// Migration summarizes one replayed file.
type Migration struct {
	File       migration.File
	Checksum   string
	Statements int
}

// Stats counts statement outcomes.
type Stats struct {
	Files       int
	Statements  int
	Applied     int
	Ignored     int
	Unsupported int
}

// Report is the result of a successful run.
type Report struct {
	Schema      *schema.Schema
	Unsupported []Captured
	Migrations  []Migration
	Stats       Stats
}

// StatementError locates the statement that aborted a run.
type StatementError struct {
	File  string
	Index int
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("aggregate: %s: statement %d: %v", e.File, e.Index, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Run replays scripts in order. The first structural error aborts the run
// and no report is returned.
func Run(scripts []migration.Script, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := schema.New(schema.WithNaming(opts.Naming), schema.WithLogger(log))
	r := &Report{Schema: s, Migrations: make([]Migration, 0, len(scripts))}

	for _, script := range scripts {
		flog := log.WithField("file", script.File.Rel)
		for i, node := range script.Statements {
			stmt := ddl.Classify(node)
			captured, err := s.Execute(stmt)
			r.Stats.Statements++
			if err != nil {
				metrics.RecordStatement(opts.Job, metrics.OutcomeFailed, 1)
				return nil, &StatementError{File: script.File.Rel, Index: i + 1, Err: err}
			}
			switch {
			case captured != nil:
				r.Stats.Unsupported++
				r.Unsupported = append(r.Unsupported, Captured{File: script.File.Rel, Index: i + 1, Statement: captured})
				flog.WithField("statement", i+1).Debugf("captured unsupported %T", node.GetNode())
			case isIgnored(stmt):
				r.Stats.Ignored++
			default:
				r.Stats.Applied++
			}
		}
		r.Stats.Files++
		r.Migrations = append(r.Migrations, Migration{
			File:       script.File,
			Checksum:   script.Checksum,
			Statements: len(script.Statements),
		})
	}

	metrics.RecordStatement(opts.Job, metrics.OutcomeApplied, int64(r.Stats.Applied))
	metrics.RecordStatement(opts.Job, metrics.OutcomeIgnored, int64(r.Stats.Ignored))
	metrics.RecordStatement(opts.Job, metrics.OutcomeUnsupported, int64(r.Stats.Unsupported))
	for _, k := range ddl.Kinds() {
		metrics.RecordObjects(opts.Job, strings.ToLower(k.String()), s.Repository(k).Len())
	}
	return r, nil
}

func isIgnored(stmt ddl.Statement) bool {
	_, ok := stmt.(*ddl.Ignored)
	return ok
}
