// Package sqlite implements the "sqlite" output sink. Each run replaces the
// rows of three tables inside one transaction:
//
//	objects(kind, position, name, sql)
//	unsupported(seq, file, stmt_index, sql)
//	migrations(version, path, checksum, statements)
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"

	"github.com/SitadziMado/migration-aggregator/internal/output"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS objects (
	kind     TEXT    NOT NULL,
	position INTEGER NOT NULL,
	name     TEXT    NOT NULL,
	sql      TEXT    NOT NULL,
	PRIMARY KEY (kind, name)
);
CREATE TABLE IF NOT EXISTS unsupported (
	seq        INTEGER PRIMARY KEY,
	file       TEXT    NOT NULL,
	stmt_index INTEGER NOT NULL,
	sql        TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS migrations (
	version    INTEGER NOT NULL,
	path       TEXT    PRIMARY KEY,
	checksum   TEXT    NOT NULL,
	statements INTEGER NOT NULL
);`

func init() {
	output.Register("sqlite", func(ctx context.Context, cfg output.Config) (output.Sink, error) {
		return Open(ctx, cfg.DSN, cfg.Logger)
	})
}

// Sink writes artifacts into a SQLite database.
type Sink struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// Open connects to dsn (a file path or a "file:" URI) and creates the
// artifact tables if needed.
func Open(ctx context.Context, dsn string, log logrus.FieldLogger) (*Sink, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create tables: %w", err)
	}
	return &Sink{db: db, log: log}, nil
}

// Write replaces the stored artifact with a.
func (s *Sink) Write(ctx context.Context, a *output.Artifact) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"objects", "unsupported", "migrations"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("sqlite: clear %s: %w", table, err)
		}
	}

	var n int64
	for _, kind := range a.Kinds {
		rows := make([][]any, 0, len(a.Objects[kind]))
		for _, o := range a.Objects[kind] {
			rows = append(rows, []any{strings.ToLower(o.Kind.String()), o.Position, o.Name.Quoted(), o.SQL})
		}
		c, err := insert(ctx, tx, "objects", []string{"kind", "position", "name", "sql"}, rows)
		if err != nil {
			return err
		}
		n += c
	}

	rows := make([][]any, 0, len(a.Unsupported))
	for i, st := range a.Unsupported {
		rows = append(rows, []any{i + 1, st.File, st.Index, st.SQL})
	}
	if _, err = insert(ctx, tx, "unsupported", []string{"seq", "file", "stmt_index", "sql"}, rows); err != nil {
		return err
	}

	rows = make([][]any, 0, len(a.Migrations))
	for _, m := range a.Migrations {
		rows = append(rows, []any{int64(m.Version), m.Path, m.Checksum, m.Statements})
	}
	if _, err = insert(ctx, tx, "migrations", []string{"version", "path", "checksum", "statements"}, rows); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"objects":     n,
		"unsupported": len(a.Unsupported),
		"migrations":  len(a.Migrations),
	}).Info("artifact stored in sqlite")
	return nil
}

// insert runs a prepared INSERT per row and returns the number of rows
// inserted.
func insert(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return inserted, fmt.Errorf("sqlite: insert into %s: %w", table, err)
		}
		inserted++
	}
	return inserted, nil
}

// Close closes the database.
func (s *Sink) Close() error {
	return s.db.Close()
}
