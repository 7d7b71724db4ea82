package migration

import (
	"context"
	"fmt"
	"runtime"

	pg_query "github.com/pganalyze/pg_query_go/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ParseFunc parses the text of one script.
type ParseFunc func(sql string) (*pg_query.ParseResult, error)

// Options tunes Load.
type Options struct {
	// Parallelism bounds the number of files read and parsed at once.
	// Zero means runtime.NumCPU().
	Parallelism int
	// Parse defaults to pg_query.Parse.
	Parse  ParseFunc
	Logger logrus.FieldLogger
}

// Script is a parsed migration file.
type Script struct {
	File       File
	Checksum   string
	Statements []*pg_query.Node
}

// ParseError reports a script the parser rejected.
type ParseError struct {
	File File
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("migration: parse %s: %v", e.File.Rel, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Load reads and parses files concurrently. The result has one Script per
// file, in the order of files. The first failure cancels the remaining work.
func Load(ctx context.Context, files []File, opts Options) ([]Script, error) {
	parse := opts.Parse
	if parse == nil {
		parse = pg_query.Parse
	}
	limit := opts.Parallelism
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	scripts := make([]Script, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			text, err := Read(ctx, f.Path)
			if err != nil {
				return fmt.Errorf("migration: %w", err)
			}
			tree, err := parse(text)
			if err != nil {
				return &ParseError{File: f, Err: err}
			}
			stmts := make([]*pg_query.Node, 0, len(tree.GetStmts()))
			for _, raw := range tree.GetStmts() {
				stmts = append(stmts, raw.GetStmt())
			}
			scripts[i] = Script{File: f, Checksum: Checksum(text), Statements: stmts}
			log.WithFields(logrus.Fields{
				"file":       f.Rel,
				"statements": len(stmts),
			}).Debug("migration parsed")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scripts, nil
}
