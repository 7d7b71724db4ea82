// Package file implements the "file" output sink: one SQL script per
// requested object kind plus a script of captured unsupported statements.
package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/SitadziMado/migration-aggregator/internal/output"
	"github.com/SitadziMado/migration-aggregator/internal/render"
)

func init() {
	output.Register("file", func(ctx context.Context, cfg output.Config) (output.Sink, error) {
		return New(cfg.Dir, cfg.Logger)
	})
}

// Sink writes SQL scripts into a directory.
type Sink struct {
	dir string
	log logrus.FieldLogger
}

// New returns a sink writing into dir. The directory is created on Write.
func New(dir string, log logrus.FieldLogger) (*Sink, error) {
	if dir == "" {
		return nil, fmt.Errorf("file: output directory must not be empty")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sink{dir: dir, log: log}, nil
}

// Write emits final_schema_<kind>.sql for every requested kind, then
// unsupported.sql. Existing files are overwritten.
func (s *Sink) Write(ctx context.Context, a *output.Artifact) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("file: %w", err)
	}

	s.log.WithField("dir", s.dir).Info("emitting final schemas")
	for _, kind := range a.Kinds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.writeScript(output.FileName(kind), a.SQL(kind)); err != nil {
			return err
		}
	}

	path := filepath.Join(s.dir, output.UnsupportedFileName)
	s.log.WithField("path", path).Info("emitting unsupported statements")
	return s.writeScript(output.UnsupportedFileName, a.UnsupportedSQL())
}

func (s *Sink) writeScript(name string, sqls []string) error {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := render.WriteSQL(w, sqls); err != nil {
		f.Close()
		return fmt.Errorf("file: write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("file: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("file: close %s: %w", path, err)
	}
	return nil
}

// Close implements output.Sink.
func (s *Sink) Close() error { return nil }
