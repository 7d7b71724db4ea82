package output

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Sink persists an artifact.
type Sink interface {
	Write(ctx context.Context, a *Artifact) error
	Close() error
}

// Config selects and configures a sink.
type Config struct {
	// Kind is the registered sink name, e.g. "file" or "sqlite".
	Kind string
	// Dir is the output directory of directory-based sinks.
	Dir string
	// DSN is the data source of database sinks.
	DSN    string
	Logger logrus.FieldLogger
}

// Factory opens a sink.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory of kind. It is typically
// called from sink packages' init functions.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a sink of cfg.Kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported output.kind=%s", cfg.Kind)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered sink kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
