// Command schemaagg replays a directory of PostgreSQL migration scripts and
// emits the resulting schema, one SQL file per object kind, plus the
// statements it could not model.
//
// Usage:
//
//	schemaagg [flags] <migration_dir> <output_dir>
//
// Exit status is 0 on success (even when statements were skipped), 1 on a
// replay error or an invalid configuration and 2 on a usage error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SitadziMado/migration-aggregator/internal/aggregate"
	"github.com/SitadziMado/migration-aggregator/internal/config"
	"github.com/SitadziMado/migration-aggregator/internal/ddl"
	"github.com/SitadziMado/migration-aggregator/internal/metrics"
	"github.com/SitadziMado/migration-aggregator/internal/metrics/datadog"
	"github.com/SitadziMado/migration-aggregator/internal/metrics/prompush"
	"github.com/SitadziMado/migration-aggregator/internal/migration"
	"github.com/SitadziMado/migration-aggregator/internal/output"

	// register every output sink with the output factory.
	_ "github.com/SitadziMado/migration-aggregator/internal/output/all"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// kindsFlag collects -t values; each may be comma-separated.
type kindsFlag []string

func (k *kindsFlag) String() string { return strings.Join(*k, ",") }

func (k *kindsFlag) Set(v string) error {
	*k = append(*k, v)
	return nil
}

// options holds parsed flag values.
type options struct {
	cfgPath        string
	kinds          kindsFlag
	naming         string
	sqliteDSN      string
	parallel       int
	metricsBackend string
	pushgatewayURL string
	datadogAddr    string
	job            string
	validate       bool
	verbose        bool
}

func newFlagSet(o *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("schemaagg", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: schemaagg [flags] <migration_dir> <output_dir>")
		fs.PrintDefaults()
	}

	fs.StringVar(&o.cfgPath, "config", "", "run config file (.json, .yaml or .yml)")
	fs.Var(&o.kinds, "t", "object kind to emit; repeatable or comma-separated (default all)")
	fs.StringVar(&o.naming, "naming", "", "constraint naming policy: postgres or legacy")
	fs.StringVar(&o.sqliteDSN, "sqlite", "", "also store the result in this SQLite database")
	fs.IntVar(&o.parallel, "parallel", 0, "files loaded concurrently (0 = one per CPU)")
	fs.StringVar(&o.metricsBackend, "metrics-backend", "", "metrics backend: none, prompush or datadog")
	fs.StringVar(&o.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	fs.StringVar(&o.datadogAddr, "datadog-addr", "", "DogStatsD address (overrides env DD_DOGSTATSD_ADDR)")
	fs.StringVar(&o.job, "job", "", "job label attached to metrics")
	fs.BoolVar(&o.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&o.verbose, "v", false, "enable verbose logs")
	return fs
}

// parseArgs parses flags interleaved with positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	var o options
	fs := newFlagSet(&o, stderr)
	positional, err := parseArgs(fs, args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitUsage
	}
	if len(positional) != 2 && !(len(positional) == 0 && o.cfgPath != "") {
		fs.Usage()
		return exitUsage
	}

	cfg := config.Default()
	if o.cfgPath != "" {
		if cfg, err = config.Load(o.cfgPath); err != nil {
			fmt.Fprintf(stderr, "schemaagg: %v\n", err)
			return exitError
		}
	}
	applyOverrides(&cfg, fs, o, positional)

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintln(stderr, "schemaagg: configuration is invalid")
		return exitError
	}
	if o.validate {
		fmt.Fprintln(stdout, "configuration is valid")
		return exitOK
	}

	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	if o.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	flush := setupMetrics(cfg.Metrics, log)
	defer flush()

	if err := aggregateAndEmit(context.Background(), cfg, log); err != nil {
		fmt.Fprintf(stderr, "schemaagg: %v\n", err)
		return exitError
	}
	return exitOK
}

// applyOverrides lets positional arguments, explicitly set flags and the
// environment override file values.
func applyOverrides(cfg *config.Config, fs *flag.FlagSet, o options, positional []string) {
	if len(positional) == 2 {
		cfg.MigrationDir, cfg.OutputDir = positional[0], positional[1]
	}
	if cfg.Metrics.PushgatewayURL == "" {
		cfg.Metrics.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	}
	if cfg.Metrics.DatadogAddr == "" {
		cfg.Metrics.DatadogAddr = os.Getenv("DD_DOGSTATSD_ADDR")
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.Kinds = append([]string(nil), o.kinds...)
		case "naming":
			cfg.Naming = o.naming
		case "sqlite":
			cfg.SQLite.DSN = o.sqliteDSN
		case "parallel":
			cfg.Parallelism = o.parallel
		case "metrics-backend":
			cfg.Metrics.Backend = o.metricsBackend
		case "pushgateway-url":
			cfg.Metrics.PushgatewayURL = o.pushgatewayURL
		case "datadog-addr":
			cfg.Metrics.DatadogAddr = o.datadogAddr
		case "job":
			cfg.Metrics.Job = o.job
		}
	})
}

// setupMetrics installs the configured backend and returns a function that
// flushes it.
func setupMetrics(m config.Metrics, log logrus.FieldLogger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "prompush":
		b, err = prompush.NewBackend(m.Job, m.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			GlobalTags: []string{"service:schemaagg"},
		})
	default:
		log.Debugf("metrics: disabled (backend=%q)", m.Backend)
		return func() {}
	}
	if err != nil {
		log.Warnf("metrics: failed to init %s backend: %v; using nop", m.Backend, err)
		return func() {}
	}

	log.WithFields(logrus.Fields{"backend": m.Backend, "job": m.Job}).Debug("metrics enabled")
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warnf("metrics: flush error: %v", err)
		}
	}
}

func aggregateAndEmit(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	kinds, err := cfg.ObjectKinds()
	if err != nil {
		return err
	}
	naming, err := ddl.NamingPolicyByName(cfg.Naming)
	if err != nil {
		return err
	}
	job := cfg.Metrics.Job
	start := time.Now()

	var files []migration.File
	err = step(job, "list", func() error {
		files, err = migration.List(cfg.MigrationDir)
		return err
	})
	if err != nil {
		return err
	}
	log.WithField("files", len(files)).Debug("migrations discovered")

	var scripts []migration.Script
	err = step(job, "load", func() error {
		scripts, err = migration.Load(ctx, files, migration.Options{
			Parallelism: cfg.Parallelism,
			Logger:      log,
		})
		return err
	})
	if err != nil {
		return err
	}

	var report *aggregate.Report
	err = step(job, "replay", func() error {
		report, err = aggregate.Run(scripts, aggregate.Options{Naming: naming, Logger: log, Job: job})
		return err
	})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"files":       report.Stats.Files,
		"statements":  report.Stats.Statements,
		"applied":     report.Stats.Applied,
		"ignored":     report.Stats.Ignored,
		"unsupported": report.Stats.Unsupported,
		"output":      cfg.OutputDir,
	}).Infof("finished the aggregation; statements skipped: %d", report.Stats.Unsupported)

	err = step(job, "emit", func() error {
		return emit(ctx, cfg, kinds, report, log)
	})
	if err != nil {
		return err
	}

	log.WithField("elapsed", time.Since(start).Truncate(time.Millisecond)).Info("work finished")
	return nil
}

func emit(ctx context.Context, cfg config.Config, kinds []ddl.Kind, report *aggregate.Report, log *logrus.Logger) error {
	artifact, err := output.Build(report, kinds, nil)
	if err != nil {
		return err
	}

	sinks := []output.Config{{Kind: "file", Dir: cfg.OutputDir, Logger: log}}
	if cfg.SQLite.DSN != "" {
		sinks = append(sinks, output.Config{Kind: "sqlite", DSN: cfg.SQLite.DSN, Logger: log})
	}
	for _, sc := range sinks {
		sink, err := output.New(ctx, sc)
		if err != nil {
			return err
		}
		werr := sink.Write(ctx, artifact)
		cerr := sink.Close()
		if werr != nil {
			return werr
		}
		if cerr != nil {
			return cerr
		}
	}
	return nil
}

// step runs fn and records it as a run phase.
func step(job, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(job, name, err, time.Since(start))
	return err
}
