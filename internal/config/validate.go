package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/SitadziMado/migration-aggregator/internal/ddl"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding worth surfacing that does not block
	// execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "metrics.pushgateway_url",
// "kinds[1]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over c. It does not touch the filesystem.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.MigrationDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "migration_dir",
			Message:  "migration_dir must not be empty",
		})
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output_dir",
			Message:  "output_dir must not be empty",
		})
	} else if c.MigrationDir != "" && filepath.Clean(c.MigrationDir) == filepath.Clean(c.OutputDir) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "output_dir",
			Message:  "output_dir equals migration_dir; emitted files will be picked up as migrations on the next run",
		})
	}

	issues = append(issues, validateKinds(c.Kinds)...)

	if _, err := ddl.NamingPolicyByName(c.Naming); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "naming",
			Message:  fmt.Sprintf("unknown naming policy %q; want postgres or legacy", c.Naming),
		})
	}

	if c.Parallelism < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parallelism",
			Message:  fmt.Sprintf("parallelism must be >= 0 (got %d)", c.Parallelism),
		})
	}

	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateKinds(kinds []string) []Issue {
	var issues []Issue
	seen := map[ddl.Kind]bool{}
	for i, entry := range kinds {
		for _, name := range strings.Split(entry, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			path := fmt.Sprintf("kinds[%d]", i)
			k, err := ddl.ParseKind(name)
			if err != nil {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     path,
					Message:  fmt.Sprintf("unknown object kind %q", name),
				})
				continue
			}
			if seen[k] {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     path,
					Message:  fmt.Sprintf("kind %s listed more than once", k),
				})
			}
			seen[k] = true
		}
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
		return nil
	case "prompush":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prompush backend requires a Pushgateway URL",
			})
		}
	case "datadog":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog backend requires a DogStatsD address",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; want none, prompush or datadog", m.Backend),
		})
		return issues
	}

	if strings.TrimSpace(m.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.job",
			Message:  "metrics.job is empty; metrics will be hard to attribute to a run",
		})
	}
	return issues
}
