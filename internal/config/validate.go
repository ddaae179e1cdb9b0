package config

import (
	"fmt"
	"strings"

	"github.com/microsoft/go-mssqldb/msdsn"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into the
// config (e.g. "db.dsn", "tables.sessions").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static checks over a loaded Config and returns the list
// of findings. It does not touch the filesystem or the network; path
// existence is checked at use time so a validate-only invocation works on any
// machine.
func Validate(cfg *Config) []Issue {
	var issues []Issue

	require := func(value, path string) {
		if strings.TrimSpace(value) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  path + " must not be empty",
			})
		}
	}

	require(cfg.DataDir, "data_dir")
	require(cfg.CategoriesFile, "categories_file")
	require(cfg.SQLDir, "sql_dir")

	if cfg.BatchSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "batch_size",
			Message:  fmt.Sprintf("batch_size must be > 0, got %d", cfg.BatchSize),
		})
	}

	if strings.TrimSpace(cfg.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "db.dsn",
			Message:  "db.dsn must be set via the DB_DSN environment variable",
		})
	} else if _, err := msdsn.Parse(cfg.DB.DSN); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "db.dsn",
			Message:  fmt.Sprintf("not a valid SQL Server connection string: %v", err),
		})
	}

	tables := map[string]string{
		"tables.transactions":       cfg.Tables.Transactions,
		"tables.transactions_prods": cfg.Tables.TransactionsProds,
		"tables.click_stream":       cfg.Tables.ClickStream,
		"tables.events_add_to_cart": cfg.Tables.EventsAddToCart,
		"tables.products":           cfg.Tables.Products,
		"tables.customers":          cfg.Tables.Customers,
		"tables.sessions":           cfg.Tables.Sessions,
	}
	seen := make(map[string]string, len(tables))
	for path, name := range tables {
		if strings.TrimSpace(name) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  path + " must not be empty",
			})
			continue
		}
		if prev, dup := seen[name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("table name %q already used by %s", name, prev),
			})
		}
		seen[name] = path
	}

	switch cfg.Metrics.Backend {
	case "", "none", "prometheus", "datadog":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", cfg.Metrics.Backend),
		})
	}
	if cfg.Metrics.Backend == "prometheus" && strings.TrimSpace(cfg.Metrics.PushgatewayURL) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.pushgateway_url",
			Message:  "pushgateway_url is required for the prometheus backend",
		})
	}

	return issues
}
