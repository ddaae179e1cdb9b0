package schemaobj

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"ecomdw/internal/metrics"
)

// Script files in execution order. Order matters: the views reference the
// functions and the indexed tables.
var scriptFiles = []string{
	"Adding primary keys and indexes.sql",
	"Functions.sql",
	"View dm_sessions.sql",
	"View dm_transactions.sql",
}

var functionNames = []string{"fn_AmountCategory", "fn_AgeCategory"}
var viewNames = []string{"dm_sessions", "dm_transactions"}

// Builder executes the schema-object scripts against the warehouse.
type Builder struct {
	db  *sql.DB
	dir string
	log *zap.Logger
	job string
}

// NewBuilder constructs a Builder over an open warehouse connection. dir is
// the directory holding the script files.
func NewBuilder(db *sql.DB, dir, job string, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{db: db, dir: dir, log: log, job: job}
}

// Build drops any existing functions and views, then executes the scripts in
// order. Statement failures in the index script are logged and skipped
// (re-running against an already-indexed warehouse is routine); a failure in
// the function or view scripts aborts, since everything after depends on
// them.
func (b *Builder) Build(ctx context.Context) error {
	if err := b.dropExisting(ctx); err != nil {
		return err
	}

	for _, name := range scriptFiles {
		if err := b.runScript(ctx, name); err != nil {
			return err
		}
		if name == "Functions.sql" {
			if err := b.verifyFunctions(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// dropExisting removes the functions and views so the scripts can recreate
// them. Individual drop failures are warnings: a permissions hiccup on one
// object should not block a first-time build where nothing exists yet.
func (b *Builder) dropExisting(ctx context.Context) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("schemaobj: begin drop tx: %w", err)
	}

	for _, fn := range functionNames {
		stmt := fmt.Sprintf("IF OBJECT_ID('dbo.%s', 'FN') IS NOT NULL DROP FUNCTION dbo.%s", fn, fn)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			b.log.Warn("schemaobj: could not drop function", zap.String("function", fn), zap.Error(err))
		}
	}
	for _, v := range viewNames {
		stmt := fmt.Sprintf("IF OBJECT_ID('dbo.%s', 'V') IS NOT NULL DROP VIEW dbo.%s", v, v)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			b.log.Warn("schemaobj: could not drop view", zap.String("view", v), zap.Error(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("schemaobj: commit drops: %w", err)
	}
	return nil
}

// runScript executes one script file inside a single transaction.
func (b *Builder) runScript(ctx context.Context, name string) error {
	path := filepath.Join(b.dir, name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("schemaobj: read %s: %w", name, err)
	}
	statements := SplitStatements(string(raw), name)
	b.log.Info("schemaobj: executing script",
		zap.String("script", name),
		zap.Int("statements", len(statements)))

	tolerant := tolerantScript(name)

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("schemaobj: begin tx for %s: %w", name, err)
	}

	executed := 0
	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if tolerant {
				b.log.Error("schemaobj: statement failed, skipping",
					zap.String("script", name),
					zap.Int("statement", i+1),
					zap.Int("of", len(statements)),
					zap.Error(err))
				continue
			}
			_ = tx.Rollback()
			return fmt.Errorf("schemaobj: %s statement %d/%d: %w", name, i+1, len(statements), err)
		}
		executed++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("schemaobj: commit %s: %w", name, err)
	}

	metrics.RecordObjects(b.job, name, int64(executed))
	b.log.Info("schemaobj: script complete",
		zap.String("script", name),
		zap.Int("executed", executed),
		zap.Int("of", len(statements)))
	return nil
}

// tolerantScript reports whether per-statement failures in the named script
// are skipped instead of aborting the build. Only the index script is
// tolerant; function and view scripts are fatal. Matching is
// case-insensitive, like the GO-separator detection in SplitStatements.
func tolerantScript(name string) bool {
	lower := strings.ToLower(name)
	return !strings.Contains(lower, "function") && !strings.Contains(lower, "view")
}

// verifyFunctions confirms both scalar functions exist in sys.objects. The
// views are created next and reference them, so a silent miss here would
// surface as a much less readable view error.
func (b *Builder) verifyFunctions(ctx context.Context) error {
	rows, err := b.db.QueryContext(ctx,
		"SELECT name FROM sys.objects WHERE type = 'FN' AND name IN ('fn_AmountCategory', 'fn_AgeCategory')")
	if err != nil {
		return fmt.Errorf("schemaobj: verify functions: %w", err)
	}
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("schemaobj: verify functions: %w", err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("schemaobj: verify functions: %w", err)
	}

	for _, fn := range functionNames {
		if !found[fn] {
			return fmt.Errorf("schemaobj: function %s was not created", fn)
		}
	}
	b.log.Info("schemaobj: functions verified", zap.Strings("functions", functionNames))
	return nil
}
