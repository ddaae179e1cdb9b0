package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	"go.uber.org/zap"
)

// Writer replaces destination tables in the warehouse. A connection is
// opened per Replace call and closed when the call returns; the pipeline is
// strictly sequential, so no pooling across stages is needed.
type Writer struct {
	dsn       string
	batchSize int
	log       *zap.Logger

	// openFn is a test seam; production points at openSQLServer.
	openFn func(dsn string) (*sql.DB, error)
}

// NewWriter constructs a Writer. The DSN is validated eagerly to fail fast
// on obvious mistakes; batchSize must be positive. Note that msdsn falls
// back to key=value parsing for non-URL strings, so only empty DSNs and
// malformed sqlserver:// URLs are rejected here.
func NewWriter(dsn string, batchSize int, log *zap.Logger) (*Writer, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("warehouse: dsn must not be empty")
	}
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("warehouse: dsn: %w", err)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("warehouse: batch size must be > 0, got %d", batchSize)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		dsn:       dsn,
		batchSize: batchSize,
		log:       log,
		openFn:    openSQLServer,
	}, nil
}

func openSQLServer(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	return db, nil
}

// Replace drops the destination table if it exists, creates it with the
// exact column types of spec, and bulk-inserts rows in batches. On success
// the table contains exactly the rows provided. Any error is logged with
// the table context and returned to the caller; the caller (stage
// isolation) decides whether the pipeline continues.
func (w *Writer) Replace(ctx context.Context, spec TableSpec, rows [][]any) (int64, error) {
	createSQL, err := spec.CreateSQL()
	if err != nil {
		return 0, err
	}

	db, err := w.openFn(w.dsn)
	if err != nil {
		w.log.Error("warehouse: open connection", zap.String("table", spec.Name), zap.Error(err))
		return 0, err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, spec.DropSQL()); err != nil {
		w.log.Error("warehouse: drop table", zap.String("table", spec.Name), zap.Error(err))
		return 0, fmt.Errorf("drop %s: %w", spec.Name, err)
	}
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		w.log.Error("warehouse: create table", zap.String("table", spec.Name), zap.Error(err))
		return 0, fmt.Errorf("create %s: %w", spec.Name, err)
	}

	columns := spec.ColumnNames()
	var total int64
	for start := 0; start < len(rows); start += w.batchSize {
		end := start + w.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := w.copyBatch(ctx, db, spec.Name, columns, rows[start:end])
		total += n
		if err != nil {
			w.log.Error("warehouse: bulk insert",
				zap.String("table", spec.Name),
				zap.Int("batch_start", start),
				zap.Error(err))
			return total, fmt.Errorf("insert %s rows %d..%d: %w", spec.Name, start, end, err)
		}
	}

	w.log.Info("warehouse: table replaced",
		zap.String("table", spec.Name),
		zap.Int64("rows", total))
	return total, nil
}

// copyBatch bulk-copies one batch inside its own transaction.
func (w *Writer) copyBatch(ctx context.Context, db *sql.DB, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(targetSchema+"."+table, mssql.BulkOptions{}, columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if len(rows[i]) != len(columns) {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("bulk row %d: %d values for %d columns", i, len(rows[i]), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
