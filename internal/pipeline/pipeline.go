// Package pipeline sequences the load stages and isolates their failures.
// Stages run strictly one after another: each reads its source, reshapes it,
// and replaces its destination table. A failing stage is logged and skipped;
// the remaining stages still run, so one bad export never blocks the rest of
// the warehouse refresh.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ecomdw/internal/metrics"
	"ecomdw/internal/schema"
	"ecomdw/internal/warehouse"
)

// TableWriter replaces one destination table with a fresh set of rows.
// *warehouse.Writer is the production implementation.
type TableWriter interface {
	Replace(ctx context.Context, spec warehouse.TableSpec, rows [][]any) (int64, error)
}

// Store carries outputs between stages. Later stages consume what earlier
// ones produced; the Has flags distinguish "produced nothing" from "stage
// never ran", so a dependent stage can fail fast instead of silently loading
// an empty table.
type Store struct {
	Orders    []schema.Order
	HasOrders bool

	Clickstream    []schema.ClickEvent
	HasClickstream bool
}

// Stage is one unit of the pipeline: a name (also the metrics label) and a
// run function returning the number of rows landed in its destination table.
type Stage struct {
	Name string
	Run  func(ctx context.Context, store *Store) (int64, error)
}

// StageResult records one stage's outcome in the run report.
type StageResult struct {
	Name     string
	Rows     int64
	Duration time.Duration
	Err      error
}

// Report summarizes one pipeline run.
type Report struct {
	RunID   string
	Results []StageResult
}

// Failed lists the names of stages that errored.
func (r Report) Failed() []string {
	var names []string
	for _, res := range r.Results {
		if res.Err != nil {
			names = append(names, res.Name)
		}
	}
	return names
}

// Runner executes stages sequentially with per-stage failure isolation.
type Runner struct {
	job string
	log *zap.Logger
}

// NewRunner constructs a Runner. job labels the run in logs and metrics.
func NewRunner(job string, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{job: job, log: log}
}

// Run executes the stages in order. A stage error is recorded and logged but
// never stops the run; context cancellation does, since nothing useful can
// happen once the deadline passed.
func (r *Runner) Run(ctx context.Context, stages []Stage) Report {
	report := Report{RunID: uuid.NewString()}
	log := r.log.With(zap.String("run_id", report.RunID))
	log.Info("pipeline starting", zap.Int("stages", len(stages)))

	store := &Store{}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, StageResult{Name: stage.Name, Err: err})
			log.Warn("pipeline cancelled", zap.String("stage", stage.Name), zap.Error(err))
			break
		}

		start := time.Now()
		rows, err := stage.Run(ctx, store)
		elapsed := time.Since(start)

		metrics.RecordStage(r.job, stage.Name, rows, err, elapsed)
		report.Results = append(report.Results, StageResult{
			Name:     stage.Name,
			Rows:     rows,
			Duration: elapsed,
			Err:      err,
		})

		if err != nil {
			log.Error("stage failed, continuing",
				zap.String("stage", stage.Name),
				zap.Duration("took", elapsed),
				zap.Error(err))
			continue
		}
		log.Info("stage complete",
			zap.String("stage", stage.Name),
			zap.Int64("rows", rows),
			zap.Duration("took", elapsed))
	}

	if failed := report.Failed(); len(failed) > 0 {
		log.Warn("pipeline finished with failures", zap.Strings("failed", failed))
	} else {
		log.Info("pipeline finished")
	}
	return report
}
