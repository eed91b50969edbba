package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/anna-assistant/annabench/internal/domain"
	"github.com/anna-assistant/annabench/internal/ports"
)

// DefaultConcurrency bounds parallel oracle calls when the configuration
// does not set a limit.
const DefaultConcurrency = 4

// BatchRunner evaluates a corpus of questions against one oracle.
// Questions are independent, so they run in parallel up to the concurrency
// limit; results keep corpus order regardless of completion order.
//
// Failure policy: an oracle failure downgrades the affected record to
// UNVERIFIABLE and the batch continues. A provenance failure skips the
// affected record. Neither aborts the batch.
type BatchRunner struct {
	oracle      ports.Oracle
	builder     *RecordBuilder
	concurrency int
	metrics     ports.MetricsCollector
}

// RunnerOption configures a BatchRunner.
type RunnerOption func(*BatchRunner)

// WithConcurrency sets the maximum number of in-flight oracle calls.
func WithConcurrency(n int) RunnerOption {
	return func(r *BatchRunner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRunnerMetrics enables batch-progress metrics collection.
func WithRunnerMetrics(collector ports.MetricsCollector) RunnerOption {
	return func(r *BatchRunner) { r.metrics = collector }
}

// NewBatchRunner creates a runner over the given oracle and builder.
func NewBatchRunner(oracle ports.Oracle, builder *RecordBuilder, opts ...RunnerOption) (*BatchRunner, error) {
	if oracle == nil {
		return nil, fmt.Errorf("%w: oracle is required", domain.ErrInvalidConfiguration)
	}
	if builder == nil {
		return nil, fmt.Errorf("%w: record builder is required", domain.ErrInvalidConfiguration)
	}

	r := &BatchRunner{
		oracle:      oracle,
		builder:     builder,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run evaluates every question and returns the records in corpus order.
// An empty corpus returns domain.ErrEmptyCorpus. Per-question failures
// never abort the batch: oracle errors yield UNVERIFIABLE records, and
// provenance errors drop the affected record and are reported joined in
// the returned error alongside the surviving records.
func (r *BatchRunner) Run(
	ctx context.Context,
	questions []domain.QuestionRecord,
	cfg domain.GenerationConfig,
) ([]domain.EvaluationRecord, error) {
	if len(questions) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	r.gauge("batch_questions_total", float64(len(questions)))

	// Index-addressed slots keep corpus order without post-hoc sorting.
	results := make([]*domain.EvaluationRecord, len(questions))

	var mu sync.Mutex
	var skipped []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, q := range questions {
		g.Go(func() error {
			record, err := r.evaluate(gctx, q, cfg)
			if err != nil {
				// Only provenance failures reach here; they skip
				// the record and never fail the group.
				log.Printf("skipping question %s: %v", q.ID, err)
				mu.Lock()
				skipped = append(skipped, err)
				mu.Unlock()
				return nil
			}
			results[i] = &record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]domain.EvaluationRecord, 0, len(questions))
	for _, rec := range results {
		if rec != nil {
			records = append(records, *rec)
		}
	}

	r.gauge("batch_records_built", float64(len(records)))

	return records, errors.Join(skipped...)
}

// evaluate handles one question end to end. Oracle failures are folded
// into an UNVERIFIABLE record here so the caller sees exactly one record
// per question unless provenance is broken.
func (r *BatchRunner) evaluate(
	ctx context.Context,
	q domain.QuestionRecord,
	cfg domain.GenerationConfig,
) (domain.EvaluationRecord, error) {
	answer, err := r.oracle.Generate(ctx, q, cfg)
	if err != nil {
		var oracleErr *domain.OracleError
		if errors.As(err, &oracleErr) {
			log.Printf("oracle failed for question %s, recording unverifiable: %v", q.ID, err)
			return r.builder.BuildUnverifiable(q, r.fallbackModel(cfg), err)
		}
		// Oracles are expected to wrap their failures; treat anything
		// else the same way rather than aborting the batch.
		return r.builder.BuildUnverifiable(q, r.fallbackModel(cfg), err)
	}

	return r.builder.Build(ctx, q, answer)
}

func (r *BatchRunner) fallbackModel(cfg domain.GenerationConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return r.oracle.Model()
}

func (r *BatchRunner) gauge(metric string, value float64) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordGauge(metric, value, nil)
}
