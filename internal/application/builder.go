// Package application orchestrates the evaluation pipeline: it composes
// the extractor, metric collector, classifier, and optional judge into
// record construction, and runs corpora through them in parallel.
package application

import (
	"context"
	"fmt"
	"log"

	"github.com/anna-assistant/annabench/infrastructure/eval"
	"github.com/anna-assistant/annabench/internal/domain"
	"github.com/anna-assistant/annabench/internal/ports"
)

// RecordBuilder assembles one EvaluationRecord per question/answer pair.
// It owns the analysis sequence: command extraction, word counting,
// heuristic classification, and the optional judge review whose verdict is
// merged conservatively with the heuristic one.
type RecordBuilder struct {
	extractor  *eval.CommandExtractor
	classifier *eval.Classifier
	judge      *eval.Judge
	metrics    ports.MetricsCollector
}

// BuilderOption configures a RecordBuilder.
type BuilderOption func(*RecordBuilder)

// WithJudge enables the secondary LLM judge. The judge's verdict is merged
// with the heuristic verdict, keeping the more severe class.
func WithJudge(judge *eval.Judge) BuilderOption {
	return func(b *RecordBuilder) { b.judge = judge }
}

// WithMetrics enables per-record metrics collection.
func WithMetrics(collector ports.MetricsCollector) BuilderOption {
	return func(b *RecordBuilder) { b.metrics = collector }
}

// NewRecordBuilder builds a RecordBuilder with the given classifier
// configuration.
func NewRecordBuilder(config eval.ClassifierConfig, opts ...BuilderOption) (*RecordBuilder, error) {
	classifier, err := eval.NewClassifier(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	b := &RecordBuilder{
		extractor:  eval.NewCommandExtractor(),
		classifier: classifier,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Build runs the full analysis sequence on one answered question.
// A judge failure is absorbed: the heuristic verdict stands and the
// failure is logged, since a broken judge must not distort the batch.
// The only error Build returns is a ProvenanceError.
func (b *RecordBuilder) Build(
	ctx context.Context,
	q domain.QuestionRecord,
	a domain.AnswerRecord,
) (domain.EvaluationRecord, error) {
	commands := b.extractor.Extract(ctx, a.Text, q)
	wordCount := eval.CountWords(a.Text)

	verdict := b.classifier.Classify(ctx, q, a, commands)

	if b.judge != nil {
		judged, err := b.judge.Review(ctx, q, a, commands)
		if err != nil {
			log.Printf("judge review failed for question %s, keeping heuristic verdict: %v", q.ID, err)
		} else {
			verdict = verdict.MergeConservative(judged)
		}
	}

	record, err := domain.NewEvaluationRecord(q, a, wordCount, commands, verdict)
	if err != nil {
		return domain.EvaluationRecord{}, err
	}

	b.countRecord(record)
	return record, nil
}

// BuildUnverifiable produces the downgraded record for a question whose
// answer generation failed. The oracle error becomes the rationale, and
// the answer carries no text or timing.
func (b *RecordBuilder) BuildUnverifiable(
	q domain.QuestionRecord,
	model string,
	oracleErr error,
) (domain.EvaluationRecord, error) {
	answer := domain.AnswerRecord{
		Model:      model,
		Unmeasured: true,
	}
	verdict := domain.Verdict{
		Class:     domain.VerdictUnverifiable,
		Rationale: fmt.Sprintf("answer generation failed: %v", oracleErr),
	}

	record, err := domain.NewEvaluationRecord(q, answer, 0, nil, verdict)
	if err != nil {
		return domain.EvaluationRecord{}, err
	}

	b.countRecord(record)
	return record, nil
}

func (b *RecordBuilder) countRecord(record domain.EvaluationRecord) {
	if b.metrics == nil {
		return
	}
	b.metrics.RecordCounter("evaluation_records_total", 1, map[string]string{
		"verdict": string(record.Verdict.Class),
	})
}
