// Package ports defines the interfaces that separate the evaluation core
// from its external collaborators: the answer-generation oracle, the corpus
// source, the report sink, and the metrics backend. These interfaces enable
// dependency inversion and make the engine testable without live services.
package ports

import (
	"context"
	"time"

	"github.com/anna-assistant/annabench/internal/domain"
)

// Oracle is the external answer-generation collaborator. Implementations
// query a language model with the question text and report the generated
// answer together with the measured wall-clock latency.
// The oracle call is the sole blocking operation in an evaluation; all
// other components are CPU-bound and synchronous.
type Oracle interface {
	// Generate produces an answer for the question using the supplied
	// generation options. Implementations measure latency themselves and
	// return it on the AnswerRecord. Failures surface as an error; the
	// caller decides whether the failure is fatal or downgrades the
	// record.
	Generate(ctx context.Context, q domain.QuestionRecord, cfg domain.GenerationConfig) (domain.AnswerRecord, error)

	// Model returns the identifier of the model this oracle queries by
	// default, used for provenance when the config leaves Model empty.
	Model() string
}

// JudgeClient is the minimal completion surface the secondary LLM judge
// needs: a raw prompt in, generated text out. The oracle client implements
// it alongside Oracle.
type JudgeClient interface {
	// Complete sends a prompt and returns the generated text.
	Complete(ctx context.Context, prompt string, cfg domain.GenerationConfig) (string, error)
}

// CorpusSource supplies the ordered sequence of questions to evaluate.
// The engine only consumes the corpus; it never mutates or persists it.
type CorpusSource interface {
	// Questions returns all corpus entries in their defined order.
	Questions(ctx context.Context) ([]domain.QuestionRecord, error)
}

// ReportSink consumes the finished evaluation records and renders them.
// The engine's only obligation is to deliver records in a stable shape;
// sinks may reorder for presentation.
type ReportSink interface {
	// Write renders the records. Records arrive in corpus order.
	Write(ctx context.Context, records []domain.EvaluationRecord) error
}

// MetricsCollector abstracts the operational metrics backend so the
// evaluation path does not depend on a concrete monitoring system.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
