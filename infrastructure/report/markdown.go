// Package report renders finished evaluation records into human-readable
// benchmark reports.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/anna-assistant/annabench/internal/domain"
	"github.com/anna-assistant/annabench/internal/ports"
)

// MarkdownSink renders evaluation records as a Markdown report: a summary
// table of verdict distribution and aggregate metrics, followed by one
// section per question in corpus order. It implements ports.ReportSink.
type MarkdownSink struct {
	w     io.Writer
	title string
	now   func() time.Time
}

var _ ports.ReportSink = (*MarkdownSink)(nil)

// Option configures a MarkdownSink.
type Option func(*MarkdownSink)

// WithTitle overrides the default report title.
func WithTitle(title string) Option {
	return func(s *MarkdownSink) { s.title = title }
}

// WithClock overrides the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *MarkdownSink) { s.now = now }
}

// NewMarkdownSink creates a sink writing to w.
func NewMarkdownSink(w io.Writer, opts ...Option) *MarkdownSink {
	s := &MarkdownSink{
		w:     w,
		title: "Answer Evaluation Report",
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write renders the full report. Records are rendered in the order given,
// which the batch runner guarantees is corpus order.
func (s *MarkdownSink) Write(ctx context.Context, records []domain.EvaluationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", s.title)
	fmt.Fprintf(&b, "Generated: %s\n\n", s.now().UTC().Format(time.RFC3339))

	s.writeSummary(&b, records)

	for i, rec := range records {
		s.writeRecord(&b, i+1, rec)
	}

	_, err := io.WriteString(s.w, b.String())
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (s *MarkdownSink) writeSummary(b *strings.Builder, records []domain.EvaluationRecord) {
	counts := map[domain.VerdictClass]int{}
	var totalWords int
	var totalLatency int64
	var measured int
	var withCommands int

	for _, rec := range records {
		counts[rec.Verdict.Class]++
		totalWords += rec.WordCount
		if !rec.Answer.Unmeasured {
			totalLatency += rec.LatencyMS
			measured++
		}
		if rec.ContainsCommands() {
			withCommands++
		}
	}

	fmt.Fprintf(b, "## Summary\n\n")
	fmt.Fprintf(b, "Questions evaluated: %d\n\n", len(records))

	b.WriteString("| Verdict | Count |\n|---|---|\n")
	for _, class := range []domain.VerdictClass{
		domain.VerdictCorrect,
		domain.VerdictPartial,
		domain.VerdictIncorrect,
		domain.VerdictUnverifiable,
	} {
		fmt.Fprintf(b, "| %s %s | %d |\n", class.Marker(), class, counts[class])
	}
	b.WriteString("\n")

	if len(records) > 0 {
		fmt.Fprintf(b, "- Average answer length: %d words\n", totalWords/len(records))
		if measured > 0 {
			fmt.Fprintf(b, "- Average generation latency: %d ms (%d measured)\n",
				totalLatency/int64(measured), measured)
		}
		fmt.Fprintf(b, "- Answers containing commands: %d/%d\n", withCommands, len(records))
	}
	b.WriteString("\n")
}

func (s *MarkdownSink) writeRecord(b *strings.Builder, n int, rec domain.EvaluationRecord) {
	fmt.Fprintf(b, "## %d. %s %s\n\n", n, rec.Verdict.Class.Marker(), rec.Question.Title)

	fmt.Fprintf(b, "- Question ID: `%s`\n", rec.Question.ID)
	if rec.Question.URL != "" {
		fmt.Fprintf(b, "- Source: <%s>\n", rec.Question.URL)
	}
	fmt.Fprintf(b, "- Model: `%s`\n", rec.Answer.Model)
	fmt.Fprintf(b, "- Verdict: %s\n", rec.Verdict.Class)
	fmt.Fprintf(b, "- Rationale: %s\n", rec.Verdict.Rationale)
	fmt.Fprintf(b, "- Word count: %d\n", rec.WordCount)

	if rec.Answer.Unmeasured {
		b.WriteString("- Latency: unmeasured\n")
	} else {
		fmt.Fprintf(b, "- Latency: %d ms\n", rec.LatencyMS)
	}

	fmt.Fprintf(b, "- Contains commands: %t\n", rec.ContainsCommands())

	if len(rec.Commands) > 0 {
		b.WriteString("\nExtracted commands:\n\n")
		for _, cmd := range rec.Commands {
			fmt.Fprintf(b, "- `%s` (%s)\n", cmd.Command, cmd.Confidence)
		}
	}

	b.WriteString("\n")
}
