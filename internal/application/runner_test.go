package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-assistant/annabench/infrastructure/eval"
	"github.com/anna-assistant/annabench/internal/domain"
)

// fakeOracle answers every question with a templated text and fails the
// question IDs listed in failIDs. It tracks peak concurrency.
type fakeOracle struct {
	failIDs map[string]struct{}

	mu       sync.Mutex
	inFlight int32
	peak     int32
}

func (f *fakeOracle) Generate(ctx context.Context, q domain.QuestionRecord, cfg domain.GenerationConfig) (domain.AnswerRecord, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)

	f.mu.Lock()
	if current > f.peak {
		f.peak = current
	}
	f.mu.Unlock()

	if _, fail := f.failIDs[q.ID]; fail {
		return domain.AnswerRecord{}, &domain.OracleError{QuestionID: q.ID, Err: errors.New("provider error")}
	}

	return domain.AnswerRecord{
		Text:      "Answer about " + q.Title,
		LatencyMS: 100,
		Model:     "fake-model",
	}, nil
}

func (f *fakeOracle) Model() string { return "fake-model" }

func testQuestions(n int) []domain.QuestionRecord {
	questions := make([]domain.QuestionRecord, n)
	for i := range questions {
		questions[i] = domain.QuestionRecord{
			ID:    fmt.Sprintf("q-%d", i),
			Title: fmt.Sprintf("pacman update question number %d", i),
			Body:  "How do I update my packages with pacman?",
		}
	}
	return questions
}

func newTestRunner(t *testing.T, oracle *fakeOracle, opts ...RunnerOption) *BatchRunner {
	t.Helper()
	builder, err := NewRecordBuilder(eval.DefaultClassifierConfig())
	require.NoError(t, err)
	runner, err := NewBatchRunner(oracle, builder, opts...)
	require.NoError(t, err)
	return runner
}

func TestBatchRunnerOneRecordPerQuestion(t *testing.T) {
	oracle := &fakeOracle{}
	runner := newTestRunner(t, oracle)

	questions := testQuestions(12)
	records, err := runner.Run(context.Background(), questions, domain.GenerationConfig{Model: "fake-model"})
	require.NoError(t, err)

	require.Len(t, records, len(questions))
	for i, rec := range records {
		assert.Equal(t, questions[i].ID, rec.Question.ID, "records must keep corpus order")
	}
}

func TestBatchRunnerOracleFailureDowngradesRecord(t *testing.T) {
	oracle := &fakeOracle{failIDs: map[string]struct{}{"q-2": {}, "q-5": {}}}
	runner := newTestRunner(t, oracle)

	questions := testQuestions(8)
	records, err := runner.Run(context.Background(), questions, domain.GenerationConfig{Model: "fake-model"})
	require.NoError(t, err, "oracle failures must not surface as batch errors")
	require.Len(t, records, len(questions), "failed questions still produce records")

	for i, rec := range records {
		switch rec.Question.ID {
		case "q-2", "q-5":
			assert.Equal(t, domain.VerdictUnverifiable, rec.Verdict.Class)
			assert.Contains(t, rec.Verdict.Rationale, "generation failed")
			assert.True(t, rec.Answer.Unmeasured)
		default:
			assert.NotEqual(t, domain.VerdictUnverifiable, rec.Verdict.Class, "question %d", i)
		}
	}
}

func TestBatchRunnerConcurrencyBound(t *testing.T) {
	oracle := &fakeOracle{}
	runner := newTestRunner(t, oracle, WithConcurrency(3))

	_, err := runner.Run(context.Background(), testQuestions(20), domain.GenerationConfig{Model: "fake-model"})
	require.NoError(t, err)

	assert.LessOrEqual(t, oracle.peak, int32(3))
}

func TestBatchRunnerEmptyCorpus(t *testing.T) {
	runner := newTestRunner(t, &fakeOracle{})

	_, err := runner.Run(context.Background(), nil, domain.GenerationConfig{})
	assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
}

func TestBatchRunnerSkipsProvenanceFailures(t *testing.T) {
	oracle := &fakeOracle{}
	runner := newTestRunner(t, oracle)

	questions := testQuestions(4)
	questions[2].ID = "" // breaks provenance for this record only

	records, err := runner.Run(context.Background(), questions, domain.GenerationConfig{Model: "fake-model"})
	require.Error(t, err, "skipped records are reported")

	var provErr *domain.ProvenanceError
	assert.ErrorAs(t, err, &provErr)

	require.Len(t, records, 3, "the rest of the batch survives")
	assert.Equal(t, "q-0", records[0].Question.ID)
	assert.Equal(t, "q-1", records[1].Question.ID)
	assert.Equal(t, "q-3", records[2].Question.ID)
}

func TestNewBatchRunnerValidation(t *testing.T) {
	builder, err := NewRecordBuilder(eval.DefaultClassifierConfig())
	require.NoError(t, err)

	_, err = NewBatchRunner(nil, builder)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = NewBatchRunner(&fakeOracle{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}
