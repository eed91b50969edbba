package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-assistant/annabench/infrastructure/eval"
	"github.com/anna-assistant/annabench/internal/domain"
)

// fakeJudgeClient feeds the eval.Judge a canned completion.
type fakeJudgeClient struct {
	response string
	err      error
}

func (f *fakeJudgeClient) Complete(ctx context.Context, prompt string, cfg domain.GenerationConfig) (string, error) {
	return f.response, f.err
}

func TestRecordBuilderBuild(t *testing.T) {
	builder, err := NewRecordBuilder(eval.DefaultClassifierConfig())
	require.NoError(t, err)

	q := domain.QuestionRecord{
		ID:    "q-1",
		Title: "How do I enable sshd on boot?",
		Body:  "I want the sshd service to start automatically.",
	}
	a := domain.AnswerRecord{
		Text:      "Enable the service so it starts on boot: `sudo systemctl enable --now sshd`. The sshd service will start automatically.",
		LatencyMS: 310,
		Model:     "gpt-4o",
	}

	record, err := builder.Build(context.Background(), q, a)
	require.NoError(t, err)

	assert.Equal(t, "q-1", record.Question.ID)
	assert.Equal(t, domain.VerdictCorrect, record.Verdict.Class)
	assert.True(t, record.ContainsCommands())
	require.Len(t, record.Commands, 1)
	assert.Equal(t, "sudo systemctl enable --now sshd", record.Commands[0].Command)
	assert.Equal(t, int64(310), record.LatencyMS)
	assert.Greater(t, record.WordCount, 0)
}

func TestRecordBuilderBuildProvenanceError(t *testing.T) {
	builder, err := NewRecordBuilder(eval.DefaultClassifierConfig())
	require.NoError(t, err)

	_, err = builder.Build(context.Background(),
		domain.QuestionRecord{Title: "no id"},
		domain.AnswerRecord{Text: "answer", Model: "m"})

	var provErr *domain.ProvenanceError
	require.ErrorAs(t, err, &provErr)
}

func TestRecordBuilderJudgeMergesConservatively(t *testing.T) {
	judgeClient := &fakeJudgeClient{
		response: `{"verdict": "PARTIAL", "confidence": 0.9, "reasoning": "answer skips a required caveat"}`,
	}
	judge, err := eval.NewJudge(judgeClient, eval.DefaultJudgeConfig())
	require.NoError(t, err)

	builder, err := NewRecordBuilder(eval.DefaultClassifierConfig(), WithJudge(judge))
	require.NoError(t, err)

	q := domain.QuestionRecord{
		ID:    "q-1",
		Title: "How do I enable sshd on boot?",
		Body:  "I want the sshd service to start automatically.",
	}
	a := domain.AnswerRecord{
		Text:  "Enable the service so it starts on boot: `sudo systemctl enable --now sshd`. The sshd service will start automatically.",
		Model: "gpt-4o",
	}

	record, err := builder.Build(context.Background(), q, a)
	require.NoError(t, err)

	// Heuristic says CORRECT; the judge's PARTIAL is more severe and wins.
	assert.Equal(t, domain.VerdictPartial, record.Verdict.Class)
	assert.Equal(t, "answer skips a required caveat", record.Verdict.Rationale)
}

func TestRecordBuilderJudgeFailureAbsorbed(t *testing.T) {
	judgeClient := &fakeJudgeClient{err: errors.New("judge provider down")}
	judge, err := eval.NewJudge(judgeClient, eval.DefaultJudgeConfig())
	require.NoError(t, err)

	builder, err := NewRecordBuilder(eval.DefaultClassifierConfig(), WithJudge(judge))
	require.NoError(t, err)

	q := domain.QuestionRecord{
		ID:    "q-1",
		Title: "How do I enable sshd on boot?",
		Body:  "I want the sshd service to start automatically.",
	}
	a := domain.AnswerRecord{
		Text:  "Enable the service so it starts on boot: `sudo systemctl enable --now sshd`. The sshd service will start automatically.",
		Model: "gpt-4o",
	}

	record, err := builder.Build(context.Background(), q, a)
	require.NoError(t, err, "a broken judge must not fail the record")
	assert.Equal(t, domain.VerdictCorrect, record.Verdict.Class)
}

func TestRecordBuilderBuildUnverifiable(t *testing.T) {
	builder, err := NewRecordBuilder(eval.DefaultClassifierConfig())
	require.NoError(t, err)

	oracleErr := &domain.OracleError{QuestionID: "q-7", Err: errors.New("rate limit exceeded")}
	record, err := builder.BuildUnverifiable(domain.QuestionRecord{ID: "q-7", Title: "t"}, "gpt-4o", oracleErr)
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictUnverifiable, record.Verdict.Class)
	assert.Contains(t, record.Verdict.Rationale, "rate limit exceeded")
	assert.True(t, record.Answer.Unmeasured)
	assert.Zero(t, record.WordCount)
	assert.Empty(t, record.Commands)
	assert.Equal(t, "gpt-4o", record.Answer.Model)
}
