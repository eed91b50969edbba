package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvaluationRecord(t *testing.T) {
	question := QuestionRecord{ID: "q-1", Title: "How do I clean the pacman cache?"}
	answer := AnswerRecord{Text: "Run `sudo pacman -Sc`.", LatencyMS: 420, Model: "gpt-4o"}
	verdict := Verdict{Class: VerdictCorrect, Rationale: "on topic"}

	record, err := NewEvaluationRecord(question, answer, 4, nil, verdict)
	require.NoError(t, err)

	assert.Equal(t, question, record.Question)
	assert.Equal(t, answer, record.Answer)
	assert.Equal(t, 4, record.WordCount)
	assert.Equal(t, int64(420), record.LatencyMS)
	assert.NotNil(t, record.Commands, "commands must never be nil")
	assert.Empty(t, record.Commands)
	assert.False(t, record.ContainsCommands())
	assert.False(t, record.Timestamp.IsZero())
}

func TestNewEvaluationRecordMissingQuestionID(t *testing.T) {
	answer := AnswerRecord{Text: "ok", Model: "gpt-4o"}

	_, err := NewEvaluationRecord(QuestionRecord{Title: "no id"}, answer, 1, nil, Verdict{Class: VerdictCorrect, Rationale: "r"})
	require.Error(t, err)

	var provErr *ProvenanceError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "question.id", provErr.Field)
}

func TestNewEvaluationRecordMissingModel(t *testing.T) {
	question := QuestionRecord{ID: "q-1"}

	_, err := NewEvaluationRecord(question, AnswerRecord{Text: "ok"}, 1, nil, Verdict{Class: VerdictCorrect, Rationale: "r"})
	require.Error(t, err)

	var provErr *ProvenanceError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "answer.model", provErr.Field)
}

func TestNewEvaluationRecordInvalidVerdictDefaults(t *testing.T) {
	question := QuestionRecord{ID: "q-1"}
	answer := AnswerRecord{Text: "ok", Model: "gpt-4o"}

	record, err := NewEvaluationRecord(question, answer, 1, nil, Verdict{Class: "BOGUS"})
	require.NoError(t, err)

	assert.Equal(t, VerdictUnverifiable, record.Verdict.Class)
	assert.Equal(t, "insufficient signal", record.Verdict.Rationale)
}

func TestContainsCommands(t *testing.T) {
	question := QuestionRecord{ID: "q-1"}
	answer := AnswerRecord{Text: "ok", Model: "gpt-4o"}
	commands := []ExtractedCommand{{Command: "pacman -Syu", Confidence: ConfidenceInlineCode}}

	record, err := NewEvaluationRecord(question, answer, 1, commands, Verdict{Class: VerdictCorrect, Rationale: "r"})
	require.NoError(t, err)
	assert.True(t, record.ContainsCommands())
}

func TestOracleErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &OracleError{QuestionID: "q-9", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "q-9")
}

func TestQuestionText(t *testing.T) {
	tests := []struct {
		name     string
		question QuestionRecord
		want     string
	}{
		{"title and body", QuestionRecord{Title: "t", Body: "b"}, "t\n\nb"},
		{"title only", QuestionRecord{Title: "t"}, "t"},
		{"body only", QuestionRecord{Body: "b"}, "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.question.Text())
		})
	}
}
