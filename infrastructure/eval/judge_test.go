package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-assistant/annabench/internal/domain"
)

// fakeJudgeClient returns a canned response, or an error, and records the
// prompt it was asked.
type fakeJudgeClient struct {
	response string
	err      error
	prompt   string
}

func (f *fakeJudgeClient) Complete(ctx context.Context, prompt string, cfg domain.GenerationConfig) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func TestNewJudgeValidatesConfig(t *testing.T) {
	client := &fakeJudgeClient{}

	_, err := NewJudge(client, JudgeConfig{Prompt: "too short", MaxTokens: 300})
	require.Error(t, err)

	_, err = NewJudge(client, DefaultJudgeConfig())
	require.NoError(t, err)

	_, err = NewJudge(nil, DefaultJudgeConfig())
	require.ErrorIs(t, err, ErrNilOracle)
}

func TestJudgeReviewParsesVerdict(t *testing.T) {
	client := &fakeJudgeClient{
		response: `{"verdict": "PARTIAL", "confidence": 0.9, "reasoning": "missing a safety caveat"}`,
	}
	judge, err := NewJudge(client, DefaultJudgeConfig())
	require.NoError(t, err)

	q := domain.QuestionRecord{ID: "q-1", Title: "How do I clean the pacman cache?"}
	a := domain.AnswerRecord{Text: "Run `sudo pacman -Scc`.", Model: "m"}
	commands := []domain.ExtractedCommand{{Command: "sudo pacman -Scc"}}

	verdict, err := judge.Review(context.Background(), q, a, commands)
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictPartial, verdict.Class)
	assert.Equal(t, "missing a safety caveat", verdict.Rationale)
	assert.Contains(t, client.prompt, "How do I clean the pacman cache?")
	assert.Contains(t, client.prompt, "sudo pacman -Scc")
	assert.Contains(t, client.prompt, "valid JSON")
}

func TestJudgeReviewMarkdownWrappedJSON(t *testing.T) {
	client := &fakeJudgeClient{
		response: "Here is my assessment:\n```json\n" +
			`{"verdict": "CORRECT", "confidence": 0.8, "reasoning": "commands match the question"}` +
			"\n```\nLet me know if you need more.",
	}
	judge, err := NewJudge(client, DefaultJudgeConfig())
	require.NoError(t, err)

	verdict, err := judge.Review(context.Background(),
		domain.QuestionRecord{ID: "q-1", Title: "t"},
		domain.AnswerRecord{Text: "a", Model: "m"}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictCorrect, verdict.Class)
}

func TestJudgeReviewLowConfidenceRejected(t *testing.T) {
	client := &fakeJudgeClient{
		response: `{"verdict": "CORRECT", "confidence": 0.2, "reasoning": "not really sure here"}`,
	}
	judge, err := NewJudge(client, DefaultJudgeConfig())
	require.NoError(t, err)

	_, err = judge.Review(context.Background(),
		domain.QuestionRecord{ID: "q-1", Title: "t"},
		domain.AnswerRecord{Text: "a", Model: "m"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence")
}

func TestJudgeReviewMalformedResponses(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"no json at all", "I think the answer looks fine."},
		{"invalid verdict value", `{"verdict": "MAYBE", "confidence": 0.9, "reasoning": "cannot decide here"}`},
		{"reasoning too short", `{"verdict": "CORRECT", "confidence": 0.9, "reasoning": "ok"}`},
		{"truncated json", `{"verdict": "CORRECT", "confidence":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeJudgeClient{response: tt.response}
			judge, err := NewJudge(client, DefaultJudgeConfig())
			require.NoError(t, err)

			_, err = judge.Review(context.Background(),
				domain.QuestionRecord{ID: "q-1", Title: "t"},
				domain.AnswerRecord{Text: "a", Model: "m"}, nil)
			assert.Error(t, err)
		})
	}
}

func TestJudgeReviewClientError(t *testing.T) {
	wantErr := errors.New("provider unavailable")
	client := &fakeJudgeClient{err: wantErr}
	judge, err := NewJudge(client, DefaultJudgeConfig())
	require.NoError(t, err)

	_, err = judge.Review(context.Background(),
		domain.QuestionRecord{ID: "q-1", Title: "t"},
		domain.AnswerRecord{Text: "a", Model: "m"}, nil)
	require.ErrorIs(t, err, wantErr)
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	raw := extractJSON(`prefix {"verdict": "CORRECT", "confidence": 0.9, "reasoning": "use {braces} safely"} suffix`)
	assert.Contains(t, raw, `"use {braces} safely"`)
	assert.True(t, raw[0] == '{' && raw[len(raw)-1] == '}')
}
