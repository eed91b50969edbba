package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/anna-assistant/annabench/internal/domain"
	"github.com/anna-assistant/annabench/internal/ports"
)

// Default judge configuration values.
const (
	DefaultJudgeMaxTokens     = 300
	DefaultJudgeTemperature   = 0.0
	DefaultJudgeMinConfidence = 0.5
)

// JudgeConfig defines the parameters of the secondary LLM-judge call.
type JudgeConfig struct {
	// Prompt is the Go template used to ask for a verdict. It should use
	// {{.Question}}, {{.Answer}}, and {{.Commands}} placeholders.
	Prompt string `yaml:"prompt" json:"prompt" validate:"required,min=20"`

	// Model optionally overrides the oracle's default model for judging.
	Model string `yaml:"model" json:"model"`

	// Temperature controls randomness; zero keeps verdicts repeatable.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0.0,max=1.0"`

	// MaxTokens bounds the judge's reasoning length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"required,min=50,max=2000"`

	// MinConfidence is the floor below which the judge's opinion is
	// discarded in favor of the heuristic verdict alone.
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence" validate:"min=0.0,max=1.0"`
}

// DefaultJudgeConfig returns a JudgeConfig with sensible defaults.
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		Prompt: "You are reviewing an assistant's answer to a Linux support question.\n\n" +
			"Question: {{.Question}}\n\nAnswer: {{.Answer}}\n\n" +
			"Extracted commands: {{.Commands}}\n\n" +
			"Classify the answer as CORRECT, PARTIAL, INCORRECT, or UNVERIFIABLE. " +
			"Prefer PARTIAL over CORRECT when in doubt.",
		Temperature:   DefaultJudgeTemperature,
		MaxTokens:     DefaultJudgeMaxTokens,
		MinConfidence: DefaultJudgeMinConfidence,
	}
}

// judgeResponse is the JSON structure the judge must answer with.
type judgeResponse struct {
	// Verdict is one of the four classification values.
	Verdict string `json:"verdict" validate:"required,oneof=CORRECT PARTIAL INCORRECT UNVERIFIABLE"`

	// Confidence indicates how certain the judge is (0.0-1.0).
	Confidence float64 `json:"confidence" validate:"min=0.0,max=1.0"`

	// Reasoning explains the classification.
	Reasoning string `json:"reasoning" validate:"required,min=10"`
}

// Judge performs the optional secondary LLM-judge call of the verdict
// classifier. Its opinion is advisory: callers merge it conservatively with
// the heuristic verdict, and any judge failure is absorbed rather than
// propagated, since classification ambiguity is not an error.
type Judge struct {
	client ports.JudgeClient
	config JudgeConfig
	tmpl   *template.Template
}

// NewJudge creates a judge backed by the given completion client.
func NewJudge(client ports.JudgeClient, config JudgeConfig) (*Judge, error) {
	if client == nil {
		return nil, ErrNilOracle
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	tmpl, err := template.New("judgePrompt").Parse(config.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse judge prompt template: %w", err)
	}
	return &Judge{client: client, config: config, tmpl: tmpl}, nil
}

// Review asks the judge model for a verdict on one question/answer pair.
// It returns an error when the judge could not produce a usable opinion;
// callers fall back to the heuristic verdict in that case.
func (j *Judge) Review(
	ctx context.Context,
	q domain.QuestionRecord,
	a domain.AnswerRecord,
	commands []domain.ExtractedCommand,
) (domain.Verdict, error) {
	cmdList := make([]string, len(commands))
	for i, c := range commands {
		cmdList[i] = c.Command
	}

	var buf bytes.Buffer
	data := struct {
		Question, Answer, Commands string
	}{
		Question: q.Text(),
		Answer:   a.Text,
		Commands: strings.Join(cmdList, "; "),
	}
	if err := j.tmpl.Execute(&buf, data); err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to execute judge prompt template: %w", err)
	}

	prompt := buf.String() +
		"\n\nRespond with valid JSON in exactly this format:\n" +
		`{"verdict": "<CORRECT|PARTIAL|INCORRECT|UNVERIFIABLE>", "confidence": <0.0-1.0>, "reasoning": "<explanation>"}`

	temp := j.config.Temperature
	text, err := j.client.Complete(ctx, prompt, domain.GenerationConfig{
		Model:       j.config.Model,
		Temperature: &temp,
		MaxTokens:   j.config.MaxTokens,
	})
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("judge call failed: %w", err)
	}

	return j.parseResponse(text)
}

// parseResponse extracts and validates the judge's JSON verdict.
func (j *Judge) parseResponse(text string) (domain.Verdict, error) {
	raw := extractJSON(text)
	if raw == "" {
		return domain.Verdict{}, ErrNoJSON
	}

	var resp judgeResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to parse judge response: %w", err)
	}
	if err := validate.Struct(resp); err != nil {
		return domain.Verdict{}, fmt.Errorf("invalid judge response: %w", err)
	}
	if resp.Confidence < j.config.MinConfidence {
		return domain.Verdict{}, fmt.Errorf(
			"judge confidence %.2f below minimum %.2f", resp.Confidence, j.config.MinConfidence)
	}

	return domain.Verdict{
		Class:     domain.VerdictClass(resp.Verdict),
		Rationale: resp.Reasoning,
	}, nil
}

// extractJSON pulls the first complete JSON object out of a response that
// may wrap it in markdown fences or surrounding prose. It tracks string
// boundaries and escapes so braces inside reasoning text do not confuse
// the match.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if i := strings.Index(response, "```json"); i != -1 {
		rest := response[i+7:]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexByte(response, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		ch := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return ""
}
