package application

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anna-assistant/annabench/internal/domain"
)

var validate = validator.New()

// Duration wraps time.Duration so config files can use human-readable
// forms like "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML parses either a duration string or integer nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var ns int64
	if err := node.Decode(&ns); err == nil {
		*d = Duration(ns)
		return nil
	}
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level benchmark configuration, loaded from YAML.
// Unknown keys fail decoding.
type Config struct {
	// Oracle configures answer generation.
	Oracle OracleConfig `yaml:"oracle" validate:"required"`

	// Judge configures the optional secondary LLM review.
	Judge JudgeConfig `yaml:"judge"`

	// Classifier tunes the heuristic verdict thresholds.
	Classifier ClassifierConfig `yaml:"classifier"`

	// CorpusPath locates the YAML question corpus.
	CorpusPath string `yaml:"corpus_path" validate:"required"`

	// ReportPath is where the Markdown report is written. Empty writes
	// to stdout.
	ReportPath string `yaml:"report_path"`

	// Concurrency bounds parallel oracle calls; zero uses the default.
	Concurrency int `yaml:"concurrency" validate:"gte=0,lte=64"`
}

// OracleConfig selects and tunes the answer-generation provider.
type OracleConfig struct {
	// Provider chooses the backing API.
	Provider string `yaml:"provider" validate:"required,oneof=openai anthropic google"`

	// Model is the model identifier to benchmark.
	Model string `yaml:"model" validate:"required"`

	// APIKeyEnv names the environment variable holding the API key.
	// Keys never appear in config files.
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`

	// BaseURL overrides the provider endpoint when non-empty.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	// SystemPrompt frames the assistant persona for every question.
	SystemPrompt string `yaml:"system_prompt"`

	// Temperature controls sampling randomness; nil uses the provider
	// default.
	Temperature *float64 `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`

	// MaxTokens limits answer length; zero uses the provider default.
	MaxTokens int `yaml:"max_tokens" validate:"gte=0"`

	// Timeout bounds each request; zero disables the client timeout.
	Timeout Duration `yaml:"timeout" validate:"gte=0"`

	// RequestsPerSecond paces oracle calls; zero disables rate limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`

	// Burst is the rate limiter burst allowance.
	Burst int `yaml:"burst" validate:"gte=0"`

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// JudgeConfig enables and tunes the secondary LLM judge.
type JudgeConfig struct {
	// Enabled turns the judge on. Off by default: the heuristic
	// classifier alone is deterministic and free.
	Enabled bool `yaml:"enabled"`

	// Model is the judge model; empty reuses the oracle model.
	Model string `yaml:"model"`

	// MinConfidence discards judge verdicts below this self-reported
	// confidence; zero uses the default threshold.
	MinConfidence float64 `yaml:"min_confidence" validate:"gte=0,lte=1"`
}

// ClassifierConfig tunes the heuristic decision table.
type ClassifierConfig struct {
	// MinTopicOverlap is the key-term overlap ratio below which an
	// answer is off-topic; zero uses the default.
	MinTopicOverlap float64 `yaml:"min_topic_overlap" validate:"gte=0,lte=1"`

	// FuzzyThreshold is the similarity ratio for fuzzy term matching;
	// zero uses the default.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" validate:"gte=0,lte=1"`
}

// LoadConfig reads and validates a configuration file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}

	return &cfg, nil
}

// APIKey resolves the provider API key from the configured environment
// variable.
func (c OracleConfig) APIKey() (string, error) {
	key := os.Getenv(c.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", domain.ErrInvalidConfiguration, c.APIKeyEnv)
	}
	return key, nil
}

// GenerationConfig maps the oracle settings onto per-request generation
// options.
func (c OracleConfig) GenerationConfig() domain.GenerationConfig {
	return domain.GenerationConfig{
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
}
