// Package corpus loads benchmark question corpora from YAML files.
package corpus

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anna-assistant/annabench/internal/domain"
	"github.com/anna-assistant/annabench/internal/ports"
)

var validate = validator.New()

// corpusFile is the on-disk YAML schema. Field names are strict: unknown
// keys fail decoding so vocabulary drift in hand-edited corpora surfaces
// immediately instead of silently dropping data.
type corpusFile struct {
	// Name identifies the corpus in reports.
	Name string `yaml:"name"`
	// Description is optional free text about corpus provenance.
	Description string `yaml:"description"`
	// Questions is the ordered question list.
	Questions []questionEntry `yaml:"questions" validate:"required,min=1,dive"`
}

type questionEntry struct {
	ID       string `yaml:"id" validate:"required"`
	Title    string `yaml:"title" validate:"required"`
	Body     string `yaml:"body"`
	URL      string `yaml:"url" validate:"omitempty,url"`
	Upvotes  int    `yaml:"upvotes" validate:"gte=0"`
	Comments int    `yaml:"comments" validate:"gte=0"`
}

// YAMLSource reads question records from a YAML corpus file. It implements
// ports.CorpusSource.
type YAMLSource struct {
	path string
}

var _ ports.CorpusSource = (*YAMLSource)(nil)

// NewYAMLSource creates a corpus source backed by the YAML file at path.
// The file is read lazily on the first Questions call.
func NewYAMLSource(path string) *YAMLSource {
	return &YAMLSource{path: path}
}

// Questions loads, validates, and returns the corpus in file order.
// An empty or missing question list returns domain.ErrEmptyCorpus.
func (s *YAMLSource) Questions(ctx context.Context) ([]domain.QuestionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", s.path, err)
	}
	defer f.Close()

	var file corpusFile
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s: %w", s.path, err)
	}

	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("%s: %w", s.path, domain.ErrEmptyCorpus)
	}

	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid corpus %s: %w", s.path, err)
	}

	questions := make([]domain.QuestionRecord, len(file.Questions))
	seen := make(map[string]struct{}, len(file.Questions))
	for i, q := range file.Questions {
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("invalid corpus %s: duplicate question id %q", s.path, q.ID)
		}
		seen[q.ID] = struct{}{}

		questions[i] = domain.QuestionRecord{
			ID:       q.ID,
			Title:    q.Title,
			Body:     q.Body,
			URL:      q.URL,
			Upvotes:  q.Upvotes,
			Comments: q.Comments,
		}
	}

	return questions, nil
}
