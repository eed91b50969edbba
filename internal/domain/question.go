// Package domain contains pure, dependency-free records and types for the
// answer evaluation engine.
package domain

// QuestionRecord is one entry of the input corpus: a real-world question
// scraped from a community forum. Records are created once per corpus entry
// and never mutated.
type QuestionRecord struct {
	// ID uniquely identifies this question within the corpus.
	// A record without an ID cannot be reported and fails provenance checks.
	ID string `json:"id" yaml:"id"`

	// Title is the short headline of the question.
	Title string `json:"title" yaml:"title"`

	// Body is the full question text as written by the asker.
	Body string `json:"body" yaml:"body"`

	// URL points back to the source thread.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Upvotes is the popularity score of the thread at scrape time.
	Upvotes int `json:"upvotes" yaml:"upvotes"`

	// Comments is the number of comments on the thread at scrape time.
	Comments int `json:"comments" yaml:"comments"`
}

// Text returns the title and body joined for prompt construction and
// lexical analysis. The title is included because askers frequently put
// the actual question there and leave the body as context.
func (q QuestionRecord) Text() string {
	if q.Body == "" {
		return q.Title
	}
	if q.Title == "" {
		return q.Body
	}
	return q.Title + "\n\n" + q.Body
}

// GenerationConfig carries the recognized options for the answer-generation
// oracle. Unset fields fall back to provider defaults.
type GenerationConfig struct {
	// Model is the identifier of the language model to query.
	Model string `json:"model" yaml:"model"`

	// Temperature controls randomness of the generated answer.
	// A nil value uses the provider default.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// MaxTokens limits the length of the generated answer.
	// Zero uses the provider default.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}
