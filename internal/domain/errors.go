package domain

import (
	"errors"
	"fmt"
)

// Common domain errors for evaluation operations.
var (
	// ErrEmptyCorpus indicates that a corpus source yielded no questions.
	ErrEmptyCorpus = errors.New("corpus contains no questions")

	// ErrInvalidConfiguration indicates invalid or incomplete configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ProvenanceError reports a record that lacks a required identifier.
// It is the only fatal condition per record: a record without provenance
// cannot be reported. It aborts the affected record, never the batch.
type ProvenanceError struct {
	// Field names the missing identifier, e.g. "question.id".
	Field string
}

// Error implements the error interface for ProvenanceError.
func (e *ProvenanceError) Error() string {
	return fmt.Sprintf("provenance error: missing required identifier %s", e.Field)
}

// OracleError wraps a failed answer-generation call. It is recoverable:
// the affected record is downgraded to UNVERIFIABLE with the error recorded
// as rationale, and evaluation of the remaining corpus continues.
type OracleError struct {
	// QuestionID identifies the question whose generation failed.
	QuestionID string

	// Err is the underlying provider error.
	Err error
}

// Error implements the error interface for OracleError.
func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle error for question %s: %v", e.QuestionID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As inspection.
func (e *OracleError) Unwrap() error { return e.Err }
