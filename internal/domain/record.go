package domain

import "time"

// EvaluationRecord aggregates everything measured about one question/answer
// pair. It is created by the record builder, immutable after construction,
// and consumed only by report sinks.
//
// Invariants: exactly one QuestionRecord and one AnswerRecord per record;
// Commands and Verdict are always present (an empty slice and UNVERIFIABLE
// are valid values, never nil/absent).
type EvaluationRecord struct {
	// Question is the corpus entry that was evaluated.
	Question QuestionRecord `json:"question"`

	// Answer is the oracle output for the question.
	Answer AnswerRecord `json:"answer"`

	// WordCount is the number of word units in the answer text, counting
	// code-line tokens one unit apiece.
	WordCount int `json:"word_count"`

	// LatencyMS mirrors the oracle-reported generation latency.
	LatencyMS int64 `json:"latency_ms"`

	// Commands lists the shell commands extracted from the answer in
	// order of appearance, deduplicated by normalized form.
	Commands []ExtractedCommand `json:"commands"`

	// Verdict is the correctness classification for the answer.
	Verdict Verdict `json:"verdict"`

	// Timestamp records when this record was built.
	Timestamp time.Time `json:"timestamp"`
}

// ContainsCommands reports whether any executable instructions were
// extracted from the answer. This drives the report's contains-commands
// flag; plain-prose mentions of tool names never set it.
func (r EvaluationRecord) ContainsCommands() bool { return len(r.Commands) > 0 }

// NewEvaluationRecord assembles a record and enforces the provenance
// invariant: both the question and the answer must carry an identifier,
// since a record without provenance cannot be reported. This is the one
// fatal condition in the evaluation path.
func NewEvaluationRecord(
	q QuestionRecord,
	a AnswerRecord,
	wordCount int,
	commands []ExtractedCommand,
	verdict Verdict,
) (EvaluationRecord, error) {
	if q.ID == "" {
		return EvaluationRecord{}, &ProvenanceError{Field: "question.id"}
	}
	if a.Model == "" {
		return EvaluationRecord{}, &ProvenanceError{Field: "answer.model"}
	}
	if commands == nil {
		commands = []ExtractedCommand{}
	}
	if !verdict.Class.Valid() {
		verdict = Verdict{Class: VerdictUnverifiable, Rationale: "insufficient signal"}
	}
	return EvaluationRecord{
		Question:  q,
		Answer:    a,
		WordCount: wordCount,
		LatencyMS: a.LatencyMS,
		Commands:  commands,
		Verdict:   verdict,
		Timestamp: time.Now().UTC(),
	}, nil
}
