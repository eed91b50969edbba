package domain

// AnswerRecord is the output of one answer-generation oracle call.
// It is owned exclusively by the record builder for the duration of a
// single evaluation.
type AnswerRecord struct {
	// Text is the raw answer produced by the oracle.
	Text string `json:"text"`

	// LatencyMS is the oracle-reported wall-clock generation time in
	// milliseconds. Zero together with Unmeasured=true means no timing
	// information was available.
	LatencyMS int64 `json:"latency_ms"`

	// Unmeasured marks answers for which the oracle supplied no timing.
	// A missing timestamp pair is not an error; it is recorded as a flag.
	Unmeasured bool `json:"unmeasured,omitempty"`

	// Model identifies the model that produced the answer. It doubles as
	// the answer's provenance identifier.
	Model string `json:"model"`
}
