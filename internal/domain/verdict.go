package domain

// VerdictClass is the coarse correctness classification assigned to one
// answer. The domain is closed: exactly the four values below.
type VerdictClass string

const (
	// VerdictCorrect means the answer's commands (if any) are topically
	// appropriate and safely sequenced, and every distinguishable
	// sub-question is addressed.
	VerdictCorrect VerdictClass = "CORRECT"

	// VerdictPartial means the answer addresses the topic but omits an
	// implied safety caveat, leaves placeholder tokens unresolved, or
	// fails to cover all parts of a multi-part question.
	VerdictPartial VerdictClass = "PARTIAL"

	// VerdictIncorrect means the answer is empty, off-topic, or instructs
	// commands against a subsystem unrelated to the question.
	VerdictIncorrect VerdictClass = "INCORRECT"

	// VerdictUnverifiable means the classifier could not establish enough
	// signal either way. It is a valid terminal state, not an error.
	VerdictUnverifiable VerdictClass = "UNVERIFIABLE"
)

// Valid reports whether the class is one of the four defined values.
func (c VerdictClass) Valid() bool {
	switch c {
	case VerdictCorrect, VerdictPartial, VerdictIncorrect, VerdictUnverifiable:
		return true
	}
	return false
}

// severity orders classes from most to least favorable. Merging verdicts
// keeps the more severe one so that disagreement resolves conservatively.
func (c VerdictClass) severity() int {
	switch c {
	case VerdictCorrect:
		return 0
	case VerdictUnverifiable:
		return 1
	case VerdictPartial:
		return 2
	case VerdictIncorrect:
		return 3
	}
	return 1
}

// Marker returns the report glyph used for this class in rendered output.
func (c VerdictClass) Marker() string {
	switch c {
	case VerdictCorrect:
		return "✅"
	case VerdictPartial:
		return "⚠️"
	case VerdictIncorrect:
		return "❌"
	default:
		return "❓"
	}
}

// Verdict is the classification outcome for one answer: the class plus a
// free-text rationale explaining how the decision table resolved.
type Verdict struct {
	// Class is the coarse correctness category.
	Class VerdictClass `json:"class"`

	// Rationale explains the classification in plain text. It is always
	// present; "insufficient signal" is the rationale for the default
	// UNVERIFIABLE outcome.
	Rationale string `json:"rationale"`
}

// MergeConservative combines two verdicts, keeping the more severe class.
// When a heuristic verdict and an LLM-judge verdict disagree, the policy is
// recall-biased: the less favorable classification wins and its rationale is
// kept. Equal severity keeps the receiver.
func (v Verdict) MergeConservative(other Verdict) Verdict {
	if other.Class.severity() > v.Class.severity() {
		return other
	}
	return v
}
