package domain

// CommandConfidence tags how an extracted command was recognized in the
// answer text. The tag records which extraction pattern matched, which is
// useful both for report rendering and for auditing extraction precision.
type CommandConfidence string

const (
	// ConfidenceShellPrompt marks lines prefixed with a shell prompt or a
	// privilege-escalation prefix followed by a recognized executable.
	ConfidenceShellPrompt CommandConfidence = "shell-prompt-prefixed"

	// ConfidenceInlineCode marks commands found inside inline backtick
	// spans that contain a recognized executable token.
	ConfidenceInlineCode CommandConfidence = "inline-code"

	// ConfidenceFencedCode marks commands found inside fenced code blocks.
	ConfidenceFencedCode CommandConfidence = "fenced-code"

	// ConfidencePipeline marks lines recognized by pipe or command
	// substitution syntax around a known executable.
	ConfidencePipeline CommandConfidence = "pipeline"
)

// ExtractedCommand is a substring of an answer identified as an instruction
// intended for execution in a shell. A list of zero or more is produced per
// answer; the list is never nil in an EvaluationRecord.
type ExtractedCommand struct {
	// Command is the command string with surrounding markup stripped.
	Command string `json:"command"`

	// Context is the full answer line the command was found on.
	Context string `json:"context"`

	// Confidence records the extraction pattern that matched.
	Confidence CommandConfidence `json:"confidence"`
}
