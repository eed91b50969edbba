package eval

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/anna-assistant/annabench/internal/domain"
)

// CommandExtractor scans answer text for embedded shell commands. It is a
// pure function over its inputs: no state is kept between calls, and
// malformed text degrades to an empty result rather than failing.
//
// Extraction is deliberately precision-biased: lines that merely discuss a
// tool by name in prose are never extracted, only lines that instruct the
// user to run something. The recognized patterns are shell-prompt prefixes,
// fenced and inline code spans containing a known executable, and pipelines.
type CommandExtractor struct {
	tracer trace.Tracer
}

// NewCommandExtractor creates a ready-to-use extractor.
func NewCommandExtractor() *CommandExtractor {
	return &CommandExtractor{tracer: otel.Tracer("command-extractor")}
}

// Extract returns the commands embedded in the answer in order of
// appearance, deduplicated by whitespace-collapsed form. Lines that quote
// the original question verbatim are excluded so that commands the asker
// already pasted are not re-flagged.
func (e *CommandExtractor) Extract(
	ctx context.Context,
	answer string,
	question domain.QuestionRecord,
) []domain.ExtractedCommand {
	_, span := e.tracer.Start(ctx, "CommandExtractor.Extract",
		trace.WithAttributes(attribute.Int("answer.bytes", len(answer))),
	)
	defer span.End()

	questionLines := normalizedLineSet(question.Text())

	commands := make([]domain.ExtractedCommand, 0, 4)
	seen := make(map[string]struct{})

	add := func(cmd, line string, conf domain.CommandConfidence) {
		norm := normalizeCommand(cmd)
		if norm == "" {
			return
		}
		if _, dup := seen[norm]; dup {
			return
		}
		seen[norm] = struct{}{}
		commands = append(commands, domain.ExtractedCommand{
			Command:    norm,
			Context:    strings.TrimSpace(line),
			Confidence: conf,
		})
	}

	inFence := false
	for _, line := range strings.Split(answer, "\n") {
		trimmed := strings.TrimSpace(line)

		if isFenceMarker(trimmed) {
			inFence = !inFence
			continue
		}
		if trimmed == "" {
			continue
		}

		// Markdown block quotes that repeat a question line are the
		// asker's own text, not an instruction.
		candidate := strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))
		if _, quoted := questionLines[normalizeCommand(stripPrompt(candidate))]; quoted {
			continue
		}

		// Pattern (b): shell-prompt or privilege-escalation prefix
		// followed by a recognized executable, fenced or not.
		if cmd, ok := matchPromptLine(candidate); ok {
			add(cmd, line, domain.ConfidenceShellPrompt)
			continue
		}

		// Pattern (c): pipe or command substitution syntax around a
		// known executable, fenced or not.
		if cmd, ok := matchPipeline(candidate); ok {
			add(cmd, line, domain.ConfidencePipeline)
			continue
		}

		// Inside a fence, any line invoking a known executable counts.
		if inFence {
			if cmd, ok := matchFencedLine(candidate); ok {
				add(cmd, line, domain.ConfidenceFencedCode)
			}
			continue
		}

		// Inline code spans in prose lines.
		for _, spanText := range inlineSpans(trimmed) {
			if cmd, ok := matchInlineSpan(spanText); ok {
				add(cmd, line, domain.ConfidenceInlineCode)
			}
		}
	}

	span.SetAttributes(attribute.Int("commands.extracted", len(commands)))
	return commands
}

// isFenceMarker reports whether the line opens or closes a fenced block.
func isFenceMarker(line string) bool {
	return strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~")
}

// stripPrompt removes a leading "$" or "#" shell prompt marker.
func stripPrompt(line string) string {
	if strings.HasPrefix(line, "$ ") || strings.HasPrefix(line, "# ") {
		return strings.TrimSpace(line[2:])
	}
	return line
}

// matchPromptLine recognizes pattern (b): a line beginning with a shell
// prompt marker, or with a privilege-escalation prefix followed by a known
// executable. The command is returned with the prompt marker stripped but
// the escalation prefix kept, since it is part of the instruction.
func matchPromptLine(line string) (string, bool) {
	hadPrompt := line != stripPrompt(line)
	body := strings.Trim(stripPrompt(line), "`")

	fields := strings.Fields(body)
	if len(fields) == 0 {
		return "", false
	}

	_, escalated := privilegePrefixes[fields[0]]
	if !hadPrompt && !escalated {
		return "", false
	}
	if _, ok := executableOf(fields); !ok {
		return "", false
	}
	return body, true
}

// matchPipeline recognizes pattern (c): pipe, chaining, or command
// substitution syntax. A known executable token is still required so that
// prose punctuation never qualifies; that is the documented precision
// choice for this pattern.
func matchPipeline(line string) (string, bool) {
	if !strings.Contains(line, "|") &&
		!strings.Contains(line, "&&") &&
		!strings.Contains(line, "$(") {
		return "", false
	}

	body := strings.Trim(stripPrompt(line), "`")
	if !containsKnownExecutable(body) {
		return "", false
	}
	return body, true
}

// matchFencedLine qualifies a line inside a code fence when it invokes a
// recognized executable, optionally behind a prompt marker or escalation
// prefix.
func matchFencedLine(line string) (string, bool) {
	body := stripPrompt(line)
	if _, ok := executableOf(strings.Fields(body)); !ok {
		return "", false
	}
	return body, true
}

// matchInlineSpan qualifies an inline code span. The span must invoke a
// known executable and carry at least one argument: a bare tool name in
// backticks is a reference, not an instruction.
func matchInlineSpan(span string) (string, bool) {
	body := stripPrompt(strings.TrimSpace(span))
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return "", false
	}
	if _, ok := executableOf(fields); !ok {
		return "", false
	}
	return body, true
}

// inlineSpans returns the contents of `...` spans on a single line.
func inlineSpans(line string) []string {
	parts := strings.Split(line, "`")
	if len(parts) < 3 {
		return nil
	}
	spans := make([]string, 0, len(parts)/2)
	for i := 1; i < len(parts); i += 2 {
		if parts[i] != "" {
			spans = append(spans, parts[i])
		}
	}
	return spans
}

// containsKnownExecutable reports whether any word token on the line is an
// allow-listed executable name.
func containsKnownExecutable(line string) bool {
	tokens := strings.FieldsFunc(line, func(r rune) bool {
		return !(r == '-' || r == '.' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9'))
	})
	for _, tok := range tokens {
		if _, ok := knownExecutables[tok]; ok {
			return true
		}
		if i := strings.IndexByte(tok, '.'); i > 0 {
			if _, ok := knownExecutables[tok[:i]]; ok {
				return true
			}
		}
	}
	return false
}

// normalizedLineSet builds the set of whitespace-collapsed lines of the
// question, used to exclude direct quotations from extraction.
func normalizedLineSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		norm := normalizeCommand(stripPrompt(strings.TrimSpace(line)))
		if norm != "" {
			set[norm] = struct{}{}
		}
	}
	return set
}
