package eval

import (
	"strings"
	"time"
)

// Metrics packages the per-answer measurements: word count and the
// oracle-reported latency. Collection has no failure modes; a missing
// timestamp pair yields a zero latency with the Unmeasured flag set.
type Metrics struct {
	// WordCount is the number of word units in the answer, zero only for
	// an empty answer.
	WordCount int

	// LatencyMS is the wall-clock generation latency in milliseconds.
	LatencyMS int64

	// Unmeasured is set when no usable timestamp pair was supplied.
	Unmeasured bool
}

// CountWords returns the number of word units in the answer text.
//
// Fence marker lines and backtick markup are stripped before splitting on
// whitespace runs, so code blocks contribute one word unit per token rather
// than inflating counts with markup. This matches how the source reports
// count words: prose and command tokens are counted without distinction.
func CountWords(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if isFenceMarker(trimmed) {
			continue
		}
		count += len(strings.Fields(strings.ReplaceAll(trimmed, "`", " ")))
	}
	return count
}

// CollectMetrics computes the word count and packages the externally
// supplied timing. The collector performs no timing itself: latency comes
// solely from the start/end pair, and an absent or inverted pair is
// recorded as unmeasured rather than raising.
func CollectMetrics(text string, start, end time.Time) Metrics {
	m := Metrics{WordCount: CountWords(text)}

	if start.IsZero() || end.IsZero() || end.Before(start) {
		m.Unmeasured = true
		return m
	}
	m.LatencyMS = end.Sub(start).Milliseconds()
	return m
}
