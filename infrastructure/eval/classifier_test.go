package eval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-assistant/annabench/internal/domain"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(DefaultClassifierConfig())
	require.NoError(t, err)
	return c
}

func TestNewClassifierRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config ClassifierConfig
	}{
		{"overlap above one", ClassifierConfig{MinTopicOverlap: 1.5, FuzzyThreshold: 0.8}},
		{"fuzzy below half", ClassifierConfig{MinTopicOverlap: 0.2, FuzzyThreshold: 0.3}},
		{"negative overlap", ClassifierConfig{MinTopicOverlap: -0.1, FuzzyThreshold: 0.8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClassifier(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validation failed")
		})
	}
}

func TestClassifyEmptyAnswer(t *testing.T) {
	c := newTestClassifier(t)
	q := domain.QuestionRecord{ID: "q-1", Title: "Why does pacman fail to update?"}

	verdict := c.Classify(context.Background(), q, domain.AnswerRecord{Text: "   \n  ", Model: "m"}, nil)

	assert.Equal(t, domain.VerdictIncorrect, verdict.Class)
	assert.Equal(t, "empty answer", verdict.Rationale)
}

func TestClassifyNoKeyTermsIsUnverifiable(t *testing.T) {
	c := newTestClassifier(t)
	// A question whose every token is a stopword or too short yields no
	// key terms to compare against.
	q := domain.QuestionRecord{ID: "q-1", Title: "can you help"}

	verdict := c.Classify(context.Background(), q, domain.AnswerRecord{Text: "An answer.", Model: "m"}, nil)

	assert.Equal(t, domain.VerdictUnverifiable, verdict.Class)
	assert.Equal(t, "insufficient signal", verdict.Rationale)
}

func TestClassifyOffTopic(t *testing.T) {
	c := newTestClassifier(t)
	q := domain.QuestionRecord{
		ID:    "q-1",
		Title: "Bluetooth headphones crackling under PipeWire",
		Body:  "Audio stutters whenever the screen locks.",
	}
	answer := domain.AnswerRecord{
		Text:  "Reinstall the bootloader and regenerate grub configuration files immediately.",
		Model: "m",
	}

	verdict := c.Classify(context.Background(), q, answer, nil)

	assert.Equal(t, domain.VerdictIncorrect, verdict.Class)
	assert.Contains(t, verdict.Rationale, "off-topic")
}

func TestClassifyMisdirectedCommands(t *testing.T) {
	c := newTestClassifier(t)
	q := domain.QuestionRecord{
		ID:    "q-1",
		Title: "No sound after update",
		Body:  "My speakers stopped working, pipewire seems to be running though. No sound at all.",
	}
	// Topically overlapping enough words, but the only command targets the
	// boot subsystem.
	answer := domain.AnswerRecord{
		Text:  "Sound problems after an update are common. Your speakers and pipewire setup can be fixed: run `mkinitcpio -P` and reboot.",
		Model: "m",
	}
	commands := []domain.ExtractedCommand{
		{Command: "mkinitcpio -P", Confidence: domain.ConfidenceInlineCode},
	}

	verdict := c.Classify(context.Background(), q, answer, commands)

	assert.Equal(t, domain.VerdictIncorrect, verdict.Class)
	assert.Contains(t, verdict.Rationale, "unrelated")
}

func TestClassifyDestructiveWithoutCaveat(t *testing.T) {
	c := newTestClassifier(t)
	q := domain.QuestionRecord{
		ID:    "q-1",
		Title: "How do I clean the pacman cache?",
		Body:  "My disk is filling up with old packages in the cache.",
	}
	answer := domain.AnswerRecord{
		Text:  "Run `sudo pacman -Scc` to clean the cache. This frees disk space used by old packages.",
		Model: "m",
	}
	commands := []domain.ExtractedCommand{
		{Command: "sudo pacman -Scc", Confidence: domain.ConfidenceInlineCode},
	}

	verdict := c.Classify(context.Background(), q, answer, commands)

	assert.Equal(t, domain.VerdictPartial, verdict.Class)
	assert.Contains(t, verdict.Rationale, "destructive")
}

func TestClassifyDestructiveWithCaveatIsCorrect(t *testing.T) {
	c := newTestClassifier(t)
	q := domain.QuestionRecord{
		ID:    "q-1",
		Title: "How do I clean the pacman cache?",
		Body:  "My disk is filling up with old packages in the cache.",
	}
	answer := domain.AnswerRecord{
		Text: "Run `sudo pacman -Scc` to clean the cache and free disk space from old packages. " +
			"Warning: this removes every cached package, so you cannot downgrade without re-downloading.",
		Model: "m",
	}
	commands := []domain.ExtractedCommand{
		{Command: "sudo pacman -Scc", Confidence: domain.ConfidenceInlineCode},
	}

	verdict := c.Classify(context.Background(), q, answer, commands)

	assert.Equal(t, domain.VerdictCorrect, verdict.Class)
}

func TestClassifyUnresolvedPlaceholder(t *testing.T) {
	c := newTestClassifier(t)
	q := domain.QuestionRecord{
		ID:    "q-1",
		Title: "How do I mount a usb drive?",
		Body:  "I plugged in a usb drive but nothing shows up to mount.",
	}
	answer := domain.AnswerRecord{
		Text:  "Find the device with lsblk, then mount your usb drive: `sudo mount /dev/sdXn /mnt`. Replace the device name first.",
		Model: "m",
	}
	commands := []domain.ExtractedCommand{
		{Command: "sudo mount <device> /mnt", Confidence: domain.ConfidenceInlineCode},
	}

	verdict := c.Classify(context.Background(), q, answer, commands)

	assert.Equal(t, domain.VerdictPartial, verdict.Class)
	assert.Contains(t, verdict.Rationale, "placeholder")
}

func TestClassifyUncoveredSubQuestion(t *testing.T) {
	c := newTestClassifier(t)
	q := domain.QuestionRecord{
		ID:    "q-1",
		Title: "Two problems after update",
		Body:  "Why does my wifi disconnect randomly? And separately, why is the bluetooth adapter missing entirely?",
	}
	// Covers wifi, never mentions bluetooth.
	answer := domain.AnswerRecord{
		Text:  "Random wifi disconnects after an update usually come from power saving. Disable it in the wireless driver options.",
		Model: "m",
	}

	verdict := c.Classify(context.Background(), q, answer, nil)

	assert.Equal(t, domain.VerdictPartial, verdict.Class)
	assert.Contains(t, verdict.Rationale, "no coverage")
}

func TestClassifyCorrect(t *testing.T) {
	c := newTestClassifier(t)
	q := domain.QuestionRecord{
		ID:    "q-1",
		Title: "How do I enable sshd on boot?",
		Body:  "I want the sshd service to start automatically.",
	}
	answer := domain.AnswerRecord{
		Text:  "Enable the service so it starts on boot: `sudo systemctl enable --now sshd`. The sshd service will start automatically from now on.",
		Model: "m",
	}
	commands := []domain.ExtractedCommand{
		{Command: "sudo systemctl enable --now sshd", Confidence: domain.ConfidenceInlineCode},
	}

	verdict := c.Classify(context.Background(), q, answer, commands)

	assert.Equal(t, domain.VerdictCorrect, verdict.Class)
	assert.Contains(t, verdict.Rationale, "topically matched")
}

func TestFuzzySimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"mirror", "mirrors", 0.8, 1.0},
		{"pacman", "pacman", 1.0, 1.0},
		{"wifi", "audio", 0.0, 0.3},
		{"", "", 1.0, 1.0},
	}

	for _, tt := range tests {
		got := fuzzySimilarity(tt.a, tt.b)
		assert.GreaterOrEqual(t, got, tt.min, "%q vs %q", tt.a, tt.b)
		assert.LessOrEqual(t, got, tt.max, "%q vs %q", tt.a, tt.b)
	}
}

func TestIsDestructive(t *testing.T) {
	tests := []struct {
		command string
		want    bool
	}{
		{"sudo pacman -Scc", true},
		{"pacman -Rns $(pacman -Qdtq)", true},
		{"pacman -Syu", false},
		{"rm -rf /var/cache/pacman/pkg", true},
		{"rm notes.txt", false},
		{"dd if=/dev/zero of=/dev/sda", true},
		{"lsblk -f", false},
		{"sudo wipefs -a /dev/sdb", true},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			assert.Equal(t, tt.want, isDestructive(tt.command))
		})
	}
}

func TestUnresolvedPlaceholder(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    bool
	}{
		{"angle brackets", "mount <device> /mnt", true},
		{"path placeholder", "cp /path/to/config .", true},
		{"your prefix", "ssh your_username@host", true},
		{"all caps variable", "export EDITOR_NAME", true},
		{"clean command", "pacman -Syu", false},
		{"short caps flag ok", "ip a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, found := unresolvedPlaceholder([]domain.ExtractedCommand{{Command: tt.command}})
			assert.Equal(t, tt.want, found)
		})
	}
}

func TestKeyTermsOrderAndFiltering(t *testing.T) {
	terms := keyTerms("How can I update the mirror list and update pacman?")
	assert.Equal(t, []string{"update", "mirror", "list", "pacman"}, terms)
}
