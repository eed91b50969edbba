package eval

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/anna-assistant/annabench/internal/domain"
)

// ClassifierConfig defines the tunable thresholds of the heuristic verdict
// classifier. All fields are validated during construction.
type ClassifierConfig struct {
	// MinTopicOverlap is the minimum fraction of the question's key terms
	// that must appear in the answer before it counts as on-topic.
	MinTopicOverlap float64 `yaml:"min_topic_overlap" json:"min_topic_overlap" validate:"min=0.0,max=1.0"`

	// FuzzyThreshold is the Levenshtein similarity (0.0-1.0) above which
	// two tokens are considered the same term, absorbing plural forms and
	// small typos in the community corpus.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" json:"fuzzy_threshold" validate:"min=0.5,max=1.0"`
}

// DefaultClassifierConfig returns the thresholds used by the engine unless
// configured otherwise.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		MinTopicOverlap: 0.2,
		FuzzyThreshold:  0.8,
	}
}

// Classifier assigns a coarse correctness verdict to one answer by walking
// a fixed decision table: INCORRECT for empty, off-topic, or misdirected
// answers; PARTIAL for missing safety caveats, unresolved placeholders, or
// incomplete coverage of multi-part questions; CORRECT only when nothing
// disqualifies. Ties resolve toward PARTIAL rather than CORRECT, and
// unresolvable ambiguity terminates as UNVERIFIABLE with rationale
// "insufficient signal". Classification never fails.
//
// The classifier is stateless and safe for concurrent use.
type Classifier struct {
	config ClassifierConfig
	tracer trace.Tracer
}

// NewClassifier creates a verdict classifier with the given thresholds.
func NewClassifier(config ClassifierConfig) (*Classifier, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &Classifier{
		config: config,
		tracer: otel.Tracer("verdict-classifier"),
	}, nil
}

// Classify walks the decision table for one question/answer pair and the
// commands extracted from the answer. It always returns a valid verdict.
func (c *Classifier) Classify(
	ctx context.Context,
	q domain.QuestionRecord,
	a domain.AnswerRecord,
	commands []domain.ExtractedCommand,
) domain.Verdict {
	_, span := c.tracer.Start(ctx, "Classifier.Classify",
		trace.WithAttributes(
			attribute.String("question.id", q.ID),
			attribute.Int("commands.count", len(commands)),
		),
	)
	defer span.End()

	verdict := c.classify(q, a, commands)

	span.SetAttributes(attribute.String("verdict.class", string(verdict.Class)))
	return verdict
}

func (c *Classifier) classify(
	q domain.QuestionRecord,
	a domain.AnswerRecord,
	commands []domain.ExtractedCommand,
) domain.Verdict {
	answer := strings.TrimSpace(a.Text)
	if answer == "" {
		return domain.Verdict{
			Class:     domain.VerdictIncorrect,
			Rationale: "empty answer",
		}
	}

	terms := keyTerms(q.Text())
	if len(terms) == 0 {
		return domain.Verdict{
			Class:     domain.VerdictUnverifiable,
			Rationale: "insufficient signal",
		}
	}

	answerTokens := tokenSet(answer)
	matched := 0
	for _, term := range terms {
		if c.tokenMatch(answerTokens, term) {
			matched++
		}
	}
	overlap := float64(matched) / float64(len(terms))
	if overlap < c.config.MinTopicOverlap {
		return domain.Verdict{
			Class: domain.VerdictIncorrect,
			Rationale: fmt.Sprintf(
				"off-topic: answer shares %d of %d key terms with the question",
				matched, len(terms)),
		}
	}

	if reason, misdirected := misdirectedCommands(q, commands); misdirected {
		return domain.Verdict{Class: domain.VerdictIncorrect, Rationale: reason}
	}

	// PARTIAL triggers, checked in decision-table order. The first hit
	// wins; all are recall-biased.
	if cmd, unsafe := destructiveWithoutCaveat(answer, commands); unsafe {
		return domain.Verdict{
			Class: domain.VerdictPartial,
			Rationale: fmt.Sprintf(
				"destructive command %q given without a backup or caution note", cmd),
		}
	}

	if tok, found := unresolvedPlaceholder(commands); found {
		return domain.Verdict{
			Class: domain.VerdictPartial,
			Rationale: fmt.Sprintf(
				"command contains placeholder %q the user must resolve", tok),
		}
	}

	if part, uncovered := c.uncoveredSubQuestion(q, answerTokens); uncovered {
		return domain.Verdict{
			Class: domain.VerdictPartial,
			Rationale: fmt.Sprintf(
				"multi-part question: no coverage found for %q", part),
		}
	}

	return domain.Verdict{
		Class: domain.VerdictCorrect,
		Rationale: fmt.Sprintf(
			"topically matched (%d/%d key terms); commands appropriate and safely presented",
			matched, len(terms)),
	}
}

// tokenMatch reports whether the term appears in the token set, exactly or
// within the configured Levenshtein similarity.
func (c *Classifier) tokenMatch(tokens map[string]struct{}, term string) bool {
	if _, ok := tokens[term]; ok {
		return true
	}
	for tok := range tokens {
		if fuzzySimilarity(tok, term) >= c.config.FuzzyThreshold {
			return true
		}
	}
	return false
}

// fuzzySimilarity normalizes Levenshtein edit distance to [0,1], operating
// on runes so multi-byte characters compare correctly.
func fuzzySimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	sim := 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

// subsystems maps executables and question vocabulary onto the coarse
// system areas the assistant's answers operate on. A command is
// misdirected when its subsystem is known, the question names subsystems,
// and the two sets are disjoint.
var commandSubsystems = map[string]string{
	"pacman": "packages", "paccache": "packages", "pacman-key": "packages",
	"makepkg": "packages", "yay": "packages", "paru": "packages",
	"flatpak": "packages", "reflector": "packages", "pacstrap": "packages",
	"systemctl": "services", "journalctl": "services",
	"systemd-analyze": "services", "loginctl": "services",
	"mkinitcpio": "boot", "grub-mkconfig": "boot", "grub-install": "boot",
	"bootctl": "boot", "efibootmgr": "boot",
	"ip": "network", "ping": "network", "nmcli": "network",
	"iwctl": "network", "dhcpcd": "network", "rfkill": "network",
	"mount": "storage", "umount": "storage", "lsblk": "storage",
	"blkid": "storage", "fdisk": "storage", "parted": "storage",
	"mkfs": "storage", "mkswap": "storage", "swapon": "storage",
	"fsck": "storage", "btrfs": "storage", "dd": "storage",
	"wipefs": "storage", "genfstab": "storage",
	"pactl": "audio", "wpctl": "audio", "alsamixer": "audio",
	"pavucontrol": "audio",
	"xrandr": "graphics", "nvidia-smi": "graphics", "glxinfo": "graphics",
}

var subsystemKeywords = map[string][]string{
	"packages": {"package", "packages", "install", "update", "upgrade",
		"pacman", "aur", "repository", "repo", "mirror", "mirrors",
		"cache", "dependency", "dependencies", "flatpak"},
	"services": {"service", "services", "daemon", "systemd", "unit",
		"journal", "logs", "enable", "autostart"},
	"boot": {"boot", "boots", "booting", "grub", "kernel", "initramfs",
		"uefi", "efi", "bootloader", "dual-boot"},
	"network": {"network", "wifi", "wi-fi", "wireless", "ethernet",
		"internet", "connection", "dns", "router"},
	"storage": {"disk", "partition", "partitions", "filesystem", "drive",
		"mount", "storage", "ssd", "nvme", "usb", "swap"},
	"audio": {"audio", "sound", "volume", "speaker", "speakers",
		"microphone", "headphones", "pipewire", "pulseaudio"},
	"graphics": {"graphics", "display", "monitor", "screen", "resolution",
		"nvidia", "amdgpu", "wayland", "xorg", "gpu"},
}

// misdirectedCommands reports whether every extracted command targets a
// subsystem clearly unrelated to the ones the question names.
func misdirectedCommands(q domain.QuestionRecord, commands []domain.ExtractedCommand) (string, bool) {
	if len(commands) == 0 {
		return "", false
	}

	questionSubs := questionSubsystems(q.Text())
	if len(questionSubs) == 0 {
		return "", false
	}

	known := 0
	for _, cmd := range commands {
		exec, ok := executableOf(strings.Fields(cmd.Command))
		if !ok {
			continue
		}
		sub, mapped := commandSubsystems[exec]
		if !mapped {
			// Generic file and shell utilities serve any subsystem.
			continue
		}
		known++
		if _, related := questionSubs[sub]; related {
			return "", false
		}
	}
	if known == 0 {
		return "", false
	}

	subs := make([]string, 0, len(questionSubs))
	for s := range questionSubs {
		subs = append(subs, s)
	}
	return fmt.Sprintf(
		"commands target a subsystem unrelated to the question's (%s)",
		strings.Join(subs, ", ")), true
}

// questionSubsystems returns the subsystems whose vocabulary appears in the
// question text.
func questionSubsystems(text string) map[string]struct{} {
	tokens := tokenSet(text)
	subs := make(map[string]struct{})
	for sub, words := range subsystemKeywords {
		for _, w := range words {
			if _, ok := tokens[w]; ok {
				subs[sub] = struct{}{}
				break
			}
		}
	}
	return subs
}

// destructive flags per executable; rm and pacman are destructive only
// with specific flags.
var destructiveExecutables = map[string]struct{}{
	"dd": {}, "mkfs": {}, "wipefs": {}, "fdisk": {}, "parted": {},
	"mkswap": {}, "userdel": {},
}

var caveatPhrases = []string{
	"backup", "back up", "caution", "careful", "warning", "warned",
	"irreversible", "make sure", "double-check", "be aware", "danger",
	"destroy", "will remove all", "cannot be undone",
}

// destructiveWithoutCaveat reports the first destructive command whose
// answer text carries no safety caveat anywhere.
func destructiveWithoutCaveat(answer string, commands []domain.ExtractedCommand) (string, bool) {
	folded := foldCaser.String(answer)
	for _, phrase := range caveatPhrases {
		if strings.Contains(folded, phrase) {
			return "", false
		}
	}

	for _, cmd := range commands {
		if isDestructive(cmd.Command) {
			return cmd.Command, true
		}
	}
	return "", false
}

// isDestructive classifies a single command string as destructive.
func isDestructive(command string) bool {
	fields := strings.Fields(command)
	exec, ok := executableOf(fields)
	if !ok {
		return false
	}
	if _, destructive := destructiveExecutables[exec]; destructive {
		return true
	}
	switch exec {
	case "rm":
		for _, f := range fields[1:] {
			if strings.HasPrefix(f, "-") &&
				(strings.ContainsAny(f, "rR") || strings.Contains(f, "f")) {
				return true
			}
		}
	case "pacman":
		for _, f := range fields[1:] {
			// Cache purges and recursive removals lose data that
			// cannot be recovered from the mirrors.
			if strings.HasPrefix(f, "-Scc") || strings.HasPrefix(f, "-Rns") ||
				strings.HasPrefix(f, "-Rdd") || strings.HasPrefix(f, "-Rsc") {
				return true
			}
		}
	}
	return false
}

// unresolvedPlaceholder finds placeholder tokens inside extracted commands
// that the user would have to substitute: angle-bracket or bracket slots,
// "/path/to" style paths, your_* names, and ALL_CAPS variables.
func unresolvedPlaceholder(commands []domain.ExtractedCommand) (string, bool) {
	for _, cmd := range commands {
		if i := strings.IndexByte(cmd.Command, '<'); i >= 0 &&
			strings.IndexByte(cmd.Command[i:], '>') > 0 {
			return cmd.Command[i : i+strings.IndexByte(cmd.Command[i:], '>')+1], true
		}
		for _, f := range strings.Fields(cmd.Command) {
			if strings.HasPrefix(f, "-") {
				continue
			}
			lower := strings.ToLower(f)
			if strings.Contains(lower, "/path/to") ||
				strings.HasPrefix(lower, "your") ||
				strings.HasPrefix(f, "[") && strings.HasSuffix(f, "]") {
				return f, true
			}
			if isAllCapsVariable(f) {
				return f, true
			}
		}
	}
	return "", false
}

// isAllCapsVariable recognizes tokens like USERNAME or DEVICE_NAME that
// stand in for user-supplied values.
func isAllCapsVariable(tok string) bool {
	if len(tok) < 4 {
		return false
	}
	letters := 0
	for _, r := range tok {
		switch {
		case r >= 'A' && r <= 'Z':
			letters++
		case r == '_':
		default:
			return false
		}
	}
	return letters >= 4
}

// uncoveredSubQuestion checks multi-part questions: every sentence ending
// in a question mark must share at least one key term with the answer.
// Single-question records trivially pass.
func (c *Classifier) uncoveredSubQuestion(q domain.QuestionRecord, answerTokens map[string]struct{}) (string, bool) {
	parts := subQuestions(q.Text())
	if len(parts) < 2 {
		return "", false
	}
	for _, part := range parts {
		covered := false
		terms := keyTerms(part)
		if len(terms) == 0 {
			continue
		}
		for _, term := range terms {
			if c.tokenMatch(answerTokens, term) {
				covered = true
				break
			}
		}
		if !covered {
			return strings.TrimSpace(part), true
		}
	}
	return "", false
}

// subQuestions splits text into the sentences that end with a question
// mark, the distinguishable sub-questions the coverage check operates on.
func subQuestions(text string) []string {
	var parts []string
	start := 0
	for i, r := range text {
		switch r {
		case '?':
			part := strings.TrimSpace(text[start : i+1])
			if part != "" {
				parts = append(parts, part)
			}
			start = i + 1
		case '.', '!', '\n':
			start = i + 1
		}
	}
	return parts
}

// stopwords excluded from key-term extraction. The list is small on
// purpose: key terms drive the off-topic check, and over-filtering would
// bias it toward INCORRECT.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"have": {}, "has": {}, "how": {}, "what": {}, "where": {}, "when": {},
	"why": {}, "can": {}, "could": {}, "should": {}, "would": {},
	"does": {}, "doesn": {}, "don": {}, "you": {}, "your": {}, "but": {},
	"not": {}, "are": {}, "was": {}, "just": {}, "get": {}, "use": {},
	"after": {}, "from": {}, "into": {}, "want": {}, "need": {},
	"there": {}, "them": {}, "then": {}, "than": {}, "any": {}, "all": {},
	"its": {}, "it's": {}, "i'm": {}, "ive": {}, "i've": {}, "trying": {},
	"tried": {}, "help": {}, "please": {}, "thanks": {}, "anyone": {},
	"something": {}, "anything": {}, "still": {}, "also": {}, "only": {},
}

// keyTerms extracts the question's distinctive vocabulary: case-folded
// word tokens of three or more characters with stopwords removed,
// deduplicated in first-seen order.
func keyTerms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, tok := range tokenize(text) {
		if len(tok) < 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}

// tokenSet returns the case-folded word tokens of the text as a set.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// tokenize case-folds and splits on non-word runes, keeping hyphenated and
// apostrophe forms intact ("wi-fi", "doesn't").
func tokenize(text string) []string {
	folded := foldCaser.String(text)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !(r == '-' || r == '\'' ||
			(r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}
