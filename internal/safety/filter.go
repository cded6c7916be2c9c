// Package safety implements content moderation for child speech transcripts:
// profanity censoring, PII redaction, unsafe-topic flagging, and the
// on-topic gate for the letter-learning context.
//
// Detection is deliberately heuristic — fixed word lists and regular
// expressions — so that safety-critical decisions stay deterministic and
// auditable, with no external model in the loop.
package safety

import (
	"regexp"
	"strings"
)

// Category classifies a moderation violation.
type Category string

const (
	// CategoryProfanity marks inappropriate language; matched spans are
	// censored in the cleaned text.
	CategoryProfanity Category = "inappropriate_language"

	// CategoryPII marks personally identifiable information; matched spans
	// are redacted in the cleaned text.
	CategoryPII Category = "pii_detected"

	// CategoryUnsafeTopic marks a topic unsuitable for children. The text is
	// flagged but not rewritten; the Topic field names the matched topic.
	CategoryUnsafeTopic Category = "unsafe_topic"
)

// Violation is one moderation finding. Unsafe-topic violations carry the
// matched topic; the other categories leave Topic empty.
type Violation struct {
	Category Category `json:"category"`
	Topic    string   `json:"topic,omitempty"`
}

// Code renders the violation as its wire string code, e.g.
// "inappropriate_language", "pii_detected", or "unsafe_topic_stranger".
func (v Violation) Code() string {
	if v.Category == CategoryUnsafeTopic {
		return string(CategoryUnsafeTopic) + "_" + strings.ReplaceAll(v.Topic, " ", "_")
	}
	return string(v.Category)
}

// Codes renders a violation list as its string codes, preserving order.
func Codes(violations []Violation) []string {
	if len(violations) == 0 {
		return nil
	}
	codes := make([]string, len(violations))
	for i, v := range violations {
		codes[i] = v.Code()
	}
	return codes
}

// Result is the outcome of one moderation pass.
type Result struct {
	// Safe is true iff no violations were found.
	Safe bool

	// Cleaned is the input with profanity censored and PII redacted.
	// Unsafe topics are flagged but never rewritten.
	Cleaned string

	// Violations lists every finding from all detection stages.
	Violations []Violation
}

// profanity lists censored words. Kept intentionally small and tame here; a
// deployment can extend it via [WithProfanityWords].
var defaultProfanity = []string{
	"damn", "hell", "crap", "stupid", "idiot", "dumb", "shut up", "hate you",
}

// piiPatterns match SSN-like, phone-like, email, and street-address shapes.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                               // SSN
	regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`),                               // phone
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),  // email
	regexp.MustCompile(`(?i)\b\d{1,5}\s+\w+\s+(street|st|avenue|ave|road|rd|drive|dr)\b`), // address
}

// unsafeTopics is the fixed topic list checked by case-insensitive substring
// match. Multi-word topics render with underscores in the violation code.
var unsafeTopics = []string{
	"violence", "scary", "death", "blood", "weapon", "gun", "knife",
	"stranger", "secret", "password", "address", "phone number",
	"where do you live", "what school", "parents work",
}

// learningTerms is the vocabulary that marks a request as on-topic for
// letter learning.
var learningTerms = []string{
	"letter", "alphabet", "sound", "word", "learn", "teach", "practice",
	"phonics", "pronunciation", "spell", "say", "repeat",
}

// blockedTerms marks requests as off-limits regardless of learning vocabulary.
var blockedTerms = []string{
	"hack", "break", "destroy", "kill", "hurt", "bad words",
	"password", "login", "account", "money", "buy", "sell",
}

// Filter moderates transcripts. It is stateless and safe for concurrent use;
// all tables are fixed at construction.
type Filter struct {
	censorToken    string
	redactionToken string
	profanityRe    *regexp.Regexp
}

// Option is a functional option for configuring a [Filter].
type Option func(*Filter)

// WithCensorToken sets the token that replaces profane spans. Default "****".
func WithCensorToken(token string) Option {
	return func(f *Filter) {
		if token != "" {
			f.censorToken = token
		}
	}
}

// WithRedactionToken sets the token that replaces PII spans.
// Default "[REMOVED]".
func WithRedactionToken(token string) Option {
	return func(f *Filter) {
		if token != "" {
			f.redactionToken = token
		}
	}
}

// WithProfanityWords replaces the built-in profanity word list.
func WithProfanityWords(words []string) Option {
	return func(f *Filter) {
		if len(words) > 0 {
			f.profanityRe = compileProfanity(words)
		}
	}
}

// New returns a [Filter] configured with the supplied options.
func New(opts ...Option) *Filter {
	f := &Filter{
		censorToken:    "****",
		redactionToken: "[REMOVED]",
		profanityRe:    compileProfanity(defaultProfanity),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// compileProfanity builds a single case-insensitive word-boundary regex
// covering every word in the list.
func compileProfanity(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// Moderate runs all detection stages over text and returns the combined
// result. Stages never short-circuit: every violation class present in the
// input is reported in a single pass.
func (f *Filter) Moderate(text string) Result {
	var violations []Violation
	cleaned := text

	// Stage 1: profanity.
	if f.profanityRe.MatchString(text) {
		violations = append(violations, Violation{Category: CategoryProfanity})
		cleaned = f.profanityRe.ReplaceAllString(cleaned, f.censorToken)
	}

	// Stage 2: PII. One violation no matter how many patterns hit, but every
	// matched span is redacted.
	piiFound := false
	for _, re := range piiPatterns {
		if re.MatchString(text) {
			piiFound = true
			cleaned = re.ReplaceAllString(cleaned, f.redactionToken)
		}
	}
	if piiFound {
		violations = append(violations, Violation{Category: CategoryPII})
	}

	// Stage 3: unsafe topics. Flag only, no rewriting.
	lower := strings.ToLower(text)
	for _, topic := range unsafeTopics {
		if strings.Contains(lower, topic) {
			violations = append(violations, Violation{Category: CategoryUnsafeTopic, Topic: topic})
		}
	}

	return Result{
		Safe:       len(violations) == 0,
		Cleaned:    cleaned,
		Violations: violations,
	}
}

// IsOnTopic reports whether text belongs in a letter-learning conversation:
// it must contain at least one learning term and none of the blocked terms.
// Call this only on text that already passed [Filter.Moderate].
func (f *Filter) IsOnTopic(text string) bool {
	lower := strings.ToLower(text)

	hasLearning := false
	for _, term := range learningTerms {
		if strings.Contains(lower, term) {
			hasLearning = true
			break
		}
	}
	if !hasLearning {
		return false
	}
	for _, term := range blockedTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

// Remediation returns the single child-appropriate response for a violation
// set. Priority is fixed: language, then PII, then unsafe topic, then a
// generic redirect.
func (f *Filter) Remediation(violations []Violation) string {
	has := func(c Category) bool {
		for _, v := range violations {
			if v.Category == c {
				return true
			}
		}
		return false
	}

	switch {
	case has(CategoryProfanity):
		return "Let's use kind words! Can we try saying that in a nicer way?"
	case has(CategoryPII):
		return "Remember, we don't share personal information! Let's focus on learning letters instead."
	case has(CategoryUnsafeTopic):
		return "That's not something we talk about in our alphabet lessons. Let's learn about letters instead!"
	default:
		return "Let's keep our conversation about learning letters! What letter would you like to practice?"
	}
}
