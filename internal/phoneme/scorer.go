// Package phoneme estimates whether a child's transcribed utterance contains
// the expected sound for a target letter, and produces child-friendly
// feedback and pronunciation tips.
//
// Detection works on spelling-pattern substrings over the normalised
// transcript. The pattern table is shared across letters, so a pattern for
// one vowel can credit another letter's phoneme when the substrings overlap.
// That imprecision is accepted: the scorer is a coarse heuristic, not a
// speech model.
package phoneme

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Phoneme is an IPA-style identifier for a target sound, e.g. "/æ/".
type Phoneme string

// Analysis is the result of scoring one utterance against a target letter.
type Analysis struct {
	// Detected lists the phonemes found in the transcript, in discovery order.
	Detected []Phoneme `json:"detected"`

	// Expected lists the target letter's phonemes.
	Expected []Phoneme `json:"expected"`

	// Accuracy is |detected ∩ expected| / |expected| with a +0.2 bonus when
	// the sets match exactly, capped at 1.0. Zero when either set is empty.
	Accuracy float64 `json:"accuracy"`

	// Feedback is the spoken feedback line for the child.
	Feedback string `json:"feedback"`

	// Tips holds at most three pronunciation tips.
	Tips []string `json:"tips"`
}

// letterPhonemes maps each letter to its expected letter-name phonemes.
// Vowels carry both their long and short sounds.
var letterPhonemes = map[string][]Phoneme{
	"A": {"/eɪ/", "/æ/"},
	"B": {"/biː/"},
	"C": {"/siː/"},
	"D": {"/diː/"},
	"E": {"/iː/", "/ɛ/"},
	"F": {"/ɛf/"},
	"G": {"/dʒiː/"},
	"H": {"/eɪtʃ/"},
	"I": {"/aɪ/", "/ɪ/"},
	"J": {"/dʒeɪ/"},
	"K": {"/keɪ/"},
	"L": {"/ɛl/"},
	"M": {"/ɛm/"},
	"N": {"/ɛn/"},
	"O": {"/oʊ/", "/ɒ/"},
	"P": {"/piː/"},
	"Q": {"/kjuː/"},
	"R": {"/ɑːr/"},
	"S": {"/ɛs/"},
	"T": {"/tiː/"},
	"U": {"/juː/", "/ʌ/"},
	"V": {"/viː/"},
	"W": {"/dʌbəljuː/"},
	"X": {"/ɛks/"},
	"Y": {"/waɪ/"},
	"Z": {"/ziː/", "/zɛd/"},
}

// patternEntry binds a phoneme to the spelling substrings that suggest it.
type patternEntry struct {
	phoneme  Phoneme
	patterns []string
}

// phonemePatterns is scanned in order so detection stays deterministic.
// Patterns apply to every letter: "ee" in "see" credits /iː/ no matter
// which letter is the target.
var phonemePatterns = []patternEntry{
	{"/eɪ/", []string{"ay", "a_e", "ai"}},
	{"/æ/", []string{"a"}},
	{"/iː/", []string{"ee", "ea", "e_e"}},
	{"/ɛ/", []string{"e"}},
	{"/aɪ/", []string{"i_e", "igh", "y"}},
	{"/ɪ/", []string{"i"}},
	{"/oʊ/", []string{"o_e", "oa", "ow"}},
	{"/ɒ/", []string{"o"}},
	{"/juː/", []string{"u_e", "ue"}},
	{"/ʌ/", []string{"u"}},
}

// phonemeTips are canned tips for expected phonemes the child missed.
var phonemeTips = map[Phoneme]string{
	"/eɪ/": "Say 'ay' like in 'play'",
	"/æ/":  "Say 'a' like in 'cat'",
	"/iː/": "Say 'ee' like in 'see'",
	"/ɛ/":  "Say 'e' like in 'bed'",
	"/aɪ/": "Say 'i' like in 'kite'",
	"/ɪ/":  "Say 'i' like in 'sit'",
	"/oʊ/": "Say 'o' like in 'go'",
	"/ɒ/":  "Say 'o' like in 'hot'",
	"/juː/": "Say 'u' like in 'cute'",
	"/ʌ/":  "Say 'u' like in 'cup'",
}

// mouthTips are mouth-shape hints appended for vowel targets.
var mouthTips = map[string]string{
	"A": "Open your mouth wide",
	"E": "Smile while saying the sound",
	"I": "Make your mouth small and round",
	"O": "Make your lips round like a circle",
	"U": "Push your lips forward",
}

// maxTips caps the number of tips per analysis.
const maxTips = 3

var punctRe = regexp.MustCompile(`[^\w\s]`)

// Scorer scores transcripts against target letters. The zero value is ready
// to use; all tables are package-level and read-only, so a Scorer is safe
// for concurrent use.
type Scorer struct{}

// New returns a [Scorer].
func New() *Scorer {
	return &Scorer{}
}

// Analyze scores transcript against targetLetter (A–Z, case-insensitive).
// A target outside A–Z yields a zero-accuracy analysis with generic error
// feedback rather than an error: the turn still gets a spoken response.
func (s *Scorer) Analyze(transcript, targetLetter string) Analysis {
	target := strings.ToUpper(strings.TrimSpace(targetLetter))
	expected, ok := letterPhonemes[target]
	if !ok {
		return errorAnalysis()
	}

	normalized := Normalize(transcript)
	detected := detect(normalized, target)
	accuracy := score(detected, expected)

	return Analysis{
		Detected: detected,
		Expected: expected,
		Accuracy: accuracy,
		Feedback: feedback(accuracy, target),
		Tips:     tips(detected, expected, target),
	}
}

// Normalize lowercases the transcript, strips punctuation, and collapses
// whitespace runs to single spaces.
func Normalize(transcript string) string {
	normalized := punctRe.ReplaceAllString(strings.ToLower(transcript), "")
	return strings.Join(strings.Fields(normalized), " ")
}

// detect returns the phonemes found in the normalised transcript, in
// discovery order without duplicates. Saying the target letter itself
// credits all of that letter's phonemes; spelling patterns then credit any
// phoneme whose substring appears, for any letter.
func detect(normalized, target string) []Phoneme {
	var detected []Phoneme
	seen := make(map[Phoneme]struct{})
	add := func(p Phoneme) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		detected = append(detected, p)
	}

	if strings.Contains(normalized, strings.ToLower(target)) {
		for _, p := range letterPhonemes[target] {
			add(p)
		}
	}

	for _, entry := range phonemePatterns {
		for _, pat := range entry.patterns {
			if strings.Contains(normalized, pat) {
				add(entry.phoneme)
				break
			}
		}
	}
	return detected
}

// score computes the accuracy for a detected set against an expected set,
// rounded to two decimals.
func score(detected, expected []Phoneme) float64 {
	if len(expected) == 0 || len(detected) == 0 {
		return 0
	}

	expectedSet := make(map[Phoneme]struct{}, len(expected))
	for _, p := range expected {
		expectedSet[p] = struct{}{}
	}
	matches := 0
	onlyExpected := true
	for _, p := range detected {
		if _, ok := expectedSet[p]; ok {
			matches++
		} else {
			onlyExpected = false
		}
	}

	accuracy := float64(matches) / float64(len(expected))
	if onlyExpected && matches == len(expected) {
		accuracy = math.Min(1.0, accuracy+0.2)
	}
	return math.Round(accuracy*100) / 100
}

// feedback maps accuracy to one of four fixed bands, inclusive lower bounds.
func feedback(accuracy float64, target string) string {
	switch {
	case accuracy >= 0.8:
		return fmt.Sprintf("Excellent! You pronounced '%s' perfectly!", target)
	case accuracy >= 0.6:
		return fmt.Sprintf("Good job! Your '%s' sound is almost perfect.", target)
	case accuracy >= 0.4:
		return fmt.Sprintf("Nice try! Let's practice the '%s' sound together.", target)
	default:
		return fmt.Sprintf("Let's work on the '%s' sound. Listen carefully...", target)
	}
}

// tips builds the pronunciation tip list: one canned tip per missed expected
// phoneme, a generic tip when none apply, a mouth-shape tip for vowels, and
// a cap of three, preserving discovery order.
func tips(detected, expected []Phoneme, target string) []string {
	detectedSet := make(map[Phoneme]struct{}, len(detected))
	for _, p := range detected {
		detectedSet[p] = struct{}{}
	}

	var out []string
	for _, p := range expected {
		if _, ok := detectedSet[p]; ok {
			continue
		}
		if tip, ok := phonemeTips[p]; ok {
			out = append(out, tip)
		}
	}
	if len(out) == 0 {
		out = append(out, fmt.Sprintf("Try saying '%s' clearly and slowly", target))
	}
	if tip, ok := mouthTips[target]; ok {
		out = append(out, tip)
	}
	if len(out) > maxTips {
		out = out[:maxTips]
	}
	return out
}

// errorAnalysis is the zero-confidence result for an invalid target letter.
func errorAnalysis() Analysis {
	return Analysis{
		Detected: []Phoneme{},
		Expected: []Phoneme{},
		Accuracy: 0,
		Feedback: "Sorry, I couldn't analyze that. Invalid target letter",
		Tips:     []string{"Please try speaking clearly into the microphone"},
	}
}

// LetterSounds summarises a letter's sounds for the integration surface.
type LetterSounds struct {
	Letter   string    `json:"letter"`
	Phonemes []Phoneme `json:"phonemes"`
	Tips     []string  `json:"tips"`
	Examples []string  `json:"examples"`
}

// soundExamples are example words per letter for the sounds summary.
var soundExamples = map[string][]string{
	"A": {"apple", "cake", "cat"}, "B": {"ball", "book", "baby"},
	"C": {"cat", "car", "cup"}, "D": {"dog", "door", "duck"},
	"E": {"egg", "tree", "bed"}, "F": {"fish", "fun", "leaf"},
	"G": {"go", "big", "dog"}, "H": {"hat", "house", "happy"},
	"I": {"ice", "kite", "sit"}, "J": {"jump", "joy", "jar"},
	"K": {"kite", "key", "book"}, "L": {"lion", "ball", "leaf"},
	"M": {"moon", "mom", "swim"}, "N": {"nose", "sun", "run"},
	"O": {"ocean", "go", "hot"}, "P": {"pig", "cup", "pop"},
	"Q": {"queen", "quiet", "quack"}, "R": {"red", "car", "run"},
	"S": {"sun", "bus", "snake"}, "T": {"tree", "cat", "top"},
	"U": {"up", "cute", "cup"}, "V": {"van", "love", "very"},
	"W": {"water", "wow", "win"}, "X": {"box", "fox", "six"},
	"Y": {"yes", "my", "happy"}, "Z": {"zoo", "buzz", "zero"},
}

// Sounds returns the sound summary for letter, or ok=false when letter is
// outside A–Z.
func (s *Scorer) Sounds(letter string) (LetterSounds, bool) {
	target := strings.ToUpper(strings.TrimSpace(letter))
	phonemes, ok := letterPhonemes[target]
	if !ok {
		return LetterSounds{}, false
	}
	return LetterSounds{
		Letter:   target,
		Phonemes: phonemes,
		Tips:     tips(nil, phonemes, target),
		Examples: soundExamples[target],
	}, true
}
