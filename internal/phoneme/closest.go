package phoneme

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// defaultClosestThreshold is the minimum Jaro-Winkler score for a letter-name
// guess to be reported.
const defaultClosestThreshold = 0.80

// letterNames maps each letter to spoken spellings of its name, the forms an
// STT engine tends to emit when a child says the letter in isolation.
var letterNames = map[string][]string{
	"A": {"a", "ay", "eh"}, "B": {"b", "bee", "be"},
	"C": {"c", "see", "sea", "cee"}, "D": {"d", "dee", "de"},
	"E": {"e", "ee"}, "F": {"f", "ef", "eff"},
	"G": {"g", "gee", "jee"}, "H": {"h", "aitch", "haitch"},
	"I": {"i", "eye", "aye"}, "J": {"j", "jay"},
	"K": {"k", "kay"}, "L": {"l", "el", "ell"},
	"M": {"m", "em"}, "N": {"n", "en"},
	"O": {"o", "oh", "owe"}, "P": {"p", "pee", "pea"},
	"Q": {"q", "cue", "queue"}, "R": {"r", "ar", "are"},
	"S": {"s", "ess", "es"}, "T": {"t", "tee", "tea"},
	"U": {"u", "you", "yew"}, "V": {"v", "vee"},
	"W": {"w", "double you", "double u"}, "X": {"x", "ex", "eks"},
	"Y": {"y", "why", "wye"}, "Z": {"z", "zee", "zed"},
}

// alphabet fixes the iteration order over letterNames.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ClosestLetter guesses which letter name the child most likely said, using
// Double Metaphone overlap with Jaro-Winkler ranking against the known
// spoken spellings of each letter name.
//
// This is a diagnostic only: it never feeds the accuracy computed by
// [Scorer.Analyze]. Callers surface it as optional metadata so that a
// mis-heard "bee" during a D lesson can still be reported upstream.
func (s *Scorer) ClosestLetter(transcript string) (letter string, confidence float64, ok bool) {
	tokens := strings.Fields(Normalize(transcript))
	if len(tokens) == 0 {
		return "", 0, false
	}

	var bestLetter string
	var bestScore float64

	for _, l := range strings.Split(alphabet, "") {
		for _, name := range letterNames[l] {
			for _, tok := range tokens {
				// Exact spelling of a letter name is a certain hit.
				if tok == name {
					return l, 1.0, true
				}
				// Single characters carry no phonetic signal; require a
				// spelled-out name for fuzzy comparison.
				if len(tok) < 2 || len(name) < 2 {
					continue
				}
				if !metaphoneOverlap(tok, name) {
					continue
				}
				if score := matchr.JaroWinkler(tok, name, false); score > bestScore {
					bestLetter, bestScore = l, score
				}
			}
		}
	}

	if bestScore < defaultClosestThreshold {
		return "", 0, false
	}
	return bestLetter, bestScore, true
}

// metaphoneOverlap reports whether the Double Metaphone codes of a and b
// share at least one non-empty code.
func metaphoneOverlap(a, b string) bool {
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || (bs != "" && x == bs) {
			return true
		}
	}
	return false
}
