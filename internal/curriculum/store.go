// Package curriculum holds the 26-letter lesson table and the letter
// progression rules for the alphabet tutor.
//
// Lessons are loaded once from a YAML file and served read-only beyond that.
// [Store.Reload] swaps the whole table atomically so readers never observe a
// partially updated curriculum.
package curriculum

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// LessonEntry is the immutable lesson content for a single letter.
type LessonEntry struct {
	// PhonemeClue is the child-friendly spelling of the letter's sound
	// (e.g., "ah" for A).
	PhonemeClue string `yaml:"phoneme_clue" json:"phoneme_clue"`

	// Examples are words starting with the letter, in teaching order.
	Examples []string `yaml:"examples" json:"examples"`

	// Activity is an interactive prompt for the child.
	Activity string `yaml:"activity" json:"activity"`

	// Prompt is the spoken lesson introduction.
	Prompt string `yaml:"prompt" json:"prompt"`
}

// lessonsFile is the top-level structure of the lessons YAML file.
//
// Example:
//
//	lessons:
//	  A:
//	    phoneme_clue: "ah"
//	    examples: ["Apple", "Ant", "Alligator"]
//	    activity: "Can you find something that starts with A?"
//	    prompt: "This is the letter A. Can you say 'ah'?"
type lessonsFile struct {
	Lessons map[string]LessonEntry `yaml:"lessons"`
}

// Store serves lesson lookups and letter progression. A Store is safe for
// concurrent use; Reload replaces the table via an atomic pointer swap.
type Store struct {
	path  string
	table atomic.Pointer[map[string]LessonEntry]
}

// New creates a Store backed by the lessons YAML file at path. When path is
// empty or the file cannot be read or parsed, the store falls back to the
// built-in minimal lesson set so the tutor never runs with zero lessons.
func New(path string) *Store {
	s := &Store{path: path}

	table, err := loadLessonsFile(path)
	if err != nil {
		slog.Warn("curriculum: lessons file unusable, falling back to built-in lessons",
			"path", path, "err", err)
		table = fallbackLessons()
	} else {
		slog.Info("curriculum: lessons loaded", "path", path, "letters", len(table))
	}
	s.table.Store(&table)
	return s
}

// loadLessonsFile reads and parses the lessons YAML file at path.
func loadLessonsFile(path string) (map[string]LessonEntry, error) {
	if path == "" {
		return nil, fmt.Errorf("curriculum: no lessons file configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("curriculum: open lessons file %q: %w", path, err)
	}
	defer f.Close()

	table, err := ParseLessons(f)
	if err != nil {
		return nil, fmt.Errorf("curriculum: parse lessons file %q: %w", path, err)
	}
	return table, nil
}

// ParseLessons decodes a lesson table from YAML. Letter keys are normalised
// to upper case. An empty table is an error — the caller should keep
// whatever it was serving before.
func ParseLessons(r io.Reader) (map[string]LessonEntry, error) {
	var lf lessonsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&lf); err != nil {
		return nil, fmt.Errorf("curriculum: decode lessons yaml: %w", err)
	}
	if len(lf.Lessons) == 0 {
		return nil, fmt.Errorf("curriculum: lessons file contains no lessons")
	}

	table := make(map[string]LessonEntry, len(lf.Lessons))
	for letter, entry := range lf.Lessons {
		table[strings.ToUpper(letter)] = entry
	}
	return table, nil
}

// fallbackLessons is the built-in minimal curriculum used when the configured
// lessons file is missing or corrupt.
func fallbackLessons() map[string]LessonEntry {
	return map[string]LessonEntry{
		"A": {
			PhonemeClue: "ah",
			Examples:    []string{"Apple", "Ant", "Alligator"},
			Activity:    "Can you find something in the room that starts with the letter A?",
			Prompt:      "This is the letter A. It makes the 'ah' sound, like in apple. Can you say 'ah'?",
		},
	}
}

// Lesson returns the lesson for letter (case-insensitive).
// The second return value is false when no lesson exists for the letter.
func (s *Store) Lesson(letter string) (LessonEntry, bool) {
	table := *s.table.Load()
	entry, ok := table[strings.ToUpper(letter)]
	return entry, ok
}

// Letters returns the number of letters in the loaded table.
func (s *Store) Letters() int {
	return len(*s.table.Load())
}

// NextLetter returns the successor of letter in A→Z order.
//
// Two terminal conditions exist and they deliberately differ: an empty
// letter means "not started" and yields "A", while "Z" means the curriculum
// is finished and yields no successor.
func (s *Store) NextLetter(letter string) (string, bool) {
	if letter == "" {
		return "A", true
	}
	c := strings.ToUpper(letter)[0]
	if c < 'A' || c >= 'Z' {
		return "", false
	}
	return string(c + 1), true
}

// IsComplete reports whether letter marks the end of the curriculum.
func (s *Store) IsComplete(letter string) bool {
	return strings.ToUpper(letter) == "Z"
}

// ProgressPercentage returns how far through the alphabet letter is, as a
// percentage in [0, 100]. An empty letter is 0.
func (s *Store) ProgressPercentage(letter string) float64 {
	if letter == "" {
		return 0
	}
	c := strings.ToUpper(letter)[0]
	if c < 'A' || c > 'Z' {
		return 0
	}
	pct := float64(c-'A') / 25 * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// LessonPrompt builds the spoken lesson introduction for letter, prefixed
// with the child's name when known. Unknown letters get a generic prompt.
func (s *Store) LessonPrompt(letter, childName string) string {
	letter = strings.ToUpper(letter)

	prompt := fmt.Sprintf("Let's learn about the letter %s!", letter)
	if lesson, ok := s.Lesson(letter); ok && lesson.Prompt != "" {
		prompt = lesson.Prompt
	}
	if childName != "" {
		return childName + ", " + prompt
	}
	return prompt
}

// Examples returns the example words for letter, or nil when unknown.
func (s *Store) Examples(letter string) []string {
	lesson, ok := s.Lesson(letter)
	if !ok {
		return nil
	}
	return lesson.Examples
}

// Activity returns the interactive activity for letter. A known lesson with
// no activity gets a generic fallback; an unknown letter returns "".
func (s *Store) Activity(letter string) string {
	lesson, ok := s.Lesson(letter)
	if !ok {
		return ""
	}
	if lesson.Activity == "" {
		return fmt.Sprintf("Can you think of a word that starts with %s?", strings.ToUpper(letter))
	}
	return lesson.Activity
}

// Reload re-reads the lessons file and swaps in the new table. On any
// failure the previously loaded table keeps serving and Reload returns
// false.
func (s *Store) Reload() bool {
	table, err := loadLessonsFile(s.path)
	if err != nil {
		slog.Error("curriculum: reload failed, keeping current lessons", "path", s.path, "err", err)
		return false
	}
	s.table.Store(&table)
	slog.Info("curriculum: lessons reloaded", "path", s.path, "letters", len(table))
	return true
}
