package curriculum_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kidsafe/alphatutor/internal/curriculum"
)

const sampleLessons = `
lessons:
  A:
    phoneme_clue: "ah"
    examples: ["Apple", "Ant"]
    activity: "Find something that starts with A!"
    prompt: "This is the letter A. Can you say 'ah'?"
  B:
    phoneme_clue: "buh"
    examples: ["Ball", "Book"]
    activity: "Bounce like a ball!"
    prompt: "This is the letter B. Can you say 'buh'?"
`

// writeLessons writes content to a temp lessons file and returns its path.
func writeLessons(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lessons.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write lessons file: %v", err)
	}
	return path
}

func TestStore_Lesson(t *testing.T) {
	t.Parallel()

	s := curriculum.New(writeLessons(t, sampleLessons))

	lesson, ok := s.Lesson("a")
	if !ok {
		t.Fatal("Lesson(\"a\"): ok=false, want true (lookup is case-insensitive)")
	}
	if lesson.PhonemeClue != "ah" {
		t.Errorf("PhonemeClue = %q, want %q", lesson.PhonemeClue, "ah")
	}
	if _, ok := s.Lesson("Q"); ok {
		t.Error("Lesson(\"Q\"): ok=true for a letter not in the table")
	}
}

func TestStore_FallbackOnMissingFile(t *testing.T) {
	t.Parallel()

	s := curriculum.New(filepath.Join(t.TempDir(), "nope.yaml"))

	if s.Letters() == 0 {
		t.Fatal("store with missing file has zero lessons; want built-in fallback")
	}
	if _, ok := s.Lesson("A"); !ok {
		t.Error("fallback table is missing the letter A")
	}
}

func TestStore_FallbackOnCorruptFile(t *testing.T) {
	t.Parallel()

	s := curriculum.New(writeLessons(t, "lessons: [not, a, mapping]"))
	if _, ok := s.Lesson("A"); !ok {
		t.Error("corrupt lessons file should fall back to built-in letter A")
	}
}

func TestStore_Activity(t *testing.T) {
	t.Parallel()

	s := curriculum.New(writeLessons(t, `
lessons:
  A:
    phoneme_clue: "ah"
    activity: "Find something that starts with A!"
    prompt: "This is the letter A."
  B:
    phoneme_clue: "buh"
    prompt: "This is the letter B."
`))

	if got := s.Activity("A"); got != "Find something that starts with A!" {
		t.Errorf("Activity(A) = %q, want the lesson's activity", got)
	}
	if got := s.Activity("b"); got != "Can you think of a word that starts with B?" {
		t.Errorf("Activity(b) = %q, want the generic fallback", got)
	}
	if got := s.Activity("Q"); got != "" {
		t.Errorf("Activity(Q) = %q, want empty for an unknown letter", got)
	}
}

func TestStore_NextLetter(t *testing.T) {
	t.Parallel()

	s := curriculum.New("")

	// Empty means "not started" and defaults the first letter to A.
	if next, ok := s.NextLetter(""); !ok || next != "A" {
		t.Errorf("NextLetter(\"\") = (%q, %v), want (\"A\", true)", next, ok)
	}
	// Z is terminal.
	if next, ok := s.NextLetter("Z"); ok {
		t.Errorf("NextLetter(\"Z\") = (%q, true), want no successor", next)
	}
	// Every letter A–Y advances by one.
	for c := byte('A'); c <= 'Y'; c++ {
		next, ok := s.NextLetter(string(c))
		if !ok || next != string(c+1) {
			t.Errorf("NextLetter(%q) = (%q, %v), want (%q, true)", string(c), next, ok, string(c+1))
		}
	}
	// Lowercase input works.
	if next, ok := s.NextLetter("m"); !ok || next != "N" {
		t.Errorf("NextLetter(\"m\") = (%q, %v), want (\"N\", true)", next, ok)
	}
}

func TestStore_ProgressPercentage(t *testing.T) {
	t.Parallel()

	s := curriculum.New("")

	tests := []struct {
		letter string
		want   float64
	}{
		{"", 0},
		{"A", 0},
		{"N", 52},
		{"Z", 100},
	}
	for _, tc := range tests {
		got := s.ProgressPercentage(tc.letter)
		if got != tc.want {
			t.Errorf("ProgressPercentage(%q) = %v, want %v", tc.letter, got, tc.want)
		}
	}
}

func TestStore_LessonPrompt(t *testing.T) {
	t.Parallel()

	s := curriculum.New(writeLessons(t, sampleLessons))

	got := s.LessonPrompt("A", "Lily")
	if !strings.HasPrefix(got, "Lily, ") {
		t.Errorf("LessonPrompt with name = %q, want %q prefix", got, "Lily, ")
	}
	got = s.LessonPrompt("X", "")
	if !strings.Contains(got, "letter X") {
		t.Errorf("LessonPrompt for unknown letter = %q, want generic prompt naming X", got)
	}
}

func TestStore_Reload(t *testing.T) {
	t.Parallel()

	path := writeLessons(t, sampleLessons)
	s := curriculum.New(path)

	// A good rewrite takes effect.
	updated := strings.Replace(sampleLessons, `"ah"`, `"aah"`, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite lessons: %v", err)
	}
	if !s.Reload() {
		t.Fatal("Reload of a valid file returned false")
	}
	if lesson, _ := s.Lesson("A"); lesson.PhonemeClue != "aah" {
		t.Errorf("after reload PhonemeClue = %q, want %q", lesson.PhonemeClue, "aah")
	}

	// A corrupt rewrite is rejected and the old table keeps serving.
	if err := os.WriteFile(path, []byte("{{{"), 0o644); err != nil {
		t.Fatalf("corrupt lessons: %v", err)
	}
	if s.Reload() {
		t.Fatal("Reload of a corrupt file returned true")
	}
	if lesson, ok := s.Lesson("B"); !ok || lesson.PhonemeClue != "buh" {
		t.Errorf("after failed reload Lesson(\"B\") = (%+v, %v), want previous table intact", lesson, ok)
	}
}
