package tutor_test

import (
	"context"
	"strings"
	"testing"

	"github.com/kidsafe/alphatutor/internal/curriculum"
	"github.com/kidsafe/alphatutor/internal/memory"
	"github.com/kidsafe/alphatutor/internal/phoneme"
	"github.com/kidsafe/alphatutor/internal/safety"
	"github.com/kidsafe/alphatutor/internal/tutor"
)

// newTestTutor builds an orchestrator over fresh components. The curriculum
// store runs on its built-in fallback table, which is enough because lesson
// prompts degrade gracefully for letters without an entry.
func newTestTutor(t *testing.T) (*tutor.Orchestrator, *memory.Store, *curriculum.Store) {
	t.Helper()
	cur := curriculum.New("")
	mem := memory.New(3)
	orch := tutor.New(cur, safety.New(), phoneme.New(), mem)
	return orch, mem, cur
}

func TestProcess_CorrectPronunciationAdvances(t *testing.T) {
	t.Parallel()
	orch, mem, _ := newTestTutor(t)

	resp, meta := orch.Process(context.Background(), "s1", "say a")

	if !meta.IsCorrect {
		t.Error("is_correct = false, want true")
	}
	if !meta.ProgressMade {
		t.Error("progress_made = false, want true")
	}
	if meta.NewLetter != "B" {
		t.Errorf("new_letter = %q, want B", meta.NewLetter)
	}
	if meta.CurrentLetter != "A" {
		t.Errorf("current_letter = %q, want A (letter at turn start)", meta.CurrentLetter)
	}
	if !strings.Contains(resp, "Now let's learn B!") {
		t.Errorf("response %q missing progression text", resp)
	}
	if got := mem.DerivedState("s1").CurrentLetter; got != "B" {
		t.Errorf("stored letter = %q, want B", got)
	}
}

func TestProcess_IncorrectHoldsLetter(t *testing.T) {
	t.Parallel()
	orch, mem, _ := newTestTutor(t)

	// "the word zoo" passes the on-topic gate via "word" but shares no sound
	// with the letter A.
	resp, meta := orch.Process(context.Background(), "s1", "the word zoo")

	if meta.IsCorrect {
		t.Error("is_correct = true, want false")
	}
	if !meta.NeedsPractice {
		t.Error("needs_practice = false, want true")
	}
	if meta.ProgressMade {
		t.Error("progress_made = true, want false")
	}
	if !strings.Contains(resp, "'A'") {
		t.Errorf("response %q does not mention the target letter", resp)
	}
	if got := mem.DerivedState("s1").CurrentLetter; got != "A" {
		t.Errorf("stored letter = %q, want A", got)
	}
}

func TestProcess_UnsafeInputShortCircuits(t *testing.T) {
	t.Parallel()
	orch, mem, _ := newTestTutor(t)

	resp, meta := orch.Process(context.Background(), "s1", "you are stupid")

	if len(meta.Violations) != 1 || meta.Violations[0] != "inappropriate_language" {
		t.Errorf("violations = %v, want [inappropriate_language]", meta.Violations)
	}
	if resp != "Let's use kind words! Can we try saying that in a nicer way?" {
		t.Errorf("response = %q, want profanity remediation", resp)
	}
	if meta.IsCorrect {
		t.Error("unsafe input must never be scored correct")
	}

	// Continuity: the unsafe turn is still stored verbatim.
	history := mem.History("s1", 0)
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Text != "you are stupid" {
		t.Errorf("stored user text = %q, want raw input", history[0].Text)
	}
}

func TestProcess_OffTopicRedirect(t *testing.T) {
	t.Parallel()
	orch, mem, _ := newTestTutor(t)

	resp, meta := orch.Process(context.Background(), "s1", "tell me about dinosaurs")

	if !meta.InappropriateRequest {
		t.Error("inappropriate_request = false, want true")
	}
	if resp != "Let's focus on learning letters! What letter would you like to practice?" {
		t.Errorf("response = %q, want fixed redirect", resp)
	}
	if got := mem.DerivedState("s1").CurrentLetter; got != "A" {
		t.Errorf("stored letter = %q, want A", got)
	}
}

func TestProcess_HelpCommand(t *testing.T) {
	t.Parallel()
	orch, _, cur := newTestTutor(t)

	resp, meta := orch.Process(context.Background(), "s1", "help")

	if meta.Command != "help" {
		t.Errorf("command = %q, want help", meta.Command)
	}
	if want := cur.LessonPrompt("A", ""); resp != want {
		t.Errorf("response = %q, want lesson prompt %q", resp, want)
	}
}

func TestProcess_RepeatReplaysLastResponse(t *testing.T) {
	t.Parallel()
	orch, _, _ := newTestTutor(t)
	ctx := context.Background()

	first, _ := orch.Process(ctx, "s1", "say a")
	resp, meta := orch.Process(ctx, "s1", "say that again")

	if meta.Command != "repeat" {
		t.Errorf("command = %q, want repeat", meta.Command)
	}
	if resp != first {
		t.Errorf("repeat response = %q, want previous response %q", resp, first)
	}
}

func TestProcess_RepeatWithoutHistory(t *testing.T) {
	t.Parallel()
	orch, _, cur := newTestTutor(t)

	resp, meta := orch.Process(context.Background(), "s1", "repeat")

	if meta.Command != "repeat" {
		t.Errorf("command = %q, want repeat", meta.Command)
	}
	if want := cur.LessonPrompt("A", ""); resp != want {
		t.Errorf("response = %q, want lesson prompt %q", resp, want)
	}
}

func TestProcess_SkipAdvancesRegardlessOfPronunciation(t *testing.T) {
	t.Parallel()
	orch, mem, _ := newTestTutor(t)

	resp, meta := orch.Process(context.Background(), "s1", "skip this letter")

	if meta.Command != "skip" {
		t.Errorf("command = %q, want skip", meta.Command)
	}
	if meta.NewLetter != "B" {
		t.Errorf("new_letter = %q, want B", meta.NewLetter)
	}
	if !strings.HasPrefix(resp, "Okay! ") {
		t.Errorf("response %q missing skip acknowledgement", resp)
	}
	if got := mem.DerivedState("s1").CurrentLetter; got != "B" {
		t.Errorf("stored letter = %q, want B", got)
	}
}

func TestProcess_SkipAtEndOfAlphabet(t *testing.T) {
	t.Parallel()
	orch, mem, _ := newTestTutor(t)

	mem.GetOrCreate("s1")
	mem.ProgressLetter("s1", "A", "Z")

	_, meta := orch.Process(context.Background(), "s1", "skip")

	if !meta.CurriculumComplete {
		t.Error("curriculum_complete = false, want true")
	}
	if got := mem.DerivedState("s1").CurrentLetter; got != "Z" {
		t.Errorf("stored letter = %q, want Z", got)
	}
}

func TestProcess_CompletionAtZ(t *testing.T) {
	t.Parallel()
	orch, mem, _ := newTestTutor(t)

	mem.GetOrCreate("s1")
	mem.ProgressLetter("s1", "A", "Z")

	resp, meta := orch.Process(context.Background(), "s1", "say z")

	if !meta.IsCorrect {
		t.Error("is_correct = false, want true")
	}
	if !meta.CurriculumComplete {
		t.Error("curriculum_complete = false, want true")
	}
	if meta.ProgressMade {
		t.Error("progress_made = true, want false at end of alphabet")
	}
	if !strings.Contains(resp, "You've learned the whole alphabet!") {
		t.Errorf("response %q missing completion celebration", resp)
	}
	if got := mem.DerivedState("s1").CurrentLetter; got != "Z" {
		t.Errorf("stored letter = %q, want Z", got)
	}
}

func TestProcess_FullAlphabetRun(t *testing.T) {
	t.Parallel()
	orch, mem, _ := newTestTutor(t)
	ctx := context.Background()

	for c := 'a'; c <= 'y'; c++ {
		_, meta := orch.Process(ctx, "s1", "say "+string(c))
		if !meta.ProgressMade {
			t.Fatalf("no progress on letter %c", c)
		}
	}
	if got := mem.DerivedState("s1").CurrentLetter; got != "Z" {
		t.Fatalf("letter after full run = %q, want Z", got)
	}

	_, meta := orch.Process(ctx, "s1", "say z")
	if !meta.CurriculumComplete {
		t.Error("curriculum_complete = false after correct Z")
	}
}

func TestProcess_SessionsAreIndependent(t *testing.T) {
	t.Parallel()
	orch, mem, _ := newTestTutor(t)
	ctx := context.Background()

	orch.Process(ctx, "fast", "say a")
	orch.Process(ctx, "fast", "say b")

	if got := mem.DerivedState("fast").CurrentLetter; got != "C" {
		t.Errorf("fast session letter = %q, want C", got)
	}
	if got := mem.DerivedState("slow").CurrentLetter; got != "A" {
		t.Errorf("slow session letter = %q, want A", got)
	}
}

func TestSystemPrompt_Personalised(t *testing.T) {
	t.Parallel()
	orch, _, _ := newTestTutor(t)
	ctx := context.Background()

	orch.Process(ctx, "s1", "my name is Lily")

	prompt := orch.SystemPrompt("s1")
	if !strings.Contains(prompt, "Lily") {
		t.Errorf("system prompt missing child name: %q", prompt)
	}
	if !strings.Contains(prompt, "current letter is A") {
		t.Errorf("system prompt missing current letter: %q", prompt)
	}
}

func TestSessionContext_Snapshot(t *testing.T) {
	t.Parallel()
	orch, _, _ := newTestTutor(t)
	ctx := context.Background()

	orch.Process(ctx, "s1", "say a")

	sc := orch.SessionContext("s1")
	if sc.State.CurrentLetter != "B" {
		t.Errorf("context letter = %q, want B", sc.State.CurrentLetter)
	}
	if len(sc.History) != 2 {
		t.Errorf("context history length = %d, want 2", len(sc.History))
	}
	if sc.Progress != 4 {
		t.Errorf("progress = %v, want 4", sc.Progress)
	}
	if sc.Stats.TotalInteractions != 1 {
		t.Errorf("stats interactions = %d, want 1", sc.Stats.TotalInteractions)
	}
	if sc.Complete {
		t.Error("complete = true, want false")
	}
}
