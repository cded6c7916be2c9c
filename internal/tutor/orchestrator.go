// Package tutor composes the safety filter, pronunciation scorer, curriculum
// store, and session memory into the per-turn tutoring loop.
//
// Letter progression only ever moves forward or holds; the one out-of-band
// transition is the child-initiated skip command. There is no backward
// transition.
package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kidsafe/alphatutor/internal/curriculum"
	"github.com/kidsafe/alphatutor/internal/memory"
	"github.com/kidsafe/alphatutor/internal/observe"
	"github.com/kidsafe/alphatutor/internal/phoneme"
	"github.com/kidsafe/alphatutor/internal/safety"
)

// Metadata is the structured per-turn result returned alongside the spoken
// response. Optional fields are omitted from JSON when absent.
type Metadata struct {
	CurrentLetter        string   `json:"current_letter"`
	IsCorrect            bool     `json:"is_correct"`
	NeedsPractice        bool     `json:"needs_practice"`
	ProgressMade         bool     `json:"progress_made"`
	NewLetter            string   `json:"new_letter,omitempty"`
	CurriculumComplete   bool     `json:"curriculum_complete,omitempty"`
	Violations           []string `json:"violations,omitempty"`
	InappropriateRequest bool     `json:"inappropriate_request,omitempty"`
	Command              string   `json:"command,omitempty"`
	HeardLetter          string   `json:"heard_letter,omitempty"`
	Accuracy             float64  `json:"accuracy"`
}

// correctThreshold is the scorer accuracy at or above which a pronunciation
// counts as correct for letter progression. Matches the scorer's second
// feedback band.
const correctThreshold = 0.6

// onTopicRedirect is the fixed response for safe but off-topic input.
const onTopicRedirect = "Let's focus on learning letters! What letter would you like to practice?"

// Orchestrator drives one tutoring session turn at a time. All dependencies
// are injected at construction; the orchestrator holds no per-session state
// of its own and is safe for concurrent use across different session IDs.
type Orchestrator struct {
	curriculum *curriculum.Store
	safety     *safety.Filter
	scorer     *phoneme.Scorer
	memory     *memory.Store
	metrics    *observe.Metrics
}

// Option is a functional option for configuring an [Orchestrator].
type Option func(*Orchestrator)

// WithMetrics attaches an [observe.Metrics] instance. When nil (the
// default), no metrics are recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New creates an Orchestrator over the given components.
func New(cur *curriculum.Store, saf *safety.Filter, scorer *phoneme.Scorer, mem *memory.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		curriculum: cur,
		safety:     saf,
		scorer:     scorer,
		memory:     mem,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs one tutoring turn for sessionID over the transcribed child
// utterance rawInput and returns the spoken response plus turn metadata.
//
// Order of checks: safety always first; then special commands (help,
// repeat, skip); then the on-topic gate; then pronunciation scoring and
// letter progression. Every path ends with a memory write so the next turn
// sees updated derived state.
func (o *Orchestrator) Process(ctx context.Context, sessionID, rawInput string) (string, Metadata) {
	start := time.Now()
	state := o.memory.GetOrCreate(sessionID)

	response, meta := o.processTurn(sessionID, rawInput, state)

	o.memory.AddTurn(sessionID, rawInput, response)

	if o.metrics != nil {
		o.metrics.RecordTurn(ctx, time.Since(start))
		for _, code := range meta.Violations {
			o.metrics.RecordViolation(ctx, code)
		}
		if meta.Command != "" {
			o.metrics.RecordCommand(ctx, meta.Command)
		}
		if meta.NewLetter != "" {
			o.metrics.RecordProgression(ctx, meta.NewLetter)
		}
	}

	slog.Debug("tutor: turn processed",
		"session_id", sessionID,
		"letter", meta.CurrentLetter,
		"correct", meta.IsCorrect,
		"progress", meta.ProgressMade,
		"violations", len(meta.Violations),
	)
	return response, meta
}

// processTurn holds the per-turn decision logic; Process wraps it with the
// trailing memory write and metrics.
func (o *Orchestrator) processTurn(sessionID, rawInput string, state memory.DerivedState) (string, Metadata) {
	meta := Metadata{CurrentLetter: state.CurrentLetter}

	// 1. Safety short-circuit. The unsafe input is still remembered (via the
	// AddTurn in Process) to preserve conversational continuity, but it is
	// never scored.
	res := o.safety.Moderate(rawInput)
	if !res.Safe {
		meta.Violations = safety.Codes(res.Violations)
		meta.NeedsPractice = true
		slog.Warn("tutor: unsafe input", "session_id", sessionID, "violations", meta.Violations)
		return o.safety.Remediation(res.Violations), meta
	}

	// 2. Special commands beat scoring and the on-topic gate, but never the
	// safety check above.
	if response, cmdMeta, ok := o.specialCommand(sessionID, res.Cleaned, state); ok {
		return response, cmdMeta
	}

	// 3. On-topic gate.
	if !o.safety.IsOnTopic(res.Cleaned) {
		meta.InappropriateRequest = true
		meta.NeedsPractice = true
		return onTopicRedirect, meta
	}

	// 4. Pronunciation scoring against the session's current letter.
	return o.scoreAndProgress(sessionID, res.Cleaned, state)
}

// specialCommand recognises help / repeat / skip phrases on the lowercased,
// trimmed input. Returns ok=false when the input is not a command.
func (o *Orchestrator) specialCommand(sessionID, input string, state memory.DerivedState) (string, Metadata, bool) {
	lower := strings.ToLower(strings.TrimSpace(input))
	meta := Metadata{CurrentLetter: state.CurrentLetter}

	switch lower {
	case "help", "what do i do", "i don't know":
		meta.Command = "help"
		return o.curriculum.LessonPrompt(state.CurrentLetter, state.ChildName), meta, true

	case "repeat", "say that again", "what":
		history := o.memory.History(sessionID, 2)
		if n := len(history); n > 0 && history[n-1].Role == memory.RoleAssistant {
			meta.Command = "repeat"
			return history[n-1].Text, meta, true
		}
		// Nothing to replay yet; reintroduce the current lesson instead.
		meta.Command = "repeat"
		return o.curriculum.LessonPrompt(state.CurrentLetter, state.ChildName), meta, true
	}

	if strings.Contains(lower, "next letter") || strings.Contains(lower, "skip") {
		next, ok := o.curriculum.NextLetter(state.CurrentLetter)
		if !ok {
			meta.Command = "skip"
			meta.CurriculumComplete = true
			return "You've already reached the end of the alphabet! What a superstar!", meta, true
		}
		o.memory.ProgressLetter(sessionID, state.CurrentLetter, next)
		meta.Command = "skip"
		meta.NewLetter = next
		return "Okay! " + o.curriculum.LessonPrompt(next, state.ChildName), meta, true
	}

	return "", Metadata{}, false
}

// scoreAndProgress runs the pronunciation scorer and applies the letter
// progression rules.
func (o *Orchestrator) scoreAndProgress(sessionID, input string, state memory.DerivedState) (string, Metadata) {
	analysis := o.scorer.Analyze(input, state.CurrentLetter)
	correct := analysis.Accuracy >= correctThreshold

	meta := Metadata{
		CurrentLetter: state.CurrentLetter,
		IsCorrect:     correct,
		NeedsPractice: !correct,
		Accuracy:      analysis.Accuracy,
	}

	// Diagnostic only: which letter name did the child most likely say?
	if heard, _, ok := o.scorer.ClosestLetter(input); ok {
		meta.HeardLetter = heard
	}

	if !correct {
		// Hold the current letter; the scorer's feedback is the response.
		return analysis.Feedback, meta
	}

	next, ok := o.curriculum.NextLetter(state.CurrentLetter)
	if !ok {
		// Already at Z: celebrate, letter stays put.
		meta.CurriculumComplete = true
		return analysis.Feedback + " Wow! You've learned the whole alphabet! You're amazing!", meta
	}

	o.memory.ProgressLetter(sessionID, state.CurrentLetter, next)
	meta.ProgressMade = true
	meta.NewLetter = next

	return fmt.Sprintf("%s Now let's learn %s! %s",
		analysis.Feedback, next, o.curriculum.LessonPrompt(next, state.ChildName)), meta
}
