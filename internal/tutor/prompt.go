package tutor

import (
	"fmt"
	"strings"

	"github.com/kidsafe/alphatutor/internal/curriculum"
	"github.com/kidsafe/alphatutor/internal/memory"
)

// SystemPrompt builds the persona instruction for a downstream speech agent,
// personalised from the session's derived state. Safe to call for unknown
// session IDs; a fresh session's defaults are used.
func (o *Orchestrator) SystemPrompt(sessionID string) string {
	state := o.memory.GetOrCreate(sessionID)

	var b strings.Builder
	b.WriteString("You are a friendly, patient alphabet tutor for young children. ")
	b.WriteString("Speak in short, cheerful sentences a 4 year old understands. ")
	b.WriteString("Never discuss anything except letters, sounds, and simple words. ")
	fmt.Fprintf(&b, "The current letter is %s. ", state.CurrentLetter)
	if state.ChildName != "" {
		fmt.Fprintf(&b, "The child's name is %s; use it warmly. ", state.ChildName)
	}
	if state.LastMistake != "" {
		b.WriteString("The child struggled on their last attempt, so be extra encouraging. ")
	}
	fmt.Fprintf(&b, "Difficulty level: %s.", state.Difficulty)
	return b.String()
}

// SessionContext snapshots everything a caller needs to render or resume a
// session: derived state, the recent conversation window, usage stats and
// the lesson currently being taught.
type SessionContext struct {
	SessionID string                    `json:"session_id"`
	State     memory.DerivedState       `json:"state"`
	History   []memory.ConversationTurn `json:"history"`
	Stats     memory.Stats              `json:"stats"`
	Lesson    curriculum.LessonEntry    `json:"lesson"`
	Progress  float64                   `json:"progress_percentage"`
	Complete  bool                      `json:"curriculum_complete"`
}

// SessionContext returns the current snapshot for sessionID.
func (o *Orchestrator) SessionContext(sessionID string) SessionContext {
	state := o.memory.GetOrCreate(sessionID)
	lesson, _ := o.curriculum.Lesson(state.CurrentLetter)
	return SessionContext{
		SessionID: sessionID,
		State:     state,
		History:   o.memory.History(sessionID, 0),
		Stats:     o.memory.Stats(sessionID),
		Lesson:    lesson,
		Progress:  o.curriculum.ProgressPercentage(state.CurrentLetter),
		Complete:  o.curriculum.IsComplete(state.CurrentLetter),
	}
}
