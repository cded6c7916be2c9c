// Package memory holds per-session conversation state for the tutor: a
// bounded FIFO window of conversation turns plus the derived facts extracted
// from them (current letter, child's name, difficulty signals).
//
// The Store is safe for concurrent use across different session IDs. Turns
// for the same session ID must not interleave — the caller (the voice
// pipeline) delivers one final transcript at a time per session and is
// responsible for serialising same-session calls.
package memory

import (
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one stored exchange entry.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Difficulty is an informational pacing signal. Only "easy" is assigned
// today; the field exists so future difficulty adaptation has a home.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DerivedState holds the facts inferred from a session's conversation,
// distinct from the raw history.
type DerivedState struct {
	// CurrentLetter is always a single uppercase letter A–Z. It stays at "Z"
	// after the curriculum completes unless the session is cleared.
	CurrentLetter string `json:"current_letter"`

	// ChildName is the child's name when one has been extracted, else empty.
	ChildName string `json:"child_name,omitempty"`

	// Difficulty is informational and does not branch logic yet.
	Difficulty Difficulty `json:"difficulty"`

	// LastMistake is the user input that most recently drew a
	// needs-practice response, cleared again on praise.
	LastMistake string `json:"last_mistake,omitempty"`

	// SessionStart is when the session was lazily created.
	SessionStart time.Time `json:"session_start"`

	// TotalInteractions counts calls to AddTurn.
	TotalInteractions int `json:"total_interactions"`
}

// Stats is the on-demand session statistics snapshot.
type Stats struct {
	SessionID         string `json:"session_id"`
	CurrentLetter     string `json:"current_letter"`
	ChildName         string `json:"child_name,omitempty"`
	TotalInteractions int    `json:"total_interactions"`
	DurationSeconds   int    `json:"duration_seconds"`
	TurnPairs         int    `json:"turn_pairs"`
}

// session is the full in-memory record for one session ID.
type session struct {
	history    []ConversationTurn
	state      DerivedState
	lastActive time.Time
}

// Store owns all per-session state. See the package comment for the
// concurrency contract.
type Store struct {
	mu       sync.RWMutex
	maxTurns int
	sessions map[string]*session
	now      func() time.Time
}

// Option is a functional option for configuring a [Store].
type Option func(*Store)

// WithClock replaces the wall clock. Tests use this to make durations and
// idle sweeps deterministic.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Store keeping at most maxTurns logical turns per session
// (2×maxTurns stored entries). A non-positive maxTurns falls back to 3.
func New(maxTurns int, opts ...Option) *Store {
	if maxTurns <= 0 {
		maxTurns = 3
	}
	s := &Store{
		maxTurns: maxTurns,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// getOrCreateLocked returns the session for id, lazily initialising it.
// Callers must hold s.mu for writing.
func (s *Store) getOrCreateLocked(id string) *session {
	sess, ok := s.sessions[id]
	if !ok {
		now := s.now()
		sess = &session{
			state: DerivedState{
				CurrentLetter: "A",
				Difficulty:    DifficultyEasy,
				SessionStart:  now,
			},
			lastActive: now,
		}
		s.sessions[id] = sess
		slog.Debug("memory: session created", "session_id", id)
	}
	return sess
}

// GetOrCreate ensures a session exists for id and returns a copy of its
// derived state. Unknown IDs are never a fault — they become fresh sessions.
func (s *Store) GetOrCreate(id string) DerivedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(id)
	sess.lastActive = s.now()
	return sess.state
}

// AddTurn appends the user and assistant entries for one logical turn,
// trims the window to the most recent 2×maxTurns entries, bumps the
// interaction counter, and re-runs derived-state extraction.
//
// An entry whose text is empty is skipped, but the interaction counter is
// incremented exactly once per call regardless.
func (s *Store) AddTurn(id, userText, assistantText string) DerivedState {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	now := s.now()
	sess.lastActive = now

	if userText != "" {
		sess.history = append(sess.history, ConversationTurn{Role: RoleUser, Text: userText, Timestamp: now})
	}
	if assistantText != "" {
		sess.history = append(sess.history, ConversationTurn{Role: RoleAssistant, Text: assistantText, Timestamp: now})
	}

	if max := 2 * s.maxTurns; len(sess.history) > max {
		sess.history = append(sess.history[:0:0], sess.history[len(sess.history)-max:]...)
	}

	sess.state.TotalInteractions++
	s.extractDerived(sess, userText, assistantText)

	return sess.state
}

// ProgressLetter overwrites the session's current letter with toLetter.
// It does not validate that fromLetter matches the stored letter — ordering
// is the caller's responsibility — and always reports success.
func (s *Store) ProgressLetter(id, fromLetter, toLetter string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	sess.lastActive = s.now()
	old := sess.state.CurrentLetter
	sess.state.CurrentLetter = toLetter

	slog.Info("memory: letter progression",
		"session_id", id, "from", old, "to", toLetter, "requested_from", fromLetter)
	return true
}

// DerivedState returns a copy of the session's derived state, creating the
// session when it does not exist.
func (s *Store) DerivedState(id string) DerivedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(id).state
}

// History returns a copy of the most recent limit turn entries for id, or
// the whole window when limit <= 0.
func (s *Store) History(id string, limit int) []ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	h := sess.history
	if limit > 0 && limit < len(h) {
		h = h[len(h)-limit:]
	}
	out := make([]ConversationTurn, len(h))
	copy(out, h)
	return out
}

// Clear deletes the session entirely. Returns false when no session existed
// for id — the parental dashboard reports that instead of treating it as an
// error.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	slog.Info("memory: session cleared", "session_id", id)
	return true
}

// Stats returns the statistics snapshot for id. Duration is computed from
// the wall clock on demand; a zero start timestamp yields 0.
func (s *Store) Stats(id string) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getOrCreateLocked(id)
	duration := 0
	if !sess.state.SessionStart.IsZero() {
		duration = int(s.now().Sub(sess.state.SessionStart).Seconds())
	}
	return Stats{
		SessionID:         id,
		CurrentLetter:     sess.state.CurrentLetter,
		ChildName:         sess.state.ChildName,
		TotalInteractions: sess.state.TotalInteractions,
		DurationSeconds:   duration,
		TurnPairs:         len(sess.history) / 2,
	}
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// namePhrases are scanned in order; a valid candidate from a later phrase
// overwrites one from an earlier phrase in the same call.
var namePhrases = []string{"my name is", "i'm", "i am"}

// needsPractice and praise phrases classify assistant responses to maintain
// the last-mistake signal. Not used to alter pacing yet.
var (
	needsPracticePhrases = []string{"try again", "not quite", "almost"}
	praisePhrases        = []string{"great", "excellent", "perfect"}
)

// extractDerived updates derived state from one turn's texts.
// Callers must hold s.mu for writing.
func (s *Store) extractDerived(sess *session, userText, assistantText string) {
	userLower := strings.ToLower(userText)

	for _, phrase := range namePhrases {
		idx := strings.LastIndex(userLower, phrase)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(userLower[idx+len(phrase):])
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if name, ok := normalizeName(fields[0]); ok {
			sess.state.ChildName = name
			slog.Info("memory: child name identified", "name", name)
		}
	}

	assistantLower := strings.ToLower(assistantText)
	for _, phrase := range needsPracticePhrases {
		if strings.Contains(assistantLower, phrase) {
			sess.state.LastMistake = userText
			return
		}
	}
	for _, phrase := range praisePhrases {
		if strings.Contains(assistantLower, phrase) {
			sess.state.LastMistake = ""
			return
		}
	}
}

// normalizeName accepts a candidate name token only when it is purely
// alphabetic and longer than one character, returning it capitalised.
func normalizeName(token string) (string, bool) {
	runes := []rune(token)
	if len(runes) <= 1 {
		return "", false
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			return "", false
		}
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes), true
}
