package safety

import (
	"fmt"
	"math/rand"
	"strings"
)

// GateChallenge is a simple arithmetic question used to gate destructive or
// administrative actions behind an adult. The expected answer travels with
// the challenge so the check stays stateless.
type GateChallenge struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// NewGateChallenge generates a parental gate challenge: the sum of two
// single-digit-ish numbers. Trivial for an adult, enough to stop a
// three-year-old tapping buttons.
func NewGateChallenge() GateChallenge {
	a := rand.Intn(10) + 1
	b := rand.Intn(10) + 1
	return GateChallenge{
		Question: fmt.Sprintf("What is %d + %d?", a, b),
		Answer:   fmt.Sprintf("%d", a+b),
	}
}

// ValidateGate reports whether answer matches expected, ignoring surrounding
// whitespace.
func ValidateGate(answer, expected string) bool {
	return strings.TrimSpace(answer) == strings.TrimSpace(expected) && strings.TrimSpace(expected) != ""
}
