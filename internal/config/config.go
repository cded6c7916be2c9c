// Package config provides the configuration schema and loader for the
// alphatutor server.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps [time.Duration] so YAML configs can use values like "30m"
// or "1h30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler using [time.ParseDuration].
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a standard [time.Duration].
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LogLevel controls log verbosity for the alphatutor server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for alphatutor.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server ServerConfig `yaml:"server"`
	Tutor  TutorConfig  `yaml:"tutor"`
	Safety SafetyConfig `yaml:"safety"`
}

// ServerConfig holds network and logging settings for the alphatutor server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// TutorConfig holds settings for the tutoring session core.
type TutorConfig struct {
	// LessonsFile is the path to the YAML lesson table. When the file is
	// missing or corrupt the curriculum store falls back to its built-in
	// minimal lesson set.
	LessonsFile string `yaml:"lessons_file"`

	// MaxTurns is the number of logical conversation turns kept per session.
	// The stored window holds up to 2×MaxTurns entries (one user and one
	// assistant entry per turn). Defaults to 3.
	MaxTurns int `yaml:"max_turns"`

	// SessionIdleTTL is how long a session may stay inactive before the
	// background sweeper drops it. Zero disables the sweeper.
	SessionIdleTTL Duration `yaml:"session_idle_ttl"`

	// WatchLessons enables polling the lessons file for changes and
	// hot-reloading the curriculum when it is modified.
	WatchLessons bool `yaml:"watch_lessons"`
}

// SafetyConfig holds content moderation settings.
type SafetyConfig struct {
	// CensorToken replaces profane spans in cleaned text. Defaults to "****".
	CensorToken string `yaml:"censor_token"`

	// RedactionToken replaces detected PII spans. Defaults to "[REMOVED]".
	RedactionToken string `yaml:"redaction_token"`

	// ParentalGate requires a gate challenge answer for destructive
	// operations such as clearing a session.
	ParentalGate bool `yaml:"parental_gate"`
}

// Default values applied by [Validate] when fields are unset.
const (
	DefaultListenAddr = ":8080"
	DefaultMaxTurns   = 3
)
