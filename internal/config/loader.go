package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, validates the result, and
// applies defaults. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values and fills in
// defaults for unset fields. It returns a joined error listing all
// validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Tutor.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("tutor.max_turns %d is negative", cfg.Tutor.MaxTurns))
	}
	if cfg.Tutor.MaxTurns == 0 {
		cfg.Tutor.MaxTurns = DefaultMaxTurns
	}
	if cfg.Tutor.SessionIdleTTL < 0 {
		errs = append(errs, fmt.Errorf("tutor.session_idle_ttl %s is negative", cfg.Tutor.SessionIdleTTL.Std()))
	}
	if cfg.Tutor.WatchLessons && cfg.Tutor.LessonsFile == "" {
		errs = append(errs, fmt.Errorf("tutor.watch_lessons requires tutor.lessons_file to be set"))
	}

	if cfg.Safety.CensorToken == "" {
		cfg.Safety.CensorToken = "****"
	}
	if cfg.Safety.RedactionToken == "" {
		cfg.Safety.RedactionToken = "[REMOVED]"
	}

	return errors.Join(errs...)
}
