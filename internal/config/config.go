// Package config loads and validates contend configuration.
//
// Configuration comes from YAML (.yaml, .yml) or CUE (.cue) files. Whatever
// the source, the result is checked against the embedded CUE schema and the
// version is gated with a semver constraint. Invalid values are reported,
// never clamped.
package config

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Policy kinds accepted in configuration.
const (
	PolicyNone        = "none"
	PolicyRoundRobin  = "round-robin"
	PolicyRandom      = "random"
	PolicyOldestFirst = "oldest-first"
)

// SupportedVersions is the semver constraint every config version must satisfy.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

// Config is the recognized configuration surface.
type Config struct {
	Version        string       `yaml:"version" json:"version"`
	BufferCapacity int          `yaml:"buffer_capacity" json:"buffer_capacity"`
	ActorCount     int          `yaml:"actor_count" json:"actor_count"`
	Policy         PolicyConfig `yaml:"policy" json:"policy"`

	// Tick is the automatic-mode step interval as a Go duration string.
	Tick string `yaml:"tick" json:"tick"`

	// Steps bounds an automatic run. Zero runs until stopped.
	Steps int `yaml:"steps" json:"steps"`

	// ResetOnStop returns the ring to its initial state when an automatic run stops.
	ResetOnStop bool `yaml:"reset_on_stop" json:"reset_on_stop"`
}

// PolicyConfig selects the automatic-mode policy.
type PolicyConfig struct {
	Kind string `yaml:"kind" json:"kind"`
	Seed uint64 `yaml:"seed" json:"seed"`
}

// Default returns the configuration used when nothing is specified:
// a 5-slot buffer, 5 actors, manual mode.
func Default() Config {
	return Config{
		Version:        "1.0.0",
		BufferCapacity: 5,
		ActorCount:     5,
		Policy:         PolicyConfig{Kind: PolicyNone},
		Tick:           "250ms",
	}
}

// Automatic reports whether a policy other than none is configured.
func (c Config) Automatic() bool {
	return c.Policy.Kind != "" && c.Policy.Kind != PolicyNone
}

// TickInterval parses Tick. Zero means no delay between steps.
func (c Config) TickInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Tick)
	if err != nil {
		return 0, fmt.Errorf("invalid tick %q: %w", c.Tick, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid tick %q: must not be negative", c.Tick)
	}
	return d, nil
}

// Validate checks c against the schema, the version constraint and the tick format.
func (c Config) Validate() error {
	if err := checkVersion(c.Version); err != nil {
		return err
	}
	if err := validateSchema(c); err != nil {
		return err
	}
	if _, err := c.TickInterval(); err != nil {
		return err
	}
	return nil
}

func checkVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid config version %q: %w", version, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return fmt.Errorf("parse version constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("config version %s not supported (want %s)", v, SupportedVersions)
	}
	return nil
}
