package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/contend/internal/config"
	"github.com/roach88/contend/internal/engine"
	"github.com/roach88/contend/internal/ring"
)

// Scenario is one deterministic simulation test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID fixes the engine's run id. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Config is merged over config.Default().
	Config config.Config `yaml:"config,omitempty"`

	// Steps are executed in order, each through engine.Execute.
	Steps []Step `yaml:"steps,omitempty"`

	// AutoSteps, if positive, drives the ring with the configured policy
	// for that many toggles after Steps.
	AutoSteps int `yaml:"auto_steps,omitempty"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one command with an optional expectation.
type Step struct {
	// Do is a command in shell syntax, e.g. "produce 3" or "activate 1".
	Do string `yaml:"do"`

	// Expect, if set, is checked against the command's result.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is a subset match on engine.Result: only set fields are compared.
type Expect struct {
	Status string `yaml:"status"`
	Code   string `yaml:"code,omitempty"`
	Item   *int64 `yaml:"item,omitempty"`
	Size   *int   `yaml:"size,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Items is the expected buffer contents (buffer_items).
	Items []int64 `yaml:"items,omitempty"`

	// Size is the expected buffer length (buffer_size).
	Size *int `yaml:"size,omitempty"`

	// States maps actor id to expected state (actor_states).
	States map[int]string `yaml:"states,omitempty"`

	// Counts maps actor id to expected activations (activations).
	Counts map[int]int `yaml:"counts,omitempty"`

	// Source and Kind select trace events (event_count).
	Source string `yaml:"source,omitempty"`
	Kind   string `yaml:"kind,omitempty"`

	// Count is the expected number of matching events (event_count).
	Count *int `yaml:"count,omitempty"`

	// Min is the activation threshold (starved).
	Min int `yaml:"min,omitempty"`

	// Actors is the expected starved set, ascending (starved).
	Actors []int `yaml:"actors,omitempty"`
}

// Assertion type constants.
const (
	AssertBufferItems = "buffer_items"
	AssertBufferSize  = "buffer_size"
	AssertActorStates = "actor_states"
	AssertActivations = "activations"
	AssertInvariants  = "invariants"
	AssertEventCount  = "event_count"
	AssertStarved     = "starved"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	scenario := Scenario{Config: config.Default()}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid scenario: empty file")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios lists the .yaml and .yml files under dir, sorted, whose base
// name (without extension) matches the glob filter. An empty filter matches all.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 && s.AutoSteps == 0 {
		return fmt.Errorf("steps or auto_steps is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if err := s.Config.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if s.AutoSteps < 0 {
		return fmt.Errorf("auto_steps must be non-negative")
	}
	if s.AutoSteps > 0 && !s.Config.Automatic() {
		return fmt.Errorf("auto_steps requires config.policy.kind")
	}

	for i, step := range s.Steps {
		if step.Do == "" {
			return fmt.Errorf("steps[%d]: do is required", i)
		}
		if _, err := engine.ParseCommand(step.Do); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Status == "" {
			return fmt.Errorf("steps[%d].expect: status is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertBufferItems:
		if a.Items == nil {
			return fmt.Errorf("assertions[%d]: items is required for buffer_items (use [] for empty)", index)
		}
	case AssertBufferSize:
		if a.Size == nil {
			return fmt.Errorf("assertions[%d]: size is required for buffer_size", index)
		}
	case AssertActorStates:
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states is required for actor_states", index)
		}
		for id, st := range a.States {
			switch ring.State(st) {
			case ring.StateThinking, ring.StateWaiting, ring.StateActive:
			default:
				return fmt.Errorf("assertions[%d]: actor %d: unknown state %q", index, id, st)
			}
		}
	case AssertActivations:
		if len(a.Counts) == 0 {
			return fmt.Errorf("assertions[%d]: counts is required for activations", index)
		}
	case AssertInvariants:
	case AssertEventCount:
		if a.Source == "" || a.Kind == "" {
			return fmt.Errorf("assertions[%d]: source and kind are required for event_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for event_count", index)
		}
	case AssertStarved:
		if a.Min <= 0 {
			return fmt.Errorf("assertions[%d]: positive min is required for starved", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
