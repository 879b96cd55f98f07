package harness

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Step actions understood by the runner.
const (
	ActionConnect         = "connect"
	ActionDisconnect      = "disconnect"
	ActionReconnect       = "reconnect"
	ActionSubscribe       = "subscribe"
	ActionUnsubscribe     = "unsubscribe"
	ActionControl         = "control"
	ActionSetMTU          = "set_mtu"
	ActionExpectStreaming = "expect_streaming"
	ActionExpectQuiet     = "expect_quiet"
)

// Scenario is a single end-to-end scenario loaded from YAML.
type Scenario struct {
	// ID is the unique scenario identifier (e.g., "SC-STREAM-001").
	ID string `yaml:"id"`

	// Name is a human-readable name for the scenario.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Steps are the actions to execute in order.
	Steps []Step `yaml:"steps"`
}

// Step is one action in a scenario.
type Step struct {
	// Action names what to do.
	Action string `yaml:"action"`

	// Payload is a hex-encoded control write (control action only).
	Payload string `yaml:"payload,omitempty"`

	// MTU is the receive MTU to announce (set_mtu action only).
	MTU uint16 `yaml:"mtu,omitempty"`

	// Min is the minimum notification count for expect_streaming
	// (default 1).
	Min int `yaml:"min,omitempty"`

	// Window bounds the observation for expect_streaming and
	// expect_quiet (e.g. "500ms").
	Window string `yaml:"window,omitempty"`

	// Description explains what this step does.
	Description string `yaml:"description,omitempty"`
}

// WindowDuration parses the step's observation window, applying the
// fallback when unset.
func (s *Step) WindowDuration(fallback time.Duration) (time.Duration, error) {
	if s.Window == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s.Window)
	if err != nil {
		return 0, fmt.Errorf("invalid window %q: %w", s.Window, err)
	}
	return d, nil
}

// knownActions guards against typos in scenario files.
var knownActions = map[string]bool{
	ActionConnect:         true,
	ActionDisconnect:      true,
	ActionReconnect:       true,
	ActionSubscribe:       true,
	ActionUnsubscribe:     true,
	ActionControl:         true,
	ActionSetMTU:          true,
	ActionExpectStreaming: true,
	ActionExpectQuiet:     true,
}

// ParseScenario parses a scenario from YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sc.ID == "" {
		return nil, fmt.Errorf("scenario ID is required")
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", sc.ID)
	}

	for i, step := range sc.Steps {
		if !knownActions[step.Action] {
			return nil, fmt.Errorf("scenario %s step %d: unknown action %q", sc.ID, i, step.Action)
		}
		if step.Action == ActionControl {
			if step.Payload == "" {
				return nil, fmt.Errorf("scenario %s step %d: control needs a payload", sc.ID, i)
			}
			if _, err := hex.DecodeString(step.Payload); err != nil {
				return nil, fmt.Errorf("scenario %s step %d: invalid payload %q: %w", sc.ID, i, step.Payload, err)
			}
		}
		if step.Window != "" {
			if _, err := time.ParseDuration(step.Window); err != nil {
				return nil, fmt.Errorf("scenario %s step %d: invalid window %q: %w", sc.ID, i, step.Window, err)
			}
		}
		if step.Action == ActionSetMTU && step.MTU == 0 {
			return nil, fmt.Errorf("scenario %s step %d: set_mtu needs an mtu", sc.ID, i)
		}
	}

	return &sc, nil
}

// LoadScenario loads a scenario from a file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// LoadDirectory loads all scenarios from a directory. Only files with
// .yaml or .yml extensions are loaded.
func LoadDirectory(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		sc, err := LoadScenario(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}

	return scenarios, nil
}
