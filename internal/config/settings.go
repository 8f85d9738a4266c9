package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const settingsFileName = "config.yaml"

// Settings holds optional per-project overrides loaded from
// .ralph/config.yaml. Every field is optional; CLI flags win over file values.
type Settings struct {
	// MaxIterations overrides the default iteration budget.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// AgentCommand overrides the agent binary name.
	AgentCommand string `yaml:"agent_command,omitempty"`

	// IterationDelaySeconds overrides the pause between iterations.
	IterationDelaySeconds int `yaml:"iteration_delay_seconds,omitempty"`
}

// IterationDelay returns the configured inter-iteration delay, or zero if
// unset.
func (s *Settings) IterationDelay() time.Duration {
	if s == nil || s.IterationDelaySeconds <= 0 {
		return 0
	}
	return time.Duration(s.IterationDelaySeconds) * time.Second
}

// LoadSettings reads the optional settings file from the output directory.
// A missing file is not an error and returns a nil Settings.
func LoadSettings(outputDir string) (*Settings, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, settingsFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
