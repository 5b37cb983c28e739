package production

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comalice/segverify/internal/core"
	"github.com/comalice/segverify/internal/primitives"
)

// Duration decodes either a Go duration string ("1.5s") or a number of
// seconds.
type Duration time.Duration

func parseDuration(s string) (Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return Duration(d), nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return Duration(secs * float64(time.Second)), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := parseDuration(s)
		if err != nil {
			return err
		}
		*d = v
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	v, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = v
	return nil
}

// SessionSpec describes one session to register.
type SessionSpec struct {
	Name       string   `json:"name" yaml:"name"`
	Peripheral string   `json:"peripheral" yaml:"peripheral"`
	Timeout    Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// SessionConfig is the session configuration document.
type SessionConfig struct {
	DefaultTimeout Duration      `json:"default_timeout,omitempty" yaml:"default_timeout,omitempty"`
	Sessions       []SessionSpec `json:"sessions" yaml:"sessions"`
}

// Validate checks that every session has a unique name and a peripheral.
func (c *SessionConfig) Validate() error {
	if c.DefaultTimeout < 0 {
		return errors.New("default_timeout cannot be negative")
	}
	seen := make(map[string]bool)
	for i, s := range c.Sessions {
		if s.Name == "" {
			return fmt.Errorf("sessions[%d]: name is required", i)
		}
		if s.Peripheral == "" {
			return fmt.Errorf("session %q: peripheral is required", s.Name)
		}
		if s.Timeout < 0 {
			return fmt.Errorf("session %q: timeout cannot be negative", s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("session %q: duplicate name", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// LoadSessionConfig reads a YAML or JSON session document (by extension).
func LoadSessionConfig(path string) (*SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cfg SessionConfig
	switch primitives.FormatFor(path) {
	case primitives.FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("yaml unmarshal: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("json unmarshal: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Register creates one session per entry in reg. A session without its own
// timeout uses the document's default_timeout.
func (c *SessionConfig) Register(reg *core.Registry) error {
	for _, s := range c.Sessions {
		timeout := time.Duration(s.Timeout)
		if timeout == 0 {
			timeout = time.Duration(c.DefaultTimeout)
		}
		if _, err := reg.Register(s.Name, s.Peripheral, timeout); err != nil {
			return err
		}
	}
	return nil
}
