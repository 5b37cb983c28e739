package primitives

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a fixture document.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the document format from a file extension. Anything that is
// not .yaml or .yml is read as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFixture reads and validates the fixture document at path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	fx, err := ParseFixture(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fx, nil
}

// ParseFixture decodes and validates a fixture document held in memory.
// Decode failures are reported as ErrMalformedFixture.
func ParseFixture(data []byte, format Format) (*Fixture, error) {
	var fx Fixture
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &fx); err != nil {
			return nil, fmt.Errorf("%w: yaml unmarshal: %v", ErrMalformedFixture, err)
		}
	default:
		if err := json.Unmarshal(data, &fx); err != nil {
			return nil, fmt.Errorf("%w: json unmarshal: %v", ErrMalformedFixture, err)
		}
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// UnmarshalJSON accepts a hex string ("0x3f", "3f") or a plain integer.
func (p *Pattern) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := ParsePattern(s)
		if err != nil {
			return err
		}
		*p = v
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("pattern must be a hex string or an integer, got %s", data)
	}
	*p = Pattern(n)
	return nil
}

// MarshalJSON writes the pattern as a hex string.
func (p Pattern) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalYAML accepts a hex string or a YAML integer (which may itself be
// written as 0x3f).
func (p *Pattern) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: pattern must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		var n uint64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*p = Pattern(n)
		return nil
	}
	v, err := ParsePattern(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*p = v
	return nil
}

// MarshalYAML writes the pattern as a hex string.
func (p Pattern) MarshalYAML() (any, error) {
	return p.String(), nil
}
