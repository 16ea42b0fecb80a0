package scenario

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"go.uber.org/multierr"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid scenario")

// Systems lists the simulation systems a scenario may enable, in the order
// they are registered.
var Systems = []string{"steer", "move", "age", "spawn", "replicate", "census", "reap"}

// Vec is a 2D vector.
type Vec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Group describes Count entities spawned together at start.
type Group struct {
	Name     string  `yaml:"name"`
	Count    int     `yaml:"count"`
	Position Vec     `yaml:"position"`
	Spread   float64 `yaml:"spread"`
	Velocity Vec     `yaml:"velocity"`
	Jitter   float64 `yaml:"jitter"`
	// Lifetime in frames; 0 lives forever.
	Lifetime int `yaml:"lifetime"`
	// Emit is how many children each entity spawns per frame.
	Emit         int  `yaml:"emit"`
	EmitLifetime int  `yaml:"emit_lifetime"`
	Replicate    int  `yaml:"replicate"`
	Steer        bool `yaml:"steer"`
}

// Scenario is a YAML description of an initial world and the systems that
// drive it.
type Scenario struct {
	Name    string   `yaml:"name"`
	Frames  int      `yaml:"frames"`
	Seed    uint64   `yaml:"seed"`
	Groups  []Group  `yaml:"groups"`
	Systems []string `yaml:"systems"`

	// Sum is the blake2b-256 of the source document and Digest its hex form.
	Sum    [blake2b.Size256]byte `yaml:"-"`
	Digest string                `yaml:"-"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scenario document.
func Parse(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.Sum = blake2b.Sum256(raw)
	s.Digest = hex.EncodeToString(s.Sum[:])
	return &s, nil
}

// Validate reports every problem of the scenario at once.
func (s *Scenario) Validate() error {
	var err error
	if s.Name == "" {
		err = multierr.Append(err, fmt.Errorf("%w: missing name", ErrInvalid))
	}
	if s.Frames < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: negative frames %d", ErrInvalid, s.Frames))
	}
	if len(s.Groups) == 0 {
		err = multierr.Append(err, fmt.Errorf("%w: no groups", ErrInvalid))
	}
	seen := make(map[string]struct{}, len(s.Groups))
	for i, g := range s.Groups {
		if g.Name == "" {
			err = multierr.Append(err, fmt.Errorf("%w: group %d has no name", ErrInvalid, i))
		} else if _, dup := seen[g.Name]; dup {
			err = multierr.Append(err, fmt.Errorf("%w: duplicate group %q", ErrInvalid, g.Name))
		}
		seen[g.Name] = struct{}{}
		if g.Count <= 0 {
			err = multierr.Append(err, fmt.Errorf("%w: group %q count must be positive", ErrInvalid, g.Name))
		}
		if g.Lifetime < 0 || g.EmitLifetime < 0 || g.Emit < 0 || g.Replicate < 0 || g.Spread < 0 || g.Jitter < 0 {
			err = multierr.Append(err, fmt.Errorf("%w: group %q has a negative setting", ErrInvalid, g.Name))
		}
	}
	for _, name := range s.Systems {
		if !slices.Contains(Systems, name) {
			err = multierr.Append(err, fmt.Errorf("%w: unknown system %q", ErrInvalid, name))
		}
	}
	return err
}

// Enabled reports whether system name runs. An empty system list enables
// everything.
func (s *Scenario) Enabled(name string) bool {
	return len(s.Systems) == 0 || slices.Contains(s.Systems, name)
}

// Population is the number of entities spawned at start.
func (s *Scenario) Population() int {
	n := 0
	for _, g := range s.Groups {
		n += g.Count
	}
	return n
}
