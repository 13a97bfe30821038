// Package condition defines status effects and tracks the effects active on
// a unit.
package condition

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stat identifies which combat stat an effect modifies.
type Stat int

const (
	StatNone Stat = iota
	StatAttack
	StatDefense
	StatMovement
)

// String returns the YAML spelling of the stat.
func (s Stat) String() string {
	switch s {
	case StatNone:
		return "none"
	case StatAttack:
		return "attack"
	case StatDefense:
		return "defense"
	case StatMovement:
		return "movement"
	default:
		return "unknown"
	}
}

// ParseStat converts a YAML stat name into a Stat. The empty string is StatNone.
//
// Postcondition: Returns an error for any name other than "", none, attack,
// defense, or movement.
func ParseStat(name string) (Stat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return StatNone, nil
	case "attack":
		return StatAttack, nil
	case "defense":
		return StatDefense, nil
	case "movement":
		return StatMovement, nil
	default:
		return StatNone, fmt.Errorf("unknown stat %q", name)
	}
}

// UnmarshalYAML decodes a stat name.
func (s *Stat) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err != nil {
		return err
	}
	parsed, err := ParseStat(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// EffectDef is the immutable, shared definition of a status effect.
type EffectDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Stat        Stat   `yaml:"stat"`
	// Modifier is a non-negative magnitude. Buffs add it to Stat, debuffs
	// subtract it; a debuff with Stat none deals it as damage each tick.
	Modifier int  `yaml:"modifier"`
	Buff     bool `yaml:"buff"`
	// Duration is the base number of owner turns the effect lasts.
	Duration int `yaml:"duration"`
}

// Validate checks the definition's invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Modifier >= 0 and
// Duration >= 1.
func (d *EffectDef) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("effect: id must not be empty")
	}
	if d.Name == "" {
		return fmt.Errorf("effect %q: name must not be empty", d.ID)
	}
	if d.Modifier < 0 {
		return fmt.Errorf("effect %q: modifier must be >= 0, got %d", d.ID, d.Modifier)
	}
	if d.Duration < 1 {
		return fmt.Errorf("effect %q: duration must be >= 1, got %d", d.ID, d.Duration)
	}
	return nil
}

// IsDamageOverTime reports whether the effect deals Modifier damage on each
// owner tick: a debuff that targets no stat and has a positive modifier.
func (d *EffectDef) IsDamageOverTime() bool {
	return !d.Buff && d.Stat == StatNone && d.Modifier > 0
}

// SignedModifier returns the contribution of this effect to stat.
//
// Postcondition: Returns 0 if stat is StatNone or differs from d.Stat;
// +Modifier for buffs; -Modifier for debuffs.
func (d *EffectDef) SignedModifier(stat Stat) int {
	if stat == StatNone || d.Stat != stat {
		return 0
	}
	if d.Buff {
		return d.Modifier
	}
	return -d.Modifier
}

// Registry holds all known EffectDefs keyed by ID.
type Registry struct {
	defs map[string]*EffectDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*EffectDef)}
}

// Register adds def, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *EffectDef) {
	r.defs[def.ID] = def
}

// Get returns the EffectDef for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*EffectDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns a snapshot of all registered definitions sorted by ID.
func (r *Registry) All() []*EffectDef {
	out := make([]*EffectDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir, parses each as an EffectDef,
// validates it, and returns a populated Registry.
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to
// parse or validate, or two files share an ID.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading effect dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def EffectDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		if _, dup := reg.Get(def.ID); dup {
			return nil, fmt.Errorf("duplicate effect id %q in %q", def.ID, path)
		}
		reg.Register(&def)
	}
	return reg, nil
}
