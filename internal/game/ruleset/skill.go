package ruleset

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/gridtactics/internal/game/condition"
)

// Skill is the immutable definition of an active ability.
//
// A harmful skill deals damage to an enemy; a non-harmful skill heals
// Power HP on an ally. Either may apply a status effect to the target.
type Skill struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Range       int    `yaml:"range"`
	Harmful     bool   `yaml:"harmful"`
	Power       int    `yaml:"power"`
	MPCost      int    `yaml:"mp_cost"`
	// SelfTarget permits a non-harmful skill to target its caster.
	SelfTarget bool `yaml:"self_target"`

	EffectID string `yaml:"effect"`
	// EffectDuration overrides the effect's base duration when > 0.
	EffectDuration int `yaml:"effect_duration"`

	// Effect is populated by Link when EffectID is set.
	Effect *condition.EffectDef `yaml:"-"`
}

// Validate checks the skill's own fields.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Range >= 0,
// Power >= 0, MPCost >= 0, EffectDuration >= 0, and SelfTarget is not set on
// a harmful skill.
func (s *Skill) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("skill: id must not be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("skill %q: name must not be empty", s.ID)
	}
	if s.Range < 0 || s.Power < 0 || s.MPCost < 0 || s.EffectDuration < 0 {
		return fmt.Errorf("skill %q: range, power, mp_cost and effect_duration must be >= 0", s.ID)
	}
	if s.Harmful && s.SelfTarget {
		return fmt.Errorf("skill %q: harmful skills cannot target self", s.ID)
	}
	return nil
}

// Link resolves EffectID against effects.
//
// Postcondition: Returns an error if EffectID is set but not registered.
func (s *Skill) Link(effects *condition.Registry) error {
	if s.EffectID == "" {
		s.Effect = nil
		return nil
	}
	def, ok := effects.Get(s.EffectID)
	if !ok {
		return fmt.Errorf("skill %q: unknown effect %q", s.ID, s.EffectID)
	}
	s.Effect = def
	return nil
}

// EffectTurns returns the duration the skill's effect is applied for: the
// override if positive, else the effect's base duration.
//
// Postcondition: Returns 0 when the skill has no linked effect.
func (s *Skill) EffectTurns() int {
	if s.Effect == nil {
		return 0
	}
	if s.EffectDuration > 0 {
		return s.EffectDuration
	}
	return s.Effect.Duration
}

// LoadSkills reads all .yaml files in dir, parses and validates each as a
// Skill. Effects are not linked.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed skills (may be empty slice) or a non-nil error.
func LoadSkills(dir string) ([]*Skill, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	skills := make([]*Skill, 0, len(files))
	for _, path := range files {
		var s Skill
		if err := decodeFile(path, &s); err != nil {
			return nil, fmt.Errorf("parsing skill file %s: %w", path, err)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("skill file %s: %w", path, err)
		}
		skills = append(skills, &s)
	}
	return skills, nil
}

// decodeFile strictly decodes the YAML document at path into out.
func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}
