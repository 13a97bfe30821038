package ruleset

import (
	"fmt"
)

// Class defines a unit's combat role: additive stat modifiers and the skills
// it knows.
//
// Precondition: ID and Name must be non-empty after loading.
type Class struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Modifiers   StatBlock `yaml:"modifiers"`
	SkillIDs    []string  `yaml:"skills"`

	// Skills is populated by Link in SkillIDs order.
	Skills []*Skill `yaml:"-"`
}

// LoadClasses reads all .yaml files in dir and parses each as a Class.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed classes (may be empty slice) or a non-nil error.
func LoadClasses(dir string) ([]*Class, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	classes := make([]*Class, 0, len(files))
	for _, path := range files {
		var c Class
		if err := decodeFile(path, &c); err != nil {
			return nil, fmt.Errorf("parsing class file %s: %w", path, err)
		}
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("class file %s: id and name are required", path)
		}
		classes = append(classes, &c)
	}
	return classes, nil
}

// Link resolves c.SkillIDs against skills.
//
// Postcondition: On success len(c.Skills) == len(c.SkillIDs); an unknown or
// repeated skill ID is an error and leaves c.Skills unchanged.
func (c *Class) Link(skills map[string]*Skill) error {
	linked := make([]*Skill, 0, len(c.SkillIDs))
	seen := make(map[string]bool, len(c.SkillIDs))
	for _, id := range c.SkillIDs {
		if seen[id] {
			return fmt.Errorf("class %q: skill %q listed twice", c.ID, id)
		}
		seen[id] = true
		s, ok := skills[id]
		if !ok {
			return fmt.Errorf("class %q: unknown skill %q", c.ID, id)
		}
		linked = append(linked, s)
	}
	c.Skills = linked
	return nil
}
