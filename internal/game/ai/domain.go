// Package ai implements the Hierarchical Task Network (HTN) planner that
// drives AI-controlled units.
//
// HTN planning decomposes abstract tasks into primitive operators via ordered
// methods. Method preconditions are built-in battle predicates or Lua hooks;
// operators map to unit actions.
package ai

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RootTask is the task every plan starts from.
const RootTask = "behave"

// Operator actions.
const (
	ActionAttack   = "attack"
	ActionCast     = "cast"
	ActionApproach = "approach"
	ActionWait     = "wait"
)

// Target selectors.
const (
	TargetNearestEnemy = "nearest_enemy"
	TargetWeakestEnemy = "weakest_enemy"
	TargetWeakestAlly  = "weakest_ally"
	TargetSelf         = "self"
)

// Task is an abstract goal that can be decomposed by methods.
//
// Precondition: ID must be non-empty.
type Task struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

// Method decomposes a task into an ordered list of subtasks or operator IDs.
//
// Precondition: TaskID, ID, and Subtasks must be non-empty.
// Precondition: Precondition is a predicate name; empty means always applicable.
type Method struct {
	TaskID       string   `yaml:"task"`
	ID           string   `yaml:"id"`
	Precondition string   `yaml:"precondition"`
	Subtasks     []string `yaml:"subtasks"`
}

// Operator is a primitive action that maps directly to a unit action.
//
// Precondition: ID and Action must be non-empty; Skill is required for cast.
type Operator struct {
	ID     string `yaml:"id"`
	Action string `yaml:"action"` // attack, cast, approach, wait
	Skill  string `yaml:"skill"`
	Target string `yaml:"target"` // nearest_enemy, weakest_enemy, weakest_ally, self
}

// Domain holds the full HTN domain loaded from a YAML file.
//
// Invariant: all Task, Method, and Operator IDs are unique within their slice.
type Domain struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description"`
	Tasks       []*Task     `yaml:"tasks"`
	Methods     []*Method   `yaml:"methods"`
	Operators   []*Operator `yaml:"operators"`
}

func validAction(a string) bool {
	switch a {
	case ActionAttack, ActionCast, ActionApproach, ActionWait:
		return true
	}
	return false
}

func validTarget(t string) bool {
	switch t {
	case "", TargetNearestEnemy, TargetWeakestEnemy, TargetWeakestAlly, TargetSelf:
		return true
	}
	return false
}

// Validate checks all required fields and cross-field constraints.
//
// Postcondition: nil return guarantees non-empty ID, a root task, non-empty
// method subtasks, known operator actions and targets, no duplicate IDs
// within any slice, and valid cross-references.
func (d *Domain) Validate() error {
	if d.ID == "" {
		return errors.New("ai.Domain: ID must not be empty")
	}
	if len(d.Tasks) == 0 {
		return fmt.Errorf("ai.Domain %q: must have at least one task", d.ID)
	}
	for _, t := range d.Tasks {
		if t.ID == "" {
			return fmt.Errorf("ai.Domain %q: task has empty ID", d.ID)
		}
	}
	for _, m := range d.Methods {
		if m.TaskID == "" || m.ID == "" {
			return fmt.Errorf("ai.Domain %q: method missing TaskID or ID", d.ID)
		}
		if len(m.Subtasks) == 0 {
			return fmt.Errorf("ai.Domain %q method %q: subtasks must not be empty", d.ID, m.ID)
		}
	}
	for _, op := range d.Operators {
		if op.ID == "" || op.Action == "" {
			return fmt.Errorf("ai.Domain %q: operator missing ID or Action", d.ID)
		}
		if !validAction(op.Action) {
			return fmt.Errorf("ai.Domain %q operator %q: unknown action %q", d.ID, op.ID, op.Action)
		}
		if op.Action == ActionCast && op.Skill == "" {
			return fmt.Errorf("ai.Domain %q operator %q: cast requires a skill", d.ID, op.ID)
		}
		if !validTarget(op.Target) {
			return fmt.Errorf("ai.Domain %q operator %q: unknown target %q", d.ID, op.ID, op.Target)
		}
	}

	taskIDs, err := uniqueIDs(d.ID, "task", len(d.Tasks), func(i int) string { return d.Tasks[i].ID })
	if err != nil {
		return err
	}
	if _, err := uniqueIDs(d.ID, "method", len(d.Methods), func(i int) string { return d.Methods[i].ID }); err != nil {
		return err
	}
	operatorIDs, err := uniqueIDs(d.ID, "operator", len(d.Operators), func(i int) string { return d.Operators[i].ID })
	if err != nil {
		return err
	}
	if _, ok := taskIDs[RootTask]; !ok {
		return fmt.Errorf("ai.Domain %q: missing root task %q", d.ID, RootTask)
	}

	for _, m := range d.Methods {
		if _, ok := taskIDs[m.TaskID]; !ok {
			return fmt.Errorf("ai.Domain %q method %q: TaskID %q references unknown task", d.ID, m.ID, m.TaskID)
		}
		for _, sub := range m.Subtasks {
			_, isTask := taskIDs[sub]
			_, isOp := operatorIDs[sub]
			if !isTask && !isOp {
				return fmt.Errorf("ai.Domain %q method %q: subtask %q is neither a task nor an operator", d.ID, m.ID, sub)
			}
		}
	}
	return nil
}

func uniqueIDs(domain, kind string, n int, id func(int) string) (map[string]struct{}, error) {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		if _, dup := seen[id(i)]; dup {
			return nil, fmt.Errorf("ai.Domain %q: duplicate %s ID %q", domain, kind, id(i))
		}
		seen[id(i)] = struct{}{}
	}
	return seen, nil
}

// SkillIDs returns the distinct skills named by cast operators and can_cast
// preconditions, sorted.
func (d *Domain) SkillIDs() []string {
	set := make(map[string]struct{})
	for _, op := range d.Operators {
		if op.Action == ActionCast {
			set[op.Skill] = struct{}{}
		}
	}
	for _, m := range d.Methods {
		name := strings.TrimPrefix(m.Precondition, negationPrefix)
		if id, ok := strings.CutPrefix(name, canCastPrefix); ok {
			set[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// OperatorByID returns the operator with the given ID, or false if not found.
func (d *Domain) OperatorByID(id string) (*Operator, bool) {
	for _, op := range d.Operators {
		if op.ID == id {
			return op, true
		}
	}
	return nil, false
}

// MethodsForTask returns all methods that decompose taskID, in declaration order.
func (d *Domain) MethodsForTask(taskID string) []*Method {
	var out []*Method
	for _, m := range d.Methods {
		if m.TaskID == taskID {
			out = append(out, m)
		}
	}
	return out
}

// yamlDomainFile wraps the YAML top-level key.
type yamlDomainFile struct {
	Domain *Domain `yaml:"domain"`
}

// LoadDomains reads all *.yaml files from dir and returns parsed Domains in
// file name order.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any YAML file fails to parse or validate.
// Postcondition: returns (nil, nil) if dir contains no .yaml files.
func LoadDomains(dir string) ([]*Domain, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ai.LoadDomains: reading %q: %w", dir, err)
	}
	var domains []*Domain
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: reading %s: %w", e.Name(), err)
		}
		var f yamlDomainFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: parsing %s: %w", e.Name(), err)
		}
		if f.Domain == nil {
			return nil, fmt.Errorf("ai.LoadDomains: %s missing top-level 'domain' key", e.Name())
		}
		if err := f.Domain.Validate(); err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: %s: %w", e.Name(), err)
		}
		domains = append(domains, f.Domain)
	}
	return domains, nil
}
