package condition

import "fmt"

// ActiveEffect tracks one applied effect on a unit.
type ActiveEffect struct {
	Def       *EffectDef
	Remaining int
}

// ActiveSet is the ordered collection of effects currently applied to one unit.
// Effects keep their application order. It is not safe for concurrent use; the
// owning unit's turn serialises access.
type ActiveSet struct {
	effects []*ActiveEffect
}

// NewActiveSet creates an empty ActiveSet.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{}
}

// Apply adds def with the given duration. Re-applying an effect that is already
// present keeps its position and extends Remaining to max(existing, duration).
//
// Precondition: def must not be nil; duration >= 1.
// Postcondition: Has(def.ID) is true.
func (s *ActiveSet) Apply(def *EffectDef, duration int) error {
	if def == nil {
		return fmt.Errorf("Apply: def must not be nil")
	}
	if duration < 1 {
		return fmt.Errorf("Apply %q: duration must be >= 1, got %d", def.ID, duration)
	}
	for _, ae := range s.effects {
		if ae.Def.ID == def.ID {
			if duration > ae.Remaining {
				ae.Remaining = duration
			}
			return nil
		}
	}
	s.effects = append(s.effects, &ActiveEffect{Def: def, Remaining: duration})
	return nil
}

// Remove deletes the effect with the given ID. Removing an absent effect is a no-op.
//
// Postcondition: Has(id) is false.
func (s *ActiveSet) Remove(id string) {
	kept := s.effects[:0]
	for _, ae := range s.effects {
		if ae.Def.ID != id {
			kept = append(kept, ae)
		}
	}
	s.effects = kept
}

// Decrement lowers Remaining on every effect by one and removes those that
// reach zero or below, returning the expired IDs in application order.
//
// Postcondition: For every id in the returned slice, Has(id) is false; every
// surviving effect has Remaining >= 1.
func (s *ActiveSet) Decrement() []string {
	var expired []string
	kept := s.effects[:0]
	for _, ae := range s.effects {
		ae.Remaining--
		if ae.Remaining <= 0 {
			expired = append(expired, ae.Def.ID)
			continue
		}
		kept = append(kept, ae)
	}
	s.effects = kept
	return expired
}

// Has reports whether the effect with id is currently active.
func (s *ActiveSet) Has(id string) bool {
	return s.Get(id) != nil
}

// Get returns the active effect with id, or nil.
func (s *ActiveSet) Get(id string) *ActiveEffect {
	for _, ae := range s.effects {
		if ae.Def.ID == id {
			return ae
		}
	}
	return nil
}

// Len returns the number of active effects.
func (s *ActiveSet) Len() int { return len(s.effects) }

// All returns the active effects in application order.
// The slice is a new allocation, but the pointed-to ActiveEffect values are
// shared; callers must not modify them.
func (s *ActiveSet) All() []*ActiveEffect {
	out := make([]*ActiveEffect, len(s.effects))
	copy(out, s.effects)
	return out
}

// Clone returns a deep copy of the set's counters sharing the immutable definitions.
func (s *ActiveSet) Clone() *ActiveSet {
	out := &ActiveSet{effects: make([]*ActiveEffect, len(s.effects))}
	for i, ae := range s.effects {
		cp := *ae
		out.effects[i] = &cp
	}
	return out
}
