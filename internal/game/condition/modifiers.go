package condition

// StatModifier returns the net modifier the active effects apply to stat.
// A nil set contributes nothing.
func StatModifier(s *ActiveSet, stat Stat) int {
	if s == nil {
		return 0
	}
	total := 0
	for _, ae := range s.effects {
		total += ae.Def.SignedModifier(stat)
	}
	return total
}

// DamageOverTime returns the total damage the set would deal on its next tick.
//
// Postcondition: Returns >= 0.
func DamageOverTime(s *ActiveSet) int {
	if s == nil {
		return 0
	}
	total := 0
	for _, ae := range s.effects {
		if ae.Def.IsDamageOverTime() {
			total += ae.Def.Modifier
		}
	}
	return total
}
