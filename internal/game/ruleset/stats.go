// Package ruleset holds the immutable templates units are built from: races,
// classes, and skills.
package ruleset

// StatBlock is a full set of combat stats. Templates use it for additive
// modifiers; BaseStats uses it for the constants every unit starts from.
type StatBlock struct {
	HP      int `yaml:"hp"`
	MP      int `yaml:"mp"`
	Attack  int `yaml:"attack"`
	Defense int `yaml:"defense"`
	Move    int `yaml:"move"`
	Range   int `yaml:"range"`
	Speed   int `yaml:"speed"`
}

// BaseStats are the constants race and class modifiers are added onto.
var BaseStats = StatBlock{
	HP:      20,
	MP:      6,
	Attack:  5,
	Defense: 2,
	Move:    3,
	Range:   1,
	Speed:   8,
}

// Add returns the field-wise sum of s and o.
func (s StatBlock) Add(o StatBlock) StatBlock {
	return StatBlock{
		HP:      s.HP + o.HP,
		MP:      s.MP + o.MP,
		Attack:  s.Attack + o.Attack,
		Defense: s.Defense + o.Defense,
		Move:    s.Move + o.Move,
		Range:   s.Range + o.Range,
		Speed:   s.Speed + o.Speed,
	}
}

// Combine returns BaseStats plus the race and class modifiers, with every
// field floored at the minimum a living unit can hold.
//
// Precondition: race and class must not be nil.
// Postcondition: HP >= 1, Range >= 1; all other fields >= 0.
func Combine(race *Race, class *Class) StatBlock {
	s := BaseStats.Add(race.Modifiers).Add(class.Modifiers)
	s.HP = atLeast(s.HP, 1)
	s.MP = atLeast(s.MP, 0)
	s.Attack = atLeast(s.Attack, 0)
	s.Defense = atLeast(s.Defense, 0)
	s.Move = atLeast(s.Move, 0)
	s.Range = atLeast(s.Range, 1)
	s.Speed = atLeast(s.Speed, 0)
	return s
}

func atLeast(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}
