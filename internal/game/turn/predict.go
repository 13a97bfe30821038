package turn

import (
	"math"

	"github.com/cory-johannsen/gridtactics/internal/game/unit"
)

type simUnit struct {
	u      *unit.Unit
	charge float64
	speed  float64
	chosen bool
}

// Predict returns the next n units expected to act, without touching real
// scheduling state. Each step picks, among living units not yet chosen in the
// current prediction cycle, the one with the least time to threshold (ties:
// higher speed, then roster order). Every unit advances by that elapsed time
// and the winner's simulated charge drops by the threshold. A cycle resets
// once every candidate has been chosen.
//
// Postcondition: len(result) <= n; shorter only when no living unit can act.
func (s *Scheduler) Predict(n int) []*unit.Unit {
	if n <= 0 {
		return nil
	}
	thr := float64(s.threshold)
	var sims []*simUnit
	for _, u := range s.roster {
		if !u.Alive() {
			continue
		}
		if u.Speed <= 0 && float64(u.Charge) < thr {
			continue
		}
		sims = append(sims, &simUnit{u: u, charge: float64(u.Charge), speed: float64(u.Speed)})
	}
	if len(sims) == 0 {
		return nil
	}

	out := make([]*unit.Unit, 0, n)
	for len(out) < n {
		winner, wait := pickNext(sims, thr)
		if winner == nil {
			resetCycle(sims)
			winner, wait = pickNext(sims, thr)
			if winner == nil {
				break
			}
		}
		for _, sim := range sims {
			sim.charge += wait * sim.speed
		}
		winner.charge -= thr
		winner.chosen = true
		out = append(out, winner.u)
	}
	return out
}

func pickNext(sims []*simUnit, thr float64) (*simUnit, float64) {
	var best *simUnit
	bestWait := math.Inf(1)
	for _, sim := range sims {
		if sim.chosen {
			continue
		}
		wait := timeToThreshold(sim, thr)
		if math.IsInf(wait, 1) {
			continue
		}
		if best == nil || wait < bestWait || (wait == bestWait && sim.speed > best.speed) {
			best, bestWait = sim, wait
		}
	}
	return best, bestWait
}

func timeToThreshold(sim *simUnit, thr float64) float64 {
	if sim.charge >= thr {
		return 0
	}
	if sim.speed <= 0 {
		return math.Inf(1)
	}
	return (thr - sim.charge) / sim.speed
}

func resetCycle(sims []*simUnit) {
	for _, sim := range sims {
		sim.chosen = false
	}
}
