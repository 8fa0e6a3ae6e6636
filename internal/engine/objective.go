package engine

import (
	"time"

	"github.com/bruno.lopes/dutyplanner/internal/blocks"
	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

// Objective weights, spec.md §4.6.
const (
	PrefWeight      = 10.0
	ConsecPenalty   = -10.0
	CallDistPenalty = -10.0
	HeavyPenalty    = -10.0
	DesiredWeight   = 100.0
	RevenueWeight   = 5.0

	// SlackPenalty (S in spec.md §4.6) must dominate any attainable sum
	// of the bonuses above so the solver never drops a coverable
	// mandatory block in favor of a better-balanced schedule.
	SlackPenalty = 100000.0

	callSpacingDays = 28

	// HintBonus nudges the branch-and-bound search toward a prior
	// schedule's assignment when one is submitted as a solution hint,
	// without making it a hard requirement.
	HintBonus = 1.0
)

// PhysicianHistory is the running, order-dependent state the Objective
// Assembler needs while the Solver Driver commits assignments in
// chronological block order: the previous task assigned to this
// physician (for the consecutive-category and heavy-spacing
// penalties) and the end date of their last assigned CALL block (for
// the call spacing penalty). It reflects only decisions committed so
// far along the current search path and is rolled back on backtrack,
// matching the "tentative ordering used during assembly" spec.md §4.6
// describes.
type PhysicianHistory struct {
	LastBlock     *blocks.ScheduledBlock
	HasLastCall   bool
	LastCallEnd   time.Time
	AssignedWeeks float64
	Revenue       float64
}

// Weight computes w(b, p) for a candidate assignment of block b to
// physician p, given p's tentative history so far (nil when p has no
// committed assignment yet).
func Weight(b *blocks.ScheduledBlock, p *registry.Physician, hist *PhysicianHistory) float64 {
	w := 0.0

	if rank, ok := p.PreferenceRank(b.Task.Category.Name); ok {
		w += PrefWeight * float64(len(p.PreferredTasks)-rank)
	}

	if hist != nil && hist.LastBlock != nil {
		prev := hist.LastBlock
		if prev.Task.Category.Name == b.Task.Category.Name && isSingleWeek(b) {
			w += ConsecPenalty
		}
		if b.Task.IsHeavy() && prev.Task.IsHeavy() {
			w += HeavyPenalty
		}
	}

	if b.Task.IsCall() && hist != nil && hist.HasLastCall {
		if daysBetween(hist.LastCallEnd, b.StartDate()) <= callSpacingDays {
			w += CallDistPenalty
		}
	}

	return w
}

func isSingleWeek(b *blocks.ScheduledBlock) bool {
	return b.Task.Category.DaysParameter == registry.Continuous
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Advance folds a committed assignment of block b to physician p into
// hist, returning the updated history (a new value; callers restore
// the previous one on backtrack).
func Advance(hist PhysicianHistory, b *blocks.ScheduledBlock) PhysicianHistory {
	hist.LastBlock = b
	hist.AssignedWeeks += float64(len(b.Days)) / 7.0
	hist.Revenue += float64(b.Task.Revenue())
	if b.Task.IsCall() {
		hist.HasLastCall = true
		hist.LastCallEnd = b.EndDate()
	}
	return hist
}

// BalancePenalty computes the workload and revenue balance terms
// (spec.md §4.6), applied once per physician over the final solution:
// -DESIRED_W * |assigned_weeks(p) - desired_weeks(p)| - REV_W *
// |revenue(p) - mean_revenue|.
func BalancePenalty(reg *registry.Registry, histories map[string]PhysicianHistory, totalWeeksInHorizon float64) float64 {
	physicians := reg.Physicians()
	if len(physicians) == 0 {
		return 0
	}

	var totalRevenue float64
	for _, p := range physicians {
		totalRevenue += histories[p.FullName].Revenue
	}
	meanRevenue := totalRevenue / float64(len(physicians))

	var penalty float64
	for _, p := range physicians {
		h := histories[p.FullName]
		desiredWeeks := p.DesiredWorkingWeeks * totalWeeksInHorizon
		penalty += -DesiredWeight * absf(h.AssignedWeeks-desiredWeeks)
		penalty += -RevenueWeight * absf(h.Revenue-meanRevenue)
	}
	return penalty
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
