package engine

import (
	"testing"

	"github.com/bruno.lopes/dutyplanner/internal/blocks"
	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

func mainBlock(t *testing.T, task *registry.Task, start string, days int) *blocks.ScheduledBlock {
	t.Helper()
	b := &blocks.ScheduledBlock{Task: task, Heaviness: task.Heaviness, Mandatory: task.Mandatory}
	cur := d(t, start)
	for i := 0; i < days; i++ {
		b.Days = append(b.Days, cur.AddDate(0, 0, i))
	}
	return b
}

func TestWeight_PreferenceBonusRanksHigherFirstChoice(t *testing.T) {
	cat := &registry.TaskCategory{Name: "ER", DaysParameter: registry.Continuous, NumberOfWeeks: 1}
	task := &registry.Task{Name: "ER_MAIN", Category: cat, Type: registry.Main, Heaviness: 2, Mandatory: true}
	b := mainBlock(t, task, "2025-01-13", 5)

	first := &registry.Physician{FullName: "Alice", PreferredTasks: []string{"ER", "ICU"}}
	second := &registry.Physician{FullName: "Bob", PreferredTasks: []string{"ICU", "ER"}}
	none := &registry.Physician{FullName: "Carl"}

	wFirst := Weight(b, first, nil)
	wSecond := Weight(b, second, nil)
	wNone := Weight(b, none, nil)

	if !(wFirst > wSecond) {
		t.Errorf("expected first-choice bonus (%v) to exceed second-choice bonus (%v)", wFirst, wSecond)
	}
	if !(wSecond > wNone) {
		t.Errorf("expected second-choice bonus (%v) to exceed no preference (%v)", wSecond, wNone)
	}
}

func TestWeight_ConsecutiveCategoryPenalty(t *testing.T) {
	cat := &registry.TaskCategory{Name: "ER", DaysParameter: registry.Continuous, NumberOfWeeks: 1}
	task := &registry.Task{Name: "ER_MAIN", Category: cat, Type: registry.Main, Heaviness: 2, Mandatory: true}
	prev := mainBlock(t, task, "2025-01-06", 5)
	next := mainBlock(t, task, "2025-01-13", 5)

	p := &registry.Physician{FullName: "Alice"}
	hist := Advance(PhysicianHistory{}, prev)

	withHist := Weight(next, p, &hist)
	withoutHist := Weight(next, p, nil)
	if !(withHist < withoutHist) {
		t.Errorf("expected consecutive same-category assignment to be penalized: with=%v without=%v", withHist, withoutHist)
	}
}

func TestWeight_HeavyFollowedByHeavyPenalized(t *testing.T) {
	// prev and next belong to different categories so the consecutive-
	// category penalty can't interfere with isolating the heavy term.
	cat := &registry.TaskCategory{Name: "ICU", DaysParameter: registry.Continuous, NumberOfWeeks: 1}
	otherCat := &registry.TaskCategory{Name: "CCU", DaysParameter: registry.Continuous, NumberOfWeeks: 1}
	heavyA := &registry.Task{Name: "ICU_A", Category: cat, Type: registry.Main, Heaviness: 5, Mandatory: true}
	heavyB := &registry.Task{Name: "CCU_B", Category: otherCat, Type: registry.Main, Heaviness: 5, Mandatory: true}
	prev := mainBlock(t, heavyA, "2025-01-06", 5)
	next := mainBlock(t, heavyB, "2025-01-13", 5)

	p := &registry.Physician{FullName: "Alice"}
	hist := Advance(PhysicianHistory{}, prev)

	if Weight(next, p, &hist) >= Weight(next, p, nil) {
		t.Error("expected back-to-back heavy tasks to be penalized")
	}
}

func TestWeight_CallSpacingPenaltyWithinThreshold(t *testing.T) {
	// prev and next belong to different categories so the consecutive-
	// category penalty can't interfere with isolating the call-spacing
	// term on its own.
	erCat := &registry.TaskCategory{Name: "ER", DaysParameter: registry.Continuous, NumberOfWeeks: 1, CallRevenue: 20}
	icuCat := &registry.TaskCategory{Name: "ICU", DaysParameter: registry.Continuous, NumberOfWeeks: 1, CallRevenue: 20}
	prevTask := &registry.Task{Name: "ER_CALL", Category: erCat, Type: registry.Call, Heaviness: 3, Mandatory: true}
	nextTask := &registry.Task{Name: "ICU_CALL", Category: icuCat, Type: registry.Call, Heaviness: 3, Mandatory: true}
	prevCall := mainBlock(t, prevTask, "2025-01-04", 2)
	nextCall := mainBlock(t, nextTask, "2025-01-18", 2) // 14 days later, within the 28-day threshold

	p := &registry.Physician{FullName: "Alice"}
	hist := Advance(PhysicianHistory{}, prevCall)

	if Weight(nextCall, p, &hist) >= Weight(nextCall, p, nil) {
		t.Error("expected a second CALL within 28 days to be penalized")
	}
}

func TestWeight_CallSpacingNotPenalizedBeyondThreshold(t *testing.T) {
	// prev and next belong to different categories so the consecutive-
	// category penalty can't interfere with isolating the call-spacing
	// term on its own.
	erCat := &registry.TaskCategory{Name: "ER", DaysParameter: registry.Continuous, NumberOfWeeks: 1, CallRevenue: 20}
	icuCat := &registry.TaskCategory{Name: "ICU", DaysParameter: registry.Continuous, NumberOfWeeks: 1, CallRevenue: 20}
	prevTask := &registry.Task{Name: "ER_CALL", Category: erCat, Type: registry.Call, Heaviness: 3, Mandatory: true}
	nextTask := &registry.Task{Name: "ICU_CALL", Category: icuCat, Type: registry.Call, Heaviness: 3, Mandatory: true}
	prevCall := mainBlock(t, prevTask, "2025-01-04", 2)
	nextCall := mainBlock(t, nextTask, "2025-03-01", 2) // far beyond 28 days

	p := &registry.Physician{FullName: "Alice"}
	hist := Advance(PhysicianHistory{}, prevCall)

	if Weight(nextCall, p, &hist) != Weight(nextCall, p, nil) {
		t.Error("expected no call-spacing penalty once the threshold has passed")
	}
}

func TestBalancePenalty_ZeroWhenEveryoneAtDesiredAndMeanRevenue(t *testing.T) {
	cat := &registry.TaskCategory{Name: "ER", DaysParameter: registry.Continuous, NumberOfWeeks: 1, WeekdayRevenue: 10}
	task := &registry.Task{Name: "ER_MAIN", Category: cat, Type: registry.Main, Heaviness: 2, Mandatory: true}
	phys := []*registry.Physician{
		{FullName: "Alice", DesiredWorkingWeeks: 1.0},
	}
	reg, err := registry.New([]*registry.TaskCategory{cat}, []*registry.Task{task}, nil, phys)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	b := mainBlock(t, task, "2025-01-13", 7)
	hist := Advance(PhysicianHistory{}, b)
	histories := map[string]PhysicianHistory{"Alice": hist}

	penalty := BalancePenalty(reg, histories, 1.0)
	if penalty != 0 {
		t.Errorf("expected zero penalty at exactly desired weeks and mean revenue, got %v", penalty)
	}
}

func TestBalancePenalty_PenalizesUnderWorkedPhysician(t *testing.T) {
	cat := &registry.TaskCategory{Name: "ER", DaysParameter: registry.Continuous, NumberOfWeeks: 1, WeekdayRevenue: 10}
	task := &registry.Task{Name: "ER_MAIN", Category: cat, Type: registry.Main, Heaviness: 2, Mandatory: true}
	phys := []*registry.Physician{
		{FullName: "Alice", DesiredWorkingWeeks: 1.0},
		{FullName: "Bob", DesiredWorkingWeeks: 1.0},
	}
	reg, err := registry.New([]*registry.TaskCategory{cat}, []*registry.Task{task}, nil, phys)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	b := mainBlock(t, task, "2025-01-13", 7)
	hist := Advance(PhysicianHistory{}, b)
	histories := map[string]PhysicianHistory{"Alice": hist} // Bob never worked

	penalty := BalancePenalty(reg, histories, 1.0)
	if penalty >= 0 {
		t.Errorf("expected a negative penalty when Bob is under his desired share, got %v", penalty)
	}
}
