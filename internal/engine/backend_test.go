package engine

import (
	"testing"

	"github.com/bruno.lopes/dutyplanner/internal/blocks"
	"github.com/bruno.lopes/dutyplanner/internal/calendar"
	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

func buildAndSolve(t *testing.T, reg *registry.Registry, start, end string) (*Solution, Status, *InfeasibleReport) {
	t.Helper()
	weeks := calendar.Decompose(d(t, start), d(t, end), nil)
	materialized := blocks.Materialize(reg, weeks)
	model := BuildModel(reg, materialized)
	return NewBnBBackend().Solve(reg, model)
}

func TestSolve_MinimalSingleWeekAssignsMandatoryBlocks(t *testing.T) {
	phys := []*registry.Physician{{FullName: "Alice"}, {FullName: "Bob"}}
	reg := erFixture(t, phys)

	solution, status, _ := buildAndSolve(t, reg, "2025-01-13", "2025-01-19")
	if status != Optimal && status != Feasible {
		t.Fatalf("expected a solution, got status %v", status)
	}
	for _, a := range solution.Assignments {
		if a.Slack {
			t.Errorf("did not expect slack when eligible candidates exist: %s", a.Group.TaskName)
		}
		if a.Physician == "" {
			t.Errorf("expected every mandatory group assigned, got empty physician for %s", a.Group.TaskName)
		}
	}
}

func TestSolve_UnavailabilityForcesSlack(t *testing.T) {
	phys := []*registry.Physician{
		{FullName: "Alice", UnavailabilityIntervals: []registry.DateRange{{Start: d(t, "2025-01-13"), End: d(t, "2025-01-19")}}},
	}
	reg := erFixture(t, phys)

	solution, status, _ := buildAndSolve(t, reg, "2025-01-13", "2025-01-19")
	if status == Infeasible {
		t.Fatal("expected slack to absorb the unavailable-only week, not infeasibility")
	}
	var sawSlack bool
	for _, a := range solution.Assignments {
		if a.Slack {
			sawSlack = true
		}
	}
	if !sawSlack {
		t.Error("expected at least one slack assignment when the sole physician is unavailable")
	}
}

func TestSolve_ExclusionForcesSlack(t *testing.T) {
	phys := []*registry.Physician{
		{FullName: "Alice", ExclusionTasks: map[string]bool{"ER": true}},
	}
	reg := erFixture(t, phys)

	solution, status, _ := buildAndSolve(t, reg, "2025-01-13", "2025-01-19")
	if status == Infeasible {
		t.Fatal("expected slack to absorb the excluded-only week, not infeasibility")
	}
	var sawSlack bool
	for _, a := range solution.Assignments {
		if a.Slack {
			sawSlack = true
		}
	}
	if !sawSlack {
		t.Error("expected at least one slack assignment when the sole physician is excluded")
	}
}

func TestSolve_LinkageAssignsCallToMainHolder(t *testing.T) {
	cat := &registry.TaskCategory{Name: "CTU", DaysParameter: registry.MultiWeek, NumberOfWeeks: 2, WeekdayRevenue: 10, CallRevenue: 20}
	ctuA := &registry.Task{Name: "CTU_A", Category: cat, Type: registry.Main, WeekOffset: 0, Heaviness: 3, Mandatory: true}
	ctuB := &registry.Task{Name: "CTU_B", Category: cat, Type: registry.Main, WeekOffset: 1, Heaviness: 3, Mandatory: true}
	call := &registry.Task{Name: "CTU_CALL", Category: cat, Type: registry.Call, Heaviness: 2, Mandatory: true}
	phys := []*registry.Physician{{FullName: "Alice"}, {FullName: "Bob"}}
	reg, err := registry.New([]*registry.TaskCategory{cat}, []*registry.Task{ctuA, ctuB, call}, map[string]string{
		"CTU_A": "CTU_CALL",
		"CTU_B": "CTU_CALL",
	}, phys)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	// Only a 2-week horizon: CTU_A (week_offset 0) completes one group
	// spanning both weeks; CTU_B (week_offset 1) never gets a complete
	// group here, so every CTU_CALL block can only legally link to CTU_A.
	solution, status, _ := buildAndSolve(t, reg, "2025-01-13", "2025-01-26")
	if status == Infeasible {
		t.Fatal("expected a feasible schedule")
	}

	var mainHolder string
	var callAssignments []Assignment
	for _, a := range solution.Assignments {
		if a.Slack {
			continue
		}
		switch a.Group.TaskName {
		case "CTU_A":
			mainHolder = a.Physician
		case "CTU_CALL":
			callAssignments = append(callAssignments, a)
		}
	}
	if mainHolder == "" {
		t.Fatal("expected CTU_A to be assigned")
	}
	if len(callAssignments) == 0 {
		t.Fatal("expected at least one CTU_CALL block to be assigned")
	}
	for _, a := range callAssignments {
		if a.Physician != mainHolder {
			t.Errorf("expected every CTU_CALL block to go to CTU_A's holder (%s), got %s", mainHolder, a.Physician)
		}
	}
}

func TestSolve_TrueInfeasibilityWhenSoleCandidateDoubleBooked(t *testing.T) {
	er := &registry.TaskCategory{Name: "ER", DaysParameter: registry.Continuous, NumberOfWeeks: 1, WeekdayRevenue: 10, CallRevenue: 20}
	icu := &registry.TaskCategory{Name: "ICU", DaysParameter: registry.Continuous, NumberOfWeeks: 1, WeekdayRevenue: 10, CallRevenue: 20}
	erMain := &registry.Task{Name: "ER_MAIN", Category: er, Type: registry.Main, Heaviness: 2, Mandatory: true}
	icuMain := &registry.Task{Name: "ICU_MAIN", Category: icu, Type: registry.Main, Heaviness: 2, Mandatory: true}
	// Alice is the only physician qualified for either category, so both
	// mandatory MAIN blocks of the same week have a statically non-empty
	// candidate set (just Alice) yet cannot both be satisfied at once.
	phys := []*registry.Physician{
		{FullName: "Alice", Qualifications: map[string]bool{"ER": true, "ICU": true}},
	}
	reg, err := registry.New([]*registry.TaskCategory{er, icu}, []*registry.Task{erMain, icuMain}, nil, phys)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	_, status, report := buildAndSolve(t, reg, "2025-01-13", "2025-01-17")
	if status != Infeasible {
		t.Fatalf("expected INFEASIBLE when the sole candidate is needed in two places at once, got %v", status)
	}
	if report == nil || len(report.UnresolvableGroups) == 0 {
		t.Error("expected the infeasible report to name at least one unresolvable group")
	}
}
