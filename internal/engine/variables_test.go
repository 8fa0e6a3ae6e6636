package engine

import (
	"testing"
	"time"

	"github.com/bruno.lopes/dutyplanner/internal/blocks"
	"github.com/bruno.lopes/dutyplanner/internal/calendar"
	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

func d(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date: %v", err)
	}
	return v
}

func erFixture(t *testing.T, phys []*registry.Physician) *registry.Registry {
	t.Helper()
	cat := &registry.TaskCategory{Name: "ER", DaysParameter: registry.Continuous, NumberOfWeeks: 1, WeekdayRevenue: 10, CallRevenue: 20}
	main := &registry.Task{Name: "ER_MAIN", Category: cat, Type: registry.Main, Heaviness: 2, Mandatory: true}
	call := &registry.Task{Name: "ER_CALL", Category: cat, Type: registry.Call, Heaviness: 3, Mandatory: true}
	reg, err := registry.New([]*registry.TaskCategory{cat}, []*registry.Task{main, call}, nil, phys)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func TestBuildModel_OneGroupPerBlock(t *testing.T) {
	phys := []*registry.Physician{{FullName: "Alice"}, {FullName: "Bob"}}
	reg := erFixture(t, phys)
	weeks := calendar.Decompose(d(t, "2025-01-13"), d(t, "2025-01-19"), nil)
	materialized := blocks.Materialize(reg, weeks)
	model := BuildModel(reg, materialized)

	if len(model.Groups) != 2 {
		t.Fatalf("expected 2 groups (one MAIN, one CALL), got %d", len(model.Groups))
	}
	for _, g := range model.Groups {
		if len(g.Candidates) != 2 {
			t.Errorf("group %s: expected 2 candidates, got %d", g.TaskName, len(g.Candidates))
		}
		if len(g.Vars) != 2 {
			t.Errorf("group %s: expected 2 decision vars, got %d", g.TaskName, len(g.Vars))
		}
		if g.HasSlack {
			t.Errorf("group %s: did not expect slack when candidates exist", g.TaskName)
		}
	}
}

func TestBuildModel_MultiWeekOneGroupPerMultiWeekGroup(t *testing.T) {
	cat := &registry.TaskCategory{Name: "CTU", DaysParameter: registry.MultiWeek, NumberOfWeeks: 2, WeekdayRevenue: 10, CallRevenue: 20}
	ctuA := &registry.Task{Name: "CTU_A", Category: cat, Type: registry.Main, WeekOffset: 0, Heaviness: 3, Mandatory: true}
	phys := []*registry.Physician{{FullName: "Alice"}}
	reg, err := registry.New([]*registry.TaskCategory{cat}, []*registry.Task{ctuA}, nil, phys)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	weeks := calendar.Decompose(d(t, "2025-01-13"), d(t, "2025-02-09"), nil)
	materialized := blocks.Materialize(reg, weeks)
	model := BuildModel(reg, materialized)

	if len(model.Groups) != 2 {
		t.Fatalf("expected 2 MultiWeek groups (weeks 1-2, 3-4), got %d", len(model.Groups))
	}
	for _, g := range model.Groups {
		if g.Kind != MultiWeek {
			t.Errorf("expected Kind==MultiWeek, got %v", g.Kind)
		}
		if len(g.Blocks) != 2 {
			t.Errorf("expected 2 member blocks per group, got %d", len(g.Blocks))
		}
	}
}

func TestBuildModel_UnavailabilityExcludesCandidate(t *testing.T) {
	phys := []*registry.Physician{
		{FullName: "Alice", UnavailabilityIntervals: []registry.DateRange{{Start: d(t, "2025-01-13"), End: d(t, "2025-01-17")}}},
		{FullName: "Bob"},
	}
	reg := erFixture(t, phys)
	weeks := calendar.Decompose(d(t, "2025-01-13"), d(t, "2025-01-19"), nil)
	materialized := blocks.Materialize(reg, weeks)
	model := BuildModel(reg, materialized)

	for _, g := range model.Groups {
		if g.TaskName != "ER_MAIN" {
			continue
		}
		if len(g.Candidates) != 1 || g.Candidates[0].FullName != "Bob" {
			t.Fatalf("expected only Bob to be a candidate for ER_MAIN, got %+v", g.Candidates)
		}
	}
}

func TestBuildModel_ExclusionExcludesCandidate(t *testing.T) {
	phys := []*registry.Physician{
		{FullName: "Alice", ExclusionTasks: map[string]bool{"ER": true}},
		{FullName: "Bob"},
	}
	reg := erFixture(t, phys)
	weeks := calendar.Decompose(d(t, "2025-01-13"), d(t, "2025-01-19"), nil)
	materialized := blocks.Materialize(reg, weeks)
	model := BuildModel(reg, materialized)

	for _, g := range model.Groups {
		for _, p := range g.Candidates {
			if p.FullName == "Alice" {
				t.Fatalf("group %s: Alice is excluded from ER and should not be a candidate", g.TaskName)
			}
		}
	}
}

func TestBuildModel_MandatorySlackOnlyWhenStaticallyEmpty(t *testing.T) {
	phys := []*registry.Physician{
		{FullName: "Alice", ExclusionTasks: map[string]bool{"ER": true}},
	}
	reg := erFixture(t, phys)
	weeks := calendar.Decompose(d(t, "2025-01-13"), d(t, "2025-01-19"), nil)
	materialized := blocks.Materialize(reg, weeks)
	model := BuildModel(reg, materialized)

	for _, g := range model.Groups {
		if len(g.Candidates) != 0 {
			t.Fatalf("group %s: expected no eligible candidates with sole physician excluded", g.TaskName)
		}
		if !g.HasSlack {
			t.Errorf("group %s: expected slack var for mandatory block with empty candidate set", g.TaskName)
		}
	}
}

func TestFilterCandidates_RecordsTrace(t *testing.T) {
	phys := []*registry.Physician{
		{FullName: "Alice", ExclusionTasks: map[string]bool{"ER": true}},
		{FullName: "Bob"},
	}
	reg := erFixture(t, phys)
	weeks := calendar.Decompose(d(t, "2025-01-13"), d(t, "2025-01-19"), nil)
	materialized := blocks.Materialize(reg, weeks)
	model := BuildModel(reg, materialized)

	if len(model.Trace) == 0 {
		t.Fatal("expected a trace entry per block")
	}
	for _, entry := range model.Trace {
		if len(entry.Initial) != 2 {
			t.Errorf("expected 2 physicians in the initial roster, got %d", len(entry.Initial))
		}
		if len(entry.AfterAvailability) != 2 {
			t.Errorf("expected both available, got %d", len(entry.AfterAvailability))
		}
	}
}
