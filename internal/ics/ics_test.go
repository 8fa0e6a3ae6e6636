package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bruno.lopes/dutyplanner/internal/engine"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date: %v", err)
	}
	return d
}

func TestExport_OneVEventPerAssignmentRecord(t *testing.T) {
	sched := &engine.Schedule{
		Assignments: map[string][]engine.AssignmentRecord{
			"Alice": {
				{Task: "CTU_A", StartDate: date(t, "2025-01-13"), EndDate: date(t, "2025-01-19"), Score: 12.5},
			},
			"Bob": {
				{Task: "CTU_B", StartDate: date(t, "2025-01-20"), EndDate: date(t, "2025-01-26"), Score: 8},
			},
		},
	}

	out, err := Export(sched)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	count := bytes.Count(out, []byte("BEGIN:VEVENT"))
	if count != 2 {
		t.Fatalf("expected 2 VEVENT blocks, got %d", count)
	}
	if !strings.Contains(string(out), "CTU_A") || !strings.Contains(string(out), "CTU_B") {
		t.Error("expected both task names to appear in the export")
	}
}

func TestExport_EmptyScheduleYieldsNoEvents(t *testing.T) {
	sched := &engine.Schedule{Assignments: map[string][]engine.AssignmentRecord{}}
	out, err := Export(sched)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if bytes.Contains(out, []byte("BEGIN:VEVENT")) {
		t.Error("expected no VEVENT blocks for an empty schedule")
	}
}
