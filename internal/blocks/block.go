// Package blocks converts (Task, period block) pairs into the atomic
// assignment units the rest of the engine reasons about (spec.md §4.3).
package blocks

import (
	"time"

	"github.com/bruno.lopes/dutyplanner/internal/calendar"
	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

// ScheduledBlock is the atomic (task, contiguous days) unit that gets
// assigned to at most one physician.
type ScheduledBlock struct {
	Task       *registry.Task
	WeekStart  time.Time
	Days       []time.Time
	Heaviness  int
	Mandatory  bool
	Candidates []*registry.Physician // filled in by the Variable Builder
}

func (b *ScheduledBlock) StartDate() time.Time { return b.Days[0] }
func (b *ScheduledBlock) EndDate() time.Time   { return b.Days[len(b.Days)-1] }

// Key identifies a ScheduledBlock uniquely: task name plus its exact
// day range, matching the decision variable key in spec.md §3.
type Key struct {
	TaskName  string
	StartDate time.Time
	EndDate   time.Time
}

func (b *ScheduledBlock) Key() Key {
	return Key{TaskName: b.Task.Name, StartDate: b.StartDate(), EndDate: b.EndDate()}
}

// MultiWeekGroup is an ordered sequence of ScheduledBlocks of the same
// multi-week MAIN task whose week-starts are consecutive and total
// number_of_weeks.
type MultiWeekGroup struct {
	Task   *registry.Task
	Blocks []*ScheduledBlock
}

func (g *MultiWeekGroup) StartDate() time.Time { return g.Blocks[0].StartDate() }
func (g *MultiWeekGroup) EndDate() time.Time   { return g.Blocks[len(g.Blocks)-1].EndDate() }

func newBlock(task *registry.Task, pb calendar.PeriodBlock) *ScheduledBlock {
	return &ScheduledBlock{
		Task:      task,
		WeekStart: pb.WeekStart,
		Days:      pb.Days,
		Heaviness: task.Heaviness,
		Mandatory: task.Mandatory,
	}
}
