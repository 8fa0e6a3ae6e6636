package blocks

import (
	"github.com/bruno.lopes/dutyplanner/internal/calendar"
	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

// Materialized is everything the Block Materializer produces for one
// task: its plain ScheduledBlocks (continuous MAIN tasks and every CALL
// task) and, for multi-week MAIN tasks, the MultiWeekGroups those blocks
// were bundled into.
type Materialized struct {
	Blocks []*ScheduledBlock
	Groups []*MultiWeekGroup
}

// Materialize runs the Block Materializer (spec.md §4.3) for every task
// in the registry against the decomposed weeks.
func Materialize(reg *registry.Registry, weeks []calendar.WeekBlocks) map[string]*Materialized {
	out := make(map[string]*Materialized)
	for _, task := range reg.Tasks() {
		out[task.Name] = materializeTask(task, weeks)
	}
	return out
}

func materializeTask(task *registry.Task, weeks []calendar.WeekBlocks) *Materialized {
	switch task.Type {
	case registry.Call:
		return &Materialized{Blocks: materializeCall(task, weeks)}
	case registry.Main:
		if task.Category.DaysParameter == registry.Continuous {
			return &Materialized{Blocks: materializeContinuousMain(task, weeks)}
		}
		return materializeMultiWeekMain(task, weeks)
	default:
		return &Materialized{}
	}
}

func materializeCall(task *registry.Task, weeks []calendar.WeekBlocks) []*ScheduledBlock {
	var out []*ScheduledBlock
	for _, week := range weeks {
		for _, pb := range week.Blocks {
			if pb.Type == calendar.CallBlock {
				out = append(out, newBlock(task, pb))
			}
		}
	}
	return out
}

func materializeContinuousMain(task *registry.Task, weeks []calendar.WeekBlocks) []*ScheduledBlock {
	var out []*ScheduledBlock
	for _, week := range weeks {
		for _, pb := range week.Blocks {
			if pb.Type == calendar.MainBlock {
				out = append(out, newBlock(task, pb))
			}
		}
	}
	return out
}

// materializeMultiWeekMain groups consecutive-week MAIN blocks of a
// multi-week task into MultiWeekGroups of length
// task.Category.NumberOfWeeks, aligned so that group boundaries satisfy
// (week_index + task.WeekOffset) % number_of_weeks == 0. Groups that
// cannot be completed within the given weeks are discarded (the caller
// is expected to have pre-extended the horizon, per spec.md §4.4).
func materializeMultiWeekMain(task *registry.Task, weeks []calendar.WeekBlocks) *Materialized {
	n := task.Category.NumberOfWeeks
	m := &Materialized{}

	periodStarted := false
	var current []*ScheduledBlock
	weeksInGroup := 0

	for wi, week := range weeks {
		if (wi+task.WeekOffset)%n == 0 {
			periodStarted = true
			current = nil
			weeksInGroup = 0
		}
		if !periodStarted {
			continue
		}
		for _, pb := range week.Blocks {
			if pb.Type == calendar.MainBlock {
				current = append(current, newBlock(task, pb))
			}
		}
		weeksInGroup++
		if weeksInGroup == n {
			// Group complete: commit it and its blocks together. An
			// incomplete trailing group (horizon ended first) is
			// simply dropped here, matching spec.md §4.3's discard
			// rule for groups that can't be completed.
			if len(current) > 0 {
				m.Groups = append(m.Groups, &MultiWeekGroup{Task: task, Blocks: current})
				m.Blocks = append(m.Blocks, current...)
			}
			periodStarted = false
			current = nil
			weeksInGroup = 0
		}
	}
	return m
}
