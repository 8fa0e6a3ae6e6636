package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

// AssignmentRecord is one entry in a physician's schedule (spec.md
// §4.7): the task, its day range, and the per-assignment score it
// contributed to the objective.
type AssignmentRecord struct {
	Task      string
	StartDate time.Time
	EndDate   time.Time
	Days      []time.Time
	Score     float64
}

// PhysicianSummary rolls up one physician's assignments: per-category
// counts, total working weeks, and total revenue.
type PhysicianSummary struct {
	CategoryCounts map[string]int
	WorkingWeeks   float64
	Revenue        int
}

// Schedule is the final, per-physician chronologically ordered output
// of one scheduling invocation.
type Schedule struct {
	Assignments map[string][]AssignmentRecord
	Summaries   map[string]*PhysicianSummary
	Slack       []string // group descriptions covered by slack, not by a physician
}

// Materialize converts a Solution into a Schedule: sorts each
// physician's assignments by start date and computes summary stats.
func Materialize(reg *registry.Registry, solution *Solution) *Schedule {
	sched := &Schedule{
		Assignments: make(map[string][]AssignmentRecord),
		Summaries:   make(map[string]*PhysicianSummary),
	}
	if solution == nil {
		return sched
	}

	for _, a := range solution.Assignments {
		if a.Slack {
			sched.Slack = append(sched.Slack, fmt.Sprintf("%s:%s", a.Group.TaskName, blockRangeTag(a.Group)))
			continue
		}
		if a.Physician == "" {
			continue
		}
		task, ok := reg.GetTask(a.Group.TaskName)
		if !ok {
			continue
		}
		for _, b := range a.Group.Blocks {
			rec := AssignmentRecord{
				Task:      a.Group.TaskName,
				StartDate: b.StartDate(),
				EndDate:   b.EndDate(),
				Days:      b.Days,
				Score:     a.Weight,
			}
			sched.Assignments[a.Physician] = append(sched.Assignments[a.Physician], rec)

			summary := sched.summaryFor(a.Physician)
			if summary.CategoryCounts == nil {
				summary.CategoryCounts = make(map[string]int)
			}
			summary.CategoryCounts[task.Category.Name]++
			summary.WorkingWeeks += float64(len(b.Days)) / 7.0
			summary.Revenue += task.Revenue()
		}
	}

	for physician, records := range sched.Assignments {
		sort.Slice(records, func(i, j int) bool { return records[i].StartDate.Before(records[j].StartDate) })
		sched.Assignments[physician] = records
	}

	return sched
}

func (s *Schedule) summaryFor(physician string) *PhysicianSummary {
	if s.Summaries[physician] == nil {
		s.Summaries[physician] = &PhysicianSummary{CategoryCounts: make(map[string]int)}
	}
	return s.Summaries[physician]
}

// recordDoc is the saved-schedule wire shape (spec.md §6): one
// assignment keyed by physician full name elsewhere.
type recordDoc struct {
	Task      string   `json:"task"`
	Days      []string `json:"days"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Score     float64  `json:"score"`
}

const isoDate = "2006-01-02"

// ToJSON renders the schedule as the top-level-object-keyed-by-physician
// document spec.md §6 describes.
func (s *Schedule) ToJSON() ([]byte, error) {
	doc := make(map[string][]recordDoc, len(s.Assignments))
	for physician, records := range s.Assignments {
		docs := make([]recordDoc, 0, len(records))
		for _, r := range records {
			days := make([]string, len(r.Days))
			for i, d := range r.Days {
				days[i] = d.Format(isoDate)
			}
			docs = append(docs, recordDoc{
				Task:      r.Task,
				Days:      days,
				StartDate: r.StartDate.Format(isoDate),
				EndDate:   r.EndDate.Format(isoDate),
				Score:     r.Score,
			})
		}
		doc[physician] = docs
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ScheduleFromJSON parses a saved-schedule document back into assignment
// records keyed by physician (HintFromRecords turns them into an
// InitialSchedule), validating the day-contiguity
// invariant spec.md §6 names (days[0] = start_date, days[-1] = end_date,
// days contiguous).
func ScheduleFromJSON(data []byte) (map[string][]AssignmentRecord, error) {
	var doc map[string][]recordDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schedule: parse json: %w", err)
	}

	out := make(map[string][]AssignmentRecord, len(doc))
	for physician, docs := range doc {
		var records []AssignmentRecord
		for _, d := range docs {
			days := make([]time.Time, len(d.Days))
			for i, ds := range d.Days {
				day, err := time.Parse(isoDate, ds)
				if err != nil {
					return nil, fmt.Errorf("schedule: physician %s task %s: bad day %q: %w", physician, d.Task, ds, err)
				}
				days[i] = day
			}
			start, err := time.Parse(isoDate, d.StartDate)
			if err != nil {
				return nil, fmt.Errorf("schedule: physician %s task %s: bad start_date: %w", physician, d.Task, err)
			}
			end, err := time.Parse(isoDate, d.EndDate)
			if err != nil {
				return nil, fmt.Errorf("schedule: physician %s task %s: bad end_date: %w", physician, d.Task, err)
			}
			if len(days) == 0 || !days[0].Equal(start) || !days[len(days)-1].Equal(end) {
				return nil, fmt.Errorf("schedule: physician %s task %s: days must start at start_date and end at end_date", physician, d.Task)
			}
			for i := 1; i < len(days); i++ {
				if !days[i].Equal(days[i-1].AddDate(0, 0, 1)) {
					return nil, fmt.Errorf("schedule: physician %s task %s: days are not contiguous", physician, d.Task)
				}
			}
			records = append(records, AssignmentRecord{Task: d.Task, StartDate: start, EndDate: end, Days: days, Score: d.Score})
		}
		out[physician] = records
	}
	return out, nil
}
