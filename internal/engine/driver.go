package engine

import (
	"fmt"
	"time"

	"github.com/bruno.lopes/dutyplanner/internal/blocks"
	"github.com/bruno.lopes/dutyplanner/internal/calendar"
	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

// Backend is the injected solving capability (spec.md §9 design note):
// the core depends only on this interface, never on a concrete solver,
// so unit tests can swap in a fake that records the assembled model.
type Backend interface {
	Solve(reg *registry.Registry, model *Model) (*Solution, Status, *InfeasibleReport)
}

// InitialSchedule is a previously generated schedule submitted as a
// solution hint (spec.md §4.4 step 5): for each physician, the blocks
// they held, keyed the same way a ScheduledBlock's Key is.
type InitialSchedule map[string][]blocks.Key

// Result is what Generate returns: either Schedule is populated (solver
// reported OPTIMAL or FEASIBLE) or Diagnosis is (anything else).
type Result struct {
	Schedule  *Schedule
	Diagnosis *Diagnosis
	Status    Status
}

// Diagnosis is the structured report spec.md §7's InfeasibleError
// carries: the groups the search could not resolve and the candidate
// trace, dumped for offline inspection.
type Diagnosis struct {
	Status             Status
	UnresolvableGroups []string
	Trace              map[blocks.Key]*TraceEntry
}

// Driver runs the pipeline: Registry + Calendar -> Block Materializer ->
// Variable Builder -> Backend -> Schedule Materializer (spec.md §2,
// §4.4). The backend enforces the hard constraints and evaluates the
// objective itself; Generate does not call AssembleConstraints.
type Driver struct {
	Registry *registry.Registry
	Region   string
	Holidays calendar.HolidayPredicate
	Backend  Backend
}

// NewDriver wires a Driver with the real branch-and-bound backend.
func NewDriver(reg *registry.Registry, holidays calendar.HolidayPredicate) *Driver {
	return &Driver{Registry: reg, Holidays: holidays, Backend: NewBnBBackend()}
}

// Generate runs one scheduling invocation over [start, end]. When
// useInitial is true and initial is non-nil, each prior assignment adds
// HintBonus to that physician's weight for the matching group (a
// solution hint), which raises it in candidate order and in the
// objective; it never forces an assignment the current constraints
// would reject.
func (d *Driver) Generate(start, end time.Time, useInitial bool, initial InitialSchedule) (*Result, error) {
	maxWeeks := d.maxNumberOfWeeks()
	extendedEnd := end.AddDate(0, 0, (maxWeeks-1)*7)

	weeks := calendar.Decompose(start, extendedEnd, d.Holidays)
	materialized := blocks.Materialize(d.Registry, weeks)

	model := BuildModel(d.Registry, materialized)
	if useInitial && initial != nil {
		applyHint(model, initial)
	}

	backend := d.Backend
	if backend == nil {
		backend = NewBnBBackend()
	}
	solution, status, infeasible := backend.Solve(d.Registry, model)

	if status != Optimal && status != Feasible {
		return &Result{
			Status: status,
			Diagnosis: &Diagnosis{
				Status:             status,
				UnresolvableGroups: groupNames(infeasible),
				Trace:              model.Trace,
			},
		}, nil
	}

	return &Result{
		Status:   status,
		Schedule: Materialize(d.Registry, solution),
	}, nil
}

func (d *Driver) maxNumberOfWeeks() int {
	max := 1
	for _, c := range d.Registry.Categories() {
		if c.NumberOfWeeks > max {
			max = c.NumberOfWeeks
		}
	}
	return max
}

func groupNames(r *InfeasibleReport) []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, g := range r.UnresolvableGroups {
		out = append(out, fmt.Sprintf("%s:%s", g.TaskName, blockRangeTag(g)))
	}
	return out
}

// HintFromRecords converts a loaded schedule (engine.ScheduleFromJSON's
// output) into an InitialSchedule: the solution-hint shape Generate
// expects, keyed the same way a ScheduledBlock's Key is.
func HintFromRecords(records map[string][]AssignmentRecord) InitialSchedule {
	hint := make(InitialSchedule, len(records))
	for physician, recs := range records {
		keys := make([]blocks.Key, 0, len(recs))
		for _, r := range recs {
			keys = append(keys, blocks.Key{TaskName: r.Task, StartDate: r.StartDate, EndDate: r.EndDate})
		}
		hint[physician] = keys
	}
	return hint
}

// applyHint implements solution hinting (spec.md §4.4 step 5) by
// recording each hinted physician on the Group that holds the hinted
// block (Group.HintedPhysician). The branch-and-bound backend then adds
// HintBonus to that physician's weight for the group, so a hint is a
// preference bonus rather than a separate mechanism.
func applyHint(model *Model, initial InitialSchedule) {
	byKey := make(map[blocks.Key]*Group)
	for _, g := range model.Groups {
		for _, b := range g.Blocks {
			byKey[b.Key()] = g
		}
	}
	for physician, keys := range initial {
		for _, k := range keys {
			if g, ok := byKey[k]; ok {
				g.HintedPhysician = physician
			}
		}
	}
}
