// Package engine implements the Variable Builder, Constraint Assembler,
// Objective Assembler, Solver Driver, and Schedule Materializer from
// spec.md §4.4-§4.7. The solving strategy is a constructive
// branch-and-bound search over Groups in chronological order (see
// backend.go) rather than a generic ILP relaxation, since no
// CP-SAT-equivalent library exists anywhere in the Go ecosystem this
// module draws on; DESIGN.md records that decision and why the
// Constraint Assembler's output still takes the shape of explicit,
// inspectable linear constraints rather than being folded directly
// into the search.
package engine

import (
	"sort"

	"github.com/bruno.lopes/dutyplanner/internal/blocks"
	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

// VarID identifies one boolean decision variable.
type VarID int

// GroupKind distinguishes a standalone ScheduledBlock decision from a
// MultiWeekGroup decision that ties several blocks to one physician.
type GroupKind int

const (
	SingleBlock GroupKind = iota
	MultiWeek
)

// Group is one assignment decision point: a single ScheduledBlock, or
// a MultiWeekGroup whose member blocks must all go to the same
// physician (C5 coherence). Exactly one Group exists per ScheduledBlock
// or MultiWeekGroup produced by the Block Materializer.
type Group struct {
	Kind      GroupKind
	TaskName  string
	Blocks    []*blocks.ScheduledBlock // one (SingleBlock) or several in week order (MultiWeek)
	Mandatory bool

	// Candidates is the intersection of eligible, available physicians
	// across every member block, sorted by name for determinism.
	Candidates []*registry.Physician

	// Vars maps physician name to the y[group, physician] decision
	// variable. One var stands for the whole group: for a MultiWeek
	// group this IS the C5 coherence tie, so no separate equality
	// constraint is needed between member blocks.
	Vars map[string]VarID

	SlackVar VarID
	HasSlack bool

	// HintedPhysician is the physician this group was assigned to in a
	// prior schedule submitted as a solution hint (spec.md §4.4 step
	// 5). It adds HintBonus to that physician's weight for this group;
	// it never overrides a constraint.
	HintedPhysician string
}

// FirstBlock returns the chronologically-first member block.
func (g *Group) FirstBlock() *blocks.ScheduledBlock { return g.Blocks[0] }

// LastBlock returns the chronologically-last member block.
func (g *Group) LastBlock() *blocks.ScheduledBlock { return g.Blocks[len(g.Blocks)-1] }

// Model is the full set of decision variables built from a
// registry.Registry's materialized blocks: one Group per ScheduledBlock
// (CALL tasks, continuous MAIN tasks) or MultiWeekGroup (multi-week MAIN
// tasks), plus a Trace recording why each physician was kept
// or dropped, for the debug artifacts spec.md §6 describes.
type Model struct {
	Groups  []*Group
	nextVar VarID
	Trace   map[blocks.Key]*TraceEntry
}

// TraceEntry records the Variable Builder's candidate narrowing for one
// block: the full physician roster, then the subset surviving
// availability filtering, then the subset surviving eligibility
// filtering. Later narrowing (mandatory coverage, non-overlap, linkage)
// happens during the search and is not recorded per block; on an
// infeasible run the backend only names the groups at which its search
// dead-ended (backend.go's InfeasibleReport).
type TraceEntry struct {
	Initial           []string
	AfterAvailability []string
	AfterEligibility  []string
}

func (m *Model) newVar() VarID {
	m.nextVar++
	return m.nextVar
}

// BuildModel runs the Variable Builder (spec.md §4.4) over every
// materialized task's blocks and groups.
func BuildModel(reg *registry.Registry, materialized map[string]*blocks.Materialized) *Model {
	m := &Model{Trace: make(map[blocks.Key]*TraceEntry)}

	for _, task := range reg.Tasks() {
		mat := materialized[task.Name]
		if mat == nil {
			continue
		}
		if task.Category.DaysParameter == registry.MultiWeek && task.Type == registry.Main {
			for _, g := range mat.Groups {
				m.addGroup(reg, MultiWeek, task.Name, g.Blocks, task.Mandatory)
			}
			continue
		}
		for _, b := range mat.Blocks {
			m.addGroup(reg, SingleBlock, task.Name, []*blocks.ScheduledBlock{b}, task.Mandatory)
		}
	}
	return m
}

func (m *Model) addGroup(reg *registry.Registry, kind GroupKind, taskName string, blks []*blocks.ScheduledBlock, mandatory bool) {
	candidateSets := make([][]*registry.Physician, len(blks))
	for i, b := range blks {
		candidateSets[i] = filterCandidates(reg, b, m.Trace)
	}

	candidates := intersectPhysicians(candidateSets)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].FullName < candidates[j].FullName })

	g := &Group{
		Kind:      kind,
		TaskName:  taskName,
		Blocks:    blks,
		Mandatory: mandatory,
		Vars:      make(map[string]VarID),
	}
	for _, b := range blks {
		b.Candidates = candidates
	}
	g.Candidates = candidates
	for _, p := range candidates {
		g.Vars[p.FullName] = m.newVar()
	}
	// Per spec.md §4.5 C3, a slack variable only exists when the
	// statically-eligible candidate set is empty; when candidates
	// exist, a dynamic clash (overlap or linkage) must backtrack
	// rather than fall back to slack.
	if mandatory && len(candidates) == 0 {
		g.SlackVar = m.newVar()
		g.HasSlack = true
	}
	m.Groups = append(m.Groups, g)
}

// filterCandidates applies C1 (availability) and C2 (eligibility) for a
// single block, recording the narrowing into trace.
func filterCandidates(reg *registry.Registry, b *blocks.ScheduledBlock, trace map[blocks.Key]*TraceEntry) []*registry.Physician {
	entry := &TraceEntry{}
	all := reg.Physicians()
	for _, p := range all {
		entry.Initial = append(entry.Initial, p.FullName)
	}

	var afterAvail []*registry.Physician
	for _, p := range all {
		if !p.IsUnavailableAny(b.Days) {
			afterAvail = append(afterAvail, p)
			entry.AfterAvailability = append(entry.AfterAvailability, p.FullName)
		}
	}

	var afterElig []*registry.Physician
	for _, p := range afterAvail {
		if p.Eligible(b.Task.Category.Name) {
			afterElig = append(afterElig, p)
			entry.AfterEligibility = append(entry.AfterEligibility, p.FullName)
		}
	}

	trace[b.Key()] = entry
	return afterElig
}

func intersectPhysicians(sets [][]*registry.Physician) []*registry.Physician {
	if len(sets) == 0 {
		return nil
	}
	counts := make(map[string]int)
	byName := make(map[string]*registry.Physician)
	for _, set := range sets {
		seen := make(map[string]bool)
		for _, p := range set {
			if seen[p.FullName] {
				continue
			}
			seen[p.FullName] = true
			counts[p.FullName]++
			byName[p.FullName] = p
		}
	}
	var out []*registry.Physician
	for name, c := range counts {
		if c == len(sets) {
			out = append(out, byName[name])
		}
	}
	return out
}
