package engine

import (
	"sort"
	"time"

	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

// Status mirrors a CP-SAT solver's terminal status.
type Status int

const (
	Optimal Status = iota
	Feasible
	Infeasible
	Unknown
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "OPTIMAL"
	case Feasible:
		return "FEASIBLE"
	case Infeasible:
		return "INFEASIBLE"
	default:
		return "UNKNOWN"
	}
}

// Assignment is one committed decision: group g went to Physician, or
// was left unassigned (Physician == "" && !Slack), or was covered by
// slack (Slack == true).
type Assignment struct {
	Group     *Group
	Physician string
	Slack     bool
	Weight    float64
}

// Solution is the backend's output: every committed assignment and the
// total objective value attained.
type Solution struct {
	Assignments []Assignment
	Objective   float64
}

// searchState is the mutable, backtrackable state threaded through the
// DFS. physicianDays tracks the actual calendar days already committed
// to each physician (not a bounding span: see addOverlapRows for why a
// MultiWeekGroup's interior weekend must not read as busy).
type searchState struct {
	physicianDays map[string]map[time.Time]bool
	assignedTo    map[*Group]string // group -> physician name, only for committed non-slack, non-empty assignments
	assignedW     map[*Group]float64
	slacked       map[*Group]bool
	hist          map[string]PhysicianHistory
}

func newSearchState() *searchState {
	return &searchState{
		physicianDays: make(map[string]map[time.Time]bool),
		assignedTo:    make(map[*Group]string),
		assignedW:     make(map[*Group]float64),
		slacked:       make(map[*Group]bool),
		hist:          make(map[string]PhysicianHistory),
	}
}

func (s *searchState) isFree(p *registry.Physician, g *Group) bool {
	days := s.physicianDays[p.FullName]
	if days == nil {
		return true
	}
	for _, b := range g.Blocks {
		for _, d := range b.Days {
			if days[d] {
				return false
			}
		}
	}
	return true
}

func (s *searchState) commit(g *Group, physician string, weight float64) {
	days := s.physicianDays[physician]
	if days == nil {
		days = make(map[time.Time]bool)
		s.physicianDays[physician] = days
	}
	for _, b := range g.Blocks {
		for _, d := range b.Days {
			days[d] = true
		}
		s.hist[physician] = Advance(s.hist[physician], b)
	}
	s.assignedTo[g] = physician
	s.assignedW[g] = weight
}

func (s *searchState) uncommit(g *Group, physician string, prevHist map[string]PhysicianHistory) {
	days := s.physicianDays[physician]
	for _, b := range g.Blocks {
		for _, d := range b.Days {
			delete(days, d)
		}
	}
	delete(s.assignedTo, g)
	delete(s.assignedW, g)
	if h, ok := prevHist[physician]; ok {
		s.hist[physician] = h
	} else {
		delete(s.hist, physician)
	}
}

// BnBBackend is the real Solver Driver backend: a constructive
// branch-and-bound search over Groups in two phases (every non-CALL
// group, then every CALL group, linked or not), so that by the time a CALL group is decided, every MAIN
// group it might link to has already been committed. Mandatory
// coverage is always satisfiable through slack when the statically
// eligible candidate set is empty (spec.md §4.5 C3); when candidates
// exist but every one of them conflicts dynamically, the branch dead-
// ends and the search backtracks, which is how true infeasibility can
// still arise.
type BnBBackend struct {
	NodeBudget int
}

// NewBnBBackend returns a backend with a generous default node budget;
// spec.md §5 treats solver limits as advisory, so exhausting the
// budget yields the best solution found so far (status Feasible), or
// Infeasible when no complete solution had been found yet.
func NewBnBBackend() *BnBBackend {
	return &BnBBackend{NodeBudget: 200000}
}

// InfeasibleReport is produced when no complete assignment was found:
// every group at which an explored branch dead-ended (a mandatory
// group whose candidates were all busy or unlinked, or a group with no
// completable subtree), in the order the search hit them, for the
// diagnosis (spec.md §6, §7).
type InfeasibleReport struct {
	UnresolvableGroups []*Group
}

func (b *BnBBackend) Solve(reg *registry.Registry, model *Model) (*Solution, Status, *InfeasibleReport) {
	ordered := orderGroups(reg, model)
	state := newSearchState()
	search := &searcher{reg: reg, model: model, budget: b.nodeBudget()}

	found, best := search.dfs(ordered, 0, state, 0)
	if !found {
		return nil, Infeasible, &InfeasibleReport{UnresolvableGroups: search.deadEnds}
	}
	status := Optimal
	if search.exhausted {
		status = Feasible
	}
	return best, status, nil
}

func (b *BnBBackend) nodeBudget() int {
	if b.NodeBudget > 0 {
		return b.NodeBudget
	}
	return 200000
}

// orderGroups returns every group, non-CALL groups first, each phase
// sorted chronologically by its first block's start date.
func orderGroups(reg *registry.Registry, model *Model) []*Group {
	var mains, calls []*Group
	for _, g := range model.Groups {
		task, ok := reg.GetTask(g.TaskName)
		if ok && task.IsCall() {
			calls = append(calls, g)
		} else {
			mains = append(mains, g)
		}
	}
	byStart := func(gs []*Group) {
		sort.Slice(gs, func(i, j int) bool {
			return gs[i].FirstBlock().StartDate().Before(gs[j].FirstBlock().StartDate())
		})
	}
	byStart(mains)
	byStart(calls)
	return append(mains, calls...)
}

type searcher struct {
	reg       *registry.Registry
	model     *Model
	budget    int
	nodes     int
	exhausted bool
	deadEnds  []*Group

	bestObjective float64
	bestFound     bool
	bestSolution  *Solution
}

// dfs explores groups[idx:]. It returns whether at least one complete
// assignment was found anywhere in the subtree, updating the searcher's
// best solution as it goes.
func (s *searcher) dfs(groups []*Group, idx int, state *searchState, objSoFar float64) (bool, *Solution) {
	s.nodes++
	if s.nodes > s.budget {
		s.exhausted = true
		if s.bestFound {
			return true, s.bestSolution
		}
		return false, nil
	}

	if idx == len(groups) {
		total := objSoFar + BalancePenalty(s.reg, state.hist, totalHorizonWeeks(s.model))
		if !s.bestFound || total > s.bestObjective {
			s.bestFound = true
			s.bestObjective = total
			s.bestSolution = snapshot(state, total)
		}
		return true, s.bestSolution
	}

	g := groups[idx]
	candidates := s.feasibleCandidates(g, state)

	if g.Mandatory && len(g.Candidates) == 0 {
		// Static candidate set empty: slack is the only legal choice.
		state.slacked[g] = true
		found, sol := s.dfs(groups, idx+1, state, objSoFar-SlackPenalty)
		delete(state.slacked, g)
		return found, sol
	}

	if g.Mandatory && len(candidates) == 0 {
		// Eligible statically, but every candidate conflicts dynamically:
		// this branch is a dead end.
		s.deadEnds = append(s.deadEnds, g)
		return false, nil
	}

	type option struct {
		physician *registry.Physician
		weight    float64
	}
	var options []option
	for _, p := range candidates {
		w := Weight(g.FirstBlock(), p, histPtr(state, p.FullName))
		if g.HintedPhysician != "" && g.HintedPhysician == p.FullName {
			w += HintBonus
		}
		options = append(options, option{p, w})
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].weight != options[j].weight {
			return options[i].weight > options[j].weight
		}
		return options[i].physician.FullName < options[j].physician.FullName
	})

	anyFound := false
	for _, opt := range options {
		prevHist := map[string]PhysicianHistory{opt.physician.FullName: state.hist[opt.physician.FullName]}
		state.commit(g, opt.physician.FullName, opt.weight)
		found, _ := s.dfs(groups, idx+1, state, objSoFar+opt.weight)
		state.uncommit(g, opt.physician.FullName, prevHist)
		if found {
			anyFound = true
		}
		if s.exhausted {
			break
		}
	}

	if !g.Mandatory {
		found, _ := s.dfs(groups, idx+1, state, objSoFar)
		if found {
			anyFound = true
		}
	}

	if !anyFound {
		s.deadEnds = append(s.deadEnds, g)
	}
	return anyFound, s.bestSolution
}

// feasibleCandidates narrows g.Candidates to those not dynamically
// busy and, for a linked CALL group, to those currently holding an
// adjacent MAIN group.
func (s *searcher) feasibleCandidates(g *Group, state *searchState) []*registry.Physician {
	task, ok := s.reg.GetTask(g.TaskName)
	var linked []string
	if ok && task.IsCall() {
		linked = s.reg.MainTasksLinkedTo(g.TaskName)
	}
	var adjacent []*Group
	if len(linked) > 0 {
		adjacent = adjacentMainGroups(s.reg, s.model, linked, g)
	}

	var out []*registry.Physician
	for _, p := range g.Candidates {
		if !state.isFree(p, g) {
			continue
		}
		if len(linked) > 0 {
			holds := false
			for _, mg := range adjacent {
				if state.assignedTo[mg] == p.FullName {
					holds = true
					break
				}
			}
			if !holds {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func histPtr(state *searchState, name string) *PhysicianHistory {
	h, ok := state.hist[name]
	if !ok {
		return nil
	}
	return &h
}

func totalHorizonWeeks(m *Model) float64 {
	var earliest, latest time.Time
	first := true
	for _, g := range m.Groups {
		for _, b := range g.Blocks {
			for _, d := range b.Days {
				if first || d.Before(earliest) {
					earliest = d
				}
				if first || d.After(latest) {
					latest = d
				}
				first = false
			}
		}
	}
	if first {
		return 0
	}
	return latest.Sub(earliest).Hours()/24/7 + 1
}

func snapshot(state *searchState, objective float64) *Solution {
	sol := &Solution{Objective: objective}
	for g, p := range state.assignedTo {
		sol.Assignments = append(sol.Assignments, Assignment{Group: g, Physician: p, Weight: state.assignedW[g]})
	}
	for g := range state.slacked {
		sol.Assignments = append(sol.Assignments, Assignment{Group: g, Slack: true})
	}
	sort.Slice(sol.Assignments, func(i, j int) bool {
		return sol.Assignments[i].Group.FirstBlock().StartDate().Before(sol.Assignments[j].Group.FirstBlock().StartDate())
	})
	return sol
}
