package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

// Relation is the comparison operator of a LinearConstraint.
type Relation int

const (
	LE Relation = iota
	EQ
)

// Term is one coefficient in a LinearConstraint, referencing either a
// group's y[group, physician] variable or its slack variable.
type Term struct {
	Group     *Group
	Physician string // empty when IsSlack
	IsSlack   bool
	Coeff     int64
}

// Constraint is one row of the assembled model: Σ coeff*var REL rhs.
// Every hard constraint family from spec.md §4.5 (C3, C4, C5) is
// emitted here as an explicit, inspectable row, independent of how the
// Solver Driver actually searches for a feasible assignment.
type Constraint struct {
	Tag   string
	Terms []Term
	Rel   Relation
	RHS   int64
}

// Constraints is the full output of the Constraint Assembler.
type Constraints struct {
	Rows []Constraint
}

// AssembleConstraints builds C3 (mandatory coverage with slack), C4
// (non-simultaneous assignment) and C5 (multi-week coherence is
// implicit in one Group per MultiWeekGroup; linkage and the CALL
// at-most-one rule are explicit rows here).
func AssembleConstraints(reg *registry.Registry, m *Model) *Constraints {
	c := &Constraints{}
	c.addCoverageRows(m)
	c.addOverlapRows(m)
	c.addLinkageRows(reg, m)
	return c
}

func (c *Constraints) addCoverageRows(m *Model) {
	for _, g := range m.Groups {
		var terms []Term
		for _, p := range g.Candidates {
			terms = append(terms, Term{Group: g, Physician: p.FullName, Coeff: 1})
		}
		if g.Mandatory {
			if g.HasSlack {
				terms = append(terms, Term{Group: g, IsSlack: true, Coeff: 1})
			}
			c.Rows = append(c.Rows, Constraint{
				Tag:  fmt.Sprintf("mandatory-coverage:%s:%s", g.TaskName, blockRangeTag(g)),
				Terms: terms,
				Rel:  EQ,
				RHS:  1,
			})
			continue
		}
		c.Rows = append(c.Rows, Constraint{
			Tag:  fmt.Sprintf("optional-coverage:%s:%s", g.TaskName, blockRangeTag(g)),
			Terms: terms,
			Rel:  LE,
			RHS:  1,
		})
	}
}

// addOverlapRows runs the two-pointer overlap sweep (spec.md §4.5 C4,
// §9 design note) over every group's bounding start/end span, sorted
// by start date, to cheaply narrow the candidate pairs; a pair only
// gets a constraint row once an exact check confirms their actual
// assigned days intersect. The exact check matters for MultiWeekGroups:
// their bounding span covers the interior weekend, but that weekend's
// days belong to a separate linked CALL block, not to the MAIN group's
// own Days, so the two must not be treated as conflicting.
func (c *Constraints) addOverlapRows(m *Model) {
	type span struct {
		group *Group
		start time.Time
		end   time.Time
	}
	var spans []span
	for _, g := range m.Groups {
		spans = append(spans, span{group: g, start: g.FirstBlock().StartDate(), end: g.LastBlock().EndDate()})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	dayset := make(map[*Group]map[time.Time]bool, len(m.Groups))
	for _, g := range m.Groups {
		dayset[g] = groupDaySet(g)
	}

	var active []span
	seenPairs := make(map[string]bool)
	for _, s := range spans {
		var stillActive []span
		for _, a := range active {
			if !a.end.Before(s.start) {
				stillActive = append(stillActive, a)
			}
		}
		active = stillActive

		for _, a := range active {
			if a.group == s.group {
				continue
			}
			key := pairKey(a.group, s.group)
			if seenPairs[key] {
				continue
			}
			seenPairs[key] = true
			if daySetsIntersect(dayset[a.group], dayset[s.group]) {
				c.emitOverlapRow(a.group, s.group)
			}
		}
		active = append(active, s)
	}
}

func groupDaySet(g *Group) map[time.Time]bool {
	out := make(map[time.Time]bool)
	for _, b := range g.Blocks {
		for _, d := range b.Days {
			out[d] = true
		}
	}
	return out
}

func daySetsIntersect(a, b map[time.Time]bool) bool {
	small, big := a, b
	if len(big) < len(small) {
		small, big = big, small
	}
	for d := range small {
		if big[d] {
			return true
		}
	}
	return false
}

func (c *Constraints) emitOverlapRow(a, b *Group) {
	for name := range a.Vars {
		if _, ok := b.Vars[name]; !ok {
			continue
		}
		c.Rows = append(c.Rows, Constraint{
			Tag: fmt.Sprintf("non-simultaneous:%s:%s:%s", name, a.TaskName, b.TaskName),
			Terms: []Term{
				{Group: a, Physician: name, Coeff: 1},
				{Group: b, Physician: name, Coeff: 1},
			},
			Rel: LE,
			RHS: 1,
		})
	}
}

func pairKey(a, b *Group) string {
	ak, bk := groupKey(a), groupKey(b)
	if ak < bk {
		return ak + "|" + bk
	}
	return bk + "|" + ak
}

func groupKey(g *Group) string {
	return g.TaskName + ":" + blockRangeTag(g)
}

func blockRangeTag(g *Group) string {
	return g.FirstBlock().StartDate().Format("2006-01-02") + ".." + g.LastBlock().EndDate().Format("2006-01-02")
}

// addLinkageRows implements C5's main/call linkage: a linked CALL
// group can only go to a physician who also holds at least one of the
// adjacent linked MAIN groups, per the §4.5 adjacency rule (a 7-day
// window around multi-week blocks, a 0..2 day follow-on for
// single-week ones), and every CALL group gets an explicit
// at-most-one row regardless of mandatory status.
func (c *Constraints) addLinkageRows(reg *registry.Registry, m *Model) {
	for _, g := range m.Groups {
		task, ok := reg.GetTask(g.TaskName)
		if !ok || !task.IsCall() {
			continue
		}

		var terms []Term
		for _, p := range g.Candidates {
			terms = append(terms, Term{Group: g, Physician: p.FullName, Coeff: 1})
		}
		c.Rows = append(c.Rows, Constraint{
			Tag:   fmt.Sprintf("call-at-most-one:%s:%s", g.TaskName, blockRangeTag(g)),
			Terms: terms,
			Rel:   LE,
			RHS:   1,
		})

		mains := reg.MainTasksLinkedTo(g.TaskName)
		if len(mains) == 0 {
			continue
		}
		adjacent := adjacentMainGroups(reg, m, mains, g)
		for name := range g.Vars {
			linkTerms := []Term{{Group: g, Physician: name, Coeff: 1}}
			for _, mg := range adjacent {
				if _, ok := mg.Vars[name]; ok {
					linkTerms = append(linkTerms, Term{Group: mg, Physician: name, Coeff: -1})
				}
			}
			// len(linkTerms) == 1 means no adjacent MAIN group has this
			// physician as a candidate: the row collapses to y <= 0,
			// forcing this candidate out of the CALL group entirely.
			c.Rows = append(c.Rows, Constraint{
				Tag:   fmt.Sprintf("linkage:%s:%s:%s", name, g.TaskName, blockRangeTag(g)),
				Terms: linkTerms,
				Rel:   LE,
				RHS:   0,
			})
		}
	}
}

// adjacentMainGroups returns every Group for one of mains whose span is
// adjacent to call per §4.5's adjacency rule: multi-week categories use
// a 7-day window on either side of call's start, single-week
// categories require the main block to end 0..2 days before call
// starts.
func adjacentMainGroups(reg *registry.Registry, m *Model, mains []string, call *Group) []*Group {
	mainSet := make(map[string]bool, len(mains))
	for _, n := range mains {
		mainSet[n] = true
	}
	callStart := call.FirstBlock().StartDate()

	var out []*Group
	for _, g := range m.Groups {
		if !mainSet[g.TaskName] {
			continue
		}
		task, ok := reg.GetTask(g.TaskName)
		if !ok {
			continue
		}
		start, end := g.FirstBlock().StartDate(), g.LastBlock().EndDate()
		var adjacent bool
		if task.Category.DaysParameter == registry.MultiWeek {
			adjacent = withinDays(start, callStart, 7) || withinDays(end, callStart, 7)
		} else {
			delta := int(callStart.Sub(end).Hours() / 24)
			adjacent = delta >= 0 && delta <= 2
		}
		if adjacent {
			out = append(out, g)
		}
	}
	return out
}

// withinDays reports whether a and b are at most n days apart.
func withinDays(a, b time.Time, n int) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= time.Duration(n)*24*time.Hour
}
