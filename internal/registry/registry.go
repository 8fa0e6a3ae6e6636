// Package registry holds the immutable catalog of task categories,
// tasks, main/call linkages, and physicians that the scheduler reads
// from. Once built by the Configuration Loader it is never mutated
// again; every other component treats it as a read-only lookup table.
package registry

import (
	"fmt"
	"sort"
)

// Registry is the read-only catalog described in spec.md §3/§4.2.
type Registry struct {
	categories map[string]*TaskCategory
	tasks      map[string]*Task
	taskOrder  []string
	physicians map[string]*Physician
	physOrder  []string

	// linkage maps a MAIN task name to the CALL task name that
	// co-assigns with it. Several MAIN tasks may point at the same
	// CALL task.
	linkage map[string]string
}

// New builds a Registry from categories, tasks, a MAIN->CALL linkage
// map, and physicians. It validates every invariant from spec.md §3 and
// returns every problem found (not just the first) joined into one
// error, so a single run surfaces the whole defect list.
func New(categories []*TaskCategory, tasks []*Task, linkage map[string]string, physicians []*Physician) (*Registry, error) {
	r := &Registry{
		categories: make(map[string]*TaskCategory),
		tasks:      make(map[string]*Task),
		physicians: make(map[string]*Physician),
		linkage:    make(map[string]string),
	}

	var errs []string

	for _, c := range categories {
		if c == nil {
			continue
		}
		if err := c.validate(); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if _, dup := r.categories[c.Name]; dup {
			errs = append(errs, fmt.Sprintf("category %s: duplicate name", c.Name))
			continue
		}
		r.categories[c.Name] = c
	}

	callTaskOfCategory := make(map[string]string)
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if err := t.validate(); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if _, dup := r.tasks[t.Name]; dup {
			errs = append(errs, fmt.Sprintf("task %s: duplicate name", t.Name))
			continue
		}
		if _, ok := r.categories[t.Category.Name]; !ok {
			errs = append(errs, fmt.Sprintf("task %s: references unknown category %s", t.Name, t.Category.Name))
			continue
		}
		if t.Type == Call {
			if existing, dup := callTaskOfCategory[t.Category.Name]; dup {
				errs = append(errs, fmt.Sprintf("category %s: more than one CALL task (%s, %s)", t.Category.Name, existing, t.Name))
				continue
			}
			callTaskOfCategory[t.Category.Name] = t.Name
		}
		r.tasks[t.Name] = t
		r.taskOrder = append(r.taskOrder, t.Name)
	}

	for mainName, callName := range linkage {
		mainTask, ok := r.tasks[mainName]
		if !ok {
			errs = append(errs, fmt.Sprintf("linkage: unknown MAIN task %s", mainName))
			continue
		}
		if mainTask.Type != Main {
			errs = append(errs, fmt.Sprintf("linkage: %s is not a MAIN task", mainName))
			continue
		}
		callTask, ok := r.tasks[callName]
		if !ok {
			errs = append(errs, fmt.Sprintf("linkage: unknown CALL task %s", callName))
			continue
		}
		if callTask.Type != Call {
			errs = append(errs, fmt.Sprintf("linkage: %s is not a CALL task", callName))
			continue
		}
		r.linkage[mainName] = callName
	}

	for _, p := range physicians {
		if p == nil {
			continue
		}
		if err := p.validate(); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if _, dup := r.physicians[p.FullName]; dup {
			errs = append(errs, fmt.Sprintf("physician %s: duplicate name", p.FullName))
			continue
		}
		r.physicians[p.FullName] = p
		r.physOrder = append(r.physOrder, p.FullName)
	}

	if len(errs) > 0 {
		return nil, &ConfigurationError{Problems: errs}
	}

	sort.Strings(r.taskOrder)
	sort.Strings(r.physOrder)
	return r, nil
}

// ConfigurationError aggregates every validation problem found while
// building a Registry. It is always fatal (spec.md §7).
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return "configuration error: " + e.Problems[0]
	}
	msg := fmt.Sprintf("configuration error: %d problems found:", len(e.Problems))
	for _, p := range e.Problems {
		msg += "\n  - " + p
	}
	return msg
}

// GetTask returns the task with the given name, if any.
func (r *Registry) GetTask(name string) (*Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Tasks returns every task, ordered by name for determinism.
func (r *Registry) Tasks() []*Task {
	out := make([]*Task, 0, len(r.taskOrder))
	for _, name := range r.taskOrder {
		out = append(out, r.tasks[name])
	}
	return out
}

// TasksByType returns every task of the given type, ordered by name.
func (r *Registry) TasksByType(t TaskType) []*Task {
	var out []*Task
	for _, name := range r.taskOrder {
		if task := r.tasks[name]; task.Type == t {
			out = append(out, task)
		}
	}
	return out
}

// LinkedCallOf returns the CALL task name linked to a MAIN task, if any.
func (r *Registry) LinkedCallOf(mainTaskName string) (string, bool) {
	name, ok := r.linkage[mainTaskName]
	return name, ok
}

// MainTasksLinkedTo returns every MAIN task name linked to the given
// CALL task name, ordered for determinism.
func (r *Registry) MainTasksLinkedTo(callTaskName string) []string {
	var out []string
	for mainName, callName := range r.linkage {
		if callName == callTaskName {
			out = append(out, mainName)
		}
	}
	sort.Strings(out)
	return out
}

// Physicians returns every physician, ordered by name for determinism.
func (r *Registry) Physicians() []*Physician {
	out := make([]*Physician, 0, len(r.physOrder))
	for _, name := range r.physOrder {
		out = append(out, r.physicians[name])
	}
	return out
}

// GetPhysician returns the physician with the given name, if any.
func (r *Registry) GetPhysician(name string) (*Physician, bool) {
	p, ok := r.physicians[name]
	return p, ok
}

// Categories returns every task category, ordered by name.
func (r *Registry) Categories() []*TaskCategory {
	names := make([]string, 0, len(r.categories))
	for name := range r.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*TaskCategory, 0, len(names))
	for _, name := range names {
		out = append(out, r.categories[name])
	}
	return out
}
