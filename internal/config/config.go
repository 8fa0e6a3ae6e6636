// Package config loads the three JSON configuration documents
// (spec.md §6: tasks.json, physicians.json, calendar.json) into a
// registry.Registry and a CalendarConfig. The first problem found in
// each of the three documents is collected and returned as one
// registry.ConfigurationError, so a run reports every broken document
// at once; registry.New then aggregates its own validation errors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bruno.lopes/dutyplanner/internal/calendar"
	"github.com/bruno.lopes/dutyplanner/internal/holidays"
	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

// CalendarConfig is calendar.json decoded: the scheduling horizon, the
// Nager.Date region tag, and any explicit extra holidays.
type CalendarConfig struct {
	Start         time.Time
	End           time.Time
	Region        string
	ExtraHolidays []time.Time
}

type taskDoc struct {
	Categories []categoryDoc     `json:"categories"`
	Tasks      []taskEntryDoc    `json:"tasks"`
	Linkage    map[string]string `json:"linkage"`
}

type categoryDoc struct {
	Name           string `json:"name"`
	DaysParameter  string `json:"days_parameter"`
	NumberOfWeeks  int    `json:"number_of_weeks"`
	WeekdayRevenue int    `json:"weekday_revenue"`
	CallRevenue    int    `json:"call_revenue"`
	Restricted     bool   `json:"restricted"`
}

type taskEntryDoc struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Type       string `json:"type"`
	WeekOffset int    `json:"week_offset"`
	Heaviness  int    `json:"heaviness"`
	Mandatory  bool   `json:"mandatory"`
}

type physicianDocSet struct {
	Physicians []physicianDoc `json:"physicians"`
}

type physicianDoc struct {
	FullName            string            `json:"full_name"`
	Qualifications      []string          `json:"qualifications"`
	ExclusionTasks      []string          `json:"exclusion_tasks"`
	RestrictedTasks     []string          `json:"restricted_tasks"`
	PreferredTasks      []string          `json:"preferred_tasks"`
	DesiredWorkingWeeks float64           `json:"desired_working_weeks"`
	DiscontinuityPref   bool              `json:"discontinuity_pref"`
	Unavailability      []json.RawMessage `json:"unavailability"`
}

type calendarDoc struct {
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	Region        string   `json:"region"`
	ExtraHolidays []string `json:"extra_holidays"`
}

// Load reads tasks.json, physicians.json, and calendar.json from their
// given paths and builds a Registry plus CalendarConfig. Each document's
// loader stops at its first parse or reference error; those errors
// (at most one per file) are collected into one
// registry.ConfigurationError. registry.New's invariant checks run only
// when all three documents loaded, and report every invariant problem.
func Load(tasksPath, physiciansPath, calendarPath string) (*registry.Registry, *CalendarConfig, error) {
	var problems []string

	categories, tasks, linkage, err := loadTasks(tasksPath)
	if err != nil {
		problems = append(problems, err.Error())
	}
	physicians, err := loadPhysicians(physiciansPath)
	if err != nil {
		problems = append(problems, err.Error())
	}
	cal, err := loadCalendar(calendarPath)
	if err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return nil, nil, &registry.ConfigurationError{Problems: problems}
	}

	reg, err := registry.New(categories, tasks, linkage, physicians)
	if err != nil {
		return nil, nil, err
	}
	return reg, cal, nil
}

func loadTasks(path string) ([]*registry.TaskCategory, []*registry.Task, map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("tasks config: %w", err)
	}
	var doc taskDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, nil, fmt.Errorf("tasks config: invalid JSON: %w", err)
	}

	categoriesByName := make(map[string]*registry.TaskCategory, len(doc.Categories))
	categories := make([]*registry.TaskCategory, 0, len(doc.Categories))
	for _, c := range doc.Categories {
		cat := &registry.TaskCategory{
			Name:           c.Name,
			DaysParameter:  registry.DaysParameter(c.DaysParameter),
			NumberOfWeeks:  c.NumberOfWeeks,
			WeekdayRevenue: c.WeekdayRevenue,
			CallRevenue:    c.CallRevenue,
			Restricted:     c.Restricted,
		}
		categories = append(categories, cat)
		categoriesByName[c.Name] = cat
	}

	tasks := make([]*registry.Task, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		cat, ok := categoriesByName[t.Category]
		if !ok {
			return nil, nil, nil, fmt.Errorf("tasks config: task %s references unknown category %s", t.Name, t.Category)
		}
		tasks = append(tasks, &registry.Task{
			Name:       t.Name,
			Category:   cat,
			Type:       registry.TaskType(t.Type),
			WeekOffset: t.WeekOffset,
			Heaviness:  t.Heaviness,
			Mandatory:  t.Mandatory,
		})
	}

	return categories, tasks, doc.Linkage, nil
}

func loadPhysicians(path string) ([]*registry.Physician, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("physicians config: %w", err)
	}
	var doc physicianDocSet
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("physicians config: invalid JSON: %w", err)
	}

	out := make([]*registry.Physician, 0, len(doc.Physicians))
	for _, p := range doc.Physicians {
		intervals, err := parseUnavailability(p.Unavailability)
		if err != nil {
			return nil, fmt.Errorf("physicians config: physician %s: %w", p.FullName, err)
		}
		out = append(out, &registry.Physician{
			FullName:                p.FullName,
			Qualifications:          toSet(p.Qualifications),
			ExclusionTasks:          toSet(p.ExclusionTasks),
			RestrictedTasks:         toSet(p.RestrictedTasks),
			PreferredTasks:          p.PreferredTasks,
			DesiredWorkingWeeks:     p.DesiredWorkingWeeks,
			DiscontinuityPref:       p.DiscontinuityPref,
			UnavailabilityIntervals: intervals,
		})
	}
	return out, nil
}

// parseUnavailability accepts each entry as either a single ISO date
// string or a [start, end] pair (spec.md §6), both inclusive.
func parseUnavailability(entries []json.RawMessage) ([]registry.DateRange, error) {
	var out []registry.DateRange
	for _, raw := range entries {
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			d, err := parseDate(single)
			if err != nil {
				return nil, err
			}
			out = append(out, registry.DateRange{Start: d, End: d})
			continue
		}
		var pair [2]string
		if err := json.Unmarshal(raw, &pair); err != nil {
			return nil, fmt.Errorf("unavailability entry %s: must be a date string or [start, end] pair", string(raw))
		}
		start, err := parseDate(pair[0])
		if err != nil {
			return nil, err
		}
		end, err := parseDate(pair[1])
		if err != nil {
			return nil, err
		}
		out = append(out, registry.DateRange{Start: start, End: end})
	}
	return out, nil
}

func loadCalendar(path string) (*CalendarConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("calendar config: %w", err)
	}
	var doc calendarDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("calendar config: invalid JSON: %w", err)
	}

	start, err := parseDate(doc.StartDate)
	if err != nil {
		return nil, fmt.Errorf("calendar config: start_date: %w", err)
	}
	end, err := parseDate(doc.EndDate)
	if err != nil {
		return nil, fmt.Errorf("calendar config: end_date: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("calendar config: end_date before start_date")
	}

	extra := make([]time.Time, 0, len(doc.ExtraHolidays))
	for _, s := range doc.ExtraHolidays {
		d, err := parseDate(s)
		if err != nil {
			return nil, fmt.Errorf("calendar config: extra_holidays: %w", err)
		}
		extra = append(extra, d)
	}

	return &CalendarConfig{Start: start, End: end, Region: doc.Region, ExtraHolidays: extra}, nil
}

// Years lists every calendar year a scheduling horizon touches, since a
// horizon may span a year boundary and region holidays are resolved one
// year at a time.
func Years(start, end time.Time) []int {
	if end.Before(start) {
		return nil
	}
	years := make([]int, 0, end.Year()-start.Year()+1)
	for y := start.Year(); y <= end.Year(); y++ {
		years = append(years, y)
	}
	return years
}

// HolidayPredicate resolves cal's region across the years its horizon
// spans (extended to maxExtendedEnd, since multi-week tasks push the
// effective window past cal.End) and returns a calendar.HolidayPredicate
// backed by the resulting Set, closing the loop between the Region
// Holiday Source and the Calendar Decomposer: a run with no region
// configured still calls Resolve, which degrades to the explicit extra
// holidays alone (holidays.Source.Resolve treats an empty region as
// "no holidays" rather than an error).
func HolidayPredicate(source *holidays.Source, cal *CalendarConfig, maxExtendedEnd time.Time) calendar.HolidayPredicate {
	years := Years(cal.Start, maxExtendedEnd)
	set := holidays.Resolve(source, cal.Region, years, cal.ExtraHolidays)
	return set.Contains
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: %w", s, err)
	}
	return d, nil
}

func toSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}
