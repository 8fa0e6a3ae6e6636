package registry

import (
	"fmt"
	"time"
)

// DateRange is a closed (inclusive on both ends) interval of days, or a
// single day when Start == End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day falls within the interval, inclusive.
func (r DateRange) Contains(day time.Time) bool {
	d := normalize(day)
	return !d.Before(r.Start) && !d.After(r.End)
}

func normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Physician is an immutable catalog entry for one physician.
type Physician struct {
	FullName               string
	Qualifications         map[string]bool
	ExclusionTasks         map[string]bool
	RestrictedTasks        map[string]bool
	PreferredTasks         []string
	DesiredWorkingWeeks    float64
	DiscontinuityPref      bool
	UnavailabilityIntervals []DateRange
}

func (p *Physician) validate() error {
	if p.FullName == "" {
		return fmt.Errorf("physician: full_name is required")
	}
	if p.DesiredWorkingWeeks < 0 || p.DesiredWorkingWeeks > 1 {
		return fmt.Errorf("physician %s: desired_working_weeks must be in [0,1]", p.FullName)
	}
	for _, iv := range p.UnavailabilityIntervals {
		if iv.End.Before(iv.Start) {
			return fmt.Errorf("physician %s: unavailability interval end before start", p.FullName)
		}
	}
	return nil
}

// IsUnavailable returns true iff day lies within any unavailability
// interval, inclusive on both ends.
func (p *Physician) IsUnavailable(day time.Time) bool {
	for _, iv := range p.UnavailabilityIntervals {
		if iv.Contains(day) {
			return true
		}
	}
	return false
}

// IsUnavailableAny reports whether the physician is unavailable on any
// day of the given slice.
func (p *Physician) IsUnavailableAny(days []time.Time) bool {
	for _, d := range days {
		if p.IsUnavailable(d) {
			return true
		}
	}
	return false
}

// Eligible reports whether the physician may hold a task in the given
// category. Exclusion always wins. A physician with no declared
// qualifications is treated as unrestricted (most fixtures in practice
// omit the list rather than enumerate every category); once
// qualifications are declared, only the categories named there are
// allowed.
func (p *Physician) Eligible(categoryName string) bool {
	if p.ExclusionTasks[categoryName] {
		return false
	}
	if len(p.Qualifications) == 0 {
		return true
	}
	return p.Qualifications[categoryName]
}

// PreferenceRank returns the zero-based rank of categoryName in the
// physician's preferred task list, and whether it was found at all.
func (p *Physician) PreferenceRank(categoryName string) (rank int, ok bool) {
	for i, name := range p.PreferredTasks {
		if name == categoryName {
			return i, true
		}
	}
	return 0, false
}
