package holidays

import "time"

// Set is the resolved union of region holidays and explicit extra
// holidays for one calendar. It satisfies calendar.HolidayPredicate via
// Contains.
type Set struct {
	byDate map[time.Time]string
}

// NewSet builds a Set from region holidays (possibly nil, e.g. when
// resolution failed or no region was configured) and an explicit extra
// set. Explicit holidays always take effect, regardless of network
// availability.
func NewSet(region []Holiday, extra []time.Time) *Set {
	s := &Set{byDate: make(map[time.Time]string)}
	for _, h := range region {
		s.byDate[normalize(h.Date)] = h.Name
	}
	for _, d := range extra {
		d = normalize(d)
		if _, exists := s.byDate[d]; !exists {
			s.byDate[d] = "extra"
		}
	}
	return s
}

// Contains reports whether day is an observed holiday.
func (s *Set) Contains(day time.Time) bool {
	if s == nil {
		return false
	}
	_, ok := s.byDate[normalize(day)]
	return ok
}

// Name returns the holiday's name, if day is a holiday.
func (s *Set) Name(day time.Time) (string, bool) {
	if s == nil {
		return "", false
	}
	name, ok := s.byDate[normalize(day)]
	return name, ok
}

func normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Resolve builds a Set for one region across the years a scheduling
// horizon spans, falling back to the explicit set alone on any network
// error (spec.md §4.8: holidays are additive, never required).
func Resolve(source *Source, region string, years []int, extra []time.Time) *Set {
	var all []Holiday
	for _, year := range years {
		fetched, err := source.Resolve(region, year)
		if err != nil {
			continue
		}
		all = append(all, fetched...)
	}
	return NewSet(all, extra)
}
