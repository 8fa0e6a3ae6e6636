// Package ics renders a generated Schedule as an iCalendar document
// (spec.md §6), one VEVENT per assignment record, using emersion/go-ical
// the way the example corpus's CalDAV syncer builds calendars.
package ics

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	ical "github.com/emersion/go-ical"

	"github.com/bruno.lopes/dutyplanner/internal/engine"
)

// Export renders sched as a complete VCALENDAR document: one VEVENT per
// assignment record across every physician, ordered by start date then
// physician name for determinism.
func Export(sched *engine.Schedule) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//dutyplanner//Schedule Export//EN")

	for _, rec := range orderedRecords(sched) {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, eventUID(rec))
		event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, rec.record.StartDate)
		// DTEND is exclusive per the iCalendar format: one day past the
		// assignment's last day (spec.md §6).
		event.Props.SetDateTime(ical.PropDateTimeEnd, rec.record.EndDate.AddDate(0, 0, 1))
		event.Props.SetText(ical.PropSummary, fmt.Sprintf("%s − %s", rec.record.Task, rec.physician))
		event.Props.SetText(ical.PropDescription, fmt.Sprintf(
			"Physician: %s\nTask: %s\nScore: %.2f", rec.physician, rec.record.Task, rec.record.Score,
		))
		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	enc := ical.NewEncoder(&buf)
	if err := enc.Encode(cal); err != nil {
		return nil, fmt.Errorf("ics: encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

type orderedRecord struct {
	physician string
	record    engine.AssignmentRecord
}

func orderedRecords(sched *engine.Schedule) []orderedRecord {
	var out []orderedRecord
	for physician, recs := range sched.Assignments {
		for _, r := range recs {
			out = append(out, orderedRecord{physician: physician, record: r})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].record.StartDate.Equal(out[j].record.StartDate) {
			return out[i].record.StartDate.Before(out[j].record.StartDate)
		}
		return out[i].physician < out[j].physician
	})
	return out
}

// eventUID derives a stable identifier from task, physician, and start
// date (spec.md §6), so re-exporting an unchanged schedule yields the
// same UIDs.
func eventUID(r orderedRecord) string {
	return fmt.Sprintf("%s-%s-%s@dutyplanner", r.record.Task, r.physician, r.record.StartDate.Format("2006-01-02"))
}
