// Package feed renders resolved view entries into the two serialization
// targets: an iCalendar feed and flat JSON objects. Both honor the
// per-entry detail level; time-only entries disclose timing but never the
// real title.
package feed

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"orgcal/internal/model"
	"orgcal/internal/view"
)

// MediaType is the content type of the rendered feed.
const MediaType = "text/calendar"

const prodID = "-//orgcal//EN"

// RenderFeed renders one calendar component per entry: an event component
// from the generic timestamp group for events, a to-do component from the
// deadline group for tasks. Components get freshly generated identifiers on
// every render; identifiers are unique within one render but not stable
// across renders, since consumers key off content.
func RenderFeed(entries []view.Entry, tz string) []byte {
	cal := ical.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetVersion("2.0")

	now := time.Now().UTC()

	for _, e := range entries {
		switch e.Task.Kind {
		case model.KindEvent:
			addEvent(cal, e, tz, now)
		case model.KindTask:
			addTodo(cal, e, tz, now)
		}
	}
	return []byte(cal.Serialize())
}

func addEvent(cal *ical.Calendar, e view.Entry, tz string, now time.Time) {
	ev := cal.AddEvent(uuid.New().String())
	ev.SetProperty(ical.ComponentProperty("DTSTAMP"), stampUTC(now))
	ev.SetProperty(ical.ComponentPropertySummary, e.Title())

	setDateTime(&ev.ComponentBase, ical.ComponentPropertyDtStart,
		e.Task.TsStartDate, e.Task.TsStartTime, tz)
	setDateTime(&ev.ComponentBase, ical.ComponentPropertyDtEnd,
		e.Task.TsEndDate, e.Task.TsEndTime, tz)

	attachCategory(&ev.ComponentBase, e)
}

func addTodo(cal *ical.Calendar, e view.Entry, tz string, now time.Time) {
	todo := &ical.VTodo{}
	todo.SetProperty(ical.ComponentPropertyUniqueId, uuid.New().String())
	todo.SetProperty(ical.ComponentProperty("DTSTAMP"), stampUTC(now))
	todo.SetProperty(ical.ComponentPropertySummary, e.Title())
	if e.Task.Todo != "" {
		todo.SetProperty(ical.ComponentProperty("STATUS"), e.Task.Todo)
	}

	setDateTime(&todo.ComponentBase, ical.ComponentProperty("DUE"),
		e.Task.DeadlineStartDate, e.Task.DeadlineStartTime, tz)

	attachCategory(&todo.ComponentBase, e)
	cal.Components = append(cal.Components, todo)
}

// setDateTime sets a date property from the stored date/time strings. A
// date with a wall-clock time becomes a TZID-qualified date-time; a date
// without a time becomes an all-day date value; an empty date sets nothing.
func setDateTime(cb *ical.ComponentBase, prop ical.ComponentProperty, date, clock, tz string) {
	if date == "" {
		return
	}
	compact := strings.ReplaceAll(date, "-", "")
	if clock == "" {
		cb.SetProperty(prop, compact,
			&ical.KeyValues{Key: "VALUE", Value: []string{"DATE"}})
		return
	}
	value := compact + "T" + strings.ReplaceAll(clock, ":", "") + "00"
	cb.SetProperty(prop, value,
		&ical.KeyValues{Key: "TZID", Value: []string{tz}})
}

// attachCategory adds the winning calendar's name and color hint, when set.
// COLOR has no stable constant in the library, so the raw name is used.
func attachCategory(cb *ical.ComponentBase, e view.Entry) {
	if e.Category != "" {
		cb.SetProperty(ical.ComponentProperty("CATEGORIES"), e.Category)
	}
	if e.Color != "" {
		cb.SetProperty(ical.ComponentProperty("COLOR"), e.Color)
	}
}

func stampUTC(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// TaskObject is the flat JSON shape for /calendar/{token}/tasks.json.
type TaskObject struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	Category           string `json:"category"`
	Todo               string `json:"todo"`
	Kind               string `json:"kind"`
	ScheduledStartDate string `json:"scheduled_start_date"`
	ScheduledStartTime string `json:"scheduled_start_time"`
	ScheduledEndDate   string `json:"scheduled_end_date"`
	ScheduledEndTime   string `json:"scheduled_end_time"`
	Tags               string `json:"tags"`
	DetailLevel        string `json:"detail_level"`
}

// Tasks serializes entries into the task JSON shape, applying redaction.
func Tasks(entries []view.Entry) []TaskObject {
	out := make([]TaskObject, 0, len(entries))
	for _, e := range entries {
		out = append(out, TaskObject{
			ID:                 e.Task.ID,
			Title:              e.Title(),
			Category:           e.Category,
			Todo:               e.Task.Todo,
			Kind:               e.Task.Kind,
			ScheduledStartDate: e.Task.ScheduledStartDate,
			ScheduledStartTime: e.Task.ScheduledStartTime,
			ScheduledEndDate:   e.Task.ScheduledEndDate,
			ScheduledEndTime:   e.Task.ScheduledEndTime,
			Tags:               e.Task.Tags,
			DetailLevel:        string(e.Detail),
		})
	}
	return out
}

// EventObject is the flat JSON shape for /calendar/{token}/events.json.
type EventObject struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Kind        string `json:"kind"`
	Tags        string `json:"tags"`
	File        string `json:"file"`
	TsStartDate string `json:"ts_start_date"`
	TsStartTime string `json:"ts_start_time"`
	TsEndDate   string `json:"ts_end_date"`
	TsEndTime   string `json:"ts_end_time"`
	DetailLevel string `json:"detail_level"`
}

// Events serializes entries into the event JSON shape, applying redaction.
func Events(entries []view.Entry) []EventObject {
	out := make([]EventObject, 0, len(entries))
	for _, e := range entries {
		out = append(out, EventObject{
			ID:          e.Task.ID,
			Title:       e.Title(),
			Category:    e.Category,
			Kind:        e.Task.Kind,
			Tags:        e.Task.Tags,
			File:        e.Task.File,
			TsStartDate: e.Task.TsStartDate,
			TsStartTime: e.Task.TsStartTime,
			TsEndDate:   e.Task.TsEndDate,
			TsEndTime:   e.Task.TsEndTime,
			DetailLevel: string(e.Detail),
		})
	}
	return out
}
