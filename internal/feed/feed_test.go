package feed

import (
	"strings"
	"testing"

	"orgcal/internal/model"
	"orgcal/internal/view"
)

func entry(task model.Task, detail view.DetailLevel) view.Entry {
	return view.Entry{Task: task, Detail: detail, Category: "Work", Color: "#336699"}
}

func TestRenderFeedEventComponent(t *testing.T) {
	e := entry(model.Task{
		ID:          1,
		Title:       "Team offsite",
		Kind:        model.KindEvent,
		TsStartDate: "2026-03-10",
		TsStartTime: "09:30",
		TsEndDate:   "2026-03-10",
		TsEndTime:   "17:00",
	}, view.DetailFull)

	out := string(RenderFeed([]view.Entry{e}, "Europe/Berlin"))

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"END:VCALENDAR",
		"BEGIN:VEVENT",
		"END:VEVENT",
		"SUMMARY:Team offsite",
		"DTSTART;TZID=Europe/Berlin:20260310T093000",
		"DTEND;TZID=Europe/Berlin:20260310T170000",
		"CATEGORIES:Work",
		"COLOR:#336699",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("feed missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "BEGIN:VTODO") {
		t.Error("event entry produced a VTODO component")
	}
}

func TestRenderFeedTodoComponent(t *testing.T) {
	e := entry(model.Task{
		ID:                2,
		Title:             "File report",
		Todo:              "TODO",
		Kind:              model.KindTask,
		DeadlineStartDate: "2026-04-01",
	}, view.DetailFull)

	out := string(RenderFeed([]view.Entry{e}, "UTC"))

	for _, want := range []string{
		"BEGIN:VTODO",
		"END:VTODO",
		"SUMMARY:File report",
		"STATUS:TODO",
		"DUE;VALUE=DATE:20260401",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("feed missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "BEGIN:VEVENT") {
		t.Error("task entry produced a VEVENT component")
	}
}

func TestRenderFeedAllDayEvent(t *testing.T) {
	e := entry(model.Task{
		Kind:        model.KindEvent,
		Title:       "Holiday",
		TsStartDate: "2026-05-01",
		TsAllDay:    true,
	}, view.DetailFull)

	out := string(RenderFeed([]view.Entry{e}, "UTC"))
	if !strings.Contains(out, "DTSTART;VALUE=DATE:20260501") {
		t.Errorf("all-day event missing date-valued DTSTART:\n%s", out)
	}
	if strings.Contains(out, "DTEND") {
		t.Errorf("event without end date should have no DTEND:\n%s", out)
	}
}

// Time-only entries keep their timing but never their real title.
func TestRenderFeedRedaction(t *testing.T) {
	e := entry(model.Task{
		Kind:        model.KindEvent,
		Title:       "Salary negotiation",
		TsStartDate: "2026-03-10",
		TsStartTime: "14:00",
	}, view.DetailTimeOnly)

	out := string(RenderFeed([]view.Entry{e}, "UTC"))
	if strings.Contains(out, "Salary negotiation") {
		t.Errorf("time-only feed leaked the real title:\n%s", out)
	}
	if !strings.Contains(out, "SUMMARY:Busy") {
		t.Errorf("time-only feed missing Busy placeholder:\n%s", out)
	}
	if !strings.Contains(out, "DTSTART;TZID=UTC:20260310T140000") {
		t.Errorf("time-only feed should still carry timing:\n%s", out)
	}
}

func TestRenderFeedUIDsUniqueWithinRender(t *testing.T) {
	entries := []view.Entry{
		entry(model.Task{ID: 1, Title: "a", Kind: model.KindEvent, TsStartDate: "2026-01-01"}, view.DetailFull),
		entry(model.Task{ID: 2, Title: "b", Kind: model.KindEvent, TsStartDate: "2026-01-02"}, view.DetailFull),
		entry(model.Task{ID: 3, Title: "c", Kind: model.KindTask, DeadlineStartDate: "2026-01-03"}, view.DetailFull),
	}
	out := string(RenderFeed(entries, "UTC"))

	seen := make(map[string]bool)
	for _, line := range strings.Split(out, "\r\n") {
		if !strings.HasPrefix(line, "UID:") {
			continue
		}
		if seen[line] {
			t.Errorf("duplicate %s within one render", line)
		}
		seen[line] = true
	}
	if len(seen) != 3 {
		t.Errorf("found %d UID lines, want 3", len(seen))
	}
}

func TestRenderFeedEmpty(t *testing.T) {
	out := string(RenderFeed(nil, "UTC"))
	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		t.Errorf("empty feed should still be a valid calendar:\n%s", out)
	}
}

func TestTasksJSON(t *testing.T) {
	entries := []view.Entry{
		entry(model.Task{ID: 1, Title: "visible", Todo: "TODO", Kind: model.KindTask, Tags: "work"}, view.DetailFull),
		entry(model.Task{ID: 2, Title: "hidden", Kind: model.KindTask}, view.DetailTimeOnly),
	}
	objs := Tasks(entries)
	if len(objs) != 2 {
		t.Fatalf("got %d objects, want 2", len(objs))
	}
	if objs[0].Title != "visible" || objs[0].DetailLevel != "full" || objs[0].Category != "Work" {
		t.Errorf("object 0 = %+v", objs[0])
	}
	if objs[1].Title != "Busy" {
		t.Errorf("time-only task title = %q, want Busy", objs[1].Title)
	}
}

func TestEventsJSON(t *testing.T) {
	entries := []view.Entry{
		entry(model.Task{
			ID: 5, Title: "secret", Kind: model.KindEvent,
			TsStartDate: "2026-02-01", TsStartTime: "10:00",
		}, view.DetailTimeOnly),
	}
	objs := Events(entries)
	if len(objs) != 1 {
		t.Fatalf("got %d objects, want 1", len(objs))
	}
	o := objs[0]
	if o.Title != "Busy" {
		t.Errorf("time-only event title = %q, want Busy", o.Title)
	}
	if o.TsStartDate != "2026-02-01" || o.TsStartTime != "10:00" {
		t.Errorf("timing should survive redaction, got %+v", o)
	}
	if o.DetailLevel != "time-only" {
		t.Errorf("detail_level = %q, want time-only", o.DetailLevel)
	}
}

func TestTasksJSONEmpty(t *testing.T) {
	if objs := Tasks(nil); objs == nil || len(objs) != 0 {
		t.Errorf("Tasks(nil) = %v, want empty non-nil slice", objs)
	}
	if objs := Events(nil); objs == nil || len(objs) != 0 {
		t.Errorf("Events(nil) = %v, want empty non-nil slice", objs)
	}
}
