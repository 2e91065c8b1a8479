package view

import (
	"testing"

	"orgcal/internal/model"
)

func buildTable(t *testing.T, src string) *Table {
	t.Helper()
	table, err := Rebuild(src)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	return table
}

func TestResolveUnknownToken(t *testing.T) {
	table := buildTable(t, `(view :token "t" (calendar (query (and))))`)
	got := Resolve(table, "missing", []model.Task{{ID: 1, Title: "x"}})
	if got == nil {
		t.Fatal("unknown token should yield an empty slice, not nil")
	}
	if len(got) != 0 {
		t.Errorf("unknown token resolved %d entries, want 0", len(got))
	}
}

func TestResolveBasicMatch(t *testing.T) {
	table := buildTable(t, `(view :token "t"
	  (calendar :name "Work" :color "#abc"
	    (query (tag "work"))))`)
	records := []model.Task{
		{ID: 1, Title: "standup", Tags: "work"},
		{ID: 2, Title: "groceries", Tags: "home"},
	}
	entries := Resolve(table, "t", records)
	if len(entries) != 1 {
		t.Fatalf("resolved %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Task.ID != 1 || e.Detail != DetailFull || e.Category != "Work" || e.Color != "#abc" {
		t.Errorf("entry = %+v, want record 1 full via Work/#abc", e)
	}
}

// A record matched by several queries yields exactly one entry.
func TestResolveOneEntryPerRecord(t *testing.T) {
	table := buildTable(t, `(view :token "t"
	  (calendar :name "A" (query (tag "work")) (query (todo "TODO")))
	  (calendar :name "B" (query (and))))`)
	records := []model.Task{{ID: 7, Title: "x", Tags: "work", Todo: "TODO"}}
	entries := Resolve(table, "t", records)
	if len(entries) != 1 {
		t.Fatalf("resolved %d entries, want 1", len(entries))
	}
}

// The two comparator cases: a strictly more restrictive candidate replaces
// the winner regardless of order, and every other candidate overwrites the
// winner too, so among equal-or-lower detail matches the last declaration
// wins.
func TestResolveMergePrecedence(t *testing.T) {
	records := []model.Task{{ID: 1, Title: "secret", Tags: "work"}}

	t.Run("restrictive replaces earlier full", func(t *testing.T) {
		table := buildTable(t, `(view :token "t"
		  (calendar :name "Open" (query (tag "work")))
		  (calendar :name "Hidden" :detail time-only (query (tag "work"))))`)
		entries := Resolve(table, "t", records)
		if len(entries) != 1 {
			t.Fatalf("resolved %d entries, want 1", len(entries))
		}
		if entries[0].Detail != DetailTimeOnly || entries[0].Category != "Hidden" {
			t.Errorf("entry = %+v, want time-only via Hidden", entries[0])
		}
	})

	t.Run("later lower detail overwrites earlier restrictive match", func(t *testing.T) {
		table := buildTable(t, `(view :token "t"
		  (calendar :name "Hidden" :detail time-only (query (tag "work")))
		  (calendar :name "Open" (query (tag "work"))))`)
		entries := Resolve(table, "t", records)
		if entries[0].Detail != DetailFull || entries[0].Category != "Open" {
			t.Errorf("entry = %+v, want full via Open (last declaration wins among non-higher detail)", entries[0])
		}
	})

	t.Run("equal precedence favors the last declaration", func(t *testing.T) {
		table := buildTable(t, `(view :token "t"
		  (calendar :name "First" (query (tag "work")))
		  (calendar :name "Second" (query (tag "work"))))`)
		entries := Resolve(table, "t", records)
		if entries[0].Category != "Second" {
			t.Errorf("category = %q, want Second (last equal match wins)", entries[0].Category)
		}
	})

	t.Run("restrictive final declaration wins the whole sequence", func(t *testing.T) {
		table := buildTable(t, `(view :token "t"
		  (calendar :name "S" :detail summary-only (query (tag "work")))
		  (calendar :name "F" (query (tag "work")))
		  (calendar :name "T" :detail time-only (query (tag "work"))))`)
		entries := Resolve(table, "t", records)
		if entries[0].Detail != DetailTimeOnly || entries[0].Category != "T" {
			t.Errorf("entry = %+v, want time-only via T", entries[0])
		}
	})
}

// Entries keep the order their records were first matched in, even when a
// later query upgrades a winner.
func TestResolveOrderingStable(t *testing.T) {
	table := buildTable(t, `(view :token "t"
	  (calendar :name "A" (query (tag "work")))
	  (calendar :name "B" :detail time-only (query (todo "TODO"))))`)
	records := []model.Task{
		{ID: 1, Title: "one", Tags: "work", Todo: "TODO"},
		{ID: 2, Title: "two", Tags: "work"},
		{ID: 3, Title: "three", Todo: "TODO"},
	}
	entries := Resolve(table, "t", records)
	if len(entries) != 3 {
		t.Fatalf("resolved %d entries, want 3", len(entries))
	}
	wantIDs := []int64{1, 2, 3}
	for i, want := range wantIDs {
		if entries[i].Task.ID != want {
			t.Errorf("entry %d id = %d, want %d", i, entries[i].Task.ID, want)
		}
	}
	// Record 1 matched both calendars; B's time-only must win.
	if entries[0].Detail != DetailTimeOnly {
		t.Errorf("entry 0 detail = %q, want time-only", entries[0].Detail)
	}
	if entries[1].Detail != DetailFull {
		t.Errorf("entry 1 detail = %q, want full", entries[1].Detail)
	}
}

func TestResolveEndToEnd(t *testing.T) {
	table := buildTable(t, `
	(view :name "Shared" :token "shared"
	  (calendar :name "Work" :color "#336699"
	    (query (and (tag "work") (not (todo "DONE")))))
	  (calendar :name "Blocked" :detail time-only
	    (query (or (tag "private") (scheduled_after "2026-06-01")))))`)

	records := []model.Task{
		{ID: 1, Title: "review", Tags: "work", Todo: "TODO", ScheduledStartDate: "2026-05-01"},
		{ID: 2, Title: "done thing", Tags: "work", Todo: "DONE"},
		{ID: 3, Title: "dentist", Tags: "private", ScheduledStartDate: "2026-05-02"},
		{ID: 4, Title: "offsite", Tags: "work", Todo: "TODO", ScheduledStartDate: "2026-07-01"},
	}

	entries := Resolve(table, "shared", records)
	byID := make(map[int64]Entry)
	for _, e := range entries {
		byID[e.Task.ID] = e
	}

	if len(entries) != 3 {
		t.Fatalf("resolved %d entries, want 3", len(entries))
	}
	if _, ok := byID[2]; ok {
		t.Error("DONE record should not appear")
	}
	if e := byID[1]; e.Detail != DetailFull || e.Title() != "review" {
		t.Errorf("record 1 = %+v, want full with real title", e)
	}
	if e := byID[3]; e.Detail != DetailTimeOnly || e.Title() != "Busy" {
		t.Errorf("record 3 = %+v, want time-only with Busy title", e)
	}
	// Record 4 matches Work (full) and Blocked (time-only); the restrictive
	// level wins.
	if e := byID[4]; e.Detail != DetailTimeOnly || e.Category != "Blocked" {
		t.Errorf("record 4 = %+v, want time-only via Blocked", e)
	}
}

func TestEntryTitleRedaction(t *testing.T) {
	task := model.Task{Title: "salary talk"}
	if got := (Entry{Task: task, Detail: DetailFull}).Title(); got != "salary talk" {
		t.Errorf("full title = %q", got)
	}
	if got := (Entry{Task: task, Detail: DetailSummaryOnly}).Title(); got != "salary talk" {
		t.Errorf("summary-only title = %q, want real title", got)
	}
	if got := (Entry{Task: task, Detail: DetailTimeOnly}).Title(); got != "Busy" {
		t.Errorf("time-only title = %q, want Busy", got)
	}
}

func TestResolveEmptyRecords(t *testing.T) {
	table := buildTable(t, `(view :token "t" (calendar (query (and))))`)
	entries := Resolve(table, "t", nil)
	if len(entries) != 0 {
		t.Errorf("resolved %d entries from no records, want 0", len(entries))
	}
}
