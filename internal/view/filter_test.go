package view

import (
	"errors"
	"testing"

	"orgcal/internal/model"
)

func compile(t *testing.T, expr any) Filter {
	t.Helper()
	f, err := Compile(expr)
	if err != nil {
		t.Fatalf("Compile(%v) failed: %v", expr, err)
	}
	return f
}

func list(parts ...any) []any { return parts }

func TestCompileLeafOperators(t *testing.T) {
	rec := model.Task{
		Title:              "Weekly sync",
		Todo:               "TODO",
		Kind:               model.KindTask,
		Tags:               "work,meeting",
		File:               "/org/work.org",
		ScheduledStartDate: "2026-03-10",
		DeadlineStartDate:  "2026-03-15",
	}

	tests := []struct {
		name string
		expr []any
		want bool
	}{
		{"tag match", list("tag", "work"), true},
		{"tag miss", list("tag", "home"), false},
		{"tag substring looseness", list("tag", "eet"), true},
		{"todo match", list("todo", "TODO"), true},
		{"todo is exact", list("todo", "TOD"), false},
		{"kind match", list("kind", "task"), true},
		{"kind miss", list("kind", "event"), false},
		{"file match", list("file", "/org/work.org"), true},
		{"file is exact", list("file", "work.org"), false},
		{"scheduled_after inclusive", list("scheduled_after", "2026-03-10"), true},
		{"scheduled_after earlier bound", list("scheduled_after", "2026-03-01"), true},
		{"scheduled_after later bound", list("scheduled_after", "2026-03-11"), false},
		{"scheduled_before inclusive", list("scheduled_before", "2026-03-10"), true},
		{"scheduled_before earlier bound", list("scheduled_before", "2026-03-09"), false},
		{"deadline_after", list("deadline_after", "2026-03-15"), true},
		{"deadline_before", list("deadline_before", "2026-03-14"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compile(t, tt.expr).Match(&rec); got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
		})
	}
}

// Records without the relevant date never match a date bound, in either
// direction.
func TestDateBoundMissingDate(t *testing.T) {
	rec := model.Task{Title: "undated"}
	for _, op := range []string{"scheduled_after", "scheduled_before", "deadline_after", "deadline_before"} {
		if compile(t, list(op, "2026-01-01")).Match(&rec) {
			t.Errorf("(%s ...) matched a record with no date", op)
		}
	}
}

func TestCompositeOperators(t *testing.T) {
	work := model.Task{Tags: "work", Todo: "TODO"}
	home := model.Task{Tags: "home", Todo: "DONE"}

	and := compile(t, list("and", list("tag", "work"), list("todo", "TODO")))
	if !and.Match(&work) {
		t.Error("and should match when all children match")
	}
	if and.Match(&home) {
		t.Error("and should not match when a child fails")
	}

	or := compile(t, list("or", list("tag", "work"), list("todo", "DONE")))
	if !or.Match(&work) || !or.Match(&home) {
		t.Error("or should match when any child matches")
	}
	if or.Match(&model.Task{Tags: "errand"}) {
		t.Error("or should not match when no child matches")
	}

	not := compile(t, list("not", list("tag", "work")))
	if not.Match(&work) {
		t.Error("not should invert a match")
	}
	if !not.Match(&home) {
		t.Error("not should invert a miss")
	}
}

// Zero-child composites have fixed truth values: (and) matches everything,
// (or) matches nothing.
func TestVacuousComposites(t *testing.T) {
	rec := model.Task{Title: "anything"}
	if !compile(t, list("and")).Match(&rec) {
		t.Error("(and) should be vacuously true")
	}
	if compile(t, list("or")).Match(&rec) {
		t.Error("(or) should be vacuously false")
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		expr    any
		unknown bool // expect UnknownOperatorError rather than SchemaError
	}{
		{"unknown operator", list("regex", ".*"), true},
		{"unknown operator nested", list("and", list("tag", "x"), list("glob", "*")), true},
		{"non-list filter", "tag", false},
		{"empty form", list(), false},
		{"numeric head", list(3.0, "x"), false},
		{"not arity", list("not", list("tag", "a"), list("tag", "b")), false},
		{"tag arity", list("tag"), false},
		{"tag non-string arg", list("tag", 5.0), false},
		{"todo two args", list("todo", "A", "B"), false},
		{"bad date literal", list("scheduled_after", "next week"), false},
		{"date wrong shape", list("deadline_before", "2026-1-1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.expr)
			if err == nil {
				t.Fatalf("Compile(%v) succeeded, want error", tt.expr)
			}
			var unknownErr *UnknownOperatorError
			var schemaErr *SchemaError
			if tt.unknown {
				if !errors.As(err, &unknownErr) {
					t.Errorf("error = %v (%T), want *UnknownOperatorError", err, err)
				}
			} else if !errors.As(err, &schemaErr) {
				t.Errorf("error = %v (%T), want *SchemaError", err, err)
			}
		})
	}
}

func TestUnknownOperatorNamesTheOperator(t *testing.T) {
	_, err := Compile(list("frobnicate", "x"))
	var ue *UnknownOperatorError
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v (%T), want *UnknownOperatorError", err, err)
	}
	if ue.Op != "frobnicate" {
		t.Errorf("Op = %q, want frobnicate", ue.Op)
	}
}
