// Package view implements the view resolution engine: building typed views
// from the symbolic DSL tree, compiling filters into record predicates,
// and merging per-query matches into one disclosure decision per record.
package view

import (
	"fmt"

	"orgcal/internal/model"
)

// DetailLevel controls how much of a record is disclosed in a feed.
type DetailLevel string

const (
	// DetailFull discloses everything.
	DetailFull DetailLevel = "full"
	// DetailSummaryOnly discloses the title but hides the rest.
	DetailSummaryOnly DetailLevel = "summary-only"
	// DetailTimeOnly discloses only busy/free timing; the title is replaced.
	DetailTimeOnly DetailLevel = "time-only"
)

// Precedence orders detail levels for the merge rule. A more restrictive
// level has higher precedence: full < summary-only < time-only.
func (d DetailLevel) Precedence() int {
	switch d {
	case DetailFull:
		return 1
	case DetailSummaryOnly:
		return 2
	case DetailTimeOnly:
		return 3
	default:
		return 0
	}
}

func (d DetailLevel) valid() bool { return d.Precedence() > 0 }

// View is one tokenized feed definition.
type View struct {
	Name string
	// Token is the opaque public lookup key, case-sensitive and unique
	// across views. Immutable once parsed.
	Token     string
	Detail    DetailLevel // default detail, inherited downward
	Calendars []*Calendar
}

// Calendar is a named, colored grouping of queries inside a view. It is a
// disclosure/display category only.
type Calendar struct {
	Name    string
	Color   string // opaque hint, may be empty
	Detail  DetailLevel
	Queries []*Query
}

// Query is one compiled filter plus its effective detail level.
type Query struct {
	Detail DetailLevel
	Filter Filter
	// Source is the filter form as written, for logging and /view output.
	Source string
}

// Table is the complete parsed view set, keyed by token. A Table is
// immutable after Rebuild; concurrent readers share it freely.
type Table struct {
	Views   []*View
	byToken map[string]*View
}

// Lookup returns the view for a token, or nil if the token is unknown.
func (t *Table) Lookup(token string) *View {
	if t == nil {
		return nil
	}
	return t.byToken[token]
}

// Len returns the number of views in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Views)
}

// Entry is the single winning disclosure decision for one record within one
// view, after merging all matching queries.
type Entry struct {
	Task     model.Task
	Detail   DetailLevel
	Category string // winning calendar's display name
	Color    string // winning calendar's color hint
}

// Title returns the disclosed title: time-only entries render the fixed
// placeholder regardless of the record's actual title.
func (e Entry) Title() string {
	if e.Detail == DetailTimeOnly {
		return "Busy"
	}
	return e.Task.Title
}

func (v *View) String() string {
	return fmt.Sprintf("view %q (token %q, %d calendars)", v.Name, v.Token, len(v.Calendars))
}
