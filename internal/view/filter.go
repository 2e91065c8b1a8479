package view

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"orgcal/internal/model"
)

// Filter is a compiled boolean predicate over record fields.
type Filter interface {
	Match(t *model.Task) bool
}

// Compile translates a normalized filter expression (nested []any of
// string/float64, as produced by the builder) into an evaluable Filter.
//
// Operators:
//
//	(and f...)            all children match; zero children is vacuously true
//	(or f...)             any child matches; zero children is vacuously false
//	(not f)               exactly one child
//	(tag "x")             substring containment in the comma-joined tag string
//	(todo "DONE")         exact todo/status equality
//	(kind "task")         exact kind equality
//	(file "/a/b.org")     exact source file equality
//	(scheduled_after "YYYY-MM-DD")   scheduled start date >= bound
//	(scheduled_before "YYYY-MM-DD")  scheduled start date <= bound
//	(deadline_after "YYYY-MM-DD")    deadline start date >= bound
//	(deadline_before "YYYY-MM-DD")   deadline start date <= bound
//
// Note the tag operator matches anywhere inside the joined tag string,
// including inside another tag ("work" matches "homework"). This looseness
// is a documented approximation, not exact tag-token matching.
//
// An unrecognized operator aborts compilation with UnknownOperatorError.
func Compile(expr any) (Filter, error) {
	list, ok := expr.([]any)
	if !ok {
		return nil, &SchemaError{
			Msg:  fmt.Sprintf("filter must be a list, got %s", formatExpr(expr)),
			Form: formatExpr(expr),
		}
	}
	if len(list) == 0 {
		return nil, &SchemaError{Msg: "empty filter form", Form: "()"}
	}
	head, ok := list[0].(string)
	if !ok {
		return nil, &SchemaError{
			Msg:  "filter head must be an operator symbol",
			Form: formatExpr(expr),
		}
	}
	args := list[1:]

	switch head {
	case "and":
		children, err := compileAll(args)
		if err != nil {
			return nil, err
		}
		return andFilter(children), nil
	case "or":
		children, err := compileAll(args)
		if err != nil {
			return nil, err
		}
		return orFilter(children), nil
	case "not":
		if len(args) != 1 {
			return nil, &SchemaError{
				Msg:  fmt.Sprintf("not takes exactly one child, got %d", len(args)),
				Form: formatExpr(expr),
			}
		}
		child, err := Compile(args[0])
		if err != nil {
			return nil, err
		}
		return notFilter{child}, nil

	case "tag":
		lit, err := oneStringArg(head, args, expr)
		if err != nil {
			return nil, err
		}
		return tagFilter(lit), nil
	case "todo":
		return fieldEquals(head, args, expr, func(t *model.Task) string { return t.Todo })
	case "kind":
		return fieldEquals(head, args, expr, func(t *model.Task) string { return t.Kind })
	case "file":
		return fieldEquals(head, args, expr, func(t *model.Task) string { return t.File })

	case "scheduled_after":
		return dateBound(head, args, expr, scheduledStart, boundAfter)
	case "scheduled_before":
		return dateBound(head, args, expr, scheduledStart, boundBefore)
	case "deadline_after":
		return dateBound(head, args, expr, deadlineStart, boundAfter)
	case "deadline_before":
		return dateBound(head, args, expr, deadlineStart, boundBefore)

	default:
		return nil, &UnknownOperatorError{Op: head, Form: formatExpr(expr)}
	}
}

func compileAll(args []any) ([]Filter, error) {
	out := make([]Filter, 0, len(args))
	for _, a := range args {
		f, err := Compile(a)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// andFilter matches when every child matches; empty is vacuously true.
type andFilter []Filter

func (f andFilter) Match(t *model.Task) bool {
	for _, c := range f {
		if !c.Match(t) {
			return false
		}
	}
	return true
}

// orFilter matches when any child matches; empty is vacuously false.
type orFilter []Filter

func (f orFilter) Match(t *model.Task) bool {
	for _, c := range f {
		if c.Match(t) {
			return true
		}
	}
	return false
}

type notFilter struct{ child Filter }

func (f notFilter) Match(t *model.Task) bool { return !f.child.Match(t) }

// tagFilter matches by substring containment against the comma-joined tag
// string.
type tagFilter string

func (f tagFilter) Match(t *model.Task) bool { return strings.Contains(t.Tags, string(f)) }

type equalsFilter struct {
	get  func(*model.Task) string
	want string
}

func (f equalsFilter) Match(t *model.Task) bool { return f.get(t) == f.want }

type boundDir int

const (
	boundAfter boundDir = iota
	boundBefore
)

// dateFilter compares a record date string against an ISO bound using
// lexicographic ordering, which matches chronological ordering for
// well-formed YYYY-MM-DD dates. A record with no date never matches.
type dateFilter struct {
	get   func(*model.Task) string
	bound string
	dir   boundDir
}

func (f dateFilter) Match(t *model.Task) bool {
	d := f.get(t)
	if d == "" {
		return false
	}
	if f.dir == boundAfter {
		return d >= f.bound
	}
	return d <= f.bound
}

func scheduledStart(t *model.Task) string { return t.ScheduledStartDate }
func deadlineStart(t *model.Task) string  { return t.DeadlineStartDate }

func fieldEquals(op string, args []any, expr any, get func(*model.Task) string) (Filter, error) {
	lit, err := oneStringArg(op, args, expr)
	if err != nil {
		return nil, err
	}
	return equalsFilter{get: get, want: lit}, nil
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func dateBound(op string, args []any, expr any, get func(*model.Task) string, dir boundDir) (Filter, error) {
	lit, err := oneStringArg(op, args, expr)
	if err != nil {
		return nil, err
	}
	if !isoDate.MatchString(lit) {
		return nil, &SchemaError{
			Msg:  fmt.Sprintf("%s expects a YYYY-MM-DD date, got %q", op, lit),
			Form: formatExpr(expr),
		}
	}
	return dateFilter{get: get, bound: lit, dir: dir}, nil
}

func oneStringArg(op string, args []any, expr any) (string, error) {
	if len(args) != 1 {
		return "", &SchemaError{
			Msg:  fmt.Sprintf("%s takes exactly one argument, got %d", op, len(args)),
			Form: formatExpr(expr),
		}
	}
	lit, ok := args[0].(string)
	if !ok {
		return "", &SchemaError{
			Msg:  fmt.Sprintf("%s expects a string literal, got %s", op, formatExpr(args[0])),
			Form: formatExpr(expr),
		}
	}
	return lit, nil
}

// formatExpr renders a normalized expression for error messages.
func formatExpr(expr any) string {
	switch v := expr.(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, c := range v {
			parts = append(parts, formatExpr(c))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
