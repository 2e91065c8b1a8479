package view

import "fmt"

// The three build-time error kinds below, together with sexp.SyntaxError,
// make up the whole rebuild-failure taxonomy. All of them abort the current
// rebuild; the previous view table stays in service.

// SchemaError reports well-formed DSL text of the wrong shape: a wrong head
// tag, wrong arity, or a literal of the wrong type.
type SchemaError struct {
	Msg  string
	Form string // offending form, re-encoded
}

func (e *SchemaError) Error() string {
	if e.Form == "" {
		return "schema error: " + e.Msg
	}
	return fmt.Sprintf("schema error: %s in %s", e.Msg, e.Form)
}

// UnknownOperatorError reports an unrecognized filter operator. It aborts
// compilation of the whole view: a silently-empty filter would be worse
// than a startup failure.
type UnknownOperatorError struct {
	Op   string
	Form string
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown filter operator %q in %s", e.Op, e.Form)
}

// MalformedViewError reports dangling keyword metadata: a keyword symbol in
// final position with no value following it.
type MalformedViewError struct {
	Key  string
	Form string
}

func (e *MalformedViewError) Error() string {
	return fmt.Sprintf("malformed view: keyword %s has no value in %s", e.Key, e.Form)
}
