package view

import (
	"fmt"

	"orgcal/internal/sexp"
)

// Rebuild parses DSL source text into a complete view table. It is a pure
// function of its input: either every view parses and compiles, or an error
// is returned and no table is produced. Callers keep serving the previous
// table on error.
func Rebuild(source string) (*Table, error) {
	forms, err := sexp.Parse(source)
	if err != nil {
		return nil, err
	}

	t := &Table{byToken: make(map[string]*View)}
	for _, form := range forms {
		v, err := parseView(form)
		if err != nil {
			return nil, err
		}
		if _, dup := t.byToken[v.Token]; dup {
			return nil, &SchemaError{
				Msg:  fmt.Sprintf("duplicate view token %q", v.Token),
				Form: sexp.EncodeNode(form),
			}
		}
		t.Views = append(t.Views, v)
		t.byToken[v.Token] = v
	}
	return t, nil
}

// parseView builds a View from one (view ...) form.
func parseView(form sexp.Node) (*View, error) {
	if err := expectTag(form, "view"); err != nil {
		return nil, err
	}
	meta, children, err := extractMetaAndChildren(form.List[1:], form)
	if err != nil {
		return nil, err
	}

	detail, err := metaDetail(meta, DetailFull, form)
	if err != nil {
		return nil, err
	}
	v := &View{
		Name:   metaString(meta, ":name"),
		Token:  metaString(meta, ":token"),
		Detail: detail,
	}
	if v.Token == "" {
		return nil, &SchemaError{Msg: "view has empty :token", Form: sexp.EncodeNode(form)}
	}

	for _, c := range children {
		cal, err := parseCalendar(c, v.Detail)
		if err != nil {
			return nil, err
		}
		v.Calendars = append(v.Calendars, cal)
	}
	return v, nil
}

// parseCalendar builds a Calendar from one (calendar ...) form. detail is
// the default inherited from the enclosing view.
func parseCalendar(form sexp.Node, detail DetailLevel) (*Calendar, error) {
	if err := expectTag(form, "calendar"); err != nil {
		return nil, err
	}
	meta, children, err := extractMetaAndChildren(form.List[1:], form)
	if err != nil {
		return nil, err
	}

	calDetail, err := metaDetail(meta, detail, form)
	if err != nil {
		return nil, err
	}
	cal := &Calendar{
		Name:   metaString(meta, ":name"),
		Color:  metaString(meta, ":color"),
		Detail: calDetail,
	}

	for _, q := range children {
		query, err := parseQuery(q, cal.Detail)
		if err != nil {
			return nil, err
		}
		cal.Queries = append(cal.Queries, query)
	}
	return cal, nil
}

// parseQuery builds a Query from one (query ...) form. A query carries
// exactly one filter child.
func parseQuery(form sexp.Node, detail DetailLevel) (*Query, error) {
	if err := expectTag(form, "query"); err != nil {
		return nil, err
	}
	meta, children, err := extractMetaAndChildren(form.List[1:], form)
	if err != nil {
		return nil, err
	}
	if len(children) != 1 {
		return nil, &SchemaError{
			Msg:  fmt.Sprintf("query must contain exactly one filter, got %d", len(children)),
			Form: sexp.EncodeNode(form),
		}
	}

	qDetail, err := metaDetail(meta, detail, form)
	if err != nil {
		return nil, err
	}

	f, err := Compile(normalize(children[0]))
	if err != nil {
		return nil, err
	}
	return &Query{
		Detail: qDetail,
		Filter: f,
		Source: sexp.EncodeNode(children[0]),
	}, nil
}

// extractMetaAndChildren scans a form body left to right. A keyword symbol
// consumes the immediately following element as its value; everything else
// is an ordered child. Metadata may be interleaved with children in any
// order; a duplicate key keeps the last occurrence.
func extractMetaAndChildren(parts []sexp.Node, form sexp.Node) (map[string]sexp.Node, []sexp.Node, error) {
	meta := make(map[string]sexp.Node)
	var children []sexp.Node
	for i := 0; i < len(parts); i++ {
		p := parts[i]
		if p.IsKeyword() {
			if i+1 >= len(parts) {
				return nil, nil, &MalformedViewError{Key: p.Text, Form: sexp.EncodeNode(form)}
			}
			meta[p.Text] = parts[i+1]
			i++
			continue
		}
		children = append(children, p)
	}
	return meta, children, nil
}

// expectTag checks that form is a list whose head symbol is tag.
func expectTag(form sexp.Node, tag string) error {
	if form.Kind != sexp.KindList || len(form.List) == 0 {
		return &SchemaError{
			Msg:  fmt.Sprintf("expected (%s ...) form", tag),
			Form: sexp.EncodeNode(form),
		}
	}
	head := form.List[0]
	if head.Kind != sexp.KindSymbol || head.Text != tag {
		return &SchemaError{
			Msg:  fmt.Sprintf("expected head tag %q, got %q", tag, atomValue(head)),
			Form: sexp.EncodeNode(form),
		}
	}
	return nil
}

// metaString returns the metadata value for key as a string, or "".
func metaString(meta map[string]sexp.Node, key string) string {
	n, ok := meta[key]
	if !ok {
		return ""
	}
	return atomValue(n)
}

// metaDetail returns the :detail metadata value validated as a DetailLevel,
// falling back to the inherited default when absent.
func metaDetail(meta map[string]sexp.Node, inherited DetailLevel, form sexp.Node) (DetailLevel, error) {
	n, ok := meta[":detail"]
	if !ok {
		return inherited, nil
	}
	d := DetailLevel(atomValue(n))
	if !d.valid() {
		return "", &SchemaError{
			Msg:  fmt.Sprintf("invalid detail level %q", string(d)),
			Form: sexp.EncodeNode(form),
		}
	}
	return d, nil
}

// atomValue converts an atom node to its string value: symbols read as their
// name, strings as their content, numbers as their lexeme.
func atomValue(n sexp.Node) string {
	if n.Kind == sexp.KindList {
		return sexp.EncodeNode(n)
	}
	return n.Text
}

// normalize recursively converts a symbolic tree into plain nested values:
// lists become []any, symbols and strings become string, numbers float64.
// The filter compiler operates on this shape only.
func normalize(n sexp.Node) any {
	if n.Kind == sexp.KindList {
		out := make([]any, 0, len(n.List))
		for _, c := range n.List {
			out = append(out, normalize(c))
		}
		return out
	}
	if n.Kind == sexp.KindNumber {
		return n.Num
	}
	return n.Text
}
