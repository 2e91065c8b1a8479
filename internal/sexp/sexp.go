// Package sexp reads the nested-list views DSL into a generic symbolic tree.
// The reader carries no domain knowledge: it only distinguishes symbols,
// string/number atoms and lists. Meaning is assigned by internal/view.
package sexp

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind discriminates the Node variants.
type Kind int

const (
	KindSymbol Kind = iota
	KindString
	KindNumber
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindSymbol:
		return "symbol"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Node is the reader's only output type.
//
// Text holds the symbol name (KindSymbol), the decoded string value
// (KindString) or the original lexeme (KindNumber, so that re-encoding
// round-trips exactly). Num is the parsed value for KindNumber. List is
// populated for KindList only.
type Node struct {
	Kind Kind
	Text string
	Num  float64
	List []Node
}

// Symbol returns a symbol node.
func Symbol(name string) Node { return Node{Kind: KindSymbol, Text: name} }

// String returns a string atom node.
func String(value string) Node { return Node{Kind: KindString, Text: value} }

// Number returns a number atom node.
func Number(value float64) Node {
	return Node{Kind: KindNumber, Text: strconv.FormatFloat(value, 'g', -1, 64), Num: value}
}

// List returns a list node.
func List(children ...Node) Node { return Node{Kind: KindList, List: children} }

// IsKeyword reports whether the node is a keyword symbol (":name" etc).
func (n Node) IsKeyword() bool {
	return n.Kind == KindSymbol && strings.HasPrefix(n.Text, ":")
}

// SyntaxError reports malformed DSL text. Any reader failure means
// "configuration invalid": callers keep the last-known-good view table.
type SyntaxError struct {
	Offset int // byte offset into the source
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

// Parse reads UTF-8 text containing zero or more whitespace-separated forms
// and returns one Node per top-level form. Semicolon line comments are
// skipped. Quote markers ('x) are unwrapped: the tree carries the quoted
// datum itself.
func Parse(src string) ([]Node, error) {
	s := &scanner{src: src}
	var out []Node
	for {
		s.skipSpace()
		if s.eof() {
			return out, nil
		}
		n, err := s.readDatum()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
}

// Encode re-serializes a sequence of trees into parseable DSL text, one
// top-level form per line.
func Encode(nodes []Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, EncodeNode(n))
	}
	return strings.Join(parts, "\n")
}

// EncodeNode re-serializes a single tree.
func EncodeNode(n Node) string {
	switch n.Kind {
	case KindSymbol:
		return n.Text
	case KindString:
		return strconv.Quote(n.Text)
	case KindNumber:
		return n.Text
	case KindList:
		parts := make([]string, 0, len(n.List))
		for _, c := range n.List {
			parts = append(parts, EncodeNode(c))
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return ""
	}
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte { return s.src[s.pos] }

func (s *scanner) skipSpace() {
	for !s.eof() {
		c := s.peek()
		switch {
		case c == ';':
			// Line comment: skip to end of line.
			for !s.eof() && s.peek() != '\n' {
				s.pos++
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) errf(off int, format string, args ...any) error {
	return &SyntaxError{Offset: off, Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) readDatum() (Node, error) {
	s.skipSpace()
	if s.eof() {
		return Node{}, s.errf(s.pos, "unexpected end of input")
	}
	switch c := s.peek(); c {
	case '(':
		return s.readList()
	case ')':
		return Node{}, s.errf(s.pos, "unbalanced %q", ")")
	case '\'':
		// Quote marker: the datum it wraps stands for its own value.
		s.pos++
		return s.readDatum()
	case '"':
		return s.readString()
	default:
		return s.readToken()
	}
}

func (s *scanner) readList() (Node, error) {
	open := s.pos
	s.pos++ // consume '('
	var children []Node
	for {
		s.skipSpace()
		if s.eof() {
			return Node{}, s.errf(open, "unbalanced %q", "(")
		}
		if s.peek() == ')' {
			s.pos++
			return Node{Kind: KindList, List: children}, nil
		}
		child, err := s.readDatum()
		if err != nil {
			return Node{}, err
		}
		children = append(children, child)
	}
}

func (s *scanner) readString() (Node, error) {
	open := s.pos
	s.pos++ // consume opening quote
	var b strings.Builder
	for {
		if s.eof() {
			return Node{}, s.errf(open, "unterminated string literal")
		}
		c := s.peek()
		s.pos++
		switch c {
		case '"':
			return Node{Kind: KindString, Text: b.String()}, nil
		case '\\':
			if s.eof() {
				return Node{}, s.errf(open, "unterminated string literal")
			}
			esc := s.peek()
			s.pos++
			switch esc {
			case '"', '\\':
				b.WriteByte(esc)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				return Node{}, s.errf(s.pos-1, "invalid escape %q", string(esc))
			}
		default:
			b.WriteByte(c)
		}
	}
}

// isDelimiter reports whether r ends a bare token.
func isDelimiter(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' || r == '\'' || r == ';'
}

func (s *scanner) readToken() (Node, error) {
	start := s.pos
	for !s.eof() {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if isDelimiter(r) {
			break
		}
		s.pos += size
	}
	tok := s.src[start:s.pos]
	if tok == "" {
		return Node{}, s.errf(start, "malformed token")
	}
	if looksNumeric(tok) {
		num, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Node{}, s.errf(start, "malformed number %q", tok)
		}
		return Node{Kind: KindNumber, Text: tok, Num: num}, nil
	}
	return Node{Kind: KindSymbol, Text: tok}, nil
}

// looksNumeric reports whether the token starts like a numeric literal.
// Symbols like "scheduled_after" or "+" stay symbols; "12x" is rejected as a
// malformed number rather than silently read as a symbol.
func looksNumeric(tok string) bool {
	t := tok
	if len(t) > 1 && (t[0] == '+' || t[0] == '-') {
		t = t[1:]
	}
	if t == "" {
		return false
	}
	if t[0] >= '0' && t[0] <= '9' {
		return true
	}
	return len(t) > 1 && t[0] == '.' && t[1] >= '0' && t[1] <= '9'
}
