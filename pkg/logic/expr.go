// Package logic parses the boolean expressions used by combination rules,
// such as "ECO1016 & (ECO1026 | ECO1027)", and evaluates them against a set
// of identifiers.
//
// Grammar:
//
//	expr   = term { "|" term }
//	term   = factor { "&" factor }
//	factor = IDENT | "(" expr ")"
package logic

import (
	"fmt"
	"strings"
)

// SyntaxError reports an expression that does not follow the grammar.
type SyntaxError struct {
	Expr   string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid expression %q at offset %d: %s", e.Expr, e.Offset, e.Msg)
}

// Expr is a parsed boolean expression.
type Expr interface {
	// Eval reports whether the expression holds when has reports the
	// presence of each identifier.
	Eval(has func(id string) bool) bool
	String() string
}

type ident string

func (i ident) Eval(has func(string) bool) bool { return has(string(i)) }

func (i ident) String() string { return string(i) }

type and []Expr

func (a and) Eval(has func(string) bool) bool {
	for _, e := range a {
		if !e.Eval(has) {
			return false
		}
	}
	return true
}

func (a and) String() string { return join(a, " & ") }

type or []Expr

func (o or) Eval(has func(string) bool) bool {
	for _, e := range o {
		if e.Eval(has) {
			return true
		}
	}
	return false
}

func (o or) String() string { return join(o, " | ") }

func join(es []Expr, sep string) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokAnd
	tokOr
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind   tokenKind
	text   string
	offset int
}

func tokenize(s string) []token {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '&':
			toks = append(toks, token{tokAnd, "&", i})
			i++
		case c == '|':
			toks = append(toks, token{tokOr, "|", i})
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		default:
			start := i
			for i < len(s) && !strings.ContainsRune(" \t\n\r&|()", rune(s[i])) {
				i++
			}
			toks = append(toks, token{tokIdent, s[start:i], start})
		}
	}
	return append(toks, token{tokEOF, "", len(s)})
}

type parser struct {
	src  string
	toks []token
	pos  int
}

// Parse parses a combination expression.
func Parse(s string) (Expr, error) {
	p := &parser{src: s, toks: tokenize(s)}
	if p.peek().kind == tokEOF {
		return nil, p.errorf("empty expression")
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf("unexpected %q", t.text)
	}
	return e, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Expr: p.src, Offset: p.peek().offset, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expr() (Expr, error) {
	first, err := p.term()
	if err != nil {
		return nil, err
	}
	terms := or{first}
	for p.peek().kind == tokOr {
		p.next()
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return terms, nil
}

func (p *parser) term() (Expr, error) {
	first, err := p.factor()
	if err != nil {
		return nil, err
	}
	factors := and{first}
	for p.peek().kind == tokAnd {
		p.next()
		f, err := p.factor()
		if err != nil {
			return nil, err
		}
		factors = append(factors, f)
	}
	if len(factors) == 1 {
		return first, nil
	}
	return factors, nil
}

func (p *parser) factor() (Expr, error) {
	switch t := p.peek(); t.kind {
	case tokIdent:
		p.next()
		return ident(t.text), nil
	case tokLParen:
		p.next()
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.next()
		return e, nil
	case tokEOF:
		return nil, p.errorf("unexpected end of expression")
	default:
		return nil, p.errorf("unexpected %q", t.text)
	}
}

// Identifiers returns the distinct identifiers referenced by e, in order of
// first appearance.
func Identifiers(e Expr) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case ident:
			if !seen[string(v)] {
				seen[string(v)] = true
				out = append(out, string(v))
			}
		case and:
			for _, c := range v {
				walk(c)
			}
		case or:
			for _, c := range v {
				walk(c)
			}
		}
	}
	walk(e)
	return out
}

// EvalSet parses s and evaluates it against ids.
func EvalSet(s string, ids []string) (bool, error) {
	e, err := Parse(s)
	if err != nil {
		return false, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return e.Eval(func(id string) bool { return set[id] }), nil
}
