package rule

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"owlrules/internal/term"
)

// Vocabulary tells the parser what kind of entity a predicate IRI names.
// It is consulted for binary atoms, which may be object or data property
// atoms.
type Vocabulary interface {
	KindOf(iri string) (term.Kind, bool)
}

// VocabularyFunc adapts a function to Vocabulary.
type VocabularyFunc func(iri string) (term.Kind, bool)

func (f VocabularyFunc) KindOf(iri string) (term.Kind, bool) { return f(iri) }

// SyntaxError reports malformed rule text.
type SyntaxError struct {
	Offset int
	Msg    string
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

type token uint8

const (
	tokEOF token = iota
	tokIdent
	tokVar
	tokString
	tokNumber
	tokIRI
	tokLParen
	tokRParen
	tokComma
	tokCaret
	tokDoubleCaret
	tokArrow
)

func (t token) String() string {
	switch t {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return "name"
	case tokVar:
		return "variable"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokIRI:
		return "IRI"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokCaret:
		return "'^'"
	case tokDoubleCaret:
		return "'^^'"
	case tokArrow:
		return "'->'"
	}
	return "token"
}

type scanner struct {
	src string
	off int
}

// scan returns the next token, its start offset and its literal text.
func (s *scanner) scan() (token, int, string, error) {
	for s.off < len(s.src) {
		r, w := utf8.DecodeRuneInString(s.src[s.off:])
		if !unicode.IsSpace(r) {
			break
		}
		s.off += w
	}
	start := s.off
	if s.off >= len(s.src) {
		return tokEOF, start, "", nil
	}
	c := s.src[s.off]
	switch {
	case c == '(':
		s.off++
		return tokLParen, start, "(", nil
	case c == ')':
		s.off++
		return tokRParen, start, ")", nil
	case c == ',':
		s.off++
		return tokComma, start, ",", nil
	case strings.HasPrefix(s.src[s.off:], "^^"):
		s.off += 2
		return tokDoubleCaret, start, "^^", nil
	case c == '^':
		s.off++
		return tokCaret, start, "^", nil
	case strings.HasPrefix(s.src[s.off:], "->"):
		s.off += 2
		return tokArrow, start, "->", nil
	case c == '?':
		s.off++
		name := s.run(isVarRune)
		if name == "" {
			return 0, start, "", &SyntaxError{Offset: start, Msg: "empty variable name"}
		}
		return tokVar, start, name, nil
	case c == '"':
		return s.scanString(start)
	case c == '<':
		end := strings.IndexByte(s.src[s.off:], '>')
		if end < 0 {
			return 0, start, "", &SyntaxError{Offset: start, Msg: "unterminated IRI"}
		}
		iri := s.src[s.off+1 : s.off+end]
		s.off += end + 1
		return tokIRI, start, iri, nil
	case isDigit(c) || ((c == '-' || c == '+') && s.off+1 < len(s.src) && isDigit(s.src[s.off+1])):
		s.off++
		lit := s.src[start:s.off] + s.run(isNumberRune)
		return tokNumber, start, lit, nil
	}
	name := s.run(isNameRune)
	if name == "" {
		r, _ := utf8.DecodeRuneInString(s.src[s.off:])
		return 0, start, "", &SyntaxError{Offset: start, Msg: fmt.Sprintf("unexpected character %q", r)}
	}
	return tokIdent, start, name, nil
}

func (s *scanner) scanString(start int) (token, int, string, error) {
	i := s.off + 1
	for i < len(s.src) {
		switch s.src[i] {
		case '\\':
			i += 2
			continue
		case '"':
			lit, err := strconv.Unquote(s.src[s.off : i+1])
			if err != nil {
				return 0, start, "", &SyntaxError{Offset: start, Msg: "bad string literal: " + err.Error()}
			}
			s.off = i + 1
			return tokString, start, lit, nil
		}
		i++
	}
	return 0, start, "", &SyntaxError{Offset: start, Msg: "unterminated string"}
}

func (s *scanner) run(ok func(rune) bool) string {
	start := s.off
	for s.off < len(s.src) {
		r, w := utf8.DecodeRuneInString(s.src[s.off:])
		if !ok(r) {
			break
		}
		// A name never swallows the arrow.
		if r == '-' && strings.HasPrefix(s.src[s.off:], "->") {
			break
		}
		s.off += w
	}
	return s.src[start:s.off]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isVarRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' }

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' || r == ':'
}

func isNumberRune(r rune) bool {
	return (r >= '0' && r <= '9') || r == '.' || r == 'e' || r == 'E' || r == '-' || r == '+'
}

type parser struct {
	sc       scanner
	prefixes *term.Prefixes
	vocab    Vocabulary

	tok token
	pos int
	lit string
}

func newParser(text string, p *term.Prefixes, v Vocabulary) (*parser, error) {
	if p == nil {
		p = term.NewPrefixes()
	}
	ps := &parser{sc: scanner{src: text}, prefixes: p, vocab: v}
	if err := ps.next(); err != nil {
		return nil, err
	}
	return ps, nil
}

func (p *parser) next() error {
	tok, pos, lit, err := p.sc.scan()
	if err != nil {
		return err
	}
	p.tok, p.pos, p.lit = tok, pos, lit
	return nil
}

func (p *parser) expect(t token) (string, error) {
	if p.tok != t {
		return "", p.errorf("expected %s, found %s", t, p.tok)
	}
	lit := p.lit
	return lit, p.next()
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

// atoms parses a possibly empty '^'-separated atom list.
func (p *parser) atoms() ([]Atom, error) {
	if p.tok != tokIdent && p.tok != tokIRI {
		return nil, nil
	}
	var out []Atom
	for {
		a, err := p.atom()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		if p.tok != tokCaret {
			return out, nil
		}
		if err := p.next(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) atom() (Atom, error) {
	start := p.pos
	iri, library, err := p.name()
	if err != nil {
		return Atom{}, err
	}
	if _, err := p.expect(tokLParen); err != nil {
		return Atom{}, err
	}
	var args []Arg
	for p.tok != tokRParen {
		if len(args) > 0 {
			if _, err := p.expect(tokComma); err != nil {
				return Atom{}, err
			}
		}
		arg, err := p.arg()
		if err != nil {
			return Atom{}, err
		}
		args = append(args, arg)
	}
	if err := p.next(); err != nil {
		return Atom{}, err
	}

	wrap := func(a Atom, err error) (Atom, error) {
		if err != nil {
			return Atom{}, &SyntaxError{Offset: start, Msg: err.Error(), Err: err}
		}
		return a, nil
	}
	if library {
		return wrap(NewBuiltInAtom(iri, args...))
	}
	kind, known := p.kindOf(iri)
	switch len(args) {
	case 1:
		if known && kind != term.KindClass {
			return Atom{}, &SyntaxError{Offset: start, Msg: fmt.Sprintf("%s is a %s, not a class", iri, kind)}
		}
		return wrap(NewClassAtom(term.Class(iri), args[0]))
	case 2:
		if !known || !kind.IsProperty() {
			if known {
				return Atom{}, &SyntaxError{Offset: start, Msg: fmt.Sprintf("%s is a %s, not a property", iri, kind)}
			}
			kind = term.KindObjectProperty
			if !args[1].IsVariable() && args[1].Term().IsLiteral() {
				kind = term.KindDataProperty
			}
		}
		return wrap(NewPropertyAtom(term.Term{Kind: kind, IRI: iri}, args[0], args[1]))
	case 0:
		return Atom{}, &SyntaxError{Offset: start, Msg: fmt.Sprintf("%s: %s", iri, ErrNoArguments)}
	}
	return Atom{}, &SyntaxError{Offset: start, Msg: fmt.Sprintf("%s takes 1 or 2 arguments, got %d", iri, len(args))}
}

// name parses a predicate or entity name and reports whether it belongs to
// a built-in library.
func (p *parser) name() (string, bool, error) {
	switch p.tok {
	case tokIRI:
		iri := p.lit
		return iri, p.prefixes.IsLibraryIRI(iri), p.next()
	case tokIdent:
		lit := p.lit
		iri, err := p.prefixes.Expand(lit)
		if err != nil {
			return "", false, &SyntaxError{Offset: p.pos, Msg: err.Error(), Err: err}
		}
		prefix, _, ok := term.Split(lit)
		return iri, ok && p.prefixes.IsLibrary(prefix), p.next()
	}
	return "", false, p.errorf("expected a name, found %s", p.tok)
}

func (p *parser) arg() (Arg, error) {
	switch p.tok {
	case tokVar:
		name := p.lit
		return Var(name), p.next()
	case tokNumber:
		lit := p.lit
		dt := term.XSDInteger
		if strings.ContainsAny(lit, ".eE") {
			dt = term.XSDDecimal
			if _, err := strconv.ParseFloat(lit, 64); err != nil {
				return Arg{}, p.errorf("bad number %q", lit)
			}
		} else if _, err := strconv.ParseInt(lit, 10, 64); err != nil {
			return Arg{}, p.errorf("bad integer %q", lit)
		}
		return Const(term.Literal(strings.TrimPrefix(lit, "+"), dt)), p.next()
	case tokString:
		lex := p.lit
		if err := p.next(); err != nil {
			return Arg{}, err
		}
		if p.tok != tokDoubleCaret {
			return Const(term.String(lex)), nil
		}
		if err := p.next(); err != nil {
			return Arg{}, err
		}
		dt, _, err := p.name()
		if err != nil {
			return Arg{}, err
		}
		return Const(term.Literal(lex, dt)), nil
	case tokIdent, tokIRI:
		if p.tok == tokIdent && (p.lit == "true" || p.lit == "false") {
			v := p.lit == "true"
			return Const(term.Boolean(v)), p.next()
		}
		iri, _, err := p.name()
		if err != nil {
			return Arg{}, err
		}
		if kind, ok := p.kindOf(iri); ok && kind != term.KindLiteral {
			return Const(term.Term{Kind: kind, IRI: iri}), nil
		}
		return Const(term.Individual(iri)), nil
	}
	return Arg{}, p.errorf("expected an argument, found %s", p.tok)
}

func (p *parser) kindOf(iri string) (term.Kind, bool) {
	if p.vocab == nil {
		return 0, false
	}
	return p.vocab.KindOf(iri)
}

func (p *parser) statement() (body, head []Atom, err error) {
	if body, err = p.atoms(); err != nil {
		return nil, nil, err
	}
	if _, err = p.expect(tokArrow); err != nil {
		return nil, nil, err
	}
	if head, err = p.atoms(); err != nil {
		return nil, nil, err
	}
	if p.tok != tokEOF {
		return nil, nil, p.errorf("unexpected %s after head", p.tok)
	}
	return body, head, nil
}

// Parse parses a rule written as body -> head.
func Parse(name, text string, p *term.Prefixes, v Vocabulary, opts ...Option) (*Rule, error) {
	ps, err := newParser(text, p, v)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", name, err)
	}
	body, head, err := ps.statement()
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", name, err)
	}
	return New(name, body, head, opts...)
}

// ParseQuery parses a query written as body -> collectors.
func ParseQuery(name, text string, p *term.Prefixes, v Vocabulary, opts ...Option) (*Query, error) {
	ps, err := newParser(text, p, v)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", name, err)
	}
	body, head, err := ps.statement()
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", name, err)
	}
	return NewQuery(name, body, head, opts...)
}

// ParseAtom parses a single atom such as hasParent(fred, bob).
func ParseAtom(text string, p *term.Prefixes, v Vocabulary) (Atom, error) {
	ps, err := newParser(text, p, v)
	if err != nil {
		return Atom{}, err
	}
	a, err := ps.atom()
	if err != nil {
		return Atom{}, err
	}
	if ps.tok != tokEOF {
		return Atom{}, ps.errorf("unexpected %s after atom", ps.tok)
	}
	return a, nil
}

// IsQueryText reports whether text has a head made of query collectors.
func IsQueryText(text string, p *term.Prefixes, v Vocabulary) bool {
	ps, err := newParser(text, p, v)
	if err != nil {
		return false
	}
	_, head, err := ps.statement()
	if err != nil || len(head) == 0 {
		return false
	}
	for _, a := range head {
		if !a.IsBuiltIn() || !(IsCollector(a.builtin) || IsModifier(a.builtin)) {
			return false
		}
	}
	return true
}
