// Package term defines ontology terms (entities and typed literals) and the
// resolver that maps them to the opaque identifiers rule engines operate on.
package term

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a Term.
type Kind uint8

const (
	KindClass Kind = iota + 1
	KindObjectProperty
	KindDataProperty
	KindIndividual
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindObjectProperty:
		return "object_property"
	case KindDataProperty:
		return "data_property"
	case KindIndividual:
		return "individual"
	case KindLiteral:
		return "literal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsProperty reports whether k is an object or data property.
func (k Kind) IsProperty() bool {
	return k == KindObjectProperty || k == KindDataProperty
}

// Well-known datatype IRIs.
const (
	XSD = "http://www.w3.org/2001/XMLSchema#"

	XSDString             = XSD + "string"
	XSDInteger            = XSD + "integer"
	XSDInt                = XSD + "int"
	XSDLong               = XSD + "long"
	XSDShort              = XSD + "short"
	XSDByte               = XSD + "byte"
	XSDNonNegativeInteger = XSD + "nonNegativeInteger"
	XSDPositiveInteger    = XSD + "positiveInteger"
	XSDDecimal            = XSD + "decimal"
	XSDDouble             = XSD + "double"
	XSDFloat              = XSD + "float"
	XSDBoolean            = XSD + "boolean"
	XSDDateTime           = XSD + "dateTime"
	XSDDate               = XSD + "date"
)

var integerTypes = map[string]bool{
	XSDInteger:            true,
	XSDInt:                true,
	XSDLong:               true,
	XSDShort:              true,
	XSDByte:               true,
	XSDNonNegativeInteger: true,
	XSDPositiveInteger:    true,
}

var decimalTypes = map[string]bool{
	XSDDecimal: true,
	XSDDouble:  true,
	XSDFloat:   true,
}

// ErrIncomparable is returned by Compare for values with no common ordering.
var ErrIncomparable = errors.New("terms are not comparable")

// Term is an ontology entity (class, property, individual) or a typed
// literal. Terms are comparable values and can be used as map keys.
type Term struct {
	Kind     Kind
	IRI      string // entities only
	Lexical  string // literals only
	Datatype string // literals only
}

// Class returns a class entity term.
func Class(iri string) Term { return Term{Kind: KindClass, IRI: iri} }

// ObjectProperty returns an object property entity term.
func ObjectProperty(iri string) Term { return Term{Kind: KindObjectProperty, IRI: iri} }

// DataProperty returns a data property entity term.
func DataProperty(iri string) Term { return Term{Kind: KindDataProperty, IRI: iri} }

// Individual returns a named individual term.
func Individual(iri string) Term { return Term{Kind: KindIndividual, IRI: iri} }

// Literal returns a typed literal. An empty datatype means xsd:string.
func Literal(lexical, datatype string) Term {
	if datatype == "" {
		datatype = XSDString
	}
	return Term{Kind: KindLiteral, Lexical: lexical, Datatype: datatype}
}

func String(s string) Term { return Literal(s, XSDString) }

func Integer(v int64) Term { return Literal(strconv.FormatInt(v, 10), XSDInteger) }

func Decimal(v float64) Term {
	return Literal(strconv.FormatFloat(v, 'f', -1, 64), XSDDecimal)
}

func Boolean(v bool) Term { return Literal(strconv.FormatBool(v), XSDBoolean) }

func DateTime(v time.Time) Term { return Literal(v.UTC().Format(time.RFC3339Nano), XSDDateTime) }

// IsLiteral reports whether t is a literal value.
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// IsEntity reports whether t names an ontology entity.
func (t Term) IsEntity() bool { return t.Kind != KindLiteral && t.Kind != 0 }

// IsZero reports whether t is the zero Term.
func (t Term) IsZero() bool { return t == Term{} }

// IsInteger reports whether t is a literal of an integer datatype.
func (t Term) IsInteger() bool { return t.IsLiteral() && integerTypes[t.Datatype] }

// IsDecimal reports whether t is a literal of a floating or decimal datatype.
func (t Term) IsDecimal() bool { return t.IsLiteral() && decimalTypes[t.Datatype] }

// IsNumeric reports whether t is an integer or decimal literal.
func (t Term) IsNumeric() bool { return t.IsInteger() || t.IsDecimal() }

// IsString reports whether t is a plain string literal.
func (t Term) IsString() bool { return t.IsLiteral() && t.Datatype == XSDString }

// IsBoolean reports whether t is a boolean literal.
func (t Term) IsBoolean() bool { return t.IsLiteral() && t.Datatype == XSDBoolean }

// IsTemporal reports whether t is a date or dateTime literal.
func (t Term) IsTemporal() bool {
	return t.IsLiteral() && (t.Datatype == XSDDateTime || t.Datatype == XSDDate)
}

// Int returns the integer value of an integer literal.
func (t Term) Int() (int64, bool) {
	if !t.IsInteger() {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(t.Lexical), 10, 64)
	return v, err == nil
}

// Float returns the numeric value of any numeric literal.
func (t Term) Float() (float64, bool) {
	if !t.IsNumeric() {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(t.Lexical), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Bool returns the value of a boolean literal.
func (t Term) Bool() (bool, bool) {
	if !t.IsBoolean() {
		return false, false
	}
	switch strings.TrimSpace(t.Lexical) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

// Time returns the value of a date or dateTime literal.
func (t Term) Time() (time.Time, bool) {
	if !t.IsTemporal() {
		return time.Time{}, false
	}
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if v, err := time.Parse(layout, strings.TrimSpace(t.Lexical)); err == nil {
			return v, true
		}
	}
	return time.Time{}, false
}

// Text returns the IRI of an entity or the lexical form of a literal.
func (t Term) Text() string {
	if t.IsLiteral() {
		return t.Lexical
	}
	return t.IRI
}

func (t Term) String() string {
	switch {
	case t.IsZero():
		return "<nil>"
	case t.IsLiteral():
		return fmt.Sprintf("%q^^<%s>", t.Lexical, t.Datatype)
	default:
		return "<" + t.IRI + ">"
	}
}

// Equal reports value equality. Numeric literals compare by value so that
// "2"^^xsd:integer equals "2.0"^^xsd:decimal; everything else compares exactly.
func Equal(a, b Term) bool {
	if a == b {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		x, ok1 := a.Float()
		y, ok2 := b.Float()
		return ok1 && ok2 && x == y
	}
	if a.IsTemporal() && b.IsTemporal() {
		x, ok1 := a.Time()
		y, ok2 := b.Time()
		return ok1 && ok2 && x.Equal(y)
	}
	return false
}

// Compare orders two terms by their natural ordering: numerically for
// numbers, chronologically for dates, false<true for booleans, and
// lexicographically for strings and entity IRIs. Terms of unrelated
// types return ErrIncomparable.
func Compare(a, b Term) (int, error) {
	switch {
	case a.IsNumeric() && b.IsNumeric():
		if ai, ok := a.Int(); ok {
			if bi, ok := b.Int(); ok {
				return cmpOrdered(ai, bi), nil
			}
		}
		x, ok1 := a.Float()
		y, ok2 := b.Float()
		if !ok1 || !ok2 {
			return 0, fmt.Errorf("%w: malformed number in %s or %s", ErrIncomparable, a, b)
		}
		return cmpOrdered(x, y), nil
	case a.IsTemporal() && b.IsTemporal():
		x, ok1 := a.Time()
		y, ok2 := b.Time()
		if !ok1 || !ok2 {
			return 0, fmt.Errorf("%w: malformed date in %s or %s", ErrIncomparable, a, b)
		}
		return x.Compare(y), nil
	case a.IsBoolean() && b.IsBoolean():
		x, _ := a.Bool()
		y, _ := b.Bool()
		switch {
		case x == y:
			return 0, nil
		case !x:
			return -1, nil
		default:
			return 1, nil
		}
	case a.IsLiteral() && b.IsLiteral() && a.Datatype == b.Datatype:
		return strings.Compare(a.Lexical, b.Lexical), nil
	case a.IsEntity() && b.IsEntity():
		return strings.Compare(a.IRI, b.IRI), nil
	}
	return 0, fmt.Errorf("%w: %s and %s", ErrIncomparable, a, b)
}

func cmpOrdered[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
