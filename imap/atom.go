package imap

import "fmt"

// AtomKind discriminates the Atom sum type:
// Atom = Null | String | Quoted | Literal | List.
type AtomKind int

const (
	AtomString AtomKind = iota
	AtomQuoted
	AtomLiteral
	AtomList
	AtomNull
)

// Atom is a single parsed value from the response grammar. Reshape
// functions pattern-match on Kind rather than inspecting a
// runtime type tag.
type Atom struct {
	Kind AtomKind

	// Str holds the text for AtomString/AtomQuoted, and for AtomLiteral
	// when no literal-destination sink was registered.
	Str string

	// Streamed is true when the literal's bytes were written to a
	// LiteralSink rather than accumulated in Str.
	Streamed bool

	// LiteralFile names the LiteralSink's destination when Streamed is
	// true; the library never opens or owns this handle.
	LiteralFile string

	// List holds child atoms for AtomList, in order, possibly nested.
	List []Atom
}

// Null is the shared representation of a parsed NIL.
var Null = Atom{Kind: AtomNull}

func str(s string) Atom   { return Atom{Kind: AtomString, Str: s} }
func quoted(s string) Atom { return Atom{Kind: AtomQuoted, Str: s} }
func list(items []Atom) Atom { return Atom{Kind: AtomList, List: items} }

// IsNil reports whether the atom is the NIL atom.
func (a Atom) IsNil() bool { return a.Kind == AtomNull }

// Text returns the atom's textual payload for String/Quoted/Literal kinds,
// and "" for Null/List.
func (a Atom) Text() string {
	switch a.Kind {
	case AtomString, AtomQuoted, AtomLiteral:
		return a.Str
	default:
		return ""
	}
}

// Items returns the child atoms for a List, or nil otherwise.
func (a Atom) Items() []Atom {
	if a.Kind == AtomList {
		return a.List
	}
	return nil
}

func (a Atom) String() string {
	switch a.Kind {
	case AtomNull:
		return "NIL"
	case AtomString:
		return a.Str
	case AtomQuoted:
		return fmt.Sprintf("%q", a.Str)
	case AtomLiteral:
		if a.Streamed {
			return fmt.Sprintf("{literal->%s}", a.LiteralFile)
		}
		return fmt.Sprintf("{%d}", len(a.Str))
	case AtomList:
		return fmt.Sprintf("%v", a.List)
	default:
		return "?"
	}
}
