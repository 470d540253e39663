package ir

import "strings"

// Name is a symbol name with zero or more namespace qualifiers, ordered
// outer->inner. Two names are equal when both the qualifiers and the bare
// name match exactly.
type Name struct {
	Qualifiers []string
	Bare       string
}

// NewName builds an unqualified Name.
func NewName(bare string) Name { return Name{Bare: bare} }

// WithQualifier returns a copy of n with qualifier prepended (outermost).
func (n Name) WithQualifier(qualifier string) Name {
	qs := make([]string, 0, len(n.Qualifiers)+1)
	qs = append(qs, qualifier)
	qs = append(qs, n.Qualifiers...)
	return Name{Qualifiers: qs, Bare: n.Bare}
}

// HasQualifier reports whether qualifier appears anywhere in n's qualifier
// list.
func (n Name) HasQualifier(qualifier string) bool {
	for _, q := range n.Qualifiers {
		if q == qualifier {
			return true
		}
	}
	return false
}

// Render renders the name joining qualifiers and bare name with sep, the
// order followed in source (`.`) or in generated Bash (`_`).
func (n Name) Render(sep string) string {
	parts := append(append([]string{}, n.Qualifiers...), n.Bare)
	return strings.Join(parts, sep)
}

func (n Name) String() string { return n.Render(".") }

// Less implements a total order by (qualifiers, bare-name), for sorting
// names into a deterministic order.
func (n Name) Less(o Name) bool {
	for i := 0; i < len(n.Qualifiers) && i < len(o.Qualifiers); i++ {
		if n.Qualifiers[i] != o.Qualifiers[i] {
			return n.Qualifiers[i] < o.Qualifiers[i]
		}
	}
	if len(n.Qualifiers) != len(o.Qualifiers) {
		return len(n.Qualifiers) < len(o.Qualifiers)
	}
	return n.Bare < o.Bare
}

// Equal reports structural equality.
func (n Name) Equal(o Name) bool {
	if n.Bare != o.Bare || len(n.Qualifiers) != len(o.Qualifiers) {
		return false
	}
	for i := range n.Qualifiers {
		if n.Qualifiers[i] != o.Qualifiers[i] {
			return false
		}
	}
	return true
}
