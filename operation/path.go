package operation

import "fmt"

// Path is an ordered sequence of hashable elements addressing a single
// operation instance in a Client's cache. Two paths are equal iff their
// element sequences are equal; Path P1 is a prefix of P2 iff P2 starts
// with P1's elements.
//
// Elements are compared with Go's == operator, so every element must be a
// comparable value (strings, ints, small structs of comparable fields,
// etc), generalized to arbitrary hashable tokens so callers can build
// paths like {"user", userID, "profile"}.
type Path []any

// NewPath builds a Path from the given elements.
func NewPath(elements ...any) Path {
	p := make(Path, len(elements))
	copy(p, elements)
	return p
}

// Equal reports whether p and other address the same operation instance.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a prefix of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// key returns a comparable representation of p suitable for use as a Go
// map key. Each element is formatted as its dynamic type plus its %v
// value, so elements that are not comparable (e.g. a slice) are accepted
// without panicking.
func (p Path) key() pathKey {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = fmt.Sprintf("%T:%v", e, e)
	}
	total := 0
	for _, s := range parts {
		total += len(s) + 1
	}
	buf := make([]byte, 0, total)
	for _, s := range parts {
		buf = append(buf, s...)
		buf = append(buf, '\x1f')
	}
	return pathKey(buf)
}

// pathKey is the flattened, hashable form of a Path used internally as a
// Go map key by the client's store cache.
type pathKey string

// String renders p for diagnostics; it is not guaranteed to round-trip.
func (p Path) String() string {
	s := "["
	for i, e := range p {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%v", e)
	}
	return s + "]"
}
