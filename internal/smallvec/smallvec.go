// Package smallvec implements a list of T that is usually empty or holds
// a single element, packing that common case inline instead of paying
// for a backing slice allocation.
package smallvec

import "fmt"

type tag byte

const (
	zero tag = iota
	one
	many
)

// V is a list of T, optimized for the common case of holding zero or one
// elements. The zero value is an empty list.
type V[T any] struct {
	which tag
	one   T
	rest  []T
}

// Len returns the number of elements in the list.
func (v *V[T]) Len() int {
	switch v.which {
	case zero:
		return 0
	case one:
		return 1
	default:
		return len(v.rest)
	}
}

// Add appends e to the list.
func (v *V[T]) Add(e T) {
	switch v.which {
	case zero:
		v.which = one
		v.one = e
	case one:
		v.which = many
		v.rest = append(v.rest[:0:0], v.one, e)
	default:
		v.rest = append(v.rest, e)
	}
}

// Insert places e at index i, shifting later elements up by one.
func (v *V[T]) Insert(i int, e T) {
	switch v.which {
	case zero:
		if i != 0 {
			panic(fmt.Sprintf("smallvec: index %d out of bounds (len 0)", i))
		}
		v.which = one
		v.one = e
	case one:
		if i != 0 && i != 1 {
			panic(fmt.Sprintf("smallvec: index %d out of bounds (len 1)", i))
		}
		v.which = many
		if i == 0 {
			v.rest = append(v.rest[:0:0], e, v.one)
		} else {
			v.rest = append(v.rest[:0:0], v.one, e)
		}
	default:
		if i < 0 || i > len(v.rest) {
			panic(fmt.Sprintf("smallvec: index %d out of bounds (len %d)", i, len(v.rest)))
		}
		v.rest = append(v.rest, e)
		copy(v.rest[i+1:], v.rest[i:])
		v.rest[i] = e
	}
}

// Remove deletes the first element equal to e, per eq. It panics if e is
// not present, matching the source's "fails when element absent"
// contract.
func (v *V[T]) Remove(e T, eq func(a, b T) bool) {
	switch v.which {
	case zero:
		panic("smallvec: element not in list")
	case one:
		if !eq(v.one, e) {
			panic("smallvec: element not in list")
		}
		v.which = zero
		var zeroT T
		v.one = zeroT
	default:
		idx := -1
		for i, x := range v.rest {
			if eq(x, e) {
				idx = i
				break
			}
		}
		if idx < 0 {
			panic("smallvec: element not in list")
		}
		v.rest = append(v.rest[:idx], v.rest[idx+1:]...)
		if len(v.rest) == 1 {
			v.which = one
			v.one = v.rest[0]
			v.rest = nil
		}
	}
}

// Clear empties the list and drops any backing storage. Unlike the
// source this is grounded on, Clear unconditionally resets the tag to
// zero rather than only doing so when the tag was already ONE, leaving
// a MANY-tagged holder unreset on Clear would make Len keep reporting
// the stale backing slice's length.
func (v *V[T]) Clear() {
	v.which = zero
	var zeroT T
	v.one = zeroT
	v.rest = nil
}

// At returns the element at index i. It panics if i is out of bounds.
func (v *V[T]) At(i int) T {
	switch v.which {
	case zero:
		panic(fmt.Sprintf("smallvec: index %d out of bounds (len 0)", i))
	case one:
		if i != 0 {
			panic(fmt.Sprintf("smallvec: index %d out of bounds (len 1)", i))
		}
		return v.one
	default:
		return v.rest[i]
	}
}

// ForEach calls f once per element, in order.
func (v *V[T]) ForEach(f func(e T)) {
	switch v.which {
	case zero:
		return
	case one:
		f(v.one)
	default:
		for _, e := range v.rest {
			f(e)
		}
	}
}
