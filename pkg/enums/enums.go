// Package enums holds the closed value sets persisted by the marketplace core.
// Status types carry an explicit transition table; anything absent from the
// table is rejected.
package enums

func oneOf[T comparable](candidates []T, value T) bool {
	for _, candidate := range candidates {
		if candidate == value {
			return true
		}
	}
	return false
}

func parse[T ~string](candidates []T, value, label string) (T, error) {
	for _, candidate := range candidates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	var zero T
	return zero, invalidValue(label, value)
}

type transitionTable[T comparable] map[T][]T

func (t transitionTable[T]) allows(from, to T) bool {
	return oneOf(t[from], to)
}

func (t transitionTable[T]) next(from T) []T {
	allowed := t[from]
	out := make([]T, len(allowed))
	copy(out, allowed)
	return out
}
