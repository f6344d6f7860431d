package assemble

// Outcome tags how a sub-collection ended.
type Outcome int

const (
	// Skipped means the sub-collection was disabled.
	Skipped Outcome = iota

	// Succeeded means Value is meaningful.
	Succeeded

	// Failed means the sub-collection ran and produced nothing usable.
	Failed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Partial is the tagged result of one sub-collection.
type Partial[T any] struct {
	Value   T
	Outcome Outcome
	Reason  string
}

// Success wraps a usable value.
func Success[T any](value T) Partial[T] {
	return Partial[T]{Value: value, Outcome: Succeeded}
}

// Failure records a sub-collection that produced nothing.
func Failure[T any](reason string) Partial[T] {
	return Partial[T]{Outcome: Failed, Reason: reason}
}

// Skip records a disabled sub-collection.
func Skip[T any](reason string) Partial[T] {
	return Partial[T]{Outcome: Skipped, Reason: reason}
}

// OK reports whether the partial carries a value.
func (p Partial[T]) OK() bool {
	return p.Outcome == Succeeded
}
