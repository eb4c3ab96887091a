package flow

// ResultState is the settlement state of an asynchronous generation.
type ResultState string

const (
	Pending  ResultState = "pending"
	Resolved ResultState = "resolved"
	Rejected ResultState = "rejected"
)

// Result is the outcome of one generation.
type Result[T any] struct {
	State ResultState
	Value T
	Err   error
}

// Resolve wraps a successful value.
func Resolve[T any](v T) Result[T] {
	return Result[T]{State: Resolved, Value: v}
}

// Reject wraps a failure.
func Reject[T any](err error) Result[T] {
	return Result[T]{State: Rejected, Err: err}
}
