package board

import "fmt"

// ValidationError reports malformed create input. It surfaces to the
// immediate caller only and is never broadcast.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// NotFoundError reports a mutation against a task that does not exist,
// or a title fragment that matched nothing.
type NotFoundError struct {
	Key string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.Key)
}
