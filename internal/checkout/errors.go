package checkout

import "errors"

var (
	// ErrUnknownItem is returned when an item has no rule in the catalog.
	ErrUnknownItem = errors.New("no pricing rule was initialized for the given item name")
	// ErrSessionNotFound is returned when a checkout session id is not registered.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrTooManySessions is returned by Registry.Open when the open session cap is reached.
	ErrTooManySessions = errors.New("too many open checkout sessions")
)

// UnknownItemError reports the item name that failed to scan. It matches
// ErrUnknownItem with errors.Is.
type UnknownItemError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownItemError) Error() string {
	return ErrUnknownItem.Error()
}

// Is reports whether target is ErrUnknownItem.
func (e *UnknownItemError) Is(target error) bool {
	return target == ErrUnknownItem
}
