package scripting

import (
	"context"
	"errors"
)

// ErrNotFunction is returned by Call when the named global is not callable.
var ErrNotFunction = errors.New("scripting: not a function")

// Engine represents a scripting engine (e.g., JavaScript) used to customize
// outline output.
type Engine interface {
	// Execute runs a script and returns its completion value.
	Execute(ctx context.Context, script string) (interface{}, error)

	// Call invokes a global function defined by a previously executed script.
	Call(ctx context.Context, fn string, args ...interface{}) (interface{}, error)

	// Set binds a Go value to a global name.
	Set(name string, value interface{}) error
}
