// Package toolbackend defines the external tool-back-end boundary: a
// host-supplied source of tool descriptors and invocations, kept
// intentionally thin since specific back-ends are out of the core's
// scope.
package toolbackend

import "context"

// Descriptor is the back-end's view of one invocable tool, before it is
// wired into a tool.Descriptor's schema-validated handler.
type Descriptor struct {
	Name        string
	Description string
	SchemaJSON  string
}

// Error carries a back-end failure's machine-readable code alongside a
// human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// Backend is the polymorphic external tool-back-end boundary.
type Backend interface {
	ListDescriptors(ctx context.Context) ([]Descriptor, error)
	Invoke(ctx context.Context, toolName string, input map[string]any) (any, error)
}
