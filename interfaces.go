package ambientdb

import "context"

// Closer is implemented by singleton instances that hold resources which must be
// released when the registry shuts down.
type Closer interface {
	// Close releases the resources held by the instance.
	Close(ctx context.Context) error
}

// Constructor builds an instance satisfying the capability C.
type Constructor[C any] func() (C, error)

// Mode defines how a registered provider produces instances.
type Mode string

// Available construction modes
const (
	// ModeSingleton constructs one instance lazily and returns it on every resolution
	ModeSingleton Mode = "singleton"
	// ModeFactory constructs a new instance on each resolution
	ModeFactory Mode = "factory"
)

func (m Mode) valid() bool {
	return m == ModeSingleton || m == ModeFactory
}
