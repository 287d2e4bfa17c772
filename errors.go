package goAccess

import "errors"

var (
	// ErrInvalidTokenFormat reports a token whose expiry claim cannot be decoded.
	ErrInvalidTokenFormat = errors.New("invalid token format")
	// ErrManagerShutdown is returned by operations on a manager after Shutdown.
	ErrManagerShutdown = errors.New("access manager shut down")
	// ErrNilClient is returned when a listener is registered without a client key.
	ErrNilClient = errors.New("nil client key")
	// ErrNilUpdateFunc is returned when a listener is registered without a callback.
	ErrNilUpdateFunc = errors.New("nil update func")
	// ErrListenerLimit is returned when Listeners.MaxListeners would be exceeded.
	ErrListenerLimit = errors.New("listener limit reached")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
)
