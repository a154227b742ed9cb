package core

import "errors"

// ErrBackpressure reports a full outbound queue. Any other TrySend
// error means the connection is already unusable.
var ErrBackpressure = errors.New("backpressure")

// Frame is a raw encoded message delivered to a client as-is.
type Frame []byte

// SignalConnection abstracts the outbound half of a client transport.
// TrySend must never block; a full queue is an error, not a wait.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
