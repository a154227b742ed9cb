package app

import "github.com/dkeye/Meet/internal/domain"

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	CloseConnection
)

// Policy decides what happens to a member whose outbound queue is full.
type Policy interface {
	OnBackpressure(room domain.RoomID, id domain.ConnID) BackpressureAction
}

// DropPolicy sheds the frame and keeps the connection. Signaling is
// best-effort, so a lost event is acceptable; the peer layer recovers.
type DropPolicy struct{}

func (DropPolicy) OnBackpressure(domain.RoomID, domain.ConnID) BackpressureAction {
	return DropFrame
}

// EvictPolicy closes persistently slow consumers, forcing a reconnect.
type EvictPolicy struct{}

func (EvictPolicy) OnBackpressure(domain.RoomID, domain.ConnID) BackpressureAction {
	return CloseConnection
}
