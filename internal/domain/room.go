package domain

// RoomID is an opaque, externally generated room identifier.
type RoomID string
