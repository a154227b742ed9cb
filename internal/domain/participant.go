// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxDisplayNameLen = 36

var (
	ErrNameEmpty   = errors.New("display name empty")
	ErrNameTooLong = errors.New("display name too long")
)

// ConnID identifies one live transport session. Assigned at connect time.
type ConnID string

// Participant is the read-only view of a room member sent to clients.
type Participant struct {
	ID   ConnID `json:"id"`
	Name string `json:"name"`
}

// ValidName checks a client-supplied display name.
func ValidName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return ErrNameTooLong
	}
	return nil
}
