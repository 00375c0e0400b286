package models

import "time"

type ShareStatus string

const (
	ShareStatusPending  ShareStatus = "pending"
	ShareStatusAccepted ShareStatus = "accepted"
	ShareStatusRevoked  ShareStatus = "revoked"
)

func (s ShareStatus) Valid() bool {
	switch s {
	case ShareStatusPending, ShareStatusAccepted, ShareStatusRevoked:
		return true
	}
	return false
}

// Share grants RecipientID time-bound access to a document.
type Share struct {
	ID           string      `json:"id"`
	DocumentID   string      `json:"documentId"`
	RecipientID  string      `json:"recipientId"`
	ConnectionID string      `json:"connectionId"`
	Status       ShareStatus `json:"status"`
	SharedAt     time.Time   `json:"sharedAt"`
	ExpiresAt    time.Time   `json:"expiresAt"`
}

// Active reports whether the share still grants (or may grant) access.
func (s *Share) Active(now time.Time) bool {
	return s.Status != ShareStatusRevoked && now.Before(s.ExpiresAt)
}
