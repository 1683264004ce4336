package models

import "time"

type ProtocolStatus string

const (
	ProtocolStatusActive   ProtocolStatus = "active"
	ProtocolStatusInactive ProtocolStatus = "inactive"
	ProtocolStatusDraft    ProtocolStatus = "draft"
)

// EmergencyProtocol is CRUD-managed reference data, not computed.
type EmergencyProtocol struct {
	ID          int64
	Name        string
	HazardType  string
	Description string
	Steps       []string
	Status      ProtocolStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
