package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// AuditEntry records a mutation made through the engine
type AuditEntry struct {
	ID          string
	WorkspaceID string
	UserID      string
	Action      types.AuditAction
	EntityType  types.EntityType
	EntityID    string
	Metadata    map[string]any
	IPAddress   string
	CreatedAt   time.Time
}

// NewAuditID generates a new audit entry ID
func NewAuditID() string {
	return uuid.New().String()
}
