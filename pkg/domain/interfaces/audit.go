package interfaces

import (
	"context"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type AuditRepository interface {
	Put(ctx context.Context, entry *model.AuditEntry) error
	// ListByEntity returns entries for one entity ordered by CreatedAt ascending
	ListByEntity(ctx context.Context, workspaceID string, entityType types.EntityType, entityID string) ([]*model.AuditEntry, error)
}
