package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type AuditUseCase struct {
	*core
}

// ListByRisk returns the audit trail recorded against the risk entity itself.
// Entries stay readable after the risk is deleted.
func (uc *AuditUseCase) ListByRisk(ctx context.Context, actor *auth.Actor, riskID int64) ([]*model.AuditEntry, error) {
	if err := uc.authorize(ctx, actor, types.OperationRead); err != nil {
		return nil, err
	}

	entries, err := uc.repo.Audit().ListByEntity(ctx, actor.WorkspaceID, types.EntityTypeRisk, riskEntityID(riskID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list audit entries", goerr.V(RiskIDKey, riskID))
	}
	return entries, nil
}
