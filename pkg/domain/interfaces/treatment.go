package interfaces

import (
	"context"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

type TreatmentRepository interface {
	Create(ctx context.Context, workspaceID string, treatment *model.Treatment) (*model.Treatment, error)
	Get(ctx context.Context, workspaceID string, riskID, id int64) (*model.Treatment, error)
	// ListByRisk returns treatments in creation order
	ListByRisk(ctx context.Context, workspaceID string, riskID int64) ([]*model.Treatment, error)
	Update(ctx context.Context, workspaceID string, treatment *model.Treatment) (*model.Treatment, error)
	Delete(ctx context.Context, workspaceID string, riskID, id int64) error
}
