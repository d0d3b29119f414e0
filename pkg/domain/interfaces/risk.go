package interfaces

import (
	"context"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

type RiskRepository interface {
	// Create assigns the next per-workspace ID and the matching code
	Create(ctx context.Context, workspaceID string, risk *model.Risk) (*model.Risk, error)
	Get(ctx context.Context, workspaceID string, id int64) (*model.Risk, error)
	List(ctx context.Context, workspaceID string, opts ...ListRiskOption) ([]*model.Risk, error)
	Update(ctx context.Context, workspaceID string, risk *model.Risk) (*model.Risk, error)
	// Delete removes the risk together with its treatments and reviews
	Delete(ctx context.Context, workspaceID string, id int64) error
}
