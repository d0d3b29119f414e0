package interfaces

import (
	"context"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

// ReviewRepository is append-only; there is no update or delete path
type ReviewRepository interface {
	Append(ctx context.Context, workspaceID string, review *model.Review) (*model.Review, error)
	// ListByRisk returns entries ordered by CreatedAt ascending
	ListByRisk(ctx context.Context, workspaceID string, riskID int64) ([]*model.Review, error)
}
