package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type reviewRepository struct {
	db *sql.DB
}

func (r *reviewRepository) Append(ctx context.Context, workspaceID string, review *model.Review) (*model.Review, error) {
	created := *review
	if created.ID == "" {
		created.ID = model.NewReviewID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO risk_reviews (workspace_id, id, risk_id, probability, impact, risk_level,
residual_probability, residual_impact, status, review_notes, reviewer_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := r.db.ExecContext(ctx, q, workspaceID, string(created.ID), created.RiskID,
		created.Probability, created.Impact, string(created.RiskLevel),
		created.ResidualProbability, created.ResidualImpact, string(created.Status),
		created.ReviewNotes, created.ReviewerID, created.CreatedAt); err != nil {
		if missingParent(err) {
			return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("risk_id", created.RiskID))
		}
		return nil, goerr.Wrap(err, "failed to append review",
			goerr.V("risk_id", created.RiskID), goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *reviewRepository) ListByRisk(ctx context.Context, workspaceID string, riskID int64) ([]*model.Review, error) {
	const q = `SELECT id, risk_id, probability, impact, risk_level, residual_probability, residual_impact,
status, review_notes, reviewer_id, created_at
FROM risk_reviews WHERE workspace_id = $1 AND risk_id = $2
ORDER BY created_at ASC, seq ASC`

	rows, err := r.db.QueryContext(ctx, q, workspaceID, riskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reviews", goerr.V("risk_id", riskID))
	}
	defer rows.Close()

	reviews := make([]*model.Review, 0)
	for rows.Next() {
		var rv model.Review
		var id, level, status string
		if err := rows.Scan(&id, &rv.RiskID, &rv.Probability, &rv.Impact, &level,
			&rv.ResidualProbability, &rv.ResidualImpact, &status, &rv.ReviewNotes,
			&rv.ReviewerID, &rv.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan review")
		}
		rv.ID = model.ReviewID(id)
		rv.RiskLevel = types.RiskLevel(level)
		rv.Status = types.RiskStatus(status)
		rv.CreatedAt = rv.CreatedAt.UTC()
		reviews = append(reviews, &rv)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate reviews")
	}
	return reviews, nil
}
