package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// ReviewInput is the assessment captured by a periodic review
type ReviewInput struct {
	Probability         int
	Impact              int
	ResidualProbability int
	ResidualImpact      int
	Status              types.RiskStatus
	ReviewNotes         string
}

type ReviewUseCase struct {
	*core
	risk *RiskUseCase
}

// RecordReview appends an immutable review entry. The parent risk is not
// modified; use ApplyReview to also copy the assessment onto the risk.
func (uc *ReviewUseCase) RecordReview(ctx context.Context, actor *auth.Actor, riskID int64, input ReviewInput) (*model.Review, error) {
	if err := uc.authorize(ctx, actor, types.OperationUpdate); err != nil {
		return nil, err
	}
	if err := validateReview(input); err != nil {
		return nil, goerr.Wrap(err, "invalid review", goerr.V(RiskIDKey, riskID))
	}

	if _, err := uc.getRisk(ctx, actor.WorkspaceID, riskID); err != nil {
		return nil, err
	}

	review, err := uc.repo.Review().Append(ctx, actor.WorkspaceID, &model.Review{
		ID:                  model.NewReviewID(),
		RiskID:              riskID,
		Probability:         input.Probability,
		Impact:              input.Impact,
		RiskLevel:           types.LevelOf(input.Probability, input.Impact),
		ResidualProbability: input.ResidualProbability,
		ResidualImpact:      input.ResidualImpact,
		Status:              input.Status,
		ReviewNotes:         input.ReviewNotes,
		ReviewerID:          actor.UserID,
		CreatedAt:           uc.now(),
	})
	if err != nil {
		return nil, childWriteError(err, "failed to append review", riskID)
	}

	uc.sidecar.audit(ctx, actor, types.AuditActionReviewRecorded, types.EntityTypeReview, string(review.ID), map[string]any{
		"risk_id":    riskID,
		"risk_level": review.RiskLevel.String(),
		"status":     review.Status.String(),
	})

	return review, nil
}

// ListReviews returns the review history of a risk, oldest first
func (uc *ReviewUseCase) ListReviews(ctx context.Context, actor *auth.Actor, riskID int64) ([]*model.Review, error) {
	if err := uc.authorize(ctx, actor, types.OperationRead); err != nil {
		return nil, err
	}

	if _, err := uc.getRisk(ctx, actor.WorkspaceID, riskID); err != nil {
		return nil, err
	}

	reviews, err := uc.repo.Review().ListByRisk(ctx, actor.WorkspaceID, riskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reviews", goerr.V(RiskIDKey, riskID))
	}
	return reviews, nil
}

// ApplyReview records a review and then copies its assessment onto the
// risk: probability, impact, residual pair and status, with the review time
// as the last review date. The next review date follows the risk's
// monitoring frequency. Without a frequency, a next review date that the
// review has already satisfied is cleared.
func (uc *ReviewUseCase) ApplyReview(ctx context.Context, actor *auth.Actor, riskID int64, input ReviewInput) (*model.Review, *model.Risk, error) {
	review, err := uc.RecordReview(ctx, actor, riskID, input)
	if err != nil {
		return nil, nil, err
	}

	current, err := uc.getRisk(ctx, actor.WorkspaceID, riskID)
	if err != nil {
		return nil, nil, err
	}

	reviewedAt := review.CreatedAt
	patch := RiskPatch{
		Probability:         &review.Probability,
		Impact:              &review.Impact,
		ResidualProbability: &review.ResidualProbability,
		ResidualImpact:      &review.ResidualImpact,
		Status:              &review.Status,
		LastReviewDate:      &reviewedAt,
	}
	if current.MonitoringFrequency == types.MonitoringFrequencyNone &&
		current.NextReviewDate != nil && !current.NextReviewDate.After(reviewedAt) {
		patch.ClearNextReviewDate = true
	}

	updated, err := uc.risk.Update(ctx, actor, riskID, patch)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to apply review to risk",
			goerr.V(RiskIDKey, riskID), goerr.V("review_id", review.ID))
	}

	uc.sidecar.audit(ctx, actor, types.AuditActionReviewApplied, types.EntityTypeRisk, riskEntityID(riskID), map[string]any{
		"review_id":  string(review.ID),
		"risk_level": updated.RiskLevel().String(),
	})

	return review, updated, nil
}

func validateReview(input ReviewInput) error {
	if err := validateAssessment(input.Probability, input.Impact); err != nil {
		return err
	}
	if err := validateResidual(input.ResidualProbability, input.ResidualImpact); err != nil {
		return err
	}
	if !input.Status.IsValid() {
		return validationError("status", "invalid risk status %q", input.Status)
	}
	return nil
}
