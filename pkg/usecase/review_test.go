package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

func TestReviewUseCase_RecordReview(t *testing.T) {
	ctx := context.Background()

	t.Run("never mutates the parent risk", func(t *testing.T) {
		env := newTestEnv(t)
		risk, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()
		before, err := env.repo.Risk().Get(ctx, testWorkspace, risk.ID)
		gt.NoError(t, err).Required()

		review, err := env.uc.Review.RecordReview(ctx, editor(), risk.ID, usecase.ReviewInput{
			Probability:         5,
			Impact:              5,
			ResidualProbability: 2,
			ResidualImpact:      1,
			Status:              types.RiskStatusMonitoring,
			ReviewNotes:         "Exploit published",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, review.RiskLevel).Equal(types.RiskLevelCritical)
		gt.Value(t, review.ReviewerID).Equal("U_EDITOR")

		after, err := env.repo.Risk().Get(ctx, testWorkspace, risk.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, after.Probability).Equal(before.Probability)
		gt.Value(t, after.Impact).Equal(before.Impact)
		gt.Value(t, after.ResidualProbability).Equal(before.ResidualProbability)
		gt.Value(t, after.Status).Equal(before.Status)
		gt.Value(t, after.LastReviewDate).Nil()
		gt.Bool(t, after.UpdatedAt.Equal(before.UpdatedAt)).True()
	})

	t.Run("history is chronological", func(t *testing.T) {
		env := newTestEnv(t)
		risk, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()

		for _, p := range []int{1, 2, 3} {
			_, err := env.uc.Review.RecordReview(ctx, editor(), risk.ID, usecase.ReviewInput{
				Probability: p, Impact: 5, Status: types.RiskStatusAnalyzing,
			})
			gt.NoError(t, err).Required()
		}

		reviews, err := env.uc.Review.ListReviews(ctx, viewer(), risk.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, reviews).Length(3)
		for i, r := range reviews {
			gt.Value(t, r.Probability).Equal(i + 1)
		}
		gt.Bool(t, reviews[0].CreatedAt.Before(reviews[2].CreatedAt)).True()
		gt.Value(t, reviews[0].RiskLevel).Equal(types.RiskLevelMedium)
		gt.Value(t, reviews[2].RiskLevel).Equal(types.RiskLevelHigh)
	})

	t.Run("rejects invalid reviews", func(t *testing.T) {
		env := newTestEnv(t)
		risk, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()

		testCases := []struct {
			name  string
			input usecase.ReviewInput
			field string
		}{
			{"probability zero", usecase.ReviewInput{Probability: 0, Impact: 3, Status: types.RiskStatusTreating}, "probability"},
			{"residual six", usecase.ReviewInput{Probability: 3, Impact: 3, ResidualImpact: 6, Status: types.RiskStatusTreating}, "residualImpact"},
			{"missing status", usecase.ReviewInput{Probability: 3, Impact: 3}, "status"},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := env.uc.Review.RecordReview(ctx, editor(), risk.ID, tc.input)
				gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
				gt.Value(t, usecase.FieldOf(err)).Equal(tc.field)
			})
		}

		reviews, err := env.repo.Review().ListByRisk(ctx, testWorkspace, risk.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, reviews).Length(0)
	})

	t.Run("missing risk", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.uc.Review.RecordReview(ctx, editor(), 7, usecase.ReviewInput{
			Probability: 1, Impact: 1, Status: types.RiskStatusClosed,
		})
		gt.Bool(t, errors.Is(err, usecase.ErrRiskNotFound)).True()

		_, err = env.uc.Review.ListReviews(ctx, viewer(), 7)
		gt.Bool(t, errors.Is(err, usecase.ErrRiskNotFound)).True()
	})
}

func TestReviewUseCase_ApplyReview(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	input := validInput()
	input.MonitoringFrequency = types.MonitoringFrequencySemiAnnual
	risk, err := env.uc.Risk.Create(ctx, editor(), input)
	gt.NoError(t, err).Required()

	review, updated, err := env.uc.Review.ApplyReview(ctx, editor(), risk.ID, usecase.ReviewInput{
		Probability:         2,
		Impact:              2,
		ResidualProbability: 1,
		ResidualImpact:      1,
		Status:              types.RiskStatusMonitoring,
	})
	gt.NoError(t, err).Required()

	gt.Value(t, updated.RiskLevel()).Equal(types.RiskLevelLow)
	gt.Value(t, updated.Status).Equal(types.RiskStatusMonitoring)
	gt.Value(t, updated.LastReviewDate).NotNil()
	gt.Bool(t, updated.LastReviewDate.Equal(review.CreatedAt)).True()
	gt.Value(t, updated.NextReviewDate).NotNil()
	gt.Bool(t, updated.NextReviewDate.Equal(review.CreatedAt.AddDate(0, 6, 0))).True()

	level, ok := updated.ResidualLevel()
	gt.Bool(t, ok).True()
	gt.Value(t, level).Equal(types.RiskLevelLow)

	entries, err := env.uc.Audit.ListByRisk(ctx, viewer(), risk.ID)
	gt.NoError(t, err).Required()
	actions := make([]types.AuditAction, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	gt.Array(t, actions).Equal([]types.AuditAction{
		types.AuditActionRiskCreated,
		types.AuditActionRiskUpdated,
		types.AuditActionReviewApplied,
	})
}

func TestReviewUseCase_ApplyReview_WithoutFrequency(t *testing.T) {
	ctx := context.Background()

	t.Run("clears a next review date the review satisfied", func(t *testing.T) {
		env := newTestEnv(t)
		due := time.Date(2020, 5, 31, 0, 0, 0, 0, time.UTC)
		input := validInput()
		input.NextReviewDate = &due
		risk, err := env.uc.Risk.Create(ctx, editor(), input)
		gt.NoError(t, err).Required()
		gt.Value(t, risk.MonitoringFrequency).Equal(types.MonitoringFrequencyNone)

		_, updated, err := env.uc.Review.ApplyReview(ctx, editor(), risk.ID, usecase.ReviewInput{
			Probability: 3, Impact: 3, Status: types.RiskStatusMonitoring,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.LastReviewDate).NotNil()
		gt.Value(t, updated.NextReviewDate).Nil()

		overdue, err := env.uc.Dashboard.Overdue(ctx, viewer(), time.Now())
		gt.NoError(t, err).Required()
		gt.Array(t, overdue).Length(0)
	})

	t.Run("keeps a next review date still ahead", func(t *testing.T) {
		env := newTestEnv(t)
		due := time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC)
		input := validInput()
		input.NextReviewDate = &due
		risk, err := env.uc.Risk.Create(ctx, editor(), input)
		gt.NoError(t, err).Required()

		_, updated, err := env.uc.Review.ApplyReview(ctx, editor(), risk.ID, usecase.ReviewInput{
			Probability: 3, Impact: 3, Status: types.RiskStatusMonitoring,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.NextReviewDate).NotNil()
		gt.Bool(t, updated.NextReviewDate.Equal(due)).True()
	})
}
