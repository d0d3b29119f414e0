package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/repository/memory"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

func TestRiskUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("computes level and assigns code", func(t *testing.T) {
		env := newTestEnv(t)

		risk, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()

		gt.Value(t, risk.Code).Equal("R-001")
		gt.Value(t, risk.Status).Equal(types.RiskStatusIdentified)
		gt.Value(t, risk.RiskLevel()).Equal(types.RiskLevelHigh)
		gt.Value(t, risk.CreatedBy).Equal("U_EDITOR")

		second, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()
		gt.Value(t, second.Code).Equal("R-002")
	})

	t.Run("writes an audit entry", func(t *testing.T) {
		env := newTestEnv(t)

		risk, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()

		entries, err := env.repo.Audit().ListByEntity(ctx, testWorkspace, types.EntityTypeRisk, "1")
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(1)
		gt.Value(t, entries[0].Action).Equal(types.AuditActionRiskCreated)
		gt.Value(t, entries[0].UserID).Equal("U_EDITOR")
		gt.Value(t, entries[0].IPAddress).Equal("198.51.100.7")
		gt.Value(t, entries[0].Metadata["code"]).Equal(any(risk.Code))
	})

	t.Run("derives next review date from frequency", func(t *testing.T) {
		env := newTestEnv(t)

		input := validInput()
		input.MonitoringFrequency = types.MonitoringFrequencyQuarterly
		input.LastReviewDate = ptr(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))

		risk, err := env.uc.Risk.Create(ctx, editor(), input)
		gt.NoError(t, err).Required()
		gt.Value(t, risk.NextReviewDate).NotNil()
		gt.Bool(t, risk.NextReviewDate.Equal(time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC))).True()
	})

	t.Run("explicit next review date wins", func(t *testing.T) {
		env := newTestEnv(t)

		explicit := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		input := validInput()
		input.MonitoringFrequency = types.MonitoringFrequencyAnnual
		input.LastReviewDate = ptr(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
		input.NextReviewDate = &explicit

		risk, err := env.uc.Risk.Create(ctx, editor(), input)
		gt.NoError(t, err).Required()
		gt.Bool(t, risk.NextReviewDate.Equal(explicit)).True()
	})

	t.Run("notifies responsible user", func(t *testing.T) {
		env := newTestEnv(t)

		input := validInput()
		input.ResponsibleID = "U_OWNER"
		_, err := env.uc.Risk.Create(ctx, editor(), input)
		gt.NoError(t, err).Required()

		posts := env.slack.Posts()
		gt.Array(t, posts).Length(1)
		gt.Value(t, posts[0].channelID).Equal("U_OWNER")
		gt.Bool(t, strings.Contains(posts[0].text, "R-001")).True()
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		testCases := []struct {
			name  string
			edit  func(*usecase.RiskInput)
			field string
		}{
			{"empty title", func(in *usecase.RiskInput) { in.Title = "   " }, "title"},
			{"unknown category", func(in *usecase.RiskInput) { in.Category = "environmental" }, "category"},
			{"missing category", func(in *usecase.RiskInput) { in.Category = "" }, "category"},
			{"probability zero", func(in *usecase.RiskInput) { in.Probability = 0 }, "probability"},
			{"impact six", func(in *usecase.RiskInput) { in.Impact = 6 }, "impact"},
			{"residual out of range", func(in *usecase.RiskInput) { in.ResidualProbability = 6 }, "residualProbability"},
			{"negative residual impact", func(in *usecase.RiskInput) { in.ResidualImpact = -1 }, "residualImpact"},
			{"unknown treatment", func(in *usecase.RiskInput) { in.Treatment = "ignore" }, "treatment"},
			{"unknown frequency", func(in *usecase.RiskInput) { in.MonitoringFrequency = "weekly" }, "monitoringFrequency"},
			{"legacy status", func(in *usecase.RiskInput) { in.Status = "open" }, "status"},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				env := newTestEnv(t)
				input := validInput()
				tc.edit(&input)

				_, err := env.uc.Risk.Create(ctx, editor(), input)
				gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
				gt.Value(t, usecase.FieldOf(err)).Equal(tc.field)

				risks, err := env.repo.Risk().List(ctx, testWorkspace)
				gt.NoError(t, err).Required()
				gt.Array(t, risks).Length(0)
			})
		}
	})

	t.Run("viewer is denied", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.uc.Risk.Create(ctx, viewer(), validInput())
		gt.Bool(t, errors.Is(err, usecase.ErrPermissionDenied)).True()
	})

	t.Run("actor without user is denied", func(t *testing.T) {
		env := newTestEnv(t)
		actor := editor()
		actor.UserID = ""

		_, err := env.uc.Risk.Create(ctx, actor, validInput())
		gt.Bool(t, errors.Is(err, usecase.ErrPermissionDenied)).True()
	})

	t.Run("policy failure is not a denial", func(t *testing.T) {
		env := newTestEnv(t, usecase.WithPolicy(errPolicy{err: errors.New("opa unavailable")}))

		_, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, usecase.ErrPermissionDenied)).False()
	})

	t.Run("no policy denies everything", func(t *testing.T) {
		uc := usecase.New(memory.New())
		_, err := uc.Risk.List(ctx, admin())
		gt.Bool(t, errors.Is(err, usecase.ErrPermissionDenied)).True()
	})
}

func TestRiskUseCase_Update(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testEnv, *model.Risk) {
		env := newTestEnv(t)
		input := validInput()
		input.Treatment = types.TreatmentStrategyMitigate
		input.RiskAppetite = "low"
		input.NextReviewDate = ptr(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
		risk, err := env.uc.Risk.Create(ctx, editor(), input)
		gt.NoError(t, err).Required()
		return env, risk
	}

	t.Run("recomputes level and keeps untouched fields", func(t *testing.T) {
		env, risk := setup(t)

		updated, err := env.uc.Risk.Update(ctx, editor(), risk.ID, usecase.RiskPatch{
			Probability: ptr(5),
			Impact:      ptr(5),
		})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.RiskLevel()).Equal(types.RiskLevelCritical)
		gt.Value(t, updated.Title).Equal(risk.Title)
		gt.Value(t, updated.Treatment).Equal(types.TreatmentStrategyMitigate)
		gt.Value(t, updated.Code).Equal(risk.Code)
	})

	t.Run("pointer to empty clears nullable fields", func(t *testing.T) {
		env, risk := setup(t)

		updated, err := env.uc.Risk.Update(ctx, editor(), risk.ID, usecase.RiskPatch{
			Treatment:           ptr(types.TreatmentStrategyNone),
			RiskAppetite:        ptr(""),
			ClearNextReviewDate: true,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Treatment).Equal(types.TreatmentStrategyNone)
		gt.Value(t, updated.RiskAppetite).Equal("")
		gt.Value(t, updated.NextReviewDate).Nil()
	})

	t.Run("setting frequency derives next review", func(t *testing.T) {
		env, risk := setup(t)

		updated, err := env.uc.Risk.Update(ctx, editor(), risk.ID, usecase.RiskPatch{
			LastReviewDate:      ptr(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)),
			MonitoringFrequency: ptr(types.MonitoringFrequencyMonthly),
		})
		gt.NoError(t, err).Required()
		// AddDate normalizes April 31st to May 1st
		gt.Bool(t, updated.NextReviewDate.Equal(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))).True()
	})

	t.Run("any status transition is accepted", func(t *testing.T) {
		env, risk := setup(t)

		for _, status := range []types.RiskStatus{
			types.RiskStatusClosed,
			types.RiskStatusIdentified,
			types.RiskStatusMonitoring,
		} {
			updated, err := env.uc.Risk.Update(ctx, editor(), risk.ID, usecase.RiskPatch{Status: ptr(status)})
			gt.NoError(t, err).Required()
			gt.Value(t, updated.Status).Equal(status)
		}
	})

	t.Run("invalid patch is rejected", func(t *testing.T) {
		env, risk := setup(t)

		testCases := []struct {
			name  string
			patch usecase.RiskPatch
			field string
		}{
			{"empty title", usecase.RiskPatch{Title: ptr("")}, "title"},
			{"probability six", usecase.RiskPatch{Probability: ptr(6)}, "probability"},
			{"empty status", usecase.RiskPatch{Status: ptr(types.RiskStatus(""))}, "status"},
			{"set and clear", usecase.RiskPatch{NextReviewDate: ptr(baseTime), ClearNextReviewDate: true}, "nextReviewDate"},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := env.uc.Risk.Update(ctx, editor(), risk.ID, tc.patch)
				gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
				gt.Value(t, usecase.FieldOf(err)).Equal(tc.field)
			})
		}

		got, err := env.repo.Risk().Get(ctx, testWorkspace, risk.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Probability).Equal(risk.Probability)
	})

	t.Run("missing risk is not found", func(t *testing.T) {
		env, _ := setup(t)

		_, err := env.uc.Risk.Update(ctx, editor(), 999, usecase.RiskPatch{Title: ptr("x")})
		gt.Bool(t, errors.Is(err, usecase.ErrRiskNotFound)).True()
	})

	t.Run("permission is checked before existence", func(t *testing.T) {
		env, _ := setup(t)

		_, err := env.uc.Risk.Update(ctx, viewer(), 999, usecase.RiskPatch{Title: ptr("x")})
		gt.Bool(t, errors.Is(err, usecase.ErrPermissionDenied)).True()
		gt.Bool(t, errors.Is(err, usecase.ErrRiskNotFound)).False()
	})

	t.Run("responsible change is audited and notified", func(t *testing.T) {
		env, risk := setup(t)

		_, err := env.uc.Risk.Update(ctx, editor(), risk.ID, usecase.RiskPatch{ResponsibleID: ptr("U_NEW")})
		gt.NoError(t, err).Required()

		posts := env.slack.Posts()
		gt.Array(t, posts).Length(1)
		gt.Value(t, posts[0].channelID).Equal("U_NEW")

		entries, err := env.repo.Audit().ListByEntity(ctx, testWorkspace, types.EntityTypeRisk, "1")
		gt.NoError(t, err).Required()
		var found bool
		for _, e := range entries {
			if e.Action == types.AuditActionResponsibleChange {
				found = true
				gt.Value(t, e.Metadata["to"]).Equal(any("U_NEW"))
			}
		}
		gt.Bool(t, found).True()

		// unassigning does not notify anyone
		_, err = env.uc.Risk.Update(ctx, editor(), risk.ID, usecase.RiskPatch{ResponsibleID: ptr("")})
		gt.NoError(t, err).Required()
		gt.Array(t, env.slack.Posts()).Length(1)
	})

	t.Run("notification failure does not fail update", func(t *testing.T) {
		env, risk := setup(t)
		env.slack.err = errors.New("slack down")

		updated, err := env.uc.Risk.Update(ctx, editor(), risk.ID, usecase.RiskPatch{ResponsibleID: ptr("U_NEW")})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.ResponsibleID).Equal("U_NEW")
	})
}

func TestRiskUseCase_GetAndDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	risk, err := env.uc.Risk.Create(ctx, editor(), validInput())
	gt.NoError(t, err).Required()

	_, err = env.uc.Treatment.AddTreatment(ctx, editor(), risk.ID, usecase.TreatmentInput{Description: "Upgrade firmware"})
	gt.NoError(t, err).Required()
	_, err = env.uc.Review.RecordReview(ctx, editor(), risk.ID, usecase.ReviewInput{
		Probability: 2, Impact: 2, Status: types.RiskStatusTreating,
	})
	gt.NoError(t, err).Required()

	detail, err := env.uc.Risk.Get(ctx, viewer(), risk.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, detail.Risk.ID).Equal(risk.ID)
	gt.Array(t, detail.Treatments).Length(1)
	gt.Array(t, detail.Reviews).Length(1)

	t.Run("editor cannot delete", func(t *testing.T) {
		err := env.uc.Risk.Delete(ctx, editor(), risk.ID)
		gt.Bool(t, errors.Is(err, usecase.ErrPermissionDenied)).True()
	})

	t.Run("admin deletes with cascade", func(t *testing.T) {
		gt.NoError(t, env.uc.Risk.Delete(ctx, admin(), risk.ID)).Required()

		_, err := env.uc.Risk.Get(ctx, viewer(), risk.ID)
		gt.Bool(t, errors.Is(err, usecase.ErrRiskNotFound)).True()

		treatments, err := env.repo.Treatment().ListByRisk(ctx, testWorkspace, risk.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, treatments).Length(0)

		reviews, err := env.repo.Review().ListByRisk(ctx, testWorkspace, risk.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, reviews).Length(0)
	})

	t.Run("second delete is not found", func(t *testing.T) {
		err := env.uc.Risk.Delete(ctx, admin(), risk.ID)
		gt.Bool(t, errors.Is(err, usecase.ErrRiskNotFound)).True()
	})

	t.Run("audit trail survives deletion", func(t *testing.T) {
		entries, err := env.uc.Audit.ListByRisk(ctx, viewer(), risk.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(2)
		gt.Value(t, entries[1].Action).Equal(types.AuditActionRiskDeleted)
	})
}

func TestRiskUseCase_List(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for _, status := range []types.RiskStatus{types.RiskStatusIdentified, types.RiskStatusTreating, types.RiskStatusTreating} {
		input := validInput()
		input.Status = status
		_, err := env.uc.Risk.Create(ctx, editor(), input)
		gt.NoError(t, err).Required()
	}

	all, err := env.uc.Risk.List(ctx, viewer())
	gt.NoError(t, err).Required()
	gt.Array(t, all).Length(3)

	treating, err := env.uc.Risk.List(ctx, viewer(), interfaces.WithStatus(types.RiskStatusTreating))
	gt.NoError(t, err).Required()
	gt.Array(t, treating).Length(2)

	other := viewer()
	other.WorkspaceID = "globex"
	isolated, err := env.uc.Risk.List(ctx, other)
	gt.NoError(t, err).Required()
	gt.Array(t, isolated).Length(0)
}
