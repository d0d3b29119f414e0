package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/repository/memory"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/async"
)

func TestTreatmentUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("add starts planned and leaves level alone", func(t *testing.T) {
		env := newTestEnv(t)
		risk, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()

		treatment, err := env.uc.Treatment.AddTreatment(ctx, editor(), risk.ID, usecase.TreatmentInput{
			Description:             "  Replace appliance  ",
			ControlImplementationID: "CTRL-A.8.8",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, treatment.Status).Equal(types.TreatmentStatusPlanned)
		gt.Value(t, treatment.Description).Equal("Replace appliance")
		gt.Value(t, treatment.ControlImplementationID).Equal("CTRL-A.8.8")
		gt.Value(t, treatment.CreatedBy).Equal("U_EDITOR")

		got, err := env.repo.Risk().Get(ctx, testWorkspace, risk.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.RiskLevel()).Equal(risk.RiskLevel())
	})

	t.Run("empty description persists nothing", func(t *testing.T) {
		env := newTestEnv(t)
		risk, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()

		_, err = env.uc.Treatment.AddTreatment(ctx, editor(), risk.ID, usecase.TreatmentInput{Description: " \t "})
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
		gt.Value(t, usecase.FieldOf(err)).Equal("description")

		treatments, err := env.repo.Treatment().ListByRisk(ctx, testWorkspace, risk.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, treatments).Length(0)
	})

	t.Run("parent must exist", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.uc.Treatment.AddTreatment(ctx, editor(), 42, usecase.TreatmentInput{Description: "orphan"})
		gt.Bool(t, errors.Is(err, usecase.ErrRiskNotFound)).True()
	})

	t.Run("status moves freely between known values", func(t *testing.T) {
		env := newTestEnv(t)
		risk, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()
		treatment, err := env.uc.Treatment.AddTreatment(ctx, editor(), risk.ID, usecase.TreatmentInput{Description: "MFA everywhere"})
		gt.NoError(t, err).Required()

		for _, status := range []types.TreatmentStatus{
			types.TreatmentStatusCompleted,
			types.TreatmentStatusPlanned,
			types.TreatmentStatusCancelled,
			types.TreatmentStatusInProgress,
		} {
			updated, err := env.uc.Treatment.UpdateTreatmentStatus(ctx, editor(), risk.ID, treatment.ID, status)
			gt.NoError(t, err).Required()
			gt.Value(t, updated.Status).Equal(status)
		}
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		risk, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()
		treatment, err := env.uc.Treatment.AddTreatment(ctx, editor(), risk.ID, usecase.TreatmentInput{Description: "x"})
		gt.NoError(t, err).Required()

		_, err = env.uc.Treatment.UpdateTreatmentStatus(ctx, editor(), risk.ID, treatment.ID, "done")
		gt.Bool(t, errors.Is(err, usecase.ErrValidation)).True()
	})

	t.Run("treatment of another risk is not found", func(t *testing.T) {
		env := newTestEnv(t)
		a, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()
		b, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()
		treatment, err := env.uc.Treatment.AddTreatment(ctx, editor(), a.ID, usecase.TreatmentInput{Description: "x"})
		gt.NoError(t, err).Required()

		_, err = env.uc.Treatment.UpdateTreatmentStatus(ctx, editor(), b.ID, treatment.ID, types.TreatmentStatusCompleted)
		gt.Bool(t, errors.Is(err, usecase.ErrTreatmentNotFound)).True()

		err = env.uc.Treatment.RemoveTreatment(ctx, admin(), b.ID, treatment.ID)
		gt.Bool(t, errors.Is(err, usecase.ErrTreatmentNotFound)).True()
	})

	t.Run("remove requires delete permission", func(t *testing.T) {
		env := newTestEnv(t)
		risk, err := env.uc.Risk.Create(ctx, editor(), validInput())
		gt.NoError(t, err).Required()
		treatment, err := env.uc.Treatment.AddTreatment(ctx, editor(), risk.ID, usecase.TreatmentInput{Description: "x"})
		gt.NoError(t, err).Required()

		err = env.uc.Treatment.RemoveTreatment(ctx, editor(), risk.ID, treatment.ID)
		gt.Bool(t, errors.Is(err, usecase.ErrPermissionDenied)).True()

		gt.NoError(t, env.uc.Treatment.RemoveTreatment(ctx, admin(), risk.ID, treatment.ID)).Required()

		treatments, err := env.repo.Treatment().ListByRisk(ctx, testWorkspace, risk.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, treatments).Length(0)

		entries, err := env.repo.Audit().ListByEntity(ctx, testWorkspace, types.EntityTypeTreatment, "1")
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(2)
		gt.Value(t, entries[1].Action).Equal(types.AuditActionTreatmentRemoved)
	})
}

// racingRepo deletes the parent risk right before a child write, as a
// concurrent DeleteRisk landing after the usecase's existence check would
type racingRepo struct {
	interfaces.Repository
}

func (r racingRepo) Treatment() interfaces.TreatmentRepository {
	return racingTreatments{TreatmentRepository: r.Repository.Treatment(), risks: r.Repository.Risk()}
}

func (r racingRepo) Review() interfaces.ReviewRepository {
	return racingReviews{ReviewRepository: r.Repository.Review(), risks: r.Repository.Risk()}
}

type racingTreatments struct {
	interfaces.TreatmentRepository
	risks interfaces.RiskRepository
}

func (r racingTreatments) Create(ctx context.Context, workspaceID string, treatment *model.Treatment) (*model.Treatment, error) {
	if err := r.risks.Delete(ctx, workspaceID, treatment.RiskID); err != nil {
		return nil, err
	}
	return r.TreatmentRepository.Create(ctx, workspaceID, treatment)
}

type racingReviews struct {
	interfaces.ReviewRepository
	risks interfaces.RiskRepository
}

func (r racingReviews) Append(ctx context.Context, workspaceID string, review *model.Review) (*model.Review, error) {
	if err := r.risks.Delete(ctx, workspaceID, review.RiskID); err != nil {
		return nil, err
	}
	return r.ReviewRepository.Append(ctx, workspaceID, review)
}

func TestChildWrite_RiskDeletedConcurrently(t *testing.T) {
	ctx := context.Background()
	newUseCases := func(t *testing.T) (*usecase.UseCases, interfaces.Repository, int64) {
		repo := memory.New()
		risk, err := repo.Risk().Create(ctx, testWorkspace, &model.Risk{
			Title: "Shared admin password", Category: types.CategoryOperational,
			Probability: 3, Impact: 3, Status: types.RiskStatusIdentified,
		})
		gt.NoError(t, err).Required()

		uc := usecase.New(racingRepo{Repository: repo},
			usecase.WithPolicy(rolePolicy{}),
			usecase.WithDispatcher(async.Inline{}),
			usecase.WithClock(tickingClock(baseTime)),
		)
		return uc, repo, risk.ID
	}

	t.Run("treatment", func(t *testing.T) {
		uc, repo, riskID := newUseCases(t)

		_, err := uc.Treatment.AddTreatment(ctx, editor(), riskID, usecase.TreatmentInput{Description: "Rotate password"})
		gt.Bool(t, errors.Is(err, usecase.ErrRiskNotFound)).True()

		treatments, err := repo.Treatment().ListByRisk(ctx, testWorkspace, riskID)
		gt.NoError(t, err).Required()
		gt.Array(t, treatments).Length(0)
	})

	t.Run("review", func(t *testing.T) {
		uc, repo, riskID := newUseCases(t)

		_, err := uc.Review.RecordReview(ctx, editor(), riskID, usecase.ReviewInput{
			Probability: 2, Impact: 2, Status: types.RiskStatusMonitoring,
		})
		gt.Bool(t, errors.Is(err, usecase.ErrRiskNotFound)).True()

		reviews, err := repo.Review().ListByRisk(ctx, testWorkspace, riskID)
		gt.NoError(t, err).Required()
		gt.Array(t, reviews).Length(0)
	})
}
