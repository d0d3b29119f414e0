package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"golang.org/x/sync/errgroup"
)

// reportConcurrency bounds parallel detail loads while building a report
const reportConcurrency = 8

// MatrixSummary is the heat map view of a workspace's register
type MatrixSummary struct {
	Inherent             model.Matrix
	Residual             model.Matrix
	CountByLevel         map[types.RiskLevel]int
	ResidualCountByLevel map[types.RiskLevel]int
	Total                int
}

// Report is the input handed to report generators
type Report struct {
	WorkspaceID string
	GeneratedAt time.Time
	Matrix      *MatrixSummary
	Overdue     []*model.Risk
	Risks       []*model.RiskDetail
}

type DashboardUseCase struct {
	*core
}

func (uc *DashboardUseCase) Matrix(ctx context.Context, actor *auth.Actor) (*MatrixSummary, error) {
	risks, err := uc.listForRead(ctx, actor)
	if err != nil {
		return nil, err
	}
	return summarize(risks), nil
}

// Overdue returns risks whose next review date is before now, in ID order
func (uc *DashboardUseCase) Overdue(ctx context.Context, actor *auth.Actor, now time.Time) ([]*model.Risk, error) {
	risks, err := uc.listForRead(ctx, actor)
	if err != nil {
		return nil, err
	}
	return model.OverdueReviews(risks, now), nil
}

// Report collects the matrix, the overdue list and every risk's detail
func (uc *DashboardUseCase) Report(ctx context.Context, actor *auth.Actor) (*Report, error) {
	risks, err := uc.listForRead(ctx, actor)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	report := &Report{
		WorkspaceID: actor.WorkspaceID,
		GeneratedAt: now,
		Matrix:      summarize(risks),
		Overdue:     model.OverdueReviews(risks, now),
		Risks:       make([]*model.RiskDetail, len(risks)),
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(reportConcurrency)
	for i, risk := range risks {
		eg.Go(func() error {
			treatments, err := uc.repo.Treatment().ListByRisk(egCtx, actor.WorkspaceID, risk.ID)
			if err != nil {
				return goerr.Wrap(err, "failed to list treatments", goerr.V(RiskIDKey, risk.ID))
			}
			reviews, err := uc.repo.Review().ListByRisk(egCtx, actor.WorkspaceID, risk.ID)
			if err != nil {
				return goerr.Wrap(err, "failed to list reviews", goerr.V(RiskIDKey, risk.ID))
			}
			report.Risks[i] = &model.RiskDetail{Risk: risk, Treatments: treatments, Reviews: reviews}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return report, nil
}

func (uc *DashboardUseCase) listForRead(ctx context.Context, actor *auth.Actor) ([]*model.Risk, error) {
	if err := uc.authorize(ctx, actor, types.OperationRead); err != nil {
		return nil, err
	}

	risks, err := uc.repo.Risk().List(ctx, actor.WorkspaceID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list risks", goerr.V(WorkspaceIDKey, actor.WorkspaceID))
	}
	return risks, nil
}

func summarize(risks []*model.Risk) *MatrixSummary {
	inherent := model.AggregateMatrix(risks)
	residual := model.AggregateResidualMatrix(risks)
	return &MatrixSummary{
		Inherent:             inherent,
		Residual:             residual,
		CountByLevel:         inherent.CountByLevel(),
		ResidualCountByLevel: residual.CountByLevel(),
		Total:                inherent.Total(),
	}
}
