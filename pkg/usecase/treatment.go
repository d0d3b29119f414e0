package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// TreatmentInput holds the fields of a new treatment
type TreatmentInput struct {
	Description string
	// ControlImplementationID optionally points at an implemented control
	ControlImplementationID string
}

type TreatmentUseCase struct {
	*core
}

// AddTreatment appends a planned treatment to a risk. It never changes the
// risk's level.
func (uc *TreatmentUseCase) AddTreatment(ctx context.Context, actor *auth.Actor, riskID int64, input TreatmentInput) (*model.Treatment, error) {
	if err := uc.authorize(ctx, actor, types.OperationUpdate); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, validationError("description", "treatment description is required")
	}

	if _, err := uc.getRisk(ctx, actor.WorkspaceID, riskID); err != nil {
		return nil, err
	}

	created, err := uc.repo.Treatment().Create(ctx, actor.WorkspaceID, &model.Treatment{
		RiskID:                  riskID,
		Description:             description,
		Status:                  types.TreatmentStatusPlanned,
		ControlImplementationID: strings.TrimSpace(input.ControlImplementationID),
		CreatedBy:               actor.UserID,
	})
	if err != nil {
		return nil, childWriteError(err, "failed to create treatment", riskID)
	}

	uc.sidecar.audit(ctx, actor, types.AuditActionTreatmentAdded, types.EntityTypeTreatment, treatmentEntityID(created.ID), map[string]any{
		"risk_id":     riskID,
		"description": created.Description,
	})

	return created, nil
}

// UpdateTreatmentStatus moves a treatment to status. Any transition between
// known statuses is accepted.
func (uc *TreatmentUseCase) UpdateTreatmentStatus(ctx context.Context, actor *auth.Actor, riskID, treatmentID int64, status types.TreatmentStatus) (*model.Treatment, error) {
	if err := uc.authorize(ctx, actor, types.OperationUpdate); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, validationError("status", "invalid treatment status %q", status)
	}

	existing, err := uc.repo.Treatment().Get(ctx, actor.WorkspaceID, riskID, treatmentID)
	if err != nil {
		return nil, treatmentLookupError(err, riskID, treatmentID)
	}

	changed := *existing
	changed.Status = status
	updated, err := uc.repo.Treatment().Update(ctx, actor.WorkspaceID, &changed)
	if err != nil {
		return nil, treatmentLookupError(err, riskID, treatmentID)
	}

	uc.sidecar.audit(ctx, actor, types.AuditActionTreatmentUpdated, types.EntityTypeTreatment, treatmentEntityID(treatmentID), map[string]any{
		"risk_id": riskID,
		"from":    existing.Status.String(),
		"to":      updated.Status.String(),
	})

	return updated, nil
}

// RemoveTreatment hard-deletes a treatment
func (uc *TreatmentUseCase) RemoveTreatment(ctx context.Context, actor *auth.Actor, riskID, treatmentID int64) error {
	if err := uc.authorize(ctx, actor, types.OperationDelete); err != nil {
		return err
	}

	if err := uc.repo.Treatment().Delete(ctx, actor.WorkspaceID, riskID, treatmentID); err != nil {
		return treatmentLookupError(err, riskID, treatmentID)
	}

	uc.sidecar.audit(ctx, actor, types.AuditActionTreatmentRemoved, types.EntityTypeTreatment, treatmentEntityID(treatmentID), map[string]any{
		"risk_id": riskID,
	})
	return nil
}

func treatmentLookupError(err error, riskID, treatmentID int64) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(ErrTreatmentNotFound, "treatment not found",
			goerr.V(RiskIDKey, riskID), goerr.V(TreatmentIDKey, treatmentID))
	}
	return goerr.Wrap(err, "failed to access treatment",
		goerr.V(RiskIDKey, riskID), goerr.V(TreatmentIDKey, treatmentID))
}

func treatmentEntityID(id int64) string {
	return strconv.FormatInt(id, 10)
}
