package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"golang.org/x/sync/errgroup"
)

// RiskInput holds the fields of a new risk
type RiskInput struct {
	Title               string
	Description         string
	Category            types.Category
	Probability         int
	Impact              int
	ResidualProbability int
	ResidualImpact      int
	Treatment           types.TreatmentStrategy
	TreatmentPlan       string
	Status              types.RiskStatus
	MonitoringFrequency types.MonitoringFrequency
	LastReviewDate      *time.Time
	NextReviewDate      *time.Time
	RiskAppetite        string
	ResponsibleID       string
}

// RiskPatch is a partial update. A nil field is left unchanged; a pointer to
// the empty value clears a nullable field. Dates are cleared with the
// explicit Clear flags.
type RiskPatch struct {
	Title               *string
	Description         *string
	Category            *types.Category
	Probability         *int
	Impact              *int
	ResidualProbability *int
	ResidualImpact      *int
	Treatment           *types.TreatmentStrategy
	TreatmentPlan       *string
	Status              *types.RiskStatus
	MonitoringFrequency *types.MonitoringFrequency
	LastReviewDate      *time.Time
	ClearLastReviewDate bool
	NextReviewDate      *time.Time
	ClearNextReviewDate bool
	RiskAppetite        *string
	ResponsibleID       *string
}

type RiskUseCase struct {
	*core
}

func (uc *RiskUseCase) Create(ctx context.Context, actor *auth.Actor, input RiskInput) (*model.Risk, error) {
	if err := uc.authorize(ctx, actor, types.OperationCreate); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationError("title", "risk title is required")
	}
	if !input.Category.IsValid() {
		return nil, validationError("category", "invalid category %q", input.Category)
	}
	if err := validateAssessment(input.Probability, input.Impact); err != nil {
		return nil, err
	}
	if err := validateResidual(input.ResidualProbability, input.ResidualImpact); err != nil {
		return nil, err
	}
	if !input.Treatment.IsValid() {
		return nil, validationError("treatment", "invalid treatment strategy %q", input.Treatment)
	}
	if !input.MonitoringFrequency.IsValid() {
		return nil, validationError("monitoringFrequency", "invalid monitoring frequency %q", input.MonitoringFrequency)
	}
	status := input.Status.Normalize()
	if !status.IsValid() {
		return nil, validationError("status", "invalid risk status %q", input.Status)
	}

	risk := &model.Risk{
		Title:               title,
		Description:         input.Description,
		Category:            input.Category,
		Probability:         input.Probability,
		Impact:              input.Impact,
		ResidualProbability: input.ResidualProbability,
		ResidualImpact:      input.ResidualImpact,
		Treatment:           input.Treatment,
		TreatmentPlan:       input.TreatmentPlan,
		Status:              status,
		MonitoringFrequency: input.MonitoringFrequency,
		LastReviewDate:      utcTime(input.LastReviewDate),
		NextReviewDate:      utcTime(input.NextReviewDate),
		RiskAppetite:        input.RiskAppetite,
		ResponsibleID:       input.ResponsibleID,
		CreatedBy:           actor.UserID,
	}
	if risk.NextReviewDate == nil {
		risk.DeriveNextReviewDate()
	}

	created, err := uc.repo.Risk().Create(ctx, actor.WorkspaceID, risk)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create risk", goerr.V(WorkspaceIDKey, actor.WorkspaceID))
	}

	uc.sidecar.audit(ctx, actor, types.AuditActionRiskCreated, types.EntityTypeRisk, riskEntityID(created.ID), map[string]any{
		"code":       created.Code,
		"title":      created.Title,
		"risk_level": created.RiskLevel().String(),
	})
	uc.sidecar.notifyAssignment(ctx, actor, created)

	return created, nil
}

func (uc *RiskUseCase) Update(ctx context.Context, actor *auth.Actor, id int64, patch RiskPatch) (*model.Risk, error) {
	if err := uc.authorize(ctx, actor, types.OperationUpdate); err != nil {
		return nil, err
	}
	if err := validatePatch(patch); err != nil {
		return nil, goerr.Wrap(err, "invalid risk patch", goerr.V(RiskIDKey, id))
	}

	existing, err := uc.getRisk(ctx, actor.WorkspaceID, id)
	if err != nil {
		return nil, err
	}

	changed := applyPatch(model.CopyRisk(existing), patch)
	// the pair is validated again as a whole once both axes are known
	if err := validateResidual(changed.ResidualProbability, changed.ResidualImpact); err != nil {
		return nil, goerr.Wrap(err, "invalid residual assessment", goerr.V(RiskIDKey, id))
	}

	updated, err := uc.repo.Risk().Update(ctx, actor.WorkspaceID, changed)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrRiskNotFound, "risk not found", goerr.V(RiskIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to update risk", goerr.V(RiskIDKey, id))
	}

	uc.sidecar.audit(ctx, actor, types.AuditActionRiskUpdated, types.EntityTypeRisk, riskEntityID(id), map[string]any{
		"code":       updated.Code,
		"changed":    changedFields(existing, updated),
		"risk_level": updated.RiskLevel().String(),
	})
	if existing.ResponsibleID != updated.ResponsibleID {
		uc.sidecar.audit(ctx, actor, types.AuditActionResponsibleChange, types.EntityTypeRisk, riskEntityID(id), map[string]any{
			"code": updated.Code,
			"from": existing.ResponsibleID,
			"to":   updated.ResponsibleID,
		})
		uc.sidecar.notifyAssignment(ctx, actor, updated)
	}

	return updated, nil
}

// Get returns the risk with its treatment ledger and review history
func (uc *RiskUseCase) Get(ctx context.Context, actor *auth.Actor, id int64) (*model.RiskDetail, error) {
	if err := uc.authorize(ctx, actor, types.OperationRead); err != nil {
		return nil, err
	}

	risk, err := uc.getRisk(ctx, actor.WorkspaceID, id)
	if err != nil {
		return nil, err
	}

	detail := &model.RiskDetail{Risk: risk}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		treatments, err := uc.repo.Treatment().ListByRisk(egCtx, actor.WorkspaceID, id)
		if err != nil {
			return goerr.Wrap(err, "failed to list treatments", goerr.V(RiskIDKey, id))
		}
		detail.Treatments = treatments
		return nil
	})
	eg.Go(func() error {
		reviews, err := uc.repo.Review().ListByRisk(egCtx, actor.WorkspaceID, id)
		if err != nil {
			return goerr.Wrap(err, "failed to list reviews", goerr.V(RiskIDKey, id))
		}
		detail.Reviews = reviews
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return detail, nil
}

// Delete removes the risk together with its treatments and reviews
func (uc *RiskUseCase) Delete(ctx context.Context, actor *auth.Actor, id int64) error {
	if err := uc.authorize(ctx, actor, types.OperationDelete); err != nil {
		return err
	}

	if err := uc.repo.Risk().Delete(ctx, actor.WorkspaceID, id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return goerr.Wrap(ErrRiskNotFound, "risk not found", goerr.V(RiskIDKey, id))
		}
		return goerr.Wrap(err, "failed to delete risk", goerr.V(RiskIDKey, id))
	}

	uc.sidecar.audit(ctx, actor, types.AuditActionRiskDeleted, types.EntityTypeRisk, riskEntityID(id), nil)
	return nil
}

func (uc *RiskUseCase) List(ctx context.Context, actor *auth.Actor, opts ...interfaces.ListRiskOption) ([]*model.Risk, error) {
	if err := uc.authorize(ctx, actor, types.OperationRead); err != nil {
		return nil, err
	}

	risks, err := uc.repo.Risk().List(ctx, actor.WorkspaceID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list risks", goerr.V(WorkspaceIDKey, actor.WorkspaceID))
	}
	return risks, nil
}

// getRisk loads a risk and maps a missing row to ErrRiskNotFound
func (c *core) getRisk(ctx context.Context, workspaceID string, id int64) (*model.Risk, error) {
	risk, err := c.repo.Risk().Get(ctx, workspaceID, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrRiskNotFound, "risk not found", goerr.V(RiskIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V(RiskIDKey, id))
	}
	return risk, nil
}

// childWriteError wraps a failed treatment or review write. The repository
// re-checks the parent inside the write, so a risk deleted after getRisk
// still surfaces as ErrRiskNotFound.
func childWriteError(err error, msg string, riskID int64) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(ErrRiskNotFound, "risk not found", goerr.V(RiskIDKey, riskID))
	}
	return goerr.Wrap(err, msg, goerr.V(RiskIDKey, riskID))
}

func validateAssessment(probability, impact int) error {
	if !types.InScale(probability) {
		return validationError("probability", "probability must be between %d and %d", types.MinScale, types.MaxScale)
	}
	if !types.InScale(impact) {
		return validationError("impact", "impact must be between %d and %d", types.MinScale, types.MaxScale)
	}
	return nil
}

func validateResidual(probability, impact int) error {
	if !types.InResidualScale(probability) {
		return validationError("residualProbability", "residual probability must be between %d and %d", types.ResidualNotEvaluated, types.MaxScale)
	}
	if !types.InResidualScale(impact) {
		return validationError("residualImpact", "residual impact must be between %d and %d", types.ResidualNotEvaluated, types.MaxScale)
	}
	return nil
}

func validatePatch(p RiskPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return validationError("title", "risk title is required")
	}
	if p.Category != nil && !p.Category.IsValid() {
		return validationError("category", "invalid category %q", *p.Category)
	}
	if p.Probability != nil && !types.InScale(*p.Probability) {
		return validationError("probability", "probability must be between %d and %d", types.MinScale, types.MaxScale)
	}
	if p.Impact != nil && !types.InScale(*p.Impact) {
		return validationError("impact", "impact must be between %d and %d", types.MinScale, types.MaxScale)
	}
	if p.ResidualProbability != nil && !types.InResidualScale(*p.ResidualProbability) {
		return validationError("residualProbability", "residual probability must be between %d and %d", types.ResidualNotEvaluated, types.MaxScale)
	}
	if p.ResidualImpact != nil && !types.InResidualScale(*p.ResidualImpact) {
		return validationError("residualImpact", "residual impact must be between %d and %d", types.ResidualNotEvaluated, types.MaxScale)
	}
	if p.Treatment != nil && !p.Treatment.IsValid() {
		return validationError("treatment", "invalid treatment strategy %q", *p.Treatment)
	}
	if p.Status != nil && !p.Status.IsValid() {
		return validationError("status", "invalid risk status %q", *p.Status)
	}
	if p.MonitoringFrequency != nil && !p.MonitoringFrequency.IsValid() {
		return validationError("monitoringFrequency", "invalid monitoring frequency %q", *p.MonitoringFrequency)
	}
	if p.LastReviewDate != nil && p.ClearLastReviewDate {
		return validationError("lastReviewDate", "cannot set and clear lastReviewDate at once")
	}
	if p.NextReviewDate != nil && p.ClearNextReviewDate {
		return validationError("nextReviewDate", "cannot set and clear nextReviewDate at once")
	}
	return nil
}

func applyPatch(r *model.Risk, p RiskPatch) *model.Risk {
	if p.Title != nil {
		r.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Probability != nil {
		r.Probability = *p.Probability
	}
	if p.Impact != nil {
		r.Impact = *p.Impact
	}
	if p.ResidualProbability != nil {
		r.ResidualProbability = *p.ResidualProbability
	}
	if p.ResidualImpact != nil {
		r.ResidualImpact = *p.ResidualImpact
	}
	if p.Treatment != nil {
		r.Treatment = *p.Treatment
	}
	if p.TreatmentPlan != nil {
		r.TreatmentPlan = *p.TreatmentPlan
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.MonitoringFrequency != nil {
		r.MonitoringFrequency = *p.MonitoringFrequency
	}
	if p.RiskAppetite != nil {
		r.RiskAppetite = *p.RiskAppetite
	}
	if p.ResponsibleID != nil {
		r.ResponsibleID = *p.ResponsibleID
	}

	switch {
	case p.ClearLastReviewDate:
		r.LastReviewDate = nil
	case p.LastReviewDate != nil:
		r.LastReviewDate = utcTime(p.LastReviewDate)
	}

	switch {
	case p.ClearNextReviewDate:
		r.NextReviewDate = nil
	case p.NextReviewDate != nil:
		r.NextReviewDate = utcTime(p.NextReviewDate)
	case p.LastReviewDate != nil || p.MonitoringFrequency != nil:
		r.DeriveNextReviewDate()
	}

	return r
}

// changedFields lists the JSON names of the fields that differ
func changedFields(before, after *model.Risk) []string {
	var fields []string
	add := func(cond bool, name string) {
		if cond {
			fields = append(fields, name)
		}
	}

	add(before.Title != after.Title, "title")
	add(before.Description != after.Description, "description")
	add(before.Category != after.Category, "category")
	add(before.Probability != after.Probability, "probability")
	add(before.Impact != after.Impact, "impact")
	add(before.ResidualProbability != after.ResidualProbability, "residualProbability")
	add(before.ResidualImpact != after.ResidualImpact, "residualImpact")
	add(before.Treatment != after.Treatment, "treatment")
	add(before.TreatmentPlan != after.TreatmentPlan, "treatmentPlan")
	add(before.Status != after.Status, "status")
	add(before.MonitoringFrequency != after.MonitoringFrequency, "monitoringFrequency")
	add(!sameTime(before.LastReviewDate, after.LastReviewDate), "lastReviewDate")
	add(!sameTime(before.NextReviewDate, after.NextReviewDate), "nextReviewDate")
	add(before.RiskAppetite != after.RiskAppetite, "riskAppetite")
	add(before.ResponsibleID != after.ResponsibleID, "responsibleId")

	return fields
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func riskEntityID(id int64) string {
	return strconv.FormatInt(id, 10)
}
