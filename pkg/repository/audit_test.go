package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

func runAuditRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Put and list by entity", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		ws := newWorkspaceID()
		base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		entries := []*model.AuditEntry{
			{Action: types.AuditActionRiskUpdated, EntityType: types.EntityTypeRisk, EntityID: "1", CreatedAt: base.Add(time.Minute)},
			{Action: types.AuditActionRiskCreated, EntityType: types.EntityTypeRisk, EntityID: "1", CreatedAt: base},
			{Action: types.AuditActionRiskCreated, EntityType: types.EntityTypeRisk, EntityID: "2", CreatedAt: base},
			{Action: types.AuditActionTreatmentAdded, EntityType: types.EntityTypeTreatment, EntityID: "1", CreatedAt: base},
		}
		for _, e := range entries {
			e.ID = model.NewAuditID()
			e.WorkspaceID = ws
			e.UserID = "U001"
			e.IPAddress = "192.0.2.10"
			e.Metadata = map[string]any{"code": "R-001"}
			gt.NoError(t, repo.Audit().Put(ctx, e)).Required()
		}

		got, err := repo.Audit().ListByEntity(ctx, ws, types.EntityTypeRisk, "1")
		gt.NoError(t, err).Required()
		gt.Array(t, got).Length(2)
		gt.Value(t, got[0].Action).Equal(types.AuditActionRiskCreated)
		gt.Value(t, got[1].Action).Equal(types.AuditActionRiskUpdated)
		gt.Value(t, got[0].IPAddress).Equal("192.0.2.10")
		gt.Value(t, got[0].Metadata["code"]).Equal(any("R-001"))
	})

	t.Run("Put without workspace fails", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Audit().Put(context.Background(), &model.AuditEntry{
			ID:         model.NewAuditID(),
			Action:     types.AuditActionRiskDeleted,
			EntityType: types.EntityTypeRisk,
			EntityID:   "1",
			CreatedAt:  time.Now(),
		})
		gt.Error(t, err)
	})
}

func TestAuditRepository(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			runAuditRepositoryTest(t, b.newRepo)
		})
	}
}
