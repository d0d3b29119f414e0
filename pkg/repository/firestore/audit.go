package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type auditDoc struct {
	ID          string         `firestore:"ID"`
	WorkspaceID string         `firestore:"WorkspaceID"`
	UserID      string         `firestore:"UserID"`
	Action      string         `firestore:"Action"`
	EntityType  string         `firestore:"EntityType"`
	EntityID    string         `firestore:"EntityID"`
	Metadata    map[string]any `firestore:"Metadata"`
	IPAddress   string         `firestore:"IPAddress"`
	CreatedAt   time.Time      `firestore:"CreatedAt"`
}

type auditRepository struct {
	client *firestore.Client
	paths  *paths
}

func (r *auditRepository) Put(ctx context.Context, entry *model.AuditEntry) error {
	if entry.WorkspaceID == "" {
		return goerr.New("audit entry workspace ID is required", goerr.V("id", entry.ID))
	}

	d := &auditDoc{
		ID:          entry.ID,
		WorkspaceID: entry.WorkspaceID,
		UserID:      entry.UserID,
		Action:      string(entry.Action),
		EntityType:  string(entry.EntityType),
		EntityID:    entry.EntityID,
		Metadata:    entry.Metadata,
		IPAddress:   entry.IPAddress,
		CreatedAt:   entry.CreatedAt,
	}

	if _, err := r.paths.auditLogs(entry.WorkspaceID).Doc(entry.ID).Set(ctx, d); err != nil {
		return goerr.Wrap(err, "failed to put audit entry", goerr.V("id", entry.ID))
	}
	return nil
}

func (r *auditRepository) ListByEntity(ctx context.Context, workspaceID string, entityType types.EntityType, entityID string) ([]*model.AuditEntry, error) {
	iter := r.paths.auditLogs(workspaceID).
		Where("EntityType", "==", string(entityType)).
		Where("EntityID", "==", entityID).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	entries := make([]*model.AuditEntry, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate audit entries")
		}

		var d auditDoc
		if err := docSnap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode audit entry", goerr.V("doc_id", docSnap.Ref.ID))
		}

		entries = append(entries, &model.AuditEntry{
			ID:          d.ID,
			WorkspaceID: d.WorkspaceID,
			UserID:      d.UserID,
			Action:      types.AuditAction(d.Action),
			EntityType:  types.EntityType(d.EntityType),
			EntityID:    d.EntityID,
			Metadata:    d.Metadata,
			IPAddress:   d.IPAddress,
			CreatedAt:   d.CreatedAt,
		})
	}

	return entries, nil
}
