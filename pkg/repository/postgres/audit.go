package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type auditRepository struct {
	db *sql.DB
}

func (r *auditRepository) Put(ctx context.Context, entry *model.AuditEntry) error {
	if entry.WorkspaceID == "" {
		return goerr.New("audit entry workspace ID is required", goerr.V("id", entry.ID))
	}

	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal audit metadata", goerr.V("id", entry.ID))
	}

	const q = `INSERT INTO audit_logs (workspace_id, id, user_id, action, entity_type, entity_id,
metadata, ip_address, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)`

	if _, err := r.db.ExecContext(ctx, q, entry.WorkspaceID, entry.ID, entry.UserID,
		string(entry.Action), string(entry.EntityType), entry.EntityID,
		string(raw), entry.IPAddress, entry.CreatedAt); err != nil {
		return goerr.Wrap(err, "failed to insert audit entry", goerr.V("id", entry.ID))
	}
	return nil
}

func (r *auditRepository) ListByEntity(ctx context.Context, workspaceID string, entityType types.EntityType, entityID string) ([]*model.AuditEntry, error) {
	const q = `SELECT id, user_id, action, entity_type, entity_id, metadata, ip_address, created_at
FROM audit_logs WHERE workspace_id = $1 AND entity_type = $2 AND entity_id = $3
ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, q, workspaceID, string(entityType), entityID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list audit entries")
	}
	defer rows.Close()

	entries := make([]*model.AuditEntry, 0)
	for rows.Next() {
		e := model.AuditEntry{WorkspaceID: workspaceID}
		var action, etype string
		var raw []byte
		if err := rows.Scan(&e.ID, &e.UserID, &action, &etype, &e.EntityID, &raw,
			&e.IPAddress, &e.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan audit entry")
		}
		if err := json.Unmarshal(raw, &e.Metadata); err != nil {
			return nil, goerr.Wrap(err, "failed to decode audit metadata", goerr.V("id", e.ID))
		}
		e.Action = types.AuditAction(action)
		e.EntityType = types.EntityType(etype)
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate audit entries")
	}
	return entries, nil
}
