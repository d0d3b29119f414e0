package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

type auditRepository struct {
	mu      sync.RWMutex
	entries map[string][]*model.AuditEntry
}

func newAuditRepository() *auditRepository {
	return &auditRepository{
		entries: make(map[string][]*model.AuditEntry),
	}
}

func copyAuditEntry(e *model.AuditEntry) *model.AuditEntry {
	c := *e
	c.Metadata = maps.Clone(e.Metadata)
	return &c
}

func (r *auditRepository) Put(ctx context.Context, entry *model.AuditEntry) error {
	if entry.WorkspaceID == "" {
		return goerr.New("audit entry workspace ID is required", goerr.V("id", entry.ID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[entry.WorkspaceID] = append(r.entries[entry.WorkspaceID], copyAuditEntry(entry))
	return nil
}

func (r *auditRepository) ListByEntity(ctx context.Context, workspaceID string, entityType types.EntityType, entityID string) ([]*model.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.AuditEntry, 0)
	for _, e := range r.entries[workspaceID] {
		if e.EntityType == entityType && e.EntityID == entityID {
			result = append(result, copyAuditEntry(e))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}
