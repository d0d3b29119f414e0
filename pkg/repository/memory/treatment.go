package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

type treatmentRepository struct {
	mu         sync.RWMutex
	treatments map[string]map[int64]*model.Treatment
	nextID     map[string]int64

	risks *riskRepository
}

func newTreatmentRepository() *treatmentRepository {
	return &treatmentRepository{
		treatments: make(map[string]map[int64]*model.Treatment),
		nextID:     make(map[string]int64),
	}
}

func (r *treatmentRepository) ensureWorkspace(workspaceID string) {
	if _, exists := r.treatments[workspaceID]; !exists {
		r.treatments[workspaceID] = make(map[int64]*model.Treatment)
	}
	if _, exists := r.nextID[workspaceID]; !exists {
		r.nextID[workspaceID] = 1
	}
}

func copyTreatment(t *model.Treatment) *model.Treatment {
	c := *t
	return &c
}

func (r *treatmentRepository) Create(ctx context.Context, workspaceID string, treatment *model.Treatment) (*model.Treatment, error) {
	release, err := r.risks.holdParent(workspaceID, treatment.RiskID)
	if err != nil {
		return nil, err
	}
	defer release()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureWorkspace(workspaceID)

	now := time.Now().UTC()
	created := copyTreatment(treatment)
	created.ID = r.nextID[workspaceID]
	created.CreatedAt = now
	created.UpdatedAt = now
	r.nextID[workspaceID]++

	r.treatments[workspaceID][created.ID] = created
	return copyTreatment(created), nil
}

// lookup returns the stored treatment if it exists and belongs to riskID.
// Caller must hold the lock.
func (r *treatmentRepository) lookup(workspaceID string, riskID, id int64) (*model.Treatment, error) {
	t, exists := r.treatments[workspaceID][id]
	if !exists || t.RiskID != riskID {
		return nil, goerr.Wrap(ErrNotFound, "treatment not found",
			goerr.V("risk_id", riskID), goerr.V("id", id))
	}
	return t, nil
}

func (r *treatmentRepository) Get(ctx context.Context, workspaceID string, riskID, id int64) (*model.Treatment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, err := r.lookup(workspaceID, riskID, id)
	if err != nil {
		return nil, err
	}
	return copyTreatment(t), nil
}

func (r *treatmentRepository) ListByRisk(ctx context.Context, workspaceID string, riskID int64) ([]*model.Treatment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	treatments := make([]*model.Treatment, 0)
	for _, t := range r.treatments[workspaceID] {
		if t.RiskID == riskID {
			treatments = append(treatments, copyTreatment(t))
		}
	}

	sort.Slice(treatments, func(i, j int) bool {
		if !treatments[i].CreatedAt.Equal(treatments[j].CreatedAt) {
			return treatments[i].CreatedAt.Before(treatments[j].CreatedAt)
		}
		return treatments[i].ID < treatments[j].ID
	})

	return treatments, nil
}

func (r *treatmentRepository) Update(ctx context.Context, workspaceID string, treatment *model.Treatment) (*model.Treatment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.lookup(workspaceID, treatment.RiskID, treatment.ID)
	if err != nil {
		return nil, err
	}

	updated := copyTreatment(treatment)
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.treatments[workspaceID][updated.ID] = updated
	return copyTreatment(updated), nil
}

func (r *treatmentRepository) Delete(ctx context.Context, workspaceID string, riskID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.lookup(workspaceID, riskID, id); err != nil {
		return err
	}

	delete(r.treatments[workspaceID], id)
	return nil
}

func (r *treatmentRepository) deleteByRisk(workspaceID string, riskID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, t := range r.treatments[workspaceID] {
		if t.RiskID == riskID {
			delete(r.treatments[workspaceID], id)
		}
	}
}
