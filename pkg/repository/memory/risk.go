package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

type riskRepository struct {
	mu     sync.RWMutex
	risks  map[string]map[int64]*model.Risk
	nextID map[string]int64

	treatments *treatmentRepository
	reviews    *reviewRepository
}

func newRiskRepository(treatments *treatmentRepository, reviews *reviewRepository) *riskRepository {
	return &riskRepository{
		risks:      make(map[string]map[int64]*model.Risk),
		nextID:     make(map[string]int64),
		treatments: treatments,
		reviews:    reviews,
	}
}

// holdParent read-locks the risk table and checks that the risk exists. The
// returned release must be called once the child write is done; Delete
// cannot interleave until then. Lock order is always risk before child.
func (r *riskRepository) holdParent(workspaceID string, id int64) (release func(), err error) {
	r.mu.RLock()
	if _, exists := r.risks[workspaceID][id]; !exists {
		r.mu.RUnlock()
		return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("risk_id", id))
	}
	return r.mu.RUnlock, nil
}

func (r *riskRepository) ensureWorkspace(workspaceID string) {
	if _, exists := r.risks[workspaceID]; !exists {
		r.risks[workspaceID] = make(map[int64]*model.Risk)
	}
	if _, exists := r.nextID[workspaceID]; !exists {
		r.nextID[workspaceID] = 1
	}
}

func (r *riskRepository) Create(ctx context.Context, workspaceID string, risk *model.Risk) (*model.Risk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensureWorkspace(workspaceID)

	now := time.Now().UTC()
	created := model.CopyRisk(risk)
	created.ID = r.nextID[workspaceID]
	created.Code = model.RiskCode(created.ID)
	created.CreatedAt = now
	created.UpdatedAt = now
	r.nextID[workspaceID]++

	r.risks[workspaceID][created.ID] = created
	return model.CopyRisk(created), nil
}

func (r *riskRepository) Get(ctx context.Context, workspaceID string, id int64) (*model.Risk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	risk, exists := r.risks[workspaceID][id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
	}

	return model.CopyRisk(risk), nil
}

func (r *riskRepository) List(ctx context.Context, workspaceID string, opts ...interfaces.ListRiskOption) ([]*model.Risk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg := interfaces.BuildListRiskConfig(opts...)

	ws := r.risks[workspaceID]
	risks := make([]*model.Risk, 0, len(ws))
	for _, risk := range ws {
		if status := cfg.Status(); status != nil && risk.Status != *status {
			continue
		}
		risks = append(risks, model.CopyRisk(risk))
	}

	sort.Slice(risks, func(i, j int) bool {
		return risks[i].ID < risks[j].ID
	})

	return risks, nil
}

func (r *riskRepository) Update(ctx context.Context, workspaceID string, risk *model.Risk) (*model.Risk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.risks[workspaceID][risk.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", risk.ID))
	}

	updated := model.CopyRisk(risk)
	updated.Code = existing.Code
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.risks[workspaceID][updated.ID] = updated
	return model.CopyRisk(updated), nil
}

func (r *riskRepository) Delete(ctx context.Context, workspaceID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.risks[workspaceID][id]; !exists {
		return goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
	}

	delete(r.risks[workspaceID], id)
	r.treatments.deleteByRisk(workspaceID, id)
	r.reviews.deleteByRisk(workspaceID, id)
	return nil
}
