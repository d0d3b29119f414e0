package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
)

type reviewRepository struct {
	mu sync.RWMutex
	// workspaceID -> riskID -> entries in append order
	reviews map[string]map[int64][]*model.Review

	risks *riskRepository
}

func newReviewRepository() *reviewRepository {
	return &reviewRepository{
		reviews: make(map[string]map[int64][]*model.Review),
	}
}

func copyReview(r *model.Review) *model.Review {
	c := *r
	return &c
}

func (r *reviewRepository) Append(ctx context.Context, workspaceID string, review *model.Review) (*model.Review, error) {
	release, err := r.risks.holdParent(workspaceID, review.RiskID)
	if err != nil {
		return nil, err
	}
	defer release()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reviews[workspaceID]; !exists {
		r.reviews[workspaceID] = make(map[int64][]*model.Review)
	}

	created := copyReview(review)
	if created.ID == "" {
		created.ID = model.NewReviewID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	r.reviews[workspaceID][created.RiskID] = append(r.reviews[workspaceID][created.RiskID], created)
	return copyReview(created), nil
}

func (r *reviewRepository) ListByRisk(ctx context.Context, workspaceID string, riskID int64) ([]*model.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.reviews[workspaceID][riskID]
	reviews := make([]*model.Review, 0, len(stored))
	for _, review := range stored {
		reviews = append(reviews, copyReview(review))
	}

	// Stable keeps append order for equal timestamps
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.Before(reviews[j].CreatedAt)
	})

	return reviews, nil
}

func (r *reviewRepository) deleteByRisk(workspaceID string, riskID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.reviews[workspaceID], riskID)
}
