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

type reviewDoc struct {
	ID                  string    `firestore:"ID"`
	RiskID              int64     `firestore:"RiskID"`
	Probability         int       `firestore:"Probability"`
	Impact              int       `firestore:"Impact"`
	RiskLevel           string    `firestore:"RiskLevel"`
	ResidualProbability int       `firestore:"ResidualProbability"`
	ResidualImpact      int       `firestore:"ResidualImpact"`
	Status              string    `firestore:"Status"`
	ReviewNotes         string    `firestore:"ReviewNotes"`
	ReviewerID          string    `firestore:"ReviewerID"`
	CreatedAt           time.Time `firestore:"CreatedAt"`
}

func toReviewDoc(r *model.Review) *reviewDoc {
	return &reviewDoc{
		ID:                  string(r.ID),
		RiskID:              r.RiskID,
		Probability:         r.Probability,
		Impact:              r.Impact,
		RiskLevel:           string(r.RiskLevel),
		ResidualProbability: r.ResidualProbability,
		ResidualImpact:      r.ResidualImpact,
		Status:              string(r.Status),
		ReviewNotes:         r.ReviewNotes,
		ReviewerID:          r.ReviewerID,
		CreatedAt:           r.CreatedAt,
	}
}

func fromReviewDoc(d *reviewDoc) *model.Review {
	return &model.Review{
		ID:                  model.ReviewID(d.ID),
		RiskID:              d.RiskID,
		Probability:         d.Probability,
		Impact:              d.Impact,
		RiskLevel:           types.RiskLevel(d.RiskLevel),
		ResidualProbability: d.ResidualProbability,
		ResidualImpact:      d.ResidualImpact,
		Status:              types.RiskStatus(d.Status),
		ReviewNotes:         d.ReviewNotes,
		ReviewerID:          d.ReviewerID,
		CreatedAt:           d.CreatedAt,
	}
}

type reviewRepository struct {
	client *firestore.Client
	paths  *paths
}

func (r *reviewRepository) Append(ctx context.Context, workspaceID string, review *model.Review) (*model.Review, error) {
	created := *review
	if created.ID == "" {
		created.ID = model.NewReviewID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	// Create fails if the ID already exists, so entries are never overwritten
	docRef := r.paths.reviews(workspaceID, created.RiskID).Doc(string(created.ID))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := r.paths.requireRisk(tx, workspaceID, created.RiskID); err != nil {
			return err
		}
		return tx.Create(docRef, toReviewDoc(&created))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to append review",
			goerr.V("risk_id", created.RiskID), goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *reviewRepository) ListByRisk(ctx context.Context, workspaceID string, riskID int64) ([]*model.Review, error) {
	iter := r.paths.reviews(workspaceID, riskID).OrderBy("CreatedAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	reviews := make([]*model.Review, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate reviews", goerr.V("risk_id", riskID))
		}

		var d reviewDoc
		if err := docSnap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode review", goerr.V("doc_id", docSnap.Ref.ID))
		}

		reviews = append(reviews, fromReviewDoc(&d))
	}

	return reviews, nil
}
