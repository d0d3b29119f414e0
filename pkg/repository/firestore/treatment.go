package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type treatmentDoc struct {
	ID                      int64     `firestore:"ID"`
	RiskID                  int64     `firestore:"RiskID"`
	Description             string    `firestore:"Description"`
	Status                  string    `firestore:"Status"`
	ControlImplementationID string    `firestore:"ControlImplementationID"`
	CreatedBy               string    `firestore:"CreatedBy"`
	CreatedAt               time.Time `firestore:"CreatedAt"`
	UpdatedAt               time.Time `firestore:"UpdatedAt"`
}

func toTreatmentDoc(t *model.Treatment) *treatmentDoc {
	return &treatmentDoc{
		ID:                      t.ID,
		RiskID:                  t.RiskID,
		Description:             t.Description,
		Status:                  string(t.Status),
		ControlImplementationID: t.ControlImplementationID,
		CreatedBy:               t.CreatedBy,
		CreatedAt:               t.CreatedAt,
		UpdatedAt:               t.UpdatedAt,
	}
}

func fromTreatmentDoc(d *treatmentDoc) *model.Treatment {
	return &model.Treatment{
		ID:                      d.ID,
		RiskID:                  d.RiskID,
		Description:             d.Description,
		Status:                  types.TreatmentStatus(d.Status),
		ControlImplementationID: d.ControlImplementationID,
		CreatedBy:               d.CreatedBy,
		CreatedAt:               d.CreatedAt,
		UpdatedAt:               d.UpdatedAt,
	}
}

type treatmentRepository struct {
	client *firestore.Client
	paths  *paths
}

func (r *treatmentRepository) doc(workspaceID string, riskID, id int64) *firestore.DocumentRef {
	return r.paths.treatments(workspaceID, riskID).Doc(fmt.Sprintf("%d", id))
}

func (r *treatmentRepository) Create(ctx context.Context, workspaceID string, treatment *model.Treatment) (*model.Treatment, error) {
	counterRef := r.paths.counter(workspaceID, treatmentCounter)

	var created *model.Treatment
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := r.paths.requireRisk(tx, workspaceID, treatment.RiskID); err != nil {
			return err
		}

		id, err := nextID(tx, counterRef)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		c := *treatment
		c.ID = id
		c.CreatedAt = now
		c.UpdatedAt = now
		created = &c

		if err := storeCounter(tx, counterRef, id); err != nil {
			return goerr.Wrap(err, "failed to store treatment counter")
		}
		return tx.Create(r.doc(workspaceID, c.RiskID, id), toTreatmentDoc(created))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create treatment", goerr.V("risk_id", treatment.RiskID))
	}

	return created, nil
}

func (r *treatmentRepository) Get(ctx context.Context, workspaceID string, riskID, id int64) (*model.Treatment, error) {
	docSnap, err := r.doc(workspaceID, riskID, id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "treatment not found",
				goerr.V("risk_id", riskID), goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get treatment", goerr.V("id", id))
	}

	var d treatmentDoc
	if err := docSnap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode treatment", goerr.V("id", id))
	}

	return fromTreatmentDoc(&d), nil
}

func (r *treatmentRepository) ListByRisk(ctx context.Context, workspaceID string, riskID int64) ([]*model.Treatment, error) {
	iter := r.paths.treatments(workspaceID, riskID).OrderBy("ID", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	treatments := make([]*model.Treatment, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate treatments", goerr.V("risk_id", riskID))
		}

		var d treatmentDoc
		if err := docSnap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode treatment", goerr.V("doc_id", docSnap.Ref.ID))
		}

		treatments = append(treatments, fromTreatmentDoc(&d))
	}

	return treatments, nil
}

func (r *treatmentRepository) Update(ctx context.Context, workspaceID string, treatment *model.Treatment) (*model.Treatment, error) {
	docRef := r.doc(workspaceID, treatment.RiskID, treatment.ID)

	var updated *model.Treatment
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "treatment not found",
					goerr.V("risk_id", treatment.RiskID), goerr.V("id", treatment.ID))
			}
			return goerr.Wrap(err, "failed to check treatment existence", goerr.V("id", treatment.ID))
		}

		var existing treatmentDoc
		if err := docSnap.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to decode treatment", goerr.V("id", treatment.ID))
		}

		u := *treatment
		u.CreatedBy = existing.CreatedBy
		u.CreatedAt = existing.CreatedAt
		u.UpdatedAt = time.Now().UTC()
		updated = &u

		return tx.Set(docRef, toTreatmentDoc(updated))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update treatment", goerr.V("id", treatment.ID))
	}

	return updated, nil
}

func (r *treatmentRepository) Delete(ctx context.Context, workspaceID string, riskID, id int64) error {
	docRef := r.doc(workspaceID, riskID, id)

	// Check if document exists
	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "treatment not found",
				goerr.V("risk_id", riskID), goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to check treatment existence", goerr.V("id", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete treatment", goerr.V("id", id))
	}

	return nil
}
