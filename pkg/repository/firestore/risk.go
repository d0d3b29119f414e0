package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// riskDoc is the Firestore document representation of model.Risk.
// RiskLevel and ResidualLevel are derived on every write for querying.
type riskDoc struct {
	ID                  int64      `firestore:"ID"`
	Code                string     `firestore:"Code"`
	Title               string     `firestore:"Title"`
	Description         string     `firestore:"Description"`
	Category            string     `firestore:"Category"`
	Probability         int        `firestore:"Probability"`
	Impact              int        `firestore:"Impact"`
	RiskLevel           string     `firestore:"RiskLevel"`
	ResidualProbability int        `firestore:"ResidualProbability"`
	ResidualImpact      int        `firestore:"ResidualImpact"`
	ResidualLevel       string     `firestore:"ResidualLevel"`
	Treatment           string     `firestore:"Treatment"`
	TreatmentPlan       string     `firestore:"TreatmentPlan"`
	Status              string     `firestore:"Status"`
	MonitoringFrequency string     `firestore:"MonitoringFrequency"`
	LastReviewDate      *time.Time `firestore:"LastReviewDate"`
	NextReviewDate      *time.Time `firestore:"NextReviewDate"`
	RiskAppetite        string     `firestore:"RiskAppetite"`
	ResponsibleID       string     `firestore:"ResponsibleID"`
	CreatedBy           string     `firestore:"CreatedBy"`
	CreatedAt           time.Time  `firestore:"CreatedAt"`
	UpdatedAt           time.Time  `firestore:"UpdatedAt"`
}

func toRiskDoc(r *model.Risk) *riskDoc {
	residual, _ := r.ResidualLevel()
	return &riskDoc{
		ID:                  r.ID,
		Code:                r.Code,
		Title:               r.Title,
		Description:         r.Description,
		Category:            string(r.Category),
		Probability:         r.Probability,
		Impact:              r.Impact,
		RiskLevel:           string(r.RiskLevel()),
		ResidualProbability: r.ResidualProbability,
		ResidualImpact:      r.ResidualImpact,
		ResidualLevel:       string(residual),
		Treatment:           string(r.Treatment),
		TreatmentPlan:       r.TreatmentPlan,
		Status:              string(r.Status),
		MonitoringFrequency: string(r.MonitoringFrequency),
		LastReviewDate:      r.LastReviewDate,
		NextReviewDate:      r.NextReviewDate,
		RiskAppetite:        r.RiskAppetite,
		ResponsibleID:       r.ResponsibleID,
		CreatedBy:           r.CreatedBy,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func fromRiskDoc(d *riskDoc) *model.Risk {
	return &model.Risk{
		ID:                  d.ID,
		Code:                d.Code,
		Title:               d.Title,
		Description:         d.Description,
		Category:            types.Category(d.Category),
		Probability:         d.Probability,
		Impact:              d.Impact,
		ResidualProbability: d.ResidualProbability,
		ResidualImpact:      d.ResidualImpact,
		Treatment:           types.TreatmentStrategy(d.Treatment),
		TreatmentPlan:       d.TreatmentPlan,
		Status:              types.RiskStatus(d.Status),
		MonitoringFrequency: types.MonitoringFrequency(d.MonitoringFrequency),
		LastReviewDate:      d.LastReviewDate,
		NextReviewDate:      d.NextReviewDate,
		RiskAppetite:        d.RiskAppetite,
		ResponsibleID:       d.ResponsibleID,
		CreatedBy:           d.CreatedBy,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

type riskRepository struct {
	client *firestore.Client
	paths  *paths
}

func (r *riskRepository) Create(ctx context.Context, workspaceID string, risk *model.Risk) (*model.Risk, error) {
	counterRef := r.paths.counter(workspaceID, riskCounter)

	var created *model.Risk
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		id, err := nextID(tx, counterRef)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		created = model.CopyRisk(risk)
		created.ID = id
		created.Code = model.RiskCode(id)
		created.CreatedAt = now
		created.UpdatedAt = now

		if err := storeCounter(tx, counterRef, id); err != nil {
			return goerr.Wrap(err, "failed to store risk counter")
		}
		return tx.Create(r.paths.risk(workspaceID, id), toRiskDoc(created))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create risk", goerr.V("workspace_id", workspaceID))
	}

	return created, nil
}

func (r *riskRepository) Get(ctx context.Context, workspaceID string, id int64) (*model.Risk, error) {
	docSnap, err := r.paths.risk(workspaceID, id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	var d riskDoc
	if err := docSnap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode risk", goerr.V("id", id))
	}

	return fromRiskDoc(&d), nil
}

func (r *riskRepository) List(ctx context.Context, workspaceID string, opts ...interfaces.ListRiskOption) ([]*model.Risk, error) {
	cfg := interfaces.BuildListRiskConfig(opts...)

	query := r.paths.risks(workspaceID).Query
	if s := cfg.Status(); s != nil {
		query = query.Where("Status", "==", string(*s))
	}
	iter := query.OrderBy("ID", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	risks := make([]*model.Risk, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate risks")
		}

		var d riskDoc
		if err := docSnap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode risk", goerr.V("doc_id", docSnap.Ref.ID))
		}

		risks = append(risks, fromRiskDoc(&d))
	}

	return risks, nil
}

func (r *riskRepository) Update(ctx context.Context, workspaceID string, risk *model.Risk) (*model.Risk, error) {
	docRef := r.paths.risk(workspaceID, risk.ID)

	var updated *model.Risk
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", risk.ID))
			}
			return goerr.Wrap(err, "failed to check risk existence", goerr.V("id", risk.ID))
		}

		var existing riskDoc
		if err := docSnap.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to decode risk", goerr.V("id", risk.ID))
		}

		updated = model.CopyRisk(risk)
		updated.Code = existing.Code
		updated.CreatedBy = existing.CreatedBy
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = time.Now().UTC()

		return tx.Set(docRef, toRiskDoc(updated))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update risk", goerr.V("id", risk.ID))
	}

	return updated, nil
}

// cascadeBatchSize keeps each cascade transaction below Firestore's
// 500 writes per commit
const cascadeBatchSize = 400

func (r *riskRepository) Delete(ctx context.Context, workspaceID string, id int64) error {
	docRef := r.paths.risk(workspaceID, id)

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to check risk existence", goerr.V("id", id))
	}

	// Children go first in bounded batches. The risk itself is removed last
	// together with anything written meanwhile.
	for _, coll := range []*firestore.CollectionRef{
		r.paths.treatments(workspaceID, id),
		r.paths.reviews(workspaceID, id),
	} {
		if err := r.deleteChildren(ctx, coll); err != nil {
			return goerr.Wrap(err, "failed to delete risk", goerr.V("id", id))
		}
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := r.paths.requireRisk(tx, workspaceID, id); err != nil {
			return err
		}

		treatments, err := tx.Documents(r.paths.treatments(workspaceID, id).Limit(cascadeBatchSize)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to list treatments for cascade", goerr.V("id", id))
		}
		reviews, err := tx.Documents(r.paths.reviews(workspaceID, id).Limit(cascadeBatchSize)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to list reviews for cascade", goerr.V("id", id))
		}
		if len(treatments)+len(reviews) >= cascadeBatchSize {
			return goerr.New("risk is receiving children faster than they can be deleted", goerr.V("id", id))
		}

		for _, snap := range append(treatments, reviews...) {
			if err := tx.Delete(snap.Ref); err != nil {
				return goerr.Wrap(err, "failed to delete child document", goerr.V("path", snap.Ref.Path))
			}
		}
		return tx.Delete(docRef)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete risk", goerr.V("id", id))
	}

	return nil
}

func (r *riskRepository) deleteChildren(ctx context.Context, coll *firestore.CollectionRef) error {
	for {
		var deleted int
		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			snaps, err := tx.Documents(coll.Limit(cascadeBatchSize)).GetAll()
			if err != nil {
				return goerr.Wrap(err, "failed to list child documents", goerr.V("collection", coll.Path))
			}
			for _, snap := range snaps {
				if err := tx.Delete(snap.Ref); err != nil {
					return goerr.Wrap(err, "failed to delete child document", goerr.V("path", snap.Ref.Path))
				}
			}
			deleted = len(snaps)
			return nil
		})
		if err != nil {
			return err
		}
		if deleted < cascadeBatchSize {
			return nil
		}
	}
}
