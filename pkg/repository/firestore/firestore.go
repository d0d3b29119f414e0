package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned (wrapped) when a document does not exist in the workspace
var ErrNotFound = interfaces.ErrNotFound

type Firestore struct {
	client    *firestore.Client
	paths     *paths
	risk      *riskRepository
	treatment *treatmentRepository
	review    *reviewRepository
	audit     *auditRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes the root collection, e.g. for test isolation
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.paths.prefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	p := &paths{client: client}
	f := &Firestore{
		client:    client,
		paths:     p,
		risk:      &riskRepository{client: client, paths: p},
		treatment: &treatmentRepository{client: client, paths: p},
		review:    &reviewRepository{client: client, paths: p},
		audit:     &auditRepository{client: client, paths: p},
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Risk() interfaces.RiskRepository {
	return f.risk
}

func (f *Firestore) Treatment() interfaces.TreatmentRepository {
	return f.treatment
}

func (f *Firestore) Review() interfaces.ReviewRepository {
	return f.review
}

func (f *Firestore) Audit() interfaces.AuditRepository {
	return f.audit
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// paths builds document references. Layout:
//
//	workspaces/{ws}/counters/{name}
//	workspaces/{ws}/risks/{riskID}
//	workspaces/{ws}/risks/{riskID}/treatments/{treatmentID}
//	workspaces/{ws}/risks/{riskID}/reviews/{reviewID}
//	workspaces/{ws}/audit_logs/{entryID}
type paths struct {
	client *firestore.Client
	prefix string
}

func (p *paths) workspace(workspaceID string) *firestore.DocumentRef {
	root := "workspaces"
	if p.prefix != "" {
		root = p.prefix + "_workspaces"
	}
	return p.client.Collection(root).Doc(workspaceID)
}

func (p *paths) counter(workspaceID, name string) *firestore.DocumentRef {
	return p.workspace(workspaceID).Collection("counters").Doc(name)
}

func (p *paths) risks(workspaceID string) *firestore.CollectionRef {
	return p.workspace(workspaceID).Collection("risks")
}

func (p *paths) risk(workspaceID string, id int64) *firestore.DocumentRef {
	return p.risks(workspaceID).Doc(fmt.Sprintf("%d", id))
}

func (p *paths) treatments(workspaceID string, riskID int64) *firestore.CollectionRef {
	return p.risk(workspaceID, riskID).Collection("treatments")
}

func (p *paths) reviews(workspaceID string, riskID int64) *firestore.CollectionRef {
	return p.risk(workspaceID, riskID).Collection("reviews")
}

// requireRisk reads the parent risk inside tx, so a concurrent Delete of the
// risk conflicts with the child write instead of leaving an orphan
func (p *paths) requireRisk(tx *firestore.Transaction, workspaceID string, riskID int64) error {
	if _, err := tx.Get(p.risk(workspaceID, riskID)); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "risk not found", goerr.V("risk_id", riskID))
		}
		return goerr.Wrap(err, "failed to check risk existence", goerr.V("risk_id", riskID))
	}
	return nil
}

func (p *paths) auditLogs(workspaceID string) *firestore.CollectionRef {
	return p.workspace(workspaceID).Collection("audit_logs")
}
