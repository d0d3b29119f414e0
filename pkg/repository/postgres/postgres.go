package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
)

// ErrNotFound is returned (wrapped) when a row does not exist in the workspace
var ErrNotFound = interfaces.ErrNotFound

type Postgres struct {
	db        *sql.DB
	risk      *riskRepository
	treatment *treatmentRepository
	review    *reviewRepository
	audit     *auditRepository
}

var _ interfaces.Repository = &Postgres{}

// New opens a connection pool with the pgx driver and verifies it. The
// schema must already exist (see Migrate).
func New(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping postgres")
	}

	return &Postgres{
		db:        db,
		risk:      &riskRepository{db: db},
		treatment: &treatmentRepository{db: db},
		review:    &reviewRepository{db: db},
		audit:     &auditRepository{db: db},
	}, nil
}

func (p *Postgres) Risk() interfaces.RiskRepository {
	return p.risk
}

func (p *Postgres) Treatment() interfaces.TreatmentRepository {
	return p.treatment
}

func (p *Postgres) Review() interfaces.ReviewRepository {
	return p.review
}

func (p *Postgres) Audit() interfaces.AuditRepository {
	return p.audit
}

func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// nextID increments the named per-workspace counter inside tx
func nextID(ctx context.Context, tx *sql.Tx, workspaceID, name string) (int64, error) {
	const q = `INSERT INTO counters (workspace_id, name, value) VALUES ($1, $2, 1)
ON CONFLICT (workspace_id, name) DO UPDATE SET value = counters.value + 1
RETURNING value`

	var id int64
	if err := tx.QueryRowContext(ctx, q, workspaceID, name).Scan(&id); err != nil {
		return 0, goerr.Wrap(err, "failed to increment counter",
			goerr.V("workspace_id", workspaceID), goerr.V("counter", name))
	}
	return id, nil
}

// foreignKeyViolation is the SQLSTATE of a row whose parent does not exist
const foreignKeyViolation = "23503"

// missingParent reports whether err means the parent risk of a child row is
// gone, which happens when the risk is deleted concurrently
func missingParent(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// rollback is deferred after BeginTx; it is a no-op once the tx is committed
func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
