package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

const treatmentColumns = `id, risk_id, description, status, control_implementation_id,
created_by, created_at, updated_at`

type treatmentRepository struct {
	db *sql.DB
}

func scanTreatment(row rowScanner) (*model.Treatment, error) {
	var t model.Treatment
	var status string
	if err := row.Scan(&t.ID, &t.RiskID, &t.Description, &status, &t.ControlImplementationID,
		&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = types.TreatmentStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func (r *treatmentRepository) Create(ctx context.Context, workspaceID string, treatment *model.Treatment) (*model.Treatment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer rollback(tx)

	id, err := nextID(ctx, tx, workspaceID, "treatment")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created := *treatment
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now

	const q = `INSERT INTO risk_treatments (workspace_id, id, risk_id, description, status,
control_implementation_id, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := tx.ExecContext(ctx, q, workspaceID, created.ID, created.RiskID, created.Description,
		string(created.Status), created.ControlImplementationID, created.CreatedBy,
		created.CreatedAt, created.UpdatedAt); err != nil {
		if missingParent(err) {
			return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("risk_id", created.RiskID))
		}
		return nil, goerr.Wrap(err, "failed to insert treatment", goerr.V("risk_id", created.RiskID))
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit treatment creation")
	}
	return &created, nil
}

func (r *treatmentRepository) Get(ctx context.Context, workspaceID string, riskID, id int64) (*model.Treatment, error) {
	q := `SELECT ` + treatmentColumns + ` FROM risk_treatments
WHERE workspace_id = $1 AND risk_id = $2 AND id = $3`

	t, err := scanTreatment(r.db.QueryRowContext(ctx, q, workspaceID, riskID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "treatment not found",
				goerr.V("risk_id", riskID), goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get treatment", goerr.V("id", id))
	}
	return t, nil
}

func (r *treatmentRepository) ListByRisk(ctx context.Context, workspaceID string, riskID int64) ([]*model.Treatment, error) {
	q := `SELECT ` + treatmentColumns + ` FROM risk_treatments
WHERE workspace_id = $1 AND risk_id = $2 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, q, workspaceID, riskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list treatments", goerr.V("risk_id", riskID))
	}
	defer rows.Close()

	treatments := make([]*model.Treatment, 0)
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan treatment")
		}
		treatments = append(treatments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate treatments")
	}
	return treatments, nil
}

func (r *treatmentRepository) Update(ctx context.Context, workspaceID string, treatment *model.Treatment) (*model.Treatment, error) {
	q := `UPDATE risk_treatments SET description = $4, status = $5, control_implementation_id = $6, updated_at = $7
WHERE workspace_id = $1 AND risk_id = $2 AND id = $3
RETURNING ` + treatmentColumns

	updated, err := scanTreatment(r.db.QueryRowContext(ctx, q,
		workspaceID, treatment.RiskID, treatment.ID,
		treatment.Description, string(treatment.Status), treatment.ControlImplementationID,
		time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "treatment not found",
				goerr.V("risk_id", treatment.RiskID), goerr.V("id", treatment.ID))
		}
		return nil, goerr.Wrap(err, "failed to update treatment", goerr.V("id", treatment.ID))
	}
	return updated, nil
}

func (r *treatmentRepository) Delete(ctx context.Context, workspaceID string, riskID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM risk_treatments WHERE workspace_id = $1 AND risk_id = $2 AND id = $3`,
		workspaceID, riskID, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete treatment", goerr.V("id", id))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to read affected rows", goerr.V("id", id))
	}
	if n == 0 {
		return goerr.Wrap(ErrNotFound, "treatment not found",
			goerr.V("risk_id", riskID), goerr.V("id", id))
	}
	return nil
}
