package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

const riskColumns = `id, code, title, description, category, probability, impact,
residual_probability, residual_impact, treatment, treatment_plan, status,
monitoring_frequency, last_review_date, next_review_date, risk_appetite,
responsible_id, created_by, created_at, updated_at`

type riskRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRisk(row rowScanner) (*model.Risk, error) {
	var r model.Risk
	var category, treatment, status, freq string
	var lastReview, nextReview sql.NullTime
	err := row.Scan(
		&r.ID, &r.Code, &r.Title, &r.Description, &category, &r.Probability, &r.Impact,
		&r.ResidualProbability, &r.ResidualImpact, &treatment, &r.TreatmentPlan, &status,
		&freq, &lastReview, &nextReview, &r.RiskAppetite,
		&r.ResponsibleID, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Category = types.Category(category)
	r.Treatment = types.TreatmentStrategy(treatment)
	r.Status = types.RiskStatus(status)
	r.MonitoringFrequency = types.MonitoringFrequency(freq)
	r.LastReviewDate = nullTime(lastReview)
	r.NextReviewDate = nullTime(nextReview)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

func (r *riskRepository) Create(ctx context.Context, workspaceID string, risk *model.Risk) (*model.Risk, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer rollback(tx)

	id, err := nextID(ctx, tx, workspaceID, "risk")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created := model.CopyRisk(risk)
	created.ID = id
	created.Code = model.RiskCode(id)
	created.CreatedAt = now
	created.UpdatedAt = now
	residual, _ := created.ResidualLevel()

	const q = `INSERT INTO risks (workspace_id, id, code, title, description, category,
probability, impact, risk_level, residual_probability, residual_impact, residual_level,
treatment, treatment_plan, status, monitoring_frequency, last_review_date, next_review_date,
risk_appetite, responsible_id, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`

	_, err = tx.ExecContext(ctx, q,
		workspaceID, created.ID, created.Code, created.Title, created.Description, string(created.Category),
		created.Probability, created.Impact, string(created.RiskLevel()),
		created.ResidualProbability, created.ResidualImpact, string(residual),
		string(created.Treatment), created.TreatmentPlan, string(created.Status), string(created.MonitoringFrequency),
		created.LastReviewDate, created.NextReviewDate,
		created.RiskAppetite, created.ResponsibleID, created.CreatedBy, created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert risk", goerr.V("workspace_id", workspaceID))
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit risk creation")
	}
	return created, nil
}

func (r *riskRepository) Get(ctx context.Context, workspaceID string, id int64) (*model.Risk, error) {
	q := `SELECT ` + riskColumns + ` FROM risks WHERE workspace_id = $1 AND id = $2`

	risk, err := scanRisk(r.db.QueryRowContext(ctx, q, workspaceID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}
	return risk, nil
}

func (r *riskRepository) List(ctx context.Context, workspaceID string, opts ...interfaces.ListRiskOption) ([]*model.Risk, error) {
	cfg := interfaces.BuildListRiskConfig(opts...)

	var sb strings.Builder
	sb.WriteString(`SELECT ` + riskColumns + ` FROM risks WHERE workspace_id = $1`)
	args := []any{workspaceID}
	if s := cfg.Status(); s != nil {
		sb.WriteString(` AND status = $2`)
		args = append(args, string(*s))
	}
	sb.WriteString(` ORDER BY id ASC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list risks")
	}
	defer rows.Close()

	risks := make([]*model.Risk, 0)
	for rows.Next() {
		risk, err := scanRisk(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan risk")
		}
		risks = append(risks, risk)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate risks")
	}

	return risks, nil
}

func (r *riskRepository) Update(ctx context.Context, workspaceID string, risk *model.Risk) (*model.Risk, error) {
	now := time.Now().UTC()
	residual, _ := risk.ResidualLevel()

	q := `UPDATE risks SET title = $3, description = $4, category = $5,
probability = $6, impact = $7, risk_level = $8,
residual_probability = $9, residual_impact = $10, residual_level = $11,
treatment = $12, treatment_plan = $13, status = $14, monitoring_frequency = $15,
last_review_date = $16, next_review_date = $17, risk_appetite = $18, responsible_id = $19,
updated_at = $20
WHERE workspace_id = $1 AND id = $2
RETURNING ` + riskColumns

	updated, err := scanRisk(r.db.QueryRowContext(ctx, q,
		workspaceID, risk.ID, risk.Title, risk.Description, string(risk.Category),
		risk.Probability, risk.Impact, string(risk.RiskLevel()),
		risk.ResidualProbability, risk.ResidualImpact, string(residual),
		string(risk.Treatment), risk.TreatmentPlan, string(risk.Status), string(risk.MonitoringFrequency),
		risk.LastReviewDate, risk.NextReviewDate, risk.RiskAppetite, risk.ResponsibleID,
		now,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", risk.ID))
		}
		return nil, goerr.Wrap(err, "failed to update risk", goerr.V("id", risk.ID))
	}
	return updated, nil
}

// Delete relies on ON DELETE CASCADE for treatments and reviews
func (r *riskRepository) Delete(ctx context.Context, workspaceID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM risks WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete risk", goerr.V("id", id))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to read affected rows", goerr.V("id", id))
	}
	if n == 0 {
		return goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
	}
	return nil
}
