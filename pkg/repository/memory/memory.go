package memory

import (
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
)

// ErrNotFound is returned (wrapped) when a row does not exist in the workspace
var ErrNotFound = interfaces.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	risk      *riskRepository
	treatment *treatmentRepository
	review    *reviewRepository
	audit     *auditRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	treatmentRepo := newTreatmentRepository()
	reviewRepo := newReviewRepository()
	riskRepo := newRiskRepository(treatmentRepo, reviewRepo)
	treatmentRepo.risks = riskRepo
	reviewRepo.risks = riskRepo

	return &Memory{
		risk:      riskRepo,
		treatment: treatmentRepo,
		review:    reviewRepo,
		audit:     newAuditRepository(),
	}
}

func (m *Memory) Risk() interfaces.RiskRepository {
	return m.risk
}

func (m *Memory) Treatment() interfaces.TreatmentRepository {
	return m.treatment
}

func (m *Memory) Review() interfaces.ReviewRepository {
	return m.review
}

func (m *Memory) Audit() interfaces.AuditRepository {
	return m.audit
}

// Close is a no-op for the in-memory backend
func (m *Memory) Close() error {
	return nil
}
