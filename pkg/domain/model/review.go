package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// ReviewID is a UUID-based identifier for a review entry
type ReviewID string

// NewReviewID generates a new UUID v4 ReviewID
func NewReviewID() ReviewID {
	return ReviewID(uuid.New().String())
}

// Review is an immutable snapshot of a risk assessment recorded at review
// time. RiskLevel is computed when the entry is written and never again.
type Review struct {
	ID                  ReviewID
	RiskID              int64
	Probability         int
	Impact              int
	RiskLevel           types.RiskLevel
	ResidualProbability int
	ResidualImpact      int
	Status              types.RiskStatus
	ReviewNotes         string
	ReviewerID          string
	CreatedAt           time.Time
}

// ResidualLevel returns the residual level of the snapshot
func (r *Review) ResidualLevel() (types.RiskLevel, bool) {
	return types.ResidualLevelOf(r.ResidualProbability, r.ResidualImpact)
}
