package model

import (
	"fmt"
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// Risk is a tenant-scoped record of a potential adverse event and its
// current assessment. Levels are not stored on the struct; they are always
// derived from the probability/impact pairs.
type Risk struct {
	ID          int64
	Code        string // Tenant-unique human-readable code (e.g. R-001)
	Title       string
	Description string
	Category    types.Category

	Probability         int // 1-5
	Impact              int // 1-5
	ResidualProbability int // 0-5, 0 = not evaluated
	ResidualImpact      int // 0-5, 0 = not evaluated

	Treatment     types.TreatmentStrategy // Empty = not decided
	TreatmentPlan string
	Status        types.RiskStatus

	MonitoringFrequency types.MonitoringFrequency // Empty = not set
	LastReviewDate      *time.Time
	NextReviewDate      *time.Time
	RiskAppetite        string

	ResponsibleID string // Assigned user, not an owner
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RiskLevel returns the inherent level derived from Probability and Impact
func (r *Risk) RiskLevel() types.RiskLevel {
	return types.LevelOf(r.Probability, r.Impact)
}

// Score returns Probability × Impact
func (r *Risk) Score() int {
	return types.Score(r.Probability, r.Impact)
}

// ResidualLevel returns the residual level, or ok=false when the residual
// pair has not been evaluated.
func (r *Risk) ResidualLevel() (types.RiskLevel, bool) {
	return types.ResidualLevelOf(r.ResidualProbability, r.ResidualImpact)
}

// IsOverdue reports whether the next review date is set and strictly before now
func (r *Risk) IsOverdue(now time.Time) bool {
	return r.NextReviewDate != nil && r.NextReviewDate.Before(now)
}

// DeriveNextReviewDate fills NextReviewDate from LastReviewDate and
// MonitoringFrequency when both are set. It reports whether it changed the risk.
func (r *Risk) DeriveNextReviewDate() bool {
	if r.LastReviewDate == nil {
		return false
	}
	next, ok := r.MonitoringFrequency.Next(*r.LastReviewDate)
	if !ok {
		return false
	}
	r.NextReviewDate = &next
	return true
}

// RiskCode formats the tenant-unique code for the n-th risk of a workspace
func RiskCode(seq int64) string {
	return fmt.Sprintf("R-%03d", seq)
}

// RiskDetail is a risk together with its treatment ledger and review history
type RiskDetail struct {
	Risk       *Risk
	Treatments []*Treatment
	Reviews    []*Review
}

// CopyRisk returns a deep copy of r
func CopyRisk(r *Risk) *Risk {
	c := *r
	c.LastReviewDate = copyTime(r.LastReviewDate)
	c.NextReviewDate = copyTime(r.NextReviewDate)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
