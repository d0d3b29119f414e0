package model

import (
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// Treatment is a remediation action owned by exactly one Risk
type Treatment struct {
	ID          int64
	RiskID      int64
	Description string
	Status      types.TreatmentStatus
	// ControlImplementationID optionally annotates which control this
	// treatment implements. Lookup only, no ownership.
	ControlImplementationID string
	CreatedBy               string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}
