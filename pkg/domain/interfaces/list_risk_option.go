package interfaces

import "github.com/secmon-lab/riskledger/pkg/domain/types"

// ListRiskOption is a functional option for filtering risks in List
type ListRiskOption func(*listRiskConfig)

type listRiskConfig struct {
	status *types.RiskStatus
}

// WithStatus filters risks by status
func WithStatus(status types.RiskStatus) ListRiskOption {
	return func(c *listRiskConfig) {
		c.status = &status
	}
}

// BuildListRiskConfig builds a listRiskConfig from options
func BuildListRiskConfig(opts ...ListRiskOption) *listRiskConfig {
	cfg := &listRiskConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Status returns the status filter value, or nil if not set
func (c *listRiskConfig) Status() *types.RiskStatus {
	return c.status
}
