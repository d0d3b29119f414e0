package interfaces

import (
	"context"

	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// PolicyEvaluator decides whether actor may perform operation on resource.
// Role semantics live entirely in the implementation.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, actor *auth.Actor, resource types.Resource, operation types.Operation) (bool, error)
}
