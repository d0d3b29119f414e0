package policy

import (
	"context"
	_ "embed"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// Query is the rule every policy module must define
const Query = "data.riskledger.authz.allow"

//go:embed default.rego
var defaultModule string

// Rego evaluates permissions with an OPA policy compiled once at startup
type Rego struct {
	query rego.PreparedEvalQuery
}

var _ interfaces.PolicyEvaluator = (*Rego)(nil)

// New compiles modules (file name to Rego source) and prepares the allow query
func New(ctx context.Context, modules map[string]string) (*Rego, error) {
	if len(modules) == 0 {
		return nil, goerr.New("no policy module given")
	}

	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile policy")
	}

	query, err := rego.New(
		rego.Query(Query),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare policy query")
	}

	return &Rego{query: query}, nil
}

// NewDefault uses the built-in role policy
func NewDefault(ctx context.Context) (*Rego, error) {
	return New(ctx, map[string]string{"default.rego": defaultModule})
}

// NewFromFile loads a single policy file
func NewFromFile(ctx context.Context, path string) (*Rego, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", path))
	}
	return New(ctx, map[string]string{path: string(raw)})
}

// Evaluate runs the allow rule. Undefined results count as denied.
func (r *Rego) Evaluate(ctx context.Context, actor *auth.Actor, resource types.Resource, operation types.Operation) (bool, error) {
	if actor == nil {
		return false, nil
	}

	roles := make([]any, 0, len(actor.Roles))
	for _, role := range actor.Roles {
		roles = append(roles, role)
	}

	input := map[string]any{
		"actor": map[string]any{
			"workspace_id": actor.WorkspaceID,
			"user_id":      actor.UserID,
			"roles":        roles,
			"ip_address":   actor.IPAddress,
		},
		"resource":  resource.String(),
		"operation": operation.String(),
	}

	rs, err := r.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate policy",
			goerr.V("resource", resource), goerr.V("operation", operation))
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}

	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, goerr.New("policy returned non-boolean result",
			goerr.V("value", rs[0].Expressions[0].Value))
	}
	return allowed, nil
}

// AllowAll permits every operation. Development only.
type AllowAll struct{}

var _ interfaces.PolicyEvaluator = AllowAll{}

func (AllowAll) Evaluate(ctx context.Context, actor *auth.Actor, resource types.Resource, operation types.Operation) (bool, error) {
	return true, nil
}
