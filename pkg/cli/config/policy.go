package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/service/policy"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Policy struct {
	file     string
	allowAll bool
}

func (x *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy-file",
			Usage:       "Rego policy file defining data.riskledger.authz.allow (built-in role policy if empty)",
			Category:    "Policy",
			Destination: &x.file,
			Sources:     cli.EnvVars("RISKLEDGER_POLICY_FILE"),
		},
		&cli.BoolFlag{
			Name:        "policy-allow-all",
			Usage:       "Permit every operation (development only)",
			Category:    "Policy",
			Destination: &x.allowAll,
			Sources:     cli.EnvVars("RISKLEDGER_POLICY_ALLOW_ALL"),
		},
	}
}

func (x Policy) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("file", x.file),
		slog.Bool("allow_all", x.allowAll),
	)
}

// Configure compiles the policy
func (x *Policy) Configure(ctx context.Context) (interfaces.PolicyEvaluator, error) {
	if x.allowAll {
		if x.file != "" {
			return nil, goerr.New("--policy-allow-all and --policy-file are mutually exclusive")
		}
		logging.Default().Warn("Permission checks are disabled (--policy-allow-all)")
		return policy.AllowAll{}, nil
	}

	if x.file == "" {
		evaluator, err := policy.NewDefault(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to compile built-in policy")
		}
		return evaluator, nil
	}

	evaluator, err := policy.NewFromFile(ctx, x.file)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile policy file", goerr.V("path", x.file))
	}
	logging.Default().Info("Loaded policy", "path", x.file)
	return evaluator, nil
}
