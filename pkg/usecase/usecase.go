package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/service/slack"
	"github.com/secmon-lab/riskledger/pkg/utils/async"
	"github.com/secmon-lab/riskledger/pkg/utils/metrics"
)

type UseCases struct {
	repo       interfaces.Repository
	policy     interfaces.PolicyEvaluator
	slack      slack.Service
	dispatcher async.Dispatcher
	metrics    *metrics.Metrics
	baseURL    string
	now        func() time.Time

	Risk      *RiskUseCase
	Treatment *TreatmentUseCase
	Review    *ReviewUseCase
	Dashboard *DashboardUseCase
	Audit     *AuditUseCase
}

type Option func(*UseCases)

// WithPolicy sets the permission evaluator. Without one every operation is denied.
func WithPolicy(policy interfaces.PolicyEvaluator) Option {
	return func(uc *UseCases) {
		uc.policy = policy
	}
}

// WithSlack enables assignment notifications
func WithSlack(svc slack.Service) Option {
	return func(uc *UseCases) {
		uc.slack = svc
	}
}

// WithDispatcher sets where audit and notification tasks run
func WithDispatcher(d async.Dispatcher) Option {
	return func(uc *UseCases) {
		uc.dispatcher = d
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCases) {
		uc.metrics = m
	}
}

// WithBaseURL is used to build links in notifications
func WithBaseURL(url string) Option {
	return func(uc *UseCases) {
		uc.baseURL = url
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:       repo,
		policy:     denyAll{},
		dispatcher: async.Goroutine{},
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	c := &core{
		repo:   repo,
		policy: uc.policy,
		now:    func() time.Time { return uc.now().UTC() },
	}
	c.sidecar = &sidecar{
		repo:       repo,
		dispatcher: uc.dispatcher,
		slack:      uc.slack,
		metrics:    uc.metrics,
		baseURL:    uc.baseURL,
		now:        c.now,
	}

	uc.Risk = &RiskUseCase{core: c}
	uc.Treatment = &TreatmentUseCase{core: c}
	uc.Review = &ReviewUseCase{core: c, risk: uc.Risk}
	uc.Dashboard = &DashboardUseCase{core: c}
	uc.Audit = &AuditUseCase{core: c}

	return uc
}

// core holds what every use case needs
type core struct {
	repo    interfaces.Repository
	policy  interfaces.PolicyEvaluator
	sidecar *sidecar
	now     func() time.Time
}

// authorize runs the policy for actor. It is always the first step of an
// operation so a denied caller learns nothing about existence.
func (c *core) authorize(ctx context.Context, actor *auth.Actor, operation types.Operation) error {
	if err := actor.Validate(); err != nil {
		return goerr.Wrap(ErrPermissionDenied, "invalid actor", goerr.V("reason", err.Error()))
	}

	allowed, err := c.policy.Evaluate(ctx, actor, types.ResourceRisk, operation)
	if err != nil {
		return goerr.Wrap(err, "failed to evaluate permission",
			goerr.V(WorkspaceIDKey, actor.WorkspaceID), goerr.V(OperationKey, operation))
	}
	if !allowed {
		return goerr.Wrap(ErrPermissionDenied, "operation not permitted",
			goerr.V(WorkspaceIDKey, actor.WorkspaceID),
			goerr.V("user_id", actor.UserID),
			goerr.V(OperationKey, operation))
	}
	return nil
}

type denyAll struct{}

func (denyAll) Evaluate(ctx context.Context, actor *auth.Actor, resource types.Resource, operation types.Operation) (bool, error) {
	return false, nil
}
