package async

import (
	"context"

	"github.com/secmon-lab/riskledger/pkg/utils/errutil"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
)

// Handler is a unit of best-effort work run after the primary write committed
type Handler func(ctx context.Context) error

// Dispatcher runs handlers outside the caller's request path
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, handler Handler)
}

// Dispatch executes handler in a new goroutine.
// The handler gets a background context that keeps the caller's logger.
func Dispatch(ctx context.Context, name string, handler Handler) {
	bgCtx := detach(ctx)

	go func() {
		_ = run(bgCtx, name, handler)
	}()
}

// Goroutine is a Dispatcher that starts one goroutine per handler
type Goroutine struct{}

func (Goroutine) Dispatch(ctx context.Context, name string, handler Handler) {
	Dispatch(ctx, name, handler)
}

// Inline runs handlers synchronously on the caller's goroutine. Failures are
// still only logged.
type Inline struct{}

func (Inline) Dispatch(ctx context.Context, name string, handler Handler) {
	_ = run(detach(ctx), name, handler)
}

func detach(ctx context.Context) context.Context {
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}
	return bgCtx
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomePanic
)

func run(ctx context.Context, name string, handler Handler) (result outcome) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(ctx).Error("panic in async handler", "task", name, "panic", r)
			result = outcomePanic
		}
	}()

	if err := handler(ctx); err != nil {
		_ = errutil.Handle(ctx, err, "async handler failed: "+name)
		return outcomeFailure
	}
	return outcomeSuccess
}
