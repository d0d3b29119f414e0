package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/utils/async"
	"github.com/secmon-lab/riskledger/pkg/utils/metrics"
	"github.com/urfave/cli/v3"
)

// Sidecar sizes the queue that runs audit writes and notifications
type Sidecar struct {
	queueSize int
	workers   int
}

func (x *Sidecar) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "sidecar-queue-size",
			Usage:       "Pending side-effect tasks kept before new ones are dropped",
			Category:    "Sidecar",
			Value:       async.DefaultQueueSize,
			Destination: &x.queueSize,
			Sources:     cli.EnvVars("RISKLEDGER_SIDECAR_QUEUE_SIZE"),
		},
		&cli.IntFlag{
			Name:        "sidecar-workers",
			Usage:       "Goroutines draining the side-effect queue",
			Category:    "Sidecar",
			Value:       async.DefaultWorkers,
			Destination: &x.workers,
			Sources:     cli.EnvVars("RISKLEDGER_SIDECAR_WORKERS"),
		},
	}
}

func (x Sidecar) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("queue_size", x.queueSize),
		slog.Int("workers", x.workers),
	)
}

// Configure builds the queue. The caller starts and stops it.
func (x *Sidecar) Configure(m *metrics.Metrics) (*async.Queue, error) {
	if x.queueSize <= 0 {
		return nil, goerr.New("sidecar-queue-size must be positive", goerr.V("value", x.queueSize))
	}
	if x.workers <= 0 {
		return nil, goerr.New("sidecar-workers must be positive", goerr.V("value", x.workers))
	}
	return async.NewQueue(x.queueSize, async.WithWorkers(x.workers), async.WithMetrics(m)), nil
}
