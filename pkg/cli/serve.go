package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/riskledger/pkg/cli/config"
	httpctrl "github.com/secmon-lab/riskledger/pkg/controller/http"
	"github.com/secmon-lab/riskledger/pkg/service/worker"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/secmon-lab/riskledger/pkg/utils/metrics"
)

const shutdownTimeout = 10 * time.Second

func cmdServe(version string) *cli.Command {
	var addr string
	var baseURL string
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var slackCfg config.Slack
	var sentryCfg config.Sentry
	var policyCfg config.Policy
	var sidecarCfg config.Sidecar

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("RISKLEDGER_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Base URL of the web application, used for links in Slack messages (e.g., https://your-domain.com)",
			Sources:     cli.EnvVars("RISKLEDGER_BASE_URL"),
			Destination: &baseURL,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, sidecarCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			flushSentry, err := sentryCfg.Configure(version)
			if err != nil {
				return err
			}
			defer flushSentry()

			fileCfg, registry, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}
			digestInterval, err := fileCfg.Review.Interval()
			if err != nil {
				return err
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			evaluator, err := policyCfg.Configure(ctx)
			if err != nil {
				return err
			}

			m := metrics.New()
			queue, err := sidecarCfg.Configure(m)
			if err != nil {
				return err
			}
			queue.Start()

			ucOpts := []usecase.Option{
				usecase.WithPolicy(evaluator),
				usecase.WithDispatcher(queue),
				usecase.WithMetrics(m),
				usecase.WithBaseURL(baseURL),
			}

			slackSvc, err := slackCfg.Configure()
			if err != nil {
				return err
			}
			if slackSvc != nil {
				ucOpts = append(ucOpts, usecase.WithSlack(slackSvc))
				logger.Info("Slack notifications enabled")
			} else {
				logger.Info("Slack Bot Token not configured, assignment notifications and overdue digests are disabled")
			}

			uc := usecase.New(repo, ucOpts...)

			var digestWorker *worker.OverdueDigestWorker
			if slackSvc != nil && digestInterval > 0 {
				digestWorker = worker.NewOverdueDigestWorker(repo, slackSvc, registry, digestInterval,
					worker.WithMetrics(m),
					worker.WithBaseURL(baseURL),
				)
				if err := digestWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start overdue digest worker")
				}
			}

			server := &http.Server{
				Addr: addr,
				Handler: httpctrl.New(uc,
					httpctrl.WithWorkspaceRegistry(registry),
					httpctrl.WithMetrics(m),
				),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server",
					"addr", addr,
					"workspaces", len(registry.List()),
					"repository", repoCfg,
					"policy", policyCfg,
					"sidecar", sidecarCfg,
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			var serveErr error
			select {
			case serveErr = <-errCh:
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)
			}

			if digestWorker != nil {
				digestWorker.Stop()
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil && serveErr == nil {
				serveErr = goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			// Drain side effects of requests that completed before shutdown
			if err := queue.Stop(shutdownCtx); err != nil {
				logger.Warn("sidecar queue did not drain", "error", err, "pending", queue.Len())
			}

			if serveErr == nil {
				logger.Info("Server shutdown completed")
			}
			return serveErr
		},
	}
}
