package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/service/slack"
	"github.com/secmon-lab/riskledger/pkg/utils/errutil"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/secmon-lab/riskledger/pkg/utils/metrics"
	goslack "github.com/slack-go/slack"
)

// maxDigestItems caps the risks listed in one digest message
const maxDigestItems = 20

// OverdueDigestWorker periodically posts the overdue review list of each
// workspace to the workspace's Slack channel.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Workspaces without a channel are skipped
type OverdueDigestWorker struct {
	repo     interfaces.Repository
	slack    slack.Service
	registry *model.WorkspaceRegistry
	interval time.Duration
	metrics  *metrics.Metrics
	baseURL  string
	now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// DigestOption configures an OverdueDigestWorker
type DigestOption func(*OverdueDigestWorker)

func WithMetrics(m *metrics.Metrics) DigestOption {
	return func(w *OverdueDigestWorker) {
		w.metrics = m
	}
}

// WithBaseURL makes risk codes in the digest link to the UI
func WithBaseURL(url string) DigestOption {
	return func(w *OverdueDigestWorker) {
		w.baseURL = strings.TrimRight(url, "/")
	}
}

func WithClock(now func() time.Time) DigestOption {
	return func(w *OverdueDigestWorker) {
		w.now = now
	}
}

// NewOverdueDigestWorker creates the digest worker
func NewOverdueDigestWorker(repo interfaces.Repository, slackSvc slack.Service, registry *model.WorkspaceRegistry, interval time.Duration, opts ...DigestOption) *OverdueDigestWorker {
	w := &OverdueDigestWorker{
		repo:     repo,
		slack:    slackSvc,
		registry: registry,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the background loop. The first digest is sent after one
// interval, not at startup.
func (w *OverdueDigestWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("digest interval must be positive", goerr.V("interval", w.interval))
	}

	logging.Default().Info("Overdue digest worker starting", "interval", w.interval.String())
	go w.run(ctx)
	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *OverdueDigestWorker) Stop() {
	logging.Default().Info("Overdue digest worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Overdue digest worker stopped")
}

func (w *OverdueDigestWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				_ = errutil.Handle(ctx, err, "overdue digest failed (will retry next interval)")
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Overdue digest worker context cancelled")
			return
		}
	}
}

// RunOnce sends one digest per configured workspace. A failing workspace
// does not stop the others; all failures are joined.
func (w *OverdueDigestWorker) RunOnce(ctx context.Context) error {
	now := w.now().UTC()
	var errs []error

	for _, entry := range w.registry.List() {
		if entry.SlackChannelID == "" {
			continue
		}
		if err := w.digest(ctx, entry, now); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (w *OverdueDigestWorker) digest(ctx context.Context, entry *model.WorkspaceEntry, now time.Time) error {
	wsID := entry.Workspace.ID

	risks, err := w.repo.Risk().List(ctx, wsID)
	if err != nil {
		return goerr.Wrap(err, "failed to list risks", goerr.V("workspace_id", wsID))
	}

	overdue := model.OverdueReviews(risks, now)
	if len(overdue) == 0 {
		logging.Default().Debug("No overdue reviews", "workspace_id", wsID)
		return nil
	}

	blocks, text := buildDigestMessage(entry.Workspace, overdue, now, w.baseURL)
	if _, err := w.slack.PostMessage(ctx, entry.SlackChannelID, blocks, text); err != nil {
		return goerr.Wrap(err, "failed to post overdue digest",
			goerr.V("workspace_id", wsID), goerr.V("channel_id", entry.SlackChannelID))
	}

	w.metrics.IncrementOverdueDigest()
	logging.Default().Info("Overdue digest posted", "workspace_id", wsID, "count", len(overdue))
	return nil
}

func buildDigestMessage(ws model.Workspace, overdue []*model.Risk, now time.Time, baseURL string) ([]goslack.Block, string) {
	name := ws.Name
	if name == "" {
		name = ws.ID
	}
	text := fmt.Sprintf("%d risk review(s) overdue in %s", len(overdue), name)

	blocks := []goslack.Block{
		goslack.NewHeaderBlock(
			goslack.NewTextBlockObject(goslack.PlainTextType, "Overdue risk reviews: "+name, true, false),
		),
	}

	lines := make([]string, 0, maxDigestItems+1)
	for i, r := range overdue {
		if i == maxDigestItems {
			lines = append(lines, fmt.Sprintf("_and %d more_", len(overdue)-maxDigestItems))
			break
		}

		code := r.Code
		if baseURL != "" {
			code = fmt.Sprintf("<%s/ws/%s/risks/%d|%s>", baseURL, ws.ID, r.ID, r.Code)
		}
		days := int(now.Sub(*r.NextReviewDate).Hours() / 24)
		line := fmt.Sprintf("• %s %s (%s), due %s, %d day(s) late",
			code, slack.Text(r.Title, slack.MaxTitleLength), r.RiskLevel(), r.NextReviewDate.Format(time.DateOnly), days)
		if r.ResponsibleID != "" {
			line += " " + slack.Mention(r.ResponsibleID)
		}
		lines = append(lines, line)
	}

	for _, section := range slack.Sections(lines) {
		blocks = append(blocks, goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, section, false, false),
			nil, nil,
		))
	}

	return blocks, text
}
