package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/service/slack"
	"github.com/secmon-lab/riskledger/pkg/utils/async"
	"github.com/secmon-lab/riskledger/pkg/utils/metrics"
	goslack "github.com/slack-go/slack"
)

// Task names used for logs and metrics
const (
	taskAudit  = "audit"
	taskNotify = "notify"
)

// sidecar runs the best-effort follow-ups of a committed write. Nothing it
// does can fail the operation that triggered it.
type sidecar struct {
	repo       interfaces.Repository
	dispatcher async.Dispatcher
	slack      slack.Service
	metrics    *metrics.Metrics
	baseURL    string
	now        func() time.Time
}

func (s *sidecar) audit(ctx context.Context, actor *auth.Actor, action types.AuditAction, entityType types.EntityType, entityID string, metadata map[string]any) {
	s.metrics.IncrementRiskMutation(action.String())

	entry := &model.AuditEntry{
		ID:          model.NewAuditID(),
		WorkspaceID: actor.WorkspaceID,
		UserID:      actor.UserID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Metadata:    metadata,
		IPAddress:   actor.IPAddress,
		CreatedAt:   s.now(),
	}

	s.dispatcher.Dispatch(ctx, taskAudit, func(ctx context.Context) error {
		if err := s.repo.Audit().Put(ctx, entry); err != nil {
			return goerr.Wrap(err, "failed to write audit entry",
				goerr.V("action", action), goerr.V("entity_id", entityID))
		}
		return nil
	})
}

// notifyAssignment sends a direct message to the risk's responsible user
func (s *sidecar) notifyAssignment(ctx context.Context, actor *auth.Actor, risk *model.Risk) {
	if s.slack == nil || risk.ResponsibleID == "" {
		return
	}

	blocks, text := buildAssignmentMessage(risk, actor, s.riskURL(actor.WorkspaceID, risk.ID))
	userID := risk.ResponsibleID

	s.dispatcher.Dispatch(ctx, taskNotify, func(ctx context.Context) error {
		if _, err := s.slack.PostMessage(ctx, userID, blocks, text); err != nil {
			return goerr.Wrap(err, "failed to notify responsible user",
				goerr.V(RiskIDKey, risk.ID), goerr.V("responsible_id", userID))
		}
		return nil
	})
}

func (s *sidecar) riskURL(workspaceID string, riskID int64) string {
	if s.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/ws/%s/risks/%d", strings.TrimRight(s.baseURL, "/"), workspaceID, riskID)
}

func buildAssignmentMessage(risk *model.Risk, actor *auth.Actor, riskURL string) ([]goslack.Block, string) {
	title := slack.Text(risk.Title, slack.MaxTitleLength)
	text := fmt.Sprintf("You are now responsible for risk %s: %s", risk.Code, title)

	blocks := []goslack.Block{
		goslack.NewHeaderBlock(
			goslack.NewTextBlockObject(goslack.PlainTextType, "Risk assigned: "+risk.Code, true, false),
		),
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, "*"+title+"*", false, false),
			[]*goslack.TextBlockObject{
				goslack.NewTextBlockObject(goslack.MarkdownType, "*Level*\n"+risk.RiskLevel().String(), false, false),
				goslack.NewTextBlockObject(goslack.MarkdownType, "*Status*\n"+risk.Status.String(), false, false),
				goslack.NewTextBlockObject(goslack.MarkdownType, "*Category*\n"+risk.Category.String(), false, false),
				goslack.NewTextBlockObject(goslack.MarkdownType, fmt.Sprintf("*Score*\n%d", risk.Score()), false, false),
			},
			nil,
		),
	}

	contextParts := []string{"Assigned by " + slack.Mention(actor.UserID)}
	if risk.NextReviewDate != nil {
		contextParts = append(contextParts, "Next review: "+risk.NextReviewDate.Format(time.DateOnly))
	}
	if riskURL != "" {
		contextParts = append(contextParts, fmt.Sprintf(":link: <%s|Open>", riskURL))
	}
	blocks = append(blocks, goslack.NewContextBlock("",
		goslack.NewTextBlockObject(goslack.MarkdownType, strings.Join(contextParts, "  |  "), false, false),
	))

	return blocks, text
}
