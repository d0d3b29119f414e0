package slack

import (
	"context"

	"github.com/slack-go/slack"
)

// Service is the subset of the Slack API used for risk notifications
type Service interface {
	// PostMessage posts a Block Kit message and returns its timestamp.
	// channelID may be a user ID, in which case Slack delivers a direct message.
	PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error)

	// GetChannelNames resolves channel IDs to names. Unknown IDs are omitted.
	GetChannelNames(ctx context.Context, ids []string) (map[string]string, error)
}
