package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	botToken string
	apiURL   string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (assignment DMs and overdue digests)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("RISKLEDGER_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Override the Slack Web API base URL",
			Category:    "Slack",
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("RISKLEDGER_SLACK_API_URL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("api-url", x.apiURL),
	)
}

// IsConfigured reports whether a bot token was given
func (x *Slack) IsConfigured() bool {
	return x.botToken != ""
}

// Configure returns the Slack service, or nil when no bot token is set
func (x *Slack) Configure() (slack.Service, error) {
	if !x.IsConfigured() {
		return nil, nil
	}

	var opts []slack.Option
	if x.apiURL != "" {
		opts = append(opts, slack.WithAPIURL(x.apiURL))
	}
	svc, err := slack.New(x.botToken, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	return svc, nil
}
