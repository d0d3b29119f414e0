package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/cli/config"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/service/slack"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var appCfg config.AppConfig
	var policyCfg config.Policy
	var slackCfg config.Slack

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate configuration and policy, and optionally the Slack channels they reference",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			fileCfg, registry, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			logger.Info("Configuration validation passed",
				"workspace_count", len(fileCfg.Workspaces),
				"overdue_digest_interval", fileCfg.Review.OverdueDigestInterval,
			)
			for _, ws := range fileCfg.Workspaces {
				logger.Info("Workspace validated",
					"id", ws.ID,
					"name", ws.Name,
					"slack_channel_id", ws.SlackChannelID,
				)
			}

			if _, err := policyCfg.Configure(ctx); err != nil {
				return goerr.Wrap(err, "policy validation failed")
			}
			logger.Info("Policy compiled", "policy", policyCfg)

			slackSvc, err := slackCfg.Configure()
			if err != nil {
				return err
			}
			if slackSvc == nil {
				logger.Info("No Slack bot token specified, skipping channel check")
				return nil
			}
			return checkSlackChannels(ctx, slackSvc, registry)
		},
	}
}

// checkSlackChannels confirms every configured digest channel is visible to the bot
func checkSlackChannels(ctx context.Context, svc slack.Service, registry *model.WorkspaceRegistry) error {
	var ids []string
	owners := make(map[string]string)
	for _, entry := range registry.List() {
		if entry.SlackChannelID == "" {
			continue
		}
		ids = append(ids, entry.SlackChannelID)
		owners[entry.SlackChannelID] = entry.Workspace.ID
	}
	if len(ids) == 0 {
		return nil
	}

	names, err := svc.GetChannelNames(ctx, ids)
	if err != nil {
		return goerr.Wrap(err, "failed to look up Slack channels")
	}

	var missing []string
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			missing = append(missing, id)
			logging.Default().Warn("Slack channel not accessible", "channel_id", id, "workspace_id", owners[id])
			continue
		}
		logging.Default().Info("Slack channel verified", "channel_id", id, "name", name, "workspace_id", owners[id])
	}
	if len(missing) > 0 {
		return goerr.New("Slack channels are not accessible", goerr.V("channel_ids", missing))
	}
	return nil
}
