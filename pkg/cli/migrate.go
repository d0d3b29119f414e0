package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/cli/config"
	"github.com/secmon-lab/riskledger/pkg/repository/postgres"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/secmon-lab/riskledger/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

const defaultFirestoreDatabase = "(default)"

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := repoCfg.Flags()
	flags = append(flags, &cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "Preview changes without applying",
		Destination: &dryRun,
	})

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes or the PostgreSQL schema",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Migrate configuration",
				"repository", repoCfg,
				"dryRun", dryRun)

			switch repoCfg.Backend() {
			case config.BackendFirestore:
				return migrateFirestore(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID(), dryRun)
			case config.BackendPostgres:
				return migratePostgres(repoCfg.PostgresDSN(), dryRun)
			case config.BackendMemory:
				logging.Default().Info("Memory backend has nothing to migrate")
				return nil
			default:
				return goerr.New("invalid repository backend", goerr.V("backend", repoCfg.Backend()))
			}
		},
	}
}

func migrateFirestore(ctx context.Context, projectID, databaseID string, dryRun bool) error {
	logger := logging.Default()
	if projectID == "" {
		return goerr.New("firestore-project-id is required when using firestore backend")
	}
	if databaseID == "" {
		databaseID = defaultFirestoreDatabase
	}

	indexConfig := getIndexConfig()

	client, err := fireconf.New(ctx, projectID, databaseID, indexConfig,
		fireconf.WithLogger(logger),
		fireconf.WithDryRun(dryRun),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer safe.Close(ctx, client)

	if !dryRun {
		logger.Info("Applying migrations")
		if err := client.Migrate(ctx); err != nil {
			return goerr.Wrap(err, "failed to apply migrations")
		}
		logger.Info("Migrations applied successfully")
		return nil
	}

	logger.Info("Dry run mode - previewing changes")
	names := make([]string, 0, len(indexConfig.Collections))
	for _, col := range indexConfig.Collections {
		names = append(names, col.Name)
	}
	current, err := client.Import(ctx, names...)
	if err != nil {
		return goerr.Wrap(err, "failed to import current indexes")
	}
	diff, err := client.DiffConfigs(current)
	if err != nil {
		return goerr.Wrap(err, "failed to diff index configuration")
	}

	if len(diff.Collections) == 0 {
		logger.Info("No changes required")
		return nil
	}

	for _, col := range diff.Collections {
		logger.Info("Migration step",
			"collection", col.Name,
			"action", col.Action,
			"indexes_to_add", len(col.IndexesToAdd),
			"indexes_to_delete", len(col.IndexesToDelete))
	}
	return nil
}

func migratePostgres(dsn string, dryRun bool) error {
	logger := logging.Default()

	if dryRun {
		status, err := postgres.MigrationVersion(dsn)
		if err != nil {
			return err
		}
		logger.Info("Current schema version", "version", status.Version, "dirty", status.Dirty)
		return nil
	}

	status, err := postgres.Migrate(dsn)
	if err != nil {
		return err
	}
	if !status.Changed {
		logger.Info("No changes required", "version", status.Version)
		return nil
	}
	logger.Info("Migrations applied successfully", "version", status.Version)
	return nil
}

// getIndexConfig returns the composite indexes the Firestore queries need.
// Collection names are the leaf collection IDs, matched as collection groups.
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "risks",
				Indexes: []fireconf.Index{
					// List with status filter: Status ASC, ID ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "Status", Order: fireconf.OrderAscending},
							{Path: "ID", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: "audit_logs",
				Indexes: []fireconf.Index{
					// ListByEntity: EntityType ASC, EntityID ASC, CreatedAt ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "EntityType", Order: fireconf.OrderAscending},
							{Path: "EntityID", Order: fireconf.OrderAscending},
							{Path: "CreatedAt", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
