package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// AppConfig holds the --config flag and the settings loaded from it
type AppConfig struct {
	path string
}

// FileConfig is the TOML document
type FileConfig struct {
	Workspaces []WorkspaceConfig `toml:"workspace"`
	Review     ReviewConfig      `toml:"review"`
}

// WorkspaceConfig represents one tenant
type WorkspaceConfig struct {
	ID             string `toml:"id"`
	Name           string `toml:"name"`
	SlackChannelID string `toml:"slack_channel_id"`
}

// ReviewConfig controls the overdue review digest
type ReviewConfig struct {
	// OverdueDigestInterval is a Go duration string such as "24h". Empty
	// disables the digest.
	OverdueDigestInterval string `toml:"overdue_digest_interval"`
}

func (a *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to a TOML config file or a directory of them",
			Value:       "./riskledger.toml",
			Sources:     cli.EnvVars("RISKLEDGER_CONFIG"),
			Destination: &a.path,
		},
	}
}

// Path returns the configured path
func (a *AppConfig) Path() string {
	return a.path
}

// Configure loads the config and builds the workspace registry
func (a *AppConfig) Configure() (*FileConfig, *model.WorkspaceRegistry, error) {
	cfg, err := Load(a.path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cfg.Registry(), nil
}

// Validate checks a single workspace entry
func (w *WorkspaceConfig) Validate() error {
	if err := types.WorkspaceID(w.ID).Validate(); err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid workspace ID",
			goerr.V(WorkspaceIDKey, w.ID), goerr.V("reason", err.Error()))
	}
	if strings.TrimSpace(w.Name) == "" {
		return goerr.Wrap(ErrMissingName, "workspace name is required", goerr.V(WorkspaceIDKey, w.ID))
	}
	return nil
}

// Validate checks the whole document
func (c *FileConfig) Validate() error {
	if len(c.Workspaces) == 0 {
		return goerr.Wrap(ErrNoWorkspace, "no [[workspace]] entry")
	}

	seen := make(map[string]bool, len(c.Workspaces))
	for _, ws := range c.Workspaces {
		if err := ws.Validate(); err != nil {
			return err
		}
		if seen[ws.ID] {
			return goerr.Wrap(ErrDuplicateWorkspaceID, "workspace ID is defined twice", goerr.V(WorkspaceIDKey, ws.ID))
		}
		seen[ws.ID] = true
	}

	if _, err := c.Review.Interval(); err != nil {
		return err
	}
	return nil
}

// Interval parses OverdueDigestInterval. Zero means disabled.
func (r ReviewConfig) Interval() (time.Duration, error) {
	if r.OverdueDigestInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.OverdueDigestInterval)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidConfig, "invalid review.overdue_digest_interval",
			goerr.V("value", r.OverdueDigestInterval), goerr.V("reason", err.Error()))
	}
	if d < 0 {
		return 0, goerr.Wrap(ErrInvalidConfig, "review.overdue_digest_interval must not be negative",
			goerr.V("value", r.OverdueDigestInterval))
	}
	return d, nil
}

// Registry converts the workspace entries in file order
func (c *FileConfig) Registry() *model.WorkspaceRegistry {
	registry := model.NewWorkspaceRegistry()
	for _, ws := range c.Workspaces {
		registry.Register(&model.WorkspaceEntry{
			Workspace:      model.Workspace{ID: ws.ID, Name: ws.Name},
			SlackChannelID: ws.SlackChannelID,
		})
	}
	return registry
}

// Load reads a TOML file, or every *.toml file of a directory in name
// order, and validates the merged result.
func Load(path string) (*FileConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config path does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to stat config path", goerr.V(ConfigPathKey, path))
	}

	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.toml"))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list config directory", goerr.V(ConfigPathKey, path))
		}
		if len(files) == 0 {
			return nil, goerr.Wrap(ErrConfigNotFound, "no .toml file in config directory", goerr.V(ConfigPathKey, path))
		}
		sort.Strings(files)
	}

	merged := &FileConfig{}
	for _, file := range files {
		cfg, err := parseFile(file)
		if err != nil {
			return nil, err
		}
		merged.Workspaces = append(merged.Workspaces, cfg.Workspaces...)
		if cfg.Review.OverdueDigestInterval != "" {
			if merged.Review.OverdueDigestInterval != "" {
				return nil, goerr.Wrap(ErrInvalidConfig, "[review] is defined in more than one file", goerr.V(ConfigPathKey, file))
			}
			merged.Review = cfg.Review
		}
	}

	if err := merged.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}
	return merged, nil
}

func parseFile(path string) (*FileConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var cfg FileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path), goerr.V("reason", err.Error()))
	}
	return &cfg, nil
}
