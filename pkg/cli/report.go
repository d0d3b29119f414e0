package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/cli/config"
	httpctrl "github.com/secmon-lab/riskledger/pkg/controller/http"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/service/policy"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/async"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"github.com/secmon-lab/riskledger/pkg/utils/safe"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

const (
	reportActorID = "system:report"
	gcsScheme     = "gs://"
)

func cmdReport() *cli.Command {
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var workspaceID string
	var output string
	var gcsEndpoint string
	var quiet bool

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "workspace",
			Aliases:     []string{"w"},
			Usage:       "Workspace ID to report on",
			Required:    true,
			Sources:     cli.EnvVars("RISKLEDGER_REPORT_WORKSPACE"),
			Destination: &workspaceID,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Write the JSON report to a file path or gs://bucket/object",
			Sources:     cli.EnvVars("RISKLEDGER_REPORT_OUTPUT"),
			Destination: &output,
		},
		&cli.StringFlag{
			Name:        "gcs-endpoint",
			Usage:       "Cloud Storage endpoint override (emulators, unauthenticated)",
			Sources:     cli.EnvVars("RISKLEDGER_GCS_ENDPOINT"),
			Destination: &gcsEndpoint,
		},
		&cli.BoolFlag{
			Name:        "quiet",
			Aliases:     []string{"q"},
			Usage:       "Do not print the console summary",
			Destination: &quiet,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "report",
		Usage: "Aggregate the risk register of a workspace into a matrix, overdue list and per-risk detail",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			_, registry, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load configuration")
			}
			if !registry.Has(workspaceID) {
				return goerr.New("workspace is not configured", goerr.V("workspace_id", workspaceID))
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			// The report runs as a trusted system job, outside any user's role
			uc := usecase.New(repo,
				usecase.WithPolicy(policy.AllowAll{}),
				usecase.WithDispatcher(async.Inline{}),
			)
			actor := &auth.Actor{WorkspaceID: workspaceID, UserID: reportActorID}

			report, err := uc.Dashboard.Report(ctx, actor)
			if err != nil {
				return goerr.Wrap(err, "failed to build report", goerr.V("workspace_id", workspaceID))
			}

			if !quiet {
				printReport(color.Output, report)
			}

			if output == "" {
				return nil
			}
			data, err := json.MarshalIndent(httpctrl.NewReportResponse(report), "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to marshal report")
			}
			if err := writeReport(ctx, output, gcsEndpoint, data); err != nil {
				return err
			}
			logging.Default().Info("Report written", "output", output, "bytes", len(data))
			return nil
		},
	}
}

// writeReport stores data at a local path or a gs://bucket/object URL
func writeReport(ctx context.Context, output, gcsEndpoint string, data []byte) error {
	if !strings.HasPrefix(output, gcsScheme) {
		if err := os.WriteFile(output, data, 0o600); err != nil {
			return goerr.Wrap(err, "failed to write report file", goerr.V("path", output))
		}
		return nil
	}

	bucket, object, err := parseGCSURL(output)
	if err != nil {
		return err
	}

	var opts []option.ClientOption
	if gcsEndpoint != "" {
		opts = append(opts, option.WithEndpoint(gcsEndpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return goerr.Wrap(err, "failed to create cloud storage client")
	}
	defer safe.Close(ctx, client)

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to upload report", goerr.V("bucket", bucket), goerr.V("object", object))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize report upload", goerr.V("bucket", bucket), goerr.V("object", object))
	}
	return nil
}

func parseGCSURL(url string) (bucket, object string, err error) {
	bucket, object, ok := strings.Cut(strings.TrimPrefix(url, gcsScheme), "/")
	if !ok || bucket == "" || object == "" {
		return "", "", goerr.New("invalid Cloud Storage URL, expected gs://bucket/object", goerr.V("url", url))
	}
	return bucket, object, nil
}

var levelColors = map[types.RiskLevel]*color.Color{
	types.RiskLevelLow:      color.New(color.FgGreen),
	types.RiskLevelMedium:   color.New(color.FgYellow),
	types.RiskLevelHigh:     color.New(color.FgRed),
	types.RiskLevelCritical: color.New(color.FgHiRed, color.Bold),
}

func printReport(w io.Writer, report *usecase.Report) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	bold.Fprintf(w, "Risk register: %s\n", report.WorkspaceID)
	faint.Fprintf(w, "generated %s, %d risk(s)\n\n", report.GeneratedAt.Format("2006-01-02 15:04 MST"), report.Matrix.Total)

	bold.Fprintln(w, "Inherent matrix (rows: impact 5..1, columns: probability 1..5)")
	for row, cells := range report.Matrix.Inherent.Grid() {
		impact := types.MaxScale - row
		fmt.Fprintf(w, "  %d |", impact)
		for col, n := range cells {
			level := types.LevelOf(col+1, impact)
			levelColors[level].Fprintf(w, " %3d", n)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "      1   2   3   4   5")
	fmt.Fprintln(w)

	bold.Fprintln(w, "By level")
	for _, level := range types.AllRiskLevels() {
		levelColors[level].Fprintf(w, "  %-9s", level)
		fmt.Fprintf(w, " %d (residual %d)\n", report.Matrix.CountByLevel[level], report.Matrix.ResidualCountByLevel[level])
	}
	fmt.Fprintln(w)

	if len(report.Overdue) == 0 {
		bold.Fprintln(w, "No overdue reviews")
		return
	}
	bold.Fprintf(w, "Overdue reviews (%d)\n", len(report.Overdue))
	for _, r := range report.Overdue {
		levelColors[r.RiskLevel()].Fprintf(w, "  %s", r.Code)
		fmt.Fprintf(w, " %s, due %s\n", r.Title, r.NextReviewDate.Format("2006-01-02"))
	}
}
