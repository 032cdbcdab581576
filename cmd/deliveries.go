package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/temper-mc/prforum/internal/database"
	"github.com/temper-mc/prforum/models"
)

var (
	deliveriesLimit  int
	deliveriesPR     int
	deliveriesOutput string
	deliveriesPrune  time.Duration
)

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "Inspect the webhook delivery log",
	Long: `Lists the most recent rows of the delivery log: every webhook the
gateway received (queued, ignored, rejected) and the result of projecting
each queued event (applied, failed).`,
	RunE: runDeliveries,
}

func init() {
	deliveriesCmd.Flags().IntVarP(&deliveriesLimit, "limit", "n", 20, "number of rows")
	deliveriesCmd.Flags().IntVar(&deliveriesPR, "pr", 0, "only rows for this pull request")
	deliveriesCmd.Flags().StringVarP(&deliveriesOutput, "output", "o", "table", "table, json or yaml")
	deliveriesCmd.Flags().DurationVar(&deliveriesPrune, "prune-older-than", 0,
		"delete rows older than this before listing (e.g. 720h)")
}

func runDeliveries(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "none" {
		return fmt.Errorf("delivery log is disabled (database.driver = none)")
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log := database.NewDeliveryLog(db)

	if deliveriesPrune > 0 {
		if err := log.Prune(ctx, time.Now().Add(-deliveriesPrune)); err != nil {
			return err
		}
	}

	var rows []models.Delivery
	if deliveriesPR > 0 {
		rows, err = log.ForPullRequest(ctx, deliveriesPR, deliveriesLimit)
	} else {
		rows, err = log.Recent(ctx, deliveriesLimit)
	}
	if err != nil {
		return err
	}

	switch deliveriesOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rows)
	case "table":
		printDeliveries(rows)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (valid: table, json, yaml)", deliveriesOutput)
	}
}

func printDeliveries(rows []models.Delivery) {
	if len(rows) == 0 {
		fmt.Println(dimStyle.Render("No deliveries recorded yet."))
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tKIND\tACTION\tPR\tEVENT\tOUTCOME\tDETAIL")
	for _, d := range rows {
		pr := "-"
		if d.PRNumber > 0 {
			pr = fmt.Sprintf("#%d", d.PRNumber)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.CreatedAt.Local().Format(time.DateTime), dash(d.Kind), dash(d.Action), pr,
			dash(d.Event), outcomeStyle(d.Outcome), d.Detail)
	}
	_ = w.Flush()
}

func outcomeStyle(outcome string) string {
	switch outcome {
	case models.OutcomeApplied, models.OutcomeQueued:
		return successStyle.Render(outcome)
	case models.OutcomeFailed, models.OutcomeRejected:
		return warnStyle.Render(outcome)
	default:
		return dimStyle.Render(outcome)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
