package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/instalytics/collector/pkg/collector"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect historical posts and metrics for an account",
	Long: `Enumerates an account's posts through the Graph API, filters them to
the requested window and stores each post with a metrics snapshot.

The window is one of --from/--to, --days, --all-posts or
--missing-metrics. With none given the last 30 days are collected.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().String("account", "", "Instagram user ID of the monitored account")
	collectCmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	collectCmd.Flags().String("to", "", "End date (YYYY-MM-DD), inclusive")
	collectCmd.Flags().Int("days", 0, "Collect the last N days")
	collectCmd.Flags().Bool("all-posts", false, "Collect every post on the account")
	collectCmd.Flags().Bool("missing-metrics", false, "Backfill snapshots for stored posts without metrics")
	collectCmd.Flags().Int("chunk-size", collector.DefaultChunkSize, "Posts per chunk between pauses")
	collectCmd.Flags().Int("max-posts", 0, "Cap on posts processed (0 = unlimited)")
	collectCmd.Flags().Bool("no-metrics", false, "Store posts only, skip metric snapshots")
	collectCmd.Flags().Bool("dry-run", false, "Enumerate and plan without writing")

	_ = collectCmd.MarkFlagRequired("account")
	collectCmd.MarkFlagsMutuallyExclusive("days", "all-posts", "missing-metrics", "from")
	collectCmd.MarkFlagsRequiredTogether("from", "to")
}

func runCollect(cmd *cobra.Command, args []string) error {
	accountID, _ := cmd.Flags().GetString("account")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	maxPosts, _ := cmd.Flags().GetInt("max-posts")
	noMetrics, _ := cmd.Flags().GetBool("no-metrics")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	scope, err := scopeFromFlags(cmd)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(nil)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	color.Cyan("Collecting %s for account %s", scope.String(), accountID)
	if dryRun {
		color.Yellow("Dry run: nothing will be written")
	}

	result, err := rt.collector.Collect(ctx, accountID, scope, collector.Options{
		ChunkSize:      chunkSize,
		MaxPosts:       maxPosts,
		IncludeMetrics: !noMetrics,
		DryRun:         dryRun,
	})
	if err != nil {
		return err
	}

	printSummary(result)
	if result.Degraded() {
		return fmt.Errorf("collection completed with %d failed items", result.FailedItems)
	}
	return nil
}

// scopeFromFlags maps the window flags onto a collection scope.
func scopeFromFlags(cmd *cobra.Command) (collector.Scope, error) {
	allPosts, _ := cmd.Flags().GetBool("all-posts")
	missingMetrics, _ := cmd.Flags().GetBool("missing-metrics")
	days, _ := cmd.Flags().GetInt("days")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	switch {
	case missingMetrics:
		return collector.ScopeMissingMetrics(), nil
	case allPosts:
		return collector.ScopeAll(), nil
	case fromStr != "":
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return collector.Scope{}, fmt.Errorf("invalid --from date %q: %w", fromStr, err)
		}
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return collector.Scope{}, fmt.Errorf("invalid --to date %q: %w", toStr, err)
		}
		return collector.ScopeRange(from, to), nil
	case days > 0:
		return collector.ScopeDaysBack(days), nil
	default:
		return collector.ScopeDaysBack(30), nil
	}
}

func printSummary(result *collector.Result) {
	color.Cyan("Execution %s (%s)", result.ExecutionID, result.Kind)
	fmt.Printf("  total:     %d\n", result.TotalItems)
	fmt.Printf("  processed: %d\n", result.ProcessedItems)
	color.Green("  success:   %d", result.SuccessItems)
	if result.FailedItems > 0 {
		color.Red("  failed:    %d", result.FailedItems)
		for _, f := range result.Failures {
			color.Red("    %s: %s", f.PostID, f.Error)
		}
	}
	fmt.Printf("  api calls: %d\n", result.APICallsMade)
	fmt.Printf("  duration:  %s\n", result.Duration().Round(time.Millisecond))
	if result.ErrorMessage != "" {
		color.Red("  error:     %s", result.ErrorMessage)
	}
}
