package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/instalytics/collector/pkg/aggregate"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Roll collected snapshots up into daily and monthly stats",
	Long: `Builds the per-account daily rollup for a date from the stored metric
snapshots, and when --month is given, averages the month's daily rollups
into a monthly one.`,
	RunE: runAggregate,
}

func init() {
	rootCmd.AddCommand(aggregateCmd)

	aggregateCmd.Flags().String("account", "", "Instagram user ID of the monitored account")
	aggregateCmd.Flags().String("date", "", "Day to aggregate (YYYY-MM-DD, default yesterday)")
	aggregateCmd.Flags().String("month", "", "Month to aggregate (YYYY-MM)")
	aggregateCmd.Flags().Bool("no-insights", false, "Skip the account insights API call")

	_ = aggregateCmd.MarkFlagRequired("account")
	aggregateCmd.MarkFlagsMutuallyExclusive("date", "month")
}

func runAggregate(cmd *cobra.Command, args []string) error {
	accountID, _ := cmd.Flags().GetString("account")
	dateStr, _ := cmd.Flags().GetString("date")
	monthStr, _ := cmd.Flags().GetString("month")
	noInsights, _ := cmd.Flags().GetBool("no-insights")

	rt, err := buildRuntime(nil)
	if err != nil {
		return err
	}

	account, err := rt.accounts.FindByExternalID(accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("account not found: %s", accountID)
	}

	var insights aggregate.AccountInsights
	if !noInsights {
		insights = rt.api
	}
	agg := aggregate.New(rt.posts, rt.stats, insights, log)

	ctx, cancel := signalContext()
	defer cancel()

	if monthStr != "" {
		month, err := time.Parse("2006-01", monthStr)
		if err != nil {
			return fmt.Errorf("invalid --month %q: %w", monthStr, err)
		}
		monthly, err := agg.BuildMonthlyStats(account.ID, month.Year(), month.Month())
		if err != nil {
			return err
		}
		color.Green("Monthly stats for %04d-%02d: avg followers %d, avg engagement %.2f%%, posts %d",
			monthly.Year, monthly.Month, monthly.AvgFollowersCount, monthly.AvgEngagementRate, monthly.PostsCount)
		return nil
	}

	day := time.Now().UTC().AddDate(0, 0, -1)
	if dateStr != "" {
		day, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", dateStr, err)
		}
	}

	daily, err := agg.BuildDailyStats(ctx, account, day)
	if err != nil {
		return err
	}
	color.Green("Daily stats for %s: posts %d, engagement %.2f%%, reach %d",
		daily.StatsDate.Format("2006-01-02"), daily.PostsCount, daily.EngagementRate, daily.Reach)
	return nil
}
