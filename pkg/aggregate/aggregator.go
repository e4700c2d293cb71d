// Package aggregate rolls post metric snapshots up into per-account daily
// and monthly statistics.
package aggregate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/instalytics/collector/pkg/store"
)

// MetricsReader is the slice of the post store the aggregator consumes.
type MetricsReader interface {
	MetricsForDate(accountID uint, day time.Time) ([]store.PostMetrics, error)
}

// StatsWriter persists the rollups.
type StatsWriter interface {
	UpsertDaily(stats *store.DailyStats) error
	UpsertMonthly(stats *store.MonthlyStats) error
	DailyRange(accountID uint, from, to time.Time) ([]store.DailyStats, error)
	FindDaily(accountID uint, day time.Time) (*store.DailyStats, error)
	FindMonthly(accountID uint, year, month int) (*store.MonthlyStats, error)
}

// AccountInsights fetches the daily account-level metrics.
type AccountInsights interface {
	GetAccountInsights(ctx context.Context, userID, accessToken, day string) (map[string]int, error)
}

// Aggregator builds daily and monthly rollups.
type Aggregator struct {
	metrics  MetricsReader
	stats    StatsWriter
	insights AccountInsights
	logger   *logrus.Logger
}

// New creates an Aggregator. insights may be nil; follower and reach
// columns then stay at zero.
func New(metrics MetricsReader, stats StatsWriter, insights AccountInsights, logger *logrus.Logger) *Aggregator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Aggregator{
		metrics:  metrics,
		stats:    stats,
		insights: insights,
		logger:   logger,
	}
}

// BuildDailyStats aggregates one account-day from its metric snapshots and
// upserts the rollup.
func (a *Aggregator) BuildDailyStats(ctx context.Context, account *store.Account, day time.Time) (*store.DailyStats, error) {
	log := a.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"stats_date": day.Format("2006-01-02"),
	})

	snapshots, err := a.metrics.MetricsForDate(account.ID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}

	daily := &store.DailyStats{
		AccountID:      account.ID,
		StatsDate:      time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		FollowersCount: account.FollowersCount,
		PostsCount:     len(snapshots),
	}

	var reach int
	for _, s := range snapshots {
		daily.TotalLikes += s.Likes
		daily.TotalComments += s.Comments
		daily.TotalSaved += s.Saved
		daily.TotalShares += s.Shares
		reach += s.Reach
	}
	daily.Reach = reach
	daily.EngagementRate = EngagementRate(daily.TotalLikes, daily.TotalComments, daily.TotalSaved, daily.TotalShares, reach)
	if reach == 0 && len(snapshots) > 0 {
		// Rate 0 here means "no reach data", not "zero engagement".
		log.Debug("Zero reach across snapshots, engagement rate recorded as 0")
	}

	if a.insights != nil {
		fetched, err := a.insights.GetAccountInsights(ctx, account.InstagramUserID, account.AccessToken, day.Format("2006-01-02"))
		if err == nil {
			daily.FollowerDelta = fetched["follower_count"]
			if daily.Reach == 0 {
				daily.Reach = fetched["reach"]
			}
		}
	}

	if prev, err := a.stats.FindDaily(account.ID, day.AddDate(0, 0, -1)); err == nil && prev != nil {
		daily.FollowerDelta = daily.FollowersCount - prev.FollowersCount
	}

	if err := a.stats.UpsertDaily(daily); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"posts":           daily.PostsCount,
		"engagement_rate": daily.EngagementRate,
	}).Info("Daily stats aggregated")

	return daily, nil
}

// BuildMonthlyStats averages the month's daily rollups and computes growth
// rates against the previous month.
func (a *Aggregator) BuildMonthlyStats(accountID uint, year int, month time.Month) (*store.MonthlyStats, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	days, err := a.stats.DailyRange(accountID, from, to)
	if err != nil {
		return nil, err
	}

	monthly := &store.MonthlyStats{
		AccountID: accountID,
		Year:      year,
		Month:     int(month),
	}

	if len(days) > 0 {
		var followers int
		var engagement float64
		for _, d := range days {
			followers += d.FollowersCount
			engagement += d.EngagementRate
			monthly.TotalReach += d.Reach
			monthly.PostsCount += d.PostsCount
		}
		monthly.AvgFollowersCount = followers / len(days)
		monthly.AvgEngagementRate = round2(engagement / float64(len(days)))
	}

	prevYear, prevMonth := year, int(month)-1
	if prevMonth == 0 {
		prevYear, prevMonth = year-1, 12
	}
	if prev, err := a.stats.FindMonthly(accountID, prevYear, prevMonth); err == nil && prev != nil {
		if prev.AvgFollowersCount > 0 {
			monthly.FollowerGrowthRate = round2(float64(monthly.AvgFollowersCount-prev.AvgFollowersCount) / float64(prev.AvgFollowersCount) * 100)
		}
		monthly.EngagementGrowthRate = round2(monthly.AvgEngagementRate - prev.AvgEngagementRate)
	}

	if err := a.stats.UpsertMonthly(monthly); err != nil {
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"year":       year,
		"month":      int(month),
		"days":       len(days),
	}).Info("Monthly stats aggregated")

	return monthly, nil
}

// EngagementRate is (likes+comments+saved+shares)/reach*100, rounded to
// two decimals. Zero reach yields 0.
func EngagementRate(likes, comments, saved, shares, reach int) float64 {
	if reach == 0 {
		return 0
	}
	total := likes + comments + saved + shares
	return round2(float64(total) / float64(reach) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
