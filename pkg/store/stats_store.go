package store

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsStore persists the daily and monthly rollups.
type StatsStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewStatsStore creates a StatsStore.
func NewStatsStore(db *gorm.DB, logger *logrus.Logger) *StatsStore {
	return &StatsStore{db: db, logger: logger}
}

// UpsertDaily creates or overwrites the rollup for (account, day).
func (s *StatsStore) UpsertDaily(stats *DailyStats) error {
	stats.UpdatedAt = time.Now()

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "stats_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"followers_count",
			"follower_delta",
			"reach",
			"posts_count",
			"total_likes",
			"total_comments",
			"total_saved",
			"total_shares",
			"engagement_rate",
			"updated_at",
		}),
	}).Create(stats).Error
	if err != nil {
		return fmt.Errorf("failed to upsert daily stats: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"account_id": stats.AccountID,
		"stats_date": stats.StatsDate.Format("2006-01-02"),
	}).Debug("Daily stats upserted")

	return nil
}

// DailyRange returns the rollups for an account between two days inclusive.
func (s *StatsStore) DailyRange(accountID uint, from, to time.Time) ([]DailyStats, error) {
	var stats []DailyStats
	err := s.db.
		Where("account_id = ?", accountID).
		Where("stats_date BETWEEN ? AND ?", from.Format("2006-01-02"), to.Format("2006-01-02")).
		Order("stats_date ASC").
		Find(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats range: %w", err)
	}
	return stats, nil
}

// FindDaily returns the rollup for (account, day), or nil.
func (s *StatsStore) FindDaily(accountID uint, day time.Time) (*DailyStats, error) {
	var stats DailyStats
	err := s.db.
		Where("account_id = ?", accountID).
		Where("stats_date = ?", day.Format("2006-01-02")).
		First(&stats).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up daily stats: %w", err)
	}
	return &stats, nil
}

// UpsertMonthly creates or overwrites the rollup for (account, year, month).
func (s *StatsStore) UpsertMonthly(stats *MonthlyStats) error {
	stats.UpdatedAt = time.Now()

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"avg_followers_count",
			"avg_engagement_rate",
			"total_reach",
			"posts_count",
			"follower_growth_rate",
			"engagement_growth_rate",
			"updated_at",
		}),
	}).Create(stats).Error
	if err != nil {
		return fmt.Errorf("failed to upsert monthly stats: %w", err)
	}
	return nil
}

// FindMonthly returns the rollup for (account, year, month), or nil.
func (s *StatsStore) FindMonthly(accountID uint, year, month int) (*MonthlyStats, error) {
	var stats MonthlyStats
	err := s.db.
		Where("account_id = ? AND year = ? AND month = ?", accountID, year, month).
		First(&stats).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up monthly stats: %w", err)
	}
	return &stats, nil
}
