package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostStore persists posts and their metric snapshots.
type PostStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewPostStore creates a PostStore.
func NewPostStore(db *gorm.DB, logger *logrus.Logger) *PostStore {
	return &PostStore{db: db, logger: logger}
}

// FindByExternalID returns the post with the given Instagram media ID, or
// nil when none exists.
func (s *PostStore) FindByExternalID(instagramPostID string) (*Post, error) {
	var post Post
	err := s.db.Where("instagram_post_id = ?", instagramPostID).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up post %s: %w", instagramPostID, err)
	}
	return &post, nil
}

// Upsert inserts the post or overwrites the mutable fields of an existing
// row with the same Instagram media ID. Re-running a collection over an
// overlapping range is therefore idempotent.
func (s *PostStore) Upsert(post *Post) (*Post, error) {
	post.UpdatedAt = time.Now()

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "instagram_post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"caption",
			"media_url",
			"thumbnail_url",
			"permalink",
			"like_count",
			"comments_count",
			"child_media_ids",
			"updated_at",
		}),
	}).Create(post).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert post %s: %w", post.InstagramPostID, err)
	}

	// The conflict path leaves post.ID zero; re-read to return the row.
	if post.ID == 0 {
		return s.FindByExternalID(post.InstagramPostID)
	}

	s.logger.WithFields(logrus.Fields{
		"post_id":           post.ID,
		"instagram_post_id": post.InstagramPostID,
	}).Debug("Post upserted")

	return post, nil
}

// PostsMissingMetrics returns the account's posts published since the
// cutoff that have no metric snapshot yet.
func (s *PostStore) PostsMissingMetrics(accountID uint, since time.Time) ([]Post, error) {
	var posts []Post
	err := s.db.
		Joins("LEFT JOIN instagram_post_metrics m ON m.post_id = instagram_posts.id").
		Where("instagram_posts.account_id = ?", accountID).
		Where("instagram_posts.posted_at >= ?", since).
		Where("m.id IS NULL").
		Order("instagram_posts.posted_at ASC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query posts missing metrics: %w", err)
	}
	return posts, nil
}

// SaveMetrics creates or overwrites the snapshot for (post, snapshot date).
func (s *PostStore) SaveMetrics(metrics *PostMetrics) error {
	metrics.UpdatedAt = time.Now()

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"likes",
			"comments",
			"saved",
			"shares",
			"views",
			"reach",
			"total_interactions",
			"video_view_total_ms",
			"video_avg_watch_ms",
			"updated_at",
		}),
	}).Create(metrics).Error
	if err != nil {
		return fmt.Errorf("failed to save metrics for post %d: %w", metrics.PostID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"post_id":       metrics.PostID,
		"snapshot_date": metrics.SnapshotDate.Format("2006-01-02"),
	}).Debug("Post metrics saved")

	return nil
}

// MetricsForDate returns all snapshots for an account on one day, used by
// the daily aggregator.
func (s *PostStore) MetricsForDate(accountID uint, day time.Time) ([]PostMetrics, error) {
	var metrics []PostMetrics
	err := s.db.
		Joins("JOIN instagram_posts p ON p.id = instagram_post_metrics.post_id").
		Where("p.account_id = ?", accountID).
		Where("instagram_post_metrics.snapshot_date = ?", day.Format("2006-01-02")).
		Find(&metrics).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics for date: %w", err)
	}
	return metrics, nil
}
