package store

import (
	"time"

	"github.com/lib/pq"
)

// Account represents a monitored Instagram account.
type Account struct {
	ID                uint      `gorm:"primaryKey;column:id"`
	InstagramUserID   string    `gorm:"column:instagram_user_id;uniqueIndex;not null"`
	Username          string    `gorm:"column:username;not null"`
	Name              string    `gorm:"column:name"`
	Biography         string    `gorm:"column:biography"`
	Website           string    `gorm:"column:website"`
	ProfilePictureURL string    `gorm:"column:profile_picture_url"`
	AccessToken       string    `gorm:"column:access_token;not null"`
	FollowersCount    int       `gorm:"column:followers_count;default:0"`
	FollowsCount      int       `gorm:"column:follows_count;default:0"`
	MediaCount        int       `gorm:"column:media_count;default:0"`
	IsActive          bool      `gorm:"column:is_active;default:true"`
	CreatedAt         time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for the Account model
func (Account) TableName() string {
	return "instagram_accounts"
}

// Post represents one media object, keyed by the platform's immutable
// media ID so re-collection upserts instead of duplicating.
type Post struct {
	ID              uint           `gorm:"primaryKey;column:id"`
	AccountID       uint           `gorm:"column:account_id;index;not null"`
	InstagramPostID string         `gorm:"column:instagram_post_id;uniqueIndex;not null"`
	MediaType       string         `gorm:"column:media_type;not null"`
	Caption         string         `gorm:"column:caption"`
	MediaURL        string         `gorm:"column:media_url"`
	ThumbnailURL    string         `gorm:"column:thumbnail_url"`
	Permalink       string         `gorm:"column:permalink"`
	Shortcode       string         `gorm:"column:shortcode"`
	LikeCount       int            `gorm:"column:like_count;default:0"`
	CommentsCount   int            `gorm:"column:comments_count;default:0"`
	ChildMediaIDs   pq.StringArray `gorm:"column:child_media_ids;type:text[]"`
	PostedAt        time.Time      `gorm:"column:posted_at;index"`
	CreatedAt       time.Time      `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for the Post model
func (Post) TableName() string {
	return "instagram_posts"
}

// PostMetrics is one daily metric snapshot for a post. Many snapshots per
// post, one per (post, snapshot date).
type PostMetrics struct {
	ID                uint      `gorm:"primaryKey;column:id"`
	PostID            uint      `gorm:"column:post_id;index:idx_post_snapshot,unique;not null"`
	SnapshotDate      time.Time `gorm:"column:snapshot_date;index:idx_post_snapshot,unique;type:date;not null"`
	Likes             int       `gorm:"column:likes;default:0"`
	Comments          int       `gorm:"column:comments;default:0"`
	Saved             int       `gorm:"column:saved;default:0"`
	Shares            int       `gorm:"column:shares;default:0"`
	Views             int       `gorm:"column:views;default:0"`
	Reach             int       `gorm:"column:reach;default:0"`
	TotalInteractions int       `gorm:"column:total_interactions;default:0"`
	VideoViewTotalMs  int       `gorm:"column:video_view_total_ms;default:0"`
	VideoAvgWatchMs   int       `gorm:"column:video_avg_watch_ms;default:0"`
	CreatedAt         time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for the PostMetrics model
func (PostMetrics) TableName() string {
	return "instagram_post_metrics"
}

// DailyStats is the per-account daily rollup built by the aggregator.
type DailyStats struct {
	ID             uint      `gorm:"primaryKey;column:id"`
	AccountID      uint      `gorm:"column:account_id;index:idx_account_day,unique;not null"`
	StatsDate      time.Time `gorm:"column:stats_date;index:idx_account_day,unique;type:date;not null"`
	FollowersCount int       `gorm:"column:followers_count;default:0"`
	FollowerDelta  int       `gorm:"column:follower_delta;default:0"`
	Reach          int       `gorm:"column:reach;default:0"`
	PostsCount     int       `gorm:"column:posts_count;default:0"`
	TotalLikes     int       `gorm:"column:total_likes;default:0"`
	TotalComments  int       `gorm:"column:total_comments;default:0"`
	TotalSaved     int       `gorm:"column:total_saved;default:0"`
	TotalShares    int       `gorm:"column:total_shares;default:0"`
	EngagementRate float64   `gorm:"column:engagement_rate;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for the DailyStats model
func (DailyStats) TableName() string {
	return "instagram_daily_stats"
}

// MonthlyStats is the per-account monthly rollup.
type MonthlyStats struct {
	ID                   uint      `gorm:"primaryKey;column:id"`
	AccountID            uint      `gorm:"column:account_id;index:idx_account_month,unique;not null"`
	Year                 int       `gorm:"column:year;index:idx_account_month,unique;not null"`
	Month                int       `gorm:"column:month;index:idx_account_month,unique;not null"`
	AvgFollowersCount    int       `gorm:"column:avg_followers_count;default:0"`
	AvgEngagementRate    float64   `gorm:"column:avg_engagement_rate;default:0"`
	TotalReach           int       `gorm:"column:total_reach;default:0"`
	PostsCount           int       `gorm:"column:posts_count;default:0"`
	FollowerGrowthRate   float64   `gorm:"column:follower_growth_rate;default:0"`
	EngagementGrowthRate float64   `gorm:"column:engagement_growth_rate;default:0"`
	CreatedAt            time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt            time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for the MonthlyStats model
func (MonthlyStats) TableName() string {
	return "instagram_monthly_stats"
}
