// Package collector orchestrates rate-limited collection of Instagram
// posts and their engagement metrics into durable storage. It owns the
// control flow described by the pipeline: enumerate, chunk, fetch via the
// retrying executor, upsert, account for partial failures.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/instalytics/collector/pkg/instagram"
	"github.com/instalytics/collector/pkg/quota"
	"github.com/instalytics/collector/pkg/retry"
	"github.com/instalytics/collector/pkg/store"
)

// Default option values
const (
	// DefaultChunkSize bounds the burst of calls between inter-chunk delays
	DefaultChunkSize = 25
	// DefaultInterChunkDelay smooths the call rate between chunks
	DefaultInterChunkDelay = 2 * time.Second
	// DefaultLookbackDays is the missing-metrics lookback window
	DefaultLookbackDays = 30
)

// MediaAPI is the slice of the Graph API client the collector consumes.
type MediaAPI interface {
	ListMedia(ctx context.Context, params instagram.ListMediaParams) ([]instagram.Media, error)
	ListRecentMedia(ctx context.Context, userID, accessToken string, limit int) ([]instagram.Media, error)
	GetMediaInsights(ctx context.Context, mediaID, accessToken, mediaType string) (map[string]int, error)
}

// PostStore is the storage collaborator surface for posts and snapshots.
type PostStore interface {
	FindByExternalID(instagramPostID string) (*store.Post, error)
	Upsert(post *store.Post) (*store.Post, error)
	PostsMissingMetrics(accountID uint, since time.Time) ([]store.Post, error)
	SaveMetrics(metrics *store.PostMetrics) error
}

// AccountStore resolves monitored accounts.
type AccountStore interface {
	FindByExternalID(instagramUserID string) (*store.Account, error)
}

// RunTracker persists the resumption point for incremental runs.
type RunTracker interface {
	LastRun() (time.Time, bool, error)
	RecordRun(t time.Time) error
}

// Notifier receives the terminal run summary, best-effort.
type Notifier interface {
	SendRunSummary(ctx context.Context, result *Result)
}

// Deps wires the collector's collaborators.
type Deps struct {
	API      MediaAPI
	Accounts AccountStore
	Posts    PostStore
	// RunTracker is optional; without it incremental runs always use the
	// bounded default lookback.
	RunTracker RunTracker
	// Notifier is optional.
	Notifier Notifier
	Logger   *logrus.Logger
	// Quota configures the per-run quota tracker. Zero values take the
	// platform defaults.
	Quota quota.Config
	// RetryPolicy bounds per-item retries. Zero value takes the default.
	RetryPolicy retry.Policy
}

// Options tune one collection run.
type Options struct {
	// ChunkSize is the batch size between inter-chunk delays.
	ChunkSize int
	// MaxPosts caps enumeration. The chunk that crosses the cap is still
	// processed to completion.
	MaxPosts int
	// IncludeMetrics fetches a metrics snapshot per post.
	IncludeMetrics bool
	// InterChunkDelay overrides the fixed delay between chunks.
	InterChunkDelay time.Duration
	// DryRun enumerates and plans but writes nothing and fetches no metrics.
	DryRun bool
}

func (o Options) normalized() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.InterChunkDelay < 0 {
		o.InterChunkDelay = 0
	} else if o.InterChunkDelay == 0 {
		o.InterChunkDelay = DefaultInterChunkDelay
	}
	return o
}

// Collector drives collection runs for one account at a time. Callers must
// not run two collections for the same account concurrently: they would
// double-count quota and race on upserts. The collector provides no
// mutual-exclusion primitive of its own.
type Collector struct {
	api      MediaAPI
	accounts AccountStore
	posts    PostStore
	tracker  RunTracker
	notifier Notifier
	logger   *logrus.Logger

	quotaConfig quota.Config
	retryPolicy retry.Policy
}

// New creates a Collector from its dependencies.
func New(deps Deps) (*Collector, error) {
	if deps.API == nil {
		return nil, fmt.Errorf("media API is required")
	}
	if deps.Accounts == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if deps.Posts == nil {
		return nil, fmt.Errorf("post store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Quota == (quota.Config{}) {
		deps.Quota = quota.DefaultConfig()
	}
	if deps.RetryPolicy == (retry.Policy{}) {
		deps.RetryPolicy = retry.DefaultPolicy()
	}

	return &Collector{
		api:         deps.API,
		accounts:    deps.Accounts,
		posts:       deps.Posts,
		tracker:     deps.RunTracker,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		quotaConfig: deps.Quota,
		retryPolicy: deps.RetryPolicy,
	}, nil
}

// Collect runs one collection for the account. Run-level precondition
// failures (invalid scope, unknown account) return an error and no result;
// per-item failures are absorbed into the result's counters and never
// abort the run.
func (c *Collector) Collect(ctx context.Context, accountID string, scope Scope, opts Options) (*Result, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	account, err := c.accounts.FindByExternalID(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account not found: %s", accountID)
	}

	opts = opts.normalized()
	executionID := uuid.NewString()
	log := c.logger.WithFields(logrus.Fields{
		"execution_id": executionID,
		"account_id":   accountID,
		"scope":        scope.String(),
	})

	// The quota is per-account, per-credential: one tracker per run,
	// never shared across accounts.
	exec := retry.NewExecutor(c.retryPolicy, quota.NewTracker(c.quotaConfig), c.logger)

	result := newResult(executionID, accountID, scope.Kind(), scope)

	if scope.MissingMetrics {
		return c.collectMissingMetrics(ctx, log, exec, account, opts, result)
	}

	log.WithFields(logrus.Fields{
		"chunk_size":      opts.ChunkSize,
		"max_posts":       opts.MaxPosts,
		"include_metrics": opts.IncludeMetrics,
		"dry_run":         opts.DryRun,
	}).Info("Starting historical collection")

	var media []instagram.Media
	listErr := exec.Do(ctx, "list-media", func(ctx context.Context) error {
		fetched, err := c.api.ListMedia(ctx, instagram.ListMediaParams{
			UserID:      account.InstagramUserID,
			AccessToken: account.AccessToken,
			MaxItems:    opts.MaxPosts,
		})
		if err != nil {
			return err
		}
		media = fetched
		return nil
	})
	result.APICallsMade++
	if listErr != nil {
		return nil, fmt.Errorf("failed to enumerate media: %w", listErr)
	}

	items := c.filterByScope(log, media, scope)
	result.TotalItems = len(items)

	if len(items) == 0 {
		log.Info("No posts in scope, nothing to collect")
		c.notify(ctx, result.finalize())
		return result, nil
	}

	if err := c.processChunks(ctx, log, exec, account, items, opts, result); err != nil {
		result.ErrorMessage = err.Error()
		c.notify(ctx, result.finalize())
		return result, err
	}

	result.finalize()
	log.WithFields(logrus.Fields{
		"total":     result.TotalItems,
		"processed": result.ProcessedItems,
		"success":   result.SuccessItems,
		"failed":    result.FailedItems,
		"duration":  result.Duration().String(),
	}).Info("Historical collection completed")

	c.notify(ctx, result)
	return result, nil
}

// processChunks partitions items into fixed-size chunks and processes them
// sequentially, inserting the inter-chunk delay between them. The chunk
// that crosses the MaxPosts cap still finishes in full.
func (c *Collector) processChunks(
	ctx context.Context,
	log *logrus.Entry,
	exec *retry.Executor,
	account *store.Account,
	items []instagram.Media,
	opts Options,
	result *Result,
) error {
	total := len(items)

	for start := 0; start < total; start += opts.ChunkSize {
		if opts.MaxPosts > 0 && result.ProcessedItems >= opts.MaxPosts {
			log.WithField("max_posts", opts.MaxPosts).Info("Item cap reached, stopping")
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + opts.ChunkSize
		if end > total {
			end = total
		}
		chunk := items[start:end]

		log.WithFields(logrus.Fields{
			"chunk_start": start + 1,
			"chunk_end":   end,
			"total":       total,
		}).Info("Processing chunk")

		for _, media := range chunk {
			c.processItem(ctx, exec, account, media, opts, result)
		}

		if end < total && opts.InterChunkDelay > 0 {
			log.WithField("delay", opts.InterChunkDelay.String()).Debug("Waiting between chunks")
			if err := sleepContext(ctx, opts.InterChunkDelay); err != nil {
				return err
			}
		}
	}

	return nil
}

// processItem upserts one post and, when requested, its metrics snapshot.
// A Fatal or Exhausted outcome marks the item failed and the run moves on.
func (c *Collector) processItem(
	ctx context.Context,
	exec *retry.Executor,
	account *store.Account,
	media instagram.Media,
	opts Options,
	result *Result,
) {
	log := c.logger.WithFields(logrus.Fields{
		"execution_id": result.ExecutionID,
		"post_id":      media.ID,
	})

	if opts.DryRun {
		log.Info("Dry run, skipping writes")
		result.recordSuccess()
		return
	}

	saved, err := c.posts.Upsert(postFromMedia(account.ID, media))
	if err != nil {
		log.WithError(err).Error("Failed to upsert post")
		result.recordFailure(media.ID, err)
		return
	}

	if opts.IncludeMetrics {
		snapshotDate := time.Now()
		if err := c.collectMetricsForPost(ctx, exec, account, saved, media.MediaType, snapshotDate, result); err != nil {
			log.WithError(err).Error("Failed to collect metrics for post")
			result.recordFailure(media.ID, err)
			return
		}
	}

	result.recordSuccess()
}

// collectMetricsForPost fetches a snapshot through the retrying executor
// and saves it keyed by (post, day).
func (c *Collector) collectMetricsForPost(
	ctx context.Context,
	exec *retry.Executor,
	account *store.Account,
	post *store.Post,
	mediaType string,
	snapshotDate time.Time,
	result *Result,
) error {
	var metrics map[string]int
	err := exec.Do(ctx, "media-insights", func(ctx context.Context) error {
		fetched, err := c.api.GetMediaInsights(ctx, post.InstagramPostID, account.AccessToken, mediaType)
		if err != nil {
			return err
		}
		metrics = fetched
		return nil
	})
	result.APICallsMade++
	if err != nil {
		return err
	}

	return c.posts.SaveMetrics(snapshotFromMetrics(post.ID, snapshotDate, metrics))
}

// collectMissingMetrics fills in snapshots for stored posts that have none,
// looking back 30 days. No enumeration call is made; candidates come from
// storage.
func (c *Collector) collectMissingMetrics(
	ctx context.Context,
	log *logrus.Entry,
	exec *retry.Executor,
	account *store.Account,
	opts Options,
	result *Result,
) (*Result, error) {
	since := time.Now().AddDate(0, 0, -DefaultLookbackDays)
	posts, err := c.posts.PostsMissingMetrics(account.ID, since)
	if err != nil {
		return nil, err
	}

	result.TotalItems = len(posts)
	log.WithField("candidates", len(posts)).Info("Starting missing-metrics collection")

	if len(posts) == 0 {
		c.notify(ctx, result.finalize())
		return result, nil
	}

	total := len(posts)
	for start := 0; start < total; start += opts.ChunkSize {
		if err := ctx.Err(); err != nil {
			result.ErrorMessage = err.Error()
			c.notify(ctx, result.finalize())
			return result, err
		}

		end := start + opts.ChunkSize
		if end > total {
			end = total
		}

		for _, post := range posts[start:end] {
			if opts.DryRun {
				result.recordSuccess()
				continue
			}
			post := post
			if err := c.collectMetricsForPost(ctx, exec, account, &post, post.MediaType, post.PostedAt, result); err != nil {
				log.WithFields(logrus.Fields{
					"post_id": post.InstagramPostID,
					"error":   err,
				}).Error("Failed to backfill metrics")
				result.recordFailure(post.InstagramPostID, err)
				continue
			}
			result.recordSuccess()
		}

		if end < total && opts.InterChunkDelay > 0 {
			if err := sleepContext(ctx, opts.InterChunkDelay); err != nil {
				result.ErrorMessage = err.Error()
				c.notify(ctx, result.finalize())
				return result, err
			}
		}
	}

	result.finalize()
	log.WithFields(logrus.Fields{
		"total":   result.TotalItems,
		"success": result.SuccessItems,
		"failed":  result.FailedItems,
	}).Info("Missing-metrics collection completed")

	c.notify(ctx, result)
	return result, nil
}

// filterByScope keeps the media whose publish date falls inside the scope.
// Media with an unparseable timestamp are skipped with a warning.
func (c *Collector) filterByScope(log *logrus.Entry, media []instagram.Media, scope Scope) []instagram.Media {
	if scope.All || (scope.Start == nil && scope.End == nil) {
		return media
	}

	filtered := make([]instagram.Media, 0, len(media))
	for _, m := range media {
		postedAt, err := m.PostedAt()
		if err != nil {
			log.WithFields(logrus.Fields{
				"post_id":   m.ID,
				"timestamp": m.Timestamp,
			}).Warn("Skipping media with unparseable timestamp")
			continue
		}
		if scope.Contains(postedAt) {
			filtered = append(filtered, m)
		}
	}

	log.WithFields(logrus.Fields{
		"fetched":  len(media),
		"in_scope": len(filtered),
	}).Debug("Filtered media by scope")

	return filtered
}

// notify delivers the terminal summary best-effort.
func (c *Collector) notify(ctx context.Context, result *Result) {
	if c.notifier == nil {
		return
	}
	c.notifier.SendRunSummary(ctx, result)
}

// postFromMedia maps an API media object onto the storage model.
func postFromMedia(accountID uint, media instagram.Media) *store.Post {
	post := &store.Post{
		AccountID:       accountID,
		InstagramPostID: media.ID,
		MediaType:       media.MediaType,
		Caption:         media.Caption,
		MediaURL:        media.MediaURL,
		ThumbnailURL:    media.ThumbnailURL,
		Permalink:       media.Permalink,
		Shortcode:       media.Shortcode,
		LikeCount:       media.LikeCount,
		CommentsCount:   media.CommentsCount,
	}
	if postedAt, err := media.PostedAt(); err == nil {
		post.PostedAt = postedAt
	}
	return post
}

// snapshotFromMetrics maps a fetched metric set onto the snapshot model.
func snapshotFromMetrics(postID uint, snapshotDate time.Time, metrics map[string]int) *store.PostMetrics {
	return &store.PostMetrics{
		PostID:            postID,
		SnapshotDate:      time.Date(snapshotDate.Year(), snapshotDate.Month(), snapshotDate.Day(), 0, 0, 0, 0, time.UTC),
		Likes:             metrics["likes"],
		Comments:          metrics["comments"],
		Saved:             metrics["saved"],
		Shares:            metrics["shares"],
		Views:             metrics["views"],
		Reach:             metrics["reach"],
		TotalInteractions: metrics["total_interactions"],
		VideoViewTotalMs:  metrics["ig_reels_video_view_total_time"],
		VideoAvgWatchMs:   metrics["ig_reels_avg_watch_time"],
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
