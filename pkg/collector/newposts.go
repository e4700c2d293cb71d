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
)

// Incremental run defaults
const (
	// DefaultCheckHoursBack bounds the first-ever incremental lookback
	DefaultCheckHoursBack = 8
	// DefaultRecentLimit is the page size of the new-post check
	DefaultRecentLimit = 50
)

// NewPostsOptions tune an incremental run.
type NewPostsOptions struct {
	// CheckHoursBack is the lookback used when no last-run record exists
	// or ForceReprocess is set.
	CheckHoursBack int
	// ForceReprocess ignores the stored resumption point and re-saves
	// posts already in storage.
	ForceReprocess bool
	// RecentLimit caps the recent-media page fetched per check.
	RecentLimit int
}

func (o NewPostsOptions) normalized() NewPostsOptions {
	if o.CheckHoursBack <= 0 {
		o.CheckHoursBack = DefaultCheckHoursBack
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = DefaultRecentLimit
	}
	return o
}

// CollectNewPosts checks for posts published since the last successful run
// and collects them with their metrics. The resumption point advances only
// when the run succeeds: a failed run keeps the old bound so no coverage
// gap opens, at the cost of possible reprocessing.
func (c *Collector) CollectNewPosts(ctx context.Context, accountID string, opts NewPostsOptions) (*Result, error) {
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
	})

	since := c.resumePoint(log, opts)
	result := newResult(executionID, accountID, KindIncremental, Scope{Start: &since})

	log.WithFields(logrus.Fields{
		"since":           since.Format(time.RFC3339),
		"force_reprocess": opts.ForceReprocess,
	}).Info("Starting new-posts check")

	exec := retry.NewExecutor(c.retryPolicy, quota.NewTracker(c.quotaConfig), c.logger)

	var recent []instagram.Media
	listErr := exec.Do(ctx, "list-recent-media", func(ctx context.Context) error {
		fetched, err := c.api.ListRecentMedia(ctx, account.InstagramUserID, account.AccessToken, opts.RecentLimit)
		if err != nil {
			return err
		}
		recent = fetched
		return nil
	})
	result.APICallsMade++
	if listErr != nil {
		return nil, fmt.Errorf("failed to fetch recent media: %w", listErr)
	}

	newMedia := c.detectNewPosts(log, recent, since, opts.ForceReprocess)
	result.TotalItems = len(newMedia)

	if len(newMedia) == 0 {
		log.Info("No new posts found")
		result.finalize()
		c.recordRunIfClean(log, result)
		c.notify(ctx, result)
		return result, nil
	}

	log.WithField("new_posts", len(newMedia)).Info("Found new posts")

	for _, media := range newMedia {
		if err := ctx.Err(); err != nil {
			result.ErrorMessage = err.Error()
			c.notify(ctx, result.finalize())
			return result, err
		}
		c.processItem(ctx, exec, account, media, Options{IncludeMetrics: true}.normalized(), result)
	}

	result.finalize()
	log.WithFields(logrus.Fields{
		"total":    result.TotalItems,
		"success":  result.SuccessItems,
		"failed":   result.FailedItems,
		"duration": result.Duration().String(),
	}).Info("New-posts check completed")

	c.recordRunIfClean(log, result)
	c.notify(ctx, result)
	return result, nil
}

// resumePoint computes the "since" bound: the stored last run when one
// exists, otherwise a bounded lookback. Never "all time".
func (c *Collector) resumePoint(log *logrus.Entry, opts NewPostsOptions) time.Time {
	fallback := time.Now().Add(-time.Duration(opts.CheckHoursBack) * time.Hour)

	if c.tracker == nil || opts.ForceReprocess {
		return fallback
	}

	lastRun, ok, err := c.tracker.LastRun()
	if err != nil {
		log.WithError(err).Warn("Failed to read last-run record, using bounded lookback")
		return fallback
	}
	if !ok {
		log.WithField("hours_back", opts.CheckHoursBack).Info("No previous run recorded, using bounded lookback")
		return fallback
	}
	return lastRun
}

// detectNewPosts keeps media published after the bound that are not yet
// stored. ForceReprocess re-admits already-stored posts.
func (c *Collector) detectNewPosts(log *logrus.Entry, recent []instagram.Media, since time.Time, forceReprocess bool) []instagram.Media {
	var fresh []instagram.Media
	for _, m := range recent {
		postedAt, err := m.PostedAt()
		if err != nil {
			log.WithField("post_id", m.ID).Warn("Skipping media with unparseable timestamp")
			continue
		}
		if !postedAt.After(since) {
			continue
		}
		if !forceReprocess {
			existing, err := c.posts.FindByExternalID(m.ID)
			if err != nil {
				log.WithFields(logrus.Fields{
					"post_id": m.ID,
					"error":   err,
				}).Warn("Failed to check for existing post, treating as new")
			} else if existing != nil {
				continue
			}
		}
		fresh = append(fresh, m)
	}
	return fresh
}

// recordRunIfClean advances the resumption point only after a run with no
// run-level error. Per-item failures do not block the advance; the items
// themselves were attempted and will be overwritten idempotently if retried.
func (c *Collector) recordRunIfClean(log *logrus.Entry, result *Result) {
	if c.tracker == nil || result.ErrorMessage != "" {
		return
	}
	if err := c.tracker.RecordRun(result.StartedAt); err != nil {
		log.WithError(err).Error("Failed to record run timestamp")
	}
}
