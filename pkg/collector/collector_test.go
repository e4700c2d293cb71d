package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/instalytics/collector/pkg/instagram"
	"github.com/instalytics/collector/pkg/retry"
	"github.com/instalytics/collector/pkg/store"
)

const stamp = "2006-01-02T15:04:05-0700"

func mediaAt(id string, postedAt time.Time) instagram.Media {
	return instagram.Media{
		ID:        id,
		MediaType: "IMAGE",
		Timestamp: postedAt.Format(stamp),
		Permalink: "https://instagram.com/p/" + id,
	}
}

var _ = Describe("Collector", func() {
	var (
		api      *fakeAPI
		posts    *fakePostStore
		accounts *fakeAccountStore
		notifier *fakeNotifier
		logger   *logrus.Logger
		coll     *Collector
		now      time.Time
	)

	BeforeEach(func() {
		now = time.Now().UTC()
		api = &fakeAPI{insights: map[string]map[string]int{}, insightsErr: map[string]error{}}
		posts = newFakePostStore()
		accounts = &fakeAccountStore{account: &store.Account{
			ID:              1,
			InstagramUserID: "17841400000000001",
			Username:        "brand",
			AccessToken:     "token",
		}}
		notifier = &fakeNotifier{}
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)

		var err error
		coll, err = New(Deps{
			API:         api,
			Accounts:    accounts,
			Posts:       posts,
			Notifier:    notifier,
			Logger:      logger,
			RetryPolicy: retry.Policy{MaxRetries: 1, BaseDelay: time.Millisecond},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	// runOpts keeps the inter-chunk pause out of the test clock.
	runOpts := func(opts Options) Options {
		if opts.InterChunkDelay == 0 {
			opts.InterChunkDelay = -1
		}
		return opts
	}

	Describe("New", func() {
		It("rejects missing collaborators", func() {
			_, err := New(Deps{Accounts: accounts, Posts: posts})
			Expect(err).To(HaveOccurred())
			_, err = New(Deps{API: api, Posts: posts})
			Expect(err).To(HaveOccurred())
			_, err = New(Deps{API: api, Accounts: accounts})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Collect", func() {
		It("rejects an inverted date range before any network call", func() {
			end := now.AddDate(0, 0, -7)
			scope := ScopeRange(now, end)

			result, err := coll.Collect(context.Background(), "17841400000000001", scope, runOpts(Options{}))
			Expect(err).To(MatchError(ErrInvalidScope))
			Expect(result).To(BeNil())
			Expect(api.listCalls).To(BeZero())
		})

		It("fails for an unknown account", func() {
			_, err := coll.Collect(context.Background(), "nobody", ScopeAll(), runOpts(Options{}))
			Expect(err).To(HaveOccurred())
			Expect(api.listCalls).To(BeZero())
		})

		It("stores every post with a metrics snapshot", func() {
			api.media = []instagram.Media{
				mediaAt("p1", now.Add(-1*time.Hour)),
				mediaAt("p2", now.Add(-2*time.Hour)),
				mediaAt("p3", now.Add(-3*time.Hour)),
			}
			api.insights["p1"] = map[string]int{"likes": 10, "reach": 100}

			result, err := coll.Collect(context.Background(), "17841400000000001", ScopeAll(),
				runOpts(Options{IncludeMetrics: true}))
			Expect(err).NotTo(HaveOccurred())

			Expect(result.TotalItems).To(Equal(3))
			Expect(result.ProcessedItems).To(Equal(3))
			Expect(result.SuccessItems).To(Equal(3))
			Expect(result.FailedItems).To(BeZero())
			Expect(result.Degraded()).To(BeFalse())
			Expect(result.CompletedAt).NotTo(BeZero())

			Expect(posts.posts).To(HaveLen(3))
			Expect(posts.snapshotCount()).To(Equal(3))
			saved := posts.posts["p1"]
			Expect(posts.metrics[saved.ID]).NotTo(BeEmpty())
			for _, snap := range posts.metrics[saved.ID] {
				Expect(snap.Likes).To(Equal(10))
				Expect(snap.Reach).To(Equal(100))
			}

			// One enumeration call plus one insights call per post.
			Expect(result.APICallsMade).To(Equal(4))
			Expect(notifier.results).To(HaveLen(1))
		})

		It("absorbs per-item failures without failing the run", func() {
			for i := 1; i <= 10; i++ {
				api.media = append(api.media, mediaAt(fmt.Sprintf("p%d", i), now.Add(-time.Duration(i)*time.Hour)))
			}
			api.insightsErr["p3"] = errors.New("invalid parameter: metric")
			api.insightsErr["p7"] = errors.New("media not found")

			result, err := coll.Collect(context.Background(), "17841400000000001", ScopeAll(),
				runOpts(Options{IncludeMetrics: true}))
			Expect(err).NotTo(HaveOccurred())

			Expect(result.TotalItems).To(Equal(10))
			Expect(result.ProcessedItems).To(Equal(10))
			Expect(result.SuccessItems).To(Equal(8))
			Expect(result.FailedItems).To(Equal(2))
			Expect(result.ErrorMessage).To(BeEmpty())
			Expect(result.Degraded()).To(BeTrue())
			Expect(result.Failures).To(HaveLen(2))
			Expect(result.SuccessItems + result.FailedItems).To(Equal(result.ProcessedItems))
		})

		It("returns the enumeration failure as a run-level error", func() {
			api.listErr = errors.New("permission denied")

			result, err := coll.Collect(context.Background(), "17841400000000001", ScopeAll(), runOpts(Options{}))
			Expect(err).To(HaveOccurred())
			Expect(result).To(BeNil())
			Expect(posts.upserts).To(BeZero())
		})

		It("filters posts outside the date range", func() {
			api.media = []instagram.Media{
				mediaAt("in-1", now.AddDate(0, 0, -2)),
				mediaAt("out-old", now.AddDate(0, 0, -40)),
				mediaAt("in-2", now.AddDate(0, 0, -5)),
			}

			result, err := coll.Collect(context.Background(), "17841400000000001", ScopeDaysBack(7), runOpts(Options{}))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalItems).To(Equal(2))
			Expect(posts.posts).To(HaveKey("in-1"))
			Expect(posts.posts).To(HaveKey("in-2"))
			Expect(posts.posts).NotTo(HaveKey("out-old"))
		})

		It("skips media with unparseable timestamps", func() {
			api.media = []instagram.Media{
				mediaAt("ok", now.Add(-time.Hour)),
				{ID: "broken", MediaType: "IMAGE", Timestamp: "not-a-time"},
			}

			result, err := coll.Collect(context.Background(), "17841400000000001", ScopeDaysBack(7), runOpts(Options{}))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalItems).To(Equal(1))
		})

		It("finishes the chunk that crosses the item cap", func() {
			for i := 1; i <= 6; i++ {
				api.media = append(api.media, mediaAt(fmt.Sprintf("p%d", i), now.Add(-time.Duration(i)*time.Hour)))
			}

			result, err := coll.Collect(context.Background(), "17841400000000001", ScopeAll(),
				runOpts(Options{ChunkSize: 2, MaxPosts: 3}))
			Expect(err).NotTo(HaveOccurred())

			// Two full chunks run (the second crosses the cap), the third never starts.
			Expect(result.ProcessedItems).To(Equal(4))
			Expect(posts.posts).To(HaveLen(4))
		})

		It("reports an empty scope as success", func() {
			api.media = nil

			result, err := coll.Collect(context.Background(), "17841400000000001", ScopeAll(), runOpts(Options{}))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalItems).To(BeZero())
			Expect(result.Degraded()).To(BeFalse())
			Expect(notifier.results).To(HaveLen(1))
		})

		It("writes nothing on a dry run", func() {
			api.media = []instagram.Media{mediaAt("p1", now.Add(-time.Hour))}

			result, err := coll.Collect(context.Background(), "17841400000000001", ScopeAll(),
				runOpts(Options{IncludeMetrics: true, DryRun: true}))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SuccessItems).To(Equal(1))
			Expect(posts.upserts).To(BeZero())
			Expect(api.insightCalls).To(BeZero())
		})

		It("is idempotent across repeated runs", func() {
			api.media = []instagram.Media{
				mediaAt("p1", now.Add(-1*time.Hour)),
				mediaAt("p2", now.Add(-2*time.Hour)),
			}

			_, err := coll.Collect(context.Background(), "17841400000000001", ScopeAll(), runOpts(Options{}))
			Expect(err).NotTo(HaveOccurred())
			firstID := posts.posts["p1"].ID

			_, err = coll.Collect(context.Background(), "17841400000000001", ScopeAll(), runOpts(Options{}))
			Expect(err).NotTo(HaveOccurred())

			Expect(posts.posts).To(HaveLen(2))
			Expect(posts.posts["p1"].ID).To(Equal(firstID))
		})

		It("aborts cleanly when the context is cancelled", func() {
			for i := 1; i <= 4; i++ {
				api.media = append(api.media, mediaAt(fmt.Sprintf("p%d", i), now.Add(-time.Duration(i)*time.Hour)))
			}
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			result, err := coll.Collect(ctx, "17841400000000001", ScopeAll(), runOpts(Options{}))
			Expect(err).To(MatchError(context.Canceled))
			Expect(result).NotTo(BeNil())
			Expect(result.ErrorMessage).NotTo(BeEmpty())
		})
	})

	Describe("missing-metrics collection", func() {
		It("backfills snapshots dated at publish time", func() {
			postedAt := now.AddDate(0, 0, -10)
			posts.missing = []store.Post{{
				ID:              7,
				AccountID:       1,
				InstagramPostID: "p7",
				MediaType:       "IMAGE",
				PostedAt:        postedAt,
			}}
			api.insights["p7"] = map[string]int{"likes": 5, "reach": 50}

			result, err := coll.Collect(context.Background(), "17841400000000001", ScopeMissingMetrics(), runOpts(Options{}))
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Kind).To(Equal(KindMissingMetrics))
			Expect(result.SuccessItems).To(Equal(1))
			Expect(api.listCalls).To(BeZero())

			day := postedAt.Format("2006-01-02")
			snap := posts.metrics[7][day]
			Expect(snap).NotTo(BeNil())
			Expect(snap.Likes).To(Equal(5))
		})

		It("reports no candidates as success", func() {
			result, err := coll.Collect(context.Background(), "17841400000000001", ScopeMissingMetrics(), runOpts(Options{}))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.TotalItems).To(BeZero())
		})
	})
})
