package collector

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/instalytics/collector/pkg/instagram"
	"github.com/instalytics/collector/pkg/retry"
	"github.com/instalytics/collector/pkg/store"
)

var _ = Describe("CollectNewPosts", func() {
	var (
		api      *fakeAPI
		posts    *fakePostStore
		accounts *fakeAccountStore
		tracker  *fakeRunTracker
		notifier *fakeNotifier
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
			AccessToken:     "token",
		}}
		tracker = &fakeRunTracker{}
		notifier = &fakeNotifier{}
		logger := logrus.New()
		logger.SetLevel(logrus.PanicLevel)

		var err error
		coll, err = New(Deps{
			API:         api,
			Accounts:    accounts,
			Posts:       posts,
			RunTracker:  tracker,
			Notifier:    notifier,
			Logger:      logger,
			RetryPolicy: retry.Policy{MaxRetries: 1, BaseDelay: time.Millisecond},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("collects posts published after the recorded check", func() {
		tracker.lastRun = now.Add(-4 * time.Hour)
		tracker.hasRun = true
		api.media = []instagram.Media{
			mediaAt("fresh", now.Add(-time.Hour)),
			mediaAt("stale", now.Add(-6*time.Hour)),
		}

		result, err := coll.CollectNewPosts(context.Background(), "17841400000000001", NewPostsOptions{})
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Kind).To(Equal(KindIncremental))
		Expect(result.TotalItems).To(Equal(1))
		Expect(result.SuccessItems).To(Equal(1))
		Expect(posts.posts).To(HaveKey("fresh"))
		Expect(posts.posts).NotTo(HaveKey("stale"))
		// Snapshot comes with the post on an incremental run.
		Expect(posts.snapshotCount()).To(Equal(1))
	})

	It("uses the bounded lookback when no check is recorded", func() {
		api.media = []instagram.Media{
			mediaAt("recent", now.Add(-2*time.Hour)),
			mediaAt("old", now.Add(-20*time.Hour)),
		}

		result, err := coll.CollectNewPosts(context.Background(), "17841400000000001", NewPostsOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.TotalItems).To(Equal(1))
		Expect(posts.posts).To(HaveKey("recent"))
	})

	It("skips posts already stored", func() {
		_, err := posts.Upsert(&store.Post{InstagramPostID: "known", AccountID: 1})
		Expect(err).NotTo(HaveOccurred())
		api.media = []instagram.Media{
			mediaAt("known", now.Add(-time.Hour)),
			mediaAt("unknown", now.Add(-time.Hour)),
		}

		result, err := coll.CollectNewPosts(context.Background(), "17841400000000001", NewPostsOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.TotalItems).To(Equal(1))
		Expect(posts.posts).To(HaveKey("unknown"))
	})

	It("re-admits stored posts under force reprocess", func() {
		_, err := posts.Upsert(&store.Post{InstagramPostID: "known", AccountID: 1})
		Expect(err).NotTo(HaveOccurred())
		api.media = []instagram.Media{mediaAt("known", now.Add(-time.Hour))}

		result, err := coll.CollectNewPosts(context.Background(), "17841400000000001",
			NewPostsOptions{ForceReprocess: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.TotalItems).To(Equal(1))
	})

	Describe("resumption point", func() {
		It("advances to the run start after a clean run", func() {
			api.media = []instagram.Media{mediaAt("fresh", now.Add(-time.Hour))}

			result, err := coll.CollectNewPosts(context.Background(), "17841400000000001", NewPostsOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tracker.recorded).To(HaveLen(1))
			Expect(tracker.recorded[0].Equal(result.StartedAt)).To(BeTrue())
		})

		It("advances even when no new posts were found", func() {
			api.media = nil

			_, err := coll.CollectNewPosts(context.Background(), "17841400000000001", NewPostsOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tracker.recorded).To(HaveLen(1))
		})

		It("advances despite per-item failures", func() {
			api.media = []instagram.Media{mediaAt("fresh", now.Add(-time.Hour))}
			api.insightsErr["fresh"] = errors.New("media not found")

			result, err := coll.CollectNewPosts(context.Background(), "17841400000000001", NewPostsOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FailedItems).To(Equal(1))
			Expect(tracker.recorded).To(HaveLen(1))
		})

		It("does not advance when the listing fails", func() {
			api.listErr = errors.New("invalid token")

			result, err := coll.CollectNewPosts(context.Background(), "17841400000000001", NewPostsOptions{})
			Expect(err).To(HaveOccurred())
			Expect(result).To(BeNil())
			Expect(tracker.recorded).To(BeEmpty())
		})
	})

	It("fails for an unknown account", func() {
		_, err := coll.CollectNewPosts(context.Background(), "nobody", NewPostsOptions{})
		Expect(err).To(HaveOccurred())
		Expect(api.recentCalls).To(BeZero())
	})
})
