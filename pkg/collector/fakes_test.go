package collector

import (
	"context"
	"time"

	"github.com/instalytics/collector/pkg/instagram"
	"github.com/instalytics/collector/pkg/store"
)

// fakeAPI serves scripted media and insights without the network.
type fakeAPI struct {
	media       []instagram.Media
	listErr     error
	insights    map[string]map[string]int
	insightsErr map[string]error

	listCalls    int
	recentCalls  int
	insightCalls int
}

func (f *fakeAPI) ListMedia(ctx context.Context, params instagram.ListMediaParams) ([]instagram.Media, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.media, nil
}

func (f *fakeAPI) ListRecentMedia(ctx context.Context, userID, accessToken string, limit int) ([]instagram.Media, error) {
	f.recentCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && limit < len(f.media) {
		return f.media[:limit], nil
	}
	return f.media, nil
}

func (f *fakeAPI) GetMediaInsights(ctx context.Context, mediaID, accessToken, mediaType string) (map[string]int, error) {
	f.insightCalls++
	if err := f.insightsErr[mediaID]; err != nil {
		return nil, err
	}
	if m, ok := f.insights[mediaID]; ok {
		return m, nil
	}
	return map[string]int{}, nil
}

// fakePostStore keeps posts and snapshots in maps keyed the way the real
// store's unique indexes are.
type fakePostStore struct {
	posts   map[string]*store.Post
	metrics map[uint]map[string]*store.PostMetrics
	missing []store.Post
	nextID  uint

	upsertErr      error
	saveMetricsErr error
	upserts        int
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{
		posts:   make(map[string]*store.Post),
		metrics: make(map[uint]map[string]*store.PostMetrics),
	}
}

func (f *fakePostStore) FindByExternalID(instagramPostID string) (*store.Post, error) {
	return f.posts[instagramPostID], nil
}

func (f *fakePostStore) Upsert(post *store.Post) (*store.Post, error) {
	f.upserts++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if existing, ok := f.posts[post.InstagramPostID]; ok {
		post.ID = existing.ID
	} else {
		f.nextID++
		post.ID = f.nextID
	}
	f.posts[post.InstagramPostID] = post
	return post, nil
}

func (f *fakePostStore) PostsMissingMetrics(accountID uint, since time.Time) ([]store.Post, error) {
	return f.missing, nil
}

func (f *fakePostStore) SaveMetrics(metrics *store.PostMetrics) error {
	if f.saveMetricsErr != nil {
		return f.saveMetricsErr
	}
	day := metrics.SnapshotDate.Format("2006-01-02")
	if f.metrics[metrics.PostID] == nil {
		f.metrics[metrics.PostID] = make(map[string]*store.PostMetrics)
	}
	f.metrics[metrics.PostID][day] = metrics
	return nil
}

func (f *fakePostStore) snapshotCount() int {
	n := 0
	for _, byDay := range f.metrics {
		n += len(byDay)
	}
	return n
}

// fakeAccountStore resolves one scripted account.
type fakeAccountStore struct {
	account *store.Account
}

func (f *fakeAccountStore) FindByExternalID(instagramUserID string) (*store.Account, error) {
	if f.account != nil && f.account.InstagramUserID == instagramUserID {
		return f.account, nil
	}
	return nil, nil
}

// fakeRunTracker records resumption points in memory.
type fakeRunTracker struct {
	lastRun  time.Time
	hasRun   bool
	recorded []time.Time
}

func (f *fakeRunTracker) LastRun() (time.Time, bool, error) {
	return f.lastRun, f.hasRun, nil
}

func (f *fakeRunTracker) RecordRun(t time.Time) error {
	f.recorded = append(f.recorded, t)
	f.lastRun = t
	f.hasRun = true
	return nil
}

// fakeNotifier captures delivered summaries.
type fakeNotifier struct {
	results []*Result
}

func (f *fakeNotifier) SendRunSummary(ctx context.Context, result *Result) {
	f.results = append(f.results, result)
}
