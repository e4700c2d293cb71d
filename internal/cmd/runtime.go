package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/gorm"

	"github.com/instalytics/collector/pkg/collector"
	"github.com/instalytics/collector/pkg/db"
	"github.com/instalytics/collector/pkg/instagram"
	"github.com/instalytics/collector/pkg/notify"
	"github.com/instalytics/collector/pkg/store"
)

// runtime holds the collaborators a subcommand needs. Built fresh per
// invocation; nothing here survives the process.
type runtime struct {
	db        *gorm.DB
	api       *instagram.Client
	accounts  *store.AccountStore
	posts     *store.PostStore
	stats     *store.StatsStore
	notifier  *notify.Notifier
	collector *collector.Collector
}

// buildRuntime connects the database, constructs the API client and wires
// the collector. tracker may be nil for modes that do not resume.
func buildRuntime(tracker collector.RunTracker) (*runtime, error) {
	database, err := db.SetupDatabase(log)
	if err != nil {
		return nil, err
	}

	apiConfig, err := instagram.NewConfig()
	if err != nil {
		return nil, err
	}
	apiConfig.Logger = log

	client, err := instagram.NewClient(apiConfig)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		db:       database,
		api:      client,
		accounts: store.NewAccountStore(database, log),
		posts:    store.NewPostStore(database, log),
		stats:    store.NewStatsStore(database, log),
		notifier: notify.New(notify.NewConfig(log)),
	}

	coll, err := collector.New(collector.Deps{
		API:        rt.api,
		Accounts:   rt.accounts,
		Posts:      rt.posts,
		RunTracker: tracker,
		Notifier:   rt.notifier,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}
	rt.collector = coll

	return rt, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	return ctx, cancel
}
