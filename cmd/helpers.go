package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opengrants/triagency-cli/internal/fetcher"
	"github.com/opengrants/triagency-cli/internal/store"
)

// newDataset builds a CKAN dataset client from config.
func newDataset() *fetcher.Dataset {
	client := fetcher.NewHTTPClient(fetcher.Options{
		BaseURL:    cfg.Fetch.BaseURL,
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		RatePerSec: cfg.Fetch.RatePerSec,
	})
	return fetcher.NewDataset(client, cfg.Fetch.DatasetID, cfg.Fetch.ResourceID, cfg.Fetch.PageSize)
}

// initStore opens the configured store backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
