package fetcher

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opengrants/triagency-cli/internal/table"
)

// Dataset fetches the complete tri-agency grant dataset, one agency at a
// time, and assembles the records into a table.
type Dataset struct {
	client     Client
	resourceID string
	datasetID  string
	pageSize   int
}

// NewDataset creates a Dataset fetcher. A non-positive page size defaults
// to the datastore maximum of 1000.
func NewDataset(client Client, datasetID, resourceID string, pageSize int) *Dataset {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Dataset{
		client:     client,
		resourceID: resourceID,
		datasetID:  datasetID,
		pageSize:   pageSize,
	}
}

// Modified returns the dataset's metadata_modified stamp.
func (d *Dataset) Modified(ctx context.Context) (string, error) {
	return d.client.PackageModified(ctx, d.datasetID)
}

// FetchAll retrieves every record for the three agencies, fetching
// agencies in parallel, and merges them into a single table in fixed
// agency order.
func (d *Dataset) FetchAll(ctx context.Context) (*table.Table, error) {
	log := zap.L().With(zap.String("component", "fetcher.dataset"))

	var mu sync.Mutex
	byAgency := make(map[string][]map[string]any, len(TriAgencies))

	g, gCtx := errgroup.WithContext(ctx)
	for _, agency := range TriAgencies {
		g.Go(func() error {
			records, err := d.fetchAgency(gCtx, agency)
			if err != nil {
				return err
			}
			mu.Lock()
			byAgency[agency] = records
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []map[string]any
	for _, agency := range TriAgencies {
		all = append(all, byAgency[agency]...)
	}

	log.Info("fetch complete", zap.Int("records", len(all)))
	return recordsToTable(all)
}

// fetchAgency pages through the datastore for one agency.
func (d *Dataset) fetchAgency(ctx context.Context, agency string) ([]map[string]any, error) {
	log := zap.L().With(
		zap.String("component", "fetcher.dataset"),
		zap.String("agency", agency),
	)

	var records []map[string]any
	offset := 0
	for {
		page, err := d.client.DatastoreSearch(ctx, d.resourceID, agency, d.pageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page.Records) == 0 {
			break
		}

		records = append(records, page.Records...)
		offset += len(page.Records)
		log.Debug("fetched page",
			zap.Int("fetched", offset),
			zap.Int("total", page.Total),
		)

		if len(page.Records) < d.pageSize {
			break
		}
	}

	log.Info("agency fetch complete", zap.Int("records", len(records)))
	return records, nil
}

// recordsToTable builds a table from JSON records. Columns are the sorted
// union of record keys so the snapshot layout is deterministic.
func recordsToTable(records []map[string]any) (*table.Table, error) {
	colSet := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			colSet[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(colSet))
	for k := range colSet {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	t, err := table.New(cols...)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		t.AppendRowMap(rec)
	}
	return t, nil
}
