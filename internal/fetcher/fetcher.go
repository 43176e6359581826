// Package fetcher retrieves tri-agency grant records from the
// open.canada.ca CKAN datastore API.
package fetcher

import "context"

// TriAgencies are the owner_org codes of the three granting agencies, in
// the fixed order records are merged.
var TriAgencies = []string{"cihr-irsc", "nserc-crsng", "sshrc-crsh"}

// Page is one page of datastore records.
type Page struct {
	Records []map[string]any
	Total   int
}

// Client is the CKAN API surface the fetch layer consumes.
type Client interface {
	// DatastoreSearch returns one page of records for a resource,
	// filtered to a single owner_org.
	DatastoreSearch(ctx context.Context, resourceID, ownerOrg string, limit, offset int) (*Page, error)

	// PackageModified returns the dataset's metadata_modified stamp, used
	// to skip refetching an unchanged dataset.
	PackageModified(ctx context.Context, datasetID string) (string, error)
}
