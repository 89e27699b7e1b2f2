// Package recordstore defines the generic key-indexed tabular storage the
// core runs against. The contract is deliberately weak: find-by-column,
// append, delete-by-identity, and scan, with no transactions, no row locks,
// and no conditional writes. Any tabular or document store can satisfy it,
// which is exactly why callers (the token manager in particular) must bring
// their own mutual exclusion.
package recordstore

import "context"

// Row is one record in a collection. ID is the store-assigned identity used
// for deletes; Values maps column names to cell values, all strings, the way
// a spreadsheet row would.
type Row struct {
	ID     string
	Values map[string]string
}

// Get returns the value for a column, or "" when the column is absent.
func (r Row) Get(column string) string {
	return r.Values[column]
}

// Store is the record store adapter consumed by the core.
//
// Error contract: Find and Delete return sentinel.ErrNotFound (possibly
// wrapped) when no row matches; infrastructure failures are returned wrapped
// with context, with sentinel.ErrUnavailable wrapped in when the backing
// connection is down.
type Store interface {
	// Find returns the first row whose column equals value, in insertion
	// order.
	Find(ctx context.Context, collection, column, value string) (Row, error)
	// Append adds a row to the end of a collection and returns it with its
	// assigned identity.
	Append(ctx context.Context, collection string, values map[string]string) (Row, error)
	// Delete removes the row with the given identity. Deleting a row that no
	// longer exists reports sentinel.ErrNotFound; callers rely on this to
	// detect a lost consume race.
	Delete(ctx context.Context, collection, rowID string) error
	// Scan returns all rows of a collection in insertion order.
	Scan(ctx context.Context, collection string) ([]Row, error)
	// Health reports whether the backing store is reachable.
	Health(ctx context.Context) error
}

func cloneValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
