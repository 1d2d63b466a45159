// Package metrics provides OpenTelemetry metrics for serverbook.
package metrics // revive:disable-line:var-naming

import (
	"context"
)

// Store mutation operation attribute values.
const (
	OpLoad   = "load"
	OpUpsert = "upsert"
	OpRemove = "remove"
	OpClear  = "clear"
	OpRename = "rename"
	OpEvict  = "evict"
)

// StoreRecorder records store mutation metrics (counts, sizes, and
// persistence failures). Implementations are used by every store instance.
type StoreRecorder interface {
	// RecordMutation counts one completed mutation on the named store.
	RecordMutation(ctx context.Context, store, op string)
	// RecordSize records the store's entry count after a mutation.
	RecordSize(ctx context.Context, store string, size int64)
	// RecordPersistFailure counts a failed disk read or write. errType is
	// one of the ClassifyIOError values.
	RecordPersistFailure(ctx context.Context, store, op, errType string)
}
