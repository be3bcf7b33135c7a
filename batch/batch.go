// Package batch groups entries awaiting translation into bounded,
// order-preserving batches. Batching is deterministic: the same entries
// and size always produce the same boundaries, which is what makes
// pipeline re-runs idempotent.
package batch

import (
	"github.com/podraft/podraft/catalog"
	"github.com/podraft/podraft/config"
)

// DefaultSize is the default number of entries per batch.
const DefaultSize = 5

// Batch is a bounded slice of entries submitted to the backend in one
// call. Index is stable so results can be reassembled in original order
// even when batches complete out of order.
type Batch struct {
	Index   int
	Entries []*catalog.Entry
}

// Make splits entries into batches of at most size entries each,
// preserving order within and across batches. The final batch may be
// shorter. size < 1 is a configuration error.
func Make(entries []*catalog.Entry, size int) ([]Batch, error) {
	if size < 1 {
		return nil, &config.ConfigError{Field: "batch_size", Msg: "must be >= 1"}
	}

	var batches []Batch
	for start := 0; start < len(entries); start += size {
		end := start + size
		if end > len(entries) {
			end = len(entries)
		}
		batches = append(batches, Batch{
			Index:   len(batches),
			Entries: entries[start:end],
		})
	}
	return batches, nil
}
