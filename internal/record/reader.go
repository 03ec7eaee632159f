package record

import (
	"slices"

	"github.com/roach88/layersync/internal/entity"
)

// Reader converts raw entities into records.
type Reader interface {
	Read(entities ...*entity.Entity) ReadResult
}

// ReadResult is the outcome of a Read. When Success is false Records is empty.
type ReadResult struct {
	Records []*Record
	Success bool
	Total   int
}

// LayerReader builds one record per entity.
type LayerReader struct {
	ids    entity.IDGenerator
	synced []string
}

// ReaderOption configures a LayerReader.
type ReaderOption func(*LayerReader)

// WithSynchronizedProperties sets the property list every record carries.
func WithSynchronizedProperties(keys ...string) ReaderOption {
	return func(r *LayerReader) {
		r.synced = slices.Clone(keys)
	}
}

// WithIDGenerator sets the record ID source. Default is UUIDv7.
func WithIDGenerator(gen entity.IDGenerator) ReaderOption {
	return func(r *LayerReader) {
		r.ids = gen
	}
}

// NewLayerReader creates a reader with the given options.
func NewLayerReader(opts ...ReaderOption) *LayerReader {
	r := &LayerReader{
		ids:    entity.UUIDv7Generator{},
		synced: slices.Clone(DefaultSynchronizedProperties),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read returns one record per entity, in order.
// A nil entity fails the whole batch.
func (r *LayerReader) Read(entities ...*entity.Entity) ReadResult {
	records := make([]*Record, 0, len(entities))
	for _, e := range entities {
		if e == nil {
			return ReadResult{}
		}
		records = append(records, New(r.ids.Generate(), e, r.synced))
	}
	return ReadResult{Records: records, Success: true, Total: len(records)}
}
