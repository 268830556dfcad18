// Package extract provides the source extractors: paginated HTML catalogs
// (books, quotes), the address geocoding API, and the partner spreadsheet.
// Each variant hides its network, pagination, or file-parsing mechanics
// behind a single capability: produce a lazy, finite stream of raw
// records. Extractors never mutate shared state and never write to a
// sink; a failed fetch for one page or row surfaces on the error channel
// and does not abort the rest of the stream.
package extract

import (
	"context"

	"github.com/tributary-data/tributary/pkg/models"
)

// Stream is a lazy sequence of raw records. Records is closed when the
// source is exhausted; Errs carries recoverable per-page or per-result
// failures that were skipped, and is closed together with Records.
type Stream struct {
	Records <-chan models.RawRecord
	Errs    <-chan error
}

// Extractor produces a lazy, finite stream of raw records for one source
// kind. Fetch returns an error only for failures that make the whole
// source unusable (missing input file, systemic schema failure); partial
// failures are reported through the stream's error channel.
type Extractor interface {
	Name() string
	Fetch(ctx context.Context) (*Stream, error)
}
