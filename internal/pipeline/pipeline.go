// Package pipeline wires the engine together: one source extractor per
// invocation, the record transformer, the dedup index, and the dual-sink
// writer, in strict downstream order. Processing is single-threaded: one
// record is fully transformed, deduplicated, and written before the next
// is taken, so per-table key admission order matches write order.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/config"
	"github.com/tributary-data/tributary/pkg/dedup"
	"github.com/tributary-data/tributary/pkg/errors"
	"github.com/tributary-data/tributary/pkg/extract"
	"github.com/tributary-data/tributary/pkg/models"
	"github.com/tributary-data/tributary/pkg/transform"
)

// Source selectors accepted by Run.
const (
	SourceBooks    = "books"
	SourceQuotes   = "quotes"
	SourceAPI      = "api"
	SourcePartners = "partners"
)

// Sources lists the selectors in the order RunAll processes them.
var Sources = []string{SourceBooks, SourceQuotes, SourceAPI, SourcePartners}

// sourceTables maps source selectors to destination tables.
var sourceTables = map[string]string{
	SourceBooks:    models.TableBooks,
	SourceQuotes:   models.TableQuotes,
	SourceAPI:      models.TableAddresses,
	SourcePartners: models.TablePartners,
}

// ArtifactStore is the object-store surface the pipeline needs.
type ArtifactStore interface {
	PutArtifact(ctx context.Context, artifact *models.Artifact) (string, error)
	PutExport(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// RowStore is the warehouse surface the pipeline needs.
type RowStore interface {
	UpsertRow(ctx context.Context, row models.Row) error
	ExistingKeys(ctx context.Context, table string) ([]string, error)
}

// Options are the per-invocation parameters resolved by the CLI.
type Options struct {
	// Pages bounds catalog pagination
	Pages int
	// Query and Limit drive the geocoding source
	Query string
	Limit int
	// PartnersFile is the partner spreadsheet path
	PartnersFile string
	// GeocodePartners enriches partner rows with coordinates from the
	// address API before transformation
	GeocodePartners bool
	// Export uploads CSV and JSON snapshots of processed rows after a
	// successful run (requires the object store)
	Export bool
}

// Pipeline is the orchestrator for one or more source invocations.
// Either sink may be nil, which disables writes to it; extraction and
// transformation still run so dry runs stay useful.
type Pipeline struct {
	cfg         *config.Config
	transformer *transform.Transformer
	fetcher     *extract.Fetcher
	geocoder    *extract.GeocodeClient
	artifacts   ArtifactStore
	warehouse   RowStore
	logger      *zap.Logger

	// processed accumulates written rows per source for the export step
	processed map[string][]models.Row
}

// New creates a pipeline over the given sinks.
func New(cfg *config.Config, artifacts ArtifactStore, warehouse RowStore, logger *zap.Logger) *Pipeline {
	scrape := cfg.Scrape
	return &Pipeline{
		cfg:         cfg,
		transformer: transform.New(cfg.Transform.GBPToEUR, cfg.Transform.MaxPriceGBP),
		fetcher: extract.NewFetcher(
			scrape.Timeout, scrape.Delay, scrape.UserAgent,
			extract.DefaultRetryPolicy(scrape.RetryAttempts),
		),
		geocoder: extract.NewGeocodeClient(
			cfg.Geocoder.BaseURL, scrape.UserAgent, cfg.Geocoder.Timeout,
			cfg.Geocoder.RetryAttempts, cfg.Geocoder.RateLimitPerSec, logger,
		),
		artifacts: artifacts,
		warehouse: warehouse,
		logger:    logger.With(zap.String("component", "pipeline")),
		processed: make(map[string][]models.Row),
	}
}

// Run processes one source to completion and returns its summary. The
// run fails as a whole on sink unavailability or a systemic schema
// failure; individual malformed records and lost pages are counted and
// skipped.
func (p *Pipeline) Run(ctx context.Context, source string, opts Options) (*Summary, error) {
	start := time.Now()
	table, ok := sourceTables[source]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown source %q", source)
	}

	log := p.logger.With(zap.String("source", source))
	log.Info("run started", zap.Int("pages", opts.Pages), zap.String("table", table))

	// The run owns its stream: cancelling on exit releases the extractor's
	// producer goroutine, which otherwise stays blocked on its record
	// channel when the run aborts mid-stream.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	extractor, err := p.extractor(source, opts)
	if err != nil {
		return nil, err
	}

	index := dedup.NewIndex()
	if p.warehouse != nil {
		keys, err := p.warehouse.ExistingKeys(ctx, table)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to seed dedup index")
		}
		index.Seed(table, keys)
		log.Debug("dedup index seeded", zap.Int("keys", len(keys)))
	}

	stream, err := extractor.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	summary := newSummary(source)
	if err := p.consume(ctx, source, table, stream, index, summary, opts, log); err != nil {
		return summary, err
	}

	// Every record dropping with the same shape points at the source
	// markup or file schema, not at individual records.
	if summary.Extracted > 0 && summary.Admitted == 0 && summary.Duplicates == 0 && summary.SkippedTotal() == summary.Extracted {
		return summary, errors.New(errors.ErrorTypeSchema, "every extracted record was malformed").
			WithDetail("source", source).
			WithDetail("extracted", summary.Extracted)
	}

	if opts.Export && p.artifacts != nil {
		if err := p.exportRun(ctx, source, log); err != nil {
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	log.Info("run completed",
		zap.Int("extracted", summary.Extracted),
		zap.Int("admitted", summary.Admitted),
		zap.Int("written", summary.Written),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("skipped", summary.SkippedTotal()),
		zap.Int("fetch_errors", summary.FetchErrors),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// RunAll processes every source in order, stopping at the first fatal
// failure. Summaries for completed sources are returned either way.
func (p *Pipeline) RunAll(ctx context.Context, opts Options) ([]*Summary, error) {
	summaries := make([]*Summary, 0, len(Sources))
	for _, source := range Sources {
		summary, err := p.Run(ctx, source, opts)
		if summary != nil {
			summaries = append(summaries, summary)
		}
		if err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

// consume drives the record loop: transform, admit, artifact upload,
// warehouse write, in that order for each record.
func (p *Pipeline) consume(ctx context.Context, source, table string, stream *extract.Stream, index *dedup.Index, summary *Summary, opts Options, log *zap.Logger) error {
	records, errs := stream.Records, stream.Errs
	for records != nil || errs != nil {
		select {
		case rec, ok := <-records:
			if !ok {
				records = nil
				continue
			}
			summary.Extracted++
			if err := p.process(ctx, source, table, rec, index, summary, opts, log); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				summary.FetchErrors++
				log.Warn("partial extraction failure", zap.Error(err))
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// process handles a single raw record end to end. Drop errors are
// counted and swallowed; sink errors abort the run.
func (p *Pipeline) process(ctx context.Context, source, table string, rec models.RawRecord, index *dedup.Index, summary *Summary, opts Options, log *zap.Logger) error {
	if source == SourcePartners && opts.GeocodePartners {
		p.enrichPartner(ctx, rec, log)
	}

	row, err := p.transform(source, rec)
	if err != nil {
		if reason, ok := transform.AsDrop(err); ok {
			summary.Skipped[reason]++
			log.Debug("record dropped", zap.String("reason", reason))
			return nil
		}
		return err
	}

	if !index.ShouldAdmit(table, row.Key()) {
		summary.Duplicates++
		return nil
	}
	summary.Admitted++

	// Artifact first: a warehouse row must never reference an object
	// that is not durably stored.
	if book, ok := row.(*models.Book); ok && p.artifacts != nil {
		if err := p.uploadCover(ctx, book, summary, log); err != nil {
			return err
		}
	}

	if p.warehouse != nil {
		if err := p.warehouse.UpsertRow(ctx, row); err != nil {
			return err
		}
		summary.Written++
	}

	p.processed[source] = append(p.processed[source], row)
	return nil
}

func (p *Pipeline) transform(source string, rec models.RawRecord) (models.Row, error) {
	switch source {
	case SourceBooks:
		return p.transformer.Book(rec)
	case SourceQuotes:
		return p.transformer.Quote(rec)
	case SourceAPI:
		return p.transformer.Address(rec)
	case SourcePartners:
		return p.transformer.Partner(rec)
	default:
		return nil, errors.Newf(errors.ErrorTypeInternal, "no transformer for source %q", source)
	}
}

// uploadCover downloads the cover image and stores it under the book's
// deterministic artifact key. A failed download degrades to a row
// without an artifact reference; a failed upload means the object store
// is unavailable and fails the run.
func (p *Pipeline) uploadCover(ctx context.Context, book *models.Book, summary *Summary, log *zap.Logger) error {
	if book.ImageURL == "" {
		return nil
	}
	body, err := p.fetcher.Get(ctx, book.ImageURL)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("cover download failed", zap.String("sku", book.SKU), zap.Error(err))
		return nil
	}

	ref, err := p.artifacts.PutArtifact(ctx, &models.Artifact{
		Key:         models.ArtifactKey(SourceBooks, book.SKU, "jpg"),
		ContentType: "image/jpeg",
		Body:        body,
	})
	if err != nil {
		return err
	}
	book.ImageRef = ref
	summary.Artifacts++
	return nil
}

// enrichPartner resolves the partner's postal address to coordinates
// before transformation. Lookup failures leave the coordinates empty;
// they never fail the record.
func (p *Pipeline) enrichPartner(ctx context.Context, rec models.RawRecord, log *zap.Logger) {
	parts := make([]string, 0, 3)
	for _, field := range []string{"adresse", "code_postal", "ville"} {
		if v := rec.String(field); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return
	}

	results, err := p.geocoder.Search(ctx, strings.Join(parts, " "), 1)
	if err != nil || len(results) == 0 {
		log.Debug("partner geocoding failed", zap.Error(err))
		return
	}
	if lat, ok := results[0].Float("latitude"); ok {
		rec["latitude"] = lat
	}
	if lon, ok := results[0].Float("longitude"); ok {
		rec["longitude"] = lon
	}
}

func (p *Pipeline) extractor(source string, opts Options) (extract.Extractor, error) {
	switch source {
	case SourceBooks:
		return extract.NewBooksExtractor(p.cfg.Scrape.BooksURL, opts.Pages, p.fetcher, p.logger), nil
	case SourceQuotes:
		return extract.NewQuotesExtractor(p.cfg.Scrape.QuotesURL, opts.Pages, p.fetcher, p.logger), nil
	case SourceAPI:
		if opts.Query == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "the api source requires a query")
		}
		return extract.NewGeocodeExtractor(p.geocoder, opts.Query, opts.Limit), nil
	case SourcePartners:
		return extract.NewPartnersExtractor(opts.PartnersFile, p.logger), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown source %q", source)
	}
}
