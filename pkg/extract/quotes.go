package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/errors"
	"github.com/tributary-data/tributary/pkg/models"
)

// QuotesExtractor scrapes the paginated quotes catalog. Each item yields
// a raw record with text, author, and tags.
type QuotesExtractor struct {
	baseURL  string
	maxPages int
	fetcher  *Fetcher
	logger   *zap.Logger
}

// NewQuotesExtractor creates a quotes catalog extractor for pages 1..maxPages.
func NewQuotesExtractor(baseURL string, maxPages int, f *Fetcher, logger *zap.Logger) *QuotesExtractor {
	return &QuotesExtractor{
		baseURL:  strings.TrimSuffix(baseURL, "/") + "/",
		maxPages: maxPages,
		fetcher:  f,
		logger:   logger.With(zap.String("extractor", "quotes")),
	}
}

func (e *QuotesExtractor) Name() string { return "quotes" }

// Fetch streams quotes page by page with the same pagination contract as
// the books extractor: an empty or missing page ends the catalog, any
// other page failure is skipped.
func (e *QuotesExtractor) Fetch(ctx context.Context) (*Stream, error) {
	records := make(chan models.RawRecord)
	errs := make(chan error, e.maxPages)

	go func() {
		defer close(records)
		defer close(errs)

		for page := 1; page <= e.maxPages; page++ {
			pageURL := e.baseURL
			if page > 1 {
				pageURL = fmt.Sprintf("%spage/%d/", e.baseURL, page)
			}
			doc, err := e.fetcher.getDocument(ctx, pageURL)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.IsType(err, errors.ErrorTypeNotFound) {
					return
				}
				e.logger.Warn("page fetch failed, skipping", zap.Int("page", page), zap.Error(err))
				errs <- err
				continue
			}

			items := doc.Find("div.quote")
			if items.Length() == 0 {
				e.logger.Debug("empty page, stopping", zap.Int("page", page))
				return
			}

			stop := false
			items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
				tags := make([]string, 0, 4)
				item.Find(".tags .tag").Each(func(_ int, tag *goquery.Selection) {
					tags = append(tags, tag.Text())
				})
				rec := models.RawRecord{
					"text":   item.Find("span.text").Text(),
					"author": item.Find("small.author").Text(),
					"tags":   tags,
				}
				select {
				case records <- rec:
					return true
				case <-ctx.Done():
					stop = true
					return false
				}
			})
			if stop {
				return
			}
		}
	}()

	return &Stream{Records: records, Errs: errs}, nil
}
