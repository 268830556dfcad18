package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/errors"
	"github.com/tributary-data/tributary/pkg/models"
)

// ratingWords maps the star-rating CSS class to its numeric value.
var ratingWords = map[string]int{
	"One":   1,
	"Two":   2,
	"Three": 3,
	"Four":  4,
	"Five":  5,
}

// BooksExtractor scrapes the paginated book catalog. Each item yields a
// raw record with title, price text, rating, category, image URL, and
// product URL. The category lives on the product detail page, so one
// extra fetch per item is made; a failed detail fetch degrades the
// category to "Unknown" rather than dropping the item.
type BooksExtractor struct {
	baseURL  string
	maxPages int
	fetcher  *Fetcher
	logger   *zap.Logger
}

// NewBooksExtractor creates a books catalog extractor for pages 1..maxPages.
func NewBooksExtractor(baseURL string, maxPages int, f *Fetcher, logger *zap.Logger) *BooksExtractor {
	return &BooksExtractor{
		baseURL:  strings.TrimSuffix(baseURL, "/") + "/",
		maxPages: maxPages,
		fetcher:  f,
		logger:   logger.With(zap.String("extractor", "books")),
	}
}

func (e *BooksExtractor) Name() string { return "books" }

// Fetch streams catalog items page by page, stopping early when a page
// yields zero items or does not exist (end of catalog reached before
// maxPages). A page that fails for any other reason is skipped.
func (e *BooksExtractor) Fetch(ctx context.Context) (*Stream, error) {
	records := make(chan models.RawRecord)
	errs := make(chan error, e.maxPages)

	go func() {
		defer close(records)
		defer close(errs)

		for page := 1; page <= e.maxPages; page++ {
			pageURL := fmt.Sprintf("%scatalogue/page-%d.html", e.baseURL, page)
			doc, err := e.fetcher.getDocument(ctx, pageURL)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.IsType(err, errors.ErrorTypeNotFound) {
					// Catalog ended before maxPages.
					e.logger.Debug("catalog exhausted", zap.Int("page", page))
					return
				}
				e.logger.Warn("page fetch failed, skipping", zap.Int("page", page), zap.Error(err))
				errs <- err
				continue
			}

			items := doc.Find("article.product_pod")
			if items.Length() == 0 {
				e.logger.Debug("empty page, stopping", zap.Int("page", page))
				return
			}

			stop := false
			items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
				select {
				case records <- e.parseItem(ctx, pageURL, item):
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

func (e *BooksExtractor) parseItem(ctx context.Context, pageURL string, item *goquery.Selection) models.RawRecord {
	link := item.Find("h3 a")
	title, _ := link.Attr("title")
	href, _ := link.Attr("href")
	productURL := resolveURL(pageURL, href)

	imgSrc, _ := item.Find("img").Attr("src")
	imageURL := resolveURL(pageURL, imgSrc)

	rating := 0
	if classes, ok := item.Find("p.star-rating").Attr("class"); ok {
		for _, c := range strings.Fields(classes) {
			if r, ok := ratingWords[c]; ok {
				rating = r
				break
			}
		}
	}

	return models.RawRecord{
		"title":       title,
		"price":       strings.TrimSpace(item.Find(".price_color").Text()),
		"rating":      rating,
		"category":    e.fetchCategory(ctx, productURL),
		"image_url":   imageURL,
		"product_url": productURL,
	}
}

// fetchCategory reads the breadcrumb on the product detail page. The
// category is the second-to-last crumb (the last is the title itself).
func (e *BooksExtractor) fetchCategory(ctx context.Context, productURL string) string {
	if productURL == "" {
		return "Unknown"
	}
	doc, err := e.fetcher.getDocument(ctx, productURL)
	if err != nil {
		e.logger.Debug("category fetch failed", zap.String("url", productURL), zap.Error(err))
		return "Unknown"
	}
	crumbs := doc.Find("ul.breadcrumb li")
	if crumbs.Length() < 2 {
		return "Unknown"
	}
	category := strings.TrimSpace(crumbs.Eq(crumbs.Length() - 2).Text())
	if category == "" {
		return "Unknown"
	}
	return category
}

// resolveURL resolves a possibly relative href against the page it was
// found on. Malformed inputs resolve to "".
func resolveURL(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(h).String()
}
