package extract

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/errors"
	"github.com/tributary-data/tributary/pkg/models"
)

// featureCollection mirrors the GeoJSON payload returned by the address
// API: one feature per result, coordinates as [longitude, latitude].
type featureCollection struct {
	Features []struct {
		Properties struct {
			ID       string  `json:"id"`
			Label    string  `json:"label"`
			Score    float64 `json:"score"`
			Type     string  `json:"type"`
			City     string  `json:"city"`
			Postcode string  `json:"postcode"`
			Context  string  `json:"context"`
		} `json:"properties"`
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// GeocodeClient issues bounded free-text queries against the address API.
// It is shared by the api_addresses extractor and the optional partner
// geocoding enrichment.
type GeocodeClient struct {
	baseURL string
	fetcher *Fetcher
	logger  *zap.Logger
}

// NewGeocodeClient creates a geocoding client. rateLimitPerSec bounds the
// request rate through a fixed inter-request delay.
func NewGeocodeClient(baseURL, userAgent string, timeout time.Duration, retryAttempts, rateLimitPerSec int, logger *zap.Logger) *GeocodeClient {
	delay := time.Duration(0)
	if rateLimitPerSec > 0 {
		delay = time.Second / time.Duration(rateLimitPerSec)
	}
	return &GeocodeClient{
		baseURL: baseURL,
		fetcher: NewFetcher(timeout, delay, userAgent, DefaultRetryPolicy(retryAttempts)),
		logger:  logger.With(zap.String("extractor", "geocode")),
	}
}

// Search issues one bounded request and maps each returned feature into a
// raw record. A non-success response is a recoverable failure: it is
// retried under the client's policy and surfaces as an error, never a
// crash.
func (c *GeocodeClient) Search(ctx context.Context, query string, limit int) ([]models.RawRecord, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.fetcher.getBytes(ctx, c.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode geocoding response").WithDetail("query", query)
	}

	records := make([]models.RawRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		rec := models.RawRecord{
			"id":       f.Properties.ID,
			"label":    f.Properties.Label,
			"score":    f.Properties.Score,
			"type":     f.Properties.Type,
			"city":     f.Properties.City,
			"postcode": f.Properties.Postcode,
			"context":  f.Properties.Context,
			"query":    query,
		}
		if len(f.Geometry.Coordinates) == 2 {
			rec["longitude"] = f.Geometry.Coordinates[0]
			rec["latitude"] = f.Geometry.Coordinates[1]
		}
		records = append(records, rec)
	}
	return records, nil
}

// GeocodeExtractor adapts one bounded geocoding query to the Extractor
// capability.
type GeocodeExtractor struct {
	client *GeocodeClient
	query  string
	limit  int
}

// NewGeocodeExtractor creates an extractor for one free-text query with a
// result-count limit.
func NewGeocodeExtractor(client *GeocodeClient, query string, limit int) *GeocodeExtractor {
	return &GeocodeExtractor{client: client, query: query, limit: limit}
}

func (e *GeocodeExtractor) Name() string { return "api" }

// Fetch issues the query and streams the results. Exhausted retries yield
// an empty stream with the failure on the error channel.
func (e *GeocodeExtractor) Fetch(ctx context.Context) (*Stream, error) {
	if e.query == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "geocoding query is required")
	}

	records := make(chan models.RawRecord)
	errs := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errs)

		results, err := e.client.Search(ctx, e.query, e.limit)
		if err != nil {
			errs <- err
			return
		}
		for _, rec := range results {
			select {
			case records <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()

	return &Stream{Records: records, Errs: errs}, nil
}
