package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tributary-data/tributary/pkg/errors"
)

const geocodeResponse = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [2.290084, 49.897443]},
      "properties": {
        "id": "80021_6590_00008",
        "label": "8 Boulevard du Port 80000 Amiens",
        "score": 0.97,
        "type": "housenumber",
        "city": "Amiens",
        "postcode": "80000",
        "context": "80, Somme, Hauts-de-France"
      }
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": []},
      "properties": {
        "id": "",
        "label": "Boulevard du Port 80000 Amiens",
        "score": 0.82,
        "type": "street",
        "city": "Amiens",
        "postcode": "80000",
        "context": "80, Somme, Hauts-de-France"
      }
    }
  ]
}`

func newTestGeocodeClient(t *testing.T, baseURL string) *GeocodeClient {
	return NewGeocodeClient(baseURL, "test-agent", 5*time.Second, 1, 0, zaptest.NewLogger(t))
}

func TestGeocodeClient(t *testing.T) {
	t.Run("maps features to records", func(t *testing.T) {
		var gotQuery, gotLimit string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("q")
			gotLimit = r.URL.Query().Get("limit")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(geocodeResponse))
		}))
		defer srv.Close()

		c := newTestGeocodeClient(t, srv.URL)
		records, err := c.Search(context.Background(), "8 bd du port amiens", 5)
		require.NoError(t, err)

		assert.Equal(t, "8 bd du port amiens", gotQuery)
		assert.Equal(t, "5", gotLimit)
		require.Len(t, records, 2)

		first := records[0]
		assert.Equal(t, "80021_6590_00008", first.String("id"))
		assert.Equal(t, "8 Boulevard du Port 80000 Amiens", first.String("label"))
		lat, ok := first.Float("latitude")
		require.True(t, ok)
		assert.Equal(t, 49.897443, lat)
		lon, ok := first.Float("longitude")
		require.True(t, ok)
		assert.Equal(t, 2.290084, lon)
		assert.Equal(t, "8 bd du port amiens", first.String("query"))

		// Second feature has no usable coordinates.
		assert.False(t, records[1].Has("latitude"))
		assert.False(t, records[1].Has("longitude"))
	})

	t.Run("malformed payload is a data error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>not json</html>`))
		}))
		defer srv.Close()

		c := newTestGeocodeClient(t, srv.URL)
		_, err := c.Search(context.Background(), "paris", 1)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	})

	t.Run("server failure surfaces after retries", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := NewGeocodeClient(srv.URL, "test-agent", 5*time.Second, 2, 0, zaptest.NewLogger(t))
		c.fetcher.retry.InitialDelay = time.Millisecond
		_, err := c.Search(context.Background(), "paris", 1)
		require.Error(t, err)
		assert.True(t, errors.IsRetryable(err))
		assert.Equal(t, 2, calls)
	})
}

func TestGeocodeExtractor(t *testing.T) {
	t.Run("streams query results", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(geocodeResponse))
		}))
		defer srv.Close()

		e := NewGeocodeExtractor(newTestGeocodeClient(t, srv.URL), "amiens", 5)
		stream, err := e.Fetch(context.Background())
		require.NoError(t, err)

		records, errs := drain(t, stream)
		assert.Empty(t, errs)
		assert.Len(t, records, 2)
	})

	t.Run("empty query is a config error", func(t *testing.T) {
		e := NewGeocodeExtractor(newTestGeocodeClient(t, "http://unused"), "", 5)
		_, err := e.Fetch(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	})

	t.Run("exhausted retries surface on the error channel", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := newTestGeocodeClient(t, srv.URL)
		c.fetcher.retry.InitialDelay = time.Millisecond
		e := NewGeocodeExtractor(c, "amiens", 5)
		stream, err := e.Fetch(context.Background())
		require.NoError(t, err)

		records, errs := drain(t, stream)
		assert.Empty(t, records)
		assert.Len(t, errs, 1)
	})
}
