package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const quotesPage1 = `<html><body>
<div class="quote">
  <span class="text">“The world as we have created it is a process of our thinking.”</span>
  <span>by <small class="author">Albert Einstein</small></span>
  <div class="tags">
    <a class="tag" href="/tag/change/">change</a>
    <a class="tag" href="/tag/deep-thoughts/">deep-thoughts</a>
  </div>
</div>
<div class="quote">
  <span class="text">“Imperfection is beauty.”</span>
  <span>by <small class="author">Marilyn Monroe</small></span>
  <div class="tags">
    <a class="tag" href="/tag/inspirational/">inspirational</a>
  </div>
</div>
</body></html>`

const quotesPage2 = `<html><body>
<div class="quote">
  <span class="text">“Try not to become a man of success.”</span>
  <span>by <small class="author">Albert Einstein</small></span>
  <div class="tags"></div>
</div>
</body></html>`

func TestQuotesExtractor(t *testing.T) {
	t.Run("walks pages until the catalog ends", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/":
				_, _ = w.Write([]byte(quotesPage1))
			case "/page/2/":
				_, _ = w.Write([]byte(quotesPage2))
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		e := NewQuotesExtractor(srv.URL, 10, testFetcher(), zaptest.NewLogger(t))
		stream, err := e.Fetch(context.Background())
		require.NoError(t, err)

		records, errs := drain(t, stream)
		assert.Empty(t, errs)
		require.Len(t, records, 3)

		first := records[0]
		assert.Equal(t, "“The world as we have created it is a process of our thinking.”", first.String("text"))
		assert.Equal(t, "Albert Einstein", first.String("author"))
		assert.Equal(t, []string{"change", "deep-thoughts"}, first.Strings("tags"))

		assert.Empty(t, records[2].Strings("tags"))
	})

	t.Run("honors the page bound", func(t *testing.T) {
		requests := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			_, _ = w.Write([]byte(quotesPage2))
		}))
		defer srv.Close()

		e := NewQuotesExtractor(srv.URL, 2, testFetcher(), zaptest.NewLogger(t))
		stream, err := e.Fetch(context.Background())
		require.NoError(t, err)

		records, errs := drain(t, stream)
		assert.Empty(t, errs)
		assert.Len(t, records, 2)
		assert.Equal(t, 2, requests)
	})

	t.Run("stops on an empty page", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				_, _ = w.Write([]byte(quotesPage1))
				return
			}
			_, _ = w.Write([]byte(`<html><body><p>No quotes found!</p></body></html>`))
		}))
		defer srv.Close()

		e := NewQuotesExtractor(srv.URL, 10, testFetcher(), zaptest.NewLogger(t))
		stream, err := e.Fetch(context.Background())
		require.NoError(t, err)

		records, errs := drain(t, stream)
		assert.Empty(t, errs)
		assert.Len(t, records, 2)
	})
}
