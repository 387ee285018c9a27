package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savingsguru/dealflow/internal/config"
)

const listingHTML = `<html><body>
<article>
  <h2 class="entry-title"><a href="https://www.savingsguru.ca/instant-pot-deal/">Instant Pot 40 percent off today</a></h2>
  <div class="entry-content">
    <p>Huge kitchen deal while it lasts.</p>
    <a href="https://www.amazon.ca/dp/B0EXAMPLE1?tag=old-20">Get the deal</a>
    <a href="https://amzn.to/3xYzAbC">Short link</a>
  </div>
</article>
<article>
  <h2 class="entry-title"><a href="https://www.savingsguru.ca/laptop-sale/">Laptop sale roundup</a></h2>
  <div class="entry-content">
    <a href="https://www.amazon.ca/gp/product/B0EXAMPLE2">Laptop one</a>
    <a href="https://www.amazon.ca/dp/B0EXAMPLE1">Same pot again</a>
  </div>
</article>
<article>
  <h2 class="entry-title"><a href="https://www.savingsguru.ca/no-links/">Post without product links</a></h2>
  <div class="entry-content"><p>Nothing to buy here.</p></div>
</article>
</body></html>`

func feedConfig(baseURL string) config.Config {
	cfg := config.Default()
	cfg.FeedBaseURL = baseURL
	cfg.MaxPages = 5
	cfg.MaxRetryAttempts = 3
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

func TestFetchPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, listingHTML)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	extractor := NewExtractor(feedConfig(server.URL))
	posts, err := extractor.FetchPosts(context.Background())
	require.NoError(t, err)

	require.Len(t, posts, 2, "post without product links is dropped")
	assert.Equal(t, "Instant Pot 40 percent off today", posts[0].Title)
	assert.Equal(t, "instant-pot-deal", posts[0].ID)
	assert.Equal(t, []string{"B0EXAMPLE1"}, posts[0].ASINs)
	assert.Contains(t, posts[0].Description, "Huge kitchen deal")

	asins, byASIN := extractor.ASINs(posts)
	assert.Equal(t, []string{"B0EXAMPLE1", "B0EXAMPLE2"}, asins)
	assert.Equal(t, posts[0].ID, byASIN["B0EXAMPLE1"].ID, "first post to mention an ASIN owns it")
	assert.Equal(t, posts[1].ID, byASIN["B0EXAMPLE2"].ID)
}

func TestFetchPosts_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Path == "/" {
			fmt.Fprint(w, listingHTML)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	posts, err := NewExtractor(feedConfig(server.URL)).FetchPosts(context.Background())
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestFetchPosts_FirstPageFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	cfg := feedConfig(server.URL)
	cfg.MaxRetryAttempts = 2
	_, err := NewExtractor(cfg).FetchPosts(context.Background())
	assert.Error(t, err)
}

func TestFetchPosts_StopsAtPageCap(t *testing.T) {
	var pages atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		fmt.Fprint(w, listingHTML)
	}))
	t.Cleanup(server.Close)

	cfg := feedConfig(server.URL)
	cfg.MaxPages = 3
	posts, err := NewExtractor(cfg).FetchPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), pages.Load())
	assert.Len(t, posts, 6)
}
