package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<!DOCTYPE html>
<html><body>
<div class="product-list">
  <div class="S-product-item" data-product-id="sw1001" data-stock="3">
    <a href="/products/sw1001"><img src="//img.example.com/sw1001.jpg"></a>
    <div class="product-name">Oversized Hoodie Men</div>
    <div class="price">$24.99</div>
  </div>
  <div class="S-product-item" data-product-id="sw1002">
    <a href="/products/sw1002"><img data-src="//img.example.com/sw1002.jpg"></a>
    <div class="product-name">Knit Cardigan</div>
    <div class="price">$31.00</div>
  </div>
  <div class="S-product-item" data-product-id="sw1003">
    <a href="/products/sw1003"></a>
    <div class="product-name">Floral Summer Dress Women</div>
    <div class="price">$18.50</div>
  </div>
  <div class="S-product-item">
    <div class="product-name">Graphic Tee Men</div>
    <div class="price">$9.99</div>
  </div>
</div>
</body></html>`

const detailHTML = `<!DOCTYPE html>
<html><body>
<select class="product-size-select">
  <option data-stock="4">S</option>
  <option data-stock="2">M</option>
  <option class="sold-out">L</option>
  <option disabled>XL</option>
</select>
</body></html>`

func newListingServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/products/") {
			_, _ = w.Write([]byte(detailHTML))
			return
		}
		_, _ = w.Write([]byte(listingHTML))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchListing(t *testing.T) {
	t.Parallel()

	srv := newListingServer(t)

	e, err := NewListingExtractor(srv.URL+"/listing", WithCategory("men"))
	require.NoError(t, err)

	products, err := e.FetchListing(context.Background())
	require.NoError(t, err)

	// The dress is filtered out by the men category; the ID-less item
	// still comes through for the caller to drop.
	require.Len(t, products, 3)

	first := products[0]
	assert.Equal(t, "sw1001", first.ID)
	assert.Equal(t, "Oversized Hoodie Men", first.Name)
	assert.Equal(t, "$24.99", first.Price)
	assert.Equal(t, "https://img.example.com/sw1001.jpg", first.ImageURL)
	assert.Equal(t, srv.URL+"/products/sw1001", first.URL)
	assert.Equal(t, 3, first.StockLevel)
	assert.Equal(t, "men", first.Category)

	// data-src fallback for lazy-loaded images.
	assert.Equal(t, "https://img.example.com/sw1002.jpg", products[1].ImageURL)
	assert.Equal(t, "sw1002", products[1].ID)

	assert.Empty(t, products[2].ID)
}

func TestFetchListingWomenCategory(t *testing.T) {
	t.Parallel()

	srv := newListingServer(t)

	e, err := NewListingExtractor(srv.URL+"/listing", WithCategory("women"))
	require.NoError(t, err)

	products, err := e.FetchListing(context.Background())
	require.NoError(t, err)

	var names []string
	for _, p := range products {
		names = append(names, p.Name)
	}
	assert.NotContains(t, names, "Oversized Hoodie Men")
	assert.NotContains(t, names, "Graphic Tee Men")
	assert.Contains(t, names, "Floral Summer Dress Women")
	assert.Contains(t, names, "Knit Cardigan")
}

func TestFetchListingMaxProducts(t *testing.T) {
	t.Parallel()

	srv := newListingServer(t)

	e, err := NewListingExtractor(srv.URL+"/listing", WithMaxProducts(1))
	require.NoError(t, err)

	products, err := e.FetchListing(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestFetchListingDetailFetch(t *testing.T) {
	t.Parallel()

	srv := newListingServer(t)

	e, err := NewListingExtractor(srv.URL+"/listing",
		WithDetailFetch(1),
		WithDetailDelay(time.Millisecond),
	)
	require.NoError(t, err)

	products, err := e.FetchListing(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, products)

	// Only the first product gets enriched under a limit of 1.
	first := products[0]
	assert.Equal(t, map[string]int{"S": 4, "M": 2}, first.Sizes)
	assert.Equal(t, 6, first.StockLevel)
	assert.Nil(t, products[1].Sizes)
}

func TestFetchListingServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	e, err := NewListingExtractor(srv.URL, WithRetryCount(0))
	require.NoError(t, err)

	_, err = e.FetchListing(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoListing)
}

func TestFetchListingNoItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>maintenance</p></body></html>"))
	}))
	t.Cleanup(srv.Close)

	e, err := NewListingExtractor(srv.URL)
	require.NoError(t, err)

	products, err := e.FetchListing(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestTruncateName(t *testing.T) {
	t.Parallel()

	short := "Oversized Hoodie"
	assert.Equal(t, short, truncateName(short, 200))

	long := strings.Repeat("Ä", 250)
	got := truncateName(long, 200)
	assert.Equal(t, 200, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
	assert.Equal(t, strings.Repeat("Ä", 200), got)
}

func TestParseSizes(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(detailHTML))
	require.NoError(t, err)

	sizes := parseSizes(doc)
	assert.Equal(t, map[string]int{"S": 4, "M": 2}, sizes)
}

func TestCategoryMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category string
		product  string
		want     bool
	}{
		{"men keyword", "men", "Slim Fit Men Jeans", true},
		{"women excluded", "men", "Women High Waist Jeans", false},
		{"womens excluded", "men", "Womens Knit Cardigan", false},
		{"ambiguous passes", "men", "Canvas Belt", true},
		{"men excluded for women", "women", "Men Bomber Jacket", false},
		{"possessive", "men", "Men's Training Shorts", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, err := NewListingExtractor("https://example.com/list", WithCategory(tt.category))
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.categoryMatches(tt.product))
		})
	}
}
