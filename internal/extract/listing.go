package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	domain "stockwatch/pkg/types"
)

// Listing pages get restyled without notice, so every lookup walks a chain
// of known selector variants and takes the first that matches.
var (
	itemSelectors = []string{
		".S-product-item",
		".c-product-list__item",
		".product-card",
		".j-expose__product-item",
		"[data-product-id]",
	}

	nameSelector  = ".product-name, .goods-name, .name"
	priceSelector = ".price, .current-price, .goods-price"

	sizeSelectors = []string{
		".product-size-select option",
		".sku-item",
		".size-option",
		"[data-size]",
	}

	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0",
	}
)

// Category keyword heuristics carried over from the listing's mixed pages:
// exclusion wins over inclusion, and an unclear name passes through.
var (
	menKeywords   = []string{"men", "mens", "man", "male", "boys", "guy"}
	womenKeywords = []string{"women", "womens", "woman", "female", "girls", "ladies", "dress"}
)

// ListingExtractor fetches a retailer listing page and extracts product
// records for a single category.
type ListingExtractor struct {
	client       *resty.Client
	listingURL   string
	base         *url.URL
	category     string
	maxProducts  int
	fetchDetails bool
	detailLimit  int
	detailDelay  time.Duration
	log          *slog.Logger
}

// Option configures a ListingExtractor.
type Option func(*ListingExtractor)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *ListingExtractor) {
		e.log = l
	}
}

// WithCategory sets the category tag applied to every extracted record.
func WithCategory(c string) Option {
	return func(e *ListingExtractor) {
		e.category = c
	}
}

// WithMaxProducts caps how many listing items one pass will parse.
func WithMaxProducts(n int) Option {
	return func(e *ListingExtractor) {
		e.maxProducts = n
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *ListingExtractor) {
		e.client.SetTimeout(d)
	}
}

// WithRetryCount sets how many times a failed fetch is retried.
func WithRetryCount(n int) Option {
	return func(e *ListingExtractor) {
		e.client.SetRetryCount(n)
	}
}

// WithDetailFetch enables per-product detail page fetches for size and
// stock availability, capped at limit products per pass.
func WithDetailFetch(limit int) Option {
	return func(e *ListingExtractor) {
		e.fetchDetails = true
		e.detailLimit = limit
	}
}

// WithDetailDelay sets the politeness delay between detail page fetches.
func WithDetailDelay(d time.Duration) Option {
	return func(e *ListingExtractor) {
		e.detailDelay = d
	}
}

// NewListingExtractor creates an extractor for the given listing page URL.
func NewListingExtractor(listingURL string, opts ...Option) (*ListingExtractor, error) {
	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("parsing listing URL: %w", err)
	}

	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5").
		SetHeader("Referer", "https://www.google.com/")

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		req.SetHeader("User-Agent", userAgents[rand.Intn(len(userAgents))])
		return nil
	})

	e := &ListingExtractor{
		client:      client,
		listingURL:  listingURL,
		base:        base,
		category:    "men",
		maxProducts: 50,
		detailLimit: 10,
		detailDelay: 2 * time.Second,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// FetchListing fetches the configured listing page and returns the product
// records found on it. An error (or an unusable page) means the pass
// failed; the caller must not treat it as an empty catalog.
func (e *ListingExtractor) FetchListing(ctx context.Context) ([]domain.Product, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(cacheBustParams()).
		Get(e.listingURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoListing, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrNoListing, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parsing listing page: %w", err)
	}

	products := e.parseListing(doc)

	if e.fetchDetails {
		e.enrichWithDetails(ctx, products)
	}

	return products, nil
}

func (e *ListingExtractor) parseListing(doc *goquery.Document) []domain.Product {
	var items *goquery.Selection
	for _, sel := range itemSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			e.log.Debug("listing items matched", "selector", sel, "count", found.Length())
			items = found
			break
		}
	}
	if items == nil {
		return nil
	}

	var products []domain.Product
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		p := e.extractItem(item)
		if !e.categoryMatches(p.Name) {
			return true
		}
		products = append(products, p)
		return len(products) < e.maxProducts
	})

	return products
}

// extractItem pulls one product record out of a listing item node. A record
// with an empty ID is still returned; the engine drops it at debug level.
func (e *ListingExtractor) extractItem(item *goquery.Selection) domain.Product {
	id, ok := item.Attr("data-product-id")
	if !ok || id == "" {
		id, _ = item.Attr("data-goods-id")
	}

	name := strings.TrimSpace(item.Find(nameSelector).First().Text())
	price := strings.TrimSpace(item.Find(priceSelector).First().Text())

	var imageURL string
	if img := item.Find("img").First(); img.Length() > 0 {
		imageURL, _ = img.Attr("src")
		if imageURL == "" {
			imageURL, _ = img.Attr("data-src")
		}
	}
	if imageURL != "" && strings.HasPrefix(imageURL, "//") {
		imageURL = "https:" + imageURL
	}

	var productURL string
	if link := item.Find("a").First(); link.Length() > 0 {
		href, _ := link.Attr("href")
		productURL = e.resolveURL(href)
	}

	stock := 0
	if attr, ok := item.Attr("data-stock"); ok {
		if n, err := strconv.Atoi(attr); err == nil && n > 0 {
			stock = n
		}
	}

	name = truncateName(name, maxNameLen)

	return domain.Product{
		ID:         id,
		Name:       name,
		Price:      price,
		ImageURL:   imageURL,
		URL:        productURL,
		StockLevel: stock,
		Category:   e.category,
	}
}

// enrichWithDetails fetches product pages for size and stock availability,
// up to detailLimit products, pausing between requests. Failures leave the
// listing-derived record in place.
func (e *ListingExtractor) enrichWithDetails(ctx context.Context, products []domain.Product) {
	limit := min(len(products), e.detailLimit)

	for i := range limit {
		if products[i].URL == "" {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.detailDelay):
		}

		sizes, err := e.fetchSizes(ctx, products[i].URL)
		if err != nil {
			e.log.Debug("detail fetch failed", "url", products[i].URL, "error", err)
			continue
		}

		products[i].Sizes = sizes
		total := 0
		for _, qty := range sizes {
			total += qty
		}
		products[i].StockLevel = total
	}
}

func (e *ListingExtractor) fetchSizes(ctx context.Context, productURL string) (map[string]int, error) {
	resp, err := e.client.R().SetContext(ctx).Get(productURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, err
	}

	return parseSizes(doc), nil
}

// parseSizes reads the size availability off a product detail page.
// Disabled and sold-out variants are skipped; quantity defaults to 1 when
// the markup does not expose one.
func parseSizes(doc *goquery.Document) map[string]int {
	sizes := map[string]int{}

	for _, sel := range sizeSelectors {
		elems := doc.Find(sel)
		if elems.Length() == 0 {
			continue
		}

		elems.Each(func(_ int, elem *goquery.Selection) {
			label := strings.TrimSpace(elem.Text())
			if label == "" || len(label) >= 10 {
				return
			}
			if elem.HasClass("disabled") || elem.HasClass("sold-out") || elem.HasClass("out-of-stock") {
				return
			}
			if _, disabled := elem.Attr("disabled"); disabled {
				return
			}

			qty := 1
			attr, ok := elem.Attr("data-stock")
			if !ok {
				attr, ok = elem.Attr("data-quantity")
			}
			if ok {
				if n, err := strconv.Atoi(attr); err == nil {
					qty = n
				}
			}

			sizes[label] = qty
		})
		break
	}

	return sizes
}

func (e *ListingExtractor) categoryMatches(name string) bool {
	lower := strings.ToLower(name)

	exclude, include := womenKeywords, menKeywords
	if e.category == "women" {
		exclude, include = menKeywords, womenKeywords
	}

	for _, kw := range exclude {
		if containsKeyword(lower, kw) {
			return false
		}
	}
	for _, kw := range include {
		if containsKeyword(lower, kw) {
			return true
		}
	}

	// Ambiguous names pass through; the listing page is category-scoped.
	return true
}

// containsKeyword matches kw as a whole word so "women" does not trip the
// "men" exclusion.
func containsKeyword(s, kw string) bool {
	for _, field := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/' || r == ','
	}) {
		if field == kw || field == kw+"'s" {
			return true
		}
	}
	return false
}

const maxNameLen = 200

// truncateName caps a product name at limit runes. Truncating bytes could
// split a multi-byte character and feed invalid UTF-8 to the store and the
// notifier.
func truncateName(name string, limit int) string {
	if utf8.RuneCountInString(name) <= limit {
		return name
	}
	runes := []rune(name)
	return string(runes[:limit])
}

func (e *ListingExtractor) resolveURL(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(ref).String()
}

// cacheBustParams defeats intermediary caching of the listing page.
func cacheBustParams() map[string]string {
	return map[string]string{
		"v": strconv.FormatInt(time.Now().Unix(), 10),
		"r": strconv.Itoa(1000 + rand.Intn(9000)),
	}
}
