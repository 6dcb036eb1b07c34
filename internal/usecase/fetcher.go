package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dupelens/backend/internal/domain"
	"github.com/dupelens/backend/internal/infrastructure/catalogapi"
)

// Fetch defaults
const (
	MaxPageSize            = 250
	DefaultMaxItems        = 5000
	DefaultThrottleBackoff = 2000 * time.Millisecond
	DefaultPageDelay       = 100 * time.Millisecond
	DefaultLimiterChannel  = "catalog"
)

// throttleKeywords mark an upstream error as a request to slow down
var throttleKeywords = []string{"throttl", "rate limit", "rate-limit", "ratelimit", "too many requests"}

// FetcherConfig holds configuration for the catalog fetcher
type FetcherConfig struct {
	PageSize           int
	ThrottleBackoff    time.Duration
	PageDelay          time.Duration
	Channel            string
	EnableDebugLogging bool
}

// CatalogFetcher materializes a whole catalog through rate-limited,
// cursor-paginated requests.
type CatalogFetcher struct {
	source          domain.CatalogSource
	limiter         domain.Limiter
	pageSize        int
	throttleBackoff time.Duration
	pageDelay       time.Duration
	channel         string
	debug           bool
}

// NewCatalogFetcher creates a fetcher over source, pacing every request
// through limiter.
func NewCatalogFetcher(source domain.CatalogSource, limiter domain.Limiter, config FetcherConfig) *CatalogFetcher {
	pageSize := config.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	backoff := config.ThrottleBackoff
	if backoff <= 0 {
		backoff = DefaultThrottleBackoff
	}

	delay := config.PageDelay
	if delay <= 0 {
		delay = DefaultPageDelay
	}

	channel := config.Channel
	if channel == "" {
		channel = DefaultLimiterChannel
	}

	return &CatalogFetcher{
		source:          source,
		limiter:         limiter,
		pageSize:        pageSize,
		throttleBackoff: backoff,
		pageDelay:       delay,
		channel:         channel,
		debug:           config.EnableDebugLogging,
	}
}

// FetchAll returns up to maxItems catalog items in source order.
//
// It requests ceil(maxItems/pageSize) pages at most; the last one asks only
// for the remaining budget so the source, not the client, truncates.
// A source that returns more than asked for ends the fetch once the budget
// is reached. Throttled pages are retried on the same cursor after a fixed backoff,
// without limit and without counting against the page budget. Any other
// error aborts the fetch with an *IngestionError and no partial result.
func (f *CatalogFetcher) FetchAll(ctx context.Context, maxItems int) ([]domain.CatalogItem, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("%w: maxItems must be positive, got %d", domain.ErrInvalidRequest, maxItems)
	}

	maxPages := (maxItems + f.pageSize - 1) / f.pageSize
	items := make([]domain.CatalogItem, 0, min(maxItems, f.pageSize))
	cursor := ""
	throttled := 0

	for page := 1; page <= maxPages; {
		if err := f.limiter.Acquire(ctx, f.channel); err != nil {
			return nil, f.cancelled(ctx, err, page, cursor)
		}

		pageSize := min(f.pageSize, maxItems-len(items))
		resp, err := f.source.ListPage(ctx, cursor, pageSize)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, f.cancelled(ctx, err, page, cursor)
			}
			if isThrottled(err) {
				throttled++
				throttledRequests.Inc()
				log.Printf("[FETCH] Page %d throttled (%d so far), retrying in %s: %v", page, throttled, f.throttleBackoff, err)
				if err := sleepCtx(ctx, f.throttleBackoff); err != nil {
					return nil, f.cancelled(ctx, err, page, cursor)
				}
				continue
			}
			return nil, &domain.IngestionError{Page: page, Cursor: cursor, Err: err}
		}
		if resp == nil {
			return nil, &domain.IngestionError{Page: page, Cursor: cursor, Err: fmt.Errorf("%w: empty page", domain.ErrMalformedResponse)}
		}
		if resp.HasNextPage && resp.EndCursor == "" {
			return nil, &domain.IngestionError{Page: page, Cursor: cursor, Err: fmt.Errorf("%w: next page without cursor", domain.ErrMalformedResponse)}
		}

		pagesFetched.Inc()

		for _, raw := range resp.Products {
			item, err := catalogapi.MapToCatalogItem(raw)
			if err != nil {
				return nil, &domain.IngestionError{Page: page, Cursor: cursor, Err: err}
			}
			items = append(items, item)
		}

		if f.debug {
			log.Printf("[FETCH] Page %d: %d products (total %d, next=%v)", page, len(resp.Products), len(items), resp.HasNextPage)
		}

		if !resp.HasNextPage || page == maxPages || len(items) >= maxItems {
			break
		}
		cursor = resp.EndCursor
		page++

		if err := sleepCtx(ctx, f.pageDelay); err != nil {
			return nil, f.cancelled(ctx, err, page, cursor)
		}
	}

	log.Printf("[FETCH] Fetched %d items (%d throttled retries)", len(items), throttled)
	return items, nil
}

// cancelled makes sure a fetch aborted by the caller always reports ErrCancelled.
func (f *CatalogFetcher) cancelled(ctx context.Context, err error, page int, cursor string) error {
	if !errors.Is(err, domain.ErrCancelled) {
		err = fmt.Errorf("%w: %w", domain.ErrCancelled, context.Cause(ctx))
	}
	log.Printf("[FETCH] Cancelled on page %d (cursor %q): %v", page, cursor, err)
	return err
}

// isThrottled reports whether err asks us to back off and retry.
func isThrottled(err error) bool {
	if errors.Is(err, domain.ErrThrottled) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range throttleKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
