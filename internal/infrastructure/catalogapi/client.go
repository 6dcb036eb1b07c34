package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dupelens/backend/internal/domain"
)

// ScopePlaceholder is replaced by the scope id in a base URL template,
// e.g. "https://{scope}.example-shop.com/admin/api/graphql.json".
const ScopePlaceholder = "{scope}"

// maxErrorBody caps how much of an error response is kept for logs
const maxErrorBody = 4096

// productsQuery requests one page of products with their variants and images.
const productsQuery = `query Products($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    edges {
      node {
        id title handle status createdAt updatedAt productType vendor tags
        variants(first: 100) { edges { node { id title sku barcode price inventoryQuantity } } }
        images(first: 20) { edges { node { id url altText } } }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

// Client handles communication with the merchant catalog GraphQL API
type Client struct {
	httpClient  *http.Client
	accessToken string
	endpoint    string
	debug       bool
}

// NewClient creates a new catalog API client for a fixed endpoint
func NewClient(endpoint, accessToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		accessToken: accessToken,
		endpoint:    endpoint,
	}
}

// NewScopedClient creates a client whose endpoint is baseURL with the scope
// placeholder filled in.
func NewScopedClient(baseURL, scopeID, accessToken string, timeout time.Duration) *Client {
	return NewClient(ScopedEndpoint(baseURL, scopeID), accessToken, timeout)
}

// ScopedEndpoint fills the scope placeholder of a base URL template.
func ScopedEndpoint(baseURL, scopeID string) string {
	return strings.ReplaceAll(baseURL, ScopePlaceholder, scopeID)
}

// SetDebug enables or disables debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// debugLog logs only when debug is enabled
func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		log.Printf("[CATALOG] "+format, args...)
	}
}

// ListPage fetches one page of products after cursor (empty for the first page).
//
// Throttling answers (HTTP 429 or a THROTTLED GraphQL error) are reported as
// domain.ErrThrottled; bodies that cannot be decoded, or that lack the
// products connection, as domain.ErrMalformedResponse.
func (c *Client) ListPage(ctx context.Context, after string, pageSize int) (*domain.SourcePage, error) {
	variables := map[string]interface{}{"first": pageSize}
	if after != "" {
		variables["after"] = after
	}
	payload, err := json.Marshal(graphqlRequest{Query: productsQuery, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "DupeLens/1.0")
	req.Header.Set("X-Access-Token", c.accessToken)

	c.debugLog("ListPage after=%q first=%d", after, pageSize)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogAPIFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.debugLog("throttled (retry-after %q)", resp.Header.Get("Retry-After"))
		return nil, fmt.Errorf("%w: status %d", domain.ErrThrottled, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := readLimitedBody(resp.Body, maxErrorBody)
		c.debugLog("API error - Status: %d, Body: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: status %d", domain.ErrCatalogAPIFailure, resp.StatusCode)
	}

	var gqlResp graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrMalformedResponse, err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, classifyErrors(gqlResp.Errors)
	}
	if gqlResp.Data == nil || gqlResp.Data.Products == nil {
		return nil, fmt.Errorf("%w: missing data.products", domain.ErrMalformedResponse)
	}

	conn := gqlResp.Data.Products
	page := &domain.SourcePage{
		Products:    make([]domain.SourceProduct, 0, len(conn.Edges)),
		HasNextPage: conn.PageInfo.HasNextPage,
		EndCursor:   conn.PageInfo.EndCursor,
	}
	for _, edge := range conn.Edges {
		page.Products = append(page.Products, edge.Node.toSource())
	}

	c.debugLog("received %d products (hasNextPage=%v)", len(page.Products), page.HasNextPage)
	return page, nil
}

// classifyErrors turns GraphQL errors into a throttling or API failure error.
func classifyErrors(errs []graphqlError) error {
	msgs := make([]string, 0, len(errs))
	throttled := false
	for _, e := range errs {
		msgs = append(msgs, e.Message)
		if strings.EqualFold(e.Extensions.Code, "THROTTLED") || strings.Contains(strings.ToLower(e.Message), "throttl") {
			throttled = true
		}
	}
	joined := strings.Join(msgs, "; ")
	if throttled {
		return fmt.Errorf("%w: %s", domain.ErrThrottled, joined)
	}
	return fmt.Errorf("%w: %s", domain.ErrCatalogAPIFailure, joined)
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
