// Package dhis2 is a read-only client for the DHIS2 Web API collection
// endpoints. It fetches one page of a collection at a time and leaves
// record conversion to its callers.
package dhis2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultPageSize = 50
	maxErrorBody    = 512
)

// FetchError is returned for any failure retrieving a page: transport
// errors, non-2xx responses, and undecodable payloads.
type FetchError struct {
	Collection string
	Page       int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dhis2: fetch %s page %d: status %d: %v", e.Collection, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("dhis2: fetch %s page %d: %v", e.Collection, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Query selects one collection and the filters applied to it. Everything
// here is translated into DHIS2 query parameters.
type Query struct {
	Collection string
	Fields     string
	Filters    []string
	Order      string
	PageSize   int
	// MaxPages caps the number of pages fetched; zero means no cap.
	MaxPages int
	Params   url.Values
}

func (q Query) values(page int) url.Values {
	v := url.Values{}
	for k, vals := range q.Params {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	if q.Fields != "" {
		v.Set("fields", q.Fields)
	}
	for _, f := range q.Filters {
		v.Add("filter", f)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	v.Set("paging", "true")
	v.Set("page", strconv.Itoa(page))
	v.Set("pageSize", strconv.Itoa(size))
	return v
}

// Pager is the paging block DHIS2 attaches to collection responses.
type Pager struct {
	Page      int `json:"page"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
	PageSize  int `json:"pageSize"`
}

// RawPage is one undecoded page of a collection.
type RawPage struct {
	Number int
	Items  []json.RawMessage
	Last   bool
}

// FetchObserver receives the outcome of every page request.
type FetchObserver interface {
	ObserveFetch(collection string, elapsed time.Duration, err error)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit limits outbound requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

func WithObserver(o FetchObserver) ClientOption {
	return func(c *Client) { c.observer = o }
}

// Client fetches collection pages from a DHIS2 instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
	observer   FetchObserver
}

// NewClient creates a client for the API rooted at baseURL
// (for example https://play.dhis2.org/40/api).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchPage retrieves page number page (1-based) of q.Collection. The
// returned page is Last when the pager says so, when the page is empty, or
// when the response carries no pager at all.
func (c *Client) FetchPage(ctx context.Context, q Query, page int) (*RawPage, error) {
	start := time.Now()
	p, err := c.fetchPage(ctx, q, page)
	if c.observer != nil {
		c.observer.ObserveFetch(q.Collection, time.Since(start), err)
	}
	return p, err
}

func (c *Client) fetchPage(ctx context.Context, q Query, page int) (*RawPage, error) {
	fail := func(status int, err error) (*RawPage, error) {
		return nil, &FetchError{Collection: q.Collection, Page: page, StatusCode: status, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(0, err)
		}
	}

	u := fmt.Sprintf("%s/%s?%s", c.baseURL, q.Collection, q.values(page).Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("collection", q.Collection).Int("page", page).Msg("fetching page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(resp.StatusCode, errors.New(strings.TrimSpace(string(body))))
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}

	out := &RawPage{Number: page}
	if raw, ok := payload[q.Collection]; ok {
		if err := json.Unmarshal(raw, &out.Items); err != nil {
			return fail(resp.StatusCode, fmt.Errorf("decode %s: %w", q.Collection, err))
		}
	}

	var pager *Pager
	if raw, ok := payload["pager"]; ok {
		pager = &Pager{}
		if err := json.Unmarshal(raw, pager); err != nil {
			return fail(resp.StatusCode, fmt.Errorf("decode pager: %w", err))
		}
	}
	out.Last = len(out.Items) == 0 || pager == nil || page >= pager.PageCount
	if q.MaxPages > 0 && page >= q.MaxPages {
		out.Last = true
	}
	return out, nil
}

// Page is one decoded page of records.
type Page[T any] struct {
	Number int
	Items  []T
	Last   bool
}

// Collection reads typed records of one collection page by page.
type Collection[T any] struct {
	client *Client
	query  Query
}

func NewCollection[T any](client *Client, q Query) *Collection[T] {
	return &Collection[T]{client: client, query: q}
}

// Name is the DHIS2 collection path.
func (c *Collection[T]) Name() string { return c.query.Collection }

// FetchPage retrieves and decodes one page.
func (c *Collection[T]) FetchPage(ctx context.Context, page int) (Page[T], error) {
	raw, err := c.client.FetchPage(ctx, c.query, page)
	if err != nil {
		return Page[T]{}, err
	}
	items := make([]T, len(raw.Items))
	for i, item := range raw.Items {
		if err := json.Unmarshal(item, &items[i]); err != nil {
			return Page[T]{}, &FetchError{
				Collection: c.query.Collection,
				Page:       page,
				Err:        fmt.Errorf("decode record %d: %w", i, err),
			}
		}
	}
	return Page[T]{Number: raw.Number, Items: items, Last: raw.Last}, nil
}
