/*
Package lookup fetches mention candidates from the forum's user search endpoint.

The endpoint is a plain GET:

	GET /user/tagsearch?q=bo&limit=30

and answers with a JSON array of objects. Only "id" and "name" are interpreted;
every other field is passed through untouched in Candidate.Extra.

Outgoing requests are throttled by a token bucket, and identical queries that
are in flight at the same time (typically from several attached editors) share
one request.
*/
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/mentionserve/internal/logger"
	"github.com/bastiangx/mentionserve/pkg/mention"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultPath is the search endpoint of the forum.
const DefaultPath = "/user/tagsearch"

// maxBody bounds how much of a response is read.
const maxBody = 1 << 20

// Options configure a Client.
type Options struct {
	BaseURL string
	Path    string
	// Timeout per request, zero means none.
	Timeout time.Duration
	// Rate is requests per second, zero disables throttling.
	Rate  float64
	Burst int
}

// Client is a mention.Lookup backed by HTTP.
type Client struct {
	endpoint *url.URL
	http     *http.Client
	limiter  *rate.Limiter
	group    singleflight.Group
	logger   *log.Logger
}

// StatusError is returned for non-200 answers.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lookup: unexpected status %d: %s", e.Code, e.Body)
}

// New builds a Client for opts.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("lookup: base url is required")
	}
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	endpoint, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("lookup: parse endpoint: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}

	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: opts.Timeout},
		limiter:  limiter,
		logger:   logger.New("lookup"),
	}, nil
}

// Endpoint returns the resolved search URL without query parameters.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Lookup implements mention.Lookup.
func (c *Client) Lookup(ctx context.Context, query string, limit int) ([]mention.Candidate, error) {
	key := query + "\x00" + strconv.Itoa(limit)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), query, limit)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("shared in-flight lookup", "query", query)
		}
		return res.Val.([]mention.Candidate), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) fetch(ctx context.Context, query string, limit int) ([]mention.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("lookup: rate limit: %w", err)
	}

	u := *c.endpoint
	params := u.Query()
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("lookup: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("lookup: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	cands, err := Decode(body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched", "query", query, "count", len(cands), "took", time.Since(start))
	return cands, nil
}

// Decode parses a search response body.
func Decode(body []byte) ([]mention.Candidate, error) {
	// numbers stay json.Number so large ids keep every digit
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("lookup: decode response: %w", err)
	}
	out := make([]mention.Candidate, 0, len(raw))
	for _, obj := range raw {
		out = append(out, toCandidate(obj))
	}
	return out, nil
}

func toCandidate(obj map[string]any) mention.Candidate {
	var c mention.Candidate
	for k, v := range obj {
		switch k {
		case "id":
			c.ID = idString(v)
		case "name":
			if s, ok := v.(string); ok {
				c.Name = s
				continue
			}
			fallthrough
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]any, len(obj))
			}
			c.Extra[k] = plainNumbers(v)
		}
	}
	return c
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// plainNumbers turns json.Number back into int64 or float64 so passthrough
// fields keep their numeric type on the IPC side.
func plainNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = plainNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = plainNumbers(e)
		}
		return x
	default:
		return v
	}
}
