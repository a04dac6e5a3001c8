package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"wisetrade/internal/service/ratelimit"
	"wisetrade/pkg/cache"
	xhttp "wisetrade/pkg/http"
	"wisetrade/pkg/retry"
)

// HTTPFetcher issues cached, rate-limited JSON GETs against provider APIs.
// Responses are cached by URL+sorted-params so repeated pipeline stages do
// not hammer free-tier endpoints.
type HTTPFetcher struct {
	client  *xhttp.Client
	cache   cache.Service
	limiter *ratelimit.Limiter
	ttl     time.Duration
}

// NewHTTPFetcher builds a fetcher. cache may be nil (no caching), limiter
// may be nil (no throttling).
func NewHTTPFetcher(client *xhttp.Client, c cache.Service, limiter *ratelimit.Limiter, ttl time.Duration) *HTTPFetcher {
	if client == nil {
		client = xhttp.NewClient()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &HTTPFetcher{client: client, cache: c, limiter: limiter, ttl: ttl}
}

// GetJSON fetches rawURL with params into dest, retrying transient failures
// and serving repeats from cache.
func (f *HTTPFetcher) GetJSON(ctx context.Context, limitKey, rawURL string, params map[string]string, dest interface{}) error {
	key := cache.FetchKey(rawURL, params)

	if f.cache != nil {
		var body []byte
		if err := f.cache.Get(ctx, key, &body); err == nil {
			return unmarshalBody(body, dest)
		}
	}

	if f.limiter != nil && limitKey != "" {
		if err := f.limiter.Wait(ctx, limitKey); err != nil {
			return err
		}
	}

	var body []byte
	err := retry.Do(ctx, func(ctx context.Context) error {
		return f.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         rawURL,
			QueryParams: toQuery(params),
			Headers:     map[string]string{"Accept": "application/json"},
		}, &body)
	})
	if err != nil {
		return fmt.Errorf("get %s: %w", rawURL, err)
	}

	if f.cache != nil {
		_ = f.cache.Set(ctx, key, body, f.ttl)
	}
	return unmarshalBody(body, dest)
}

// GetRaw fetches a non-JSON body (CSV, RSS XML) with the same caching and
// throttling rules.
func (f *HTTPFetcher) GetRaw(ctx context.Context, limitKey, rawURL string, params map[string]string, headers map[string]string) ([]byte, error) {
	key := cache.FetchKey(rawURL, params)

	if f.cache != nil {
		var body []byte
		if err := f.cache.Get(ctx, key, &body); err == nil {
			return body, nil
		}
	}

	if f.limiter != nil && limitKey != "" {
		if err := f.limiter.Wait(ctx, limitKey); err != nil {
			return nil, err
		}
	}

	var body []byte
	err := retry.Do(ctx, func(ctx context.Context) error {
		return f.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         rawURL,
			QueryParams: toQuery(params),
			Headers:     headers,
		}, &body)
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}

	if f.cache != nil {
		_ = f.cache.Set(ctx, key, body, f.ttl)
	}
	return body, nil
}

func toQuery(params map[string]string) map[string][]string {
	if len(params) == 0 {
		return nil
	}
	q := make(url.Values, len(params))
	for k, v := range params {
		q.Set(k, v)
	}
	return q
}

func unmarshalBody(body []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *[]byte:
		*d = body
		return nil
	default:
		return json.Unmarshal(body, dest)
	}
}
