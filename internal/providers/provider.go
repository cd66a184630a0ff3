package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Cache is the small read/write surface providers need; satisfied by
// services.CacheService.
type Cache interface {
	GetSimple(key string, dest interface{}) error
	SetSimple(key string, value interface{}, expiration time.Duration) error
}

// Breaker guards outbound calls; satisfied by services.CircuitBreakerService.
type Breaker interface {
	Execute(service string, fn func() (interface{}, error)) (interface{}, error)
}

// fetchJSON performs a GET through the named circuit breaker and returns the
// response body. Non-2xx statuses count as breaker failures.
func fetchJSON(ctx context.Context, client *http.Client, breaker Breaker, service, url string, headers map[string]string) ([]byte, error) {
	result, err := breaker.Execute(service, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
