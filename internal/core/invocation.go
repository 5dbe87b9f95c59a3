package core

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"example.com/backstage/services/flickering/internal/infrastructure"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultCacheLifetime = 3600 // seconds
	maxErrorBody         = 1024
)

// Method is one call to the remote API. The name and parameters are fixed
// at construction; the owning client supplies credentials and services
// when the call executes.
type Method struct {
	client *Client
	name   string
	params map[string]string
}

func newMethod(client *Client, name string, params map[string]string) *Method {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return &Method{client: client, name: name, params: copied}
}

// Name returns the API method name.
func (m *Method) Name() string { return m.name }

// Parameters returns a copy of the call parameters.
func (m *Method) Parameters() map[string]string {
	out := make(map[string]string, len(m.params))
	for k, v := range m.params {
		out[k] = v
	}
	return out
}

// CacheKey identifies the call in the cache store. It covers the method,
// the API key and the parameters but not the signature.
func (m *Method) CacheKey() string {
	sum := sha1.Sum([]byte(m.name + "?" + m.query().Encode()))
	return hex.EncodeToString(sum[:])
}

// GetResults executes the call, serving it from the cache store when a fresh
// entry exists.
func (m *Method) GetResults(ctx context.Context) (*Results, error) {
	if m.name == "" {
		return nil, ErrEmptyMethod
	}
	if m.client.key == "" {
		return nil, fmt.Errorf("%s: %w", m.name, ErrMissingCredentials)
	}

	cache, err := m.client.container.Cache()
	if err != nil {
		return nil, err
	}

	logger := m.client.logger.WithFields(logrus.Fields{
		"method":     m.name,
		"request_id": uuid.NewString(),
	})

	cacheKey := m.CacheKey()
	if results, ok := m.fromCache(ctx, cache, cacheKey, logger); ok {
		return results, nil
	}

	body, err := m.send(ctx)
	if err != nil {
		logger.WithError(err).Error("API call failed")
		return nil, err
	}

	results, err := parseResults(m.name, body, false)
	if err != nil {
		logger.WithError(err).Warn("API returned an error")
		return nil, err
	}

	lifetime, err := m.client.GetOption(OptionCacheLifetime, infrastructure.Number(defaultCacheLifetime))
	if err != nil {
		return nil, err
	}
	if ttl := cacheTTL(lifetime.NumberOr(defaultCacheLifetime)); ttl > 0 {
		if err := cache.Set(ctx, cacheKey, string(body), ttl); err != nil {
			logger.WithError(err).Warn("Failed to cache API results")
		}
	}

	logger.WithField("bytes", len(body)).Debug("API call completed")
	return results, nil
}

// cacheTTL converts a cache_lifetime in seconds to a duration, clamped to
// what time.Duration can hold. Zero or less disables caching.
func cacheTTL(seconds float64) time.Duration {
	const maxSeconds = float64(math.MaxInt64 / int64(time.Second))
	switch {
	case seconds <= 0 || math.IsNaN(seconds):
		return 0
	case seconds >= maxSeconds:
		return time.Duration(math.MaxInt64 / int64(time.Second) * int64(time.Second))
	default:
		return time.Duration(seconds * float64(time.Second))
	}
}

func (m *Method) fromCache(ctx context.Context, cache infrastructure.Store, key string, logger logrus.FieldLogger) (*Results, bool) {
	raw, err := cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, infrastructure.ErrCacheMiss) {
			logger.WithError(err).Warn("Cache lookup failed, calling API")
		}
		return nil, false
	}

	results, err := parseResults(m.name, []byte(raw), true)
	if err != nil {
		logger.WithError(err).Warn("Discarding unusable cache entry")
		if err := cache.Delete(ctx, key); err != nil {
			logger.WithError(err).Warn("Failed to delete cache entry")
		}
		return nil, false
	}

	logger.Debug("Serving API results from cache")
	return results, true
}

func (m *Method) send(ctx context.Context) ([]byte, error) {
	q := m.query()
	if m.client.secret != "" {
		q.Set("api_sig", sign(m.client.secret, q))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.client.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", m.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{Method: m.name, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", m.name, err)
	}
	return body, nil
}

// query builds the unsigned request parameters. Caller parameters cannot
// override the method, key or response format.
func (m *Method) query() url.Values {
	q := url.Values{}
	for k, v := range m.params {
		q.Set(k, v)
	}
	q.Set("method", m.name)
	q.Set("api_key", m.client.key)
	q.Set("format", "json")
	q.Set("nojsoncallback", "1")
	q.Del("api_sig")
	return q
}
