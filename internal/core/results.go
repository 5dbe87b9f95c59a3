package core

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Results is the decoded response to one invocation.
type Results struct {
	method string
	raw    []byte
	cached bool
}

// parseResults validates body and converts a "fail" status into an APIError.
func parseResults(method string, body []byte, cached bool) (*Results, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: %w", method, ErrMalformedResult)
	}

	if gjson.GetBytes(body, "stat").String() == "fail" {
		return nil, &APIError{
			Method:  method,
			Code:    int(gjson.GetBytes(body, "code").Int()),
			Message: gjson.GetBytes(body, "message").String(),
		}
	}

	return &Results{method: method, raw: body, cached: cached}, nil
}

// Method returns the API method these results answer.
func (r *Results) Method() string { return r.method }

// Cached reports whether the results were served from the cache store.
func (r *Results) Cached() bool { return r.cached }

// Raw returns the response body.
func (r *Results) Raw() []byte { return r.raw }

// Stat returns the API status field, "ok" for successful calls.
func (r *Results) Stat() string {
	return gjson.GetBytes(r.raw, "stat").String()
}

// Get returns the value at a gjson path, e.g. "photos.photo.0.id".
func (r *Results) Get(path string) gjson.Result {
	return gjson.GetBytes(r.raw, path)
}

// Value returns the whole response as plain Go data.
func (r *Results) Value() any {
	return gjson.ParseBytes(r.raw).Value()
}

// Unmarshal decodes the response into v.
func (r *Results) Unmarshal(v any) error {
	return json.Unmarshal(r.raw, v)
}
