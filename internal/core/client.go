package core

import (
	"context"
	"fmt"
	"net/http"

	"example.com/backstage/services/flickering/internal/infrastructure"
	"github.com/sirupsen/logrus"
)

// Option names read from the "config" group.
const (
	OptionAPIKey        = "api_key"
	OptionAPISecret     = "api_secret"
	OptionCacheLifetime = "cache_lifetime"
	OptionUser          = "user"
)

// HTTPDoer sends the HTTP requests issued by invocations.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UserResolver supplies the authenticated user for a client.
type UserResolver interface {
	User(c *Client) (string, bool, error)
}

// UserResolverFunc adapts a function to UserResolver.
type UserResolverFunc func(c *Client) (string, bool, error)

// User implements UserResolver.
func (f UserResolverFunc) User(c *Client) (string, bool, error) { return f(c) }

type anonymousUser struct{}

func (anonymousUser) User(*Client) (string, bool, error) { return "", false, nil }

// ConfiguredUser resolves the user from the "user" configuration option.
var ConfiguredUser UserResolver = UserResolverFunc(func(c *Client) (string, bool, error) {
	v, err := c.GetOption(OptionUser, infrastructure.Absent())
	if err != nil {
		return "", false, err
	}
	s, ok := v.Scalar()
	return s, ok && s != "", nil
})

// Client is the entry point to the remote API. Credentials are resolved once
// at construction and never change.
type Client struct {
	key    string
	secret string

	container *Container
	users     UserResolver
	http      HTTPDoer
	endpoint  string
	logger    logrus.FieldLogger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCredentials sets both the API key and secret explicitly.
func WithCredentials(key, secret string) ClientOption {
	return func(c *Client) {
		c.key = key
		c.secret = secret
	}
}

// WithKey sets the API key explicitly.
func WithKey(key string) ClientOption {
	return func(c *Client) { c.key = key }
}

// WithSecret sets the API secret explicitly.
func WithSecret(secret string) ClientOption {
	return func(c *Client) { c.secret = secret }
}

// WithUserResolver replaces the default anonymous user lookup.
func WithUserResolver(r UserResolver) ClientOption {
	return func(c *Client) { c.users = r }
}

// WithHTTPClient sets the transport used by invocations.
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) { c.http = doer }
}

// WithEndpoint overrides the REST endpoint from the container settings.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithLogger sets the client logger.
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a client on top of container. A key or secret not given
// explicitly is read from the "api_key"/"api_secret" options; both may stay
// empty, in which case invocations fail with ErrMissingCredentials. The
// error is non-nil only when the container cannot be built.
func NewClient(container *Container, opts ...ClientOption) (*Client, error) {
	c := &Client{container: container}
	for _, opt := range opts {
		opt(c)
	}

	settings := container.Settings()
	if c.logger == nil {
		c.logger = container.logger
	}
	if c.users == nil {
		c.users = anonymousUser{}
	}
	if c.endpoint == "" {
		c.endpoint = settings.HTTP.Endpoint
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: settings.HTTP.Timeout}
	}

	if c.key == "" {
		v, err := c.GetOption(OptionAPIKey, infrastructure.Absent())
		if err != nil {
			return nil, fmt.Errorf("failed to resolve API key: %w", err)
		}
		c.key, _ = v.Scalar()
	}
	if c.secret == "" {
		v, err := c.GetOption(OptionAPISecret, infrastructure.Absent())
		if err != nil {
			return nil, fmt.Errorf("failed to resolve API secret: %w", err)
		}
		c.secret, _ = v.Scalar()
	}

	return c, nil
}

// CallMethod returns an invocation of method. Nothing is sent until
// GetResults is called.
func (c *Client) CallMethod(method string, params map[string]string) *Method {
	return newMethod(c, method, params)
}

// GetResultsOf calls method and waits for its results.
func (c *Client) GetResultsOf(ctx context.Context, method string, params map[string]string) (*Results, error) {
	return c.CallMethod(method, params).GetResults(ctx)
}

// GetApiKey returns the resolved API key.
func (c *Client) GetApiKey() string { return c.key }

// HasSecret reports whether requests will be signed.
func (c *Client) HasSecret() bool { return c.secret != "" }

// GetUser returns the authenticated user, if any.
func (c *Client) GetUser() (string, bool, error) { return c.users.User(c) }

// GetOption reads "config.<option>", returning fallback when it is missing.
// A container that failed to build is returned as an error.
func (c *Client) GetOption(option string, fallback infrastructure.Value) (infrastructure.Value, error) {
	repo, err := c.container.Config()
	if err != nil {
		return infrastructure.Absent(), err
	}
	return repo.Get(ConfigGroup+"."+option, fallback), nil
}
