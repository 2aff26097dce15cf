package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/google/uuid"
)

// HTTPClient implements Client over the JSON HTTP API.
//
// Every request carries Content-Type: application/json and a fresh
// X-Request-ID. Requests to endpoints other than login and register are
// authorized with the bearer token of the configured TokenSource.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        logging.Logger
	requestID  func() string
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the default *http.Client. nil is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger for request and failure logs. nil is ignored.
func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) {
		if l != nil {
			c.log = l
		}
	}
}

// NewHTTPClient builds a client for the API rooted at baseURL. tokens may be
// nil, in which case no request is authorized.
func NewHTTPClient(baseURL string, tokens TokenSource, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		tokens:     tokens,
		log:        logging.NewNop(),
		requestID:  uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// isPublicEndpoint reports whether endpoint must be sent without a token.
func isPublicEndpoint(endpoint string) bool {
	return strings.Contains(endpoint, EndpointLogin) || strings.Contains(endpoint, EndpointRegister)
}

func (c *HTTPClient) url(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + endpoint
}

// Do sends one JSON request and decodes a success body into out (skipped
// when out is nil). header values are merged over the defaults; the bearer
// token is applied last.
func (c *HTTPClient) Do(ctx context.Context, method, endpoint string, body any, out any, header http.Header) error {
	url := c.url(endpoint)
	log := c.log.With("method", method, "endpoint", endpoint)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.RequestIDHeaderName, c.requestID())
	for k, vs := range header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.tokens != nil && !isPublicEndpoint(endpoint) {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
		}
	}

	log.Debug(ctx, "sending request", "request_id", req.Header.Get(common.RequestIDHeaderName))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		terr := &TransportError{Method: method, URL: url, Err: err}
		log.Error(ctx, "API Error", "error", terr)
		return terr
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("Error: %d", resp.StatusCode)}
		var eb models.ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err == nil && eb.Message != "" {
			apiErr.Message = eb.Message
		}
		log.Error(ctx, "API Error", "status", resp.StatusCode, "error", apiErr)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		perr := &ParseError{Err: err}
		log.Error(ctx, "API Error", "error", perr)
		return perr
	}
	return nil
}

// Register creates an account via POST /auth/register and returns the
// logged-in user with its token.
func (c *HTTPClient) Register(ctx context.Context, data models.RegisterData) (*models.LoginResponse, error) {
	var env models.Envelope[models.LoginResponse]
	if err := c.Do(ctx, http.MethodPost, EndpointRegister, data, &env, nil); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Login authenticates via POST /auth/login with a username or email.
func (c *HTTPClient) Login(ctx context.Context, data models.LoginData) (*models.LoginResponse, error) {
	var env models.Envelope[models.LoginResponse]
	if err := c.Do(ctx, http.MethodPost, EndpointLogin, data, &env, nil); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Logout invalidates the session server-side via POST /auth/logout.
// The response body is ignored.
func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, EndpointLogout, nil, nil, nil)
}

// Me fetches the profile of the token owner via GET /auth/me.
func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var env models.Envelope[models.User]
	if err := c.Do(ctx, http.MethodGet, EndpointMe, nil, &env, nil); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Ping checks the health endpoint, which answers {"message":"Healthy"}.
func (c *HTTPClient) Ping(ctx context.Context) error {
	var hs models.HealthStatus
	if err := c.Do(ctx, http.MethodGet, EndpointHealth, nil, &hs, nil); err != nil {
		return err
	}
	if hs.Message != "Healthy" {
		return ErrUnavailable
	}
	return nil
}
