package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/dmitrymomot/taskdesk/pkg/logger"
	"github.com/dmitrymomot/taskdesk/pkg/requestid"
	"github.com/dmitrymomot/taskdesk/pkg/routes"
	"github.com/dmitrymomot/taskdesk/pkg/session"
)

const (
	// DefaultCSRFInvalidCode is the error code the API uses for a rejected token.
	DefaultCSRFInvalidCode = "EBADCSRFTOKEN"
	// DefaultLoginEndpoint is the call whose 401 means "wrong credentials"
	// rather than "session expired".
	DefaultLoginEndpoint = "/auth/login"
	// CSRFHeader carries the token on state-changing requests.
	CSRFHeader = "X-CSRF-Token"

	defaultTimeout  = 30 * time.Second
	maxErrorBodyLen = 1 << 20
)

// SessionStore is the part of *session.Store the gateway uses.
type SessionStore interface {
	Load(ctx context.Context) (*session.Session, error)
	Clear(ctx context.Context) error
	Purge(ctx context.Context) error
}

// TokenSource is the part of *csrf.Manager the gateway uses.
type TokenSource interface {
	Ensure(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// Locator reports where the user currently is, for redirect decisions.
type Locator func() string

// Request describes one API call. Path is relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded when non-nil.
	Body   any
	Header http.Header
}

// Client is the authenticated request gateway.
type Client struct {
	base          *url.URL
	http          *http.Client
	sessions      SessionStore
	csrf          TokenSource
	emitter       Emitter
	routes        routes.Config
	locate        Locator
	metrics       *Metrics
	logger        *slog.Logger
	csrfCode      string
	loginEndpoint string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client. Give it a cookie jar: the
// CSRF token is bound to a cookie.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithSessionStore(s SessionStore) Option {
	return func(c *Client) { c.sessions = s }
}

func WithCSRF(t TokenSource) Option {
	return func(c *Client) { c.csrf = t }
}

func WithEmitter(e Emitter) Option {
	return func(c *Client) {
		if e != nil {
			c.emitter = e
		}
	}
}

func WithRoutes(r routes.Config) Option {
	return func(c *Client) { c.routes = r }
}

func WithLocator(l Locator) Option {
	return func(c *Client) {
		if l != nil {
			c.locate = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCSRFInvalidCode sets the 403 error code that triggers a token refresh.
func WithCSRFInvalidCode(code string) Option {
	return func(c *Client) {
		if code != "" {
			c.csrfCode = code
		}
	}
}

func WithLoginEndpoint(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.loginEndpoint = path
		}
	}
}

// NewHTTPClient returns an http.Client with a cookie jar scoped by the public
// suffix list, the equivalent of a browser sending credentials.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Jar: jar, Timeout: timeout}, nil
}

// New creates a gateway for the API rooted at baseURL, e.g.
// "http://localhost:5000/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Join(ErrInvalidBaseURL, err)
	}

	c := &Client{
		base:          u,
		emitter:       nopEmitter{},
		routes:        routes.Default(),
		locate:        func() string { return "" },
		logger:        logger.Discard(),
		csrfCode:      DefaultCSRFInvalidCode,
		loginEndpoint: DefaultLoginEndpoint,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		hc, err := NewHTTPClient(defaultTimeout)
		if err != nil {
			return nil, err
		}
		c.http = hc
	}
	c.logger = c.logger.With(logger.Component("gateway"))
	return c, nil
}

// HTTPClient exposes the underlying client so the CSRF fetcher can share its
// cookie jar.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Get is Do with GET and no body.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

// Post is Do with POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put is Do with PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Do sends req, decoding a 2xx JSON body into out when out is non-nil.
// Failures are classified, their side effects applied (session cleanup,
// events), and returned as *APIError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	ctx, _ = requestid.Ensure(ctx)
	start := time.Now()

	var payload []byte
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", req.Method, req.Path, err)
		}
		payload = raw
	}

	var token string
	if stateChanging(req.Method) && c.csrf != nil {
		t, err := c.csrf.Ensure(ctx)
		if err != nil {
			// Sent without the header; the server answers with its CSRF code
			// and the retry below fetches again.
			c.logger.WarnContext(ctx, "no csrf token for request",
				logger.Method(req.Method), logger.Path(req.Path), logger.Error(err))
		}
		token = t
	}

	resp, err := c.send(ctx, req, payload, token)
	if err == nil && c.isCSRFRejection(resp) {
		resp, err = c.retryCSRF(ctx, req, payload)
	}

	if err != nil {
		apiErr, ok := AsAPIError(err)
		if !ok {
			apiErr = &APIError{
				Method:    req.Method,
				Path:      req.Path,
				Kind:      KindNetwork,
				RequestID: requestid.FromContext(ctx),
				Err:       err,
			}
		}
		c.fail(ctx, apiErr, start)
		return apiErr
	}

	if resp.status >= 200 && resp.status < 300 {
		c.metrics.observe(req.Method, "ok", time.Since(start))
		if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.body, out); err != nil {
			return errors.Join(ErrDecodeResponse, err)
		}
		return nil
	}

	apiErr := c.newAPIError(ctx, req, resp)
	c.fail(ctx, apiErr, start)
	return apiErr
}

func (c *Client) fail(ctx context.Context, apiErr *APIError, start time.Time) {
	c.handle(ctx, apiErr)
	c.metrics.observe(apiErr.Method, string(apiErr.Kind), time.Since(start))
}

// retryCSRF refreshes the token and replays the request once. A refresh that
// yields no token, or a second rejection, ends in KindCSRFExpired.
func (c *Client) retryCSRF(ctx context.Context, req Request, payload []byte) (*response, error) {
	expired := func(status int) error {
		return &APIError{
			Method:    req.Method,
			Path:      req.Path,
			Status:    status,
			Code:      c.csrfCode,
			Kind:      KindCSRFExpired,
			RequestID: requestid.FromContext(ctx),
		}
	}

	if c.csrf == nil {
		c.metrics.csrfRetry("no_source")
		return nil, expired(http.StatusForbidden)
	}

	token, err := c.csrf.Refresh(ctx)
	if err != nil || token == "" {
		c.logger.WarnContext(ctx, "csrf refresh failed", logger.Path(req.Path), logger.Error(err))
		c.metrics.csrfRetry("refresh_failed")
		return nil, expired(http.StatusForbidden)
	}

	resp, err := c.send(ctx, req, payload, token)
	if err != nil {
		c.metrics.csrfRetry("network")
		return nil, err
	}
	if c.isCSRFRejection(resp) {
		c.metrics.csrfRetry("rejected")
		return nil, expired(resp.status)
	}
	c.metrics.csrfRetry("ok")
	return resp, nil
}

type response struct {
	status int
	header http.Header
	body   []byte
	// code is the error code parsed from a non-2xx body.
	code string
	env  errorEnvelope
}

type errorEnvelope struct {
	Message string       `json:"message"`
	Error   string       `json:"error"`
	Code    string       `json:"code"`
	Errors  []FieldError `json:"errors"`
}

func (c *Client) send(ctx context.Context, req Request, payload []byte, csrfToken string) (*response, error) {
	target := c.base.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.sessions != nil {
		if sess, err := c.sessions.Load(ctx); err == nil && sess.Token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+sess.Token)
		}
	}
	if csrfToken != "" {
		httpReq.Header.Set(CSRFHeader, csrfToken)
	}
	requestid.Propagate(httpReq)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodyLen))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	resp := &response{status: httpResp.StatusCode, header: httpResp.Header, body: raw}
	if resp.status >= 300 && len(raw) > 0 {
		_ = json.Unmarshal(raw, &resp.env)
		resp.code = resp.env.Code
	}
	return resp, nil
}

func (c *Client) isCSRFRejection(resp *response) bool {
	return resp.status == http.StatusForbidden && resp.code == c.csrfCode
}

func (c *Client) newAPIError(ctx context.Context, req Request, resp *response) *APIError {
	msg := resp.env.Message
	if msg == "" {
		msg = resp.env.Error
	}
	return &APIError{
		Method:    req.Method,
		Path:      req.Path,
		Status:    resp.status,
		Code:      resp.code,
		Message:   msg,
		Errors:    resp.env.Errors,
		Kind:      c.classify(req, resp.status),
		RequestID: requestid.FromContext(ctx),
		Body:      resp.body,
	}
}

func (c *Client) classify(req Request, status int) Kind {
	switch {
	case status == http.StatusUnauthorized && c.isLogin(req):
		return KindLoginRejected
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status >= 500:
		return KindServer
	default:
		return KindUnexpected
	}
}

func (c *Client) isLogin(req Request) bool {
	return req.Method == http.MethodPost && strings.TrimRight(req.Path, "/") == c.loginEndpoint
}

func stateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
