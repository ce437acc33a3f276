package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/Balram04/assigno/internal/common/logtrace"
)

// DefaultServerURL is used when no API URL is configured.
const DefaultServerURL = "http://localhost:5000/api"

// Client issues requests to the Assigno API on behalf of the bound session.
type Client struct {
	serverURL  string
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger

	mu         sync.RWMutex
	session    Session
	onRejected func()
}

// ClientOptions contains options for configuring the client.
type ClientOptions struct {
	Timeout               time.Duration // per-request timeout, 0 means none
	DisableCertValidation bool          // skips TLS verification, for local development only
	UserAgent             string
	Transport             http.RoundTripper // overrides the default transport
}

// NewClient creates a client for serverURL. An empty URL selects DefaultServerURL.
func NewClient(serverURL string, opts ...ClientOptions) *Client {
	var o ClientOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if serverURL == "" {
		serverURL = DefaultServerURL
	}

	httpClient := &http.Client{Timeout: o.Timeout}
	switch {
	case o.Transport != nil:
		httpClient.Transport = o.Transport
	case o.DisableCertValidation:
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	ua := o.UserAgent
	if ua == "" {
		ua = "assigno-cli"
	}

	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: httpClient,
		userAgent:  ua,
		logger:     log.With().Str("component", "httpclient").Logger(),
	}
}

// Bind attaches the session whose credential is sent with every request, and the handler
// run once when a 401 actually ends that session. Either may be nil.
func (c *Client) Bind(s Session, onRejected func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	c.onRejected = onRejected
}

// ServerURL returns the configured API base URL.
func (c *Client) ServerURL() string {
	return c.serverURL
}

func (c *Client) binding() (Session, func()) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session, c.onRejected
}

// RequestOptions describes a single API call.
type RequestOptions struct {
	Method      string            // HTTP method
	Path        string            // path relative to the server URL
	QueryParams map[string]string // optional query parameters
	Body        []byte            // optional JSON body
	Multipart   *Multipart        // optional multipart payload; takes precedence over Body
}

// Response is a successful response, passed through unmodified.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StreamResponse is a successful response whose body has not been read.
type StreamResponse struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Filename      string // from Content-Disposition, when present
}

// Do makes the request described by opts. See HTTPClientInterface.
func (c *Client) Do(ctx context.Context, opts RequestOptions) (*Response, error) {
	resp, reqID, err := c.send(ctx, opts, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrTransport.MsgErr("failed to read response body", err)
	}

	if resp.StatusCode >= 400 {
		return nil, c.failure(resp.StatusCode, body, opts, reqID)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Stream makes the request described by opts and hands back the body unread.
func (c *Client) Stream(ctx context.Context, opts RequestOptions) (*StreamResponse, error) {
	resp, reqID, err := c.send(ctx, opts, "*/*")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, c.failure(resp.StatusCode, body, opts, reqID)
	}

	sr := &StreamResponse{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			sr.Filename = params["filename"]
		}
	}
	return sr, nil
}

func (c *Client) send(ctx context.Context, opts RequestOptions, accept string) (*http.Response, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, reqID := logtrace.EnsureRequestID(ctx)

	u, err := c.buildURL(opts)
	if err != nil {
		return nil, reqID, ErrInvalidRequest.MsgErr("invalid server URL", err)
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case opts.Multipart != nil:
		buf, ct, err := opts.Multipart.encode()
		if err != nil {
			return nil, reqID, ErrInvalidRequest.MsgErr("failed to encode multipart payload", err)
		}
		body, contentType = buf, ct
	case opts.Body != nil:
		body, contentType = bytes.NewReader(opts.Body), "application/json"
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, reqID, ErrInvalidRequest.MsgErr("failed to create request", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(logtrace.RequestIDHeader, reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if s, _ := c.binding(); s != nil {
		if token := s.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().
			Str("request_id", reqID).
			Str("method", method).
			Str("path", opts.Path).
			Err(err).
			Msg("request failed")
		return nil, reqID, ErrTransport.MsgErr("request failed", err)
	}

	c.logger.Debug().
		Str("request_id", reqID).
		Str("method", method).
		Str("path", opts.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	return resp, reqID, nil
}

// failure converts an error response and runs the global rejected-credential path on 401.
func (c *Client) failure(status int, body []byte, opts RequestOptions, reqID string) error {
	herr := &HTTPError{StatusCode: status}
	if gjson.ValidBytes(body) {
		res := gjson.GetManyBytes(body, "error", "message", "field")
		switch {
		case res[0].Type == gjson.String:
			herr.Message = res[0].String()
		case res[1].Type == gjson.String:
			herr.Message = res[1].String()
		}
		herr.Field = res[2].String()
	}
	if herr.Message == "" {
		herr.Message = strings.TrimSpace(http.StatusText(status))
		if herr.Message == "" {
			herr.Message = "request failed with status " + strconv.Itoa(status)
		}
	}

	if status == http.StatusUnauthorized {
		c.rejectCredential(opts, reqID)
	}
	return herr
}

func (c *Client) rejectCredential(opts RequestOptions, reqID string) {
	s, onRejected := c.binding()
	if s == nil {
		return
	}
	if !s.Invalidate() {
		return
	}
	c.logger.Info().
		Str("request_id", reqID).
		Str("path", opts.Path).
		Msg("credential rejected, session invalidated")
	if onRejected != nil {
		onRejected()
	}
}

func (c *Client) buildURL(opts RequestOptions) (string, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("server URL %q must include scheme and host", c.serverURL)
	}
	u.Path = path.Join("/", u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Get is a convenience wrapper for a GET request.
func (c *Client) Get(ctx context.Context, p string, query map[string]string) (*Response, error) {
	return c.Do(ctx, RequestOptions{Method: http.MethodGet, Path: p, QueryParams: query})
}

// Post is a convenience wrapper for a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, p string, body []byte) (*Response, error) {
	return c.Do(ctx, RequestOptions{Method: http.MethodPost, Path: p, Body: body})
}
