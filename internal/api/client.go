package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/utils"
	"github.com/google/uuid"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultRegisterTimeout = 15 * time.Second

	// maxBody caps how much of a response is read into memory.
	maxBody = 1 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL         string        // every contract path is appended to it (ex: "http://host/api")
	RootURL         string        // bare server root for liveness (ex: "http://host")
	Timeout         time.Duration // default per-request timeout
	RegisterTimeout time.Duration // timeout of the register call
	UserAgent       string
	HTTPClient      *http.Client
	Logger          logger.Logger
}

// Client talks to the bookmark backend and converts every failure into *Error.
type Client struct {
	baseURL         string
	rootURL         string
	timeout         time.Duration
	registerTimeout time.Duration
	userAgent       string
	http            *http.Client
	log             logger.Logger
}

// New creates a Client. Zero-valued options fall back to sane defaults.
func New(opts Options) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		rootURL:         strings.TrimRight(opts.RootURL, "/"),
		timeout:         opts.Timeout,
		registerTimeout: opts.RegisterTimeout,
		userAgent:       opts.UserAgent,
		http:            opts.HTTPClient,
		log:             opts.Logger,
	}
	if c.rootURL == "" {
		c.rootURL = c.baseURL
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.registerTimeout <= 0 {
		c.registerTimeout = defaultRegisterTimeout
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// RootURL returns the bare server root.
func (c *Client) RootURL() string { return c.rootURL }

// WithTimeout returns a copy of c whose default timeout is d.
func (c *Client) WithTimeout(d time.Duration) *Client {
	cp := *c
	if d > 0 {
		cp.timeout = d
	}
	return &cp
}

// Register creates an account. A successful registration is also a login.
func (c *Client) Register(ctx context.Context, creds domain.Credentials) (*AuthResponse, error) {
	return c.authenticate(ctx, request{
		op:      "register",
		method:  http.MethodPost,
		url:     c.baseURL + "/auth/register",
		body:    creds,
		timeout: c.registerTimeout,
	})
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*AuthResponse, error) {
	return c.authenticate(ctx, request{
		op:      "login",
		method:  http.MethodPost,
		url:     c.baseURL + "/auth/login",
		body:    creds,
		timeout: c.timeout,
	})
}

func (c *Client) authenticate(ctx context.Context, r request) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return nil, err
	}
	if out.Token == "" || out.User == nil {
		return nil, c.fail(r, KindMalformedResponse, "response is missing token or user", nil)
	}
	return &out, nil
}

// Me resolves the user owning token.
func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	r := request{
		op:      "resolve session",
		method:  http.MethodGet,
		url:     c.baseURL + "/auth/me",
		token:   token,
		timeout: c.timeout,
	}

	var out meResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, c.fail(r, KindMalformedResponse, "response is missing user", nil)
	}
	return out.User, nil
}

// ListBookmarks returns every bookmark of the token owner, in server order.
func (c *Client) ListBookmarks(ctx context.Context, token string) ([]domain.Bookmark, error) {
	var out bookmarksResponse
	err := c.doJSON(ctx, request{
		op:      "list bookmarks",
		method:  http.MethodGet,
		url:     c.baseURL + "/bookmarks",
		token:   token,
		timeout: c.timeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Bookmarks == nil {
		out.Bookmarks = []domain.Bookmark{}
	}
	return out.Bookmarks, nil
}

// CreateBookmark submits rawURL; the backend fills title, favicon and summary.
func (c *Client) CreateBookmark(ctx context.Context, token, rawURL string) (*domain.Bookmark, error) {
	var out domain.Bookmark
	err := c.doJSON(ctx, request{
		op:      "create bookmark",
		method:  http.MethodPost,
		url:     c.baseURL + "/bookmarks",
		token:   token,
		body:    createBookmarkRequest{URL: rawURL},
		timeout: c.timeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBookmark removes the bookmark with the given id.
func (c *Client) DeleteBookmark(ctx context.Context, token string, id int64) error {
	_, _, err := c.send(ctx, request{
		op:      "delete bookmark",
		method:  http.MethodDelete,
		url:     fmt.Sprintf("%s/bookmarks/%d", c.baseURL, id),
		token:   token,
		timeout: c.timeout,
	})
	return err
}

// Root checks that the bare server root answers with a 2xx.
func (c *Client) Root(ctx context.Context) (*Ping, error) {
	return c.ping(ctx, "check server root", c.rootURL+"/")
}

// Health calls the optional health endpoint.
func (c *Client) Health(ctx context.Context) (*Ping, error) {
	return c.ping(ctx, "check health", c.baseURL+"/health")
}

func (c *Client) ping(ctx context.Context, op, url string) (*Ping, error) {
	status, body, err := c.send(ctx, request{
		op:      op,
		method:  http.MethodGet,
		url:     url,
		timeout: c.timeout,
	})
	if err != nil {
		return nil, err
	}
	return &Ping{URL: url, Status: status, Body: strings.TrimSpace(string(body))}, nil
}

type request struct {
	op      string
	method  string
	url     string
	token   string
	body    any
	timeout time.Duration
}

func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	_, data, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return c.fail(r, KindMalformedResponse, "invalid JSON in response", err)
	}
	return nil
}

// send performs one request and returns the status and body of a 2xx reply.
func (c *Client) send(ctx context.Context, r request) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return 0, nil, c.fail(r, KindClient, "failed to encode request", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return 0, nil, c.fail(r, KindClient, "failed to build request", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		kind, msg := classify(err)
		c.log.Debug("api call failed",
			logger.String("op", r.op),
			logger.String("request_id", requestID),
			logger.String("kind", kind.String()),
			logger.Error(err))
		return 0, nil, c.fail(r, kind, msg, err)
	}
	defer utils.DrainAndClose(resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		kind, msg := classify(err)
		if kind == KindClient {
			kind, msg = KindNoResponse, "failed to read response"
		}
		return 0, nil, c.fail(r, kind, msg, err)
	}

	c.log.Debug("api call",
		logger.String("op", r.op),
		logger.String("method", r.method),
		logger.String("url", r.url),
		logger.String("request_id", requestID),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, data, c.rejected(r, resp.StatusCode, data)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) rejected(r request, status int, data []byte) *Error {
	var eb errorBody
	_ = json.Unmarshal(data, &eb)

	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}

	e := c.fail(r, KindServerRejected, msg, nil)
	e.Status = status
	return e
}

func (c *Client) fail(r request, kind Kind, msg string, err error) *Error {
	return &Error{
		Kind:    kind,
		Op:      r.op,
		Method:  r.method,
		URL:     r.url,
		Timeout: r.timeout,
		Message: msg,
		Err:     err,
	}
}
