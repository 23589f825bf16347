// Package httpclient issues authenticated requests against a REST document API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

const (
	RequestedWith     = "astradoc 0.1.0"
	DefaultAuthHeader = "X-Cassandra-Token"
	DefaultTimeout    = 30 * time.Second
)

// defaultHTTPClient is shared by every Client so that connections are pooled and kept alive
var defaultHTTPClient = &http.Client{}

// Options configures a Client. Either BaseURL or DatabaseID and DatabaseRegion must be set.
type Options struct {
	ApplicationToken string
	BaseURL          string
	DatabaseID       string
	DatabaseRegion   string
	AuthHeaderName   string
	Timeout          time.Duration
	// LogLevel is used to build a logger when Logger is nil
	LogLevel   string
	Logger     hclog.Logger
	HTTPClient *http.Client
}

// RequestOptions are per request settings
type RequestOptions struct {
	Params  url.Values
	Timeout time.Duration
}

// Client is immutable, scoped copies are derived with WithPath
type Client struct {
	baseURL          string
	applicationToken string
	authHeaderName   string
	timeout          time.Duration
	logger           hclog.Logger
	httpClient       *http.Client
}

func defaultLogLevel() string {
	if os.Getenv("ASTRADOC_ENV") == "production" {
		return "error"
	}
	return "info"
}

// AstraURL returns the document API root of an Astra database
func AstraURL(databaseID, region string) string {
	return "https://" + databaseID + "-" + region + ".apps.astra.datastax.com"
}

// New checks the options and returns a Client
func New(opts Options) (*Client, error) {

	var baseURL string
	switch {
	case len(opts.DatabaseID) > 0 && len(opts.DatabaseRegion) > 0:
		baseURL = AstraURL(opts.DatabaseID, opts.DatabaseRegion)
	case len(opts.BaseURL) > 0:
		baseURL = opts.BaseURL
	default:
		return nil, configurationError("baseUrl required for initialization")
	}

	if len(opts.ApplicationToken) == 0 {
		return nil, configurationError("applicationToken required for initialization")
	}

	c := &Client{
		baseURL:          baseURL,
		applicationToken: opts.ApplicationToken,
		authHeaderName:   opts.AuthHeaderName,
		timeout:          opts.Timeout,
		logger:           opts.Logger,
		httpClient:       opts.HTTPClient,
	}

	if c.authHeaderName == "" {
		c.authHeaderName = DefaultAuthHeader
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.httpClient == nil {
		c.httpClient = defaultHTTPClient
	}
	if c.logger == nil {
		level := opts.LogLevel
		if level == "" {
			level = defaultLogLevel()
		}
		c.logger = hclog.New(&hclog.LoggerOptions{
			Name:  "astradoc",
			Level: hclog.LevelFromString(level),
		})
	}

	return c, nil
}

// BaseURL returns the URL every request path is appended to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Logger returns the logger requests are traced with
func (c *Client) Logger() hclog.Logger {
	return c.logger
}

// WithPath returns a copy of the client whose base URL is suffixed by path
func (c *Client) WithPath(path string) *Client {
	clone := *c
	clone.baseURL = c.baseURL + path
	return &clone
}

func (c *Client) Get(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodGet, path, nil, opts)
}

func (c *Client) Post(ctx context.Context, path string, data interface{}, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, data, opts)
}

func (c *Client) Put(ctx context.Context, path string, data interface{}, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodPut, path, data, opts)
}

func (c *Client) Patch(ctx context.Context, path string, data interface{}, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodPatch, path, data, opts)
}

func (c *Client) Delete(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodDelete, path, nil, opts)
}

func (c *Client) request(ctx context.Context, method, path string, data interface{}, opts *RequestOptions) (*Response, error) {

	if opts == nil {
		opts = &RequestOptions{}
	}

	u := c.baseURL + path
	if len(opts.Params) > 0 {
		u += "?" + opts.Params.Encode()
	}

	var body io.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, errors.Wrap(err, "unable to encode request body")
		}
		body = bytes.NewReader(b)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &Error{Method: method, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", RequestedWith)
	req.Header.Set("X-Requested-With", RequestedWith)
	req.Header.Set(c.authHeaderName, c.applicationToken)

	c.logger.Debug("--- "+method+" "+u)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Method: method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug(resp.Status + " " + method + " " + u)

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Method: method, URL: u, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var desc struct {
			Description string `json:"description"`
		}
		_ = json.Unmarshal(b, &desc)
		return nil, &Error{Method: method, URL: u, Status: resp.StatusCode, Description: desc.Description}
	}

	return parseResponse(resp.StatusCode, b)
}
