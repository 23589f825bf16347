package astradoc

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/xdbsoft/astradoc/httpclient"
)

// ClientOptions configures a Client created with NewClient
type ClientOptions struct {
	// Keyspace is the namespace used by Db when called without a name
	Keyspace         string
	ApplicationToken string
	AuthHeaderName   string
	LogLevel         string
	Timeout          time.Duration
	Logger           hclog.Logger
	HTTPClient       *http.Client
}

// Client is the entry point to a document API
type Client struct {
	http     *httpclient.Client
	keyspace string
}

// NewClient returns a client of the document API served at baseURL
func NewClient(baseURL string, opts ClientOptions) (*Client, error) {
	c, err := httpclient.New(httpclient.Options{
		BaseURL:          baseURL,
		ApplicationToken: opts.ApplicationToken,
		AuthHeaderName:   opts.AuthHeaderName,
		Timeout:          opts.Timeout,
		LogLevel:         opts.LogLevel,
		Logger:           opts.Logger,
		HTTPClient:       opts.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	return &Client{http: c, keyspace: opts.Keyspace}, nil
}

// Connect returns a client configured from a connection string, see ParseURI.
// No request is issued.
func Connect(ctx context.Context, uri string, done ...Callback[*Client]) (*Client, error) {
	return execute(ctx, hclog.Default(), func(context.Context) (*Client, error) {
		p, err := ParseURI(uri)
		if err != nil {
			return nil, err
		}
		return NewClient(p.BaseURL, ClientOptions{
			Keyspace:         p.Keyspace,
			ApplicationToken: p.ApplicationToken,
			LogLevel:         p.LogLevel,
		})
	}, done)
}

// Db returns the named namespace, or the keyspace of the client when name is empty
func (c *Client) Db(name string) (*Db, error) {
	if len(name) == 0 {
		name = c.keyspace
	}
	if len(name) == 0 {
		return nil, configurationError("Database name must be provided")
	}
	return newDb(c.http, name)
}

// Keyspace returns the default namespace of the client
func (c *Client) Keyspace() string {
	return c.keyspace
}

// Logger returns the logger of the client
func (c *Client) Logger() hclog.Logger {
	return c.http.Logger()
}

// Close does nothing, connections are pooled by the HTTP client
func (c *Client) Close() error {
	return nil
}

// SetMaxListeners does nothing and returns n
func (c *Client) SetMaxListeners(n int) int {
	return n
}
