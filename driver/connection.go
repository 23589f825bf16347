// Package driver adapts astradoc to the Connection and Collection contract expected by
// document mapping layers written against a native document database driver.
package driver

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/xdbsoft/astradoc"
)

// ReadyState is the lifecycle state of a Connection
type ReadyState int

const (
	Disconnected ReadyState = iota
	Connected
	Connecting
	Disconnecting
)

func (s ReadyState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Connecting:
		return "connecting"
	case Disconnecting:
		return "disconnecting"
	}
	return "disconnected"
}

// ErrNotConnected is returned by operations issued before OpenURI succeeded
var ErrNotConnected = errors.New("driver: connection is not open")

// Connection is a connection to the default namespace of a document API
type Connection struct {
	mu          sync.Mutex
	readyState  ReadyState
	uri         string
	client      *astradoc.Client
	db          *astradoc.Db
	collections map[string]*Collection
	logger      hclog.Logger
}

// NewConnection returns a disconnected Connection
func NewConnection() *Connection {
	return &Connection{
		collections: make(map[string]*Collection),
		logger:      hclog.NewNullLogger(),
	}
}

// ReadyState returns the lifecycle state of the connection
func (c *Connection) ReadyState() ReadyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readyState
}

// OpenURI connects to the namespace named in uri. When a callback is given, it receives the
// outcome and OpenURI returns a nil error.
func (c *Connection) OpenURI(ctx context.Context, uri string, done ...astradoc.Callback[*Connection]) (*Connection, error) {

	c.mu.Lock()
	c.uri = uri
	c.readyState = Connecting
	c.mu.Unlock()

	err := c.open(ctx, uri)

	c.mu.Lock()
	if err != nil {
		c.readyState = Disconnected
	} else {
		c.readyState = Connected
	}
	c.mu.Unlock()

	for _, cb := range done {
		if cb != nil {
			cb(c, err)
			return c, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) open(ctx context.Context, uri string) error {

	client, err := astradoc.Connect(ctx, uri)
	if err != nil {
		return err
	}
	db, err := client.Db("")
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.client = client
	c.db = db
	c.logger = client.Logger().Named("driver")
	c.mu.Unlock()

	c.logger.Debug("connection open", "namespace", db.Name())
	return nil
}

func (c *Connection) namespace() (*astradoc.Db, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db, nil
}

// Collection returns the named collection, the same instance for every call with a given name.
// The collection may be used before the connection is open.
func (c *Connection) Collection(name string) (*Collection, error) {
	if len(name) == 0 {
		return nil, errors.New("driver: collection name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	col, found := c.collections[name]
	if !found {
		col = &Collection{conn: c, name: name}
		c.collections[name] = col
	}
	return col, nil
}

// CreateCollection creates the named collection, succeeding when it already exists
func (c *Connection) CreateCollection(ctx context.Context, name string, done ...astradoc.Callback[*astradoc.Collection]) (*astradoc.Collection, error) {
	db, err := c.namespace()
	if err != nil {
		return nil, err
	}
	return db.CreateCollection(ctx, name, done...)
}

// DropCollection deletes the named collection
func (c *Connection) DropCollection(ctx context.Context, name string, done ...astradoc.Callback[bool]) (bool, error) {
	db, err := c.namespace()
	if err != nil {
		return false, err
	}
	return db.DropCollection(ctx, name, done...)
}

// Close marks the connection disconnected, there is nothing to release
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.readyState = Disconnecting
	var err error
	if c.client != nil {
		err = c.client.Close()
	}
	c.readyState = Disconnected
	return err
}
