package astradoc

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/xdbsoft/astradoc/api"
	"github.com/xdbsoft/astradoc/httpclient"
)

// DefaultPageSize is the number of documents requested per page
const DefaultPageSize = 20

// CursorStatus is the lifecycle state of a Cursor
type CursorStatus int

const (
	Uninitialized CursorStatus = iota
	Initialized
	Executing
	Executed
)

func (s CursorStatus) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Executing:
		return "executing"
	case Executed:
		return "executed"
	}
	return "uninitialized"
}

// fetchCall is one run of the fetch loop, shared by every caller waiting on it
type fetchCall struct {
	done chan struct{}
	err  error
}

// Cursor lazily fetches every page matching a query. Documents are fetched once, on the first
// materialization, later calls reuse them.
type Cursor struct {
	collection *Collection
	query      Filter
	limit      int

	mu        sync.Mutex
	status    CursorStatus
	documents []api.StoredDocument
	call      *fetchCall
}

func newCursor(collection *Collection, filter Filter, opts *FindOptions) (*Cursor, error) {

	query, err := FormatQuery(filter, opts)
	if err != nil {
		return nil, err
	}

	o := optionsOf(opts)
	limit := o.Limit
	if limit < 0 {
		limit = 0
	}

	return &Cursor{
		collection: collection,
		query:      query,
		limit:      limit,
		status:     Initialized,
	}, nil
}

// Status returns the lifecycle state of the cursor
func (c *Cursor) Status() CursorStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// fetch runs the fetch loop unless it already ran. Concurrent callers wait for the same run.
// The run is detached from the cancellation of the caller that started it, each caller stops
// waiting when its own context ends. A failed run leaves the cursor initialized, the next call
// starts over.
func (c *Cursor) fetch(ctx context.Context) error {

	c.mu.Lock()
	if c.status == Executed {
		c.mu.Unlock()
		return nil
	}
	call := c.call
	if c.status != Executing {
		call = &fetchCall{done: make(chan struct{})}
		c.call = call
		c.status = Executing
		go c.run(context.WithoutCancel(ctx), call)
	}
	c.mu.Unlock()

	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cursor) run(ctx context.Context, call *fetchCall) {

	docs, err := c.getAll(ctx)

	c.mu.Lock()
	if err != nil {
		c.status = Initialized
	} else {
		c.documents = docs
		c.status = Executed
	}
	call.err = err
	close(call.done)
	c.mu.Unlock()
}

func (c *Cursor) getAll(ctx context.Context) ([]api.StoredDocument, error) {

	oneRequest := c.limit > 0 && c.limit < DefaultPageSize
	pageSize := DefaultPageSize
	if oneRequest {
		pageSize = c.limit
	}

	var where string
	if len(c.query) > 0 {
		b, err := json.Marshal(c.query)
		if err != nil {
			return nil, errors.Wrap(err, "unable to encode query")
		}
		where = string(b)
	}

	var documents []api.StoredDocument
	var pageState string
	for {
		params := url.Values{}
		if len(where) > 0 {
			params.Set("where", where)
		}
		params.Set("page-size", strconv.Itoa(pageSize))
		if len(pageState) > 0 {
			params.Set("page-state", pageState)
		}

		res, err := c.collection.client.Get(ctx, "/", &httpclient.RequestOptions{Params: params})
		if err != nil {
			return nil, err
		}

		page, err := res.Documents()
		if err != nil {
			return nil, err
		}
		documents = append(documents, page...)
		pageState = res.PageState

		if oneRequest || (c.limit > 0 && len(documents) >= c.limit) || len(pageState) == 0 {
			break
		}
	}

	if c.limit > 0 && len(documents) > c.limit {
		documents = documents[:c.limit]
	}

	return documents, nil
}

// snapshot returns the fetched documents, only valid once executed
func (c *Cursor) snapshot() []api.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	docs := make([]api.Document, len(c.documents))
	for i, d := range c.documents {
		docs[i] = d.Content
	}
	return docs
}

// stored returns the fetched documents along with their resource id, only valid once executed
func (c *Cursor) stored() []api.StoredDocument {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.StoredDocument(nil), c.documents...)
}

// ToArray returns every document of the cursor
func (c *Cursor) ToArray(ctx context.Context, done ...Callback[[]api.Document]) ([]api.Document, error) {
	return execute(ctx, c.collection.logger(), func(ctx context.Context) ([]api.Document, error) {
		if err := c.fetch(ctx); err != nil {
			return nil, err
		}
		return c.snapshot(), nil
	}, done)
}

// ForEach calls fn on every document in order, one at a time, and returns the number of
// documents visited. It stops at the first error returned by fn.
func (c *Cursor) ForEach(ctx context.Context, fn func(api.Document) error, done ...Callback[int]) (int, error) {
	return execute(ctx, c.collection.logger(), func(ctx context.Context) (int, error) {
		if err := c.fetch(ctx); err != nil {
			return 0, err
		}
		n := 0
		for _, doc := range c.snapshot() {
			if err := fn(doc); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	}, done)
}

// Count returns the number of documents of the cursor. Every page is fetched to count them.
func (c *Cursor) Count(ctx context.Context, done ...Callback[int]) (int, error) {
	return execute(ctx, c.collection.logger(), func(ctx context.Context) (int, error) {
		if err := c.fetch(ctx); err != nil {
			return 0, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.documents), nil
	}, done)
}

// Stream always fails, the document API has no streaming cursor
func (c *Cursor) Stream() error {
	return errStream
}
