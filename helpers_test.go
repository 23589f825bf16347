package astradoc

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/xdbsoft/astradoc/api"
	"github.com/xdbsoft/astradoc/memory"
	"github.com/xdbsoft/astradoc/server"
)

const testToken = "test-token"

// requestCounter counts the requests served per method
type requestCounter struct {
	mu     sync.Mutex
	counts map[string]int
	last   map[string]url.Values
	delay  time.Duration
}

// SetDelay makes every following request wait d before being served
func (c *requestCounter) SetDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = d
}

func (c *requestCounter) Count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[method]
}

// LastQuery returns the query parameters of the last request served for method
func (c *requestCounter) LastQuery(method string) url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last[method]
}

func (c *requestCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]int)
	c.last = make(map[string]url.Values)
}

func (c *requestCounter) wrap(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.counts[r.Method]++
		c.last[r.Method] = r.URL.Query()
		delay := c.delay
		c.mu.Unlock()
		time.Sleep(delay)
		h.ServeHTTP(w, r)
	})
}

type testEnv struct {
	Server   *httptest.Server
	Repo     api.Repository
	Requests *requestCounter
	Client   *Client
	Db       *Db
}

func newTestEnv(t *testing.T) *testEnv {

	repo := memory.New()
	h, err := server.New(server.Config{ApplicationToken: testToken}, repo, nil)
	require.NoError(t, err)

	counter := &requestCounter{}
	counter.Reset()
	s := httptest.NewServer(counter.wrap(h))
	t.Cleanup(s.Close)

	client, err := NewClient(s.URL, ClientOptions{
		Keyspace:         "ks",
		ApplicationToken: testToken,
		Logger:           hclog.NewNullLogger(),
	})
	require.NoError(t, err)

	db, err := client.Db("")
	require.NoError(t, err)

	return &testEnv{
		Server:   s,
		Repo:     repo,
		Requests: counter,
		Client:   client,
		Db:       db,
	}
}

// collection returns the named collection, filled with docs stored directly in the repository
func (e *testEnv) collection(t *testing.T, name string, docs ...api.Document) *Collection {
	col, err := e.Db.Collection(name)
	require.NoError(t, err)

	ref := api.ObjectRef{"ks", name}
	require.NoError(t, e.Repo.CreateCollection(ref))
	for _, d := range docs {
		require.NoError(t, e.Repo.Put(append(ref[:2:2], d.ID()), d))
	}
	e.Requests.Reset()
	return col
}
