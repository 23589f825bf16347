package astradoc

import (
	"context"
	"net/url"

	"github.com/xdbsoft/astradoc/httpclient"
)

// DefaultBasePath is the path of the namespaces of the document API
const DefaultBasePath = "/api/rest/v2/namespaces"

// Db is a namespace (keyspace) of the document API
type Db struct {
	client *httpclient.Client
	name   string
}

func newDb(client *httpclient.Client, name string) (*Db, error) {
	if len(name) == 0 {
		return nil, configurationError("Db: name is required")
	}
	return &Db{
		client: client.WithPath(DefaultBasePath + "/" + url.PathEscape(name)),
		name:   name,
	}, nil
}

// Name returns the namespace name
func (db *Db) Name() string {
	return db.name
}

// Collection returns the named collection of the namespace, it is not created
func (db *Db) Collection(name string) (*Collection, error) {
	if len(name) == 0 {
		return nil, configurationError("Db: collection name is required")
	}
	return newCollection(db.client, name)
}

// CreateCollection creates the named collection. Creating an existing collection succeeds.
func (db *Db) CreateCollection(ctx context.Context, name string, done ...Callback[*Collection]) (*Collection, error) {
	return execute(ctx, db.client.Logger(), func(ctx context.Context) (*Collection, error) {
		col, err := db.Collection(name)
		if err != nil {
			return nil, err
		}
		_, err = db.client.Post(ctx, "/collections", map[string]string{"name": name}, nil)
		if err != nil && !IsConflict(err) {
			return nil, err
		}
		return col, nil
	}, done)
}

// DropCollection deletes the named collection and its documents
func (db *Db) DropCollection(ctx context.Context, name string, done ...Callback[bool]) (bool, error) {
	return execute(ctx, db.client.Logger(), func(ctx context.Context) (bool, error) {
		if len(name) == 0 {
			return false, configurationError("Db: collection name is required")
		}
		if _, err := db.client.Delete(ctx, "/collections/"+url.PathEscape(name), nil); err != nil {
			return false, err
		}
		return true, nil
	}, done)
}

// DropDatabase does nothing, namespaces are not managed through the document API
func (db *Db) DropDatabase(ctx context.Context, done ...Callback[bool]) (bool, error) {
	return execute(ctx, db.client.Logger(), func(context.Context) (bool, error) {
		return false, nil
	}, done)
}
