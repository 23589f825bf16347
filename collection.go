package astradoc

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xdbsoft/astradoc/api"
	"github.com/xdbsoft/astradoc/httpclient"
)

// Collection exposes document database style operations on top of a REST document collection
type Collection struct {
	client *httpclient.Client
	name   string
}

func newCollection(client *httpclient.Client, name string) (*Collection, error) {
	if len(name) == 0 {
		return nil, configurationError("Collection name is required")
	}
	return &Collection{
		client: client.WithPath("/collections/" + url.PathEscape(name)),
		name:   name,
	}, nil
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) logger() hclog.Logger {
	return c.client.Logger()
}

// documentPath returns the resource path of the document id. An empty id would address the
// collection itself.
func documentPath(id string) (string, error) {
	if len(id) == 0 {
		return "", errors.New("document has no resource id")
	}
	return "/" + url.PathEscape(id), nil
}

// InsertOne stores doc under its _id, generating one when missing
func (c *Collection) InsertOne(ctx context.Context, doc api.Document, opts *InsertOptions, done ...Callback[*InsertOneResult]) (*InsertOneResult, error) {
	return execute(ctx, c.logger(), func(ctx context.Context) (*InsertOneResult, error) {
		AddDefaultID(doc)
		path, err := documentPath(doc.ID())
		if err != nil {
			return nil, err
		}
		res, err := c.client.Put(ctx, path, doc, insertRequestOptions(opts))
		if err != nil {
			return nil, err
		}
		return &InsertOneResult{
			Acknowledged: len(res.DocumentID) > 0,
			InsertedID:   res.DocumentID,
		}, nil
	}, done)
}

// InsertMany stores every document with a single batch request
func (c *Collection) InsertMany(ctx context.Context, docs []api.Document, opts *InsertOptions, done ...Callback[*InsertManyResult]) (*InsertManyResult, error) {
	return execute(ctx, c.logger(), func(ctx context.Context) (*InsertManyResult, error) {
		for _, doc := range docs {
			AddDefaultID(doc)
		}
		reqOpts := insertRequestOptions(opts)
		if reqOpts.Params == nil {
			reqOpts.Params = url.Values{}
		}
		reqOpts.Params.Set("id-path", api.IDField)

		res, err := c.client.Post(ctx, "/batch", docs, reqOpts)
		if err != nil {
			return nil, err
		}

		ids := make(map[int]string, len(res.DocumentIDs))
		for i, id := range res.DocumentIDs {
			ids[i] = id
		}
		return &InsertManyResult{
			Acknowledged: len(res.DocumentIDs) > 0,
			InsertedIDs:  ids,
		}, nil
	}, done)
}

func insertRequestOptions(opts *InsertOptions) *httpclient.RequestOptions {
	o := optionsOf(opts)
	reqOpts := &httpclient.RequestOptions{}
	if o.TTL > 0 {
		reqOpts.Params = url.Values{}
		reqOpts.Params.Set("ttl", strconv.Itoa(int(o.TTL.Seconds())))
	}
	return reqOpts
}

// patch applies the update to a fetched document and returns the patched version
func (c *Collection) patch(ctx context.Context, doc api.StoredDocument, update Update) (api.Document, error) {
	path, err := documentPath(doc.ID)
	if err != nil {
		return nil, err
	}
	fields, err := flattenUpdate(update, doc.Content)
	if err != nil {
		return nil, err
	}
	after := doc.Content.Clone()
	if len(fields) == 0 {
		return after, nil
	}
	if _, err := c.client.Patch(ctx, path, fields, nil); err != nil {
		return nil, err
	}
	for k, v := range fields {
		after[k] = v
	}
	return after, nil
}

// equalityFields returns the fields filter constrains to a single value
func equalityFields(filter Filter) api.Document {
	fields := api.Document{}
	for k, v := range filter {
		if strings.HasPrefix(k, "$") {
			continue
		}
		if isLiteral(v) {
			fields[k] = v
		} else if ops, ok := fieldsOf(v); ok {
			if eq, ok := ops["$eq"]; ok && len(ops) == 1 {
				fields[k] = eq
			}
		}
	}
	return fields
}

// upsert inserts the document an update would have produced from the equality fields of filter
func (c *Collection) upsert(ctx context.Context, filter Filter, update Update) (*UpdateResult, error) {
	base := equalityFields(filter)
	fields, err := flattenUpdate(update, base)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		base[k] = v
	}
	return c.insertUpserted(ctx, base)
}

func (c *Collection) insertUpserted(ctx context.Context, doc api.Document) (*UpdateResult, error) {
	AddDefaultID(doc)
	path, err := documentPath(doc.ID())
	if err != nil {
		return nil, err
	}
	if _, err := c.client.Put(ctx, path, doc, nil); err != nil {
		return nil, err
	}
	return &UpdateResult{
		Acknowledged: true,
		UpsertedID:   doc.ID(),
		Value:        doc,
	}, nil
}

// UpdateOne patches the first document matching filter. $inc is resolved against the fetched
// document, so concurrent writers may be overwritten.
func (c *Collection) UpdateOne(ctx context.Context, filter Filter, update Update, opts *UpdateOptions, done ...Callback[*UpdateResult]) (*UpdateResult, error) {
	return execute(ctx, c.logger(), func(ctx context.Context) (*UpdateResult, error) {
		o := optionsOf(opts)
		doc, err := c.findOne(ctx, filter, &FindOptions{Collation: o.Collation})
		if err != nil {
			return nil, err
		}
		if doc == nil {
			if o.Upsert {
				return c.upsert(ctx, filter, update)
			}
			return &UpdateResult{Acknowledged: true}, nil
		}

		after, err := c.patch(ctx, *doc, update)
		if err != nil {
			return nil, err
		}

		res := &UpdateResult{
			Acknowledged:  true,
			MatchedCount:  1,
			ModifiedCount: 1,
			Value:         doc.Content,
		}
		if o.ReturnDocument == After {
			res.Value = after
		}
		return res, nil
	}, done)
}

// UpdateMany patches every document matching filter concurrently. The first failure is returned,
// other patches are not cancelled.
func (c *Collection) UpdateMany(ctx context.Context, filter Filter, update Update, opts *UpdateOptions, done ...Callback[*UpdateResult]) (*UpdateResult, error) {
	return execute(ctx, c.logger(), func(ctx context.Context) (*UpdateResult, error) {
		o := optionsOf(opts)
		docs, err := c.findAll(ctx, filter, &FindOptions{Collation: o.Collation})
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 && o.Upsert {
			return c.upsert(ctx, filter, update)
		}
		for _, doc := range docs {
			if _, err := documentPath(doc.ID); err != nil {
				return nil, err
			}
		}

		var g errgroup.Group
		for _, doc := range docs {
			doc := doc
			g.Go(func() error {
				_, err := c.patch(ctx, doc, update)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		return &UpdateResult{
			Acknowledged:  true,
			MatchedCount:  len(docs),
			ModifiedCount: len(docs),
		}, nil
	}, done)
}

// ReplaceOne overwrites the first document matching filter, keeping its _id
func (c *Collection) ReplaceOne(ctx context.Context, filter Filter, replacement api.Document, opts *UpdateOptions, done ...Callback[*UpdateResult]) (*UpdateResult, error) {
	return execute(ctx, c.logger(), func(ctx context.Context) (*UpdateResult, error) {
		o := optionsOf(opts)
		doc, err := c.findOne(ctx, filter, &FindOptions{Collation: o.Collation})
		if err != nil {
			return nil, err
		}
		if doc == nil {
			if o.Upsert {
				newDoc := replacement.Clone()
				if _, found := newDoc[api.IDField]; !found {
					if id, ok := equalityFields(filter)[api.IDField]; ok {
						newDoc[api.IDField] = id
					}
				}
				return c.insertUpserted(ctx, newDoc)
			}
			return &UpdateResult{Acknowledged: true}, nil
		}

		path, err := documentPath(doc.ID)
		if err != nil {
			return nil, err
		}
		newDoc := replacement.Clone()
		newDoc[api.IDField] = doc.Content[api.IDField]
		if _, err := c.client.Put(ctx, path, newDoc, nil); err != nil {
			return nil, err
		}

		res := &UpdateResult{
			Acknowledged:  true,
			MatchedCount:  1,
			ModifiedCount: 1,
			Value:         doc.Content,
		}
		if o.ReturnDocument == After {
			res.Value = newDoc
		}
		return res, nil
	}, done)
}

// DeleteOne deletes the first document matching filter and returns it. Nothing matching is not an error.
func (c *Collection) DeleteOne(ctx context.Context, filter Filter, opts *DeleteOptions, done ...Callback[*DeleteResult]) (*DeleteResult, error) {
	return execute(ctx, c.logger(), func(ctx context.Context) (*DeleteResult, error) {
		o := optionsOf(opts)
		doc, err := c.findOne(ctx, filter, &FindOptions{Collation: o.Collation})
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return &DeleteResult{}, nil
		}
		path, err := documentPath(doc.ID)
		if err != nil {
			return nil, err
		}
		if _, err := c.client.Delete(ctx, path, nil); err != nil {
			return nil, err
		}
		return &DeleteResult{Acknowledged: true, DeletedCount: 1, Value: doc.Content}, nil
	}, done)
}

// DeleteMany deletes every document matching filter concurrently. The first failure is returned,
// other deletes are not cancelled.
func (c *Collection) DeleteMany(ctx context.Context, filter Filter, opts *DeleteOptions, done ...Callback[*DeleteResult]) (*DeleteResult, error) {
	return execute(ctx, c.logger(), func(ctx context.Context) (*DeleteResult, error) {
		o := optionsOf(opts)
		docs, err := c.findAll(ctx, filter, &FindOptions{Collation: o.Collation})
		if err != nil {
			return nil, err
		}

		paths := make([]string, len(docs))
		for i, doc := range docs {
			if paths[i], err = documentPath(doc.ID); err != nil {
				return nil, err
			}
		}

		var g errgroup.Group
		for _, path := range paths {
			path := path
			g.Go(func() error {
				_, err := c.client.Delete(ctx, path, nil)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		return &DeleteResult{Acknowledged: true, DeletedCount: len(docs)}, nil
	}, done)
}

// Find returns a cursor over the documents matching filter. No request is issued until the
// cursor is read.
func (c *Collection) Find(filter Filter, opts *FindOptions, done ...Callback[*Cursor]) (*Cursor, error) {
	return execute(context.Background(), c.logger(), func(context.Context) (*Cursor, error) {
		return newCursor(c, filter, opts)
	}, done)
}

// findAll returns the matching documents along with the resource id single document requests
// must address
func (c *Collection) findAll(ctx context.Context, filter Filter, opts *FindOptions) ([]api.StoredDocument, error) {
	cursor, err := newCursor(c, filter, opts)
	if err != nil {
		return nil, err
	}
	if err := cursor.fetch(ctx); err != nil {
		return nil, err
	}
	return cursor.stored(), nil
}

func (c *Collection) findOne(ctx context.Context, filter Filter, opts *FindOptions) (*api.StoredDocument, error) {
	o := optionsOf(opts)
	o.Limit = 1
	docs, err := c.findAll(ctx, filter, &o)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return &docs[0], nil
}

// FindOne returns the first document matching filter, or nil
func (c *Collection) FindOne(ctx context.Context, filter Filter, opts *FindOptions, done ...Callback[api.Document]) (api.Document, error) {
	return execute(ctx, c.logger(), func(ctx context.Context) (api.Document, error) {
		doc, err := c.findOne(ctx, filter, opts)
		if err != nil || doc == nil {
			return nil, err
		}
		return doc.Content, nil
	}, done)
}

// Distinct returns the unique values of field among the documents matching filter, in order of
// first occurrence. Array values contribute each of their elements.
func (c *Collection) Distinct(ctx context.Context, field string, filter Filter, opts *FindOptions, done ...Callback[[]interface{}]) ([]interface{}, error) {
	return execute(ctx, c.logger(), func(ctx context.Context) ([]interface{}, error) {
		docs, err := c.findAll(ctx, filter, opts)
		if err != nil {
			return nil, err
		}

		values := []interface{}{}
		seen := make(map[string]bool)
		add := func(v interface{}) {
			b, err := json.Marshal(v)
			key := string(b)
			if err != nil {
				key = "?" + err.Error()
			}
			if !seen[key] {
				seen[key] = true
				values = append(values, v)
			}
		}

		for _, doc := range docs {
			v, ok := doc.Content[field]
			if !ok {
				continue
			}
			if list, isList := v.([]interface{}); isList {
				for _, item := range list {
					add(item)
				}
				continue
			}
			add(v)
		}
		return values, nil
	}, done)
}

// CountDocuments returns the number of documents matching filter. Every matching document is fetched.
func (c *Collection) CountDocuments(ctx context.Context, filter Filter, opts *FindOptions, done ...Callback[int]) (int, error) {
	return execute(ctx, c.logger(), func(ctx context.Context) (int, error) {
		docs, err := c.findAll(ctx, filter, opts)
		return len(docs), err
	}, done)
}

// Deprecated aliases

// Insert is InsertMany
func (c *Collection) Insert(ctx context.Context, docs []api.Document, opts *InsertOptions, done ...Callback[*InsertManyResult]) (*InsertManyResult, error) {
	return c.InsertMany(ctx, docs, opts, done...)
}

// Update is UpdateMany
func (c *Collection) Update(ctx context.Context, filter Filter, update Update, opts *UpdateOptions, done ...Callback[*UpdateResult]) (*UpdateResult, error) {
	return c.UpdateMany(ctx, filter, update, opts, done...)
}

// FindOneAndUpdate is UpdateOne, the document is in UpdateResult.Value
func (c *Collection) FindOneAndUpdate(ctx context.Context, filter Filter, update Update, opts *UpdateOptions, done ...Callback[*UpdateResult]) (*UpdateResult, error) {
	return c.UpdateOne(ctx, filter, update, opts, done...)
}

// FindOneAndDelete is DeleteOne, the document is in DeleteResult.Value
func (c *Collection) FindOneAndDelete(ctx context.Context, filter Filter, opts *DeleteOptions, done ...Callback[*DeleteResult]) (*DeleteResult, error) {
	return c.DeleteOne(ctx, filter, opts, done...)
}

// FindOneAndRemove is FindOneAndDelete
func (c *Collection) FindOneAndRemove(ctx context.Context, filter Filter, opts *DeleteOptions, done ...Callback[*DeleteResult]) (*DeleteResult, error) {
	return c.FindOneAndDelete(ctx, filter, opts, done...)
}

// Remove is DeleteMany
func (c *Collection) Remove(ctx context.Context, filter Filter, opts *DeleteOptions, done ...Callback[*DeleteResult]) (*DeleteResult, error) {
	return c.DeleteMany(ctx, filter, opts, done...)
}

// Count is CountDocuments
func (c *Collection) Count(ctx context.Context, filter Filter, opts *FindOptions, done ...Callback[int]) (int, error) {
	return c.CountDocuments(ctx, filter, opts, done...)
}

// Aggregate always fails, pipelines are not supported
func (c *Collection) Aggregate(ctx context.Context, pipeline []interface{}) (*Cursor, error) {
	return nil, errAggregation
}

// CreateIndex does nothing and returns index, the document API manages its own indexes
func (c *Collection) CreateIndex(ctx context.Context, index interface{}, done ...Callback[interface{}]) (interface{}, error) {
	return execute(ctx, c.logger(), func(context.Context) (interface{}, error) {
		return index, nil
	}, done)
}

// DropIndexes does nothing
func (c *Collection) DropIndexes(ctx context.Context, done ...Callback[bool]) (bool, error) {
	return execute(ctx, c.logger(), func(context.Context) (bool, error) {
		return true, nil
	}, done)
}
