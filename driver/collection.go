package driver

import (
	"context"

	"github.com/xdbsoft/astradoc"
	"github.com/xdbsoft/astradoc/api"
)

// Collection delegates every operation to the collection of the same name in the connection namespace
type Collection struct {
	conn *Connection
	name string
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) collection() (*astradoc.Collection, error) {
	db, err := c.conn.namespace()
	if err != nil {
		return nil, err
	}
	return db.Collection(c.name)
}

func (c *Collection) Find(filter astradoc.Filter, opts *astradoc.FindOptions, done ...astradoc.Callback[*astradoc.Cursor]) (*astradoc.Cursor, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.Find(filter, opts, done...)
}

func (c *Collection) FindOne(ctx context.Context, filter astradoc.Filter, opts *astradoc.FindOptions, done ...astradoc.Callback[api.Document]) (api.Document, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.FindOne(ctx, filter, opts, done...)
}

func (c *Collection) InsertOne(ctx context.Context, doc api.Document, opts *astradoc.InsertOptions, done ...astradoc.Callback[*astradoc.InsertOneResult]) (*astradoc.InsertOneResult, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.InsertOne(ctx, doc, opts, done...)
}

func (c *Collection) InsertMany(ctx context.Context, docs []api.Document, opts *astradoc.InsertOptions, done ...astradoc.Callback[*astradoc.InsertManyResult]) (*astradoc.InsertManyResult, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.InsertMany(ctx, docs, opts, done...)
}

// Insert is InsertMany
func (c *Collection) Insert(ctx context.Context, docs []api.Document, opts *astradoc.InsertOptions, done ...astradoc.Callback[*astradoc.InsertManyResult]) (*astradoc.InsertManyResult, error) {
	return c.InsertMany(ctx, docs, opts, done...)
}

func (c *Collection) UpdateOne(ctx context.Context, filter astradoc.Filter, update astradoc.Update, opts *astradoc.UpdateOptions, done ...astradoc.Callback[*astradoc.UpdateResult]) (*astradoc.UpdateResult, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.UpdateOne(ctx, filter, update, opts, done...)
}

func (c *Collection) UpdateMany(ctx context.Context, filter astradoc.Filter, update astradoc.Update, opts *astradoc.UpdateOptions, done ...astradoc.Callback[*astradoc.UpdateResult]) (*astradoc.UpdateResult, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.UpdateMany(ctx, filter, update, opts, done...)
}

// FindAndModify updates every document matching filter
func (c *Collection) FindAndModify(ctx context.Context, filter astradoc.Filter, update astradoc.Update, opts *astradoc.UpdateOptions, done ...astradoc.Callback[*astradoc.UpdateResult]) (*astradoc.UpdateResult, error) {
	return c.UpdateMany(ctx, filter, update, opts, done...)
}

func (c *Collection) FindOneAndUpdate(ctx context.Context, filter astradoc.Filter, update astradoc.Update, opts *astradoc.UpdateOptions, done ...astradoc.Callback[*astradoc.UpdateResult]) (*astradoc.UpdateResult, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.FindOneAndUpdate(ctx, filter, update, opts, done...)
}

// FindOneAndReplace assigns the fields of doc to every document matching filter. Fields absent
// from doc are kept.
func (c *Collection) FindOneAndReplace(ctx context.Context, filter astradoc.Filter, doc api.Document, opts *astradoc.UpdateOptions, done ...astradoc.Callback[*astradoc.UpdateResult]) (*astradoc.UpdateResult, error) {
	update := astradoc.Update(doc.Clone())
	delete(update, api.IDField)
	return c.UpdateMany(ctx, filter, update, opts, done...)
}

func (c *Collection) ReplaceOne(ctx context.Context, filter astradoc.Filter, doc api.Document, opts *astradoc.UpdateOptions, done ...astradoc.Callback[*astradoc.UpdateResult]) (*astradoc.UpdateResult, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.ReplaceOne(ctx, filter, doc, opts, done...)
}

func (c *Collection) FindOneAndDelete(ctx context.Context, filter astradoc.Filter, opts *astradoc.DeleteOptions, done ...astradoc.Callback[*astradoc.DeleteResult]) (*astradoc.DeleteResult, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.FindOneAndDelete(ctx, filter, opts, done...)
}

func (c *Collection) DeleteOne(ctx context.Context, filter astradoc.Filter, opts *astradoc.DeleteOptions, done ...astradoc.Callback[*astradoc.DeleteResult]) (*astradoc.DeleteResult, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.DeleteOne(ctx, filter, opts, done...)
}

func (c *Collection) DeleteMany(ctx context.Context, filter astradoc.Filter, opts *astradoc.DeleteOptions, done ...astradoc.Callback[*astradoc.DeleteResult]) (*astradoc.DeleteResult, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.DeleteMany(ctx, filter, opts, done...)
}

// Remove is DeleteMany
func (c *Collection) Remove(ctx context.Context, filter astradoc.Filter, opts *astradoc.DeleteOptions, done ...astradoc.Callback[*astradoc.DeleteResult]) (*astradoc.DeleteResult, error) {
	return c.DeleteMany(ctx, filter, opts, done...)
}

func (c *Collection) CountDocuments(ctx context.Context, filter astradoc.Filter, opts *astradoc.FindOptions, done ...astradoc.Callback[int]) (int, error) {
	col, err := c.collection()
	if err != nil {
		return 0, err
	}
	return col.CountDocuments(ctx, filter, opts, done...)
}

func (c *Collection) Distinct(ctx context.Context, field string, filter astradoc.Filter, opts *astradoc.FindOptions, done ...astradoc.Callback[[]interface{}]) ([]interface{}, error) {
	col, err := c.collection()
	if err != nil {
		return nil, err
	}
	return col.Distinct(ctx, field, filter, opts, done...)
}

// DropIndexes does nothing
func (c *Collection) DropIndexes(ctx context.Context, done ...astradoc.Callback[bool]) (bool, error) {
	col, err := c.collection()
	if err != nil {
		return false, err
	}
	return col.DropIndexes(ctx, done...)
}
