package api

import (
	"github.com/rs/xid"
)

// IDField is the document field holding its identifier
const IDField = "_id"

//Document represents a schemaless JSON document
type Document map[string]interface{}

//ID returns the document identifier, or an empty string when it has none
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

//Clone returns a shallow copy of the document
func (d Document) Clone() Document {
	c := make(Document, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

//NextID generates a pseudo-random ID that could be used when creating a document
func NextID() string {
	return xid.New().String()
}

//StoredDocument is a document as kept by a Repository, keyed by its resource id
type StoredDocument struct {
	ID      string
	Content Document
}
