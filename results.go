package astradoc

import (
	"github.com/xdbsoft/astradoc/api"
)

type InsertOneResult struct {
	Acknowledged bool
	InsertedID   string
}

type InsertManyResult struct {
	Acknowledged bool
	// InsertedIDs maps the position of each input document to its identifier
	InsertedIDs map[int]string
}

type UpdateResult struct {
	Acknowledged  bool
	MatchedCount  int
	ModifiedCount int
	UpsertedID    string
	// Value is the updated document as selected by UpdateOptions.ReturnDocument, single document updates only
	Value api.Document
}

type DeleteResult struct {
	// Acknowledged is false when nothing matched a single document delete
	Acknowledged bool
	DeletedCount int
	// Value is the deleted document, single document deletes only
	Value api.Document
}
