package astradoc

import (
	"time"
)

// Collation is accepted for signature compatibility, any collation is rejected
type Collation struct {
	Locale   string
	Strength int
}

type FindOptions struct {
	// Limit bounds the number of documents, zero means unbounded
	Limit     int
	Collation *Collation
}

type InsertOptions struct {
	// TTL expires the inserted documents, zero keeps them forever
	TTL time.Duration
}

// ReturnDocument selects which version of the document an update reports
type ReturnDocument string

const (
	Before ReturnDocument = "before"
	After  ReturnDocument = "after"
)

type UpdateOptions struct {
	// Upsert inserts a document when none matches
	Upsert         bool
	ReturnDocument ReturnDocument
	Collation      *Collation
}

type DeleteOptions struct {
	Collation *Collation
}
