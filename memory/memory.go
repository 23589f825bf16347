// Package memory provides an in-memory api.Repository, mostly useful for tests and local development.
package memory

import (
	"sort"
	"sync"

	"github.com/xdbsoft/astradoc/api"
)

type notFound string

func (err notFound) IsNotFound() bool {
	return true
}
func (err notFound) Error() string {
	return string(err)
}

type conflict string

func (err conflict) IsConflict() bool {
	return true
}
func (err conflict) Error() string {
	return string(err)
}

// New returns an empty repository
func New() api.Repository {
	return &repository{}
}

type repository struct {
	mu   sync.RWMutex
	Data map[string]map[string]api.Document
}

func (r *repository) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Data == nil {
		r.Data = make(map[string]map[string]api.Document)
	}
	return nil
}

func (r *repository) CreateCollection(c api.ObjectRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.Data[c.String()]; found {
		return conflict("collection already exists")
	}
	r.Data[c.String()] = make(map[string]api.Document)
	return nil
}

func (r *repository) DeleteCollection(c api.ObjectRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.Data[c.String()]; !found {
		return notFound("collection not found")
	}
	delete(r.Data, c.String())
	return nil
}

func (r *repository) Get(document api.ObjectRef) (api.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	col, found := r.Data[document.Collection().String()]
	if !found {
		return nil, notFound("collection not found")
	}

	doc, found := col[document.ID()]
	if !found {
		return nil, notFound("document not found")
	}

	return doc.Clone(), nil
}

func (r *repository) GetAll(c api.ObjectRef) ([]api.StoredDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	col, found := r.Data[c.String()]
	if !found {
		return nil, notFound("collection not found")
	}

	res := make([]api.StoredDocument, 0, len(col))
	for id, d := range col {
		res = append(res, api.StoredDocument{ID: id, Content: d.Clone()})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })

	return res, nil
}

func (r *repository) Put(document api.ObjectRef, payload api.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	col := r.collection(document)
	col[document.ID()] = payload.Clone()

	return nil
}

func (r *repository) Patch(document api.ObjectRef, payload api.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	col := r.collection(document)
	d, found := col[document.ID()]
	if !found {
		return notFound("document not found")
	}

	for k, v := range payload {
		d[k] = v
	}

	return nil
}

func (r *repository) Delete(document api.ObjectRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	col, found := r.Data[document.Collection().String()]
	if found {
		delete(col, document.ID())
	}

	return nil
}

// collection returns the document's collection, creating it on first write. Callers hold the lock.
func (r *repository) collection(document api.ObjectRef) map[string]api.Document {
	c := document.Collection().String()
	col, found := r.Data[c]
	if !found {
		col = make(map[string]api.Document)
		r.Data[c] = col
	}
	return col
}
