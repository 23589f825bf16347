package api

//Repository describes the interface that a datastore should implement
type Repository interface {
	Init() error

	CreateCollection(collection ObjectRef) error
	DeleteCollection(collection ObjectRef) error

	Get(document ObjectRef) (Document, error)
	GetAll(collection ObjectRef) ([]StoredDocument, error)
	Put(document ObjectRef, payload Document) error
	Patch(document ObjectRef, payload Document) error
	Delete(document ObjectRef) error
}

//NotFound is the interface that wraps the IsNotFound method
type NotFound interface {
	IsNotFound() bool
}

//Conflict is the interface that wraps the IsConflict method
type Conflict interface {
	IsConflict() bool
}
