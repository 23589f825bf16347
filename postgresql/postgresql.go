package postgresql

import (
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	//we expect to depend on specific behaviour of github.com/lib/pq
	"github.com/lib/pq"
	"github.com/xdbsoft/astradoc/api"
)

// uniqueViolation is the PostgreSQL SQLSTATE raised on primary key conflicts
const uniqueViolation = "23505"

func New(connStr string) (api.Repository, error) {

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect")
	}

	return &repository{
		db: db,
	}, nil
}

type repository struct {
	db *sql.DB
}

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

func (r *repository) Init() error {
	if _, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS t_collection (
			namespace  text NOT NULL,
			name       text NOT NULL,
			created    timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT t_collection_pkey PRIMARY KEY (namespace, name)
		)`); err != nil {
		return errors.Wrap(err, "CREATE TABLE t_collection failed")
	}
	if _, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS t_document (
			collection text NOT NULL,
			id         character varying(126) NOT NULL,
			content    jsonb,
			created    timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated    timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT t_document_pkey PRIMARY KEY (collection, id)
		)`); err != nil {
		return errors.Wrap(err, "CREATE TABLE t_document failed")
	}
	return nil
}

func (r *repository) CreateCollection(c api.ObjectRef) error {

	_, err := r.db.Exec("INSERT INTO t_collection (namespace, name) VALUES ($1,$2)", c.Namespace(), c.ID())
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return conflict("collection already exists")
	}
	if err != nil {
		return errors.Wrap(err, "unable to create collection")
	}
	return nil
}

func (r *repository) DeleteCollection(c api.ObjectRef) error {

	res, err := r.db.Exec("DELETE FROM t_collection WHERE namespace=$1 AND name=$2", c.Namespace(), c.ID())
	if err != nil {
		return errors.Wrap(err, "unable to delete collection")
	}
	if _, err := r.db.Exec("DELETE FROM t_document WHERE collection=$1", c.String()); err != nil {
		return errors.Wrap(err, "unable to delete collection documents")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("collection not found")
	}
	return nil
}

func (r *repository) ensureCollection(c api.ObjectRef) error {
	if _, err := r.db.Exec("INSERT INTO t_collection (namespace, name) VALUES ($1,$2) ON CONFLICT DO NOTHING", c.Namespace(), c.ID()); err != nil {
		return errors.Wrap(err, "unable to register collection")
	}
	return nil
}

func (r *repository) Get(d api.ObjectRef) (api.Document, error) {

	rows, err := r.db.Query("SELECT content FROM t_document WHERE collection=$1 AND id=$2", d.Collection().String(), d.ID())
	if err != nil {
		return nil, errors.Wrap(err, "Select query failed")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, notFound("document not found")
	}

	var s []byte
	if err := rows.Scan(&s); err != nil {
		return nil, errors.Wrap(err, "DB retrieval failed")
	}

	content := make(api.Document)
	if err := json.Unmarshal(s, &content); err != nil {
		return nil, errors.Wrap(err, "DB decoding failed")
	}

	return content, nil
}

func (r *repository) GetAll(c api.ObjectRef) ([]api.StoredDocument, error) {

	var exists bool
	if err := r.db.QueryRow("SELECT EXISTS(SELECT 1 FROM t_collection WHERE namespace=$1 AND name=$2)", c.Namespace(), c.ID()).Scan(&exists); err != nil {
		return nil, errors.Wrap(err, "DB query failed")
	}
	if !exists {
		return nil, notFound("collection not found")
	}

	rows, err := r.db.Query("SELECT id, content FROM t_document WHERE collection=$1 ORDER BY id", c.String())
	if err != nil {
		return nil, errors.Wrap(err, "DB query failed")
	}
	defer rows.Close()

	result := []api.StoredDocument{}
	for rows.Next() {
		var id string
		var b []byte
		if err := rows.Scan(&id, &b); err != nil {
			return nil, errors.Wrap(err, "DB retrieval failed")
		}

		content := make(api.Document)
		if err := json.Unmarshal(b, &content); err != nil {
			return nil, errors.Wrap(err, "DB decoding failed")
		}

		result = append(result, api.StoredDocument{
			ID:      id,
			Content: content,
		})
	}

	return result, rows.Err()
}

func (r *repository) Put(d api.ObjectRef, payload api.Document) error {

	b, err := json.Marshal(&payload)
	if err != nil {
		return errors.Wrap(err, "unable to encode payload")
	}

	if err := r.ensureCollection(d.Collection()); err != nil {
		return err
	}

	if _, err := r.db.Exec("INSERT INTO t_document (collection, id, content) VALUES ($1,$2,$3) ON CONFLICT(collection,id) DO UPDATE SET content=$3,updated=CURRENT_TIMESTAMP", d.Collection().String(), d.ID(), &b); err != nil {
		return errors.Wrap(err, "unable to insert or update document")
	}

	return nil
}

func (r *repository) Patch(d api.ObjectRef, payload api.Document) error {

	b, err := json.Marshal(&payload)
	if err != nil {
		return errors.Wrap(err, "unable to encode payload")
	}

	res, err := r.db.Exec("UPDATE t_document SET content = (content || $1),updated=CURRENT_TIMESTAMP WHERE collection=$2 AND id=$3", &b, d.Collection().String(), d.ID())
	if err != nil {
		return errors.Wrap(err, "unable to update document")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("document not found")
	}

	return nil
}

func (r *repository) Delete(d api.ObjectRef) error {

	if _, err := r.db.Exec("DELETE FROM t_document where collection=$1 and id=$2", d.Collection().String(), d.ID()); err != nil {
		return errors.Wrap(err, "unable to delete document")
	}

	return nil
}
