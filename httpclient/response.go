package httpclient

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/xdbsoft/astradoc/api"
)

// Response is the canonical shape of a successful call. Bodies nesting their payload under a
// "data" field are unwrapped, any other body becomes Data as a whole.
type Response struct {
	Status      int
	Data        json.RawMessage
	PageState   string
	DocumentID  string
	DocumentIDs []string
}

type envelope struct {
	Data        json.RawMessage `json:"data"`
	PageState   string          `json:"pageState"`
	DocumentID  string          `json:"documentId"`
	DocumentIDs []string        `json:"documentIds"`
}

func parseResponse(status int, body []byte) (*Response, error) {

	res := &Response{Status: status}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return res, nil
	}

	if trimmed[0] != '{' {
		res.Data = trimmed
		return res, nil
	}

	var e envelope
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return nil, errors.Wrap(err, "unable to decode response body")
	}

	res.PageState = e.PageState
	res.DocumentID = e.DocumentID
	res.DocumentIDs = e.DocumentIDs
	res.Data = e.Data
	if isEmpty(e.Data) {
		res.Data = trimmed
	}
	return res, nil
}

// isEmpty reports whether a data field carries nothing a caller could use
func isEmpty(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}

// Decode unmarshals Data into v
func (r *Response) Decode(v interface{}) error {
	if len(r.Data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(r.Data, v), "unable to decode response data")
}

// Documents decodes a Data object of documents keyed by id, in the order sent by the server.
// The key is the resource id of the document. Documents without an _id field get their key as _id,
// a non string _id is kept as is.
func (r *Response) Documents() ([]api.StoredDocument, error) {

	if len(r.Data) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(r.Data))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode documents")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("unable to decode documents: data is not an object")
	}

	var docs []api.StoredDocument
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "unable to decode documents")
		}
		key, _ := tok.(string)

		var doc api.Document
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrapf(err, "unable to decode document '%s'", key)
		}
		if doc == nil {
			doc = api.Document{}
		}
		if _, ok := doc[api.IDField]; !ok {
			doc[api.IDField] = key
		}
		id := key
		if len(id) == 0 {
			id = doc.ID()
		}
		docs = append(docs, api.StoredDocument{ID: id, Content: doc})
	}

	return docs, nil
}
