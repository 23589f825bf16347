// Package server implements the REST document API consumed by astradoc, over any api.Repository.
package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/xdbsoft/astradoc/api"
	"github.com/xdbsoft/astradoc/memory"
	"github.com/xdbsoft/astradoc/postgresql"
)

// BasePath prefixes every namespace scoped route
const BasePath = "/api/rest/v2/namespaces/"

// Server instantiate a new document API server, backed by PostgreSQL when cfg.DBConnStr is set
func Server(cfg Config, logger hclog.Logger) (http.Handler, error) {

	var r api.Repository
	if len(cfg.DBConnStr) > 0 {
		var err error
		r, err = postgresql.New(cfg.DBConnStr)
		if err != nil {
			return nil, err
		}
	} else {
		r = memory.New()
	}

	return New(cfg, r, logger)
}

// New instantiate a document API server on top of the given repository
func New(cfg Config, r api.Repository, logger hclog.Logger) (http.Handler, error) {

	if err := r.Init(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &server{
		Config:         cfg.withDefaults(),
		DataRepository: r,
		Logger:         logger.Named("server"),
	}, nil
}

type server struct {
	Config         Config
	DataRepository api.Repository
	Logger         hclog.Logger
}

// target is a parsed request path
type target struct {
	Ref   api.ObjectRef
	Batch bool
	// Collections is set for the namespace level /collections resource
	Collections bool
}

func (s *server) getPageSize(pageSize string) (int, error) {

	if pageSize == "" {
		return s.Config.DefaultPageSize, nil
	}
	v, err := strconv.Atoi(pageSize)
	if err != nil || v < 1 {
		return 0, badRequest("page-size must be a positive integer")
	}
	if v > s.Config.MaxPageSize {
		return 0, badRequest("the max page size is " + strconv.Itoa(s.Config.MaxPageSize))
	}
	return v, nil
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {

	if err := s.authenticate(r); err != nil {
		s.handleError(w, r, err)
		return
	}

	t, err := s.getTarget(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.Logger.Debug("request", "method", r.Method, "target", t.Ref.String())

	var status int
	var data interface{}

	switch {
	case t.Collections:
		switch r.Method {
		case "POST":
			var payload struct {
				Name string `json:"name"`
			}
			if err := getPayload(r, &payload); err != nil {
				s.handleError(w, r, err)
				return
			}
			status, data, err = s.CreateCollection(api.ObjectRef{t.Ref.Namespace(), payload.Name})
		default:
			s.handleError(w, r, badRequest("unsupported method"))
			return
		}
	case t.Batch:
		if r.Method != "POST" {
			s.handleError(w, r, badRequest("unsupported method"))
			return
		}
		var payload []api.Document
		if err := getPayload(r, &payload); err != nil {
			s.handleError(w, r, err)
			return
		}
		status, data, err = s.AddDocuments(t.Ref, payload, r.FormValue("id-path"))
	case t.Ref.IsDocument():
		switch r.Method {
		case "GET":
			status, data, err = s.GetDocument(t.Ref)
		case "PUT":
			payload := make(api.Document)
			if err := getPayload(r, &payload); err != nil {
				s.handleError(w, r, err)
				return
			}
			status, data, err = s.PutDocument(t.Ref, payload)
		case "PATCH":
			payload := make(api.Document)
			if err := getPayload(r, &payload); err != nil {
				s.handleError(w, r, err)
				return
			}
			status, data, err = s.PatchDocument(t.Ref, payload)
		case "DELETE":
			status, data, err = s.DeleteDocument(t.Ref)
		default:
			s.handleError(w, r, badRequest("unsupported method"))
			return
		}
	default:
		switch r.Method {
		case "GET":
			status, data, err = s.SearchCollection(t.Ref, r.FormValue("where"), r.FormValue("page-size"), r.FormValue("page-state"))
		case "POST":
			payload := make(api.Document)
			if err := getPayload(r, &payload); err != nil {
				s.handleError(w, r, err)
				return
			}
			status, data, err = s.AddDocument(t.Ref, payload)
		case "DELETE":
			status, data, err = s.DeleteCollection(t.Ref)
		default:
			s.handleError(w, r, badRequest("unsupported method"))
			return
		}
	}

	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.handleResponse(w, r, status, data)
}

func (s *server) authenticate(r *http.Request) error {
	if s.Config.ApplicationToken == "" {
		return nil
	}
	if r.Header.Get(s.Config.AuthHeaderName) != s.Config.ApplicationToken {
		return notAuthorizedError{}
	}
	return nil
}

func getPayload(r *http.Request, payload interface{}) error {
	if r.Body != nil {
		defer r.Body.Close()
		d := json.NewDecoder(r.Body)
		err := d.Decode(&payload)
		if err != nil && err != io.EOF {
			return badRequest(errors.Wrap(err, "Unable to decode JSON body").Error())
		}
	}
	return nil
}

func (s *server) getTarget(r *http.Request) (target, error) {

	if !strings.HasPrefix(r.URL.Path, BasePath) {
		return target{}, notFoundError{api.ObjectRef{r.URL.Path}}
	}

	items := strings.Split(strings.TrimSuffix(r.URL.Path[len(BasePath):], "/"), "/")
	for _, item := range items {
		if len(item) == 0 {
			return target{}, badRequest("empty item in path")
		}
	}
	if len(items) < 2 || items[1] != "collections" {
		return target{}, notFoundError{api.ObjectRef(items)}
	}

	ref := api.ObjectRef{items[0]}
	switch len(items) {
	case 2:
		return target{Ref: ref, Collections: true}, nil
	case 3:
		return target{Ref: append(ref, items[2])}, nil
	case 4:
		ref = append(ref, items[2], items[3])
		if items[3] == "batch" && r.Method == "POST" {
			return target{Ref: ref.Collection(), Batch: true}, nil
		}
		return target{Ref: ref}, nil
	}

	return target{}, notFoundError{api.ObjectRef(items)}
}

// orderedDocuments encodes as a JSON object keeping the slice order
type orderedDocuments []api.StoredDocument

func (o orderedDocuments) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, d := range o {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(d.ID)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(d.Content)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

type documentPage struct {
	PageState string           `json:"pageState,omitempty"`
	Data      orderedDocuments `json:"data"`
}

type documentResponse struct {
	DocumentID string       `json:"documentId"`
	Data       api.Document `json:"data,omitempty"`
}

type batchResponse struct {
	DocumentIDs []string `json:"documentIds"`
}

type errorResponse struct {
	Description string `json:"description"`
	Code        int    `json:"code"`
}

func (s *server) handleResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {

	if data == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)

	if err := encoder.Encode(data); err != nil {
		s.Logger.Error("unable to encode response", "error", err)
	}
}

func (s *server) handleError(w http.ResponseWriter, r *http.Request, err error) {

	cause := errors.Cause(err)

	status := http.StatusInternalServerError
	description := "Internal server error"

	switch {
	case IsBadRequest(cause):
		status, description = http.StatusBadRequest, cause.Error()
	case IsNotAuthorized(cause):
		status, description = http.StatusUnauthorized, cause.Error()
	case IsNotFound(cause):
		status, description = http.StatusNotFound, cause.Error()
	case IsConflict(cause):
		status, description = http.StatusConflict, cause.Error()
	default:
		s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Description: description, Code: status})
}

func encodePageState(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodePageState(pageState string) (int, error) {
	if pageState == "" {
		return 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(pageState)
	if err != nil {
		return 0, badRequest("invalid page-state")
	}
	offset, err := strconv.Atoi(string(b))
	if err != nil || offset < 0 {
		return 0, badRequest("invalid page-state")
	}
	return offset, nil
}

func (s *server) CreateCollection(c api.ObjectRef) (int, interface{}, error) {

	if len(c.ID()) == 0 {
		return 0, nil, badRequest("collection name is required")
	}

	if err := s.DataRepository.CreateCollection(c); err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, map[string]string{"name": c.ID()}, nil
}

func (s *server) DeleteCollection(c api.ObjectRef) (int, interface{}, error) {

	if err := s.DataRepository.DeleteCollection(c); err != nil {
		return 0, nil, err
	}
	return http.StatusNoContent, nil, nil
}

func (s *server) SearchCollection(c api.ObjectRef, where, pageSize, pageState string) (int, interface{}, error) {

	w, err := parseWhere(where)
	if err != nil {
		return 0, nil, err
	}
	size, err := s.getPageSize(pageSize)
	if err != nil {
		return 0, nil, err
	}
	offset, err := decodePageState(pageState)
	if err != nil {
		return 0, nil, err
	}

	all, err := s.DataRepository.GetAll(c)
	if err != nil {
		return 0, nil, err
	}

	matching := make([]api.StoredDocument, 0, len(all))
	for _, d := range all {
		if w.Match(d.Content) {
			matching = append(matching, d)
		}
	}

	page := documentPage{Data: orderedDocuments{}}
	if offset < len(matching) {
		end := offset + size
		if end < len(matching) {
			page.PageState = encodePageState(end)
		} else {
			end = len(matching)
		}
		page.Data = matching[offset:end]
	}

	return http.StatusOK, page, nil
}

func (s *server) GetDocument(d api.ObjectRef) (int, interface{}, error) {

	doc, err := s.DataRepository.Get(d)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, documentResponse{DocumentID: d.ID(), Data: doc}, nil
}

func (s *server) AddDocument(c api.ObjectRef, payload api.Document) (int, interface{}, error) {

	id := api.NextID()
	if err := s.DataRepository.Put(append(c[:2:2], id), payload); err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, documentResponse{DocumentID: id}, nil
}

func (s *server) AddDocuments(c api.ObjectRef, payload []api.Document, idPath string) (int, interface{}, error) {

	ids := make([]string, len(payload))
	for i, doc := range payload {
		if len(idPath) == 0 {
			ids[i] = api.NextID()
			continue
		}
		v, ok := lookup(doc, idPath)
		id, isString := v.(string)
		if !ok || !isString || len(id) == 0 {
			return 0, nil, badRequest("json document at index " + strconv.Itoa(i) + " has no string value at " + idPath)
		}
		ids[i] = id
	}

	for i, doc := range payload {
		if err := s.DataRepository.Put(append(c[:2:2], ids[i]), doc); err != nil {
			return 0, nil, err
		}
	}

	return http.StatusAccepted, batchResponse{DocumentIDs: ids}, nil
}

func (s *server) PutDocument(d api.ObjectRef, payload api.Document) (int, interface{}, error) {

	if err := s.DataRepository.Put(d, payload); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, documentResponse{DocumentID: d.ID()}, nil
}

func (s *server) PatchDocument(d api.ObjectRef, payload api.Document) (int, interface{}, error) {

	if len(payload) == 0 {
		return 0, nil, badRequest("a patch must not be empty")
	}
	if err := s.DataRepository.Patch(d, payload); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, documentResponse{DocumentID: d.ID()}, nil
}

func (s *server) DeleteDocument(d api.ObjectRef) (int, interface{}, error) {

	if err := s.DataRepository.Delete(d); err != nil {
		return 0, nil, err
	}
	return http.StatusNoContent, nil, nil
}
