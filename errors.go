package astradoc

import (
	"net/http"

	"github.com/pkg/errors"
)

//IsConfiguration returns whether the error cause is a missing or invalid setting
func IsConfiguration(err error) bool {
	ce, ok := errors.Cause(err).(Configuration)
	return ok && ce.IsConfiguration()
}

//Configuration is the interface that wraps the IsConfiguration method
type Configuration interface {
	IsConfiguration() bool
}

//IsUnsupported returns whether the error cause is an operation or option the document API cannot serve
func IsUnsupported(err error) bool {
	ue, ok := errors.Cause(err).(Unsupported)
	return ok && ue.IsUnsupported()
}

//Unsupported is the interface that wraps the IsUnsupported method
type Unsupported interface {
	IsUnsupported() bool
}

//IsTransport returns whether the error cause is a failed HTTP call
func IsTransport(err error) bool {
	te, ok := errors.Cause(err).(Transport)
	return ok && te.IsTransport()
}

//Transport is the interface that wraps the methods of HTTP errors
type Transport interface {
	IsTransport() bool
	StatusCode() int
}

//IsConflict returns whether the error cause is a 409 response
func IsConflict(err error) bool {
	te, ok := errors.Cause(err).(Transport)
	return ok && te.StatusCode() == http.StatusConflict
}

type configurationError string

func (err configurationError) IsConfiguration() bool {
	return true
}
func (err configurationError) Error() string {
	return string(err)
}

type unsupportedError string

func (err unsupportedError) IsUnsupported() bool {
	return true
}
func (err unsupportedError) Error() string {
	return string(err)
}

const (
	errCollation   = unsupportedError("Collations are not supported")
	errStream      = unsupportedError("Streaming cursors are not supported")
	errAggregation = unsupportedError("Not Implemented")
)
