package httpclient

import (
	"fmt"
)

// Error is returned when a request fails, either at the transport level or with a non 2xx status
type Error struct {
	Method string
	URL    string
	// Status is zero when no response was received
	Status int
	// Description is the human readable message supplied by the server, if any
	Description string
	Err         error
}

func (err *Error) Error() string {
	if len(err.Description) > 0 {
		return err.Description
	}
	if err.Err != nil {
		return err.Err.Error()
	}
	return fmt.Sprintf("%s %s: unexpected status %d", err.Method, err.URL, err.Status)
}

func (err *Error) Unwrap() error {
	return err.Err
}

func (err *Error) IsTransport() bool {
	return true
}

func (err *Error) StatusCode() int {
	return err.Status
}

type configurationError string

func (err configurationError) IsConfiguration() bool {
	return true
}
func (err configurationError) Error() string {
	return string(err)
}
