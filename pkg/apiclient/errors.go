package apiclient

import (
	"errors"
	"net/http"
	"strconv"
)

// Kind distinguishes failures that produced an HTTP response from those that
// did not.
type Kind string

const (
	KindNetwork Kind = "network"
	KindHTTP    Kind = "http"
)

// TransportFailure is returned once every attempt of a call has failed.
type TransportFailure struct {
	Kind       Kind
	HTTPStatus int
	// Message is the response body of the last failed attempt, if any.
	Message  string
	Cause    error
	Attempts int
}

// Status is the failure discriminator: the decimal HTTP status code, or
// "network" when no response was received.
func (f *TransportFailure) Status() string {
	if f.Kind == KindHTTP {
		return strconv.Itoa(f.HTTPStatus)
	}
	return string(KindNetwork)
}

// Error returns Status so callers that only see the message can still branch
// on it.
func (f *TransportFailure) Error() string {
	return f.Status()
}

func (f *TransportFailure) Unwrap() error { return f.Cause }

// NeedsReauth reports whether err is a 401 or 403 failure.
func NeedsReauth(err error) bool {
	var tf *TransportFailure
	if !errors.As(err, &tf) || tf.Kind != KindHTTP {
		return false
	}
	return tf.HTTPStatus == http.StatusUnauthorized || tf.HTTPStatus == http.StatusForbidden
}

// IsNotFound reports whether err is a 404 failure.
func IsNotFound(err error) bool {
	var tf *TransportFailure
	return errors.As(err, &tf) && tf.Kind == KindHTTP && tf.HTTPStatus == http.StatusNotFound
}

// IsNetwork reports whether err is a failure that never reached the server.
func IsNetwork(err error) bool {
	var tf *TransportFailure
	return errors.As(err, &tf) && tf.Kind == KindNetwork
}
