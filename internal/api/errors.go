package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

// Kind is the closed set of failure classes every backend call maps into.
type Kind int

const (
	// KindClient covers malformed requests and unexpected local failures.
	KindClient Kind = iota
	// KindNetworkUnreachable means no transport connection could be made.
	KindNetworkUnreachable
	// KindNoResponse means the request went out but no reply came back.
	KindNoResponse
	// KindServerRejected means a non-2xx status was received.
	KindServerRejected
	// KindMalformedResponse means a 2xx reply could not be decoded.
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindNetworkUnreachable:
		return "network-unreachable"
	case KindNoResponse:
		return "no-response"
	case KindServerRejected:
		return "server-rejected"
	case KindMalformedResponse:
		return "malformed-response"
	default:
		return "client-error"
	}
}

// Error is the only error type returned by Client.
type Error struct {
	Kind    Kind
	Op      string        // ex: "login", "list bookmarks"
	Method  string        // HTTP method of the failed request
	URL     string        // full request URL
	Timeout time.Duration // timeout the request ran with
	Status  int           // HTTP status, only for KindServerRejected
	Message string        // server-provided message, or a local description
	Err     error         // underlying transport/decoding error, may be nil
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServerRejected:
		if e.Message != "" {
			return fmt.Sprintf("%s: server rejected request (%d): %s", e.Op, e.Status, e.Message)
		}
		return fmt.Sprintf("%s: server rejected request (%d): %s", e.Op, e.Status, http.StatusText(e.Status))
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindClient when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindClient
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindServerRejected {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports a 404 from the backend.
func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

// IsUnauthorized reports a 401 from the backend.
func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }

// classify converts a transport error from http.Client.Do into an *Error.
func classify(err error) (Kind, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return KindClient, "request canceled"
	case isDialFailure(err):
		return KindNetworkUnreachable, "unable to connect"
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return KindNoResponse, "timed out waiting for response"
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, syscall.ECONNRESET):
		return KindNoResponse, "connection closed before response"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNoResponse, "transport failure"
	}
	return KindClient, "unexpected error"
}

func isDialFailure(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
