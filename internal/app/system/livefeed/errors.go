// internal/app/system/livefeed/errors.go
package livefeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// Kind classifies why a subscription stopped.
type Kind int

const (
	KindOther Kind = iota
	KindPermissionDenied
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindUnavailable:
		return "unavailable"
	default:
		return "other"
	}
}

// Server error codes that mean the dashboard's credentials may not read.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
	codeAuthFailedAtlas      = 8000
)

// FeedError is delivered to a subscriber when its subscription fails.
// It is terminal: nothing else is delivered afterwards.
type FeedError struct {
	Kind Kind
	Err  error
}

func (e *FeedError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FeedError) Unwrap() error { return e.Err }

const fetchFailed = "Failed to fetch data. "

// Message is the text shown to the operator.
func (e *FeedError) Message() string {
	switch e.Kind {
	case KindPermissionDenied:
		return fetchFailed + "Permission denied. Please check the database access rules allow the dashboard to read user data."
	case KindUnavailable:
		return fetchFailed + "The database is unavailable. Please check your network connection."
	default:
		msg := "unknown error"
		if e.Err != nil {
			msg = e.Err.Error()
		}
		return fetchFailed + "Error: " + msg + ". Check the server logs for details."
	}
}

// HTTPStatus is the status JSON callers get for this failure.
func (e *FeedError) HTTPStatus() int {
	switch e.Kind {
	case KindPermissionDenied:
		return http.StatusBadGateway
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Classify wraps err in a FeedError with its Kind. A nil err yields nil.
func Classify(err error) *FeedError {
	if err == nil {
		return nil
	}
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe
	}
	return &FeedError{Kind: kindOf(err), Err: err}
}

func kindOf(err error) Kind {
	var se mongo.ServerError
	if errors.As(err, &se) {
		for _, code := range []int{codeUnauthorized, codeAuthenticationFailed, codeAuthFailedAtlas} {
			if se.HasErrorCode(code) {
				return KindPermissionDenied
			}
		}
	}

	var sel topology.ServerSelectionError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.As(err, &sel),
		mongo.IsNetworkError(err),
		mongo.IsTimeout(err):
		return KindUnavailable
	}
	return KindOther
}
