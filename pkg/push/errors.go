package push

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags the outcome of a rejected push.
type Kind int

const (
	KindResponse Kind = iota
	KindExpiredSubscription
	KindInvalidSubscription
	KindUnauthorized
	KindPayloadTooLarge
	KindTooManyRequests
	KindPushServiceError
)

var (
	// ErrExpiredSubscription means the subscription is gone (410) and should be deleted.
	ErrExpiredSubscription = errors.New("expired subscription")
	// ErrInvalidSubscription means the push service does not know the subscription (404).
	ErrInvalidSubscription = errors.New("invalid subscription")
	// ErrUnauthorized means the VAPID or API key credentials were rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPayloadTooLarge means the push service refused the payload size (413).
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrTooManyRequests means the sender is being rate limited (429).
	ErrTooManyRequests = errors.New("too many requests")
	// ErrPushServiceError means the push service failed internally (5xx).
	ErrPushServiceError = errors.New("push service error")
	// ErrResponse is any other non-success response.
	ErrResponse = errors.New("unexpected push service response")
)

var kindErrors = map[Kind]error{
	KindResponse:            ErrResponse,
	KindExpiredSubscription: ErrExpiredSubscription,
	KindInvalidSubscription: ErrInvalidSubscription,
	KindUnauthorized:        ErrUnauthorized,
	KindPayloadTooLarge:     ErrPayloadTooLarge,
	KindTooManyRequests:     ErrTooManyRequests,
	KindPushServiceError:    ErrPushServiceError,
}

func (k Kind) String() string {
	if err, ok := kindErrors[k]; ok {
		return err.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ResponseError is returned when the push service answered with a non-2xx
// status. Response.Body has already been drained into Body and closed.
type ResponseError struct {
	Kind     Kind
	Host     string
	Response *http.Response
	Body     []byte
}

func (e *ResponseError) Error() string {
	status := "<nil response>"
	if e.Response != nil {
		status = e.Response.Status
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s: host %s, status %s", e.Kind, e.Host, status)
	}
	return fmt.Sprintf("%s: host %s, status %s, body: %s", e.Kind, e.Host, status, e.Body)
}

// Unwrap exposes the sentinel for errors.Is matching.
func (e *ResponseError) Unwrap() error {
	if err, ok := kindErrors[e.Kind]; ok {
		return err
	}
	return ErrResponse
}

// StatusCode returns the HTTP status, or 0 if no response is attached.
func (e *ResponseError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}
