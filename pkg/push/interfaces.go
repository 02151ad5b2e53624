package push

import (
	"context"
	"net/http"
)

// Encrypter is the content encryption collaborator. It turns a plaintext
// message into an Envelope readable by the subscription owner.
type Encrypter interface {
	Encrypt(message, p256dh, auth []byte) (*Envelope, error)
}

// HTTPDoer is the subset of *http.Client used to dispatch a push.
// It allows the transport to be stubbed in tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sender sends a single push notification. A nil error means the push
// service accepted it and the caller owns the returned response body.
type Sender interface {
	Send(ctx context.Context, n Notification) (*http.Response, error)
}
