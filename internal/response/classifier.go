// Package response maps push service responses onto typed outcomes.
package response

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tinywideclouds/go-webpush/pkg/push"
)

// DefaultUnauthorizedReasons are the 400 reason phrases that FCM uses for
// rejected credentials.
var DefaultUnauthorizedReasons = []string{"UnauthorizedRegistration"}

// maxBodyBytes caps how much of an error body is kept for diagnostics.
const maxBodyBytes = 64 << 10

type Classifier struct {
	unauthorizedReasons map[string]struct{}
	logger              *slog.Logger
}

type Option func(*Classifier)

// WithUnauthorizedReasons replaces the 400 reason phrases treated as
// Unauthorized. An empty list disables the rule.
func WithUnauthorizedReasons(reasons ...string) Option {
	return func(c *Classifier) {
		c.unauthorizedReasons = make(map[string]struct{}, len(reasons))
		for _, r := range reasons {
			c.unauthorizedReasons[r] = struct{}{}
		}
	}
}

func NewClassifier(logger *slog.Logger, opts ...Option) *Classifier {
	c := &Classifier{logger: logger.With("component", "ResponseClassifier")}
	WithUnauthorizedReasons(DefaultUnauthorizedReasons...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns nil for 2xx responses, leaving resp untouched. Any other
// status yields a *push.ResponseError; its body is drained and closed.
func (c *Classifier) Classify(resp *http.Response, host string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	kind := c.kind(resp)
	var body []byte
	if resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		_ = resp.Body.Close()
	}

	c.logger.Warn("Push rejected", "host", host, "status", resp.StatusCode, "kind", kind.String())
	return &push.ResponseError{
		Kind:     kind,
		Host:     host,
		Response: resp,
		Body:     body,
	}
}

func (c *Classifier) kind(resp *http.Response) push.Kind {
	code := resp.StatusCode
	switch {
	case code == http.StatusGone:
		return push.KindExpiredSubscription
	case code == http.StatusNotFound:
		return push.KindInvalidSubscription
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return push.KindUnauthorized
	case code == http.StatusBadRequest && c.isUnauthorizedReason(ReasonPhrase(resp)):
		return push.KindUnauthorized
	case code == http.StatusRequestEntityTooLarge:
		return push.KindPayloadTooLarge
	case code == http.StatusTooManyRequests:
		return push.KindTooManyRequests
	case code >= 500 && code < 600:
		return push.KindPushServiceError
	default:
		return push.KindResponse
	}
}

func (c *Classifier) isUnauthorizedReason(reason string) bool {
	_, ok := c.unauthorizedReasons[reason]
	return ok
}

// ReasonPhrase extracts the reason phrase from the status line, e.g.
// "UnauthorizedRegistration" from "400 UnauthorizedRegistration".
func ReasonPhrase(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}
