// Package webpush sends a single Web Push notification: it encrypts the
// message, authenticates with VAPID or a Google API key, posts it to the
// subscription endpoint and classifies the push service's answer.
package webpush

import (
	"context"
	"crypto/x509"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tinywideclouds/go-webpush/internal/payload"
	"github.com/tinywideclouds/go-webpush/internal/response"
	"github.com/tinywideclouds/go-webpush/internal/transport"
	"github.com/tinywideclouds/go-webpush/internal/vapid"
	"github.com/tinywideclouds/go-webpush/pkg/push"
)

// Sender holds only immutable collaborators and is safe for concurrent use.
type Sender struct {
	payload    *payload.Builder
	signer     *vapid.Signer
	dispatcher *transport.Dispatcher
	classifier *response.Classifier
	logger     *slog.Logger
}

var _ push.Sender = (*Sender)(nil)

type settings struct {
	encrypter     push.Encrypter
	clock         func() time.Time
	transportOpts []transport.Option
	responseOpts  []response.Option
}

// Option configures a Sender.
type Option func(*settings)

// WithEncrypter replaces the default aesgcm encrypter.
func WithEncrypter(e push.Encrypter) Option {
	return func(s *settings) { s.encrypter = e }
}

// WithHTTPClient dispatches through doer instead of a per-request client.
func WithHTTPClient(doer push.HTTPDoer) Option {
	return func(s *settings) { s.transportOpts = append(s.transportOpts, transport.WithHTTPClient(doer)) }
}

// WithRootCAs trusts pool for the push service's TLS certificate.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(s *settings) { s.transportOpts = append(s.transportOpts, transport.WithRootCAs(pool)) }
}

// WithUnauthorizedReasons sets the HTTP 400 reason phrases treated as
// Unauthorized. The default is FCM's "UnauthorizedRegistration".
func WithUnauthorizedReasons(reasons ...string) Option {
	return func(s *settings) { s.responseOpts = append(s.responseOpts, response.WithUnauthorizedReasons(reasons...)) }
}

// WithClock sets the time source for VAPID token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.clock = now }
}

// NewSender wires the push pipeline. A nil logger discards logs.
func NewSender(logger *slog.Logger, opts ...Option) *Sender {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg := settings{encrypter: payload.NewAESGCM()}
	for _, opt := range opts {
		opt(&cfg)
	}

	signer := vapid.NewSigner(logger)
	if cfg.clock != nil {
		signer = signer.WithClock(cfg.clock)
	}
	return &Sender{
		payload:    payload.NewBuilder(cfg.encrypter),
		signer:     signer,
		dispatcher: transport.NewDispatcher(logger, cfg.transportOpts...),
		classifier: response.NewClassifier(logger, cfg.responseOpts...),
		logger:     logger.With("component", "WebPushSender"),
	}
}

// Send delivers one notification. On success the caller owns the response
// body. A rejected push returns a *push.ResponseError; validation, key,
// signing and transport failures are returned wrapped but unclassified.
func (s *Sender) Send(ctx context.Context, n push.Notification) (*http.Response, error) {
	req, err := s.newRequest(n)
	if err != nil {
		s.logger.Debug("Failed to build push request", "err", err)
		return nil, err
	}

	resp, err := req.perform(ctx, s.dispatcher)
	if err != nil {
		return nil, err
	}
	if err := s.classifier.Classify(resp, req.endpoint.Hostname()); err != nil {
		return nil, err
	}

	s.logger.Debug("Push accepted", "host", req.endpoint.Hostname(), "status", resp.StatusCode)
	return resp, nil
}

var defaultSender = NewSender(nil)

// Send delivers one notification with a default Sender.
func Send(ctx context.Context, n push.Notification) (*http.Response, error) {
	return defaultSender.Send(ctx, n)
}
