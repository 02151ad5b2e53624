package webpush

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tinywideclouds/go-webpush/internal/headers"
	"github.com/tinywideclouds/go-webpush/internal/transport"
	"github.com/tinywideclouds/go-webpush/pkg/push"
)

// request is the derived context of a single push: parsed endpoint, headers
// and body. It is built once and performed once.
type request struct {
	endpoint *url.URL
	header   http.Header
	body     []byte
	delivery push.DeliveryOptions
}

func (s *Sender) newRequest(n push.Notification) (*request, error) {
	vapidOpts := n.Vapid.WithDefaults()
	delivery := n.Delivery.WithDefaults()
	if err := vapidOpts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vapid options: %w", err)
	}
	if err := delivery.Validate(); err != nil {
		return nil, fmt.Errorf("invalid delivery options: %w", err)
	}
	if err := n.Subscription.Validate(len(n.Message) > 0); err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(headers.RewriteLegacyEndpoint(n.Subscription.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("invalid subscription endpoint: %w", err)
	}
	if endpoint.Host == "" {
		return nil, fmt.Errorf("invalid subscription endpoint %q: missing host", n.Subscription.Endpoint)
	}

	envelope, err := s.payload.Build(n.Message, n.Subscription.Keys)
	if err != nil {
		return nil, err
	}

	h, err := headers.Compose(headers.Input{
		Endpoint: endpoint,
		Envelope: envelope,
		Vapid:    vapidOpts,
		Delivery: delivery,
		Signer:   s.signer,
	})
	if err != nil {
		return nil, err
	}

	var body []byte
	if envelope != nil {
		body = envelope.Ciphertext
	}
	return &request{endpoint: endpoint, header: h, body: body, delivery: delivery}, nil
}

func (r *request) perform(ctx context.Context, d *transport.Dispatcher) (*http.Response, error) {
	return d.Send(ctx, r.endpoint, r.header, r.body, transport.TimeoutsFrom(r.delivery), r.delivery.ProxyURL)
}
