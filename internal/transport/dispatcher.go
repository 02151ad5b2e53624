// Package transport issues the single HTTP POST of a push request.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/tinywideclouds/go-webpush/pkg/push"
)

// Timeouts bound the phases of one push request. Zero leaves the phase
// unbounded, apart from the context deadline. Read bounds the wait for the
// response headers and then each read of the response body.
type Timeouts struct {
	Open time.Duration
	SSL  time.Duration
	Read time.Duration
}

// TimeoutsFrom extracts the transport timeouts from delivery options.
func TimeoutsFrom(o push.DeliveryOptions) Timeouts {
	return Timeouts{Open: o.OpenTimeout, SSL: o.SSLTimeout, Read: o.ReadTimeout}
}

type Dispatcher struct {
	doer    push.HTTPDoer
	rootCAs *x509.CertPool
	logger  *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the per-request client. Timeouts and proxy settings
// are then the caller's responsibility.
func WithHTTPClient(doer push.HTTPDoer) Option {
	return func(d *Dispatcher) {
		d.doer = doer
	}
}

// WithRootCAs trusts pool instead of the system roots.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(d *Dispatcher) {
		d.rootCAs = pool
	}
}

func NewDispatcher(logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger: logger.With("component", "PushDispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send posts body to the endpoint with the given headers. Only transport
// failures are returned as errors; any HTTP status is handed back.
func (d *Dispatcher) Send(ctx context.Context, endpoint *url.URL, header http.Header, body []byte, timeouts Timeouts, proxyURL string) (*http.Response, error) {
	if endpoint.Scheme != "https" {
		return nil, fmt.Errorf("push endpoint must use https, got %q", endpoint.Scheme)
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header = header.Clone()
	req.ContentLength = int64(len(body))

	doer := d.doer
	if doer == nil {
		client, err := d.newClient(timeouts, proxyURL)
		if err != nil {
			cancel()
			return nil, err
		}
		doer = client
	}

	d.logger.Debug("Dispatching push", "host", endpoint.Host, "path", endpoint.RequestURI(), "bytes", len(body))
	resp, err := doer.Do(req)
	if err != nil {
		cancel()
		d.logger.Error("Push transport error", "host", endpoint.Host, "err", err)
		return nil, fmt.Errorf("push transport failed: %w", err)
	}
	switch {
	case resp.Body == nil:
		cancel()
	case d.doer == nil && timeouts.Read > 0:
		resp.Body = newIdleTimeoutBody(resp.Body, timeouts.Read, cancel)
	default:
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	}
	return resp, nil
}

// newClient builds a client for a single request; its connection is closed
// once the response body is. Redirects are returned rather than followed.
// The client speaks HTTP/1.1 only, keeping the status line reason phrase.
func (d *Dispatcher) newClient(t Timeouts, proxyURL string) (*http.Client, error) {
	dialer := &net.Dialer{Timeout: t.Open}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   t.SSL,
		ResponseHeaderTimeout: t.Read,
		TLSNextProto:          map[string]func(string, *tls.Conn) http.RoundTripper{},
		DisableKeepAlives:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			RootCAs:    d.rootCAs,
		},
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		tr.Proxy = http.ProxyURL(u)
	}

	return &http.Client{
		Transport: tr,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}
