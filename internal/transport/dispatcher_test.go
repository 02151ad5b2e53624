package transport_test

import (
	"context"
	"crypto/x509"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-webpush/internal/transport"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func trustServer(ts *httptest.Server) *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(ts.Certificate())
	return pool
}

// newReasonServer starts an HTTP/2 capable TLS server that answers HTTP/1.1
// requests with a raw status line, so a custom reason phrase reaches the
// client. HTTP/2 requests are failed.
func newReasonServer(t *testing.T, status string) *httptest.Server {
	t.Helper()
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ProtoMajor != 1 {
			t.Errorf("server saw %s, want HTTP/1.1", r.Proto)
			w.WriteHeader(http.StatusHTTPVersionNotSupported)
			return
		}
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		defer conn.Close()
		_, _ = buf.WriteString("HTTP/1.1 " + status + "\r\nContent-Length: 0\r\nConnection: close\r\n\r\n")
		_ = buf.Flush()
	}))
	ts.EnableHTTP2 = true
	ts.StartTLS()
	return ts
}

type mockDoer struct {
	mock.Mock
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func TestDispatcher_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("posts headers and body to path and query", func(t *testing.T) {
		var gotMethod, gotURI, gotTTL string
		var gotBody []byte
		ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotURI = r.URL.RequestURI()
			gotTTL = r.Header.Get("Ttl")
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
		}))
		defer ts.Close()

		endpoint, err := url.Parse(ts.URL + "/push/abc?x=1")
		require.NoError(t, err)
		d := transport.NewDispatcher(newTestLogger(), transport.WithRootCAs(trustServer(ts)))

		resp, err := d.Send(ctx, endpoint, http.Header{"Ttl": {"60"}}, []byte("ciphertext"), transport.Timeouts{}, "")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "/push/abc?x=1", gotURI)
		assert.Equal(t, "60", gotTTL)
		assert.Equal(t, []byte("ciphertext"), gotBody)
	})

	t.Run("empty body", func(t *testing.T) {
		var gotLength int64 = -1
		ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotLength = r.ContentLength
			w.WriteHeader(http.StatusCreated)
		}))
		defer ts.Close()

		endpoint, _ := url.Parse(ts.URL + "/push")
		d := transport.NewDispatcher(newTestLogger(), transport.WithRootCAs(trustServer(ts)))
		resp, err := d.Send(ctx, endpoint, http.Header{}, nil, transport.Timeouts{}, "")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, int64(0), gotLength)
	})

	t.Run("redirects are not followed", func(t *testing.T) {
		ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/moved" {
				t.Error("redirect was followed")
			}
			http.Redirect(w, r, "/moved", http.StatusTemporaryRedirect)
		}))
		defer ts.Close()

		endpoint, _ := url.Parse(ts.URL + "/push")
		d := transport.NewDispatcher(newTestLogger(), transport.WithRootCAs(trustServer(ts)))
		resp, err := d.Send(ctx, endpoint, http.Header{}, nil, transport.Timeouts{}, "")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	})

	t.Run("read timeout", func(t *testing.T) {
		release := make(chan struct{})
		ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer ts.Close()
		defer close(release)

		endpoint, _ := url.Parse(ts.URL + "/slow")
		d := transport.NewDispatcher(newTestLogger(), transport.WithRootCAs(trustServer(ts)))
		_, err := d.Send(ctx, endpoint, http.Header{}, nil, transport.Timeouts{Read: 50 * time.Millisecond}, "")
		assert.ErrorContains(t, err, "push transport failed")
	})

	t.Run("stalled body read times out", func(t *testing.T) {
		release := make(chan struct{})
		ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "100")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("partial"))
			w.(http.Flusher).Flush()
			<-release
		}))
		defer ts.Close()
		defer close(release)

		endpoint, _ := url.Parse(ts.URL + "/stall")
		d := transport.NewDispatcher(newTestLogger(), transport.WithRootCAs(trustServer(ts)))
		resp, err := d.Send(ctx, endpoint, http.Header{}, nil, transport.Timeouts{Read: 50 * time.Millisecond}, "")
		require.NoError(t, err)
		defer resp.Body.Close()

		done := make(chan error, 1)
		go func() {
			_, err := io.ReadAll(resp.Body)
			done <- err
		}()
		select {
		case err := <-done:
			assert.Error(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("body read was not bounded by the read timeout")
		}
	})

	t.Run("speaks http/1.1 and keeps the reason phrase", func(t *testing.T) {
		ts := newReasonServer(t, "400 UnauthorizedRegistration")
		defer ts.Close()

		endpoint, _ := url.Parse(ts.URL + "/push")
		d := transport.NewDispatcher(newTestLogger(), transport.WithRootCAs(trustServer(ts)))
		resp, err := d.Send(ctx, endpoint, http.Header{}, nil, transport.Timeouts{}, "")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "HTTP/1.1", resp.Proto)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "400 UnauthorizedRegistration", resp.Status)
	})

	t.Run("untrusted certificate is a transport error", func(t *testing.T) {
		ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		defer ts.Close()

		endpoint, _ := url.Parse(ts.URL + "/push")
		_, err := transport.NewDispatcher(newTestLogger()).Send(ctx, endpoint, http.Header{}, nil, transport.Timeouts{}, "")
		assert.Error(t, err)
	})

	t.Run("plain http is rejected", func(t *testing.T) {
		endpoint, _ := url.Parse("http://push.example.com/x")
		_, err := transport.NewDispatcher(newTestLogger()).Send(ctx, endpoint, http.Header{}, nil, transport.Timeouts{}, "")
		assert.ErrorContains(t, err, "https")
	})

	t.Run("injected client", func(t *testing.T) {
		doer := new(mockDoer)
		want := &http.Response{StatusCode: http.StatusCreated, Body: http.NoBody}
		doer.On("Do", mock.MatchedBy(func(r *http.Request) bool {
			return r.Method == http.MethodPost && r.URL.Host == "push.example.com" && r.Header.Get("Urgency") == "low"
		})).Return(want, nil)

		endpoint, _ := url.Parse("https://push.example.com/x")
		d := transport.NewDispatcher(newTestLogger(), transport.WithHTTPClient(doer))
		resp, err := d.Send(ctx, endpoint, http.Header{"Urgency": {"low"}}, nil, transport.Timeouts{}, "")
		require.NoError(t, err)
		assert.Same(t, want, resp)
		doer.AssertExpectations(t)
	})

	t.Run("injected client failure is wrapped", func(t *testing.T) {
		doer := new(mockDoer)
		refused := errors.New("connection refused")
		doer.On("Do", mock.Anything).Return(nil, refused)

		endpoint, _ := url.Parse("https://push.example.com/x")
		_, err := transport.NewDispatcher(newTestLogger(), transport.WithHTTPClient(doer)).
			Send(ctx, endpoint, http.Header{}, nil, transport.Timeouts{}, "")
		assert.ErrorIs(t, err, refused)
	})
}
