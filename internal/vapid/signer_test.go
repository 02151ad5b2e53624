package vapid_test

import (
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-webpush/internal/vapid"
	"github.com/tinywideclouds/go-webpush/pkg/push"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSigner_Sign(t *testing.T) {
	key, err := vapid.GenerateKey()
	require.NoError(t, err)
	frozen := time.Unix(1_700_000_000, 0)
	signer := vapid.NewSigner(newTestLogger()).WithClock(func() time.Time { return frozen })

	endpoint, err := url.Parse("https://push.example.com/send/abc")
	require.NoError(t, err)

	parse := func(t *testing.T, authorization string) (*jwt.Token, jwt.MapClaims) {
		t.Helper()
		require.True(t, strings.HasPrefix(authorization, "WebPush "))
		raw := strings.TrimPrefix(authorization, "WebPush ")
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return &key.SigningKey().PublicKey, nil
		}, jwt.WithValidMethods([]string{"ES256"}), jwt.WithoutClaimsValidation())
		require.NoError(t, err)
		return token, claims
	}

	t.Run("claims and headers from raw keys", func(t *testing.T) {
		headers, err := signer.Sign(push.VapidOptions{
			Subject:    "mailto:ops@example.com",
			Expiration: time.Hour,
			PublicKey:  key.PublicKeyBase64(),
			PrivateKey: key.PrivateKeyBase64(),
		}, endpoint)
		require.NoError(t, err)

		token, claims := parse(t, headers.Authorization)
		assert.Equal(t, "JWT", token.Header["typ"])
		assert.Equal(t, "ES256", token.Header["alg"])
		assert.Equal(t, "https://push.example.com", claims["aud"])
		assert.Equal(t, "mailto:ops@example.com", claims["sub"])
		assert.InDelta(t, float64(frozen.Unix()+3600), claims["exp"], 1)
		assert.Equal(t, "p256ecdsa="+key.PublicKeyForPushHeader(), headers.CryptoKey)
	})

	t.Run("defaults and pem source", func(t *testing.T) {
		data, err := key.PEM()
		require.NoError(t, err)
		headers, err := signer.Sign(push.VapidOptions{PEM: data}, endpoint)
		require.NoError(t, err)

		_, claims := parse(t, headers.Authorization)
		assert.Equal(t, push.DefaultSubject, claims["sub"])
		assert.InDelta(t, float64(frozen.Unix()+86400), claims["exp"], 1)
	})

	t.Run("audience drops port and path", func(t *testing.T) {
		withPort, err := url.Parse("https://push.example.com:8443/a/b?c=d")
		require.NoError(t, err)
		assert.Equal(t, "https://push.example.com", vapid.Audience(withPort))
	})

	t.Run("audience keeps ipv6 brackets", func(t *testing.T) {
		v6, err := url.Parse("https://[::1]:8443/x")
		require.NoError(t, err)
		assert.Equal(t, "https://[::1]", vapid.Audience(v6))
	})

	t.Run("missing private key is fatal", func(t *testing.T) {
		_, err := signer.Sign(push.VapidOptions{PublicKey: key.PublicKeyBase64()}, endpoint)
		assert.Error(t, err)
	})

	t.Run("bad pem is fatal", func(t *testing.T) {
		_, err := signer.Sign(push.VapidOptions{PEM: "garbage"}, endpoint)
		assert.Error(t, err)
	})
}
