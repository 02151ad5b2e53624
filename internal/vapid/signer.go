package vapid

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tinywideclouds/go-webpush/pkg/push"
)

// Headers are the VAPID contributions to the request headers.
type Headers struct {
	Authorization string
	CryptoKey     string
}

// Signer builds signed VAPID headers. The zero value is not usable; use NewSigner.
type Signer struct {
	now    func() time.Time
	logger *slog.Logger
}

func NewSigner(logger *slog.Logger) *Signer {
	return &Signer{
		now:    time.Now,
		logger: logger.With("component", "VapidSigner"),
	}
}

// WithClock returns a copy of the signer that reads the time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

// ResolveKey loads the signing key from the PEM if present, otherwise from the
// raw key pair.
func ResolveKey(opts push.VapidOptions) (*Key, error) {
	if opts.PEM != "" {
		return FromPEM(opts.PEM)
	}
	if opts.PublicKey == "" || opts.PrivateKey == "" {
		return nil, fmt.Errorf("vapid requires either a pem or both public_key and private_key")
	}
	return FromKeys(opts.PublicKey, opts.PrivateKey)
}

// Audience is the origin (scheme://host) of the push endpoint. IPv6 literals
// keep their brackets.
func Audience(endpoint *url.URL) string {
	host := endpoint.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return endpoint.Scheme + "://" + host
}

// Sign produces the Authorization and Crypto-Key VAPID headers for a push to
// endpoint.
func (s *Signer) Sign(opts push.VapidOptions, endpoint *url.URL) (Headers, error) {
	opts = opts.WithDefaults()
	key, err := ResolveKey(opts)
	if err != nil {
		return Headers{}, err
	}

	aud := Audience(endpoint)
	claims := jwt.MapClaims{
		"aud": aud,
		"exp": s.now().Add(opts.Expiration).Unix(),
		"sub": opts.Subject,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["typ"] = "JWT"

	signed, err := token.SignedString(key.SigningKey())
	if err != nil {
		return Headers{}, fmt.Errorf("failed to sign vapid jwt: %w", err)
	}

	s.logger.Debug("Signed VAPID token", "aud", aud, "sub", opts.Subject, "expires_in", opts.Expiration)
	return Headers{
		Authorization: "WebPush " + signed,
		CryptoKey:     "p256ecdsa=" + key.PublicKeyForPushHeader(),
	}, nil
}
