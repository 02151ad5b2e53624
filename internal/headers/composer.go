// Package headers composes the HTTP headers of a web push request.
package headers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tinywideclouds/go-webpush/internal/vapid"
	"github.com/tinywideclouds/go-webpush/pkg/push"
)

const (
	ContentType     = "Content-Type"
	TTL             = "Ttl"
	Urgency         = "Urgency"
	ContentEncoding = "Content-Encoding"
	Encryption      = "Encryption"
	CryptoKey       = "Crypto-Key"
	Authorization   = "Authorization"
)

// VapidSigner produces VAPID headers for an endpoint. *vapid.Signer satisfies it.
type VapidSigner interface {
	Sign(opts push.VapidOptions, endpoint *url.URL) (vapid.Headers, error)
}

// Input is everything the composer needs. Delivery must already have its
// defaults applied.
type Input struct {
	Endpoint *url.URL
	Envelope *push.Envelope
	Vapid    push.VapidOptions
	Delivery push.DeliveryOptions
	Signer   VapidSigner
}

// UsesAPIKey reports whether the request authenticates with the API key.
func UsesAPIKey(endpoint *url.URL, apiKey string) bool {
	return apiKey != "" && IsGoogleEndpoint(endpoint)
}

// Compose builds the request headers. Only VAPID signing can fail.
func Compose(in Input) (http.Header, error) {
	h := make(http.Header)
	h.Set(ContentType, "application/octet-stream")
	h.Set(TTL, strconv.FormatInt(int64(in.Delivery.TTL.Seconds()), 10))
	h.Set(Urgency, string(in.Delivery.Urgency))

	if in.Envelope != nil {
		h.Set(ContentEncoding, "aesgcm")
		h.Set(Encryption, "salt="+push.TrimEncode64(in.Envelope.Salt))
		h.Set(CryptoKey, "dh="+push.TrimEncode64(in.Envelope.ServerPublicKey))
	}

	switch {
	case UsesAPIKey(in.Endpoint, in.Delivery.APIKey):
		h.Set(Authorization, "key="+in.Delivery.APIKey)
	case in.Vapid.Enabled():
		vh, err := in.Signer.Sign(in.Vapid, in.Endpoint)
		if err != nil {
			return nil, err
		}
		h.Set(Authorization, vh.Authorization)
		if merged := JoinCryptoKey(h.Get(CryptoKey), vh.CryptoKey); merged != "" {
			h.Set(CryptoKey, merged)
		}
	}
	return h, nil
}

// JoinCryptoKey joins Crypto-Key fragments with ';', skipping empty ones.
func JoinCryptoKey(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ";")
}
