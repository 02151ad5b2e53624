// Package vapid resolves VAPID signing keys and produces the VAPID
// Authorization and Crypto-Key headers for a push request.
package vapid

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/tinywideclouds/go-webpush/pkg/push"
)

var ErrNotP256 = errors.New("vapid key is not on the P-256 curve")

// Key is a resolved VAPID key pair.
type Key struct {
	private *ecdsa.PrivateKey
}

// GenerateKey creates a fresh VAPID key pair.
func GenerateKey() (*Key, error) {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to generate vapid keys: %w", err)
	}
	return FromKeys(publicKey, privateKey)
}

// FromKeys builds a key from the base64 encoded raw private scalar and the
// uncompressed public point. Both URL-safe and standard alphabets are accepted,
// padded or not. The public key must match the private key.
func FromKeys(publicKey, privateKey string) (*Key, error) {
	rawPriv, err := decode64(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vapid private key: %w", err)
	}
	ecdhKey, err := ecdh.P256().NewPrivateKey(rawPriv)
	if err != nil {
		return nil, fmt.Errorf("invalid vapid private key: %w", err)
	}

	// PKCS8 round trip turns the ecdh key into an ecdsa signing key.
	der, err := x509.MarshalPKCS8PrivateKey(ecdhKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert vapid private key: %w", err)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to convert vapid private key: %w", err)
	}
	signing, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, ErrNotP256
	}
	key := &Key{private: signing}

	if publicKey != "" {
		rawPub, err := decode64(publicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode vapid public key: %w", err)
		}
		if !bytes.Equal(rawPub, key.publicBytes()) {
			return nil, fmt.Errorf("vapid public key does not match private key")
		}
	}
	return key, nil
}

// FromPEM parses an EC private key in SEC1 ("EC PRIVATE KEY") or PKCS8
// ("PRIVATE KEY") PEM form.
func FromPEM(data string) (*Key, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("no pem block found in vapid key")
	}

	var signing *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		k, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse vapid ec key: %w", err)
		}
		signing = k
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse vapid pkcs8 key: %w", err)
		}
		ec, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, ErrNotP256
		}
		signing = ec
	default:
		return nil, fmt.Errorf("unsupported pem block type %q", block.Type)
	}

	if signing.Curve != elliptic.P256() {
		return nil, ErrNotP256
	}
	return &Key{private: signing}, nil
}

// SigningKey returns the key used for ES256 signatures.
func (k *Key) SigningKey() *ecdsa.PrivateKey {
	return k.private
}

// PublicKeyForPushHeader returns the public point in the encoding expected by
// the p256ecdsa Crypto-Key parameter.
func (k *Key) PublicKeyForPushHeader() string {
	return push.TrimEncode64(k.publicBytes())
}

// PublicKeyBase64 is the application server key handed to browsers.
func (k *Key) PublicKeyBase64() string {
	return base64.RawURLEncoding.EncodeToString(k.publicBytes())
}

// PrivateKeyBase64 is the raw private scalar, the format FromKeys accepts.
func (k *Key) PrivateKeyBase64() string {
	ecdhKey, err := k.private.ECDH()
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(ecdhKey.Bytes())
}

// PEM encodes the private key as an "EC PRIVATE KEY" block.
func (k *Key) PEM() (string, error) {
	der, err := x509.MarshalECPrivateKey(k.private)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vapid key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})), nil
}

func (k *Key) publicBytes() []byte {
	pub, err := k.private.PublicKey.ECDH()
	if err != nil {
		return nil
	}
	return pub.Bytes()
}

func decode64(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
