package payload

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tinywideclouds/go-webpush/pkg/push"
	"golang.org/x/crypto/hkdf"
)

const (
	saltSize  = 16
	keySize   = 16
	nonceSize = 12
)

var (
	ErrEmptyMessage = errors.New("message cannot be empty")
	ErrEmptyP256dh  = errors.New("p256dh cannot be empty")
	ErrEmptyAuth    = errors.New("auth cannot be empty")
)

// AESGCM implements the "aesgcm" content encoding: an ephemeral P-256 ECDH
// agreement with the subscription key, HKDF-SHA256 key derivation and
// AES-128-GCM with a two byte zero padding prefix.
type AESGCM struct {
	rand io.Reader
}

func NewAESGCM() *AESGCM {
	return &AESGCM{rand: rand.Reader}
}

// NewAESGCMWithRand uses r for the salt and the ephemeral key.
func NewAESGCMWithRand(r io.Reader) *AESGCM {
	return &AESGCM{rand: r}
}

func (e *AESGCM) Encrypt(message, p256dh, auth []byte) (*push.Envelope, error) {
	switch {
	case len(message) == 0:
		return nil, ErrEmptyMessage
	case len(p256dh) == 0:
		return nil, ErrEmptyP256dh
	case len(auth) == 0:
		return nil, ErrEmptyAuth
	}

	curve := ecdh.P256()
	clientKey, err := curve.NewPublicKey(p256dh)
	if err != nil {
		return nil, fmt.Errorf("invalid p256dh key: %w", err)
	}
	serverKey, err := curve.GenerateKey(e.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	sharedSecret, err := serverKey.ECDH(clientKey)
	if err != nil {
		return nil, fmt.Errorf("failed to compute shared secret: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(e.rand, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	serverPublic := serverKey.PublicKey().Bytes()
	cek, nonce, err := DeriveKeys(sharedSecret, auth, salt, p256dh, serverPublic)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, 2, 2+len(message))
	plaintext = append(plaintext, message...)

	return &push.Envelope{
		Ciphertext:      gcm.Seal(nil, nonce, plaintext, nil),
		Salt:            salt,
		ServerPublicKey: serverPublic,
	}, nil
}

// DeriveKeys computes the content encryption key and nonce. Both sides of
// the exchange derive the same values from the shared secret.
func DeriveKeys(sharedSecret, auth, salt, clientPublic, serverPublic []byte) (cek, nonce []byte, err error) {
	prk := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, sharedSecret, auth, []byte("Content-Encoding: auth\x00")), prk); err != nil {
		return nil, nil, fmt.Errorf("failed to derive prk: %w", err)
	}

	context := keyContext(clientPublic, serverPublic)
	cek = make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, prk, salt, info("aesgcm", context)), cek); err != nil {
		return nil, nil, fmt.Errorf("failed to derive content key: %w", err)
	}
	nonce = make([]byte, nonceSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, prk, salt, info("nonce", context)), nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to derive nonce: %w", err)
	}
	return cek, nonce, nil
}

// keyContext is "\0" || len(client) || client || len(server) || server with
// 16 bit big endian lengths.
func keyContext(clientPublic, serverPublic []byte) []byte {
	ctx := make([]byte, 0, 1+2+len(clientPublic)+2+len(serverPublic))
	ctx = append(ctx, 0)
	ctx = binary.BigEndian.AppendUint16(ctx, uint16(len(clientPublic)))
	ctx = append(ctx, clientPublic...)
	ctx = binary.BigEndian.AppendUint16(ctx, uint16(len(serverPublic)))
	ctx = append(ctx, serverPublic...)
	return ctx
}

func info(contentType string, context []byte) []byte {
	out := []byte("Content-Encoding: " + contentType + "\x00P-256")
	return append(out, context...)
}
