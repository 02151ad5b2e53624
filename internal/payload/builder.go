// Package payload turns a plaintext message into the encrypted envelope sent
// as the push body.
package payload

import (
	"github.com/tinywideclouds/go-webpush/pkg/push"
)

// Builder obtains an envelope from the configured Encrypter.
type Builder struct {
	encrypter push.Encrypter
}

func NewBuilder(encrypter push.Encrypter) *Builder {
	return &Builder{encrypter: encrypter}
}

// Build returns nil for an empty message. Otherwise the encrypter's result is
// returned as is, including its error.
func (b *Builder) Build(message []byte, keys push.Keys) (*push.Envelope, error) {
	if len(message) == 0 {
		return nil, nil
	}
	return b.encrypter.Encrypt(message, keys.P256dh, keys.Auth)
}
