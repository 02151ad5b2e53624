package push

import (
	"fmt"
	"net/url"
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

const (
	DefaultSubject    = "sender@example.com"
	DefaultExpiration = 24 * time.Hour
	DefaultTTL        = 4 * 7 * 24 * time.Hour
)

// Urgency is the delivery priority hint sent in the Urgency header.
type Urgency = webpush.Urgency

const (
	UrgencyVeryLow = webpush.UrgencyVeryLow
	UrgencyLow     = webpush.UrgencyLow
	UrgencyNormal  = webpush.UrgencyNormal
	UrgencyHigh    = webpush.UrgencyHigh
)

// ValidUrgency reports whether u is one of the protocol defined values.
func ValidUrgency(u Urgency) bool {
	switch u {
	case UrgencyVeryLow, UrgencyLow, UrgencyNormal, UrgencyHigh:
		return true
	}
	return false
}

// VapidOptions configures VAPID authentication. Either PEM or the
// PublicKey/PrivateKey pair must be set; leaving all three empty disables VAPID.
type VapidOptions struct {
	Subject    string
	Expiration time.Duration
	PublicKey  string
	PrivateKey string
	PEM        string
}

// Enabled reports whether any key material was configured.
func (o VapidOptions) Enabled() bool {
	return o.PEM != "" || o.PublicKey != "" || o.PrivateKey != ""
}

// WithDefaults returns a copy with Subject and Expiration filled in.
func (o VapidOptions) WithDefaults() VapidOptions {
	if o.Subject == "" {
		o.Subject = DefaultSubject
	}
	if o.Expiration == 0 {
		o.Expiration = DefaultExpiration
	}
	return o
}

// Validate rejects incomplete key material. Disabled options are always valid.
func (o VapidOptions) Validate() error {
	if !o.Enabled() {
		return nil
	}
	if o.PEM == "" && (o.PublicKey == "" || o.PrivateKey == "") {
		return fmt.Errorf("vapid requires either a pem or both public_key and private_key")
	}
	if o.Expiration < 0 {
		return fmt.Errorf("vapid expiration must not be negative, got %s", o.Expiration)
	}
	return nil
}

// DeliveryOptions are the per-push protocol and transport settings.
// Zero timeouts leave the transport default in place. A zero TTL means
// DefaultTTL unless TTLSet is true, in which case "Ttl: 0" is sent.
type DeliveryOptions struct {
	TTL         time.Duration
	TTLSet      bool
	Urgency     Urgency
	APIKey      string
	SSLTimeout  time.Duration
	OpenTimeout time.Duration
	ReadTimeout time.Duration
	ProxyURL    string
}

// WithDefaults returns a copy with TTL and Urgency filled in.
func (o DeliveryOptions) WithDefaults() DeliveryOptions {
	if o.TTL == 0 && !o.TTLSet {
		o.TTL = DefaultTTL
	}
	if o.Urgency == "" {
		o.Urgency = UrgencyNormal
	}
	return o
}

func (o DeliveryOptions) Validate() error {
	if o.TTL < 0 {
		return fmt.Errorf("ttl must not be negative, got %s", o.TTL)
	}
	if !ValidUrgency(o.Urgency) {
		return fmt.Errorf("invalid urgency %q", o.Urgency)
	}
	if o.SSLTimeout < 0 || o.OpenTimeout < 0 || o.ReadTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if o.ProxyURL != "" {
		if _, err := url.Parse(o.ProxyURL); err != nil {
			return fmt.Errorf("invalid proxy url: %w", err)
		}
	}
	return nil
}
