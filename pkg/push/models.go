// Package push contains the public domain models, options and errors shared
// by the web push sender components.
package push

import "fmt"

// Keys is the key material issued by the browser with a subscription.
type Keys struct {
	P256dh []byte `json:"p256dh"`
	Auth   []byte `json:"auth"`
}

// Subscription identifies where and how to deliver a message to one client.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

// Validate checks the subscription is usable. Keys are only required when a
// payload is going to be encrypted for the client.
func (s Subscription) Validate(withPayload bool) error {
	if s.Endpoint == "" {
		return fmt.Errorf("subscription endpoint is required")
	}
	if withPayload {
		if len(s.Keys.P256dh) == 0 {
			return fmt.Errorf("subscription p256dh key is required to send a message")
		}
		if len(s.Keys.Auth) == 0 {
			return fmt.Errorf("subscription auth secret is required to send a message")
		}
	}
	return nil
}

// Envelope is the output of the content encryption step.
// A nil *Envelope means the push carries no payload.
type Envelope struct {
	Ciphertext      []byte
	Salt            []byte
	ServerPublicKey []byte
}

// Notification is everything needed to send one push. An empty Message sends
// a wake-up push with no body.
type Notification struct {
	Message      []byte
	Subscription Subscription
	Vapid        VapidOptions
	Delivery     DeliveryOptions
}
