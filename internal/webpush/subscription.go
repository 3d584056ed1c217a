// Package webpush implements the Web Push wire protocol from primitives:
// RFC 8291 aes128gcm payload encryption and RFC 8292 VAPID sender
// authentication. No push-protocol library is used; the push service only
// ever sees bytes produced here.
package webpush

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	// Uncompressed P-256 point: 0x04 prefix, 32-byte X, 32-byte Y.
	clientKeySize = 65

	// RFC 8291 authentication secret.
	authSecretSize = 16
)

// DecodeError reports a malformed stored subscription or key. It is fatal
// only to the one subscription it belongs to.
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

// Subscription is the decoded form of a stored browser registration token.
type Subscription struct {
	Endpoint  string // push service resource URL
	ClientKey []byte // subscriber P-256 public key, 65 bytes
	Auth      []byte // subscriber auth secret, 16 bytes
}

// subscriptionJSON matches the PushSubscription.toJSON() shape browsers
// produce and the registration API stores verbatim.
type subscriptionJSON struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// ParseSubscription decodes a stored registration token into a Subscription.
func ParseSubscription(token string) (*Subscription, error) {
	var raw subscriptionJSON
	if err := json.Unmarshal([]byte(token), &raw); err != nil {
		return nil, &DecodeError{Message: fmt.Sprintf("invalid subscription JSON: %v", err)}
	}
	if raw.Endpoint == "" {
		return nil, &DecodeError{Message: "subscription has no endpoint"}
	}

	clientKey, err := decodeKey(raw.Keys.P256dh)
	if err != nil {
		return nil, &DecodeError{Message: fmt.Sprintf("invalid p256dh key: %v", err)}
	}
	if len(clientKey) != clientKeySize {
		return nil, &DecodeError{Message: fmt.Sprintf("p256dh key must be %d bytes, got %d", clientKeySize, len(clientKey))}
	}

	auth, err := decodeKey(raw.Keys.Auth)
	if err != nil {
		return nil, &DecodeError{Message: fmt.Sprintf("invalid auth secret: %v", err)}
	}
	if len(auth) != authSecretSize {
		return nil, &DecodeError{Message: fmt.Sprintf("auth secret must be %d bytes, got %d", authSecretSize, len(auth))}
	}

	return &Subscription{Endpoint: raw.Endpoint, ClientKey: clientKey, Auth: auth}, nil
}

// decodeKey accepts both base64url (what browsers emit) and standard base64
// (what some registration clients re-encode), padded or not.
func decodeKey(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("not valid base64")
}
