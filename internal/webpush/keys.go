package webpush

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
)

// GenerateKeyPair creates a fresh VAPID P-256 key pair and returns the
// base64url-encoded public key (65-byte uncompressed point) and private key
// (raw 32-byte scalar), the format most subscription tooling expects.
func GenerateKeyPair() (publicB64, privateB64 string, err error) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}
	publicB64 = base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes())
	privateB64 = base64.RawURLEncoding.EncodeToString(key.Bytes())
	return publicB64, privateB64, nil
}
