package webpush

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"
)

// Token lifetime. RFC 8292 caps VAPID tokens at 24 hours; half of that keeps
// clock skew comfortably inside the ceiling.
const tokenLifetime = 12 * time.Hour

const rawScalarSize = 32

var ErrInvalidVAPIDKey = errors.New("invalid VAPID key")

// Signer holds the process-wide VAPID key material. It is built once at
// startup and never mutated; signing is safe for concurrent use.
type Signer struct {
	publicKeyB64 string // uncompressed P-256 point, base64url
	privateKey   *ecdsa.PrivateKey
	subject      string
}

// NewSigner builds a Signer from base64url-encoded key material. The private
// key is accepted in two source encodings, tried in this order: a standard
// PKCS#8 or SEC 1 blob, then a raw 32-byte scalar (reconstructed into a full
// key using the public key's coordinates). The raw-scalar path only applies
// to exactly 32 bytes, so the format choice is unambiguous.
func NewSigner(publicB64, privateB64, subject string) (*Signer, error) {
	publicKey, err := decodeKey(publicB64)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrInvalidVAPIDKey, err)
	}
	if len(publicKey) != clientKeySize || publicKey[0] != 0x04 {
		return nil, fmt.Errorf("%w: public key must be a %d-byte uncompressed P-256 point", ErrInvalidVAPIDKey, clientKeySize)
	}

	privateBytes, err := decodeKey(privateB64)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %v", ErrInvalidVAPIDKey, err)
	}

	privateKey, err := parsePrivateKey(privateBytes, publicKey)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(subject, "mailto:") && !strings.HasPrefix(subject, "https://") {
		return nil, fmt.Errorf("%w: subject must be a mailto: or https: URI", ErrInvalidVAPIDKey)
	}

	return &Signer{
		publicKeyB64: base64.RawURLEncoding.EncodeToString(publicKey),
		privateKey:   privateKey,
		subject:      subject,
	}, nil
}

// parsePrivateKey tries the standard encoded forms before falling back to a
// raw scalar, and cross-checks the result against the configured public key.
func parsePrivateKey(privateBytes, publicKey []byte) (*ecdsa.PrivateKey, error) {
	var key *ecdsa.PrivateKey

	if k, err := x509.ParsePKCS8PrivateKey(privateBytes); err == nil {
		ec, ok := k.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: PKCS#8 blob does not contain an EC key", ErrInvalidVAPIDKey)
		}
		key = ec
	} else if ec, err := x509.ParseECPrivateKey(privateBytes); err == nil {
		key = ec
	} else if len(privateBytes) == rawScalarSize {
		key = &ecdsa.PrivateKey{
			PublicKey: ecdsa.PublicKey{
				Curve: elliptic.P256(),
				X:     new(big.Int).SetBytes(publicKey[1:33]),
				Y:     new(big.Int).SetBytes(publicKey[33:65]),
			},
			D: new(big.Int).SetBytes(privateBytes),
		}
	} else {
		return nil, fmt.Errorf("%w: private key is neither an encoded blob nor a %d-byte scalar", ErrInvalidVAPIDKey, rawScalarSize)
	}

	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: private key is not on P-256", ErrInvalidVAPIDKey)
	}

	// Re-derive the public point from the scalar and compare it with the
	// configured public key. A mismatched pair would sign tokens push
	// services silently reject.
	ecdhKey, err := key.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVAPIDKey, err)
	}
	if !bytes.Equal(ecdhKey.PublicKey().Bytes(), publicKey) {
		return nil, fmt.Errorf("%w: private key does not match the configured public key", ErrInvalidVAPIDKey)
	}
	return key, nil
}

// PublicKey returns the base64url-encoded public key, the value clients pass
// as applicationServerKey when subscribing.
func (s *Signer) PublicKey() string {
	return s.publicKeyB64
}

// vapidClaims is the JWT claim set push services verify.
type vapidClaims struct {
	Audience string `json:"aud"`
	Expiry   int64  `json:"exp"`
	Subject  string `json:"sub"`
}

// AuthorizationHeader builds the Authorization header value for one push
// endpoint: "vapid t=<jwt>, k=<public key>". The token audience is the
// endpoint's origin (scheme and host, path discarded).
func (s *Signer) AuthorizationHeader(endpoint string, now time.Time) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint URL %q has no origin", endpoint)
	}

	header, _ := json.Marshal(map[string]string{"typ": "JWT", "alg": "ES256"})
	claims, err := json.Marshal(vapidClaims{
		Audience: u.Scheme + "://" + u.Host,
		Expiry:   now.Add(tokenLifetime).Unix(),
		Subject:  s.subject,
	})
	if err != nil {
		return "", err
	}

	signingInput := base64.RawURLEncoding.EncodeToString(header) + "." + base64.RawURLEncoding.EncodeToString(claims)

	digest := sha256.Sum256([]byte(signingInput))
	r, sv, err := ecdsa.Sign(rand.Reader, s.privateKey, digest[:])
	if err != nil {
		return "", err
	}

	// ES256 uses the raw r||s form, 32 bytes each, not ASN.1.
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	sv.FillBytes(sig[32:])

	jwt := signingInput + "." + base64.RawURLEncoding.EncodeToString(sig)
	return "vapid t=" + jwt + ", k=" + s.publicKeyB64, nil
}
