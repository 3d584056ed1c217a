package webpush

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"
)

// newTestSubscription generates a subscriber key pair and auth secret the way
// a browser would, returning the subscription plus the private half needed to
// reverse the derivation.
func newTestSubscription(t *testing.T) (*Subscription, *ecdh.PrivateKey) {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	auth := make([]byte, authSecretSize)
	if _, err := rand.Read(auth); err != nil {
		t.Fatal(err)
	}
	return &Subscription{
		Endpoint:  "https://push.example.net/send/abc",
		ClientKey: priv.PublicKey().Bytes(),
		Auth:      auth,
	}, priv
}

// decryptRecord reverses the aes128gcm content coding with the subscriber's
// private key: parse the header, redo ECDH + HKDF, open the ciphertext.
// Returns the padded record (plaintext plus delimiter).
func decryptRecord(t *testing.T, out []byte, priv *ecdh.PrivateKey, auth []byte) []byte {
	t.Helper()

	if len(out) < headerSize {
		t.Fatalf("output shorter than header: %d bytes", len(out))
	}
	salt := out[:saltSize]
	if rs := binary.BigEndian.Uint32(out[saltSize : saltSize+4]); rs != recordSize {
		t.Fatalf("record size = %d, want %d", rs, recordSize)
	}
	if idlen := out[saltSize+4]; idlen != clientKeySize {
		t.Fatalf("key id length = %d, want %d", idlen, clientKeySize)
	}
	serverKeyBytes := out[saltSize+5 : headerSize]
	ciphertext := out[headerSize:]

	serverKey, err := ecdh.P256().NewPublicKey(serverKeyBytes)
	if err != nil {
		t.Fatal(err)
	}
	sharedSecret, err := priv.ECDH(serverKey)
	if err != nil {
		t.Fatal(err)
	}

	ikmInfo := append([]byte{}, ikmInfoPrefix...)
	ikmInfo = append(ikmInfo, priv.PublicKey().Bytes()...)
	ikmInfo = append(ikmInfo, serverKeyBytes...)

	ikm, err := deriveKey(sharedSecret, auth, ikmInfo, ikmSize)
	if err != nil {
		t.Fatal(err)
	}
	cek, err := deriveKey(ikm, salt, cekInfo, cekSize)
	if err != nil {
		t.Fatal(err)
	}
	nonce, err := deriveKey(ikm, salt, nonceInfo, nonceSize)
	if err != nil {
		t.Fatal(err)
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		t.Fatal(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatal(err)
	}
	record, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		t.Fatalf("decryption failed: %v", err)
	}
	return record
}

func TestEncryptRoundTrip(t *testing.T) {
	sub, priv := newTestSubscription(t)
	plaintext := []byte(`{"title":"Allowance paid","body":"5.00 added"}`)

	out, err := Encrypt(plaintext, sub)
	if err != nil {
		t.Fatal(err)
	}

	record := decryptRecord(t, out, priv, sub.Auth)
	if record[len(record)-1] != padDelimiter {
		t.Fatalf("record delimiter = %#x, want %#x", record[len(record)-1], padDelimiter)
	}
	if !bytes.Equal(record[:len(record)-1], plaintext) {
		t.Fatalf("plaintext mismatch: got %q", record[:len(record)-1])
	}
}

func TestEncryptOutputLength(t *testing.T) {
	sub, _ := newTestSubscription(t)
	for _, size := range []int{0, 1, 17, 512} {
		plaintext := make([]byte, size)
		out, err := Encrypt(plaintext, sub)
		if err != nil {
			t.Fatal(err)
		}
		// header + plaintext + delimiter + GCM tag
		want := headerSize + size + 1 + 16
		if len(out) != want {
			t.Fatalf("size %d: output length = %d, want %d", size, len(out), want)
		}
	}
}

func TestEncryptNeverReusesSaltOrKey(t *testing.T) {
	sub, _ := newTestSubscription(t)

	a, err := Encrypt([]byte("same"), sub)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encrypt([]byte("same"), sub)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(a[:saltSize], b[:saltSize]) {
		t.Fatal("salt reused across messages")
	}
	if bytes.Equal(a[saltSize+5:headerSize], b[saltSize+5:headerSize]) {
		t.Fatal("ephemeral key reused across messages")
	}
}

func TestEncryptRejectsBadClientKey(t *testing.T) {
	sub, _ := newTestSubscription(t)
	sub.ClientKey = sub.ClientKey[:64]

	_, err := Encrypt([]byte("x"), sub)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestEncryptRejectsBadAuthSecret(t *testing.T) {
	sub, _ := newTestSubscription(t)
	sub.Auth = sub.Auth[:8]

	_, err := Encrypt([]byte("x"), sub)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestParseSubscription(t *testing.T) {
	sub, _ := newTestSubscription(t)
	token := `{"endpoint":"https://push.example.net/send/abc","keys":{` +
		`"p256dh":"` + base64.RawURLEncoding.EncodeToString(sub.ClientKey) + `",` +
		`"auth":"` + base64.RawURLEncoding.EncodeToString(sub.Auth) + `"}}`

	parsed, err := ParseSubscription(token)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Endpoint != sub.Endpoint {
		t.Fatalf("endpoint = %q", parsed.Endpoint)
	}
	if !bytes.Equal(parsed.ClientKey, sub.ClientKey) || !bytes.Equal(parsed.Auth, sub.Auth) {
		t.Fatal("key material mismatch")
	}
}

func TestParseSubscriptionAcceptsStdBase64(t *testing.T) {
	sub, _ := newTestSubscription(t)
	token := `{"endpoint":"https://push.example.net/send/abc","keys":{` +
		`"p256dh":"` + base64.StdEncoding.EncodeToString(sub.ClientKey) + `",` +
		`"auth":"` + base64.StdEncoding.EncodeToString(sub.Auth) + `"}}`

	if _, err := ParseSubscription(token); err != nil {
		t.Fatal(err)
	}
}

func TestParseSubscriptionErrors(t *testing.T) {
	cases := map[string]string{
		"not JSON":       `expo-token-1234`,
		"no endpoint":    `{"keys":{"p256dh":"QUFB","auth":"QUFB"}}`,
		"short p256dh":   `{"endpoint":"https://p.example/x","keys":{"p256dh":"QUFB","auth":"QUFBQUFBQUFBQUFBQUFBQQ"}}`,
		"short auth":     `{"endpoint":"https://p.example/x","keys":{"p256dh":"QUFB","auth":"QUFB"}}`,
		"missing fields": `{}`,
	}
	for name, token := range cases {
		_, err := ParseSubscription(token)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("%s: expected DecodeError, got %v", name, err)
		}
	}
}
