package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	saltSize  = 16
	ikmSize   = 32
	cekSize   = 16
	nonceSize = 12

	// Single-record delivery; the header still declares the RFC 8188
	// default record size.
	recordSize = 4096

	// salt[16] + record size[4] + key id length[1] + local public key[65]
	headerSize = saltSize + 4 + 1 + clientKeySize // 86

	// End-of-record delimiter for the last (only) record, no padding after.
	padDelimiter = 0x02
)

var (
	ikmInfoPrefix = []byte("WebPush: info\x00")
	cekInfo       = []byte("Content-Encoding: aes128gcm\x00")
	nonceInfo     = []byte("Content-Encoding: nonce\x00")
)

// Encrypt seals plaintext for one subscription per RFC 8291 aes128gcm.
// A fresh ephemeral P-256 key pair and a fresh random salt are generated per
// call and never reused; the output is the full content-coding stream:
//
//	salt[16] || rs[4] || idlen[1]=65 || ephemeral public key[65] || ciphertext+tag
func Encrypt(plaintext []byte, sub *Subscription) ([]byte, error) {
	if len(sub.ClientKey) != clientKeySize {
		return nil, &DecodeError{Message: fmt.Sprintf("client key must be %d bytes, got %d", clientKeySize, len(sub.ClientKey))}
	}
	if len(sub.Auth) != authSecretSize {
		return nil, &DecodeError{Message: fmt.Sprintf("auth secret must be %d bytes, got %d", authSecretSize, len(sub.Auth))}
	}

	curve := ecdh.P256()

	clientKey, err := curve.NewPublicKey(sub.ClientKey)
	if err != nil {
		return nil, &DecodeError{Message: fmt.Sprintf("client key is not a valid P-256 point: %v", err)}
	}

	local, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	localPub := local.PublicKey().Bytes()

	sharedSecret, err := local.ECDH(clientKey)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	// IKM binds both parties' public keys into the derivation.
	ikmInfo := make([]byte, 0, len(ikmInfoPrefix)+2*clientKeySize)
	ikmInfo = append(ikmInfo, ikmInfoPrefix...)
	ikmInfo = append(ikmInfo, sub.ClientKey...)
	ikmInfo = append(ikmInfo, localPub...)

	ikm, err := deriveKey(sharedSecret, sub.Auth, ikmInfo, ikmSize)
	if err != nil {
		return nil, err
	}
	cek, err := deriveKey(ikm, salt, cekInfo, cekSize)
	if err != nil {
		return nil, err
	}
	nonce, err := deriveKey(ikm, salt, nonceInfo, nonceSize)
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

	record := make([]byte, 0, len(plaintext)+1)
	record = append(record, plaintext...)
	record = append(record, padDelimiter)

	out := make([]byte, headerSize, headerSize+len(record)+gcm.Overhead())
	copy(out[:saltSize], salt)
	binary.BigEndian.PutUint32(out[saltSize:saltSize+4], recordSize)
	out[saltSize+4] = clientKeySize
	copy(out[saltSize+5:], localPub)

	return gcm.Seal(out, nonce, record, nil), nil
}

// deriveKey runs one HKDF-SHA256 expansion of the given length.
func deriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
