// Package vaultcrypto implements the cryptographic primitives used by the
// VaultEdge SDK: AES-256-GCM envelope encryption, P-256 ECIES key wrapping,
// ECDSA request signing, and the encodings the vault protocol expects.
//
// All plaintext handling happens in this package and in the SDK root
// package; nothing here ever touches the network.
package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	// AESKeySize is the size of every symmetric key in the hierarchy
	// (application, folder, record, file, transmission, cache).
	AESKeySize = 32

	// NonceSize is the AES-GCM nonce size.
	NonceSize = 12

	// TagSize is the AES-GCM authentication tag size.
	TagSize = 16

	eciesInfo = "vaultedge-ecies-v1"
)

// GenerateKey generates a random 256-bit symmetric key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// GenerateUID returns a new opaque identifier for a record, folder or file:
// 16 random bytes, base64url-encoded without padding.
func GenerateUID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// Encrypt encrypts plaintext with AES-256-GCM under key. The output is
// nonce || ciphertext || tag, the layout every level of the key hierarchy
// uses on the wire and at rest.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt. It fails if the data is truncated or the
// authentication tag does not verify.
func Decrypt(data, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM mode: %w", err)
	}
	return gcm, nil
}

// GenerateSigningKey generates the client's P-256 signing key pair.
func GenerateSigningKey() (*ecdsa.PrivateKey, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return privateKey, nil
}

// ExportSigningKey marshals a signing key to PKCS#8 DER, the form the
// configuration store persists under the privateKey entry.
func ExportSigningKey(privateKey *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return der, nil
}

// ImportSigningKey parses a PKCS#8 DER signing key.
func ImportSigningKey(der []byte) (*ecdsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	ecdsaKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not an EC private key, got type %T", key)
	}
	return ecdsaKey, nil
}

// PublicKeyBytes returns the raw uncompressed point of the signing key's
// public half. This is the form sent to the server on first bind.
func PublicKeyBytes(privateKey *ecdsa.PrivateKey) ([]byte, error) {
	pub, err := privateKey.PublicKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key: %w", err)
	}
	return pub.Bytes(), nil
}

// ImportPublicKey parses a raw uncompressed P-256 point.
func ImportPublicKey(raw []byte) (*ecdh.PublicKey, error) {
	pub, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return pub, nil
}

// Sign computes an ASN.1 ECDSA signature over SHA-256(data).
func Sign(privateKey *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	sig, err := ecdsa.SignASN1(rand.Reader, privateKey, digest[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return sig, nil
}

// Verify checks an ASN.1 ECDSA signature over SHA-256(data).
func Verify(publicKey *ecdsa.PublicKey, data, sig []byte) bool {
	digest := sha256.Sum256(data)
	return ecdsa.VerifyASN1(publicKey, digest[:], sig)
}

// PublicEncrypt wraps plaintext for the holder of the private half of
// publicKey using ECIES: an ephemeral P-256 ECDH agreement, HKDF-SHA256
// key derivation, and AES-256-GCM.
//
// The output format is:
// [ephemeral public key length (1 byte)][ephemeral public key][nonce][ciphertext]
func PublicEncrypt(publicKey *ecdh.PublicKey, plaintext []byte) ([]byte, error) {
	curve := publicKey.Curve()
	ephemeral, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	sharedSecret, err := ephemeral.ECDH(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to perform ECDH: %w", err)
	}

	derivedKey, err := deriveECIESKey(sharedSecret)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(derivedKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	ephemeralBytes := ephemeral.PublicKey().Bytes()
	out := make([]byte, 0, 1+len(ephemeralBytes)+len(nonce)+len(ciphertext))
	out = append(out, byte(len(ephemeralBytes)))
	out = append(out, ephemeralBytes...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// PublicDecrypt reverses PublicEncrypt with the recipient's private key.
func PublicDecrypt(privateKey *ecdh.PrivateKey, data []byte) ([]byte, error) {
	if len(data) < 1 {
		return nil, errors.New("encrypted data too short")
	}
	ephemeralLen := int(data[0])
	if len(data) < 1+ephemeralLen+NonceSize {
		return nil, errors.New("encrypted data format invalid")
	}

	ephemeralPub, err := privateKey.Curve().NewPublicKey(data[1 : 1+ephemeralLen])
	if err != nil {
		return nil, fmt.Errorf("failed to parse ephemeral public key: %w", err)
	}

	nonceStart := 1 + ephemeralLen
	nonce := data[nonceStart : nonceStart+NonceSize]
	ciphertext := data[nonceStart+NonceSize:]

	sharedSecret, err := privateKey.ECDH(ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("failed to perform ECDH: %w", err)
	}

	derivedKey, err := deriveECIESKey(sharedSecret)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(derivedKey)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

func deriveECIESKey(sharedSecret []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, sharedSecret, nil, []byte(eciesInfo))
	key := make([]byte, AESKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// DeriveClientID derives the client identifier from the binding key:
// base64(HMAC-SHA512(bindingKey, tag)).
func DeriveClientID(bindingKey []byte, tag string) string {
	mac := hmac.New(sha512.New, bindingKey)
	mac.Write([]byte(tag))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Base64URLEncode encodes bytes as unpadded base64url, the encoding the
// vault protocol uses for all binary values.
func Base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode decodes base64url input, tolerating padding and the
// standard alphabet so tokens copied from other tooling still parse.
func Base64URLDecode(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
