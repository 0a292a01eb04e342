package vaultedge

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/vaultedge/go-sdk/vaultcrypto"
)

// TransmissionKey is the ephemeral symmetric key protecting one request
// and its response. It is generated fresh per logical request, wrapped for
// the pinned server public key, and never persisted or reused.
type TransmissionKey struct {
	Key          []byte
	EncryptedKey []byte
	KeyID        string
}

// Envelope is one encrypted, signed request body: the payload ciphertext
// under the transmission key plus an ECDSA signature over
// encryptedTransmissionKey || ciphertext.
type Envelope struct {
	EncryptedPayload []byte
	Signature        []byte
}

// generateTransmissionKey creates a fresh transmission key wrapped under
// the pinned server key identified by keyID. An identifier absent from the
// key set is a fatal configuration error.
func generateTransmissionKey(serverKeys *ServerKeySet, keyID string) (*TransmissionKey, error) {
	serverPub, ok := serverKeys.Get(keyID)
	if !ok {
		return nil, NewConfigurationError(string(KeyServerPublicKeyID), fmt.Sprintf("no pinned server public key with id %s", keyID))
	}

	key, err := vaultcrypto.GenerateKey()
	if err != nil {
		return nil, NewCryptoError("encrypt", "failed to generate transmission key", err)
	}
	encryptedKey, err := vaultcrypto.PublicEncrypt(serverPub, key)
	if err != nil {
		return nil, NewCryptoError("encrypt", "failed to wrap transmission key", err)
	}
	return &TransmissionKey{Key: key, EncryptedKey: encryptedKey, KeyID: keyID}, nil
}

// buildEnvelope encrypts the serialized payload under the transmission key
// and signs encryptedTransmissionKey || ciphertext with the client private
// key. Pure transform; no side effects.
func buildEnvelope(privateKey *ecdsa.PrivateKey, tk *TransmissionKey, payload []byte) (*Envelope, error) {
	encrypted, err := vaultcrypto.Encrypt(payload, tk.Key)
	if err != nil {
		return nil, NewCryptoError("encrypt", "failed to encrypt payload", err)
	}

	signed := make([]byte, 0, len(tk.EncryptedKey)+len(encrypted))
	signed = append(signed, tk.EncryptedKey...)
	signed = append(signed, encrypted...)

	signature, err := vaultcrypto.Sign(privateKey, signed)
	if err != nil {
		return nil, NewCryptoError("sign", "failed to sign envelope", err)
	}
	return &Envelope{EncryptedPayload: encrypted, Signature: signature}, nil
}
