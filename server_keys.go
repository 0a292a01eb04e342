package vaultedge

import (
	"crypto/ecdh"
	"fmt"
	"sort"

	"github.com/vaultedge/go-sdk/vaultcrypto"
)

// ServerKeySet is the immutable table of pinned server public keys. It is
// constructed once and passed to the engine by reference; the engine never
// mutates it. Key rotation only changes which identifier the configuration
// points at, never the table itself.
type ServerKeySet struct {
	keys map[string]*ecdh.PublicKey
}

// NewServerKeySet builds a key set from base64url-encoded uncompressed
// P-256 points keyed by identifier. Every entry must parse; a malformed
// pinned key is a configuration error, not something to skip.
func NewServerKeySet(encoded map[string]string) (*ServerKeySet, error) {
	keys := make(map[string]*ecdh.PublicKey, len(encoded))
	for id, enc := range encoded {
		raw, err := vaultcrypto.Base64URLDecode(enc)
		if err != nil {
			return nil, NewConfigurationError("serverPublicKey", fmt.Sprintf("key %s is not valid base64: %v", id, err))
		}
		pub, err := vaultcrypto.ImportPublicKey(raw)
		if err != nil {
			return nil, NewConfigurationError("serverPublicKey", fmt.Sprintf("key %s is not a valid P-256 point: %v", id, err))
		}
		keys[id] = pub
	}
	return &ServerKeySet{keys: keys}, nil
}

// DefaultServerKeys returns the key set built from the table pinned into
// this SDK build.
func DefaultServerKeys() (*ServerKeySet, error) {
	return NewServerKeySet(defaultServerPublicKeys)
}

// Get returns the public key for the given identifier.
func (s *ServerKeySet) Get(id string) (*ecdh.PublicKey, bool) {
	key, ok := s.keys[id]
	return key, ok
}

// IDs returns the sorted identifiers in the set.
func (s *ServerKeySet) IDs() []string {
	ids := make([]string, 0, len(s.keys))
	for id := range s.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
