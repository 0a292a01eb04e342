package vaultedge

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vaultedge/go-sdk/vaultcrypto"
)

// CacheStore keeps the last successful fetch for disaster recovery. Save
// replaces the stored copy wholesale, Load returns it, Purge destroys it.
// The SDK falls back to Load only when the transport fails, and purges
// after every successful write so the cache never serves stale records it
// knows are stale.
type CacheStore interface {
	Save(data []byte) error
	Load() ([]byte, error)
	Purge() error
}

// KeyWrapper protects the per-snapshot cache key at rest. Each Save
// generates a fresh AES key for the snapshot; the wrapper decides how
// that key itself is stored (local RSA key, OS keychain, KMS, ...).
type KeyWrapper interface {
	Wrap(key []byte) ([]byte, error)
	Unwrap(wrapped []byte) ([]byte, error)
}

// LocalRSAKeyWrapper wraps snapshot keys with RSA-OAEP under a key pair
// held by the caller. Suitable where the RSA private key lives somewhere
// safer than the cache file itself.
type LocalRSAKeyWrapper struct {
	PrivateKey *rsa.PrivateKey
}

// NewLocalRSAKeyWrapper generates a fresh 2048-bit wrapper. For a
// persistent cache, load the key pair from durable storage instead.
func NewLocalRSAKeyWrapper() (*LocalRSAKeyWrapper, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, NewCryptoError("encrypt", "failed to generate cache wrapping key", err)
	}
	return &LocalRSAKeyWrapper{PrivateKey: key}, nil
}

func (w *LocalRSAKeyWrapper) Wrap(key []byte) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &w.PrivateKey.PublicKey, key, nil)
	if err != nil {
		return nil, NewCryptoError("encrypt", "failed to wrap cache key", err)
	}
	return wrapped, nil
}

func (w *LocalRSAKeyWrapper) Unwrap(wrapped []byte) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, w.PrivateKey, wrapped, nil)
	if err != nil {
		return nil, NewCryptoError("decrypt", "failed to unwrap cache key", err)
	}
	return key, nil
}

// cacheMagic marks the start of a cache blob; anything else is rejected
// without attempting decryption.
var cacheMagic = [4]byte{'V', 'E', 'D', 'R'}

// DiskCache is a CacheStore backed by a single file. Each snapshot is
// encrypted under a fresh AES-256-GCM key, which is wrapped by the
// configured KeyWrapper and stored alongside the ciphertext:
//
//	magic(4) | len|wrappedKey | len|nonce | len|tag | len|ciphertext
//
// with each len a big-endian uint32.
type DiskCache struct {
	path    string
	wrapper KeyWrapper
}

// NewDiskCache creates a cache at path. The parent directory is created
// on first Save.
func NewDiskCache(path string, wrapper KeyWrapper) (*DiskCache, error) {
	if path == "" {
		return nil, NewConfigurationError("cache", "path is required")
	}
	if wrapper == nil {
		return nil, NewConfigurationError("cache", "key wrapper is required")
	}
	return &DiskCache{path: path, wrapper: wrapper}, nil
}

func (c *DiskCache) Save(data []byte) error {
	key, err := vaultcrypto.GenerateKey()
	if err != nil {
		return NewCryptoError("encrypt", "failed to generate cache key", err)
	}
	wrappedKey, err := c.wrapper.Wrap(key)
	if err != nil {
		return err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return NewCryptoError("encrypt", "failed to encrypt cache", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return NewCryptoError("encrypt", "failed to encrypt cache", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return NewCryptoError("encrypt", "failed to encrypt cache", err)
	}
	sealed := gcm.Seal(nil, nonce, data, nil)
	ciphertext := sealed[:len(sealed)-gcm.Overhead()]
	tag := sealed[len(sealed)-gcm.Overhead():]

	blob := make([]byte, 0, 4+16+len(wrappedKey)+len(nonce)+len(tag)+len(ciphertext))
	blob = append(blob, cacheMagic[:]...)
	for _, section := range [][]byte{wrappedKey, nonce, tag, ciphertext} {
		var length [4]byte
		binary.BigEndian.PutUint32(length[:], uint32(len(section)))
		blob = append(blob, length[:]...)
		blob = append(blob, section...)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	// Write-then-rename so a crash mid-write never corrupts the cache.
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

func (c *DiskCache) Load() ([]byte, error) {
	blob, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	if len(blob) < 4 || [4]byte(blob[:4]) != cacheMagic {
		return nil, errors.New("cache file is not a recognized snapshot")
	}

	sections := make([][]byte, 0, 4)
	rest := blob[4:]
	for i := 0; i < 4; i++ {
		if len(rest) < 4 {
			return nil, errors.New("cache file is truncated")
		}
		length := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < length {
			return nil, errors.New("cache file is truncated")
		}
		sections = append(sections, rest[:length])
		rest = rest[length:]
	}
	wrappedKey, nonce, tag, ciphertext := sections[0], sections[1], sections[2], sections[3]

	key, err := c.wrapper.Unwrap(wrappedKey)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewCryptoError("decrypt", "failed to decrypt cache", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewCryptoError("decrypt", "failed to decrypt cache", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	data, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, NewCryptoError("decrypt", "cache snapshot failed authentication", err)
	}
	return data, nil
}

func (c *DiskCache) Purge() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	return nil
}
