package vaultedge

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vaultedge/go-sdk/vaultcrypto"
)

// ConfigKey names an entry in the configuration store. The set is fixed;
// stores must not be shared between bindings.
type ConfigKey string

// Configuration entries.
const (
	KeyHostname          ConfigKey = "hostname"
	KeyClientID          ConfigKey = "clientId"
	KeyClientKey         ConfigKey = "clientKey" // one-time binding key, deleted after first bind
	KeyPrivateKey        ConfigKey = "privateKey"
	KeyAppKey            ConfigKey = "appKey"
	KeyAppOwnerPublicKey ConfigKey = "appOwnerPublicKey"
	KeyServerPublicKeyID ConfigKey = "serverPublicKeyId"
)

// KeyValueStorage is the durable configuration store contract. A missing
// key is not an error: GetString returns "" and GetBytes returns nil.
//
// The engine performs read-modify-write sequences against the store; an
// application calling the engine concurrently with a shared stateful store
// is responsible for serializing access.
type KeyValueStorage interface {
	GetString(key ConfigKey) (string, error)
	SaveString(key ConfigKey, value string) error
	GetBytes(key ConfigKey) ([]byte, error)
	SaveBytes(key ConfigKey, value []byte) error
	Delete(key ConfigKey) error
}

// MemoryKeyValueStorage is an in-process KeyValueStorage. It is the
// default when no store is supplied and the building block for base64
// config bundles.
type MemoryKeyValueStorage struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemoryKeyValueStorage creates an empty in-memory store.
func NewMemoryKeyValueStorage() *MemoryKeyValueStorage {
	return &MemoryKeyValueStorage{data: make(map[string]string)}
}

// NewMemoryStorageFromBase64 builds an in-memory store from a
// base64-encoded JSON object using the standard configuration key names.
// This is the portable form a config is distributed in.
func NewMemoryStorageFromBase64(encoded string) (*MemoryKeyValueStorage, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if raw, err = vaultcrypto.Base64URLDecode(encoded); err != nil {
			return nil, NewConfigurationError("config", fmt.Sprintf("config bundle is not valid base64: %v", err))
		}
	}
	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, NewConfigurationError("config", fmt.Sprintf("config bundle is not valid JSON: %v", err))
	}
	if data == nil {
		data = make(map[string]string)
	}
	return &MemoryKeyValueStorage{data: data}, nil
}

func (m *MemoryKeyValueStorage) GetString(key ConfigKey) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[string(key)], nil
}

func (m *MemoryKeyValueStorage) SaveString(key ConfigKey, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = value
	return nil
}

func (m *MemoryKeyValueStorage) GetBytes(key ConfigKey) ([]byte, error) {
	s, err := m.GetString(key)
	if err != nil || s == "" {
		return nil, err
	}
	return decodeStoredBytes(key, s)
}

func (m *MemoryKeyValueStorage) SaveBytes(key ConfigKey, value []byte) error {
	return m.SaveString(key, vaultcrypto.Base64URLEncode(value))
}

func (m *MemoryKeyValueStorage) Delete(key ConfigKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

// ToBase64 serializes the store into the portable bundle form.
func (m *MemoryKeyValueStorage) ToBase64() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(m.data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// FileKeyValueStorage persists the configuration as a JSON object on
// disk, created with 0600 permissions. Each operation re-reads the file so
// external edits (or another process finishing a bind) are picked up.
type FileKeyValueStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileKeyValueStorage creates a file-backed store at path. The file is
// created on first write.
func NewFileKeyValueStorage(path string) *FileKeyValueStorage {
	return &FileKeyValueStorage{path: path}
}

func (f *FileKeyValueStorage) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, NewConfigurationError("config", fmt.Sprintf("failed to read %s: %v", f.path, err))
	}
	data := make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, NewConfigurationError("config", fmt.Sprintf("%s is not valid JSON: %v", f.path, err))
		}
	}
	return data, nil
}

func (f *FileKeyValueStorage) write(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return NewConfigurationError("config", fmt.Sprintf("failed to create config directory: %v", err))
		}
	}
	if err := os.WriteFile(f.path, raw, 0600); err != nil {
		return NewConfigurationError("config", fmt.Sprintf("failed to write %s: %v", f.path, err))
	}
	return nil
}

func (f *FileKeyValueStorage) GetString(key ConfigKey) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.read()
	if err != nil {
		return "", err
	}
	return data[string(key)], nil
}

func (f *FileKeyValueStorage) SaveString(key ConfigKey, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.read()
	if err != nil {
		return err
	}
	data[string(key)] = value
	return f.write(data)
}

func (f *FileKeyValueStorage) GetBytes(key ConfigKey) ([]byte, error) {
	s, err := f.GetString(key)
	if err != nil || s == "" {
		return nil, err
	}
	return decodeStoredBytes(key, s)
}

func (f *FileKeyValueStorage) SaveBytes(key ConfigKey, value []byte) error {
	return f.SaveString(key, vaultcrypto.Base64URLEncode(value))
}

func (f *FileKeyValueStorage) Delete(key ConfigKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.read()
	if err != nil {
		return err
	}
	delete(data, string(key))
	return f.write(data)
}

func decodeStoredBytes(key ConfigKey, s string) ([]byte, error) {
	raw, err := vaultcrypto.Base64URLDecode(s)
	if err != nil {
		return nil, NewConfigurationError(string(key), fmt.Sprintf("stored value is not valid base64: %v", err))
	}
	return raw, nil
}
