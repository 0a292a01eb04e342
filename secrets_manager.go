// Package vaultedge provides a Golang SDK for fetching and mutating
// secrets stored in a VaultEdge zero-knowledge vault.
//
// All encryption and decryption happens locally; the network layer only
// ever sees ciphertext, signed envelopes, and opaque identifiers. The SDK
// covers:
//   - Secrets: fetch, update, create, delete records and folders
//   - Files: upload and download encrypted attachments
//   - Notation: address individual field values with a compact expression
//   - TOTP and password generation utilities
//   - Disaster recovery: an encrypted local copy of the last good fetch
//
// Example usage:
//
//	sm, err := vaultedge.NewSecretsManager(&vaultedge.Options{
//	    Token:  "US:MZ2x5Y...",
//	    Config: vaultedge.NewFileKeyValueStorage("vaultedge.json"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := sm.GetSecrets(ctx, nil)
package vaultedge

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/vaultedge/go-sdk/vaultcrypto"
)

// Options configures a SecretsManager.
type Options struct {
	// Token is the one-time binding token, either "REGION:base64key" or a
	// bare base64 key. Required on first use, ignored once the
	// configuration is bound.
	Token string

	// Hostname overrides the region table, for tokens without a region
	// prefix or for private deployments.
	Hostname string

	// Config is the durable configuration store. Defaults to an
	// in-memory store, which only makes sense for single-process use
	// with a base64 config bundle.
	Config KeyValueStorage

	// Transport sends signed envelopes. Defaults to DefaultTransport.
	// Wrap with ChainTransport to add logging, caching or rate limiting.
	Transport TransportFunc

	// ServerKeys is the immutable pinned server key table. Defaults to
	// the table built into this SDK release.
	ServerKeys *ServerKeySet

	// Cache, when set, keeps an encrypted local copy of the last
	// successful fetch for disaster recovery.
	Cache CacheStore

	// Logger receives the deliberately-absorbed failures (skipped
	// records, post-bind refresh, cache fallback). Defaults to a no-op.
	Logger *zap.Logger

	// InsecureSkipVerify disables TLS certificate verification in the
	// transport. Test use only.
	InsecureSkipVerify bool
}

// SecretsManager is the client-side protocol engine. It is safe for
// concurrent use as long as the configured KeyValueStorage serializes its
// own access; each request gets its own transmission key.
type SecretsManager struct {
	config            KeyValueStorage
	transport         TransportFunc
	serverKeys        *ServerKeySet
	cache             CacheStore
	log               *zap.Logger
	verifyCertificate bool
}

// SetDefaults fills unspecified options with their defaults: an in-memory
// store, the built-in transport and pinned key table, and a no-op logger.
func (o *Options) SetDefaults() error {
	if o.Config == nil {
		o.Config = NewMemoryKeyValueStorage()
	}
	if o.ServerKeys == nil {
		serverKeys, err := DefaultServerKeys()
		if err != nil {
			return err
		}
		o.ServerKeys = serverKeys
	}
	if o.Transport == nil {
		o.Transport = DefaultTransport()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return nil
}

// NewSecretsManager creates a new engine, binding the one-time token into
// the configuration store if one is supplied and the store is not already
// bound.
func NewSecretsManager(options *Options) (*SecretsManager, error) {
	if options == nil {
		options = &Options{}
	}
	if err := options.SetDefaults(); err != nil {
		return nil, err
	}

	sm := &SecretsManager{
		config:            options.Config,
		transport:         options.Transport,
		serverKeys:        options.ServerKeys,
		cache:             options.Cache,
		log:               options.Logger,
		verifyCertificate: !options.InsecureSkipVerify,
	}

	if options.Token != "" {
		if err := sm.bindToken(options.Token, options.Hostname); err != nil {
			return nil, err
		}
	}

	hostname, err := sm.config.GetString(KeyHostname)
	if err != nil {
		return nil, err
	}
	if hostname == "" {
		return nil, NewConfigurationError(string(KeyHostname), "is required")
	}
	clientID, err := sm.config.GetString(KeyClientID)
	if err != nil {
		return nil, err
	}
	if clientID == "" {
		return nil, NewConfigurationError(string(KeyClientID), "is required; supply a binding token")
	}

	return sm, nil
}

// bindToken parses the one-time token and initializes the configuration
// store. Re-binding an already-bound store with the same token is a
// no-op; a different token is a configuration error.
func (sm *SecretsManager) bindToken(token, hostname string) error {
	key := token
	if idx := strings.IndexByte(token, ':'); idx >= 0 {
		region := strings.ToUpper(token[:idx])
		key = token[idx+1:]
		regionHost, ok := regionHosts[region]
		if !ok {
			return NewConfigurationError("token", fmt.Sprintf("unknown region %q", region))
		}
		if hostname == "" {
			hostname = regionHost
		}
	}
	if hostname == "" {
		return NewConfigurationError(string(KeyHostname), "is required for tokens without a region prefix")
	}
	hostname = strings.TrimPrefix(strings.TrimPrefix(hostname, "https://"), "http://")

	bindingKey, err := vaultcrypto.Base64URLDecode(key)
	if err != nil || len(bindingKey) != vaultcrypto.AESKeySize {
		return NewConfigurationError("token", "binding key must be 32 base64-encoded bytes")
	}
	derivedID := vaultcrypto.DeriveClientID(bindingKey, clientIDTag)

	existingID, err := sm.config.GetString(KeyClientID)
	if err != nil {
		return err
	}
	if existingID != "" && existingID != derivedID {
		return NewConfigurationError(string(KeyClientID), "configuration store is already bound to a different token")
	}

	appKey, err := sm.config.GetString(KeyAppKey)
	if err != nil {
		return err
	}
	if appKey != "" && existingID == derivedID {
		// Binding already completed; the one-time token has been spent.
		return nil
	}

	if err := sm.config.SaveString(KeyHostname, hostname); err != nil {
		return err
	}
	if err := sm.config.SaveString(KeyClientKey, key); err != nil {
		return err
	}
	return sm.config.SaveString(KeyClientID, derivedID)
}

func (sm *SecretsManager) url(endpoint string) (string, error) {
	hostname, err := sm.config.GetString(KeyHostname)
	if err != nil {
		return "", err
	}
	if hostname == "" {
		return "", NewConfigurationError(string(KeyHostname), "is required")
	}
	return "https://" + hostname + apiBasePath + endpoint, nil
}

func (sm *SecretsManager) clientID() (string, error) {
	clientID, err := sm.config.GetString(KeyClientID)
	if err != nil {
		return "", err
	}
	if clientID == "" {
		return "", NewConfigurationError(string(KeyClientID), "is required")
	}
	return clientID, nil
}

// ensurePrivateKey loads the client signing key, generating and persisting
// one on first use.
func (sm *SecretsManager) ensurePrivateKey() (*ecdsa.PrivateKey, error) {
	der, err := sm.config.GetBytes(KeyPrivateKey)
	if err != nil {
		return nil, err
	}
	if len(der) > 0 {
		key, err := vaultcrypto.ImportSigningKey(der)
		if err != nil {
			return nil, NewConfigurationError(string(KeyPrivateKey), fmt.Sprintf("stored private key is unparseable: %v", err))
		}
		return key, nil
	}

	key, err := vaultcrypto.GenerateSigningKey()
	if err != nil {
		return nil, NewCryptoError("sign", "failed to generate client key pair", err)
	}
	exported, err := vaultcrypto.ExportSigningKey(key)
	if err != nil {
		return nil, NewCryptoError("sign", "failed to export client key pair", err)
	}
	if err := sm.config.SaveBytes(KeyPrivateKey, exported); err != nil {
		return nil, err
	}
	return key, nil
}

func (sm *SecretsManager) appKey() ([]byte, error) {
	appKey, err := sm.config.GetBytes(KeyAppKey)
	if err != nil {
		return nil, err
	}
	if len(appKey) == 0 {
		return nil, NewConfigurationError(string(KeyAppKey), "not bound yet; fetch secrets once to complete the binding")
	}
	return appKey, nil
}

// postQuery runs one signed request against the vault: fresh transmission
// key, envelope encryption and signing, transport, response decryption.
// The only retry is the one-shot pinned-key rotation recovery.
func (sm *SecretsManager) postQuery(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, NewValidationError("payload", fmt.Sprintf("payload is not serializable: %v", err))
	}

	url, err := sm.url(endpoint)
	if err != nil {
		return nil, err
	}

	keyID, err := sm.config.GetString(KeyServerPublicKeyID)
	if err != nil {
		return nil, err
	}
	if keyID == "" {
		keyID = DefaultServerPublicKeyID
	}

	privateKey, err := sm.ensurePrivateKey()
	if err != nil {
		return nil, err
	}

	retried := false
	for {
		tk, err := generateTransmissionKey(sm.serverKeys, keyID)
		if err != nil {
			return nil, err
		}
		envelope, err := buildEnvelope(privateKey, tk, payloadBytes)
		if err != nil {
			return nil, err
		}

		resp, err := sm.transport(ctx, url, tk, envelope, sm.verifyCertificate)
		if err != nil {
			var ne *NetworkError
			if !errors.As(err, &ne) {
				err = NewNetworkError("transport failed", err)
			}
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if len(resp.Data) == 0 {
				return nil, nil
			}
			plaintext, err := vaultcrypto.Decrypt(resp.Data, tk.Key)
			if err != nil {
				return nil, NewCryptoError("decrypt", "failed to decrypt server response", err)
			}
			return plaintext, nil
		}

		se := parseServerError(resp)
		if se.KeyRotation() && !retried {
			if _, ok := sm.serverKeys.Get(se.KeyID); ok {
				keyID = se.KeyID
				if err := sm.config.SaveString(KeyServerPublicKeyID, keyID); err != nil {
					return nil, err
				}
				sm.log.Info("server rotated pinned public key", zap.String("keyId", keyID))
				retried = true
				continue
			}
		}
		return nil, se
	}
}

// GetSecrets fetches and decrypts records and folders. With a nil or
// empty uids list the whole application share is returned; otherwise only
// the requested record UIDs.
//
// On the very first call after binding, the server releases the encrypted
// application key instead of secrets; the SDK completes the binding and
// transparently fetches once more. A failure of that immediate re-fetch
// is logged, not raised, since the bind itself already succeeded.
func (sm *SecretsManager) GetSecrets(ctx context.Context, uids []string) (result *SecretsResult, err error) {
	ctx, span := startSDKSpan(ctx, "SDK.Secrets.GetSecrets",
		attribute.Int("requested_records", len(uids)),
	)
	start := time.Now()
	defer func() {
		recordSDKRequestMetrics(ctx, "secrets.get", time.Since(start), err)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	result, justBound, err := sm.fetchAndDecryptSecrets(ctx, uids)
	if err != nil {
		return nil, err
	}
	if justBound {
		refreshed, _, rerr := sm.fetchAndDecryptSecrets(ctx, uids)
		if rerr != nil {
			sm.log.Warn("post-bind refresh failed; returning bind result", zap.Error(rerr))
		} else {
			result = refreshed
		}
	}
	return result, nil
}

// GetSecretsByTitle fetches all secrets and returns those whose decrypted
// title matches exactly.
func (sm *SecretsManager) GetSecretsByTitle(ctx context.Context, title string) ([]*Record, error) {
	result, err := sm.GetSecrets(ctx, nil)
	if err != nil {
		return nil, err
	}
	return result.FindByTitle(title), nil
}

// GetSecretByTitle is GetSecretsByTitle requiring exactly one match.
func (sm *SecretsManager) GetSecretByTitle(ctx context.Context, title string) (*Record, error) {
	records, err := sm.GetSecretsByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, NewValidationError("title", fmt.Sprintf("no record titled %q", title))
	case 1:
		return records[0], nil
	default:
		return nil, NewValidationError("title", fmt.Sprintf("%d records titled %q", len(records), title))
	}
}

// fetchAndDecryptSecrets performs one logical fetch, falling back to the
// disaster recovery cache only when the transport itself fails, and
// refreshing the cache on success.
func (sm *SecretsManager) fetchAndDecryptSecrets(ctx context.Context, uids []string) (*SecretsResult, bool, error) {
	payload, err := sm.prepareGetPayload(uids)
	if err != nil {
		return nil, false, err
	}

	fromCache := false
	body, err := sm.postQuery(ctx, endpointGetSecret, payload)
	if err != nil {
		var ne *NetworkError
		if !errors.As(err, &ne) || sm.cache == nil {
			return nil, false, err
		}
		cached, cerr := sm.cache.Load()
		if cerr != nil {
			return nil, false, err
		}
		sm.log.Warn("transport failed, serving disaster recovery cache", zap.Error(err))
		body = cached
		fromCache = true
	}

	result, justBound, err := sm.processResponse(body)
	if err != nil {
		return nil, false, err
	}

	// The bind response carries the wrapped application key, which only
	// the already-deleted binding key could open again; caching it would
	// leave a snapshot that can never be replayed.
	if !fromCache && !justBound && sm.cache != nil {
		if cerr := sm.cache.Save(body); cerr != nil {
			sm.log.Warn("failed to update disaster recovery cache", zap.Error(cerr))
		}
	}
	return result, justBound, nil
}

func (sm *SecretsManager) prepareGetPayload(uids []string) (*getPayload, error) {
	clientID, err := sm.clientID()
	if err != nil {
		return nil, err
	}
	payload := &getPayload{
		ClientVersion:    ClientVersion,
		ClientID:         clientID,
		RequestedRecords: uids,
	}

	// Before the first successful bind the server has no key to trust;
	// include the public half of the signing key for its one-time
	// trust-on-first-use.
	appKey, err := sm.config.GetString(KeyAppKey)
	if err != nil {
		return nil, err
	}
	if appKey == "" {
		privateKey, err := sm.ensurePrivateKey()
		if err != nil {
			return nil, err
		}
		publicKey, err := vaultcrypto.PublicKeyBytes(privateKey)
		if err != nil {
			return nil, NewCryptoError("sign", "failed to derive public key", err)
		}
		payload.PublicKey = vaultcrypto.Base64URLEncode(publicKey)
	}
	return payload, nil
}

// processResponse walks the key hierarchy of one decrypted response:
// application key (released on first bind), then record keys, folder keys
// and file keys, strictly top-down. A record or folder that fails to
// decrypt is logged and skipped; it never aborts the batch.
func (sm *SecretsManager) processResponse(body []byte) (*SecretsResult, bool, error) {
	var resp getSecretsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false, NewValidationError("response", fmt.Sprintf("response is not valid JSON: %v", err))
	}

	justBound := false
	var appKey []byte
	if resp.EncryptedAppKey != "" {
		bindingKey, err := sm.config.GetBytes(KeyClientKey)
		if err != nil {
			return nil, false, err
		}
		if len(bindingKey) == 0 {
			return nil, false, NewConfigurationError(string(KeyClientKey), "server released the application key but no binding key is stored")
		}
		encAppKey, err := vaultcrypto.Base64URLDecode(resp.EncryptedAppKey)
		if err != nil {
			return nil, false, NewCryptoError("decrypt", "malformed encrypted application key", err)
		}
		if appKey, err = vaultcrypto.Decrypt(encAppKey, bindingKey); err != nil {
			return nil, false, NewCryptoError("decrypt", "failed to unwrap application key", err)
		}
		if err := sm.config.SaveBytes(KeyAppKey, appKey); err != nil {
			return nil, false, err
		}
		if resp.AppOwnerPublicKey != "" {
			if err := sm.config.SaveString(KeyAppOwnerPublicKey, resp.AppOwnerPublicKey); err != nil {
				return nil, false, err
			}
		}
		// The binding key is one-time use; destroy it.
		if err := sm.config.Delete(KeyClientKey); err != nil {
			return nil, false, err
		}
		justBound = true
	} else {
		var err error
		if appKey, err = sm.appKey(); err != nil {
			return nil, false, err
		}
	}

	result := &SecretsResult{Warnings: resp.Warnings}
	if resp.ExpiresOn > 0 {
		result.ExpiresOn = time.UnixMilli(resp.ExpiresOn)
	}

	for i := range resp.Records {
		record, err := decryptRecord(&resp.Records[i], appKey, sm.log)
		if err != nil {
			sm.log.Warn("skipping record that failed to decrypt",
				zap.String("recordUid", resp.Records[i].RecordUID),
				zap.Error(err))
			continue
		}
		result.Records = append(result.Records, record)
	}

	for i := range resp.Folders {
		fr := &resp.Folders[i]
		wrappedKey, err := vaultcrypto.Base64URLDecode(fr.FolderKey)
		if err == nil {
			var folderKey []byte
			if folderKey, err = vaultcrypto.Decrypt(wrappedKey, appKey); err == nil {
				folder := &Folder{UID: fr.FolderUID, Key: folderKey}
				for j := range fr.Records {
					record, rerr := decryptRecord(&fr.Records[j], folderKey, sm.log)
					if rerr != nil {
						sm.log.Warn("skipping folder record that failed to decrypt",
							zap.String("folderUid", fr.FolderUID),
							zap.String("recordUid", fr.Records[j].RecordUID),
							zap.Error(rerr))
						continue
					}
					record.FolderUID = fr.FolderUID
					record.folderKey = folderKey
					folder.Records = append(folder.Records, record)
				}
				result.Folders = append(result.Folders, folder)
				continue
			}
		}
		sm.log.Warn("skipping folder that failed to decrypt",
			zap.String("folderUid", fr.FolderUID),
			zap.Error(err))
	}

	return result, justBound, nil
}

// Save pushes a locally modified record back to the vault. The record's
// revision must match the server's or the update is rejected; re-fetch
// after every successful write before further edits.
func (sm *SecretsManager) Save(ctx context.Context, record *Record) (err error) {
	if record == nil {
		return ErrRecordNil
	}
	if record.UID == "" {
		return ErrRecordUIDMissing
	}

	ctx, span := startSDKSpan(ctx, "SDK.Secrets.Save",
		attribute.String("record_uid", record.UID),
	)
	start := time.Now()
	defer func() {
		recordSDKRequestMetrics(ctx, "secrets.save", time.Since(start), err)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	clientID, err := sm.clientID()
	if err != nil {
		return err
	}
	data, err := record.encryptData()
	if err != nil {
		return err
	}

	_, err = sm.postQuery(ctx, endpointUpdateSecret, &updatePayload{
		ClientVersion: ClientVersion,
		ClientID:      clientID,
		RecordUID:     record.UID,
		Data:          data,
		Revision:      record.Revision,
	})
	if err != nil {
		return err
	}
	sm.purgeCache()
	return nil
}

// CreateSecret creates a new record inside the folder identified by
// folderUID and returns the new record UID. The folder must be part of a
// previously fetched result so its key is available locally.
func (sm *SecretsManager) CreateSecret(ctx context.Context, folderUID string, data *RecordData, fetched *SecretsResult) (uid string, err error) {
	if folderUID == "" {
		return "", ErrFolderUIDMissing
	}
	if data == nil {
		return "", NewValidationError("record_data", "cannot be nil")
	}

	ctx, span := startSDKSpan(ctx, "SDK.Secrets.CreateSecret",
		attribute.String("folder_uid", folderUID),
	)
	start := time.Now()
	defer func() {
		recordSDKRequestMetrics(ctx, "secrets.create", time.Since(start), err)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	var folderKey []byte
	if fetched != nil {
		for _, f := range fetched.Folders {
			if f.UID == folderUID {
				folderKey = f.Key
				break
			}
		}
	}
	if folderKey == nil {
		return "", NewValidationError("folder_uid", fmt.Sprintf("folder %s is not part of the fetched result", folderUID))
	}

	clientID, err := sm.clientID()
	if err != nil {
		return "", err
	}
	appKey, err := sm.appKey()
	if err != nil {
		return "", err
	}

	recordKey, err := vaultcrypto.GenerateKey()
	if err != nil {
		return "", NewCryptoError("encrypt", "failed to generate record key", err)
	}
	recordUID := vaultcrypto.GenerateUID()

	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", NewValidationError("record_data", fmt.Sprintf("not serializable: %v", err))
	}
	encryptedData, err := vaultcrypto.Encrypt(plaintext, recordKey)
	if err != nil {
		return "", NewCryptoError("encrypt", "failed to encrypt record data", err)
	}
	wrappedRecordKey, err := vaultcrypto.Encrypt(recordKey, folderKey)
	if err != nil {
		return "", NewCryptoError("encrypt", "failed to wrap record key", err)
	}
	wrappedFolderKey, err := vaultcrypto.Encrypt(folderKey, appKey)
	if err != nil {
		return "", NewCryptoError("encrypt", "failed to wrap folder key", err)
	}

	_, err = sm.postQuery(ctx, endpointCreateSecret, &createPayload{
		ClientVersion: ClientVersion,
		ClientID:      clientID,
		RecordUID:     recordUID,
		RecordKey:     vaultcrypto.Base64URLEncode(wrappedRecordKey),
		FolderUID:     folderUID,
		FolderKey:     vaultcrypto.Base64URLEncode(wrappedFolderKey),
		Data:          vaultcrypto.Base64URLEncode(encryptedData),
	})
	if err != nil {
		return "", err
	}
	sm.purgeCache()
	return recordUID, nil
}

// DeleteSecrets deletes the given records.
func (sm *SecretsManager) DeleteSecrets(ctx context.Context, uids []string) (err error) {
	if len(uids) == 0 {
		return ErrNoRecordUIDs
	}

	ctx, span := startSDKSpan(ctx, "SDK.Secrets.DeleteSecrets",
		attribute.Int("record_count", len(uids)),
	)
	start := time.Now()
	defer func() {
		recordSDKRequestMetrics(ctx, "secrets.delete", time.Since(start), err)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	clientID, err := sm.clientID()
	if err != nil {
		return err
	}
	_, err = sm.postQuery(ctx, endpointDeleteSecret, &deletePayload{
		ClientVersion: ClientVersion,
		ClientID:      clientID,
		RecordUIDs:    uids,
	})
	if err != nil {
		return err
	}
	sm.purgeCache()
	return nil
}

func (sm *SecretsManager) purgeCache() {
	if sm.cache == nil {
		return
	}
	if err := sm.cache.Purge(); err != nil {
		sm.log.Warn("failed to purge disaster recovery cache", zap.Error(err))
	}
}
