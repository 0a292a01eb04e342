package vaultedge

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/json"
	"strings"
	"testing"

	"github.com/vaultedge/go-sdk/vaultcrypto"
)

// fakeVault emulates the server end of the protocol: it owns the private
// half of pinned key "10", decrypts envelopes with the transmission key,
// and answers with responses encrypted the same way.
type fakeVault struct {
	t       *testing.T
	keySet  *ServerKeySet
	appKey  []byte
	pending []fakeResponse

	requests []fakeRequest
}

type fakeRequest struct {
	endpoint string
	payload  map[string]interface{}
}

type fakeResponse struct {
	statusCode int
	// body is JSON; for 2xx it is encrypted under the transmission key
	// before returning, error bodies go out in the clear.
	body []byte
}

func newFakeVault(t *testing.T) *fakeVault {
	t.Helper()

	serverKey, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate server key: %v", err)
	}
	rotatedKey, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate rotated server key: %v", err)
	}
	keySet, err := NewServerKeySet(map[string]string{
		"10": vaultcrypto.Base64URLEncode(serverKey.PublicKey().Bytes()),
		"11": vaultcrypto.Base64URLEncode(rotatedKey.PublicKey().Bytes()),
	})
	if err != nil {
		t.Fatalf("failed to build key set: %v", err)
	}

	appKey, err := vaultcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate app key: %v", err)
	}
	return &fakeVault{t: t, keySet: keySet, appKey: appKey}
}

// enqueue adds the next response. 2xx bodies are encrypted per request.
func (v *fakeVault) enqueue(statusCode int, body interface{}) {
	raw, err := json.Marshal(body)
	if err != nil {
		v.t.Fatalf("failed to marshal fake response: %v", err)
	}
	v.pending = append(v.pending, fakeResponse{statusCode: statusCode, body: raw})
}

func (v *fakeVault) enqueueEmpty() {
	v.pending = append(v.pending, fakeResponse{statusCode: 200})
}

func (v *fakeVault) transport() TransportFunc {
	return func(ctx context.Context, url string, tk *TransmissionKey, env *Envelope, verify bool) (*TransportResponse, error) {
		endpoint := url[strings.LastIndexByte(url, '/')+1:]

		payloadJSON, err := vaultcrypto.Decrypt(env.EncryptedPayload, tk.Key)
		if err != nil {
			v.t.Fatalf("fake vault could not decrypt payload: %v", err)
		}
		var payload map[string]interface{}
		if err := json.Unmarshal(payloadJSON, &payload); err != nil {
			v.t.Fatalf("fake vault got non-JSON payload: %v", err)
		}
		v.requests = append(v.requests, fakeRequest{endpoint: endpoint, payload: payload})

		if len(v.pending) == 0 {
			v.t.Fatalf("fake vault got unexpected request to %s", endpoint)
		}
		next := v.pending[0]
		v.pending = v.pending[1:]

		data := next.body
		if next.statusCode >= 200 && next.statusCode < 300 && len(data) > 0 {
			if data, err = vaultcrypto.Encrypt(next.body, tk.Key); err != nil {
				v.t.Fatalf("fake vault could not encrypt response: %v", err)
			}
		}
		return &TransportResponse{StatusCode: next.statusCode, Data: data}, nil
	}
}

// encryptedRecord builds one wire record whose record key is wrapped
// under parentKey.
func (v *fakeVault) encryptedRecord(uid, title string, parentKey []byte) (recordResponse, []byte) {
	v.t.Helper()

	recordKey, err := vaultcrypto.GenerateKey()
	if err != nil {
		v.t.Fatalf("failed to generate record key: %v", err)
	}
	data, err := json.Marshal(&RecordData{
		Title: title,
		Type:  "login",
		Fields: []*Field{
			{Type: "login", Value: []interface{}{"alice"}},
			{Type: "password", Value: []interface{}{"hunter2"}},
		},
	})
	if err != nil {
		v.t.Fatalf("failed to marshal record data: %v", err)
	}
	encData, err := vaultcrypto.Encrypt(data, recordKey)
	if err != nil {
		v.t.Fatalf("failed to encrypt record data: %v", err)
	}
	wrappedKey, err := vaultcrypto.Encrypt(recordKey, parentKey)
	if err != nil {
		v.t.Fatalf("failed to wrap record key: %v", err)
	}
	return recordResponse{
		RecordUID: uid,
		RecordKey: vaultcrypto.Base64URLEncode(wrappedKey),
		Data:      vaultcrypto.Base64URLEncode(encData),
		Revision:  3,
	}, recordKey
}

// boundConfig returns a storage already past the bind flow.
func (v *fakeVault) boundConfig() *MemoryKeyValueStorage {
	v.t.Helper()
	storage := NewMemoryKeyValueStorage()
	storage.SaveString(KeyHostname, "vault.example.com")
	storage.SaveString(KeyClientID, "client-1")
	storage.SaveBytes(KeyAppKey, v.appKey)
	return storage
}

func (v *fakeVault) manager(storage KeyValueStorage, opts *Options) *SecretsManager {
	v.t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	opts.Config = storage
	opts.Transport = v.transport()
	opts.ServerKeys = v.keySet
	sm, err := NewSecretsManager(opts)
	if err != nil {
		v.t.Fatalf("NewSecretsManager() error: %v", err)
	}
	return sm
}

func TestGetSecrets(t *testing.T) {
	vault := newFakeVault(t)
	rec, _ := vault.encryptedRecord("rec-1", "Production DB", vault.appKey)
	vault.enqueue(200, &getSecretsResponse{Records: []recordResponse{rec}})

	sm := vault.manager(vault.boundConfig(), nil)
	result, err := sm.GetSecrets(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetSecrets() error: %v", err)
	}

	if len(result.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(result.Records))
	}
	record := result.Records[0]
	if record.UID != "rec-1" || record.Data.Title != "Production DB" {
		t.Errorf("record = %q/%q, want rec-1/Production DB", record.UID, record.Data.Title)
	}
	if got := record.GetFieldValue("password"); got != "hunter2" {
		t.Errorf("password field = %q, want hunter2", got)
	}

	if len(vault.requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(vault.requests))
	}
	req := vault.requests[0]
	if req.endpoint != "get_secret" {
		t.Errorf("endpoint = %q, want get_secret", req.endpoint)
	}
	if req.payload["clientId"] != "client-1" {
		t.Errorf("clientId = %v, want client-1", req.payload["clientId"])
	}
	if _, sent := req.payload["publicKey"]; sent {
		t.Error("bound client must not resend its public key")
	}
}

func TestGetSecretsBindFlow(t *testing.T) {
	vault := newFakeVault(t)

	bindingKey, err := vaultcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate binding key: %v", err)
	}
	token := "US:" + vaultcrypto.Base64URLEncode(bindingKey)

	encAppKey, err := vaultcrypto.Encrypt(vault.appKey, bindingKey)
	if err != nil {
		t.Fatalf("failed to wrap app key: %v", err)
	}
	rec, _ := vault.encryptedRecord("rec-1", "First Secret", vault.appKey)

	// First fetch releases the application key; the SDK then refetches.
	vault.enqueue(200, &getSecretsResponse{
		EncryptedAppKey:   vaultcrypto.Base64URLEncode(encAppKey),
		AppOwnerPublicKey: "owner-pub",
	})
	vault.enqueue(200, &getSecretsResponse{Records: []recordResponse{rec}})

	storage := NewMemoryKeyValueStorage()
	sm := vault.manager(storage, &Options{Token: token})

	if host, _ := storage.GetString(KeyHostname); host != "vault.vaultedge.com" {
		t.Errorf("hostname = %q, want the US region host", host)
	}
	wantClientID := vaultcrypto.DeriveClientID(bindingKey, "VAULTEDGE_SDK_CLIENT_ID")
	if id, _ := storage.GetString(KeyClientID); id != wantClientID {
		t.Errorf("clientId = %q, want the HMAC-derived id", id)
	}

	result, err := sm.GetSecrets(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetSecrets() error: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].Data.Title != "First Secret" {
		t.Fatalf("bind flow did not return the refetched records: %+v", result.Records)
	}

	if got, _ := storage.GetBytes(KeyAppKey); string(got) != string(vault.appKey) {
		t.Error("application key was not persisted")
	}
	if got, _ := storage.GetString(KeyAppOwnerPublicKey); got != "owner-pub" {
		t.Errorf("appOwnerPublicKey = %q, want owner-pub", got)
	}
	if got, _ := storage.GetString(KeyClientKey); got != "" {
		t.Error("one-time binding key must be deleted after bind")
	}

	if len(vault.requests) != 2 {
		t.Fatalf("got %d requests, want bind + refetch", len(vault.requests))
	}
	if _, sent := vault.requests[0].payload["publicKey"]; !sent {
		t.Error("first request must carry the client public key")
	}
}

func TestGetSecretsBindRefetchFailureIsAbsorbed(t *testing.T) {
	vault := newFakeVault(t)

	bindingKey, err := vaultcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate binding key: %v", err)
	}
	encAppKey, err := vaultcrypto.Encrypt(vault.appKey, bindingKey)
	if err != nil {
		t.Fatalf("failed to wrap app key: %v", err)
	}
	vault.enqueue(200, &getSecretsResponse{EncryptedAppKey: vaultcrypto.Base64URLEncode(encAppKey)})
	vault.enqueue(403, map[string]string{"error": "access_denied"})

	storage := NewMemoryKeyValueStorage()
	sm := vault.manager(storage, &Options{
		Token:    vaultcrypto.Base64URLEncode(bindingKey),
		Hostname: "vault.example.com",
	})

	result, err := sm.GetSecrets(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetSecrets() must absorb the refetch failure, got: %v", err)
	}
	if len(result.Records) != 0 {
		t.Errorf("got %d records, want 0 from the bind response", len(result.Records))
	}
	if got, _ := storage.GetBytes(KeyAppKey); string(got) != string(vault.appKey) {
		t.Error("bind must persist the application key even when the refetch fails")
	}
}

func TestGetSecretsKeyRotationRetry(t *testing.T) {
	vault := newFakeVault(t)
	rec, _ := vault.encryptedRecord("rec-1", "After Rotation", vault.appKey)
	vault.enqueue(400, map[string]interface{}{"error": "key", "key_id": 11})
	vault.enqueue(200, &getSecretsResponse{Records: []recordResponse{rec}})

	storage := vault.boundConfig()
	sm := vault.manager(storage, nil)

	result, err := sm.GetSecrets(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetSecrets() error: %v", err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("got %d records, want 1 after the rotation retry", len(result.Records))
	}
	if id, _ := storage.GetString(KeyServerPublicKeyID); id != "11" {
		t.Errorf("serverPublicKeyId = %q, want 11", id)
	}
	if len(vault.requests) != 2 {
		t.Errorf("got %d requests, want exactly one retry", len(vault.requests))
	}
}

func TestGetSecretsKeyRotationRetriesOnlyOnce(t *testing.T) {
	vault := newFakeVault(t)
	vault.enqueue(400, map[string]interface{}{"error": "key", "key_id": "11"})
	vault.enqueue(400, map[string]interface{}{"error": "key", "key_id": "10"})

	sm := vault.manager(vault.boundConfig(), nil)

	_, err := sm.GetSecrets(context.Background(), nil)
	se, ok := err.(*ServerError)
	if !ok {
		t.Fatalf("error = %T (%v), want *ServerError", err, err)
	}
	if !se.KeyRotation() {
		t.Error("second rotation error must surface unchanged")
	}
	if len(vault.requests) != 2 {
		t.Errorf("got %d requests, want 2", len(vault.requests))
	}
}

func TestGetSecretsUnknownRotationKeyFails(t *testing.T) {
	vault := newFakeVault(t)
	vault.enqueue(400, map[string]interface{}{"error": "key", "key_id": "99"})

	sm := vault.manager(vault.boundConfig(), nil)

	_, err := sm.GetSecrets(context.Background(), nil)
	if _, ok := err.(*ServerError); !ok {
		t.Fatalf("error = %T (%v), want *ServerError for an unknown rotation target", err, err)
	}
	if len(vault.requests) != 1 {
		t.Errorf("got %d requests, want no retry toward an unknown key", len(vault.requests))
	}
}

func TestGetSecretsSkipsUndecryptableRecord(t *testing.T) {
	vault := newFakeVault(t)
	good, _ := vault.encryptedRecord("rec-good", "Good", vault.appKey)
	bad := good
	bad.RecordUID = "rec-bad"
	bad.RecordKey = vaultcrypto.Base64URLEncode([]byte("garbage key material........"))
	vault.enqueue(200, &getSecretsResponse{Records: []recordResponse{bad, good}})

	sm := vault.manager(vault.boundConfig(), nil)
	result, err := sm.GetSecrets(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetSecrets() error: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].UID != "rec-good" {
		t.Errorf("result = %+v, want only rec-good", result.Records)
	}
}

func TestGetSecretsFolders(t *testing.T) {
	vault := newFakeVault(t)

	folderKey, err := vaultcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate folder key: %v", err)
	}
	wrappedFolderKey, err := vaultcrypto.Encrypt(folderKey, vault.appKey)
	if err != nil {
		t.Fatalf("failed to wrap folder key: %v", err)
	}
	rec, _ := vault.encryptedRecord("rec-in-folder", "Shared", folderKey)

	vault.enqueue(200, &getSecretsResponse{
		Folders: []folderResponse{{
			FolderUID: "folder-1",
			FolderKey: vaultcrypto.Base64URLEncode(wrappedFolderKey),
			Records:   []recordResponse{rec},
		}},
	})

	sm := vault.manager(vault.boundConfig(), nil)
	result, err := sm.GetSecrets(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetSecrets() error: %v", err)
	}
	if len(result.Folders) != 1 {
		t.Fatalf("got %d folders, want 1", len(result.Folders))
	}
	folder := result.Folders[0]
	if folder.UID != "folder-1" || len(folder.Records) != 1 {
		t.Fatalf("folder = %+v, want folder-1 with one record", folder)
	}
	record := folder.Records[0]
	if record.FolderUID != "folder-1" {
		t.Errorf("record.FolderUID = %q, want folder-1", record.FolderUID)
	}
	if found := result.FindByUID("rec-in-folder"); found != record {
		t.Error("FindByUID must see folder records")
	}
}

func TestGetSecretByTitle(t *testing.T) {
	vault := newFakeVault(t)
	a, _ := vault.encryptedRecord("rec-a", "Unique", vault.appKey)
	b, _ := vault.encryptedRecord("rec-b", "Duplicate", vault.appKey)
	c, _ := vault.encryptedRecord("rec-c", "Duplicate", vault.appKey)
	response := &getSecretsResponse{Records: []recordResponse{a, b, c}}

	vault.enqueue(200, response)
	sm := vault.manager(vault.boundConfig(), nil)
	record, err := sm.GetSecretByTitle(context.Background(), "Unique")
	if err != nil {
		t.Fatalf("GetSecretByTitle() error: %v", err)
	}
	if record.UID != "rec-a" {
		t.Errorf("record = %q, want rec-a", record.UID)
	}

	vault.enqueue(200, response)
	if _, err := sm.GetSecretByTitle(context.Background(), "Duplicate"); err == nil {
		t.Error("ambiguous title must be an error")
	}

	vault.enqueue(200, response)
	if _, err := sm.GetSecretByTitle(context.Background(), "Missing"); err == nil {
		t.Error("missing title must be an error")
	}
}

func TestSave(t *testing.T) {
	vault := newFakeVault(t)
	wire, recordKey := vault.encryptedRecord("rec-1", "Before", vault.appKey)
	vault.enqueue(200, &getSecretsResponse{Records: []recordResponse{wire}})
	vault.enqueueEmpty()

	sm := vault.manager(vault.boundConfig(), nil)
	result, err := sm.GetSecrets(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetSecrets() error: %v", err)
	}
	record := result.Records[0]
	if err := record.SetFieldValue("password", "correct horse"); err != nil {
		t.Fatalf("SetFieldValue() error: %v", err)
	}

	if err := sm.Save(context.Background(), record); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	req := vault.requests[len(vault.requests)-1]
	if req.endpoint != "update_secret" {
		t.Fatalf("endpoint = %q, want update_secret", req.endpoint)
	}
	if req.payload["recordUid"] != "rec-1" {
		t.Errorf("recordUid = %v, want rec-1", req.payload["recordUid"])
	}
	if req.payload["revision"] != float64(3) {
		t.Errorf("revision = %v, want 3", req.payload["revision"])
	}

	// The uploaded data must decrypt under the record key.
	cipher, err := vaultcrypto.Base64URLDecode(req.payload["data"].(string))
	if err != nil {
		t.Fatalf("data is not base64: %v", err)
	}
	plaintext, err := vaultcrypto.Decrypt(cipher, recordKey)
	if err != nil {
		t.Fatalf("data does not decrypt under the record key: %v", err)
	}
	var data RecordData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		t.Fatalf("data is not JSON: %v", err)
	}
	if got := data.Fields[1].Value[0]; got != "correct horse" {
		t.Errorf("saved password = %v, want the updated value", got)
	}
}

func TestSaveValidation(t *testing.T) {
	vault := newFakeVault(t)
	sm := vault.manager(vault.boundConfig(), nil)

	if err := sm.Save(context.Background(), nil); err != ErrRecordNil {
		t.Errorf("Save(nil) = %v, want ErrRecordNil", err)
	}
	if err := sm.Save(context.Background(), &Record{}); err != ErrRecordUIDMissing {
		t.Errorf("Save(no uid) = %v, want ErrRecordUIDMissing", err)
	}
}

func TestCreateSecret(t *testing.T) {
	vault := newFakeVault(t)

	folderKey, err := vaultcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate folder key: %v", err)
	}
	fetched := &SecretsResult{Folders: []*Folder{{UID: "folder-1", Key: folderKey}}}

	vault.enqueueEmpty()
	sm := vault.manager(vault.boundConfig(), nil)

	uid, err := sm.CreateSecret(context.Background(), "folder-1", &RecordData{
		Title: "New Secret",
		Type:  "login",
		Fields: []*Field{
			{Type: "login", Value: []interface{}{"bob"}},
		},
	}, fetched)
	if err != nil {
		t.Fatalf("CreateSecret() error: %v", err)
	}
	if uid == "" {
		t.Fatal("CreateSecret() returned an empty uid")
	}

	req := vault.requests[0]
	if req.endpoint != "create_secret" {
		t.Fatalf("endpoint = %q, want create_secret", req.endpoint)
	}
	if req.payload["recordUid"] != uid {
		t.Errorf("recordUid = %v, want %q", req.payload["recordUid"], uid)
	}
	if req.payload["folderUid"] != "folder-1" {
		t.Errorf("folderUid = %v, want folder-1", req.payload["folderUid"])
	}

	// Verify the key hierarchy of the payload bottom-up.
	wrappedRecordKey, err := vaultcrypto.Base64URLDecode(req.payload["recordKey"].(string))
	if err != nil {
		t.Fatalf("recordKey is not base64: %v", err)
	}
	recordKey, err := vaultcrypto.Decrypt(wrappedRecordKey, folderKey)
	if err != nil {
		t.Fatalf("recordKey does not unwrap under the folder key: %v", err)
	}

	cipher, err := vaultcrypto.Base64URLDecode(req.payload["data"].(string))
	if err != nil {
		t.Fatalf("data is not base64: %v", err)
	}
	plaintext, err := vaultcrypto.Decrypt(cipher, recordKey)
	if err != nil {
		t.Fatalf("data does not decrypt under the record key: %v", err)
	}
	var data RecordData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		t.Fatalf("data is not JSON: %v", err)
	}
	if data.Title != "New Secret" {
		t.Errorf("title = %q, want New Secret", data.Title)
	}

	wrappedFolderKey, err := vaultcrypto.Base64URLDecode(req.payload["folderKey"].(string))
	if err != nil {
		t.Fatalf("folderKey is not base64: %v", err)
	}
	unwrapped, err := vaultcrypto.Decrypt(wrappedFolderKey, vault.appKey)
	if err != nil {
		t.Fatalf("folderKey does not unwrap under the app key: %v", err)
	}
	if string(unwrapped) != string(folderKey) {
		t.Error("folderKey payload does not carry the folder key")
	}
}

func TestCreateSecretUnknownFolder(t *testing.T) {
	vault := newFakeVault(t)
	sm := vault.manager(vault.boundConfig(), nil)

	_, err := sm.CreateSecret(context.Background(), "folder-x", &RecordData{Title: "t"}, &SecretsResult{})
	if err == nil {
		t.Fatal("creating into an unfetched folder must fail")
	}
	if len(vault.requests) != 0 {
		t.Error("no request must be sent for an unknown folder")
	}
}

func TestDeleteSecrets(t *testing.T) {
	vault := newFakeVault(t)
	vault.enqueueEmpty()
	sm := vault.manager(vault.boundConfig(), nil)

	if err := sm.DeleteSecrets(context.Background(), []string{"rec-1", "rec-2"}); err != nil {
		t.Fatalf("DeleteSecrets() error: %v", err)
	}

	req := vault.requests[0]
	if req.endpoint != "delete_secret" {
		t.Fatalf("endpoint = %q, want delete_secret", req.endpoint)
	}
	uids, ok := req.payload["recordUids"].([]interface{})
	if !ok || len(uids) != 2 {
		t.Fatalf("recordUids = %v, want two uids", req.payload["recordUids"])
	}

	if err := sm.DeleteSecrets(context.Background(), nil); err != ErrNoRecordUIDs {
		t.Errorf("DeleteSecrets(nil) = %v, want ErrNoRecordUIDs", err)
	}
}

func TestNewSecretsManagerValidation(t *testing.T) {
	if _, err := NewSecretsManager(&Options{}); err == nil {
		t.Error("an empty, unbound configuration must be rejected")
	}

	storage := NewMemoryKeyValueStorage()
	storage.SaveString(KeyClientID, "client-1")
	if _, err := NewSecretsManager(&Options{Config: storage}); err == nil {
		t.Error("a configuration without a hostname must be rejected")
	}
}

func TestBindTokenRejectsMismatchedConfig(t *testing.T) {
	bindingKey, err := vaultcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate binding key: %v", err)
	}

	storage := NewMemoryKeyValueStorage()
	storage.SaveString(KeyHostname, "vault.example.com")
	storage.SaveString(KeyClientID, "someone-else")

	_, err = NewSecretsManager(&Options{
		Token:  "EU:" + vaultcrypto.Base64URLEncode(bindingKey),
		Config: storage,
	})
	if _, ok := err.(*ConfigurationError); !ok {
		t.Fatalf("error = %T (%v), want *ConfigurationError", err, err)
	}
}

func TestBindTokenRejectsUnknownRegion(t *testing.T) {
	bindingKey, err := vaultcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate binding key: %v", err)
	}
	_, err = NewSecretsManager(&Options{
		Token:  "XX:" + vaultcrypto.Base64URLEncode(bindingKey),
		Config: NewMemoryKeyValueStorage(),
	})
	if _, ok := err.(*ConfigurationError); !ok {
		t.Fatalf("error = %T (%v), want *ConfigurationError", err, err)
	}
}

func TestBindTokenRejectsBadKey(t *testing.T) {
	_, err := NewSecretsManager(&Options{
		Token:    "short",
		Hostname: "vault.example.com",
		Config:   NewMemoryKeyValueStorage(),
	})
	if _, ok := err.(*ConfigurationError); !ok {
		t.Fatalf("error = %T (%v), want *ConfigurationError", err, err)
	}
}
