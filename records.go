package vaultedge

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vaultedge/go-sdk/vaultcrypto"
)

// RecordData is the decrypted JSON body of a record.
type RecordData struct {
	Title  string   `json:"title"`
	Type   string   `json:"type"`
	Fields []*Field `json:"fields"`
	Custom []*Field `json:"custom,omitempty"`
	Notes  string   `json:"notes,omitempty"`
}

// Record is one decrypted secret. RecordKey is the record's own symmetric
// key, already unwrapped from the application key or the containing
// folder's key; it in turn unwraps the keys of attached files.
type Record struct {
	UID        string
	Revision   int64
	IsEditable bool
	RecordKey  []byte
	Data       *RecordData
	Files      []*File

	// FolderUID and folderKey are set for records fetched from inside a
	// folder; CreateSecret needs the folder key to wrap new record keys.
	FolderUID      string
	folderKey      []byte
	InnerFolderUID string
}

// Folder is a shared folder and the records inside it. Records in a
// folder unwrap their keys with Key, not with the application key.
type Folder struct {
	UID     string
	Key     []byte
	Records []*Record
}

// FileData is the decrypted metadata of an attached file.
type FileData struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	Size         int64  `json:"size"`
	LastModified int64  `json:"lastModified"`
}

// File is one attachment: decrypted metadata plus either a signed
// retrieval URL or nothing yet (content is fetched and decrypted on
// demand by DownloadFile).
type File struct {
	UID          string
	FileKey      []byte
	Data         *FileData
	URL          string
	ThumbnailURL string
}

// SecretsResult aggregates everything one fetch returned.
type SecretsResult struct {
	Records  []*Record
	Folders  []*Folder
	Warnings []string
	// ExpiresOn is the optional server-side expiry of this result; zero
	// when the server sent none.
	ExpiresOn time.Time
}

// AllRecords returns top-level records and folder records flattened.
func (r *SecretsResult) AllRecords() []*Record {
	all := make([]*Record, 0, len(r.Records))
	all = append(all, r.Records...)
	for _, f := range r.Folders {
		all = append(all, f.Records...)
	}
	return all
}

// FindByUID returns the record with the given UID, or nil.
func (r *SecretsResult) FindByUID(uid string) *Record {
	for _, rec := range r.AllRecords() {
		if rec.UID == uid {
			return rec
		}
	}
	return nil
}

// FindByTitle returns every record whose decrypted title matches exactly.
func (r *SecretsResult) FindByTitle(title string) []*Record {
	var out []*Record
	for _, rec := range r.AllRecords() {
		if rec.Data != nil && rec.Data.Title == title {
			out = append(out, rec)
		}
	}
	return out
}

// decryptRecord unwraps one record with the given parent key (application
// key for top-level records, folder key for folder records) and decrypts
// its data and file metadata. File content stays unresolved. A file whose
// key or metadata fails to decrypt is logged and skipped; it never fails
// the record.
func decryptRecord(resp *recordResponse, parentKey []byte, log *zap.Logger) (*Record, error) {
	wrappedKey, err := vaultcrypto.Base64URLDecode(resp.RecordKey)
	if err != nil {
		return nil, NewCryptoError("decrypt", fmt.Sprintf("record %s: malformed record key", resp.RecordUID), err)
	}
	recordKey, err := vaultcrypto.Decrypt(wrappedKey, parentKey)
	if err != nil {
		return nil, NewCryptoError("decrypt", fmt.Sprintf("record %s: failed to unwrap record key", resp.RecordUID), err)
	}

	dataCipher, err := vaultcrypto.Base64URLDecode(resp.Data)
	if err != nil {
		return nil, NewCryptoError("decrypt", fmt.Sprintf("record %s: malformed data", resp.RecordUID), err)
	}
	plaintext, err := vaultcrypto.Decrypt(dataCipher, recordKey)
	if err != nil {
		return nil, NewCryptoError("decrypt", fmt.Sprintf("record %s: failed to decrypt data", resp.RecordUID), err)
	}

	var data RecordData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, NewValidationError("record", fmt.Sprintf("record %s: data is not valid JSON: %v", resp.RecordUID, err))
	}

	record := &Record{
		UID:            resp.RecordUID,
		Revision:       resp.Revision,
		IsEditable:     resp.IsEditable,
		RecordKey:      recordKey,
		Data:           &data,
		InnerFolderUID: resp.InnerFolderUID,
	}

	for i := range resp.Files {
		file, err := decryptFile(&resp.Files[i], recordKey)
		if err != nil {
			log.Warn("skipping file that failed to decrypt",
				zap.String("recordUid", resp.RecordUID),
				zap.String("fileUid", resp.Files[i].FileUID),
				zap.Error(err))
			continue
		}
		record.Files = append(record.Files, file)
	}
	return record, nil
}

// decryptFile unwraps one attachment's key with the owning record's key
// and decrypts its metadata.
func decryptFile(resp *fileResponse, recordKey []byte) (*File, error) {
	wrappedKey, err := vaultcrypto.Base64URLDecode(resp.FileKey)
	if err != nil {
		return nil, NewCryptoError("decrypt", fmt.Sprintf("file %s: malformed file key", resp.FileUID), err)
	}
	fileKey, err := vaultcrypto.Decrypt(wrappedKey, recordKey)
	if err != nil {
		return nil, NewCryptoError("decrypt", fmt.Sprintf("file %s: failed to unwrap file key", resp.FileUID), err)
	}

	metaCipher, err := vaultcrypto.Base64URLDecode(resp.Data)
	if err != nil {
		return nil, NewCryptoError("decrypt", fmt.Sprintf("file %s: malformed metadata", resp.FileUID), err)
	}
	plaintext, err := vaultcrypto.Decrypt(metaCipher, fileKey)
	if err != nil {
		return nil, NewCryptoError("decrypt", fmt.Sprintf("file %s: failed to decrypt metadata", resp.FileUID), err)
	}

	var data FileData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, NewValidationError("file", fmt.Sprintf("file %s: metadata is not valid JSON: %v", resp.FileUID, err))
	}

	return &File{
		UID:          resp.FileUID,
		FileKey:      fileKey,
		Data:         &data,
		URL:          resp.URL,
		ThumbnailURL: resp.ThumbnailURL,
	}, nil
}

// findField locates a field by exact label match first, then by type
// name, in the given list.
func findField(fields []*Field, name string) *Field {
	for _, f := range fields {
		if f.Label == name {
			return f
		}
	}
	for _, f := range fields {
		if f.Type == name {
			return f
		}
	}
	return nil
}

// GetFieldValue returns the first value of the named standard field as a
// string, or "" if the field is absent or not a string.
func (r *Record) GetFieldValue(name string) string {
	f := findField(r.Data.Fields, name)
	if f == nil || len(f.Value) == 0 {
		return ""
	}
	if s, ok := f.Value[0].(string); ok {
		return s
	}
	return ""
}

// GetCustomFieldValue is GetFieldValue over the custom field list.
func (r *Record) GetCustomFieldValue(name string) string {
	f := findField(r.Data.Custom, name)
	if f == nil || len(f.Value) == 0 {
		return ""
	}
	if s, ok := f.Value[0].(string); ok {
		return s
	}
	return ""
}

// SetFieldValue replaces the value of the named standard field. The
// change is local until Save is called.
func (r *Record) SetFieldValue(name string, value interface{}) error {
	f := findField(r.Data.Fields, name)
	if f == nil {
		return NewValidationError("field", fmt.Sprintf("record %s has no field %q", r.UID, name))
	}
	f.Value = []interface{}{value}
	return nil
}

// SetCustomFieldValue is SetFieldValue over the custom field list.
func (r *Record) SetCustomFieldValue(name string, value interface{}) error {
	f := findField(r.Data.Custom, name)
	if f == nil {
		return NewValidationError("field", fmt.Sprintf("record %s has no custom field %q", r.UID, name))
	}
	f.Value = []interface{}{value}
	return nil
}

// encryptData serializes the record's data and encrypts it under the
// record key, returning the base64url wire form.
func (r *Record) encryptData() (string, error) {
	plaintext, err := json.Marshal(r.Data)
	if err != nil {
		return "", NewValidationError("record", fmt.Sprintf("record %s: data is not serializable: %v", r.UID, err))
	}
	ciphertext, err := vaultcrypto.Encrypt(plaintext, r.RecordKey)
	if err != nil {
		return "", NewCryptoError("encrypt", fmt.Sprintf("record %s: failed to encrypt data", r.UID), err)
	}
	return vaultcrypto.Base64URLEncode(ciphertext), nil
}

// addFileRef links an uploaded file's UID into the record's fileRef
// field, creating the field if the record has none.
func (r *Record) addFileRef(fileUID string) {
	for _, f := range r.Data.Fields {
		if f.Type == "fileRef" {
			f.Value = append(f.Value, fileUID)
			return
		}
	}
	r.Data.Fields = append(r.Data.Fields, &Field{
		Type:  "fileRef",
		Value: []interface{}{fileUID},
	})
}
