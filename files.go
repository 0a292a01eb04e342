package vaultedge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vaultedge/go-sdk/vaultcrypto"
)

// FileUpload describes an attachment to push to the vault. Name is the
// stored filename, Title the display title; both default sensibly when
// empty.
type FileUpload struct {
	Name  string
	Title string
	Type  string
	Data  []byte
}

// UploadFile encrypts and uploads an attachment, links it into the owner
// record's fileRef field, and returns the new file UID.
//
// The flow is two-phase: the vault stores the encrypted file record and
// hands back a one-time signed URL, then the ciphertext is posted there
// directly. The plaintext never leaves the process.
func (sm *SecretsManager) UploadFile(ctx context.Context, owner *Record, upload *FileUpload) (uid string, err error) {
	if owner == nil {
		return "", ErrRecordNil
	}
	if owner.UID == "" {
		return "", ErrRecordUIDMissing
	}
	if upload == nil || len(upload.Data) == 0 {
		return "", ErrFileDataMissing
	}

	ctx, span := startSDKSpan(ctx, "SDK.Files.UploadFile",
		attribute.String("record_uid", owner.UID),
		attribute.Int("file_size", len(upload.Data)),
	)
	start := time.Now()
	defer func() {
		recordSDKRequestMetrics(ctx, "files.upload", time.Since(start), err)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	clientID, err := sm.clientID()
	if err != nil {
		return "", err
	}
	appKey, err := sm.appKey()
	if err != nil {
		return "", err
	}

	name := upload.Name
	if name == "" {
		name = "file"
	}
	title := upload.Title
	if title == "" {
		title = name
	}

	fileKey, err := vaultcrypto.GenerateKey()
	if err != nil {
		return "", NewCryptoError("encrypt", "failed to generate file key", err)
	}
	fileUID := vaultcrypto.GenerateUID()

	meta, err := json.Marshal(&FileData{
		Name:         name,
		Title:        title,
		Type:         upload.Type,
		Size:         int64(len(upload.Data)),
		LastModified: time.Now().UnixMilli(),
	})
	if err != nil {
		return "", NewValidationError("file", fmt.Sprintf("metadata is not serializable: %v", err))
	}
	encryptedMeta, err := vaultcrypto.Encrypt(meta, fileKey)
	if err != nil {
		return "", NewCryptoError("encrypt", "failed to encrypt file metadata", err)
	}
	encryptedFile, err := vaultcrypto.Encrypt(upload.Data, fileKey)
	if err != nil {
		return "", NewCryptoError("encrypt", "failed to encrypt file content", err)
	}
	wrappedForApp, err := vaultcrypto.Encrypt(fileKey, appKey)
	if err != nil {
		return "", NewCryptoError("encrypt", "failed to wrap file key", err)
	}
	wrappedForRecord, err := vaultcrypto.Encrypt(fileKey, owner.RecordKey)
	if err != nil {
		return "", NewCryptoError("encrypt", "failed to wrap file link key", err)
	}

	owner.addFileRef(fileUID)
	ownerData, err := owner.encryptData()
	if err != nil {
		return "", err
	}

	body, err := sm.postQuery(ctx, endpointAddFile, &fileUploadPayload{
		ClientVersion:   ClientVersion,
		ClientID:        clientID,
		FileRecordUID:   fileUID,
		FileRecordKey:   vaultcrypto.Base64URLEncode(wrappedForApp),
		FileRecordData:  vaultcrypto.Base64URLEncode(encryptedMeta),
		OwnerRecordUID:  owner.UID,
		OwnerRecordData: ownerData,
		LinkKey:         vaultcrypto.Base64URLEncode(wrappedForRecord),
		FileSize:        len(encryptedFile),
	})
	if err != nil {
		return "", err
	}

	var resp fileUploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", NewValidationError("response", fmt.Sprintf("upload response is not valid JSON: %v", err))
	}
	if err := sm.uploadEncryptedFile(ctx, &resp, encryptedFile); err != nil {
		return "", err
	}

	sm.purgeCache()
	return fileUID, nil
}

// uploadEncryptedFile posts the ciphertext to the signed storage URL as a
// multipart form, with the server-dictated form fields first and the file
// part last.
func (sm *SecretsManager) uploadEncryptedFile(ctx context.Context, resp *fileUploadResponse, encryptedFile []byte) error {
	var params map[string]string
	if resp.Parameters != "" {
		if err := json.Unmarshal([]byte(resp.Parameters), &params); err != nil {
			return NewValidationError("response", fmt.Sprintf("upload parameters are not valid JSON: %v", err))
		}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range params {
		if err := writer.WriteField(k, v); err != nil {
			return NewNetworkError("failed to build upload form", err)
		}
	}
	part, err := writer.CreateFormFile("file", "file")
	if err != nil {
		return NewNetworkError("failed to build upload form", err)
	}
	if _, err := part.Write(encryptedFile); err != nil {
		return NewNetworkError("failed to build upload form", err)
	}
	if err := writer.Close(); err != nil {
		return NewNetworkError("failed to build upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resp.URL, &buf)
	if err != nil {
		return NewNetworkError("failed to build upload request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	httpResp, err := sm.httpClient().Do(req)
	if err != nil {
		return NewNetworkError("file upload failed", err)
	}
	defer httpResp.Body.Close()
	io.Copy(io.Discard, httpResp.Body)

	wantStatus := resp.SuccessStatusCode
	if wantStatus == 0 {
		wantStatus = http.StatusCreated
	}
	if httpResp.StatusCode != wantStatus {
		return &ServerError{
			StatusCode: httpResp.StatusCode,
			Message:    fmt.Sprintf("file storage returned status %d, expected %d", httpResp.StatusCode, wantStatus),
		}
	}
	return nil
}

// DownloadFile fetches and decrypts the attachment's content.
func (sm *SecretsManager) DownloadFile(ctx context.Context, file *File) ([]byte, error) {
	if file == nil || file.URL == "" {
		return nil, ErrFileDataMissing
	}
	return sm.downloadAndDecrypt(ctx, file.URL, file.FileKey, "files.download")
}

// DownloadThumbnail fetches and decrypts the attachment's thumbnail, if
// the vault generated one.
func (sm *SecretsManager) DownloadThumbnail(ctx context.Context, file *File) ([]byte, error) {
	if file == nil || file.ThumbnailURL == "" {
		return nil, ErrFileDataMissing
	}
	return sm.downloadAndDecrypt(ctx, file.ThumbnailURL, file.FileKey, "files.download_thumbnail")
}

func (sm *SecretsManager) downloadAndDecrypt(ctx context.Context, url string, fileKey []byte, operation string) (plaintext []byte, err error) {
	ctx, span := startSDKSpan(ctx, "SDK.Files.Download")
	start := time.Now()
	defer func() {
		recordSDKRequestMetrics(ctx, operation, time.Since(start), err)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewNetworkError("failed to build download request", err)
	}
	resp, err := sm.httpClient().Do(req)
	if err != nil {
		return nil, NewNetworkError("file download failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("file download failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("file storage returned status %d", resp.StatusCode),
		}
	}

	plaintext, err = vaultcrypto.Decrypt(body, fileKey)
	if err != nil {
		return nil, NewCryptoError("decrypt", "failed to decrypt file content", err)
	}
	return plaintext, nil
}

// httpClient returns the client for direct storage traffic, honoring the
// same certificate verification setting as the main transport.
func (sm *SecretsManager) httpClient() *http.Client {
	client := &http.Client{Timeout: DefaultTransportTimeout}
	if !sm.verifyCertificate {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}
