package vaultedge

// Wire payloads. Field names are part of the server contract and must
// match exactly; see the update/create/delete/upload shapes below.

type getPayload struct {
	ClientVersion    string   `json:"clientVersion"`
	ClientID         string   `json:"clientId"`
	PublicKey        string   `json:"publicKey,omitempty"`
	RequestedRecords []string `json:"requestedRecords,omitempty"`
}

type updatePayload struct {
	ClientVersion string `json:"clientVersion"`
	ClientID      string `json:"clientId"`
	RecordUID     string `json:"recordUid"`
	Data          string `json:"data"`
	Revision      int64  `json:"revision,omitempty"`
}

type deletePayload struct {
	ClientVersion string   `json:"clientVersion"`
	ClientID      string   `json:"clientId"`
	RecordUIDs    []string `json:"recordUids"`
}

type createPayload struct {
	ClientVersion string `json:"clientVersion"`
	ClientID      string `json:"clientId"`
	RecordUID     string `json:"recordUid"`
	RecordKey     string `json:"recordKey"`
	FolderUID     string `json:"folderUid"`
	FolderKey     string `json:"folderKey"`
	Data          string `json:"data"`
}

type fileUploadPayload struct {
	ClientVersion   string `json:"clientVersion"`
	ClientID        string `json:"clientId"`
	FileRecordUID   string `json:"fileRecordUid"`
	FileRecordKey   string `json:"fileRecordKey"`
	FileRecordData  string `json:"fileRecordData"`
	OwnerRecordUID  string `json:"ownerRecordUid"`
	OwnerRecordData string `json:"ownerRecordData"`
	LinkKey         string `json:"linkKey"`
	FileSize        int    `json:"fileSize"`
}

// Server response shapes.

type getSecretsResponse struct {
	EncryptedAppKey   string           `json:"encryptedAppKey,omitempty"`
	AppOwnerPublicKey string           `json:"appOwnerPublicKey,omitempty"`
	Records           []recordResponse `json:"records,omitempty"`
	Folders           []folderResponse `json:"folders,omitempty"`
	ExpiresOn         int64            `json:"expiresOn,omitempty"` // unix millis
	Warnings          []string         `json:"warnings,omitempty"`
}

type recordResponse struct {
	RecordUID      string         `json:"recordUid"`
	RecordKey      string         `json:"recordKey"`
	Data           string         `json:"data"`
	Revision       int64          `json:"revision"`
	IsEditable     bool           `json:"isEditable"`
	Files          []fileResponse `json:"files,omitempty"`
	InnerFolderUID string         `json:"innerFolderUid,omitempty"`
}

type folderResponse struct {
	FolderUID string           `json:"folderUid"`
	FolderKey string           `json:"folderKey"`
	Records   []recordResponse `json:"records,omitempty"`
}

type fileResponse struct {
	FileUID      string `json:"fileUid"`
	FileKey      string `json:"fileKey"`
	Data         string `json:"data"`
	URL          string `json:"url,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

type fileUploadResponse struct {
	URL               string `json:"url"`
	Parameters        string `json:"parameters"` // JSON object of form fields
	SuccessStatusCode int    `json:"successStatusCode"`
}
