package vaultedge

import "time"

// ClientVersion identifies this SDK build to the server. It is included
// in every request payload.
const ClientVersion = "gv16.4.0"

// API paths
const (
	apiBasePath = "/api/rest/sm/v1/"

	endpointGetSecret    = "get_secret"
	endpointUpdateSecret = "update_secret"
	endpointCreateSecret = "create_secret"
	endpointDeleteSecret = "delete_secret"
	endpointAddFile      = "add_file"
)

// Default values
const (
	// DefaultServerPublicKeyID is the pinned key used when the
	// configuration carries no serverPublicKeyId entry.
	DefaultServerPublicKeyID = "10"

	DefaultTransportTimeout = 30 * time.Second

	// DefaultPasswordLength is used when GeneratePassword is called with
	// no length and no exact class counts.
	DefaultPasswordLength = 64
)

// clientIDTag keys the HMAC that derives the client identifier from the
// binding key. Changing it invalidates every existing binding.
const clientIDTag = "VAULTEDGE_SDK_CLIENT_ID"

// Region prefixes accepted in one-time binding tokens ("EU:...").
var regionHosts = map[string]string{
	"US":  "vault.vaultedge.com",
	"EU":  "vault.vaultedge.eu",
	"AU":  "vault.vaultedge.com.au",
	"CA":  "vault.vaultedge.ca",
	"JP":  "vault.vaultedge.jp",
	"GOV": "vault.vaultedge-gov.us",
}

// Pinned server public keys: base64url-encoded uncompressed P-256 points,
// keyed by the numeric identifier the server quotes in key-rotation
// errors. The table is parsed once into an immutable ServerKeySet.
var defaultServerPublicKeys = map[string]string{
	"7":  "BHWSzXGVaHKnt0vOyw3v40WT4KFnGj0f5ycWc5gq3KV32cZWh8x09lMc3-iUaHGoR9vXpj54msRT-L8NuVsLjMQ",
	"8":  "BHy5TA8WwGlPqieA3fdRKhOGvKZECKWYvovxAkkGWrujkO9cCgfsl-j2Fa-BvSHZq4AmO0VA_SayyUO3QPZ9EO8",
	"9":  "BCXmWCj_YpzhD0COu6xZ_5mpTBNE-bQC3-NCXWCmbFgmRPnL_YNe4qP_ADrXGICcoA-INeENGzZ5v3SMk2yW1nk",
	"10": "BGiUn5nKQViX9a7wtUqxUjbVBMD08CpZ4ZqjiiuOl3-fa_B65i_uUzvxCVGn8p2gKcwAHMLYFtN15cDW51_FHiw",
	"11": "BNQ5yoymobHydkUQtQybKSL5E_8huqiTOteHL65UjbGU70XMntFC5fcSfWr4gQEbRMkEjOLatZA6CTXMKnBEUzs",
	"12": "BFO0NuLSYPk7vZI2FoTjCI8vPH8Re5CU-bIr0kVkHMaL13vNyjbq59T5fOAkM-aNLJNMv3kt9HMoEBKgrqrH0-g",
	"13": "BEqaSHUG0xtlf16HGJou71OKqPiCwLYp8OW769doFAzJo5mz19D3d9ZysmtLFiklSGpTENQs3TJyQf3Ek445r-E",
}

// HTTP
const (
	contentTypeOctetStream = "application/octet-stream"

	headerTransmissionKey = "TransmissionKey"
	headerPublicKeyID     = "PublicKeyId"
	headerAuthorization   = "Authorization"
	authSignaturePrefix   = "Signature "
)

// Notation
const (
	// NotationPrefix is the optional scheme prefix accepted on notation
	// expressions.
	NotationPrefix = "keeper://"

	notationSectionField       = "field"
	notationSectionCustomField = "custom_field"
	notationSectionFile        = "file"
)
