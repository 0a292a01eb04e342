package vaultedge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vaultedge/go-sdk/vaultcrypto"
)

// TransportResponse is the raw result of one transport exchange: the HTTP
// status and the (still encrypted) body bytes.
type TransportResponse struct {
	StatusCode int
	Data       []byte
}

// TransportFunc sends one signed envelope to the vault and returns the raw
// response. A returned error means the request never completed (no
// connectivity, DNS failure, timeout); a response with a non-success
// status must be returned as a TransportResponse, not an error.
//
// The core performs no retries, logging or caching at this layer; wrap a
// TransportFunc with decorators for those concerns. Cancellation is the
// transport's own responsibility via ctx.
type TransportFunc func(ctx context.Context, url string, transmissionKey *TransmissionKey, envelope *Envelope, verifyCertificate bool) (*TransportResponse, error)

// TransportDecorator wraps a TransportFunc with an orthogonal concern
// (logging, caching, rate limiting) without touching the crypto core.
type TransportDecorator func(TransportFunc) TransportFunc

// ChainTransport applies decorators to base so that the first decorator
// listed is the outermost wrapper.
func ChainTransport(base TransportFunc, decorators ...TransportDecorator) TransportFunc {
	wrapped := base
	for i := len(decorators) - 1; i >= 0; i-- {
		wrapped = decorators[i](wrapped)
	}
	return wrapped
}

// DefaultTransport returns the standard HTTP transport. The encrypted
// transmission key and the envelope signature travel in headers; the body
// is the encrypted payload.
func DefaultTransport() TransportFunc {
	return makeHTTPTransport(&http.Client{Timeout: DefaultTransportTimeout})
}

func makeHTTPTransport(client *http.Client) TransportFunc {
	insecureClient := &http.Client{
		Timeout: client.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	return func(ctx context.Context, url string, transmissionKey *TransmissionKey, envelope *Envelope, verifyCertificate bool) (*TransportResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(envelope.EncryptedPayload))
		if err != nil {
			return nil, NewNetworkError("failed to create request", err)
		}
		req.Header.Set("Content-Type", contentTypeOctetStream)
		req.Header.Set(headerPublicKeyID, transmissionKey.KeyID)
		req.Header.Set(headerTransmissionKey, vaultcrypto.Base64URLEncode(transmissionKey.EncryptedKey))
		req.Header.Set(headerAuthorization, authSignaturePrefix+vaultcrypto.Base64URLEncode(envelope.Signature))

		httpClient := client
		if !verifyCertificate {
			httpClient = insecureClient
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, NewNetworkError("failed to send request", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, NewNetworkError("failed to read response", err)
		}
		return &TransportResponse{StatusCode: resp.StatusCode, Data: data}, nil
	}
}

// parseServerError interprets a non-success transport response as a
// structured server error. Bodies that do not parse still produce a
// ServerError carrying the raw text.
func parseServerError(resp *TransportResponse) *ServerError {
	se := &ServerError{StatusCode: resp.StatusCode, Message: string(resp.Data)}

	var body struct {
		Error      string `json:"error"`
		Message    string `json:"message"`
		ResultCode string `json:"result_code"`
		KeyID      any    `json:"key_id"`
	}
	if err := json.Unmarshal(resp.Data, &body); err != nil {
		return se
	}

	se.Code = body.Error
	if se.Code == "" {
		se.Code = body.ResultCode
	}
	if body.Message != "" {
		se.Message = body.Message
	}
	switch v := body.KeyID.(type) {
	case float64:
		se.KeyID = fmt.Sprintf("%d", int64(v))
	case string:
		se.KeyID = v
	}
	return se
}
