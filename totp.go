package vaultedge

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTOTPDigits = 6
	defaultTOTPPeriod = 30
)

// TOTPCode is one generated one-time code and its remaining validity.
type TOTPCode struct {
	Code     string
	TimeLeft int
	Period   int
}

// totpParams is a decoded otpauth:// URL.
type totpParams struct {
	secret    []byte
	algorithm func() hash.Hash
	digits    int
	period    int
}

// GetTOTPCode generates the current code for an otpauth:// URL, as stored
// in a record's oneTimeCode field.
func GetTOTPCode(otpauthURL string) (*TOTPCode, error) {
	return GetTOTPCodeAt(otpauthURL, time.Now().Unix())
}

// GetTOTPCodeAt is GetTOTPCode at an explicit unix time.
func GetTOTPCodeAt(otpauthURL string, unixTime int64) (*TOTPCode, error) {
	params, err := parseOTPAuthURL(otpauthURL)
	if err != nil {
		return nil, err
	}

	counter := uint64(unixTime / int64(params.period))
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(params.algorithm, params.secret)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// RFC 4226 dynamic truncation.
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	// 10^10 does not fit in uint32, so the modulus is 64-bit even though
	// the truncated value itself is 31-bit.
	mod := uint64(1)
	for i := 0; i < params.digits; i++ {
		mod *= 10
	}

	return &TOTPCode{
		Code:     fmt.Sprintf("%0*d", params.digits, uint64(code)%mod),
		TimeLeft: params.period - int(unixTime%int64(params.period)),
		Period:   params.period,
	}, nil
}

func parseOTPAuthURL(otpauthURL string) (*totpParams, error) {
	u, err := url.Parse(otpauthURL)
	if err != nil {
		return nil, NewValidationError("otpauth", "malformed URL: "+err.Error())
	}
	if u.Scheme != "otpauth" {
		return nil, NewValidationError("otpauth", fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	query := u.Query()

	secretParam := strings.ToUpper(strings.TrimSpace(query.Get("secret")))
	if secretParam == "" {
		return nil, NewValidationError("otpauth", "secret is required")
	}
	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(secretParam, "="))
	if err != nil {
		return nil, NewValidationError("otpauth", "secret is not valid base32")
	}

	params := &totpParams{
		secret:    secret,
		algorithm: sha1.New,
		digits:    defaultTOTPDigits,
		period:    defaultTOTPPeriod,
	}

	switch algo := strings.ToUpper(query.Get("algorithm")); algo {
	case "", "SHA1":
	case "SHA256":
		params.algorithm = sha256.New
	case "SHA512":
		params.algorithm = sha512.New
	default:
		return nil, NewValidationError("otpauth", fmt.Sprintf("unsupported algorithm %q", algo))
	}

	// Zero means "use the default" for both digits and period.
	if d := query.Get("digits"); d != "" {
		digits, err := strconv.Atoi(d)
		if err != nil || digits < 0 || (digits > 0 && (digits < 6 || digits > 10)) {
			return nil, NewValidationError("otpauth", fmt.Sprintf("digits must be 6..10, got %q", d))
		}
		if digits > 0 {
			params.digits = digits
		}
	}
	if p := query.Get("period"); p != "" {
		period, err := strconv.Atoi(p)
		if err != nil || period < 0 {
			return nil, NewValidationError("otpauth", fmt.Sprintf("period must be positive, got %q", p))
		}
		if period > 0 {
			params.period = period
		}
	}
	return params, nil
}
