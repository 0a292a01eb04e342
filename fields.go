package vaultedge

import (
	"encoding/json"
)

// Field is one typed value slot in a record. The vault defines dozens of
// field types; rather than a type hierarchy, Field keeps the type string,
// the common metadata, and the raw JSON of everything else, so unknown
// types introduced by newer servers survive a decrypt/re-encrypt round
// trip unchanged.
type Field struct {
	Type          string
	Label         string
	Required      bool
	PrivacyScreen bool
	Value         []interface{}

	// raw holds every key of the original JSON object, knowns included,
	// so MarshalJSON can preserve attributes this SDK does not model.
	raw map[string]json.RawMessage
}

func (f *Field) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.raw = raw

	unpack := func(key string, dst interface{}) error {
		if v, ok := raw[key]; ok {
			return json.Unmarshal(v, dst)
		}
		return nil
	}
	if err := unpack("type", &f.Type); err != nil {
		return err
	}
	if err := unpack("label", &f.Label); err != nil {
		return err
	}
	if err := unpack("required", &f.Required); err != nil {
		return err
	}
	if err := unpack("privacyScreen", &f.PrivacyScreen); err != nil {
		return err
	}
	return unpack("value", &f.Value)
}

func (f *Field) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(f.raw)+5)
	for k, v := range f.raw {
		out[k] = v
	}
	pack := func(key string, v interface{}, omitEmpty bool) error {
		switch t := v.(type) {
		case string:
			if omitEmpty && t == "" {
				delete(out, key)
				return nil
			}
		case bool:
			if omitEmpty && !t {
				delete(out, key)
				return nil
			}
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = raw
		return nil
	}
	if err := pack("type", f.Type, false); err != nil {
		return nil, err
	}
	if err := pack("label", f.Label, true); err != nil {
		return nil, err
	}
	if err := pack("required", f.Required, true); err != nil {
		return nil, err
	}
	if err := pack("privacyScreen", f.PrivacyScreen, true); err != nil {
		return nil, err
	}
	if err := pack("value", f.Value, false); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// TypedValue is the decoded form of a field's first value element. The
// concrete type depends on Field.Type; unrecognized types decode to
// UnknownValue.
type TypedValue interface {
	fieldType() string
}

// Typed field variants. Scalar-valued types (login, password, url, ...)
// decode to their Go scalar; structured types get a struct.

type LoginValue string
type PasswordValue string
type URLValue string
type TextValue string
type MultilineValue string
type SecretValue string
type OneTimeCodeValue string
type DateValue int64 // unix millis

type HostValue struct {
	Hostname string `json:"hostName"`
	Port     string `json:"port"`
}

type PhoneValue struct {
	Region string `json:"region,omitempty"`
	Number string `json:"number"`
	Ext    string `json:"ext,omitempty"`
	Type   string `json:"type,omitempty"`
}

type NameValue struct {
	First  string `json:"first"`
	Middle string `json:"middle,omitempty"`
	Last   string `json:"last"`
}

type AddressValue struct {
	Street1 string `json:"street1"`
	Street2 string `json:"street2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	Zip     string `json:"zip,omitempty"`
}

type PaymentCardValue struct {
	CardNumber         string `json:"cardNumber"`
	CardExpirationDate string `json:"cardExpirationDate"`
	CardSecurityCode   string `json:"cardSecurityCode"`
}

type BankAccountValue struct {
	AccountType   string `json:"accountType"`
	RoutingNumber string `json:"routingNumber"`
	AccountNumber string `json:"accountNumber"`
	OtherType     string `json:"otherType,omitempty"`
}

type SecurityQuestionValue struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type KeyPairValue struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

// UnknownValue preserves the raw first value element of a field type this
// SDK does not model.
type UnknownValue struct {
	Type string
	Raw  json.RawMessage
}

func (LoginValue) fieldType() string            { return "login" }
func (PasswordValue) fieldType() string         { return "password" }
func (URLValue) fieldType() string              { return "url" }
func (TextValue) fieldType() string             { return "text" }
func (MultilineValue) fieldType() string        { return "multiline" }
func (SecretValue) fieldType() string           { return "secret" }
func (OneTimeCodeValue) fieldType() string      { return "oneTimeCode" }
func (DateValue) fieldType() string             { return "date" }
func (HostValue) fieldType() string             { return "host" }
func (PhoneValue) fieldType() string            { return "phone" }
func (NameValue) fieldType() string             { return "name" }
func (AddressValue) fieldType() string          { return "address" }
func (PaymentCardValue) fieldType() string      { return "paymentCard" }
func (BankAccountValue) fieldType() string      { return "bankAccount" }
func (SecurityQuestionValue) fieldType() string { return "securityQuestion" }
func (KeyPairValue) fieldType() string          { return "keyPair" }
func (u UnknownValue) fieldType() string        { return u.Type }

// TypedValue decodes the field's first value element according to its
// type string. Fields with no value return (nil, nil).
func (f *Field) TypedValue() (TypedValue, error) {
	if len(f.Value) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(f.Value[0])
	if err != nil {
		return nil, NewValidationError("field", "value is not serializable: "+err.Error())
	}

	switch f.Type {
	case "login":
		return decodeTyped[LoginValue](raw, f.Type)
	case "password":
		return decodeTyped[PasswordValue](raw, f.Type)
	case "url":
		return decodeTyped[URLValue](raw, f.Type)
	case "text":
		return decodeTyped[TextValue](raw, f.Type)
	case "multiline":
		return decodeTyped[MultilineValue](raw, f.Type)
	case "secret":
		return decodeTyped[SecretValue](raw, f.Type)
	case "oneTimeCode", "otp":
		return decodeTyped[OneTimeCodeValue](raw, f.Type)
	case "date":
		return decodeTyped[DateValue](raw, f.Type)
	case "host":
		return decodeTyped[HostValue](raw, f.Type)
	case "phone", "phones":
		return decodeTyped[PhoneValue](raw, f.Type)
	case "name":
		return decodeTyped[NameValue](raw, f.Type)
	case "address":
		return decodeTyped[AddressValue](raw, f.Type)
	case "paymentCard":
		return decodeTyped[PaymentCardValue](raw, f.Type)
	case "bankAccount":
		return decodeTyped[BankAccountValue](raw, f.Type)
	case "securityQuestion":
		return decodeTyped[SecurityQuestionValue](raw, f.Type)
	case "keyPair":
		return decodeTyped[KeyPairValue](raw, f.Type)
	default:
		return UnknownValue{Type: f.Type, Raw: raw}, nil
	}
}

func decodeTyped[T TypedValue](raw json.RawMessage, fieldType string) (TypedValue, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, NewValidationError("field", "malformed "+fieldType+" value: "+err.Error())
	}
	return v, nil
}
