package vaultedge

import (
	"crypto/ecdh"
	"crypto/rand"
	"testing"

	"github.com/vaultedge/go-sdk/vaultcrypto"
)

func TestDefaultServerKeys(t *testing.T) {
	keys, err := DefaultServerKeys()
	if err != nil {
		t.Fatalf("DefaultServerKeys() error: %v", err)
	}

	want := []string{"10", "11", "12", "13", "7", "8", "9"}
	got := keys.IDs()
	if len(got) != len(want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, ok := keys.Get(DefaultServerPublicKeyID); !ok {
		t.Errorf("default key id %q missing from the pinned table", DefaultServerPublicKeyID)
	}
	if _, ok := keys.Get("99"); ok {
		t.Error("Get(99) = true, want false")
	}
}

func TestNewServerKeySetRejectsMalformedKeys(t *testing.T) {
	valid, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	tests := []struct {
		name    string
		encoded map[string]string
	}{
		{"not base64", map[string]string{"1": "!!!"}},
		{"not a point", map[string]string{"1": vaultcrypto.Base64URLEncode([]byte{0x04, 0x01, 0x02})}},
		{
			"one bad entry poisons the set",
			map[string]string{
				"1": vaultcrypto.Base64URLEncode(valid.PublicKey().Bytes()),
				"2": "bm90IGEga2V5",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServerKeySet(tt.encoded); err == nil {
				t.Error("NewServerKeySet() expected error, got nil")
			}
		})
	}
}
