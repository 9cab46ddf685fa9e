package rtcapi

import (
	"strings"
	"testing"
	"time"
)

func fixedSigner(t *testing.T, nonce string) *Signer {
	t.Helper()
	s, err := NewSigner("12345", "test-secret")
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	if nonce != "" {
		s.nonce = func() (string, error) { return nonce, nil }
	}
	return s
}

func TestNewSignerRequiresCredentials(t *testing.T) {
	if _, err := NewSigner("", "secret"); err == nil {
		t.Error("Expected error for missing app id")
	}
	if _, err := NewSigner("12345", ""); err == nil {
		t.Error("Expected error for missing secret")
	}
}

func TestSignDifferentNoncesDifferentSignatures(t *testing.T) {
	params := map[string]string{"Extra": "value"}

	a := fixedSigner(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := fixedSigner(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	va, err := a.Sign("RegisterAgent", params)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	vb, err := b.Sign("RegisterAgent", params)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if va.Get("Signature") == vb.Get("Signature") {
		t.Error("Expected different signatures for different nonces")
	}
}

func TestSignParameterValueChangesSignature(t *testing.T) {
	s := fixedSigner(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	va, err := s.Sign("CreateAgentInstance", map[string]string{"RoomId": "room_1"})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	vb, err := s.Sign("CreateAgentInstance", map[string]string{"RoomId": "room_2"})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if va.Get("Signature") == vb.Get("Signature") {
		t.Error("Expected signature to change with parameter value")
	}
}

func TestSignDeterministicForSameInputs(t *testing.T) {
	a := fixedSigner(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := fixedSigner(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	va, err := a.Sign("DeleteAgentInstance", nil)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	vb, err := b.Sign("DeleteAgentInstance", nil)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if va.Get("Signature") != vb.Get("Signature") {
		t.Error("Expected identical signatures for identical inputs")
	}
}

func TestSignIncludesAuthParameters(t *testing.T) {
	s := fixedSigner(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	v, err := s.Sign("RegisterAgent", nil)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	for _, key := range []string{"Action", "AppId", "SignatureNonce", "Timestamp", "SignatureVersion", "Signature"} {
		if v.Get(key) == "" {
			t.Errorf("Expected %s to be set", key)
		}
	}
	if got := v.Get("SignatureVersion"); got != "2.0" {
		t.Errorf("Expected SignatureVersion 2.0, got %s", got)
	}
	if got := v.Get("Timestamp"); got != "1700000000" {
		t.Errorf("Expected Timestamp 1700000000, got %s", got)
	}
}

func TestCanonicalStringKeyOrder(t *testing.T) {
	// Two maps with the same pairs built in different insertion order must
	// canonicalize identically, with keys in lexicographic order.
	a := map[string]string{"Zebra": "1", "Action": "X", "Mid": "2"}
	b := map[string]string{"Mid": "2", "Action": "X", "Zebra": "1"}

	ca := canonicalString(a)
	cb := canonicalString(b)

	if ca != cb {
		t.Errorf("Canonical strings differ: %q vs %q", ca, cb)
	}
	if ca != "Action=X&Mid=2&Zebra=1" {
		t.Errorf("Unexpected canonical string: %q", ca)
	}
}

func TestSignEncodedOrderMatchesCanonicalOrder(t *testing.T) {
	s := fixedSigner(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	v, err := s.Sign("RegisterAgent", map[string]string{"Zzz": "last", "Aaa": "first"})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	encoded := v.Encode()
	keys := make([]string, 0)
	for _, pair := range strings.Split(encoded, "&") {
		keys = append(keys, strings.SplitN(pair, "=", 2)[0])
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("Encoded keys out of order: %v", keys)
		}
	}
}
