// Package rtcapi implements the signed-request protocol and agent
// lifecycle operations of the RTC vendor's control API.
package rtcapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// signatureVersion is fixed by the vendor protocol.
const signatureVersion = "2.0"

// Signer builds authenticated query parameters for vendor API calls.
// Signing cannot fail at call time; a missing secret is rejected when the
// Signer is constructed.
type Signer struct {
	appID  string
	secret string

	// Overridable for tests.
	now   func() time.Time
	nonce func() (string, error)
}

// NewSigner creates a Signer for the given app credentials.
func NewSigner(appID, secret string) (*Signer, error) {
	if appID == "" || secret == "" {
		return nil, fmt.Errorf("signer requires app id and server secret")
	}
	return &Signer{
		appID:  appID,
		secret: secret,
		now:    time.Now,
		nonce:  randomNonce,
	}, nil
}

// Sign merges the auth parameters with params, signs the canonical string
// and returns the full parameter set including the Signature. The returned
// values serialize in the same lexicographic key order used for signing
// (url.Values.Encode sorts by key), which the vendor requires.
func (s *Signer) Sign(action string, params map[string]string) (url.Values, error) {
	nonce, err := s.nonce()
	if err != nil {
		return nil, fmt.Errorf("generate signature nonce: %w", err)
	}

	merged := map[string]string{
		"Action":           action,
		"AppId":            s.appID,
		"SignatureNonce":   nonce,
		"Timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"SignatureVersion": signatureVersion,
	}
	for k, v := range params {
		merged[k] = v
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(canonicalString(merged)))
	merged["Signature"] = hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	for k, v := range merged {
		values.Set(k, v)
	}
	return values, nil
}

// canonicalString joins the parameters as key=value pairs in lexicographic
// key order. Values go in raw, not URL-encoded; encoding differences
// between signing and transmission would invalidate the signature.
func canonicalString(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
