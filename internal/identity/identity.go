// Package identity generates and validates the identifiers that tie a
// session together: room ids, local user ids, conversation ids and the
// process-wide agent template id.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

// identifierPattern bounds what the backend accepts as a room or user id.
// Clients mint room_/user_ prefixed hex tokens, but any reasonable token is
// allowed so alternate clients can bring their own ids.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// NewRoomID generates a fresh random room identifier.
func NewRoomID() (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate room id: %w", err)
	}
	return "room_" + token, nil
}

// NewUserID generates a fresh random local user identifier.
func NewUserID() (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}
	return "user_" + token, nil
}

// NewConversationID generates a conversation identifier. The timestamp
// prefix keeps ids roughly sortable by creation time.
func NewConversationID() (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate conversation id: %w", err)
	}
	return fmt.Sprintf("conv_%d_%s", time.Now().UnixMilli(), token), nil
}

// NewAgentID derives the agent template identifier registered with the
// vendor. One is minted per process lifetime.
func NewAgentID() string {
	return fmt.Sprintf("agent_%d", time.Now().Unix())
}

// ValidIdentifier reports whether id is acceptable as a room, user or
// stream identifier on the backend surface.
func ValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}

func randomToken() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
