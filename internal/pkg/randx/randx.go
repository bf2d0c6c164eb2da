/*
Package randx provides functions for generating cryptographically secure random identifiers.

It generates the short, human-typeable room codes and the UUID identifiers used for
chat messages, problem suggestions and transport sessions.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// RoomCodeChars is the room code alphabet. I, O, 0 and 1 are left out so codes
	// can be read aloud and typed without confusion.
	RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// RoomCodeLength is the fixed length of a room code.
	RoomCodeLength = 6
)

var roomCodeCharsLen = big.NewInt(int64(len(RoomCodeChars)))

// RoomCode generates a random room code using crypto/rand.
func RoomCode() (string, error) {
	result := make([]byte, RoomCodeLength)

	for i := range RoomCodeLength {
		num, err := rand.Int(rand.Reader, roomCodeCharsLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for room code: %w", err)
		}

		result[i] = RoomCodeChars[num.Int64()]
	}

	return string(result), nil
}

// NormalizeRoomCode trims and uppercases user input so lookups are case-insensitive.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidRoomCode reports whether code has the room code length and alphabet.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(RoomCodeChars, char) {
			return false
		}
	}

	return true
}

// MessageID returns an identifier for a chat message.
func MessageID() string {
	return "msg-" + uuid.NewString()
}

// SystemMessageID returns an identifier for a system-authored chat line.
func SystemMessageID() string {
	return "sys-" + uuid.NewString()
}

// SuggestionID returns an identifier for a problem suggestion.
func SuggestionID() string {
	return "sug-" + uuid.NewString()
}

// SessionID returns an identifier for one transport connection.
func SessionID() string {
	return uuid.NewString()
}
