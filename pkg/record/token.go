package record

import (
	"strings"

	"github.com/google/uuid"
)

// TokenLength is the length of generated tokens. Tokens are stored in a
// 32-character column; callers supplying their own tokens must fit it.
const TokenLength = 32

// maxTokenAttempts bounds the collision probe in Store.Save. With 128 bits of
// randomness a second attempt is already extraordinary.
const maxTokenAttempts = 5

// NewToken returns a fresh 32-character lowercase hex token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
