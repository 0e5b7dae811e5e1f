package token

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Size is the byte length of a verification token.
const Size = 32

// Token is the Keccak-256 digest of the UTF-8 bytes of some user input.
type Token [Size]byte

// Encode maps text to its verification token. The empty string is valid.
func Encode(text string) Token {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(text))
	var t Token
	copy(t[:], hasher.Sum(nil))
	return t
}

func (t Token) Bytes() []byte {
	return t[:]
}

// Hex returns the 0x-prefixed lowercase hex form.
func (t Token) Hex() string {
	return "0x" + hex.EncodeToString(t[:])
}

func (t Token) String() string {
	return t.Hex()
}

// Parse reads a token back from its hex form, with or without the 0x prefix.
func Parse(s string) (Token, error) {
	var t Token
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return t, fmt.Errorf("invalid token %q: %w", s, err)
	}
	if len(raw) != Size {
		return t, fmt.Errorf("invalid token length %d, expected %d", len(raw), Size)
	}
	copy(t[:], raw)
	return t, nil
}
