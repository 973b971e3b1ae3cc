package lobby

import (
	crand "crypto/rand"
	"math/big"
	"math/rand/v2"
	"strings"
)

// CodeChars is the join-code alphabet. 0/O and 1/I are left out so codes can be
// read aloud.
const CodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of characters in a join code.
const CodeLength = 6

// GenerateCode returns a random join code.
func GenerateCode() string {
	code := make([]byte, CodeLength)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(CodeChars))))
		if err != nil {
			// fall back to math/rand if crypto fails
			code[i] = CodeChars[rand.IntN(len(CodeChars))]
			continue
		}
		code[i] = CodeChars[n.Int64()]
	}
	return string(code)
}

// NormalizeCode upper-cases and trims a user-typed code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
