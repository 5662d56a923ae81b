package captcha

import (
	"strconv"
	"unicode/utf16"
)

// HashAnswer computes the legacy rolling hash over the answer's UTF-16 code
// units with 32-bit wraparound, rendered as a decimal string. It matches the
// hashes already stored in the challenge list, which is why it stays: high
// collision rate, trivially reversible, and explicitly not a cryptographic
// commitment. In production, use better hashing.
func HashAnswer(answer string) string {
	var hash int32
	for _, unit := range utf16.Encode([]rune(answer)) {
		hash = (hash << 5) - hash + int32(unit)
	}
	return strconv.FormatInt(int64(hash), 10)
}
