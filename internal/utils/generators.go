package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// GenerateOrderID builds a human-readable order identifier from a base36
// millisecond timestamp plus a random suffix. Uniqueness is probabilistic,
// not guaranteed.
func GenerateOrderID() string {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return strings.ToUpper(fmt.Sprintf("GT-%s-%s", timestamp, RandomBase36(6)))
}

// RandomBase36 returns n random base36 characters.
func RandomBase36(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			// Fall back to a timestamp-derived digit if the RNG fails.
			b[i] = alphabet[time.Now().UnixNano()%36]
			continue
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}
