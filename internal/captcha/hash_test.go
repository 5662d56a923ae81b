package captcha_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gt-shop/internal/captcha"
)

func TestHashAnswerMatchesLegacyValues(t *testing.T) {
	// Values produced by the original charCodeAt rolling hash; these pin
	// wire compatibility with challenge lists hashed elsewhere.
	cases := []struct {
		answer string
		want   string
	}{
		{"", "0"},
		{"a", "97"},
		{"abc123", "-1424436592"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, captcha.HashAnswer(tc.answer), "answer %q", tc.answer)
	}
}

func TestHashAnswerIsCaseSensitive(t *testing.T) {
	assert.NotEqual(t, captcha.HashAnswer("abc123"), captcha.HashAnswer("ABC123"))
}

func TestHashAnswerDeterministic(t *testing.T) {
	assert.Equal(t, captcha.HashAnswer("jawaban"), captcha.HashAnswer("jawaban"))
}
