package otp

import (
	"crypto/rand"
	"math/big"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const CodeLength = 6

// GenerateCode returns a numeric code of the given length using
// crypto/rand. Leading zeros are allowed.
func GenerateCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	code := n.String()
	for len(code) < digits {
		code = "0" + code
	}
	return code, nil
}

// FormatIntent renders an intent constant for human-facing copy,
// e.g. "PASSWORD_RESET" -> "Password Reset".
func FormatIntent(intent string) string {
	parts := strings.Split(strings.ToLower(intent), "_")
	caser := cases.Title(language.English)
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, " ")
}
