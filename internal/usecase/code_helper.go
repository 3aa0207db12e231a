package usecase

import (
	"crypto/rand"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Order codes travel through a free-text bank-transfer memo, so they need a
// fixed lexical shape the intake scanner can find again: a constant prefix
// followed by base36 uppercase characters. Format: "WL" + millisecond timestamp
// in base36 + 4 random characters from an alphabet without ambiguous glyphs.
const orderCodePrefix = "WL"

var orderCodePattern = regexp.MustCompile(`(?i)\bWL[A-Z0-9]{8,16}\b`)

// generateOrderCode creates a new memo code. The timestamp part keeps codes
// practically unique; the store's UNIQUE constraint is the collision backstop.
func generateOrderCode() (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const randLen = 4

	buf := make([]byte, randLen)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	for i := 0; i < randLen; i++ {
		buf[i] = chars[int(buf[i])%len(chars)]
	}

	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return orderCodePrefix + ts + string(buf), nil
}

// extractOrderCode scans a transfer memo for the first thing shaped like an
// order code and normalizes it to uppercase. Banks mangle case and whitespace
// but leave the token itself intact.
func extractOrderCode(memo string) (string, bool) {
	m := orderCodePattern.FindString(memo)
	if m == "" {
		return "", false
	}
	return strings.ToUpper(m), true
}
