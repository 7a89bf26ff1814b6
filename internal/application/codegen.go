package application

import (
	"crypto/rand"
	"fmt"

	"gatewarden/internal/models"
)

// codeAlphabet avoids 0/O/1/I lookalikes and has 32 entries, so mapping
// random bytes with a modulo introduces no bias.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode produces a linking code of the given length. Codes are bearer
// tokens, so the bytes come from crypto/rand.
func GenerateCode(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("code length %d: %w", length, models.ErrInvalidArgument)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// Inputs on this list are rejected before any registry lookup. They circulate
// as joke codes and would otherwise waste a scan per attempt.
var blockedCodes = map[string]struct{}{
	"NEVERGONNAGIVE": {},
	"YOUUPNEVER":     {},
	"GONNALETYOU":    {},
	"DOWNNEVERGONNA": {},
	"RUNAROUNDAND":   {},
	"DESERTYOUNEVER": {},
	"GONNAMAKEYOU":   {},
	"CRYNEVERGONNA":  {},
	"SAYGOODBYENEVER": {},
	"TELLALIE":       {},
	"ANDHURTYOU":     {},
}

func isBlockedCode(code string) bool {
	_, ok := blockedCodes[code]
	return ok
}
