package application

import (
	"errors"
	"strings"
	"testing"

	"gatewarden/internal/models"
)

func TestGenerateCode(t *testing.T) {
	t.Run("rejects non-positive length", func(t *testing.T) {
		for _, length := range []int{0, -1} {
			if _, err := GenerateCode(length); !errors.Is(err, models.ErrInvalidArgument) {
				t.Errorf("GenerateCode(%d) error = %v, want ErrInvalidArgument", length, err)
			}
		}
	})

	t.Run("uses only the safe alphabet", func(t *testing.T) {
		code, err := GenerateCode(64)
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if len(code) != 64 {
			t.Fatalf("code length = %d, want 64", len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Errorf("code contains %q, not in alphabet", r)
			}
		}
	})

	t.Run("codes differ", func(t *testing.T) {
		a, err := GenerateCode(16)
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		b, err := GenerateCode(16)
		if err != nil {
			t.Fatalf("GenerateCode: %v", err)
		}
		if a == b {
			t.Errorf("two generated codes are identical: %s", a)
		}
	})
}

func TestBlockedCodes(t *testing.T) {
	if !isBlockedCode("NEVERGONNAGIVE") {
		t.Error("NEVERGONNAGIVE should be blocked")
	}
	if isBlockedCode("AB23CD45") {
		t.Error("AB23CD45 should not be blocked")
	}
}
