package utils

import (
	"strings"
	"testing"
)

const testSealerKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestTokenSealerRoundTrip(t *testing.T) {
	sealer, err := NewTokenSealer(testSealerKey)
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	sealed, err := sealer.Seal("EAAB-facebook-access-token")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if strings.Contains(sealed, "facebook") {
		t.Fatalf("sealed token leaks plaintext: %q", sealed)
	}
	plain, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if plain != "EAAB-facebook-access-token" {
		t.Fatalf("round trip: got=%q", plain)
	}
}

func TestTokenSealerSealsAreNonDeterministic(t *testing.T) {
	sealer, err := NewTokenSealer(testSealerKey)
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	a, _ := sealer.Seal("same token")
	b, _ := sealer.Seal("same token")
	if a == b {
		t.Fatalf("two seals of the same token must differ")
	}
}

func TestTokenSealerRejectsTamperedToken(t *testing.T) {
	sealer, err := NewTokenSealer(testSealerKey)
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	sealed, _ := sealer.Seal("token")
	tampered := sealed[:len(sealed)-4] + "AAA="
	if _, err := sealer.Open(tampered); err == nil {
		t.Fatalf("expected error for tampered token")
	}
}

func TestTokenSealerRejectsBadKeys(t *testing.T) {
	if _, err := NewTokenSealer("not-hex"); err == nil {
		t.Fatalf("expected error for non-hex key")
	}
	if _, err := NewTokenSealer("abcd"); err == nil {
		t.Fatalf("expected error for short key")
	}
}
