package sealer

import (
	"errors"
	"testing"
)

// 32 bytes: "0123456789abcdef0123456789abcdef"
const testKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

func TestSealOpen(t *testing.T) {
	s, err := New(testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sealed, err := s.Seal("eyJhbGciOiJIUzI1NiJ9.payload.sig")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if sealed == "eyJhbGciOiJIUzI1NiJ9.payload.sig" {
		t.Fatal("sealed value equals plaintext")
	}

	again, _ := s.Seal("eyJhbGciOiJIUzI1NiJ9.payload.sig")
	if again == sealed {
		t.Error("expected a fresh nonce per seal")
	}

	opened, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if opened != "eyJhbGciOiJIUzI1NiJ9.payload.sig" {
		t.Errorf("unexpected plaintext %q", opened)
	}
}

func TestOpen_Invalid(t *testing.T) {
	s, _ := New(testKey)
	sealed, _ := s.Seal("token")

	tampered := []byte(sealed)
	tampered[len(tampered)-1] ^= 'A' ^ 'B'

	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "***"},
		{"too short", "AAAA"},
		{"tampered", string(tampered)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Open(tt.input); !errors.Is(err, ErrInvalidSealedValue) {
				t.Errorf("expected ErrInvalidSealedValue, got %v", err)
			}
		})
	}
}

func TestNew_BadKey(t *testing.T) {
	for _, key := range []string{"not base64!", "c2hvcnQ="} {
		if _, err := New(key); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}
