package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	s := Session{ID: "sess-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second)}

	raw, err := codec.Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != s.ID || got.UserID != s.UserID || !got.ExpiresAt.Equal(s.ExpiresAt) {
		t.Errorf("Decode = %+v, want %+v", got, s)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	s := Session{ID: "sess-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	raw, _ := NewTokenCodec("secret-a").Encode(s)

	if _, err := NewTokenCodec("secret-b").Decode(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Decode with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	s := Session{ID: "sess-1", UserID: "user-1", ExpiresAt: time.Now().Add(-time.Minute)}
	raw, _ := codec.Encode(s)

	if _, err := codec.Decode(raw); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Decode expired = %v, want ErrInvalidToken", err)
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	codec := NewTokenCodec("test-secret")
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := codec.Decode(raw); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Decode(%q) = %v, want ErrInvalidToken", raw, err)
		}
	}
}
