package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	tok, err := NewAccessToken(12, "host@example.com", "host12", true, "secret", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := Parse(tok, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Sub != 12 || claims.Email != "host@example.com" || !claims.IsHost {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParse_Rejects(t *testing.T) {
	valid, _ := NewAccessToken(1, "a@example.com", "a", false, "secret", time.Minute)
	expired, _ := NewAccessToken(1, "a@example.com", "a", false, "secret", -time.Minute)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Sub: 1})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other"},
		{"expired", expired, "secret"},
		{"alg none", unsigned, "secret"},
		{"garbage", "not.a.token", "secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.token, tt.secret); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
