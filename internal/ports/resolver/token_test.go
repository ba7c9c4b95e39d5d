package resolver

import (
	"fmt"
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
)

func TestSignTokenClaims(t *testing.T) {
	tokenString, err := SignToken("test-secret", "kickoff", "user123", time.Minute)
	if err != nil {
		t.Fatalf("sign token error: %v", err)
	}

	claims := parseClaims(t, tokenString, "test-secret")
	if got := stringClaim(t, claims, "iss"); got != "kickoff" {
		t.Fatalf("iss = %s, want kickoff", got)
	}
	if got := stringClaim(t, claims, "sub"); got != "user123" {
		t.Fatalf("sub = %s, want user123", got)
	}
	if _, err := uuid.Parse(stringClaim(t, claims, "jti")); err != nil {
		t.Fatalf("jti is not a uuid: %v", err)
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		t.Fatal("exp claim is not numeric")
	}
	if remaining := time.Until(time.Unix(int64(exp), 0)); remaining <= 0 || remaining > time.Minute+time.Second {
		t.Fatalf("exp is %v away, want about a minute", remaining)
	}
}

func TestSignTokenUniqueIDs(t *testing.T) {
	a, err := SignToken("secret", "issuer", "user", 0)
	if err != nil {
		t.Fatalf("sign token error: %v", err)
	}
	b, err := SignToken("secret", "issuer", "user", 0)
	if err != nil {
		t.Fatalf("sign token error: %v", err)
	}
	if stringClaim(t, parseClaims(t, a, "secret"), "jti") == stringClaim(t, parseClaims(t, b, "secret"), "jti") {
		t.Fatal("expected distinct token ids")
	}
}

func TestSignTokenRequiresConfig(t *testing.T) {
	if _, err := SignToken("", "issuer", "user", 0); err == nil {
		t.Fatal("expected error for missing secret")
	}
	if _, err := SignToken("secret", "issuer", "", 0); err == nil {
		t.Fatal("expected error for missing subject")
	}
}

func parseClaims(t *testing.T, tokenString, secret string) jwt.MapClaims {
	t.Helper()

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("parse token error: %v", err)
	}
	if !token.Valid {
		t.Fatal("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims are not map claims")
	}
	return claims
}

func stringClaim(t *testing.T, claims jwt.MapClaims, name string) string {
	t.Helper()
	value, ok := claims[name]
	if !ok {
		t.Fatalf("missing %s claim", name)
	}
	str, ok := value.(string)
	if !ok {
		t.Fatalf("%s claim is not a string", name)
	}
	return str
}
