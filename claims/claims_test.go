package claims

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func signHS256(t *testing.T, c gjwt.Claims) string {
	t.Helper()
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, c).SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestParseExpiryValid(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	tok := signHS256(t, gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(exp)})

	got, ok := ParseExpiry(tok)
	if !ok {
		t.Fatal("expected valid token to parse")
	}
	if !got.Equal(exp) {
		t.Fatalf("expected %v, got %v", exp, got)
	}
}

func TestParseExpiredTokenStillParses(t *testing.T) {
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	tok := signHS256(t, gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(exp)})

	got, ok := ParseExpiry(tok)
	if !ok || !got.Equal(exp) {
		t.Fatalf("expected expired token to yield %v, got %v ok=%v", exp, got, ok)
	}
}

func TestParseMissingExpiry(t *testing.T) {
	tok := signHS256(t, gjwt.RegisteredClaims{Subject: "u1"})

	if _, ok := ParseExpiry(tok); ok {
		t.Fatal("expected token without exp to be rejected")
	}
	if _, err := Parse(tok); !errors.Is(err, ErrMissingExpiry) {
		t.Fatalf("expected ErrMissingExpiry, got %v", err)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"",
		"not-a-token",
		"a.b",
		"a.b.c",
		"eyJhbGciOiJIUzI1NiJ9.@@@.sig",
	}
	for _, in := range cases {
		if _, ok := ParseExpiry(in); ok {
			t.Fatalf("expected %q to be rejected", in)
		}
		if _, err := Parse(in); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed for %q, got %v", in, err)
		}
	}
}

func TestParseIgnoresSignature(t *testing.T) {
	exp := time.Now().Add(time.Minute).Truncate(time.Second)
	tok := signHS256(t, gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(exp)})
	tampered := tok[:len(tok)-4] + "AAAA"

	if _, ok := ParseExpiry(tampered); !ok {
		t.Fatal("expected expiry extraction to ignore the signature")
	}
}

func TestParseNumericExpiryFromForeignIssuer(t *testing.T) {
	// Header and payload as produced by a non-Go issuer with a float exp.
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT","cty":"twilio-fpa;v=1"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"jti":"SK-1","iss":"SK","sub":"AC","exp":1767225600.0,"grants":{"identity":"alice"}}`))
	tok := header + "." + payload + ".c2ln"

	c, err := Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if want := time.Unix(1767225600, 0); !c.ExpiresAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, c.ExpiresAt)
	}
	if c.ID != "SK-1" || c.Issuer != "SK" || c.Subject != "AC" {
		t.Fatalf("unexpected registered claims %+v", c)
	}
}

func TestClaimsTTL(t *testing.T) {
	iat := time.Now().Truncate(time.Second)
	tok := signHS256(t, gjwt.RegisteredClaims{
		IssuedAt:  gjwt.NewNumericDate(iat),
		ExpiresAt: gjwt.NewNumericDate(iat.Add(time.Hour)),
	})
	c, err := Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.TTL() != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", c.TTL())
	}

	var nilClaims *Claims
	if nilClaims.TTL() != 0 {
		t.Fatal("expected zero ttl for nil claims")
	}
}
