package test

import (
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var signingKey = []byte("goaccess-public-api-test-key-0001")

func mint(t testing.TB, exp time.Time) string {
	t.Helper()
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.RegisteredClaims{
		Subject:   "svc-public",
		ExpiresAt: gjwt.NewNumericDate(exp),
	}).SignedString(signingKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// apiClient is a listener key. The padding keeps it non-zero-sized.
type apiClient struct {
	name string
	_    [16]byte
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
