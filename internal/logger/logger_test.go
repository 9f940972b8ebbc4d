package logger

import "testing"

func TestSanitizeKVs_RedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"password", "hunter2",
		"api_key", "sk-123",
		"email", "alice@example.com",
	})
	if out[1] != "[REDACTED]" {
		t.Fatalf("password not redacted: %v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("api_key not redacted: %v", out[3])
	}
	// Identity fields stay visible so failures can be traced to an account.
	if out[5] != "alice@example.com" {
		t.Fatalf("email must not be redacted: %v", out[5])
	}
}

func TestSanitizeKVs_RedactsJWTShapedValues(t *testing.T) {
	jwtish := "eyJhbGciOiJSUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.signature"
	out := sanitizeKVs([]interface{}{"header", jwtish})
	if out[1] != "[REDACTED]" {
		t.Fatalf("jwt-shaped value not redacted: %v", out[1])
	}
}

func TestLooksLikeJWT(t *testing.T) {
	if looksLikeJWT("a.b.c") {
		t.Fatalf("short segments should not match")
	}
	if looksLikeJWT("plain text") {
		t.Fatalf("non-dotted strings should not match")
	}
}
