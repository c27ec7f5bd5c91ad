package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTokenCodec_IssueAndParse(t *testing.T) {
	codec := newTestCodec(t, time.Hour).WithClock(func() time.Time { return fixedNow })

	token, issued, err := codec.Issue("alice", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected compact JWS, got %q", token)
	}
	if !issued.IssuedAt.Equal(fixedNow) || !issued.ExpiresAt.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("unexpected timestamps: %+v", issued)
	}

	claims, err := codec.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != issued.Subject || claims.Role != issued.Role ||
		!claims.IssuedAt.Equal(issued.IssuedAt) || !claims.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Fatalf("parsed claims differ: got %+v want %+v", claims, issued)
	}
}

func TestTokenCodec_ExpiryBoundary(t *testing.T) {
	now := fixedNow
	codec := newTestCodec(t, 30*time.Minute).WithClock(func() time.Time { return now })

	token, claims, err := codec.Issue("bob", domain.RolePharmacist)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = claims.ExpiresAt.Add(-time.Nanosecond)
	if _, err := codec.Parse(token); err != nil {
		t.Fatalf("expected valid just before expiry, got %v", err)
	}

	now = claims.ExpiresAt
	if _, err := codec.Parse(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at expiry, got %v", err)
	}

	now = claims.ExpiresAt.Add(time.Hour)
	if _, err := codec.Parse(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired after expiry, got %v", err)
	}
}

func TestTokenCodec_TamperedPayloadIsSignatureError(t *testing.T) {
	codec := newTestCodec(t, time.Hour).WithClock(func() time.Time { return fixedNow })
	token, _, err := codec.Issue("carol", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(token, ".")

	// Flip every payload position in turn to another base64url character.
	for i := range parts[1] {
		b := []byte(parts[1])
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		tampered := parts[0] + "." + string(b) + "." + parts[2]
		if _, err := codec.Parse(tampered); !errors.Is(err, domain.ErrTokenSignature) {
			t.Fatalf("position %d: expected ErrTokenSignature, got %v", i, err)
		}
	}
}

func TestTokenCodec_RoleEscalationIsSignatureError(t *testing.T) {
	codec := newTestCodec(t, time.Hour).WithClock(func() time.Time { return fixedNow })
	token, _, err := codec.Issue("dave", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(token, ".")

	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	payload["role"] = "ADMIN"
	forged, _ := json.Marshal(payload)

	tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString(forged) + "." + parts[2]
	if _, err := codec.Parse(tampered); !errors.Is(err, domain.ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	issuer := newTestCodec(t, time.Hour)
	other, err := NewTokenCodec("another-secret", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	token, _, err := issuer.Issue("erin", domain.RoleManager)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Parse(token); !errors.Is(err, domain.ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
}

func TestTokenCodec_Malformed(t *testing.T) {
	codec := newTestCodec(t, time.Hour)

	cases := []string{
		"",
		"not-a-token",
		"a.b",
		"a.b.c.d",
		"..",
		"header.payload.%%%",
	}
	for _, tc := range cases {
		if _, err := codec.Parse(tc); !errors.Is(err, domain.ErrTokenMalformed) {
			t.Fatalf("%q: expected ErrTokenMalformed, got %v", tc, err)
		}
	}
}

func TestTokenCodec_SignedGarbagePayloadIsMalformed(t *testing.T) {
	codec := newTestCodec(t, time.Hour)

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`not json`))
	sig, err := jwt.SigningMethodHS256.Sign(header+"."+payload, []byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	token := header + "." + payload + "." + base64.RawURLEncoding.EncodeToString(sig)

	if _, err := codec.Parse(token); !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestTokenCodec_UnknownRoleIsMalformed(t *testing.T) {
	codec := newTestCodec(t, time.Hour).WithClock(func() time.Time { return fixedNow })

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "mallory",
		"role": "ROOT",
		"iat":  fixedNow.Unix(),
		"exp":  fixedNow.Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := codec.Parse(signed); !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestTokenCodec_IssueRequiresSubjectAndRole(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	if _, _, err := codec.Issue("", domain.RoleUser); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty subject, got %v", err)
	}
	if _, _, err := codec.Issue("frank", domain.Role("ROOT")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
}

func TestNewTokenCodec_Defaults(t *testing.T) {
	if _, err := NewTokenCodec("", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	c, err := NewTokenCodec("s", 0)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	if c.TTL() != 24*time.Hour {
		t.Fatalf("expected 24h default ttl, got %s", c.TTL())
	}
}

func TestTokenCodec_SubSecondTTLReportsEncodedExpiry(t *testing.T) {
	now := fixedNow
	codec := newTestCodec(t, 1500*time.Millisecond).WithClock(func() time.Time { return now })

	token, issued, err := codec.Issue("alice", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !issued.ExpiresAt.Equal(fixedNow.Add(time.Second)) {
		t.Fatalf("expected expiry truncated to %v, got %v", fixedNow.Add(time.Second), issued.ExpiresAt)
	}

	now = issued.ExpiresAt.Add(-time.Millisecond)
	claims, err := codec.Parse(token)
	if err != nil {
		t.Fatalf("parse just before expiry: %v", err)
	}
	if !claims.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Fatalf("reported expiry %v differs from encoded %v", issued.ExpiresAt, claims.ExpiresAt)
	}

	now = issued.ExpiresAt
	if _, err := codec.Parse(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected expired at reported expiry, got %v", err)
	}
}

func TestTokenCodec_NonCanonicalSignatureEncodingRejected(t *testing.T) {
	codec := newTestCodec(t, time.Hour).WithClock(func() time.Time { return fixedNow })
	token, _, err := codec.Issue("alice", domain.RoleUser)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// The last character of a 32-byte signature carries two padding bits.
	// Setting one of them keeps the decoded bytes but changes the text.
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	last := strings.IndexByte(alphabet, token[len(token)-1])
	if last < 0 || last&0x03 != 0 {
		t.Fatalf("unexpected final signature character %q", token[len(token)-1])
	}
	forged := token[:len(token)-1] + string(alphabet[last|0x01])

	_, err = codec.Parse(forged)
	if !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("expected malformed for non-canonical signature, got %v", err)
	}
}
