package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

const defaultTokenTTL = 24 * time.Hour

// tokenClaims is the JWT payload: sub, iat, exp plus the role.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 session tokens. The secret is fixed
// at construction and never changes afterwards.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec builds a codec. An empty secret is rejected; a non-positive
// ttl falls back to 24h.
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token codec: empty signing secret")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// WithClock swaps the time source. Used by tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Issue signs a token for subject valid from now until now+TTL.
func (c *TokenCodec) Issue(subject string, role domain.Role) (string, domain.Claims, error) {
	if subject == "" || !role.Valid() {
		return "", domain.Claims{}, fmt.Errorf("%w: token subject and role are required", domain.ErrInvalidInput)
	}

	// NumericDate has second precision; truncate both instants so the
	// returned claims match what Parse will read back.
	now := c.now().UTC().Truncate(time.Second)
	claims := domain.Claims{
		Subject:   subject,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.ttl).Truncate(time.Second),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies the signature over the raw header.payload text before any
// segment is decoded, so a tampered payload is always reported as a
// signature failure and never as a decoded claim.
func (c *TokenCodec) Parse(token string) (domain.Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return domain.Claims{}, domain.ErrTokenMalformed
	}

	sig, err := c.parser.DecodeSegment(parts[2])
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: signature segment: %v", domain.ErrTokenMalformed, err)
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, c.secret); err != nil {
		return domain.Claims{}, domain.ErrTokenSignature
	}

	var tc tokenClaims
	if _, err := c.parser.ParseWithClaims(token, &tc, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return domain.Claims{}, domain.ErrTokenSignature
		}
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}

	role, err := domain.ParseRole(tc.Role)
	if err != nil || tc.Subject == "" || tc.ExpiresAt == nil {
		return domain.Claims{}, fmt.Errorf("%w: incomplete claims", domain.ErrTokenMalformed)
	}

	claims := domain.Claims{
		Subject:   tc.Subject,
		Role:      role,
		ExpiresAt: tc.ExpiresAt.Time.UTC(),
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time.UTC()
	}

	if !c.now().Before(claims.ExpiresAt) {
		return domain.Claims{}, domain.ErrTokenExpired
	}
	return claims, nil
}
