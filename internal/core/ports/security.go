package ports

import "github.com/pharmacy/backoffice/internal/core/domain"

// PasswordHasher produces salted one-way hashes.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify reports whether plain matches hash. A mismatch is not an error.
	Verify(plain, hash string) bool
	// VerifyDummy burns the same work as Verify against a throwaway hash, so
	// a lookup miss costs as much as a wrong password.
	VerifyDummy(plain string)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(subject string, role domain.Role) (string, domain.Claims, error)
}

// TokenParser verifies session tokens. Errors are one of
// domain.ErrTokenMalformed, domain.ErrTokenSignature, domain.ErrTokenExpired.
type TokenParser interface {
	Parse(token string) (domain.Claims, error)
}
