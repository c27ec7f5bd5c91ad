package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pharmacy/backoffice/internal/api/metrics"
	"github.com/pharmacy/backoffice/internal/core/domain"
	"github.com/pharmacy/backoffice/internal/core/ports"
)

const principalKey = "principal"

// IdentityLoader resolves the stored account behind a token subject.
type IdentityLoader interface {
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
}

// AuthOptions tunes the authentication middleware.
type AuthOptions struct {
	// Identity, when set, re-reads the account on every request: unknown
	// subjects are rejected and the stored role replaces the token role.
	Identity IdentityLoader
	// Audit receives token rejections. Optional.
	Audit ports.AuditPublisher
}

// Auth verifies the bearer token and attaches the resulting principal to the
// request context. Every verification failure produces the same 401 body;
// the specific cause is kept on the error for logging and metrics.
func Auth(tokens ports.TokenParser, opts AuthOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request())
			if err != nil {
				metrics.TokenRejectionsTotal.WithLabelValues(domain.TokenErrorReason(err)).Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header").SetInternal(err)
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				return reject(c, opts, "", err)
			}

			principal := domain.Principal{Username: claims.Subject, Role: claims.Role}
			if opts.Identity != nil {
				account, err := opts.Identity.FindByUsername(c.Request().Context(), claims.Subject)
				if err != nil {
					return reject(c, opts, claims.Subject, err)
				}
				principal.Role = account.Role
				principal.AccountID = account.ID
			}

			SetPrincipal(c, principal)
			return next(c)
		}
	}
}

// SetPrincipal stores p on both the echo context and the request context.
func SetPrincipal(c echo.Context, p domain.Principal) {
	c.Set(principalKey, p)
	req := c.Request()
	c.SetRequest(req.WithContext(domain.WithPrincipal(req.Context(), p)))
}

// PrincipalFrom returns the principal attached by Auth.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	if p, ok := c.Get(principalKey).(domain.Principal); ok && p.Username != "" {
		return p, true
	}
	return domain.PrincipalFromContext(c.Request().Context())
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", domain.ErrMissingCredential
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", domain.ErrMissingCredential
	}
	return strings.TrimSpace(parts[1]), nil
}

func reject(c echo.Context, opts AuthOptions, subject string, cause error) error {
	reason := domain.TokenErrorReason(cause)
	metrics.TokenRejectionsTotal.WithLabelValues(reason).Inc()
	if opts.Audit != nil {
		opts.Audit.Publish(domain.AuthEvent{
			Kind:       domain.EventTokenRejected,
			Username:   subject,
			Outcome:    domain.OutcomeFailure,
			Reason:     reason,
			RemoteIP:   c.RealIP(),
			OccurredAt: timeNow().UTC(),
		})
	}
	if !domain.IsTokenError(cause) && !errors.Is(cause, domain.ErrAccountNotFound) {
		// Store failure during identity refresh: not the caller's fault.
		return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication temporarily unavailable").SetInternal(cause)
	}
	return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token").SetInternal(cause)
}
