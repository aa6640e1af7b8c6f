package middleware

import (
	"errors"
	"net/http"
	"strings"

	licerrors "keymint/internal/errors"
	"keymint/internal/infrastructure"
	"keymint/internal/token"
)

// AdminGuard protects administrative routes. Requests must carry a bearer
// token that verifies against the codec and decodes to admin claims.
// When enabled is false the guard passes every request through, which is
// how test environments run without pre-provisioned credentials.
func AdminGuard(codec *token.Codec, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}

			tokenValue, err := bearerToken(r)
			if err != nil {
				renderAuthProblem(w, r, err)
				return
			}

			claims, err := codec.Verify(tokenValue)
			if err != nil {
				switch {
				case errors.Is(err, token.ErrExpiredToken):
					renderAuthProblem(w, r, licerrors.ErrTokenExpired)
				default:
					renderAuthProblem(w, r, licerrors.ErrTokenInvalid)
				}
				return
			}

			admin, ok := claims.(token.AdminClaims)
			if !ok || !admin.IsAdmin() {
				renderAuthProblem(w, r, licerrors.ErrAdminRoleRequired)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header. A missing
// or malformed header is indistinguishable from an invalid token to the
// caller.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", licerrors.ErrTokenInvalid
	}

	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(value) == "" {
		return "", licerrors.ErrTokenInvalid
	}

	return strings.TrimSpace(value), nil
}

func renderAuthProblem(w http.ResponseWriter, r *http.Request, err error) {
	licerrors.WriteProblemFor(w, err, r.URL.Path, infrastructure.GetTraceID(r.Context()))
}
