package middleware

import (
	"net/http"
	"strings"

	"github.com/chemtrack/labstock-backend/api/responses"
	pkgauth "github.com/chemtrack/labstock-backend/pkg/auth"
	"github.com/chemtrack/labstock-backend/pkg/config"
	pkgerrors "github.com/chemtrack/labstock-backend/pkg/errors"
	"github.com/chemtrack/labstock-backend/pkg/logger"
)

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithRole(ctx, string(claims.Role))
			fields := map[string]any{
				"user_id":    claims.UserID.String(),
				"actor_role": string(claims.Role),
			}
			if claims.LabID != nil {
				ctx = WithLabID(ctx, *claims.LabID)
				fields["lab_id"] = *claims.LabID
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
