package middleware

import (
	"net/http"

	"sslcommerz-gateway/internal/auth"
	"sslcommerz-gateway/internal/logger"
	"sslcommerz-gateway/internal/utils"

	"go.uber.org/zap"
)

// RequireOperator rejects requests without a valid operator token carrying
// the admin role. The operator is stored on the request context.
func RequireOperator(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromCtx(r.Context())

			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				utils.WriteJSONError(w, "missing access token", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ParseJWT(secret, tokenStr)
			if err != nil {
				log.Warn("Rejected operator token", zap.Error(err))
				utils.WriteJSONError(w, "invalid access token", http.StatusUnauthorized)
				return
			}

			if claims.Role != auth.RoleAdmin {
				log.Warn("Operator lacks admin role",
					zap.String("operator", claims.Subject),
					zap.String("role", claims.Role),
				)
				utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := utils.SetOperatorContext(r.Context(), claims.Subject, claims.Role)
			ctx = logger.WithFields(ctx, zap.String("operator", claims.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
