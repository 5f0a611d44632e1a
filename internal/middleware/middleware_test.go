package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sslcommerz-gateway/internal/auth"
	"sslcommerz-gateway/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func okHandler(t *testing.T, check func(r *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireOperator(t *testing.T) {
	t.Run("Missing Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payments/checkout", nil)
		w := httptest.NewRecorder()

		RequireOperator(testSecret)(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "missing access token")
	})

	t.Run("Invalid Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payments/checkout", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		RequireOperator(testSecret)(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Expired Token", func(t *testing.T) {
		token, err := auth.GenerateJWT(testSecret, "ops", auth.RoleAdmin, -time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/payments/checkout", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		RequireOperator(testSecret)(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Wrong Role", func(t *testing.T) {
		token, err := auth.GenerateJWT(testSecret, "viewer", "viewer", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/payments/checkout", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		RequireOperator(testSecret)(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Valid Token", func(t *testing.T) {
		token, err := auth.GenerateJWT(testSecret, "ops@billing", auth.RoleAdmin, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/payments/checkout", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		w := httptest.NewRecorder()

		next := okHandler(t, func(r *http.Request) {
			operator, ok := utils.GetOperatorFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "ops@billing", operator)
			assert.Equal(t, auth.RoleAdmin, utils.GetOperatorRoleFromContext(r.Context()))
		})

		RequireOperator(testSecret)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestResolveRateTier(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header string
		tier   string
	}{
		{"Notification", "/webhook/sslcommerz/ipn", "", "strict"},
		{"Return", "/payments/return", "", "strict"},
		{"Operator", "/payments/checkout", "", "general"},
		{"Internal", "/webhook/sslcommerz/ipn", "internal-key", "internal"},
		{"WrongInternalKey", "/payments/refunds", "guess", "general"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("X-Service-Auth", tt.header)
			}
			_, _, tier := resolveRateTier(req, "internal-key")
			assert.Equal(t, tt.tier, tier)
		})
	}

	t.Run("NoInternalKeyConfigured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Service-Auth", "")
		_, _, tier := resolveRateTier(req, "")
		assert.Equal(t, "general", tier)
	})
}

func TestRequestIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "ip:10.0.0.1", requestIdentity(req))

	req.RemoteAddr = "10.0.0.1"
	assert.Equal(t, "ip:10.0.0.1", requestIdentity(req))

	req.Header.Set("X-Device-ID", "dev-1")
	assert.Equal(t, "device:dev-1", requestIdentity(req))

	req = req.WithContext(utils.SetOperatorContext(req.Context(), "ops", auth.RoleAdmin))
	assert.Equal(t, "operator:ops", requestIdentity(req))
}

func TestRateLimit(t *testing.T) {
	t.Run("StrictTierExhausts", func(t *testing.T) {
		handler := RateLimit("")(okHandler(t, nil))

		codes := make([]int, 0, burstStrict+1)
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/webhook/sslcommerz/ipn", nil)
			req.RemoteAddr = "192.0.2.10:1234"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		for _, c := range codes[:burstStrict] {
			assert.Equal(t, http.StatusOK, c)
		}
		assert.Equal(t, http.StatusTooManyRequests, codes[burstStrict])
	})

	t.Run("InternalMarksContext", func(t *testing.T) {
		handler := RateLimit("internal-key")(okHandler(t, func(r *http.Request) {
			assert.True(t, utils.IsInternalRequest(r.Context()))
		}))

		req := httptest.NewRequest(http.MethodPost, "/webhook/sslcommerz/ipn", nil)
		req.RemoteAddr = "192.0.2.11:1234"
		req.Header.Set("X-Service-Auth", "internal-key")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("SeparateBucketsPerTier", func(t *testing.T) {
		handler := RateLimit("")(okHandler(t, nil))

		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/payments/return", nil)
			req.RemoteAddr = "192.0.2.12:1234"
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "192.0.2.12:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("OperatorBucketsAfterAuth", func(t *testing.T) {
		handler := RequireOperator(testSecret)(RateLimit("")(okHandler(t, nil)))

		tokens := map[string]string{}
		for _, subject := range []string{"ops-a@billing", "ops-b@billing"} {
			token, err := auth.GenerateJWT(testSecret, subject, auth.RoleAdmin, time.Hour)
			require.NoError(t, err)
			tokens[subject] = token
		}

		send := func(subject string) int {
			req := httptest.NewRequest(http.MethodPost, "/payments/refunds", nil)
			req.RemoteAddr = "192.0.2.13:1234"
			req.Header.Set("Authorization", "Bearer "+tokens[subject])
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			return w.Code
		}

		for i := 0; i < burstGeneral; i++ {
			require.Equal(t, http.StatusOK, send("ops-a@billing"))
		}
		assert.Equal(t, http.StatusTooManyRequests, send("ops-a@billing"))

		// Same address, different operator.
		assert.Equal(t, http.StatusOK, send("ops-b@billing"))
	})
}
