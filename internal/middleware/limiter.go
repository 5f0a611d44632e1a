package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"sync"
	"time"

	"sslcommerz-gateway/internal/utils"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Gateway notifications and customer returns (Strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// Operator API (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	// Internal / trusted services
	limitInternal = rate.Limit(100)
	burstInternal = 200
)

var strictPaths = map[string]bool{
	"/webhook/sslcommerz/ipn": true,
	"/payments/return":        true,
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.Mutex
)

func init() {
	go cleanupVisitors()
}

func getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	v, exists := visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors drops buckets idle for more than three minutes.
func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for key, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, key)
			}
		}
		mu.Unlock()
	}
}

// RateLimit throttles requests per identity and tier. Requests presenting
// internalKey in X-Service-Auth get the internal tier and are marked as such
// on the context. Mount it after RequireOperator to key buckets by operator.
func RateLimit(internalKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit, burst, tier := resolveRateTier(r, internalKey)
			if tier == "internal" {
				r = r.WithContext(utils.WithInternalRequest(r.Context()))
			}

			key := requestIdentity(r) + ":" + tier

			limiter := getVisitor(key, limit, burst)
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				utils.WriteJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestIdentity prefers the authenticated operator, then the device id,
// then the remote IP.
func requestIdentity(r *http.Request) string {
	if operator, ok := utils.GetOperatorFromContext(r.Context()); ok {
		return "operator:" + operator
	}
	if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
		return "device:" + deviceID
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

func resolveRateTier(r *http.Request, internalKey string) (rate.Limit, int, string) {
	if internalKey != "" &&
		subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Service-Auth")), []byte(internalKey)) == 1 {
		return limitInternal, burstInternal, "internal"
	}

	if strictPaths[r.URL.Path] {
		return limitStrict, burstStrict, "strict"
	}

	return limitGeneral, burstGeneral, "general"
}
