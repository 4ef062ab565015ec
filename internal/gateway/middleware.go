package gateway

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/medrex/clinic-scheduling/pkg/interfaces"
	"github.com/medrex/clinic-scheduling/pkg/logger"
	"github.com/medrex/clinic-scheduling/pkg/types"
)

// Guard admits requests whose bearer credential resolves under one of a
// route's roles
type Guard struct {
	tokens interfaces.TokenResolver
	logger *logger.Logger
}

// NewGuard creates a route guard backed by tokens
func NewGuard(tokens interfaces.TokenResolver, log *logger.Logger) *Guard {
	return &Guard{tokens: tokens, logger: log}
}

// Require returns middleware that resolves the bearer credential against
// each of roles in turn and stores the first match as the request principal
func (g *Guard) Require(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				WriteStatusError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "missing or malformed authorization header")
				return
			}

			for _, role := range roles {
				principal, err := g.tokens.Resolve(r.Context(), token, role)
				if err == nil {
					ctx := types.WithPrincipal(r.Context(), principal)
					ctx = logger.WithContextValues(ctx, principal.EntityID, string(principal.Role))
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				if !types.IsKind(err, types.ErrorKindUnauthorized) {
					WriteError(w, r, g.logger, err)
					return
				}
			}

			g.logger.Security("credential_rejected", "", map[string]interface{}{
				"path":   r.URL.Path,
				"method": r.Method,
			})
			WriteStatusError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "invalid or expired credential")
		})
	}
}

// BearerToken extracts the credential from an "Authorization: Bearer" header
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// CORSMiddleware handles CORS headers
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}

// RateLimitMiddleware rejects clients that exceed limiter's budget and
// reports the remaining budget in X-RateLimit headers
func RateLimitMiddleware(limiter interfaces.RateLimiter, clients *ClientIPResolver, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clients.ClientIP(r)
			allowed := limiter.Allow(key)

			remaining, limit := limiter.Remaining(key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				log.WithField("client_ip", key).Warn("Rate limit exceeded")
				WriteStatusError(w, http.StatusTooManyRequests, types.ErrCodeRateLimitExceeded, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPResolver identifies the client behind a request. X-Forwarded-For
// is only read when the connection comes from a trusted proxy.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver parses proxies, each an IP address or a CIDR block
func NewClientIPResolver(proxies []string) (*ClientIPResolver, error) {
	resolver := &ClientIPResolver{}
	for _, proxy := range proxies {
		proxy = strings.TrimSpace(proxy)
		if proxy == "" {
			continue
		}
		if !strings.Contains(proxy, "/") {
			ip := net.ParseIP(proxy)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", proxy)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			resolver.trusted = append(resolver.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, block, err := net.ParseCIDR(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", proxy, err)
		}
		resolver.trusted = append(resolver.trusted, block)
	}
	return resolver, nil
}

func (c *ClientIPResolver) isTrusted(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, block := range c.trusted {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the remote host, or for a trusted proxy the nearest
// X-Forwarded-For hop that is not itself a trusted proxy
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !c.isTrusted(host) {
		return host
	}

	fwd := r.Header.Get("X-Forwarded-For")
	if fwd == "" {
		return host
	}
	hops := strings.Split(fwd, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !c.isTrusted(hop) || i == 0 {
			return hop
		}
	}
	return host
}
