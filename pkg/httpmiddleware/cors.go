package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures cross-origin access to the cart API.
type CORSConfig struct {
	// AllowOrigins lists the allowed origins. Empty or "*" allows any origin.
	AllowOrigins     []string `default:"*" usage:"Allowed CORS origins"`
	AllowHeaders     []string `default:"Content-Type,X-Request-ID" usage:"Allowed CORS request headers"`
	AllowCredentials bool     `usage:"Allow credentialed CORS requests"`
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int `default:"600" usage:"CORS preflight max age in seconds"`
}

const corsMethods = "GET, POST, PUT, DELETE, OPTIONS"

// CORS answers preflight requests and decorates responses to allowed
// origins. With credentials enabled the origin is echoed instead of "*".
func CORS(cfg CORSConfig) Middleware {
	allowAll := len(cfg.AllowOrigins) == 0
	allowed := make(map[string]string, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			allowAll = true
			continue
		}
		allowed[strings.ToLower(o)] = o
	}
	headers := strings.Join(cfg.AllowHeaders, ", ")

	match := func(origin string) string {
		switch {
		case allowAll && cfg.AllowCredentials:
			return origin
		case allowAll:
			return "*"
		default:
			return allowed[strings.ToLower(origin)]
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !allowAll || cfg.AllowCredentials {
				h.Add("Vary", "Origin")
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allow := match(origin)
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}
			if !preflight {
				h.Set("Access-Control-Expose-Headers", HeaderRequestID)
				next.ServeHTTP(w, r)
				return
			}

			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			if allow != "" {
				h.Set("Access-Control-Allow-Methods", corsMethods)
				if headers != "" {
					h.Set("Access-Control-Allow-Headers", headers)
				} else if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
					h.Set("Access-Control-Allow-Headers", rh)
				}
				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
