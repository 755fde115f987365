package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/cors"
)

// CORSOptions is the CORS allow-list.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// DefaultCORSOptions returns a development allow-list.
func DefaultCORSOptions() CORSOptions {
	return CORSOptions{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           3600,
	}
}

// allowOrigin picks the value of Access-Control-Allow-Origin. A wildcard entry
// echoes the literal request origin, never "*".
func (o CORSOptions) allowOrigin(origin string) string {
	for _, allowed := range o.AllowedOrigins {
		if allowed == "*" && origin != "" {
			return origin
		}
		if origin != "" && allowed == origin {
			return origin
		}
	}
	if len(o.AllowedOrigins) > 0 && o.AllowedOrigins[0] != "*" {
		return o.AllowedOrigins[0]
	}
	return ""
}

// Preflight answers CORS preflight probes directly: 200, empty body, no
// further handlers. Other requests pass through untouched.
func Preflight(opts CORSOptions) func(http.Handler) http.Handler {
	methods := strings.Join(opts.AllowedMethods, ", ")
	headers := strings.Join(opts.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(opts.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			if origin := opts.allowOrigin(r.Header.Get("Origin")); origin != "" {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Allow-Credentials", strconv.FormatBool(opts.AllowCredentials))
			h.Set("Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusOK)
		})
	}
}

// Simple returns the go-chi/cors handler that decorates non-preflight responses.
func Simple(opts CORSOptions) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			for _, allowed := range opts.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
		AllowedMethods:   opts.AllowedMethods,
		AllowedHeaders:   opts.AllowedHeaders,
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           opts.MaxAge,
	})
}
