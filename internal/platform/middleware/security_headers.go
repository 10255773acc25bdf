package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityConfig selects the optional headers. HSTS is only meaningful
// behind TLS, so it is off for local development.
type SecurityConfig struct {
	HSTS bool
}

var baseSecurityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Cache-Control", "no-store"},
}

// SecurityHeaders sets the response headers every portal response carries.
// Responses include patient details, so nothing is cacheable.
func SecurityHeaders(cfg SecurityConfig) echo.MiddlewareFunc {
	headers := baseSecurityHeaders
	if cfg.HSTS {
		headers = append(append([][2]string(nil), headers...),
			[2]string{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"})
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range headers {
				h.Set(kv[0], kv[1])
			}
			return next(c)
		}
	}
}
