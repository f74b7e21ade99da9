package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

var proxyIPHeaders = []string{
	"X-Real-IP",
	"X-Forwarded-For",
	"True-Client-IP",
	"CF-Connecting-IP",
}

// ClientOrigin returns the network origin a request is attributed to. Proxy
// headers are client controlled, so they are only honoured when the gateway
// runs behind a proxy that overwrites them.
func ClientOrigin(c *fiber.Ctx, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		for _, header := range proxyIPHeaders {
			value := c.Get(header)
			if value == "" {
				continue
			}
			if first, _, _ := strings.Cut(value, ","); strings.TrimSpace(first) != "" {
				return strings.TrimSpace(first)
			}
		}
	}
	return c.IP()
}
