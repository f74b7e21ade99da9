package middleware

import "github.com/gofiber/fiber/v2"

type Middleware interface {
	Middleware() fiber.Handler
}

// Transport lists the global middleware in the order they are mounted.
type Transport struct {
	PanicRecoverMiddleware Middleware
	TraceMiddleware        Middleware
	MetricsMiddleware      Middleware
	CORSMiddleware         Middleware
}
