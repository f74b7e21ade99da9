package middleware

import (
	"time"

	"github.com/NeuralTrust/TrustGuard/pkg/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type traceMiddleware struct {
	uuidProvider func() string
}

// NewTraceMiddleware tags each request with a trace id, reusing the caller's
// X-Trace-Id when it is a valid UUID, and records the request start time.
func NewTraceMiddleware(uuidProvider func() string) Middleware {
	if uuidProvider == nil {
		uuidProvider = uuid.NewString
	}
	return &traceMiddleware{uuidProvider: uuidProvider}
}

func (m *traceMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(common.LatencyContextKey, time.Now())

		traceID := c.Get(common.TraceIdHeader)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = m.uuidProvider()
		}
		c.Locals(common.TraceIdKey, traceID)
		c.Set(common.TraceIdHeader, traceID)

		return c.Next()
	}
}
