package router

import (
	"net/http"
	"time"

	handlers "github.com/NeuralTrust/TrustGuard/pkg/handlers/http"
	"github.com/NeuralTrust/TrustGuard/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

const (
	HealthPath   = "/health"
	PingPath     = "/__/ping"
	VersionPath  = "/version"
	ValidatePath = "/security/validate"
	StreamPath   = "/stream"
)

type gatewayRouter struct {
	middlewareTransport middleware.Transport
	handlerTransport    handlers.HandlerTransport
}

func NewGatewayRouter(
	middlewareTransport middleware.Transport,
	handlerTransport handlers.HandlerTransport,
) ServerRouter {
	return &gatewayRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
	}
}

func (r *gatewayRouter) BuildRoutes(router *fiber.App) error {
	if r.handlerTransport.ValidateHandler == nil ||
		r.handlerTransport.StreamHandler == nil ||
		r.handlerTransport.GetVersionHandler == nil {
		return ErrMissingHandler
	}

	router.Get(HealthPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	router.Get(PingPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"message": "pong",
		})
	})

	for _, m := range []middleware.Middleware{
		r.middlewareTransport.PanicRecoverMiddleware,
		r.middlewareTransport.TraceMiddleware,
		r.middlewareTransport.MetricsMiddleware,
		r.middlewareTransport.CORSMiddleware,
	} {
		if m != nil {
			router.Use(m.Middleware())
		}
	}

	router.Get(VersionPath, r.handlerTransport.GetVersionHandler.Handle)
	router.Post(ValidatePath, r.handlerTransport.ValidateHandler.Handle)
	router.Post(StreamPath, r.handlerTransport.StreamHandler.Handle)

	return nil
}
