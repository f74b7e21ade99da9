package http

import "github.com/gofiber/fiber/v2"

const (
	ErrInvalidJsonPayload = "invalid JSON payload"
	ErrPromptRequired     = "Prompt is required"
)

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport struct {
	// Security
	ValidateHandler Handler

	// LLM
	StreamHandler Handler

	// Info
	GetVersionHandler Handler
}
