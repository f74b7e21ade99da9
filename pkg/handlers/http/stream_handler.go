package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/NeuralTrust/TrustGuard/pkg/handlers/http/request"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/providers"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const streamTimeout = 5 * time.Minute

type streamDelta struct {
	Content string `json:"content"`
}

type streamChoice struct {
	Delta streamDelta `json:"delta"`
}

type streamEvent struct {
	Choices []streamChoice `json:"choices"`
}

type streamHandler struct {
	logger *logrus.Logger
	client providers.StreamClient
	config *providers.Config
}

func NewStreamHandler(
	logger *logrus.Logger,
	client providers.StreamClient,
	config *providers.Config,
) Handler {
	return &streamHandler{
		logger: logger,
		client: client,
		config: config,
	}
}

// Handle relays a chat completion for the given prompt as server-sent events.
// Upstream failures after the stream has started are reported in-band.
func (h *streamHandler) Handle(c *fiber.Ctx) error {
	var req request.StreamRequest
	// Decoded directly rather than with BodyParser so bodies sent without a
	// JSON Content-Type still parse.
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidJsonPayload})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrPromptRequired})
	}

	cfg, err := providers.ApplyOptions(h.config, req.Options)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	prompt := req.Prompt
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
		defer cancel()

		err := h.client.CompletionsStream(ctx, cfg, prompt, func(content string) error {
			payload, err := json.Marshal(streamEvent{
				Choices: []streamChoice{{Delta: streamDelta{Content: content}}},
			})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"model": cfg.Model,
			}).WithError(err).Error("completion stream failed")
			payload, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
			_ = w.Flush()
			return
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
		_ = w.Flush()
	})

	return nil
}
