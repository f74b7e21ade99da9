package http

import (
	"encoding/json"
	"errors"
	"strconv"

	appAdmission "github.com/NeuralTrust/TrustGuard/pkg/app/admission"
	"github.com/NeuralTrust/TrustGuard/pkg/domain/admission"
	"github.com/NeuralTrust/TrustGuard/pkg/handlers/http/request"
	"github.com/NeuralTrust/TrustGuard/pkg/handlers/http/response"
	"github.com/NeuralTrust/TrustGuard/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type validateHandler struct {
	logger            *logrus.Logger
	controller        appAdmission.Controller
	trustProxyHeaders bool
}

func NewValidateHandler(
	logger *logrus.Logger,
	controller appAdmission.Controller,
	trustProxyHeaders bool,
) Handler {
	return &validateHandler{
		logger:            logger,
		controller:        controller,
		trustProxyHeaders: trustProxyHeaders,
	}
}

// Handle admits or rejects a single request against the caller's burst and
// sustained rate windows. Every outcome, including store failures, is
// answered with a decision body.
func (h *validateHandler) Handle(c *fiber.Ctx) error {
	var req request.ValidateRequest
	// Decoded directly rather than with BodyParser so bodies sent without a
	// JSON Content-Type still parse.
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		h.logger.WithError(err).Debug("failed to decode validate request")
		decision := admission.Block(admission.ReasonMalformedRequest, 0)
		prometheus.AdmissionDecisions.WithLabelValues(string(decision.Reason)).Inc()
		return h.respond(c, decision)
	}

	origin := ClientOrigin(c, h.trustProxyHeaders)
	decision, err := h.controller.Validate(c.UserContext(), appAdmission.ValidateInput{
		UserID:   req.UserID,
		Input:    req.Input,
		Origin:   origin,
		Category: req.Category,
	})
	if err != nil {
		entry := h.logger.WithFields(logrus.Fields{
			"user_id": req.UserID,
			"origin":  origin,
		}).WithError(err)
		if errors.Is(err, admission.ErrStoreUnavailable) {
			entry.Error("admission check failed closed")
		} else {
			entry.Debug("invalid validate request")
		}
	}

	return h.respond(c, decision)
}

func (h *validateHandler) respond(c *fiber.Ctx, decision admission.Decision) error {
	if secs := decision.RetryAfterSeconds(); secs > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
	}
	return c.Status(StatusFor(decision.Reason)).JSON(response.NewValidateResponse(decision))
}

func StatusFor(reason admission.Reason) int {
	switch reason {
	case admission.ReasonAdmitted:
		return fiber.StatusOK
	case admission.ReasonInvalidRequest, admission.ReasonMalformedRequest:
		return fiber.StatusBadRequest
	case admission.ReasonBurstLimitExceeded, admission.ReasonSustainedLimitExceeded:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusServiceUnavailable
	}
}
