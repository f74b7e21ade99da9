package router

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var ErrMissingHandler = errors.New("handler transport is incomplete")

type ServerRouter interface {
	BuildRoutes(router *fiber.App) error
}
