package controller

import (
	"errors"

	"ai-counselor-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

var statusByError = []struct {
	err  error
	code int
}{
	{service.ErrUnauthenticated, fiber.StatusUnauthorized},
	{service.ErrUserNotFound, fiber.StatusNotFound},
	{service.ErrSessionNotFound, fiber.StatusNotFound},
	{service.ErrRunNotFound, fiber.StatusNotFound},
	{service.ErrForbidden, fiber.StatusForbidden},
	{service.ErrEmptyMessage, fiber.StatusBadRequest},
	{service.ErrInvalidMoodScore, fiber.StatusBadRequest},
	{service.ErrInvalidActivity, fiber.StatusBadRequest},
	{service.ErrSessionCompleted, fiber.StatusConflict},
	{service.ErrReplyTimeout, fiber.StatusGatewayTimeout},
}

// httpError gives service sentinels their status code. Anything else stays a 500, including
// ErrPersistenceFailed whose details are not for clients.
func httpError(err error) error {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return fiber.NewError(m.code, m.err.Error())
		}
	}
	return err
}
