package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// parseAuthedUserID reads the authenticated user's id out of the request
// locals set by the auth middleware.
func parseAuthedUserID(c *fiber.Ctx) (int64, error) {
	userIDStr, ok := c.Locals("user_id").(string)
	if !ok {
		return 0, errors.New("missing user id")
	}

	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		return 0, errors.New("invalid user id")
	}

	return userID, nil
}

func parsePositiveInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
