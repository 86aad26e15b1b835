package server

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/vailabel/vailabel-studio-sub002/internal/config"
)

// WithUserID puts the caller id from the X-User-Id header into the request
// context. Authentication happens upstream at the gateway.
func WithUserID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Request().Header.Get(config.HEADER_KEY_X_USER_ID)
		if userID == "" {
			return next(c)
		}
		ctx := context.WithValue(c.Request().Context(), config.CTX_KEY_USER_ID, userID)
		if clientID := c.Request().Header.Get(config.HEADER_KEY_X_CLIENT_ID); clientID != "" {
			ctx = context.WithValue(ctx, config.CTX_KEY_CLIENT_ID, clientID)
		}
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
