package server

import (
	"log/slog"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/vailabel/vailabel-studio-sub002/internal/config"
)

var unloggedPaths = []string{
	"/api/health",
	"/favicon.ico",
}

func skipper(c echo.Context) bool {
	return slices.Contains(unloggedPaths, c.Request().URL.Path)
}

// NewEchoLogger logs one line per request. 4xx log at WARN, 5xx and handler
// errors at ERROR.
func NewEchoLogger(l *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:        true,
		LogURI:           true,
		LogError:         true,
		HandleError:      true,
		LogRequestID:     true,
		LogRemoteIP:      true,
		LogMethod:        true,
		LogUserAgent:     true,
		LogLatency:       true,
		LogContentLength: true,
		LogResponseSize:  true,
		Skipper:          skipper,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			msg := "REQUEST"
			switch {
			case v.Error != nil || v.Status >= 500:
				level = slog.LevelError
				msg = "REQUEST_ERROR"
			case v.Status >= 400:
				level = slog.LevelWarn
			}

			req := c.Request()
			attrs := []slog.Attr{
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("route", c.Path()),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.Group("client",
					slog.String("ip", v.RemoteIP),
					slog.String("user_agent", v.UserAgent),
					slog.String("user_id", req.Header.Get(config.HEADER_KEY_X_USER_ID)),
					slog.String("client_id", req.Header.Get(config.HEADER_KEY_X_CLIENT_ID)),
				),
				slog.Group("bytes",
					slog.String("in", v.ContentLength),
					slog.Int64("out", v.ResponseSize),
				),
			}
			if id := c.Param("id"); id != "" {
				attrs = append(attrs, slog.String("resource_id", id))
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}

			l.LogAttrs(req.Context(), level, msg, attrs...)
			return nil
		},
	})
}
