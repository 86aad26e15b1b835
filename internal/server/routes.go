package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/vailabel/vailabel-studio-sub002/internal/config"
)

func (s *Server) RegisterRoutes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware("vailabel-api", otelecho.WithSkipper(skipper)))
	e.Use(middleware.RequestID())
	e.Use(NewEchoLogger(s.logger))
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", config.HEADER_KEY_X_USER_ID, config.HEADER_KEY_X_CLIENT_ID},
		ExposeHeaders:    []string{echo.HeaderContentDisposition, config.HEADER_KEY_X_EXPORT_SKIPPED},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	e.Use(WithUserID)

	e.GET("/api/health", s.healthHandler)

	v1 := e.Group("/api/v1")
	v1.GET("/export-formats", s.ListExportFormats)

	var projectGroup = v1.Group("/projects")
	projectGroup.GET("", s.ListProjects)
	projectGroup.GET("/:id", s.GetProjectByID)
	projectGroup.GET("/:id/images", s.ListImages)
	projectGroup.POST("/:id/exports", s.CreateExport)

	var annotationGroup = v1.Group("/annotations")
	annotationGroup.PATCH("/:id", s.UpdateAnnotation)

	var jobGroup = v1.Group("/jobs")
	jobGroup.GET("", s.ListJobs)
	jobGroup.GET("/:id", s.GetJobByID)
	jobGroup.GET("/:id/download", s.GetJobDownloadURL)
	jobGroup.GET("/:id/events", s.StreamJobEvents)

	return e
}
