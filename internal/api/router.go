package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusflow/campusflow/internal/app"
	"github.com/campusflow/campusflow/internal/handlers"
	"github.com/campusflow/campusflow/internal/middleware"
	"github.com/campusflow/campusflow/internal/realtime"
	"github.com/campusflow/campusflow/internal/services"
)

// Dependencies carries the constructed services the router exposes.
type Dependencies struct {
	Assignments   *services.AssignmentService
	Alerts        *services.AlertService
	Announcements *services.AnnouncementService
	Sync          *services.SyncService
	Hub           *realtime.Hub
	UploadsDir    string
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Assignments == nil || deps.Alerts == nil || deps.Announcements == nil || deps.Sync == nil {
		return nil, fmt.Errorf("all services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	if deps.UploadsDir != "" {
		r.Static("/uploads", deps.UploadsDir)
	}

	assignmentHandler := handlers.NewAssignmentHandler(deps.Assignments, deps.Sync)
	alertHandler := handlers.NewAlertHandler(deps.Alerts, deps.Sync)
	announcementHandler := handlers.NewAnnouncementHandler(deps.Announcements, deps.Sync)
	syncHandler := handlers.NewSyncHandler(deps.Sync)
	uploadHandler := handlers.NewUploadHandler(deps.Assignments)
	dataHandler := handlers.NewDataHandler(deps.Assignments, deps.Alerts, deps.Announcements)

	api := r.Group("/api")

	assignments := api.Group("/assignments")
	{
		assignments.GET("", assignmentHandler.List)
		assignments.POST("", assignmentHandler.Create)
		assignments.POST("/:id/submit", assignmentHandler.Submit)
	}

	alerts := api.Group("/alerts")
	{
		alerts.GET("", alertHandler.List)
		alerts.POST("", alertHandler.Create)
	}

	announcements := api.Group("/announcements")
	{
		announcements.GET("", announcementHandler.List)
		announcements.POST("", announcementHandler.Create)
	}

	api.GET("/data", dataHandler.Combined)

	sync := api.Group("/sync")
	{
		sync.POST("", syncHandler.Feed)
		sync.POST("/external", syncHandler.Peer)
		sync.POST("/external/record", syncHandler.PeerRecord)
	}

	api.DELETE("/uploads/:filename", uploadHandler.Delete)

	if deps.Hub != nil {
		realtimeHandler := handlers.NewRealtimeHandler(deps.Hub, realtime.AllStreams()...)
		api.GET("/ws", realtimeHandler.Stream)
	}

	return r, nil
}
