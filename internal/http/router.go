package api

import (
	stdhttp "net/http"

	intconfig "nemt/internal/config"
	"nemt/internal/domain"
	h "nemt/internal/http/handlers"
	"nemt/internal/http/middleware"
	"nemt/internal/utils"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env, hd h.Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.AllowedOrigins()))

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.LogWarn("", "HTTP", "router", "failed to set trusted proxies", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"code":   "not_found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	staff := middleware.RequireRoles(domain.RoleAdmin, domain.RoleDispatcher)
	crew := middleware.RequireRoles(domain.RoleAdmin, domain.RoleDispatcher, domain.RoleDriver)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", hd.DBCheck)

		authed := api.Group("", middleware.Auth([]byte(env.JWTSecret)))
		authed.GET("/routes", staff, h.Routes)

		// Trips
		trips := authed.Group("/trips")
		trips.GET("", hd.ListTrips)
		trips.GET("/:id", hd.GetTrip)
		trips.POST("", hd.CreateTrip)
		trips.PUT("/:id", staff, hd.UpdateTrip)
		trips.POST("/:id/start", crew, hd.StartTrip)
		trips.POST("/:id/complete", crew, hd.CompleteTrip)
		trips.POST("/:id/cancel", staff, hd.CancelTrip)
		trips.POST("/:id/no-show", crew, hd.NoShowTrip)
		trips.POST("/:id/stops/:stopId/arrive", crew, hd.ArriveStop)
		trips.POST("/:id/stops/:stopId/complete", crew, hd.CompleteStop)
		trips.POST("/:id/members/:memberId/signature", crew, hd.CaptureSignature)

		// Reports
		reports := authed.Group("/reports")
		reports.GET("/trip/:id", hd.GetTripReport)
		reports.PUT("/trip/:id/draft", crew, hd.SaveReportDraft)
		reports.POST("/trip/:id/submit", crew, hd.SubmitReport)
		reports.GET("/:tripId/pdf", hd.GetReportPDF)
		reports.POST("/:tripId/pdf/regenerate", staff, hd.RegenerateReportPDF)

		// Notifications
		notifications := authed.Group("/notifications")
		notifications.GET("", hd.ListNotifications)
		notifications.GET("/unread", hd.ListUnreadNotifications)
		notifications.GET("/unread-count", hd.UnreadNotificationCount)
		notifications.PATCH("/read-all", hd.MarkAllNotificationsRead)
		notifications.PATCH("/:id/read", hd.MarkNotificationRead)
		notifications.PATCH("/:id/archive", hd.ArchiveNotification)

		// Fleet
		authed.GET("/drivers/:id", hd.GetDriver)
		authed.GET("/vehicles/:id", hd.GetVehicle)

		// Billing
		billing := authed.Group("/billing", staff)
		billing.GET("/unbilled", hd.ListUnbilledTrips)
		billing.POST("/generate", hd.GenerateClaims)
		billing.GET("/claims", hd.ListClaims)
		billing.POST("/claims/:id/void", hd.VoidClaim)
	}

	h.SetRouter(r)
	return r
}
