package handlers

import (
	"database/sql"

	"nemt/internal/services"
)

// Handler binds HTTP routes to the lifecycle services.
type Handler struct {
	Trips         services.TripService
	Reports       services.ReportService
	Notifications services.NotificationService
	Billing       services.BillingService
	Fleet         services.FleetService
	// DB is nil when running on the in-memory store.
	DB *sql.DB
}
