package models

import "time"

type NotificationType string

const (
	NotificationDriverPending       NotificationType = "DRIVER_PENDING"
	NotificationTripReportSubmitted NotificationType = "TRIP_REPORT_SUBMITTED"
	NotificationIncidentReported    NotificationType = "INCIDENT_REPORTED"
	NotificationTripCancelled       NotificationType = "TRIP_CANCELLED"
	NotificationTripNoShow          NotificationType = "TRIP_NO_SHOW"
)

type NotificationStatus string

const (
	NotificationUnread   NotificationStatus = "UNREAD"
	NotificationRead     NotificationStatus = "READ"
	NotificationArchived NotificationStatus = "ARCHIVED"
)

// NotificationMetadata holds foreign references; stored as JSON.
type NotificationMetadata struct {
	TripID   *int64 `json:"tripId,omitempty"`
	ReportID *int64 `json:"reportId,omitempty"`
	DriverID *int64 `json:"driverId,omitempty"`
}

type Notification struct {
	ID             int64                `json:"id"`
	OrganizationID int64                `json:"organizationId"`
	Type           NotificationType     `json:"type"`
	Title          string               `json:"title"`
	Message        string               `json:"message"`
	Status         NotificationStatus   `json:"status"`
	Metadata       NotificationMetadata `json:"metadata"`
	CreatedAt      time.Time            `json:"createdAt"`
	ReadAt         *time.Time           `json:"readAt,omitempty"`
}
