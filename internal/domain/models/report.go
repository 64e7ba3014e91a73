package models

import "time"

type ReportStatus string

const (
	ReportDraft     ReportStatus = "DRAFT"
	ReportSubmitted ReportStatus = "SUBMITTED"
)

// TripReport is the one-per-trip regulatory record. Once SUBMITTED only the
// pdf path may change.
type TripReport struct {
	ID                  int64        `json:"id"`
	TripID              int64        `json:"tripId"`
	OrganizationID      int64        `json:"organizationId"`
	DriverID            int64        `json:"driverId"`
	StartOdometer       int64        `json:"startOdometer"`
	EndOdometer         int64        `json:"endOdometer"`
	TotalMiles          int64        `json:"totalMiles"`
	PickupTime          *time.Time   `json:"pickupTime,omitempty"`
	DropoffTime         *time.Time   `json:"dropoffTime,omitempty"`
	ServiceVerified     bool         `json:"serviceVerified"`
	ClientArrived       bool         `json:"clientArrived"`
	IncidentReported    bool         `json:"incidentReported"`
	IncidentDescription string       `json:"incidentDescription,omitempty"`
	Notes               string       `json:"notes,omitempty"`
	Status              ReportStatus `json:"status"`
	PDFFilePath         *string      `json:"pdfFilePath"`
	SubmittedAt         *time.Time   `json:"submittedAt,omitempty"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

func (r TripReport) Submitted() bool { return r.Status == ReportSubmitted }
