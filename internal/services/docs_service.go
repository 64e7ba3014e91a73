package services

import (
	"bytes"
	"fmt"
	"time"

	"nemt/internal/domain/models"
	"nemt/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// ReportDocument is everything printed on a trip report.
type ReportDocument struct {
	Trip    models.Trip
	Report  models.TripReport
	Stops   []models.TripStop
	Members []models.TripMember
	Driver  models.Driver
	Vehicle models.Vehicle
}

// ReportRenderer turns a submitted report into PDF bytes. Rendering must not
// depend on anything outside the document.
type ReportRenderer interface {
	Render(doc ReportDocument) ([]byte, error)
}

type PDFRenderer struct{}

func (PDFRenderer) Render(d ReportDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Trip Report #%d", d.Trip.ID), false)
	pdf.SetCreationDate(reportTimestamp(d.Report))
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "NEMT TRIP REPORT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	lines := []string{
		fmt.Sprintf("Trip #          : %d", d.Trip.ID),
		fmt.Sprintf("Trip Date       : %s", utils.FormatDate(d.Trip.TripDate)),
		fmt.Sprintf("Trip Type       : %s", utils.Safe(string(d.Trip.TripType), "-")),
		fmt.Sprintf("Mobility        : %s", utils.Safe(d.Trip.MobilityRequirement, "-")),
		fmt.Sprintf("Driver          : %s (license %s)", utils.Safe(d.Driver.Name, "-"), utils.Safe(d.Driver.LicenseNumber, "-")),
		fmt.Sprintf("Vehicle         : %s / %s", utils.Safe(d.Vehicle.VehicleCode, "-"), utils.Safe(d.Vehicle.PlateNumber, "-")),
		fmt.Sprintf("Pickup Time     : %s", utils.FormatDateTimePtr(d.Report.PickupTime)),
		fmt.Sprintf("Dropoff Time    : %s", utils.FormatDateTimePtr(d.Report.DropoffTime)),
		fmt.Sprintf("Start Odometer  : %d", d.Report.StartOdometer),
		fmt.Sprintf("End Odometer    : %d", d.Report.EndOdometer),
		fmt.Sprintf("Total Miles     : %s", utils.FormatMiles(d.Report.TotalMiles)),
		fmt.Sprintf("Service Verified: %s", yesNo(d.Report.ServiceVerified)),
		fmt.Sprintf("Client Arrived  : %s", yesNo(d.Report.ClientArrived)),
		fmt.Sprintf("Submitted At    : %s", utils.FormatDateTimePtr(d.Report.SubmittedAt)),
	}
	for _, s := range lines {
		pdf.Cell(0, 6, s)
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Stops")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, s := range d.Stops {
		odo := "-"
		if s.OdometerReading != nil {
			odo = fmt.Sprintf("%d", *s.OdometerReading)
		}
		pdf.MultiCell(0, 5, fmt.Sprintf("%d. %s  %s\n   arrived %s  departed %s  odometer %s",
			s.StopOrder, s.StopType, utils.Safe(s.Address, "-"),
			utils.FormatDateTimePtr(s.ActualArrivalTime), utils.FormatDateTimePtr(s.ActualDepartureTime), odo,
		), "", "", false)
		pdf.Ln(1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Members")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, m := range d.Members {
		pdf.MultiCell(0, 5, memberLine(m), "", "", false)
		pdf.Ln(1)
	}

	if d.Report.IncidentReported {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Incident")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, d.Report.IncidentDescription, "", "", false)
	}
	if d.Report.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, "Notes: "+d.Report.Notes, "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func memberLine(m models.TripMember) string {
	line := fmt.Sprintf("%s (member %d) - %s", utils.Safe(m.MemberName, "-"), m.MemberID, utils.Safe(m.MemberStatus, "-"))
	switch {
	case !m.Signed():
		return line + "\n   not signed"
	case m.IsProxySignature:
		return fmt.Sprintf("%s\n   signed by proxy %s (%s) at %s, reason: %s",
			line, m.ProxySignerName, m.ProxyRelationship, utils.FormatDateTimePtr(m.SignedAt), m.ProxyReason)
	default:
		return fmt.Sprintf("%s\n   signed at %s", line, utils.FormatDateTimePtr(m.SignedAt))
	}
}

func reportTimestamp(r models.TripReport) time.Time {
	if r.SubmittedAt != nil {
		return *r.SubmittedAt
	}
	return r.UpdatedAt
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
