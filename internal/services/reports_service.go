package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nemt/internal/domain"
	"nemt/internal/domain/models"
	"nemt/internal/repositories"
	"nemt/internal/storage"
	"nemt/internal/utils"
)

type SubmitReportInput struct {
	DriverID            int64                  `json:"driverId"`
	StartOdometer       int64                  `json:"startOdometer"`
	EndOdometer         int64                  `json:"endOdometer"`
	PickupTime          *time.Time             `json:"pickupTime"`
	DropoffTime         *time.Time             `json:"dropoffTime"`
	ServiceVerified     bool                   `json:"serviceVerified"`
	ClientArrived       bool                   `json:"clientArrived"`
	IncidentReported    bool                   `json:"incidentReported"`
	IncidentDescription string                 `json:"incidentDescription"`
	Notes               string                 `json:"notes"`
	Signature           *domain.SignatureInput `json:"signature"`
}

// SubmitResult carries the persisted report. Replayed is set when the report
// had already been submitted and nothing was changed. Warnings list
// best-effort steps that failed after commit.
type SubmitResult struct {
	Report   models.TripReport `json:"report"`
	Replayed bool              `json:"replayed"`
	Warnings []string          `json:"warnings"`
}

// ReportService generates the one report per trip, reconciles mileage and
// closes the trip.
type ReportService struct {
	Store         repositories.Store
	Notifications Notifier
	Renderer      ReportRenderer
	Files         storage.ReportFiles
	Now           func() time.Time
}

func (s ReportService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utils.NowUTC()
}

func (s ReportService) renderer() ReportRenderer {
	if s.Renderer != nil {
		return s.Renderer
	}
	return PDFRenderer{}
}

func (s ReportService) GetByTrip(ctx context.Context, rc domain.RequestContext, tripID int64) (models.TripReport, error) {
	r := s.Store.Repos()
	if _, err := r.Trips.GetByID(ctx, rc.OrganizationID, tripID); err != nil {
		return models.TripReport{}, err
	}
	return r.Reports.GetByTrip(ctx, tripID)
}

// Submit persists the report, moves the vehicle odometer and completes the
// trip in one transaction. A second submit for the same trip returns the
// stored report unchanged.
func (s ReportService) Submit(ctx context.Context, rc domain.RequestContext, tripID int64, in SubmitReportInput) (SubmitResult, error) {
	r := s.Store.Repos()
	if _, err := r.Trips.GetByID(ctx, rc.OrganizationID, tripID); err != nil {
		return SubmitResult{}, err
	}
	existing, err := r.Reports.GetByTrip(ctx, tripID)
	if err != nil && !domain.IsNotFound(err) {
		return SubmitResult{}, err
	}
	if err == nil && existing.Submitted() {
		return SubmitResult{Report: existing, Replayed: true, Warnings: []string{}}, nil
	}

	miles, err := domain.ComputeMiles(in.StartOdometer, in.EndOdometer)
	if err != nil {
		return SubmitResult{}, err
	}
	in.IncidentDescription = strings.TrimSpace(in.IncidentDescription)
	if in.IncidentReported && in.IncidentDescription == "" {
		return SubmitResult{}, domain.ValidationError{Field: "incidentDescription", Msg: "required when an incident is reported"}
	}
	if in.Signature != nil {
		if err := in.Signature.Validate(); err != nil {
			return SubmitResult{}, err
		}
	}

	var (
		report   models.TripReport
		replayed bool
	)
	err = s.Store.InTx(ctx, func(r repositories.Repos) error {
		trip, err := r.Trips.LockByID(ctx, rc.OrganizationID, tripID)
		if err != nil {
			return err
		}
		current, err := r.Reports.LockByTrip(ctx, tripID)
		hasDraft := err == nil
		if err != nil && !domain.IsNotFound(err) {
			return err
		}
		if hasDraft && current.Submitted() {
			report, replayed = current, true
			return nil
		}

		driverID := in.DriverID
		if driverID == 0 && trip.DriverID != nil {
			driverID = *trip.DriverID
		}
		if trip.DriverID == nil || *trip.DriverID != driverID {
			return domain.ValidationError{Field: "driverId", Msg: "driver is not assigned to this trip"}
		}
		if err := domain.CanOperate(trip, domain.TransitionSubmitReport); err != nil {
			return err
		}
		stops, err := r.Stops.ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		if !domain.AllStopsCompleted(stops) {
			return domain.InvalidStateTransition{
				Current:      string(trip.Status),
				Transition:   string(domain.TransitionSubmitReport),
				Precondition: "all stops must be completed",
			}
		}
		vehicle, err := r.Vehicles.LockByID(ctx, rc.OrganizationID, *trip.VehicleID)
		if err != nil {
			return err
		}
		if in.EndOdometer < vehicle.Odometer {
			return domain.InvalidMileageError{Start: vehicle.Odometer, End: in.EndOdometer, Msg: "end odometer is below the vehicle odometer"}
		}
		domain.SortStops(stops)
		if err := domain.ReconcileOdometers(trip, stops, vehicle.Odometer, in.StartOdometer, in.EndOdometer); err != nil {
			return err
		}

		now := s.now()
		report = models.TripReport{
			TripID:              tripID,
			OrganizationID:      rc.OrganizationID,
			DriverID:            driverID,
			StartOdometer:       in.StartOdometer,
			EndOdometer:         in.EndOdometer,
			TotalMiles:          miles,
			PickupTime:          in.PickupTime,
			DropoffTime:         in.DropoffTime,
			ServiceVerified:     in.ServiceVerified,
			ClientArrived:       in.ClientArrived,
			IncidentReported:    in.IncidentReported,
			IncidentDescription: in.IncidentDescription,
			Notes:               strings.TrimSpace(in.Notes),
			Status:              models.ReportSubmitted,
			SubmittedAt:         &now,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if hasDraft {
			report.ID = current.ID
			report.CreatedAt = current.CreatedAt
			if err := r.Reports.Update(ctx, report); err != nil {
				return err
			}
		} else if err := r.Reports.Create(ctx, &report); err != nil {
			return err
		}

		if err := r.Vehicles.UpdateOdometer(ctx, vehicle.ID, in.EndOdometer); err != nil {
			return err
		}

		if in.Signature != nil {
			member, err := r.Members.GetByID(ctx, tripID, in.Signature.MemberID)
			if err != nil {
				return err
			}
			if err := r.Members.Update(ctx, domain.ApplySignature(member, *in.Signature, now)); err != nil {
				return err
			}
		}

		trip.ReportStatus = string(models.ReportSubmitted)
		if in.PickupTime != nil {
			trip.StartedAt = in.PickupTime
		}
		if in.DropoffTime != nil {
			trip.CompletedAt = in.DropoffTime
		} else {
			trip.CompletedAt = &now
		}
		trip.Status = models.TripCompleted
		trip.UpdatedAt = now
		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return SubmitResult{}, err
	}
	if replayed {
		return SubmitResult{Report: report, Replayed: true, Warnings: []string{}}, nil
	}

	utils.LogEvent(rc.RequestID, "reports", "submit", fmt.Sprintf("trip_id=%d report_id=%d miles=%d", tripID, report.ID, report.TotalMiles))

	warnings := []string{}
	if path, err := s.renderAndStore(ctx, rc, report); err != nil {
		utils.LogWarn(rc.RequestID, "reports", "render_pdf", fmt.Sprintf("trip_id=%d", tripID), err)
		warnings = append(warnings, fmt.Sprintf("report pdf not generated: %v", err))
	} else {
		report.PDFFilePath = &path
	}
	warnings = append(warnings, s.notifySubmitted(ctx, rc, report)...)

	return SubmitResult{Report: report, Warnings: warnings}, nil
}

func (s ReportService) notifySubmitted(ctx context.Context, rc domain.RequestContext, report models.TripReport) []string {
	if s.Notifications == nil {
		return nil
	}
	tripID, reportID, driverID := report.TripID, report.ID, report.DriverID
	in := NotificationInput{
		Type:     models.NotificationTripReportSubmitted,
		Title:    "Trip report submitted",
		Message:  fmt.Sprintf("Trip #%d report submitted, %s miles", report.TripID, utils.FormatMiles(report.TotalMiles)),
		Metadata: models.NotificationMetadata{TripID: &tripID, ReportID: &reportID, DriverID: &driverID},
	}
	if report.IncidentReported {
		in.Type = models.NotificationIncidentReported
		in.Title = "Incident reported"
		in.Message = fmt.Sprintf("Trip #%d: %s", report.TripID, report.IncidentDescription)
	}
	if _, err := s.Notifications.Dispatch(ctx, rc, in); err != nil {
		utils.LogWarn(rc.RequestID, "reports", "notify", string(in.Type), err)
		return []string{fmt.Sprintf("notification %s not recorded: %v", in.Type, err)}
	}
	return nil
}

// SaveDraft creates or replaces the DRAFT report. Drafts have no side effects
// on the trip beyond report_status.
func (s ReportService) SaveDraft(ctx context.Context, rc domain.RequestContext, tripID int64, in SubmitReportInput) (models.TripReport, error) {
	if in.StartOdometer < 0 || in.EndOdometer < 0 {
		return models.TripReport{}, domain.ValidationError{Field: "odometer", Msg: "odometer readings must not be negative"}
	}
	var out models.TripReport
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		trip, err := r.Trips.LockByID(ctx, rc.OrganizationID, tripID)
		if err != nil {
			return err
		}
		current, err := r.Reports.LockByTrip(ctx, tripID)
		hasDraft := err == nil
		if err != nil && !domain.IsNotFound(err) {
			return err
		}
		if hasDraft && current.Submitted() {
			return domain.ConflictError{Resource: "trip report", Msg: "report already submitted"}
		}
		if err := domain.CanOperate(trip, domain.TransitionSubmitReport); err != nil {
			return err
		}

		driverID := in.DriverID
		if driverID == 0 && trip.DriverID != nil {
			driverID = *trip.DriverID
		}
		var miles int64
		if in.EndOdometer >= in.StartOdometer {
			miles = in.EndOdometer - in.StartOdometer
		}
		now := s.now()
		out = models.TripReport{
			TripID:              tripID,
			OrganizationID:      rc.OrganizationID,
			DriverID:            driverID,
			StartOdometer:       in.StartOdometer,
			EndOdometer:         in.EndOdometer,
			TotalMiles:          miles,
			PickupTime:          in.PickupTime,
			DropoffTime:         in.DropoffTime,
			ServiceVerified:     in.ServiceVerified,
			ClientArrived:       in.ClientArrived,
			IncidentReported:    in.IncidentReported,
			IncidentDescription: strings.TrimSpace(in.IncidentDescription),
			Notes:               strings.TrimSpace(in.Notes),
			Status:              models.ReportDraft,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if hasDraft {
			out.ID = current.ID
			out.CreatedAt = current.CreatedAt
			if err := r.Reports.Update(ctx, out); err != nil {
				return err
			}
		} else if err := r.Reports.Create(ctx, &out); err != nil {
			return err
		}

		trip.ReportStatus = string(models.ReportDraft)
		trip.UpdatedAt = now
		return r.Trips.Update(ctx, trip)
	})
	if err != nil {
		return models.TripReport{}, err
	}
	utils.LogEvent(rc.RequestID, "reports", "save_draft", fmt.Sprintf("trip_id=%d report_id=%d", tripID, out.ID))
	return out, nil
}

// RegeneratePDF re-renders a submitted report and overwrites its file.
func (s ReportService) RegeneratePDF(ctx context.Context, rc domain.RequestContext, tripID int64) (models.TripReport, error) {
	report, err := s.submittedReport(ctx, rc, tripID)
	if err != nil {
		return models.TripReport{}, err
	}
	path, err := s.renderAndStore(ctx, rc, report)
	if err != nil {
		return models.TripReport{}, err
	}
	report.PDFFilePath = &path
	utils.LogEvent(rc.RequestID, "reports", "regenerate_pdf", fmt.Sprintf("trip_id=%d path=%s", tripID, path))
	return report, nil
}

// OpenPDF returns the absolute path of the report file, rendering it first
// when it was never generated or has gone missing.
func (s ReportService) OpenPDF(ctx context.Context, rc domain.RequestContext, tripID int64) (string, error) {
	report, err := s.submittedReport(ctx, rc, tripID)
	if err != nil {
		return "", err
	}
	if report.PDFFilePath != nil && s.Files.Exists(*report.PDFFilePath) {
		return s.Files.Abs(*report.PDFFilePath), nil
	}
	path, err := s.renderAndStore(ctx, rc, report)
	if err != nil {
		return "", err
	}
	return s.Files.Abs(path), nil
}

func (s ReportService) submittedReport(ctx context.Context, rc domain.RequestContext, tripID int64) (models.TripReport, error) {
	r := s.Store.Repos()
	trip, err := r.Trips.GetByID(ctx, rc.OrganizationID, tripID)
	if err != nil {
		return models.TripReport{}, err
	}
	report, err := r.Reports.GetByTrip(ctx, tripID)
	if err != nil {
		return models.TripReport{}, err
	}
	if !report.Submitted() {
		return models.TripReport{}, domain.InvalidStateTransition{
			Current:      string(trip.Status),
			Transition:   "render-pdf",
			Precondition: "trip report must be submitted",
		}
	}
	return report, nil
}

// renderAndStore writes the PDF and records its relative path on the report.
func (s ReportService) renderAndStore(ctx context.Context, rc domain.RequestContext, report models.TripReport) (string, error) {
	doc, err := s.loadDocument(ctx, rc, report)
	if err != nil {
		return "", domain.StorageError{Op: "load", Err: err}
	}
	data, err := s.renderer().Render(doc)
	if err != nil {
		return "", domain.StorageError{Op: "render", Err: err}
	}
	submittedAt := report.UpdatedAt
	if report.SubmittedAt != nil {
		submittedAt = *report.SubmittedAt
	}
	path := storage.ReportPath(submittedAt, report.TripID)
	if err := s.Files.Write(path, data); err != nil {
		return "", err
	}
	if err := s.Store.Repos().Reports.SetPDFPath(ctx, report.ID, path); err != nil {
		return "", domain.StorageError{Op: "record", Path: path, Err: err}
	}
	return path, nil
}

func (s ReportService) loadDocument(ctx context.Context, rc domain.RequestContext, report models.TripReport) (ReportDocument, error) {
	r := s.Store.Repos()
	trip, err := r.Trips.GetByID(ctx, rc.OrganizationID, report.TripID)
	if err != nil {
		return ReportDocument{}, err
	}
	stops, err := r.Stops.ListByTrip(ctx, report.TripID)
	if err != nil {
		return ReportDocument{}, err
	}
	members, err := r.Members.ListByTrip(ctx, report.TripID)
	if err != nil {
		return ReportDocument{}, err
	}
	doc := ReportDocument{Trip: trip, Report: report, Stops: stops, Members: members}
	if driver, err := r.Drivers.GetByID(ctx, rc.OrganizationID, report.DriverID); err == nil {
		doc.Driver = driver
	}
	if trip.VehicleID != nil {
		if vehicle, err := r.Vehicles.GetByID(ctx, rc.OrganizationID, *trip.VehicleID); err == nil {
			doc.Vehicle = vehicle
		}
	}
	return doc, nil
}
