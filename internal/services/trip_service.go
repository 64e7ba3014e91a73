package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nemt/internal/domain"
	"nemt/internal/domain/models"
	"nemt/internal/repositories"
	"nemt/internal/utils"
)

type StopInput struct {
	StopType      models.StopType `json:"stopType"`
	StopOrder     int             `json:"stopOrder"`
	Address       string          `json:"address"`
	ScheduledTime *time.Time      `json:"scheduledTime"`
	Latitude      *float64        `json:"latitude"`
	Longitude     *float64        `json:"longitude"`
}

type MemberInput struct {
	MemberID   int64  `json:"memberId"`
	MemberName string `json:"memberName"`
}

type CreateTripInput struct {
	TripDate            string          `json:"tripDate"`
	TripType            models.TripType `json:"tripType"`
	DriverID            *int64          `json:"driverId"`
	VehicleID           *int64          `json:"vehicleId"`
	MobilityRequirement string          `json:"mobilityRequirement"`
	ProcedureCode       string          `json:"procedureCode"`
	Notes               string          `json:"notes"`
	RequiresApproval    bool            `json:"requiresApproval"`
	Stops               []StopInput     `json:"stops"`
	Members             []MemberInput   `json:"members"`
}

// UpdateTripInput is a partial update; nil fields are left unchanged.
type UpdateTripInput struct {
	TripDate            *string `json:"tripDate"`
	DriverID            *int64  `json:"driverId"`
	VehicleID           *int64  `json:"vehicleId"`
	MobilityRequirement *string `json:"mobilityRequirement"`
	ProcedureCode       *string `json:"procedureCode"`
	Notes               *string `json:"notes"`
	Status              *string `json:"status"`
}

type StartTripInput struct {
	StartOdometer *int64 `json:"startOdometer"`
}

type GPSInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type CompleteStopInput struct {
	OdometerReading *int64   `json:"odometerReading"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

// TripService owns the trip state machine and the stop sequencer.
type TripService struct {
	Store         repositories.Store
	Notifications Notifier
	Now           func() time.Time
}

func (s TripService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utils.NowUTC()
}

func validTripType(t models.TripType) bool {
	switch t {
	case models.TripTypePickup, models.TripTypeDropoff, models.TripTypeRoundTrip:
		return true
	}
	return false
}

func normalizeMobility(v string) string {
	v = utils.NormalizeCode(v)
	if v == "" {
		return models.MobilityAmbulatory
	}
	return v
}

func (s TripService) Create(ctx context.Context, rc domain.RequestContext, in CreateTripInput) (models.TripDetail, error) {
	date, err := utils.ParseDate(in.TripDate)
	if err != nil {
		return models.TripDetail{}, domain.ValidationError{Field: "tripDate", Msg: "must be YYYY-MM-DD", Err: err}
	}
	in.TripType = models.TripType(utils.NormalizeCode(string(in.TripType)))
	if !validTripType(in.TripType) {
		return models.TripDetail{}, domain.ValidationError{Field: "tripType", Msg: "must be PICKUP, DROPOFF or ROUND_TRIP"}
	}
	if err := checkProcedureCode(in.ProcedureCode); err != nil {
		return models.TripDetail{}, err
	}
	if len(in.Members) == 0 {
		return models.TripDetail{}, domain.ValidationError{Field: "members", Msg: "at least one member is required"}
	}
	seen := map[int64]bool{}
	for _, m := range in.Members {
		if m.MemberID <= 0 {
			return models.TripDetail{}, domain.ValidationError{Field: "members", Msg: "memberId is required"}
		}
		if seen[m.MemberID] {
			return models.TripDetail{}, domain.ValidationError{Field: "members", Msg: fmt.Sprintf("member %d listed twice", m.MemberID)}
		}
		seen[m.MemberID] = true
	}

	plan := make([]models.TripStop, 0, len(in.Stops))
	for _, st := range in.Stops {
		plan = append(plan, models.TripStop{
			StopType:      models.StopType(utils.NormalizeCode(string(st.StopType))),
			StopOrder:     st.StopOrder,
			Address:       utils.NormalizeSpace(st.Address),
			ScheduledTime: st.ScheduledTime,
			Latitude:      st.Latitude,
			Longitude:     st.Longitude,
		})
	}
	stops, err := domain.ValidateStopPlan(plan)
	if err != nil {
		return models.TripDetail{}, err
	}

	status := models.TripScheduled
	if in.RequiresApproval || rc.Role == domain.RoleMember {
		status = models.TripPendingApproval
	}
	now := s.now()
	trip := models.Trip{
		OrganizationID:      rc.OrganizationID,
		TripDate:            date,
		TripType:            in.TripType,
		Status:              status,
		DriverID:            in.DriverID,
		VehicleID:           in.VehicleID,
		MobilityRequirement: normalizeMobility(in.MobilityRequirement),
		ProcedureCode:       utils.NormalizeCode(in.ProcedureCode),
		Notes:               strings.TrimSpace(in.Notes),
		CreatedBy:           rc.UserID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	var out models.TripDetail
	err = s.Store.InTx(ctx, func(r repositories.Repos) error {
		if err := checkAssignment(ctx, r, rc.OrganizationID, trip.DriverID, trip.VehicleID); err != nil {
			return err
		}
		if err := r.Trips.Create(ctx, &trip); err != nil {
			return err
		}
		for i := range stops {
			stops[i].TripID = trip.ID
			if err := r.Stops.Create(ctx, &stops[i]); err != nil {
				return err
			}
		}
		members := make([]models.TripMember, 0, len(in.Members))
		for _, m := range in.Members {
			member := models.TripMember{
				TripID:       trip.ID,
				MemberID:     m.MemberID,
				MemberName:   utils.NormalizeSpace(m.MemberName),
				MemberStatus: models.MemberScheduled,
			}
			if err := r.Members.Create(ctx, &member); err != nil {
				return err
			}
			members = append(members, member)
		}
		out = models.TripDetail{Trip: trip, Stops: stops, Members: members}
		return nil
	})
	if err != nil {
		return models.TripDetail{}, err
	}

	utils.LogEvent(rc.RequestID, "trips", "create", fmt.Sprintf("trip_id=%d status=%s stops=%d members=%d", trip.ID, trip.Status, len(stops), len(out.Members)))
	s.notifyDriverPending(ctx, rc, out.Trip)
	return out, nil
}

// checkAssignment verifies that assigned driver and vehicle belong to the organization.
func checkAssignment(ctx context.Context, r repositories.Repos, orgID int64, driverID, vehicleID *int64) error {
	if driverID != nil {
		if _, err := r.Drivers.GetByID(ctx, orgID, *driverID); err != nil {
			if domain.IsNotFound(err) {
				return domain.ValidationError{Field: "driverId", Msg: "driver not found", Err: err}
			}
			return err
		}
	}
	if vehicleID != nil {
		if _, err := r.Vehicles.GetByID(ctx, orgID, *vehicleID); err != nil {
			if domain.IsNotFound(err) {
				return domain.ValidationError{Field: "vehicleId", Msg: "vehicle not found", Err: err}
			}
			return err
		}
	}
	return nil
}

// notifyDriverPending tells dispatch that a scheduled trip still has no driver.
// checkProcedureCode accepts an empty override or a billable base procedure.
func checkProcedureCode(code string) error {
	if strings.TrimSpace(code) == "" || utils.IsBaseProcedure(code) {
		return nil
	}
	return domain.ValidationError{Field: "procedureCode", Msg: fmt.Sprintf("unknown procedure code %q", strings.TrimSpace(code))}
}

func (s TripService) notifyDriverPending(ctx context.Context, rc domain.RequestContext, trip models.Trip) []string {
	if trip.Status != models.TripScheduled || trip.DriverID != nil {
		return nil
	}
	tripID := trip.ID
	return s.notify(ctx, rc, NotificationInput{
		Type:     models.NotificationDriverPending,
		Title:    "Driver assignment pending",
		Message:  fmt.Sprintf("Trip #%d on %s has no driver assigned", trip.ID, utils.FormatDate(trip.TripDate)),
		Metadata: models.NotificationMetadata{TripID: &tripID},
	})
}

func (s TripService) notify(ctx context.Context, rc domain.RequestContext, in NotificationInput) []string {
	if s.Notifications == nil {
		return nil
	}
	if _, err := s.Notifications.Dispatch(ctx, rc, in); err != nil {
		utils.LogWarn(rc.RequestID, "trips", "notify", string(in.Type), err)
		return []string{fmt.Sprintf("notification %s not recorded: %v", in.Type, err)}
	}
	return nil
}

func (s TripService) Get(ctx context.Context, rc domain.RequestContext, id int64) (models.TripDetail, error) {
	r := s.Store.Repos()
	trip, err := r.Trips.GetByID(ctx, rc.OrganizationID, id)
	if err != nil {
		return models.TripDetail{}, err
	}
	stops, err := r.Stops.ListByTrip(ctx, id)
	if err != nil {
		return models.TripDetail{}, err
	}
	members, err := r.Members.ListByTrip(ctx, id)
	if err != nil {
		return models.TripDetail{}, err
	}
	return models.TripDetail{Trip: trip, Stops: stops, Members: members}, nil
}

func (s TripService) List(ctx context.Context, rc domain.RequestContext, f models.TripFilter) ([]models.Trip, error) {
	return s.Store.Repos().Trips.List(ctx, rc.OrganizationID, f)
}

// Update edits assignment fields before the trip starts. Sending status
// SCHEDULED approves a pending trip.
func (s TripService) Update(ctx context.Context, rc domain.RequestContext, id int64, in UpdateTripInput) (models.Trip, error) {
	var (
		out      models.Trip
		approved bool
	)
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		trip, err := r.Trips.LockByID(ctx, rc.OrganizationID, id)
		if err != nil {
			return err
		}
		if trip.Status != models.TripPendingApproval && trip.Status != models.TripScheduled {
			return domain.InvalidStateTransition{
				Current:      string(trip.Status),
				Transition:   "update",
				Precondition: "status must be PENDING_APPROVAL or SCHEDULED",
			}
		}

		if in.TripDate != nil {
			date, err := utils.ParseDate(*in.TripDate)
			if err != nil {
				return domain.ValidationError{Field: "tripDate", Msg: "must be YYYY-MM-DD", Err: err}
			}
			trip.TripDate = date
		}
		if in.DriverID != nil {
			trip.DriverID = in.DriverID
		}
		if in.VehicleID != nil {
			trip.VehicleID = in.VehicleID
		}
		if in.MobilityRequirement != nil {
			trip.MobilityRequirement = normalizeMobility(*in.MobilityRequirement)
		}
		if in.ProcedureCode != nil {
			if err := checkProcedureCode(*in.ProcedureCode); err != nil {
				return err
			}
			trip.ProcedureCode = utils.NormalizeCode(*in.ProcedureCode)
		}
		if in.Notes != nil {
			trip.Notes = strings.TrimSpace(*in.Notes)
		}
		if err := checkAssignment(ctx, r, rc.OrganizationID, in.DriverID, in.VehicleID); err != nil {
			return err
		}

		if in.Status != nil {
			want := models.TripStatus(utils.NormalizeCode(*in.Status))
			switch {
			case want == trip.Status:
			case want == models.TripScheduled:
				if err := domain.CanApprove(trip); err != nil {
					return err
				}
				trip.Status = models.TripScheduled
				approved = true
			default:
				return domain.InvalidStateTransition{
					Current:      string(trip.Status),
					Transition:   "update",
					Precondition: fmt.Sprintf("status %s cannot be set directly", want),
				}
			}
		}

		trip.UpdatedAt = s.now()
		if err := r.Trips.Update(ctx, trip); err != nil {
			return err
		}
		out = trip
		return nil
	})
	if err != nil {
		return models.Trip{}, err
	}
	utils.LogEvent(rc.RequestID, "trips", "update", fmt.Sprintf("trip_id=%d status=%s", out.ID, out.Status))
	if approved {
		s.notifyDriverPending(ctx, rc, out)
	}
	return out, nil
}

// Start moves a scheduled trip under way and records the starting odometer,
// defaulting to the vehicle's current reading.
func (s TripService) Start(ctx context.Context, rc domain.RequestContext, id int64, in StartTripInput) (models.Trip, error) {
	if in.StartOdometer != nil && *in.StartOdometer < 0 {
		return models.Trip{}, domain.ValidationError{Field: "startOdometer", Msg: "must not be negative"}
	}
	var out models.Trip
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		trip, err := r.Trips.LockByID(ctx, rc.OrganizationID, id)
		if err != nil {
			return err
		}
		if err := domain.CanStart(trip); err != nil {
			return err
		}
		vehicle, err := r.Vehicles.GetByID(ctx, rc.OrganizationID, *trip.VehicleID)
		if err != nil {
			return err
		}
		start := vehicle.Odometer
		if in.StartOdometer != nil {
			if *in.StartOdometer < vehicle.Odometer {
				return domain.InvalidMileageError{Start: vehicle.Odometer, End: *in.StartOdometer, Msg: "start odometer is below the vehicle odometer"}
			}
			start = *in.StartOdometer
		}

		now := s.now()
		trip.Status = models.TripInProgress
		trip.StartedAt = &now
		trip.StartOdometer = &start
		trip.UpdatedAt = now
		if err := r.Trips.Update(ctx, trip); err != nil {
			return err
		}
		out = trip
		return nil
	})
	if err != nil {
		return models.Trip{}, err
	}
	utils.LogEvent(rc.RequestID, "trips", "start", fmt.Sprintf("trip_id=%d start_odometer=%d", out.ID, *out.StartOdometer))
	return out, nil
}

func (s TripService) ArriveStop(ctx context.Context, rc domain.RequestContext, tripID, stopID int64, in GPSInput) (models.TripStop, error) {
	var out models.TripStop
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		trip, err := r.Trips.LockByID(ctx, rc.OrganizationID, tripID)
		if err != nil {
			return err
		}
		stops, err := r.Stops.ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		domain.SortStops(stops)
		idx, err := domain.CheckArrive(trip, stops, stopID)
		if err != nil {
			return err
		}

		stop := stops[idx]
		now := s.now()
		stop.ActualArrivalTime = &now
		applyGPS(&stop, in.Latitude, in.Longitude)
		if err := r.Stops.Update(ctx, stop); err != nil {
			return err
		}
		out = stop
		return nil
	})
	if err != nil {
		return models.TripStop{}, err
	}
	utils.LogEvent(rc.RequestID, "trips", "stop_arrive", fmt.Sprintf("trip_id=%d stop_order=%d", tripID, out.StopOrder))
	return out, nil
}

// CompleteStop departs a stop. Members go ON_BOARD at pickups and
// DROPPED_OFF at the final stop.
func (s TripService) CompleteStop(ctx context.Context, rc domain.RequestContext, tripID, stopID int64, in CompleteStopInput) (models.TripStop, error) {
	if in.OdometerReading != nil && *in.OdometerReading < 0 {
		return models.TripStop{}, domain.ValidationError{Field: "odometerReading", Msg: "must not be negative"}
	}
	var out models.TripStop
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		trip, err := r.Trips.LockByID(ctx, rc.OrganizationID, tripID)
		if err != nil {
			return err
		}
		stops, err := r.Stops.ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		domain.SortStops(stops)
		idx, err := domain.CheckComplete(trip, stops, stopID, in.OdometerReading)
		if err != nil {
			return err
		}

		stop := stops[idx]
		now := s.now()
		stop.ActualDepartureTime = &now
		if in.OdometerReading != nil {
			odo := *in.OdometerReading
			stop.OdometerReading = &odo
		}
		applyGPS(&stop, in.Latitude, in.Longitude)
		if err := r.Stops.Update(ctx, stop); err != nil {
			return err
		}

		final := idx == len(stops)-1
		if stop.StopType == models.StopPickup || final {
			members, err := r.Members.ListByTrip(ctx, tripID)
			if err != nil {
				return err
			}
			for _, m := range members {
				next := m.MemberStatus
				switch {
				case final && (m.MemberStatus == models.MemberOnBoard || m.MemberStatus == models.MemberScheduled):
					next = models.MemberDroppedOff
				case !final && m.MemberStatus == models.MemberScheduled:
					next = models.MemberOnBoard
				}
				if next == m.MemberStatus {
					continue
				}
				m.MemberStatus = next
				if err := r.Members.Update(ctx, m); err != nil {
					return err
				}
			}
		}
		out = stop
		return nil
	})
	if err != nil {
		return models.TripStop{}, err
	}
	utils.LogEvent(rc.RequestID, "trips", "stop_complete", fmt.Sprintf("trip_id=%d stop_order=%d", tripID, out.StopOrder))
	return out, nil
}

func applyGPS(stop *models.TripStop, lat, lon *float64) {
	if lat != nil {
		v := *lat
		stop.Latitude = &v
	}
	if lon != nil {
		v := *lon
		stop.Longitude = &v
	}
}

// CaptureSignature stores a direct or proxy signature on a trip member.
// Re-signing overwrites the previous signature.
func (s TripService) CaptureSignature(ctx context.Context, rc domain.RequestContext, tripID, memberID int64, in domain.SignatureInput) (models.TripMember, error) {
	if err := in.Validate(); err != nil {
		return models.TripMember{}, err
	}
	var out models.TripMember
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		trip, err := r.Trips.LockByID(ctx, rc.OrganizationID, tripID)
		if err != nil {
			return err
		}
		if err := domain.CanOperate(trip, domain.TransitionSign); err != nil {
			return err
		}
		member, err := r.Members.GetByID(ctx, tripID, memberID)
		if err != nil {
			return err
		}
		member = domain.ApplySignature(member, in, s.now())
		if err := r.Members.Update(ctx, member); err != nil {
			return err
		}
		out = member
		return nil
	})
	if err != nil {
		return models.TripMember{}, err
	}
	utils.LogEvent(rc.RequestID, "trips", "signature", fmt.Sprintf("trip_id=%d member_id=%d proxy=%t", tripID, out.MemberID, out.IsProxySignature))
	return out, nil
}

// Complete closes a trip whose stops are done and whose report is submitted.
func (s TripService) Complete(ctx context.Context, rc domain.RequestContext, id int64) (models.Trip, error) {
	var out models.Trip
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		trip, err := r.Trips.LockByID(ctx, rc.OrganizationID, id)
		if err != nil {
			return err
		}
		stops, err := r.Stops.ListByTrip(ctx, id)
		if err != nil {
			return err
		}
		var report *models.TripReport
		rep, err := r.Reports.GetByTrip(ctx, id)
		switch {
		case err == nil:
			report = &rep
		case !domain.IsNotFound(err):
			return err
		}
		if err := domain.CanComplete(trip, stops, report); err != nil {
			return err
		}

		now := s.now()
		trip.Status = models.TripCompleted
		trip.CompletedAt = &now
		trip.UpdatedAt = now
		if err := r.Trips.Update(ctx, trip); err != nil {
			return err
		}
		out = trip
		return nil
	})
	if err != nil {
		return models.Trip{}, err
	}
	utils.LogEvent(rc.RequestID, "trips", "complete", fmt.Sprintf("trip_id=%d", out.ID))
	return out, nil
}

func (s TripService) Cancel(ctx context.Context, rc domain.RequestContext, id int64, reason string) (models.Trip, []string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.Trip{}, nil, domain.ValidationError{Field: "reason", Msg: "cancellation reason is required"}
	}
	var out models.Trip
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		trip, err := r.Trips.LockByID(ctx, rc.OrganizationID, id)
		if err != nil {
			return err
		}
		if err := domain.CanCancel(trip); err != nil {
			return err
		}
		now := s.now()
		by := rc.UserID
		trip.Status = models.TripCancelled
		trip.CancellationReason = reason
		trip.CancelledBy = &by
		trip.CancelledAt = &now
		trip.UpdatedAt = now
		if err := r.Trips.Update(ctx, trip); err != nil {
			return err
		}
		out = trip
		return nil
	})
	if err != nil {
		return models.Trip{}, nil, err
	}

	utils.LogEvent(rc.RequestID, "trips", "cancel", fmt.Sprintf("trip_id=%d", out.ID))
	tripID := out.ID
	warnings := s.notify(ctx, rc, NotificationInput{
		Type:     models.NotificationTripCancelled,
		Title:    "Trip cancelled",
		Message:  fmt.Sprintf("Trip #%d was cancelled: %s", out.ID, reason),
		Metadata: models.NotificationMetadata{TripID: &tripID, DriverID: out.DriverID},
	})
	return out, warnings, nil
}

// NoShow closes a trip whose rider never boarded; every member is marked NO_SHOW.
func (s TripService) NoShow(ctx context.Context, rc domain.RequestContext, id int64, notes string) (models.Trip, []string, error) {
	var out models.Trip
	err := s.Store.InTx(ctx, func(r repositories.Repos) error {
		trip, err := r.Trips.LockByID(ctx, rc.OrganizationID, id)
		if err != nil {
			return err
		}
		stops, err := r.Stops.ListByTrip(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.CanNoShow(trip, stops); err != nil {
			return err
		}
		members, err := r.Members.ListByTrip(ctx, id)
		if err != nil {
			return err
		}
		for _, m := range members {
			m.MemberStatus = models.MemberNoShow
			if err := r.Members.Update(ctx, m); err != nil {
				return err
			}
		}

		now := s.now()
		trip.Status = models.TripNoShow
		trip.NoShowNotes = strings.TrimSpace(notes)
		trip.CompletedAt = &now
		trip.UpdatedAt = now
		if err := r.Trips.Update(ctx, trip); err != nil {
			return err
		}
		out = trip
		return nil
	})
	if err != nil {
		return models.Trip{}, nil, err
	}

	utils.LogEvent(rc.RequestID, "trips", "no_show", fmt.Sprintf("trip_id=%d", out.ID))
	tripID := out.ID
	warnings := s.notify(ctx, rc, NotificationInput{
		Type:     models.NotificationTripNoShow,
		Title:    "Member no-show",
		Message:  fmt.Sprintf("Trip #%d closed as no-show", out.ID),
		Metadata: models.NotificationMetadata{TripID: &tripID, DriverID: out.DriverID},
	})
	return out, warnings, nil
}
