package repositories

import (
	"context"
	"database/sql"
	"fmt"

	intconfig "nemt/internal/config"
	intdb "nemt/internal/db"
	"nemt/internal/domain"
	"nemt/internal/domain/models"
)

type StopsRepo struct {
	DB intdb.DBTX
}

func (r StopsRepo) db() intdb.DBTX {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r StopsRepo) Create(ctx context.Context, s *models.TripStop) error {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO trip_stops (trip_id, stop_type, stop_order, address, scheduled_time, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.TripID, string(s.StopType), s.StopOrder, s.Address, nullTime(s.ScheduledTime), nullFloat(s.Latitude), nullFloat(s.Longitude))
	if err != nil {
		if isDuplicate(err) {
			return domain.ConflictError{Resource: "trip stop", Msg: fmt.Sprintf("stop order %d already exists", s.StopOrder), Err: err}
		}
		return fmt.Errorf("insert trip stop: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func (r StopsRepo) ListByTrip(ctx context.Context, tripID int64) ([]models.TripStop, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT id, trip_id, stop_type, stop_order, address, scheduled_time, actual_arrival_time,
			actual_departure_time, latitude, longitude, odometer_reading
		FROM trip_stops
		WHERE trip_id=?
		ORDER BY stop_order ASC
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TripStop{}
	for rows.Next() {
		var (
			s                             models.TripStop
			stopType                      string
			scheduled, arrival, departure sql.NullTime
			lat, lon                      sql.NullFloat64
			odometer                      sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.TripID, &stopType, &s.StopOrder, &s.Address, &scheduled, &arrival,
			&departure, &lat, &lon, &odometer); err != nil {
			return out, err
		}
		s.StopType = models.StopType(stopType)
		s.ScheduledTime = timePtr(scheduled)
		s.ActualArrivalTime = timePtr(arrival)
		s.ActualDepartureTime = timePtr(departure)
		s.Latitude = floatPtr(lat)
		s.Longitude = floatPtr(lon)
		s.OdometerReading = intPtr(odometer)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r StopsRepo) Update(ctx context.Context, s models.TripStop) error {
	_, err := r.db().ExecContext(ctx, `
		UPDATE trip_stops
		SET actual_arrival_time=?, actual_departure_time=?, latitude=?, longitude=?, odometer_reading=?
		WHERE id=? AND trip_id=?
	`, nullTime(s.ActualArrivalTime), nullTime(s.ActualDepartureTime), nullFloat(s.Latitude), nullFloat(s.Longitude),
		nullInt(s.OdometerReading), s.ID, s.TripID)
	if err != nil {
		return fmt.Errorf("update trip stop %d: %w", s.ID, err)
	}
	return nil
}
