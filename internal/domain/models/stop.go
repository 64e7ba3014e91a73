package models

import "time"

type StopType string

const (
	StopPickup  StopType = "PICKUP"
	StopDropoff StopType = "DROPOFF"
)

type TripStop struct {
	ID                  int64      `json:"id"`
	TripID              int64      `json:"tripId"`
	StopType            StopType   `json:"stopType"`
	StopOrder           int        `json:"stopOrder"`
	Address             string     `json:"address"`
	ScheduledTime       *time.Time `json:"scheduledTime,omitempty"`
	ActualArrivalTime   *time.Time `json:"actualArrivalTime,omitempty"`
	ActualDepartureTime *time.Time `json:"actualDepartureTime,omitempty"`
	Latitude            *float64   `json:"latitude,omitempty"`
	Longitude           *float64   `json:"longitude,omitempty"`
	OdometerReading     *int64     `json:"odometerReading,omitempty"`
}

func (s TripStop) Arrived() bool   { return s.ActualArrivalTime != nil }
func (s TripStop) Completed() bool { return s.ActualDepartureTime != nil }
