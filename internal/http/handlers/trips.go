package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"nemt/internal/domain"
	"nemt/internal/domain/models"
	"nemt/internal/services"
	"nemt/internal/utils"

	"github.com/gin-gonic/gin"
)

type cancelTripRequest struct {
	Reason string `json:"reason"`
}

type noShowRequest struct {
	Notes string `json:"notes"`
}

// GET /api/trips?status=&driverId=&date=
func (h Handler) ListTrips(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}

	var f models.TripFilter
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		f.Status = models.TripStatus(strings.ToUpper(s))
	}
	if s := strings.TrimSpace(c.Query("driverId")); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			respondError(c, http.StatusBadRequest, "validation_error", "invalid driverId", nil)
			return
		}
		f.DriverID = &id
	}
	if s := strings.TrimSpace(c.Query("date")); s != "" {
		d, err := utils.ParseDate(s)
		if err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD", nil)
			return
		}
		f.Date = &d
	}

	out, err := h.Trips.List(c.Request.Context(), rc, f)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/trips/:id
func (h Handler) GetTrip(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	out, err := h.Trips.Get(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/trips
func (h Handler) CreateTrip(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	var in services.CreateTripInput
	if !BindJSONOrError(c, &in) {
		return
	}
	out, err := h.Trips.Create(c.Request.Context(), rc, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// PUT /api/trips/:id
func (h Handler) UpdateTrip(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.UpdateTripInput
	if !BindJSONOrError(c, &in) {
		return
	}
	out, err := h.Trips.Update(c.Request.Context(), rc, id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/trips/:id/start
func (h Handler) StartTrip(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.StartTripInput
	if !bindOptionalJSON(c, &in) {
		return
	}
	out, err := h.Trips.Start(c.Request.Context(), rc, id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/trips/:id/complete
func (h Handler) CompleteTrip(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	out, err := h.Trips.Complete(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/trips/:id/cancel
func (h Handler) CancelTrip(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req cancelTripRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	trip, warnings, err := h.Trips.Cancel(c.Request.Context(), rc, id, req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip, "warnings": nonNil(warnings)})
}

// POST /api/trips/:id/no-show
func (h Handler) NoShowTrip(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req noShowRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	trip, warnings, err := h.Trips.NoShow(c.Request.Context(), rc, id, req.Notes)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip, "warnings": nonNil(warnings)})
}

// POST /api/trips/:id/stops/:stopId/arrive
func (h Handler) ArriveStop(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	stopID, ok := paramID(c, "stopId")
	if !ok {
		return
	}
	var in services.GPSInput
	if !bindOptionalJSON(c, &in) {
		return
	}
	out, err := h.Trips.ArriveStop(c.Request.Context(), rc, tripID, stopID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/trips/:id/stops/:stopId/complete
func (h Handler) CompleteStop(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	stopID, ok := paramID(c, "stopId")
	if !ok {
		return
	}
	var in services.CompleteStopInput
	if !bindOptionalJSON(c, &in) {
		return
	}
	out, err := h.Trips.CompleteStop(c.Request.Context(), rc, tripID, stopID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/trips/:id/members/:memberId/signature
func (h Handler) CaptureSignature(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	memberID, ok := paramID(c, "memberId")
	if !ok {
		return
	}
	var in domain.SignatureInput
	if !BindJSONOrError(c, &in) {
		return
	}
	out, err := h.Trips.CaptureSignature(c.Request.Context(), rc, tripID, memberID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
