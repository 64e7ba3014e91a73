package handlers

import (
	"net/http"

	"nemt/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /api/reports/trip/:id
func (h Handler) GetTripReport(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	out, err := h.Reports.GetByTrip(c.Request.Context(), rc, tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// PUT /api/reports/trip/:id/draft
func (h Handler) SaveReportDraft(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.SubmitReportInput
	if !BindJSONOrError(c, &in) {
		return
	}
	out, err := h.Reports.SaveDraft(c.Request.Context(), rc, tripID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/reports/trip/:id/submit
//
// A replayed submission answers 200 with the stored report; a fresh one 201.
func (h Handler) SubmitReport(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	tripID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.SubmitReportInput
	if !BindJSONOrError(c, &in) {
		return
	}
	res, err := h.Reports.Submit(c.Request.Context(), rc, tripID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	res.Warnings = nonNil(res.Warnings)
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, res)
}
