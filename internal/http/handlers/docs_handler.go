package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/reports/:tripId/pdf returns the submitted trip report (inline),
// rendering it again when the stored file is gone.
func (h Handler) GetReportPDF(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	tripID, ok := paramID(c, "tripId")
	if !ok {
		return
	}
	path, err := h.Reports.OpenPDF(c.Request.Context(), rc, tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	filename := fmt.Sprintf("%d_tripreport.pdf", tripID)
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.File(path)
}

// POST /api/reports/:tripId/pdf/regenerate
func (h Handler) RegenerateReportPDF(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	tripID, ok := paramID(c, "tripId")
	if !ok {
		return
	}
	out, err := h.Reports.RegeneratePDF(c.Request.Context(), rc, tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
