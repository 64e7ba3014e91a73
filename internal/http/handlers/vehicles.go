package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/vehicles/:id
//
// The odometer returned here is the floor the next report's end reading must reach.
func (h Handler) GetVehicle(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	out, err := h.Fleet.Vehicle(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
