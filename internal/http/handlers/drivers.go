package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/drivers/:id
func (h Handler) GetDriver(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	out, err := h.Fleet.Driver(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
