package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type generateClaimsRequest struct {
	TripIDs []int64 `json:"tripIds"`
}

// GET /api/billing/unbilled
func (h Handler) ListUnbilledTrips(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	out, err := h.Billing.ListUnbilled(c.Request.Context(), rc)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/billing/generate
//
// An empty tripIds list bills every unbilled trip.
func (h Handler) GenerateClaims(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	var req generateClaimsRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	out, err := h.Billing.Generate(c.Request.Context(), rc, req.TripIDs)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": out, "count": len(out)})
}

// GET /api/billing/claims
func (h Handler) ListClaims(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	out, err := h.Billing.ListClaims(c.Request.Context(), rc)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/billing/claims/:id/void
func (h Handler) VoidClaim(c *gin.Context) {
	rc, ok := requestContext(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	out, err := h.Billing.VoidClaim(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
