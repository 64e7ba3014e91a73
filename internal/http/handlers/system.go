package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	intdb "nemt/internal/db"

	"github.com/gin-gonic/gin"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter stores the active gin engine for later inspection (e.g., /api/routes).
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "nemt service running"})
}

func (h Handler) DBCheck(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusOK, gin.H{"message": "in-memory store", "driver": "memory"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", "database unreachable: "+err.Error(), nil)
		return
	}
	if missing := intdb.MissingTables(ctx, h.DB); len(missing) > 0 {
		respondError(c, http.StatusInternalServerError, "internal_error", "schema incomplete", gin.H{"missing_tables": missing})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "database connection OK", "driver": "mysql"})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		respondError(c, http.StatusServiceUnavailable, "", "router not ready", nil)
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method":  rt.Method,
			"path":    rt.Path,
			"handler": rt.Handler,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
