package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/solsight/paygate/internal/infrastructure/database"
)

type HealthHandler struct {
	db *database.DBManager
}

func NewHealthHandler(db *database.DBManager) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "paygate",
		"version":   "1.0.0",
		"timestamp": time.Now(),
	})
}

// Ready reports readiness; the durable store must be reachable before the
// engine accepts sessions.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.Db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not ready",
			"service":   "paygate",
			"timestamp": time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"service":   "paygate",
		"version":   "1.0.0",
		"timestamp": time.Now(),
	})
}
