package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency the service cannot serve without.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	db      Pinger
	cache   Pinger
	timeout time.Duration
}

// NewHandler takes the database and an optional cache pinger. A failing cache
// degrades readiness reporting but does not fail it, since views fall back
// to the store.
func NewHandler(db Pinger, cache Pinger) *Handler {
	return &Handler{
		db:      db,
		cache:   cache,
		timeout: 2 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health/live", h.LivenessCheck)
	r.GET("/health/ready", h.ReadinessCheck)
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "Database connection failed",
		})
		return
	}

	body := gin.H{"status": "UP"}
	if h.cache != nil {
		if err := h.cache.PingContext(ctx); err != nil {
			body["cache"] = "DOWN"
		} else {
			body["cache"] = "UP"
		}
	}
	c.JSON(http.StatusOK, body)
}
