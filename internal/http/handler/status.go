package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pc1e0/comm/internal/http/dto"
	"github.com/pc1e0/comm/internal/listener"
	"github.com/pc1e0/comm/internal/store"
)

// StatusProvider is satisfied by *listener.Orchestrator.
type StatusProvider interface {
	Statuses() []listener.Status
}

type StatusHandler struct {
	listeners    StatusProvider
	observations store.ObservationStore
}

func NewStatusHandler(listeners StatusProvider, observations store.ObservationStore) *StatusHandler {
	if observations == nil {
		observations = store.NoopObservationStore{}
	}
	return &StatusHandler{listeners: listeners, observations: observations}
}

func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status reports every listener. It answers 503 once any listener has failed
// so an orchestrator's readiness probe can restart the process.
func (h *StatusHandler) Status(c *gin.Context) {
	statuses := h.listeners.Statuses()

	code := http.StatusOK
	for _, s := range statuses {
		if s.State == listener.StateFailed.String() {
			code = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(code, gin.H{
		"healthy":   code == http.StatusOK,
		"listeners": statuses,
	})
}

const maxObservationLimit = 200

func (h *StatusHandler) Observations(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxObservationLimit)
	}

	observations, err := h.observations.ListRecent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list observations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"observations": dto.ToObservationResponses(observations)})
}
