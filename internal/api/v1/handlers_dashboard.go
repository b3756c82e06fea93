package v1

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ticketero-io/ticketero/internal/apierrors"
)

// handleDashboard returns the supervisor snapshot.
func (router *APIRouter) handleDashboard(c *gin.Context) {
	summary, err := router.dashboard.Summary(c.Request.Context())
	if err != nil {
		router.logger.Printf("api: dashboard summary failed: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	sendSuccess(c, summary)
}

// handleRecentEvents returns the newest audit entries.
func (router *APIRouter) handleRecentEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	events, err := router.audit.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		router.logger.Printf("api: recent events failed: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	out := []gin.H{}
	for _, e := range events {
		out = append(out, gin.H{
			"id":          e.ID,
			"event_type":  e.EventType,
			"entity_type": e.EntityType,
			"entity_id":   e.EntityID,
			"actor":       e.Actor,
			"old_value":   e.OldValue,
			"new_value":   e.NewValue,
			"description": e.Description,
			"created_at":  e.CreatedAt,
		})
	}
	sendSuccess(c, out)
}
