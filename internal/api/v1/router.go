// Package v1 exposes the HTTP API for ticket intake, advisor actions and
// the supervisor dashboard.
package v1

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/ticketero-io/ticketero/internal/service"
)

// APIRouter wires the HTTP handlers to the service layer.
type APIRouter struct {
	tickets    *service.TicketService
	advisors   *service.AdvisorService
	assignment *service.AssignmentService
	dashboard  *service.DashboardService
	audit      *service.AuditService
	logger     *log.Logger
}

// NewAPIRouter creates the router.
func NewAPIRouter(
	tickets *service.TicketService,
	advisors *service.AdvisorService,
	assignment *service.AssignmentService,
	dashboard *service.DashboardService,
	audit *service.AuditService,
	logger *log.Logger,
) *APIRouter {
	if logger == nil {
		logger = log.Default()
	}
	return &APIRouter{
		tickets:    tickets,
		advisors:   advisors,
		assignment: assignment,
		dashboard:  dashboard,
		audit:      audit,
		logger:     logger,
	}
}

// RegisterRoutes mounts every endpoint under /api/v1.
func (router *APIRouter) RegisterRoutes(engine *gin.Engine) {
	api := engine.Group("/api/v1")

	api.GET("/health", router.handleHealth)
	api.GET("/queues", router.handleListQueueTypes)

	tickets := api.Group("/tickets")
	{
		tickets.POST("", router.handleCreateTicket)
		tickets.GET("/:uuid", router.handleGetTicket)
		tickets.DELETE("/:uuid", router.handleCancelTicket)
		tickets.GET("/number/:number", router.handleGetTicketByNumber)
	}

	admin := api.Group("/admin")
	{
		admin.GET("/advisors", router.handleListAdvisors)
		admin.POST("/advisors", router.handleRegisterAdvisor)
		admin.PUT("/advisors/:id/status", router.handleSetAdvisorStatus)
		admin.POST("/advisors/:id/assign", router.handleAssignNext)
		admin.POST("/tickets/:id/complete", router.handleCompleteTicket)
		admin.POST("/tickets/:id/no-show", router.handleNoShowTicket)
	}

	dashboard := api.Group("/dashboard")
	{
		dashboard.GET("", router.handleDashboard)
		dashboard.GET("/events", router.handleRecentEvents)
	}
}
