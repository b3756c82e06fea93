package v1

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ticketero-io/ticketero/internal/apierrors"
	"github.com/ticketero-io/ticketero/internal/models"
	"github.com/ticketero-io/ticketero/internal/repository"
	"github.com/ticketero-io/ticketero/internal/service"
)

// handleHealth returns API health status.
func (router *APIRouter) handleHealth(c *gin.Context) {
	sendSuccess(c, gin.H{
		"status":    "healthy",
		"service":   "ticketero-api",
		"timestamp": time.Now().UTC(),
	})
}

// handleListQueueTypes returns the fixed queue type registry.
func (router *APIRouter) handleListQueueTypes(c *gin.Context) {
	queues := []gin.H{}
	for _, info := range models.AllQueueTypes() {
		queues = append(queues, gin.H{
			"queue_type":           string(info.Name),
			"display_name":         info.DisplayName,
			"average_time_minutes": info.AverageTimeMinutes,
			"number_prefix":        info.NumberPrefix,
		})
	}
	sendSuccess(c, queues)
}

// handleCreateTicket registers a new ticket.
func (router *APIRouter) handleCreateTicket(c *gin.Context) {
	var req struct {
		CustomerRut   string `json:"customer_rut"`
		CustomerPhone string `json:"customer_phone"`
		QueueType     string `json:"queue_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeInvalidRequest, "Invalid ticket request: "+err.Error())
		return
	}

	details, err := router.tickets.CreateTicket(c.Request.Context(), service.CreateTicketParams{
		CustomerRut:   req.CustomerRut,
		CustomerPhone: req.CustomerPhone,
		QueueType:     models.QueueType(req.QueueType),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCustomerRut):
			apierrors.Error(c, apierrors.CodeMissingCustomerRut)
		case errors.Is(err, service.ErrInvalidQueueType):
			apierrors.Error(c, apierrors.CodeInvalidQueueType)
		default:
			router.logger.Printf("api: create ticket failed: %v", err)
			apierrors.Error(c, apierrors.CodeInternalError)
		}
		return
	}
	sendCreated(c, ticketToJSON(details))
}

// handleGetTicket returns one ticket by its public reference.
func (router *APIRouter) handleGetTicket(c *gin.Context) {
	details, err := router.tickets.GetByUUID(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			apierrors.Error(c, apierrors.CodeTicketNotFound)
			return
		}
		router.logger.Printf("api: get ticket failed: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	sendSuccess(c, ticketToJSON(details))
}

// handleGetTicketByNumber resolves a public ticket number to its current
// queue standing.
func (router *APIRouter) handleGetTicketByNumber(c *gin.Context) {
	details, err := router.tickets.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			apierrors.Error(c, apierrors.CodeTicketNotFound)
			return
		}
		router.logger.Printf("api: get ticket by number failed: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}
	sendSuccess(c, ticketToJSON(details))
}

// handleCancelTicket abandons a waiting ticket.
func (router *APIRouter) handleCancelTicket(c *gin.Context) {
	ticket, err := router.tickets.Cancel(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			apierrors.Error(c, apierrors.CodeTicketNotFound)
		case errors.Is(err, service.ErrTicketNotActive):
			apierrors.Error(c, apierrors.CodeTicketNotActive)
		default:
			router.logger.Printf("api: cancel ticket failed: %v", err)
			apierrors.Error(c, apierrors.CodeInternalError)
		}
		return
	}
	sendSuccess(c, ticketToJSON(&service.TicketDetails{Ticket: ticket}))
}
