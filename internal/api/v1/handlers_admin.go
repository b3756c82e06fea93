package v1

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ticketero-io/ticketero/internal/apierrors"
	"github.com/ticketero-io/ticketero/internal/models"
	"github.com/ticketero-io/ticketero/internal/repository"
	"github.com/ticketero-io/ticketero/internal/service"
)

// handleListAdvisors returns the advisor roster.
func (router *APIRouter) handleListAdvisors(c *gin.Context) {
	advisors, err := router.advisors.List(c.Request.Context())
	if err != nil {
		router.logger.Printf("api: list advisors failed: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	out := []advisorJSON{}
	for _, a := range advisors {
		out = append(out, advisorToJSON(a))
	}
	sendSuccess(c, out)
}

// handleRegisterAdvisor adds an advisor to the roster.
func (router *APIRouter) handleRegisterAdvisor(c *gin.Context) {
	var req struct {
		Name         string `json:"name"`
		ModuleNumber int    `json:"module_number"`
		QueueType    string `json:"queue_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeInvalidRequest, "Invalid advisor request: "+err.Error())
		return
	}

	advisor, err := router.advisors.Register(c.Request.Context(), req.Name, req.ModuleNumber, models.QueueType(req.QueueType))
	if err != nil {
		if errors.Is(err, service.ErrInvalidQueueType) {
			apierrors.Error(c, apierrors.CodeInvalidQueueType)
			return
		}
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, err.Error())
		return
	}
	sendCreated(c, advisorToJSON(advisor))
}

// handleSetAdvisorStatus changes an advisor's availability.
func (router *APIRouter) handleSetAdvisorStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeInvalidRequest, "Invalid status request: "+err.Error())
		return
	}

	advisor, err := router.advisors.SetStatus(c.Request.Context(), id, models.AdvisorStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAdvisorNotFound):
			apierrors.Error(c, apierrors.CodeAdvisorNotFound)
		case errors.Is(err, service.ErrInvalidAdvisorStatus):
			apierrors.Error(c, apierrors.CodeInvalidAdvisorStatus)
		default:
			router.logger.Printf("api: set advisor status failed: %v", err)
			apierrors.Error(c, apierrors.CodeInternalError)
		}
		return
	}
	sendSuccess(c, advisorToJSON(advisor))
}

// handleAssignNext manually offers the advisor the next waiting ticket.
func (router *APIRouter) handleAssignNext(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	ticket, err := router.assignment.AssignNext(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAdvisorNotFound):
			apierrors.Error(c, apierrors.CodeAdvisorNotFound)
		case errors.Is(err, service.ErrAdvisorNotAvailable):
			apierrors.Error(c, apierrors.CodeAdvisorNotAvailable)
		default:
			router.logger.Printf("api: assign next failed: %v", err)
			apierrors.Error(c, apierrors.CodeInternalError)
		}
		return
	}
	if ticket == nil {
		sendSuccess(c, gin.H{"assigned": false})
		return
	}
	sendSuccess(c, gin.H{
		"assigned": true,
		"ticket":   ticketToJSON(&service.TicketDetails{Ticket: ticket}),
	})
}

// handleCompleteTicket closes the ticket the advisor is serving.
func (router *APIRouter) handleCompleteTicket(c *gin.Context) {
	router.finishTicket(c, router.assignment.Complete)
}

// handleNoShowTicket closes the ticket as a customer no-show.
func (router *APIRouter) handleNoShowTicket(c *gin.Context) {
	router.finishTicket(c, router.assignment.NoShow)
}

func (router *APIRouter) finishTicket(c *gin.Context, finish func(ctx context.Context, ticketID int64) (*models.Ticket, error)) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	ticket, err := finish(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			apierrors.Error(c, apierrors.CodeTicketNotFound)
		case errors.Is(err, service.ErrTicketNotActive):
			apierrors.Error(c, apierrors.CodeTicketNotActive)
		default:
			router.logger.Printf("api: close ticket failed: %v", err)
			apierrors.Error(c, apierrors.CodeInternalError)
		}
		return
	}
	sendSuccess(c, ticketToJSON(&service.TicketDetails{Ticket: ticket}))
}

// paramID parses the :id path segment, replying with an error when it is
// not a number.
func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apierrors.Error(c, apierrors.CodeInvalidID)
		return 0, false
	}
	return id, true
}
