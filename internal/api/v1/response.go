package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ticketero-io/ticketero/internal/models"
	"github.com/ticketero-io/ticketero/internal/service"
)

// APIResponse is the success envelope every endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func sendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func sendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// ticketJSON is the wire shape of a ticket.
type ticketJSON struct {
	UUID                 string     `json:"uuid"`
	TicketNumber         string     `json:"ticket_number"`
	QueueType            string     `json:"queue_type"`
	QueueName            string     `json:"queue_name"`
	Status               string     `json:"status"`
	QueuePosition        *int       `json:"queue_position,omitempty"`
	EstimatedWaitMinutes *int       `json:"estimated_wait_minutes,omitempty"`
	AdvisorID            *int64     `json:"advisor_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	AssignedAt           *time.Time `json:"assigned_at,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

func ticketToJSON(details *service.TicketDetails) ticketJSON {
	t := details.Ticket
	out := ticketJSON{
		UUID:         t.UUID,
		TicketNumber: t.TicketNumber,
		QueueType:    string(t.QueueType),
		QueueName:    t.QueueType.DisplayName(),
		Status:       string(t.Status),
		AdvisorID:    t.AdvisorID,
		CreatedAt:    t.CreatedAt,
		AssignedAt:   t.AssignedAt,
		CompletedAt:  t.CompletedAt,
	}
	if t.Status == models.TicketStatusWaiting {
		position := details.Position
		wait := details.EstimatedWaitMinutes
		out.QueuePosition = &position
		out.EstimatedWaitMinutes = &wait
	}
	return out
}

type advisorJSON struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ModuleNumber int    `json:"module_number"`
	QueueType    string `json:"queue_type"`
	Status       string `json:"status"`
}

func advisorToJSON(a *models.Advisor) advisorJSON {
	return advisorJSON{
		ID:           a.ID,
		Name:         a.Name,
		ModuleNumber: a.ModuleNumber,
		QueueType:    string(a.QueueType),
		Status:       string(a.Status),
	}
}
