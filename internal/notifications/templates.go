package notifications

import (
	"fmt"
	"strings"

	"github.com/ticketero-io/ticketero/internal/models"
)

// TemplateContext carries the values the message bodies interpolate.
type TemplateContext struct {
	TicketNumber         string
	QueueDisplayName     string
	QueuePosition        int
	EstimatedWaitMinutes int
	AdvisorName          string
	ModuleNumber         int
}

// RenderTemplate produces the customer-facing body for a template.
func RenderTemplate(template models.MessageTemplate, ctx TemplateContext) string {
	switch template {
	case models.TemplateTicketCreated:
		return strings.TrimSpace(fmt.Sprintf(
			"✅ Ticket confirmado\n\n"+
				"📋 Número: %s\n"+
				"🏦 Cola: %s\n"+
				"📍 Posición: #%d\n"+
				"⏱️ Tiempo estimado: %d minutos\n\n"+
				"Puedes salir de la sucursal. Te avisaremos cuando sea tu turno.",
			ctx.TicketNumber, ctx.QueueDisplayName, ctx.QueuePosition, ctx.EstimatedWaitMinutes))
	case models.TemplatePreNotice:
		return strings.TrimSpace(fmt.Sprintf(
			"⏰ ¡Pronto será tu turno!\n\n"+
				"📋 Ticket: %s\n"+
				"📍 Posición actual: #%d\n\n"+
				"Por favor acércate a la sucursal.",
			ctx.TicketNumber, ctx.QueuePosition))
	case models.TemplateTurnActive:
		return strings.TrimSpace(fmt.Sprintf(
			"🔔 ¡ES TU TURNO!\n\n"+
				"📋 Ticket: %s\n"+
				"👤 Asesor: %s\n"+
				"🏢 Módulo: %d\n\n"+
				"Preséntate en el módulo indicado.",
			ctx.TicketNumber, ctx.AdvisorName, ctx.ModuleNumber))
	}
	return ""
}
