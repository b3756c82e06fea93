// Package apierrors provides structured API error codes and responses.
// All codes are namespaced (e.g., "core:not_found", "ticket:not_waiting").
package apierrors

import "net/http"

// Core error codes - registered automatically at init
const (
	CodeInvalidRequest   = "core:invalid_request"
	CodeValidationFailed = "core:validation_failed"
	CodeInvalidID        = "core:invalid_id"
	CodeNotFound         = "core:not_found"
	CodeConflict         = "core:conflict"
	CodeInternalError    = "core:internal_error"
)

// Ticket error codes
const (
	CodeTicketNotFound     = "ticket:not_found"
	CodeInvalidQueueType   = "ticket:invalid_queue_type"
	CodeMissingCustomerRut = "ticket:missing_customer_rut"
	CodeTicketNotActive    = "ticket:not_active"
)

// Advisor error codes
const (
	CodeAdvisorNotFound      = "advisor:not_found"
	CodeInvalidAdvisorStatus = "advisor:invalid_status"
	CodeAdvisorNotAvailable  = "advisor:not_available"
)

// registeredErrors defines all error codes with their default messages and
// HTTP status
var registeredErrors = []ErrorCode{
	{Code: CodeInvalidRequest, Message: "Invalid request body", HTTPStatus: http.StatusBadRequest},
	{Code: CodeValidationFailed, Message: "Request validation failed", HTTPStatus: http.StatusBadRequest},
	{Code: CodeInvalidID, Message: "Invalid ID format", HTTPStatus: http.StatusBadRequest},
	{Code: CodeNotFound, Message: "Resource not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeConflict, Message: "Resource conflict", HTTPStatus: http.StatusConflict},
	{Code: CodeInternalError, Message: "Internal server error", HTTPStatus: http.StatusInternalServerError},

	{Code: CodeTicketNotFound, Message: "Ticket not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeInvalidQueueType, Message: "Unknown queue type", HTTPStatus: http.StatusBadRequest},
	{Code: CodeMissingCustomerRut, Message: "Customer RUT is required", HTTPStatus: http.StatusBadRequest},
	{Code: CodeTicketNotActive, Message: "Ticket is not in an active state", HTTPStatus: http.StatusConflict},

	{Code: CodeAdvisorNotFound, Message: "Advisor not found", HTTPStatus: http.StatusNotFound},
	{Code: CodeInvalidAdvisorStatus, Message: "Unknown advisor status", HTTPStatus: http.StatusBadRequest},
	{Code: CodeAdvisorNotAvailable, Message: "Advisor is not available", HTTPStatus: http.StatusConflict},
}

func init() {
	for _, e := range registeredErrors {
		Registry.Register(e)
	}
}
