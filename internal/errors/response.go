package errors

import (
	"net/http"

	"github.com/mattnewell-cam/AgentPayments/pkg/responders"
)

// Body is the flat JSON envelope agents and challenge scripts parse.
// Field order and names are wire compatible with the hosted SDKs, so
// this stays a plain struct rather than a problem-details format.
type Body struct {
	Error   ErrorCode `json:"error"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// New builds an error body with no details line.
func New(code ErrorCode, message string) Body {
	return Body{Error: code, Message: message}
}

// WithDetails returns a copy carrying an extra human-readable hint.
func (b Body) WithDetails(details string) Body {
	b.Details = details
	return b
}

// WriteJSON writes the body with the status its code maps to.
func (b Body) WriteJSON(w http.ResponseWriter) {
	responders.JSON(w, b.Error.HTTPStatus(), b)
}
