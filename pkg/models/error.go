package models

import "time"

// InternalErrorMessage is the only message a 500 response ever carries.
const InternalErrorMessage = "An internal error occurred. Please contact support."

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Timestamp time.Time         `json:"timestamp"`
	Status    int               `json:"status"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// NewErrorResponse stamps an error body with the current UTC time.
func NewErrorResponse(status int, title, message string) ErrorResponse {
	return ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     title,
		Message:   message,
	}
}
