package api

import (
	"encoding/json"
	"net/http"
)

// Error is a generic error structure that is used to send error responses to the client.
type Error struct {
	Code    string      `json:"code,required"`
	Message string      `json:"message,required"`
	Details interface{} `json:"details,omitempty"`
}

// Response is a generic response structure that is used to send responses to the client.
type Response struct {
	Status string      `json:"status,required"`
	Data   interface{} `json:"data,omitempty"`
	Error  *Error      `json:"error,omitempty"`
}

// NewResponse creates an empty response ready for chaining.
func NewResponse() *Response {
	return &Response{}
}

// Error message
func (e *Error) Error() string {
	return e.Message
}

// Set data to response
func (rsp *Response) SetData(data interface{}) *Response {
	rsp.Data = data
	rsp.Error = nil
	return rsp
}

// Set error to response
func (rsp *Response) SetError(code string, message string, details ...interface{}) *Response {
	rsp.Data = nil
	rsp.Error = &Error{
		Code:    code,
		Message: message,
	}
	if len(details) == 1 {
		rsp.Error.Details = details[0]
	} else if len(details) > 1 {
		rsp.Error.Details = details
	}
	return rsp
}

// Send success response to client
func (rsp *Response) Ok(w http.ResponseWriter) {
	rsp.Status = "ok"
	rsp.write(w, http.StatusOK)
}

// Send error response to client
func (rsp *Response) BadRequest(w http.ResponseWriter) {
	rsp.fallbackError("bad_request", "Bad request")
	rsp.write(w, http.StatusBadRequest)
}

// Send error response to client
func (rsp *Response) Unauthorized(w http.ResponseWriter) {
	rsp.fallbackError("unauthorized", "Unauthorized")
	rsp.write(w, http.StatusUnauthorized)
}

// Send error response to client
func (rsp *Response) NotFound(w http.ResponseWriter) {
	rsp.fallbackError("not_found", "Not found")
	rsp.write(w, http.StatusNotFound)
}

// Send error response to client
func (rsp *Response) InternalServerError(w http.ResponseWriter) {
	rsp.fallbackError("internal_server_error", "Internal server error")
	rsp.write(w, http.StatusInternalServerError)
}

func (rsp *Response) fallbackError(code, message string) {
	rsp.Status = "error"
	if rsp.Error == nil {
		rsp.Error = &Error{
			Code:    code,
			Message: message,
		}
	}
}

func (rsp *Response) write(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rsp)
}
