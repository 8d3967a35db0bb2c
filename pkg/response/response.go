package response

import (
	"encoding/json"
	"net/http"
)

// Detail is the body of every message-only response
type Detail struct {
	Detail string `json:"detail"`
}

// JSON sends data as a JSON body
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Message sends {"detail": message}
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Detail{Detail: message})
}

// FieldErrors sends a 400 keyed by field, e.g. {"content": ["This field may not be blank."]}
func FieldErrors(w http.ResponseWriter, errs map[string][]string) {
	JSON(w, http.StatusBadRequest, errs)
}

// BadRequest sends a 400 response
func BadRequest(w http.ResponseWriter, message string) {
	Message(w, http.StatusBadRequest, message)
}

// Unauthorized sends a 401 response
func Unauthorized(w http.ResponseWriter, message string) {
	Message(w, http.StatusUnauthorized, message)
}

// Forbidden sends a 403 response
func Forbidden(w http.ResponseWriter, message string) {
	Message(w, http.StatusForbidden, message)
}

// NotFound sends a 404 response
func NotFound(w http.ResponseWriter) {
	Message(w, http.StatusNotFound, "Not found.")
}

// InternalError sends a 500 response
func InternalError(w http.ResponseWriter) {
	Message(w, http.StatusInternalServerError, "A server error occurred.")
}

// Created sends a 201 response with data
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 response with data
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// NoContent sends a 204 response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
