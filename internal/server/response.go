package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"healthhub/internal/app"
)

// Business result codes carried in the response envelope. The HTTP status
// mirrors the class of the code so plain HTTP clients behave sensibly too.
const (
	codeSuccess      = 200
	codeParamError   = 400
	codeUnauthorized = 401
	codeNotFound     = 404
	codeConflict     = 409
	codeTooMany      = 429
	codeError        = 500
)

// result is the unified response envelope every endpoint returns.
type result struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func writeResult(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, result{
		Code:    codeSuccess,
		Message: "ok",
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, code int, message string) {
	status := code
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	writeEnvelope(w, status, result{
		Code:    code,
		Message: message,
	})
}

func writeEnvelope(w http.ResponseWriter, status int, res result) {
	res.Timestamp = time.Now().UnixMilli()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

// writeServiceError maps service-level errors onto envelope codes.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		writeError(w, codeParamError, err.Error())
	case errors.Is(err, app.ErrConflict):
		writeError(w, codeConflict, err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, codeNotFound, err.Error())
	default:
		writeError(w, codeError, fallback)
	}
}
