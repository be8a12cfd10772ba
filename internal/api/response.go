package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/efebarandurmaz/docqa/internal/embedding"
	"github.com/efebarandurmaz/docqa/internal/ingest"
	"github.com/efebarandurmaz/docqa/internal/vector"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

var errBadRequest = errors.New("bad request")

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return errBadRequest }

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

// statusFor maps an error onto its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, ingest.ErrNoSource):
		return http.StatusBadRequest
	case errors.Is(err, embedding.ErrUnavailable), errors.Is(err, vector.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, embedding.ErrRequestFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, status int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}
