// Package apierror turns service errors into JSON error responses carrying a
// human readable message and a stable machine readable kind.
package apierror

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/newsforum/backend/internal/forum"
	"github.com/emilythestrangee/newsforum/backend/internal/identity"
	"github.com/emilythestrangee/newsforum/backend/internal/store"
)

type Kind string

const (
	KindValidation      Kind = "validation"
	KindMissingToken    Kind = "missing_token"
	KindMalformedScheme Kind = "malformed_scheme"
	KindInvalidToken    Kind = "invalid_token"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindContention      Kind = "contention"
	KindTimeout         Kind = "timeout"
	KindUpstream        Kind = "upstream"
)

// Response is the body of every error reply.
type Response struct {
	Error string `json:"error"`
	Kind  Kind   `json:"kind"`
}

// Classify maps an error to its HTTP status and kind.
func Classify(err error) (int, Kind) {
	switch {
	case errors.Is(err, forum.ErrValidation):
		return http.StatusBadRequest, KindValidation
	case errors.Is(err, identity.ErrMissingToken):
		return http.StatusUnauthorized, KindMissingToken
	case errors.Is(err, identity.ErrMalformedScheme):
		return http.StatusUnauthorized, KindMalformedScheme
	case errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized, KindInvalidToken
	case errors.Is(err, forum.ErrForbidden):
		return http.StatusForbidden, KindForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, forum.ErrContention):
		return http.StatusConflict, KindContention
	case errors.Is(err, identity.ErrProviderUnavailable):
		return http.StatusBadGateway, KindUpstream
	case errors.Is(err, store.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, KindTimeout
	default:
		return http.StatusBadGateway, KindUpstream
	}
}

// Abort writes the error response and stops the handler chain. Server side
// failures get a generic message; their detail only goes to the log.
func Abort(c *gin.Context, err error) {
	status, kind := Classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = serverMessages[kind]
		// A client that went away is not an upstream failure.
		if !errors.Is(err, context.Canceled) {
			log.Printf("🔴 %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		}
	}
	c.AbortWithStatusJSON(status, Response{Error: message, Kind: kind})
}

var serverMessages = map[Kind]string{
	KindTimeout:  "upstream service timed out",
	KindUpstream: "upstream service failed",
}

// Validation reports a malformed request body or parameter.
func Validation(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{Error: message, Kind: KindValidation})
}

// NotFound reports a missing resource.
func NotFound(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, Response{Error: message, Kind: KindNotFound})
}
