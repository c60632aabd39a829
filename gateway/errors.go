package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/order"
)

const retryMessage = "We could not complete your request. Nothing was saved; please try again."

type errorBody struct {
	Error   string                  `json:"error"`
	Message string                  `json:"message"`
	Fields  []apperr.FieldViolation `json:"fields,omitempty"`
}

func (g *Gateway) writeError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, errorBody{
			Error:   string(apperr.KindValidation),
			Message: err.Error(),
			Fields:  apperr.ViolationsOf(err),
		})
		return
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, errorBody{Error: string(apperr.KindNotFound), Message: err.Error()})
		return
	case apperr.KindPersistence:
		g.logger.Error("Persistence failure", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{Error: string(apperr.KindPersistence), Message: retryMessage})
		return
	}

	switch {
	case errors.Is(err, order.ErrAuditDisabled):
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: "unavailable", Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		g.logger.Warn("Request timed out", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, errorBody{Error: "timeout", Message: retryMessage})
	default:
		g.logger.Error("Unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody{Error: "internal", Message: retryMessage})
	}
}

// badBody reports an undecodable request body as a validation error.
func (g *Gateway) badBody(c *gin.Context, err error) {
	g.writeError(c, apperr.Invalid("body", "malformed JSON: "+err.Error()))
}
