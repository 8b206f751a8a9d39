package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smam/backend/internal/domain"
)

// 通用错误消息
const (
	MsgSent           = "message sent"
	MsgInvalidRequest = "malformed request body"
	MsgInvalidInput   = "missing required fields"
	MsgInvalidToken   = "missing, wrong or expired token"
	MsgDeliveryFailed = "message could not be delivered"
	MsgInternalError  = "internal error"
)

// handleError 将业务错误映射为 HTTP 响应
func handleError(c *gin.Context, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		Error(c, http.StatusBadRequest, MsgInvalidInput, gin.H{"fields": verr.Fields})
	case errors.Is(err, domain.ErrValidation):
		Error(c, http.StatusBadRequest, MsgInvalidInput, nil)
	case errors.Is(err, domain.ErrForbidden):
		Error(c, http.StatusForbidden, MsgInvalidToken, nil)
	case errors.Is(err, domain.ErrDeliveryFailed):
		Error(c, http.StatusInternalServerError, MsgDeliveryFailed, nil)
	default:
		Error(c, http.StatusInternalServerError, MsgInternalError, nil)
	}
}
