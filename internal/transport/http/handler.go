package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"smam/backend/internal/domain"
	"smam/backend/internal/locale"
	"smam/backend/internal/middleware"
	"smam/backend/internal/service"
)

// Handler 聚合表单相关的 HTTP 处理逻辑。
type Handler struct {
	relay    *service.RelayService
	catalog  *locale.Catalog
	language string
	labels   bool
	logger   *zap.Logger
}

// register 签发令牌，响应体为纯文本令牌
func (h *Handler) register(c *gin.Context) {
	tok := h.relay.Register(c.ClientIP())
	c.String(http.StatusOK, tok.Value)
}

// lang 返回前端界面文案
func (h *Handler) lang(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Bundle(h.language, h.labels))
}

// fields 返回以字段名为键的自定义字段定义
func (h *Handler) fields(c *gin.Context) {
	defs := lo.SliceToMap(h.relay.Fields(), func(f domain.CustomField) (string, domain.CustomField) {
		return f.Name, f
	})
	c.JSON(http.StatusOK, defs)
}

// send 处理表单提交
func (h *Handler) send(c *gin.Context) {
	sub, err := bindSubmission(c)
	if err != nil {
		h.logger.Debug("malformed submission", zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(c)))
		Error(c, http.StatusBadRequest, MsgInvalidRequest, nil)
		return
	}

	report, err := h.relay.Send(c.Request.Context(), c.ClientIP(), sub)
	if err != nil {
		handleError(c, err)
		return
	}

	Success(c, MsgSent, gin.H{
		"accepted": report.Total - report.Failed,
		"rejected": report.Failed,
	})
}

// bindSubmission 解析 JSON 或表单编码的提交
//
// 表单编码时自定义字段以 custom[name]=value 形式提交。
func bindSubmission(c *gin.Context) (*domain.Submission, error) {
	var sub domain.Submission

	if strings.HasPrefix(c.ContentType(), binding.MIMEJSON) {
		if err := c.ShouldBindJSON(&sub); err != nil {
			return nil, err
		}
		return &sub, nil
	}

	if err := c.ShouldBindWith(&sub, binding.Form); err != nil {
		return nil, err
	}
	custom := c.PostFormMap("custom")
	sub.Custom = make(map[string]any, len(custom))
	for k, v := range custom {
		sub.Custom[k] = v
	}
	return &sub, nil
}
