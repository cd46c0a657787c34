// Package handler 提供知识克隆服务的 HTTP 处理器。
package handler

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/knowledge-clone/internal/clone/biz"
	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/options/settings"
	"github.com/kart-io/knowledge-clone/pkg/utils/response"
	"github.com/kart-io/knowledge-clone/pkg/utils/validator"
)

// Handler 聚合各接口依赖。
type Handler struct {
	chat      *biz.ChatService
	config    *biz.ConfigProvider
	ingester  *biz.Ingester
	limits    *settings.Options
	validator *validator.Validator
}

// New 创建处理器。
func New(chat *biz.ChatService, config *biz.ConfigProvider, ingester *biz.Ingester, limits *settings.Options) *Handler {
	if limits == nil {
		limits = settings.NewOptions()
	}
	return &Handler{
		chat:      chat,
		config:    config,
		ingester:  ingester,
		limits:    limits,
		validator: validator.Global(),
	}
}

// Healthz 存活检查。
func (h *Handler) Healthz(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok"})
}

// bindJSON 解析并校验请求体，失败时写入错误响应并返回 false。
func (h *Handler) bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.Fail(c, h.invalid(err))
		return false
	}
	return true
}

// invalid 将绑定或校验错误转换为带翻译消息的 ErrInvalidParam。
func (h *Handler) invalid(err error) error {
	en := h.validator.Translate(err, validator.LangEN)
	zh := h.validator.Translate(err, validator.LangZH)

	var verrs *validator.ValidationErrors
	if !stderrors.As(en, &verrs) {
		return errors.ErrInvalidParam.WithCause(err)
	}
	e := errors.ErrInvalidParam.WithMessage(verrs.Error())
	if stderrors.As(zh, &verrs) {
		e.MessageZH = verrs.Error()
	}
	return e
}
