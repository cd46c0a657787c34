package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/knowledge-clone/pkg/utils/response"
)

// SubmitRequest 提交对话请求。
type SubmitRequest struct {
	Prompt string `json:"prompt" binding:"required,notblank"`
}

// CreateSession 创建会话。
func (h *Handler) CreateSession(c *gin.Context) {
	response.OK(c, h.chat.CreateSession())
}

// GetSession 返回会话记录。
func (h *Handler) GetSession(c *gin.Context) {
	view, err := h.chat.Session(c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, view)
}

// SubmitTurn 执行一个对话回合。补全失败时仍返回 200，结果中 fatal 为 true。
func (h *Handler) SubmitTurn(c *gin.Context) {
	var req SubmitRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.chat.Submit(c.Request.Context(), c.Param("id"), req.Prompt)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}
