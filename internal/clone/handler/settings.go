package handler

import (
	"fmt"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/knowledge-clone/internal/clone/biz"
	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/utils/response"
)

// SettingsResponse 当前检索配置。
type SettingsResponse struct {
	biz.RetrievalConfig
	WebPercentage int `json:"webPercentage"`
}

// UpdateSettingsRequest 更新检索配置，省略的字段保持不变。
type UpdateSettingsRequest struct {
	VectorPercentage   *int `json:"vectorPercentage" binding:"omitempty,min=0,max=100"`
	ResultLength       *int `json:"resultLength" binding:"omitempty,gt=0"`
	SummarizeThreshold *int `json:"summarizeThreshold" binding:"omitempty,gt=0"`
}

func settingsResponse(cfg biz.RetrievalConfig) SettingsResponse {
	return SettingsResponse{RetrievalConfig: cfg, WebPercentage: cfg.WebWeight()}
}

// GetSettings 返回检索配置。
func (h *Handler) GetSettings(c *gin.Context) {
	response.OK(c, settingsResponse(h.config.Retrieval(c.Request.Context())))
}

// UpdateSettings 更新检索配置。
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if req.ResultLength != nil && len(h.limits.AllowedResultLengths) > 0 &&
		!slices.Contains(h.limits.AllowedResultLengths, *req.ResultLength) {
		response.Fail(c, errors.ErrInvalidParam.WithMessage(
			fmt.Sprintf("resultLength must be one of %v", h.limits.AllowedResultLengths)))
		return
	}
	if req.SummarizeThreshold != nil && *req.SummarizeThreshold < h.limits.MinSummarizeThreshold {
		response.Fail(c, errors.ErrInvalidParam.WithMessage(
			fmt.Sprintf("summarizeThreshold must be at least %d", h.limits.MinSummarizeThreshold)))
		return
	}

	cfg, err := h.config.UpdateRetrieval(c.Request.Context(), req.VectorPercentage, req.ResultLength, req.SummarizeThreshold)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, settingsResponse(cfg))
}

// UpdateCredentialsRequest 凭据覆盖，空字符串清除覆盖，nil 保持不变。
type UpdateCredentialsRequest struct {
	OpenAIAPIKey   *string `json:"openaiApiKey" binding:"omitempty,nowhitespace"`
	PineconeAPIKey *string `json:"pineconeApiKey" binding:"omitempty,nowhitespace"`
}

// GetCredentials 返回凭据的脱敏状态。
func (h *Handler) GetCredentials(c *gin.Context) {
	response.OK(c, h.config.CredentialStatuses(c.Request.Context()))
}

// UpdateCredentials 保存或清除凭据覆盖。
func (h *Handler) UpdateCredentials(c *gin.Context) {
	var req UpdateCredentialsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	updates := []struct {
		provider biz.CredentialProvider
		key      *string
	}{
		{biz.ProviderEmbedding, req.OpenAIAPIKey},
		{biz.ProviderVectorStore, req.PineconeAPIKey},
	}
	for _, u := range updates {
		if u.key == nil {
			continue
		}
		if err := h.config.SetCredential(ctx, u.provider, *u.key); err != nil {
			response.Fail(c, err)
			return
		}
	}
	response.OK(c, h.config.CredentialStatuses(ctx))
}
