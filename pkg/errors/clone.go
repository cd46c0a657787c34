package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// 知识克隆服务错误码，服务代码 21。
// 前四个对应外部依赖调用的错误分类：认证、上游服务、网络、配置。
var (
	// ErrAuth 外部服务拒绝了凭据（HTTP 401/403）。
	ErrAuth = Register(New(MakeCode(ServiceClone, CategoryAuth, 1), http.StatusUnauthorized, codes.Unauthenticated, "Upstream rejected credentials", "外部服务凭据无效"))

	// ErrUpstream 外部服务返回非 2xx 状态。
	ErrUpstream = Register(New(MakeCode(ServiceClone, CategoryNetwork, 1), http.StatusBadGateway, codes.Unavailable, "Upstream service error", "外部服务错误"))

	// ErrNetwork 与外部服务通信时发生传输层错误。
	ErrNetwork = Register(New(MakeCode(ServiceClone, CategoryNetwork, 2), http.StatusServiceUnavailable, codes.Unavailable, "Upstream unreachable", "外部服务不可达"))

	// ErrConfig 本地配置无效或缺失。
	ErrConfig = Register(New(MakeCode(ServiceClone, CategoryConfig, 1), http.StatusInternalServerError, codes.FailedPrecondition, "Invalid configuration", "配置无效"))

	ErrEmptyPrompt         = Register(New(MakeCode(ServiceClone, CategoryRequest, 1), http.StatusBadRequest, codes.InvalidArgument, "Prompt must not be empty", "提问内容不能为空"))
	ErrUnsupportedDocument = Register(New(MakeCode(ServiceClone, CategoryRequest, 2), http.StatusBadRequest, codes.InvalidArgument, "Unsupported document type", "不支持的文档类型"))
	ErrDocumentTooLarge    = Register(New(MakeCode(ServiceClone, CategoryRequest, 3), http.StatusRequestEntityTooLarge, codes.InvalidArgument, "Document exceeds size limit", "文档超出大小限制"))
	ErrEmptyDocument       = Register(New(MakeCode(ServiceClone, CategoryRequest, 4), http.StatusBadRequest, codes.InvalidArgument, "Document has no readable text", "文档没有可读取的文本"))

	ErrSessionNotFound = Register(New(MakeCode(ServiceClone, CategoryResource, 1), http.StatusNotFound, codes.NotFound, "Session not found", "会话不存在"))

	// ErrTurnInFlight 同一会话已有进行中的回合。
	ErrTurnInFlight = Register(New(MakeCode(ServiceClone, CategoryConflict, 1), http.StatusConflict, codes.Aborted, "A turn is already in progress for this session", "当前会话已有进行中的请求"))

	ErrIngestFailed = Register(New(MakeCode(ServiceClone, CategoryInternal, 1), http.StatusInternalServerError, codes.Internal, "Failed to upload file. Please check your API keys and try again.", "文件上传失败，请检查 API 密钥后重试"))
)
