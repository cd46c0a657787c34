package handler

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/utils/response"
)

// multipartOverhead 上传请求体中表单边界等额外字节的余量。
const multipartOverhead = 1 << 20

// ListDocuments 返回已上传的文件名列表。
func (h *Handler) ListDocuments(c *gin.Context) {
	response.OK(c, gin.H{"knowledgeSources": h.config.KnowledgeSources(c.Request.Context())})
}

// UploadDocument 接收 multipart 表单中的 file 字段并导入。
func (h *Handler) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.ingester.MaxBytes()+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			response.Fail(c, errors.ErrDocumentTooLarge)
			return
		}
		response.Fail(c, errors.ErrBadRequest.WithMessage("multipart field \"file\" is required"))
		return
	}
	if err := h.validator.ValidateVar(fh.Filename, "required,filename"); err != nil {
		response.Fail(c, errors.ErrInvalidParam.WithMessage("invalid file name"))
		return
	}
	if !h.ingester.Supported(fh.Filename) {
		response.Fail(c, errors.ErrUnsupportedDocument)
		return
	}
	if fh.Size > h.ingester.MaxBytes() {
		response.Fail(c, errors.ErrDocumentTooLarge)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.Fail(c, errors.ErrBadRequest.WithCause(err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.ingester.MaxBytes()+1))
	if err != nil {
		response.Fail(c, errors.ErrBadRequest.WithCause(err))
		return
	}

	result, err := h.ingester.Ingest(c.Request.Context(), fh.Filename, data)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}
