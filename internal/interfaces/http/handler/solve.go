// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"qp-solver-api/internal/application/solve"
	"qp-solver-api/internal/config"
	"qp-solver-api/internal/domain/entity"
	"qp-solver-api/internal/interfaces/http/dto"
	apperrors "qp-solver-api/pkg/errors"
	"qp-solver-api/pkg/logger"
)

// SolveHandler 试卷解答处理器
type SolveHandler struct {
	cfg      *config.Config
	workflow *solve.Workflow
}

// NewSolveHandler 创建试卷解答处理器
func NewSolveHandler(cfg *config.Config, workflow *solve.Workflow) *SolveHandler {
	return &SolveHandler{
		cfg:      cfg,
		workflow: workflow,
	}
}

// Solve 提交试卷并获取解答
// @Summary 提交试卷并获取解答
// @Description 上传 PDF 试卷，调用生成模型解答；stream=true 时以 SSE 流式返回
// @Tags Solve
// @Accept multipart/form-data
// @Produce json
// @Produce text/event-stream
// @Param file formData file true "PDF 试卷文件"
// @Param stream query bool false "是否流式返回"
// @Success 200 {object} dto.Response[dto.SolveResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/solve [post]
func (h *SolveHandler) Solve(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		dto.BadRequest(c, "missing file field: "+err.Error())
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		dto.BadRequest(c, "only .pdf files are accepted")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		dto.InternalError(c, "failed to read uploaded file: "+err.Error())
		return
	}
	defer f.Close()

	streamMode := h.cfg.Solver.StreamDefault
	if v, ok := c.GetQuery("stream"); ok {
		streamMode = v == "true" || v == "1"
	}

	in := solve.Input{
		FileName: filepath.Base(fileHeader.Filename),
		Data:     f,
		Stream:   &streamMode,
	}

	if streamMode {
		h.solveStream(c, in)
		return
	}
	h.solveSync(c, in)
}

// solveSync 同步模式：完整结果一次性返回
func (h *SolveHandler) solveSync(c *gin.Context, in solve.Input) {
	sub, err := h.workflow.Run(c.Request.Context(), in, nil)
	if err != nil {
		dto.FromAppError(c, apperrors.AsAppError(err))
		return
	}
	dto.Success(c, dto.FromSubmission(sub))
}

// solveStream 流式模式：生成块按到达顺序经 SSE 转发
func (h *SolveHandler) solveStream(c *gin.Context, in solve.Input) {
	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()

	contentChan := make(chan string, 16)
	resultChan := make(chan *entity.Submission, 1)
	errChan := make(chan error, 1)

	go func() {
		sub, err := h.workflow.Run(ctx, in, func(chunk string) {
			select {
			case contentChan <- chunk:
			case <-ctx.Done():
				// 客户端已断开，生成仍跑完，块被丢弃
			}
		})
		if err != nil {
			errChan <- err
		} else {
			resultChan <- sub
		}
		close(contentChan)
	}()

	index := 0

	c.Stream(func(w io.Writer) bool {
		select {
		case chunk, ok := <-contentChan:
			if !ok {
				// 内容通道关闭，交付终止事件
				select {
				case err := <-errChan:
					appErr := apperrors.AsAppError(err)
					c.SSEvent("error", gin.H{
						"code":    string(appErr.Code),
						"message": appErr.Message,
					})
				case sub := <-resultChan:
					c.SSEvent("done", dto.SolveDoneEvent{
						SubmissionID: sub.ID,
						Status:       string(sub.Status),
						ChunkCount:   sub.ChunkCount,
						ResultChars:  len(sub.ResultText),
					})
				}
				return false
			}
			c.SSEvent("content", gin.H{
				"chunk": chunk,
				"index": index,
			})
			index++
			return true

		case <-ctx.Done():
			// 客户端断开
			logger.Warn(ctx, "client disconnected during stream")
			return false
		}
	})
}
