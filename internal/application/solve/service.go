package solve

import (
	"context"
	"io"
	"strings"
	"time"

	"qp-solver-api/internal/domain/entity"
	"qp-solver-api/internal/infrastructure/storage"
	apperrors "qp-solver-api/pkg/errors"
	"qp-solver-api/pkg/logger"
	"qp-solver-api/pkg/metrics"
	"qp-solver-api/pkg/tracer"
)

// Options 工作流选项
type Options struct {
	// StreamDefault 请求未显式指定时是否流式生成
	StreamDefault bool
	// DeleteRemoteFile 结束后是否删除远端文件
	DeleteRemoteFile bool
}

// Workflow 试卷解答工作流
// 串行编排：暂存 -> 上传 -> 生成 -> 清理
// 凭证与依赖全部在构建时显式传入，不读取进程级全局状态
type Workflow struct {
	credential string
	model      DocumentModel
	spool      *storage.Spool
	prompt     string
	opts       Options
}

// NewWorkflow 创建工作流
func NewWorkflow(credential string, model DocumentModel, spool *storage.Spool, prompt string, opts Options) *Workflow {
	return &Workflow{
		credential: credential,
		model:      model,
		spool:      spool,
		prompt:     prompt,
		opts:       opts,
	}
}

// Input 单次提交输入
type Input struct {
	// FileName 上传时的展示文件名
	FileName string
	// Data 文件内容
	Data io.Reader
	// Stream 显式指定是否流式，nil 时取 Options.StreamDefault
	Stream *bool
}

// Run 执行一次提交
// emit 在每个生成块到达时立即回调（可为 nil），块按到达顺序交付；
// 失败时已交付的块保持可见。所有远端调用只尝试一次，不做重试。
func (w *Workflow) Run(ctx context.Context, in Input, emit func(chunk string)) (*entity.Submission, error) {
	sub := entity.NewSubmission(in.FileName, w.prompt)
	ctx = logger.WithContext(ctx, logger.SubmissionIDKey, sub.ID)

	// 凭证缺失时快速失败，不发起任何远端调用
	if strings.TrimSpace(w.credential) == "" {
		sub.MarkFailed(apperrors.ErrMissingCredential.Message)
		return sub, apperrors.ErrMissingCredential
	}

	ctx, span := tracer.Start(ctx, "solve.run")
	defer span.End()

	mode := "sync"
	streamMode := w.opts.StreamDefault
	if in.Stream != nil {
		streamMode = *in.Stream
	}
	if streamMode {
		mode = "stream"
	}

	metrics.ActiveSubmissions.Inc()
	defer metrics.ActiveSubmissions.Dec()
	start := time.Now()

	err := w.run(ctx, sub, in.Data, streamMode, emit)

	// 成功或失败都尽力清理本地与远端临时资源
	w.cleanup(context.WithoutCancel(ctx), sub)

	if err != nil {
		appErr := apperrors.AsAppError(err)
		sub.MarkFailed(appErr.Message)
		metrics.SolveTotal.WithLabelValues(mode, "failed").Inc()
		metrics.SolveDuration.WithLabelValues(mode, "failed").Observe(time.Since(start).Seconds())
		return sub, appErr
	}

	sub.MarkCompleted()
	metrics.SolveTotal.WithLabelValues(mode, "completed").Inc()
	metrics.SolveDuration.WithLabelValues(mode, "completed").Observe(time.Since(start).Seconds())
	metrics.SolveResultLength.WithLabelValues(mode).Observe(float64(len(sub.ResultText)))
	logger.Info(ctx, "solve completed",
		"file_name", sub.FileName,
		"chunks", sub.ChunkCount,
		"result_chars", len(sub.ResultText),
	)
	return sub, nil
}

// run 执行暂存/上传/生成三个阶段，清理由调用方兜底
func (w *Workflow) run(ctx context.Context, sub *entity.Submission, data io.Reader, streamMode bool, emit func(chunk string)) error {
	// 1. 暂存上传内容
	path, size, err := w.spool.Put(data, sub.ID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "failed to spool uploaded file")
	}
	sub.LocalPath = path
	sub.SizeBytes = size
	metrics.SolveUploadSize.Observe(float64(size))

	// 2. 上传远端服务
	sub.Status = entity.SubmissionStatusUploading
	handle, err := w.model.Upload(ctx, path, sub.FileName)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUploadFailed, "failed to upload document to remote service")
	}
	sub.RemoteHandle = handle

	// 3. 生成并消费响应
	sub.Status = entity.SubmissionStatusGenerating
	cs, err := w.model.Generate(ctx, w.prompt, handle, streamMode)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeGenerationFailed, "generation request failed")
	}
	defer cs.Close()

	_, _, err = Drain(cs, func(chunk string) {
		sub.AppendChunk(chunk)
		metrics.SolveChunksRelayed.Inc()
		if emit != nil {
			emit(chunk)
		}
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeGenerationFailed, "generation stream interrupted")
	}

	if strings.TrimSpace(sub.ResultText) == "" {
		return apperrors.New(apperrors.CodeEmptyResult, "remote service returned empty result")
	}
	return nil
}

// cleanup 清理本地暂存文件与远端文件
// 清理失败只记录告警，不影响工作流结果
func (w *Workflow) cleanup(ctx context.Context, sub *entity.Submission) {
	if sub.LocalPath != "" {
		if err := w.spool.Remove(sub.LocalPath); err != nil {
			logger.Warn(ctx, "failed to remove spool file", "path", sub.LocalPath, "error", err.Error())
		}
		sub.LocalPath = ""
	}

	if sub.RemoteHandle != "" && w.opts.DeleteRemoteFile {
		if err := w.model.Delete(ctx, sub.RemoteHandle); err != nil {
			logger.Warn(ctx, "failed to delete remote file", "handle", string(sub.RemoteHandle), "error", err.Error())
		}
		// 无论删除是否成功都不再引用该 handle
		sub.ClearRemoteHandle()
	}
}
