package solve

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qp-solver-api/internal/domain/entity"
	"qp-solver-api/internal/infrastructure/storage"
	apperrors "qp-solver-api/pkg/errors"
	"qp-solver-api/pkg/metrics"
)

// fakeModel 记录调用的远端服务替身
type fakeModel struct {
	mu sync.Mutex

	uploadCalls   int
	generateCalls int
	deleteCalls   int

	uploadErr   error
	generateErr error
	recvErr     error

	handle  entity.RemoteHandle
	chunks  []string
	deleted []entity.RemoteHandle

	lastPrompt string
	lastStream bool
}

func (f *fakeModel) Upload(ctx context.Context, localPath, displayName string) (entity.RemoteHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.handle, nil
}

func (f *fakeModel) Generate(ctx context.Context, prompt string, handle entity.RemoteHandle, stream bool) (ChunkStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	f.lastPrompt = prompt
	f.lastStream = stream
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	if !stream {
		return NewSingleChunkStream(strings.Join(f.chunks, "")), nil
	}
	return &sliceStream{chunks: f.chunks, err: f.recvErr}, nil
}

func (f *fakeModel) Delete(ctx context.Context, handle entity.RemoteHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	f.deleted = append(f.deleted, handle)
	return nil
}

// sliceStream 依次交付预置块，结束时可注入错误
type sliceStream struct {
	chunks []string
	err    error
	pos    int
}

func (s *sliceStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *sliceStream) Close() {}

func newTestWorkflow(t *testing.T, credential string, model DocumentModel, opts Options) (*Workflow, string) {
	t.Helper()
	dir := t.TempDir()
	spool, err := storage.NewSpool(dir)
	require.NoError(t, err)
	return NewWorkflow(credential, model, spool, DefaultPrompt, opts), dir
}

func spoolFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	require.NoError(t, err)
	return matches
}

func TestWorkflowMissingCredential(t *testing.T) {
	model := &fakeModel{handle: "H1", chunks: []string{"x"}}
	w, dir := newTestWorkflow(t, "", model, Options{DeleteRemoteFile: true})

	sub, err := w.Run(context.Background(), Input{FileName: "x.pdf", Data: strings.NewReader("data")}, nil)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeMissingCredential, apperrors.AsAppError(err).Code)
	assert.Equal(t, entity.SubmissionStatusFailed, sub.Status)

	// 不发起任何远端调用，也不落暂存文件
	assert.Zero(t, model.uploadCalls)
	assert.Zero(t, model.generateCalls)
	assert.Zero(t, model.deleteCalls)
	assert.Empty(t, spoolFiles(t, dir))
}

func TestWorkflowSyncScenario(t *testing.T) {
	// 10 字节非 PDF 内容的 x.pdf，远端返回 "Answer: 42"
	model := &fakeModel{handle: "H1", chunks: []string{"Answer: 42"}}
	w, dir := newTestWorkflow(t, "valid-key", model, Options{DeleteRemoteFile: true})

	stream := false
	sub, err := w.Run(context.Background(), Input{
		FileName: "x.pdf",
		Data:     strings.NewReader("0123456789"),
		Stream:   &stream,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Answer: 42", sub.ResultText)
	assert.Equal(t, entity.SubmissionStatusCompleted, sub.Status)
	assert.Equal(t, int64(10), sub.SizeBytes)
	assert.False(t, model.lastStream)
	assert.Equal(t, DefaultPrompt, model.lastPrompt)

	// 暂存文件已删除，远端句柄已清理
	assert.Empty(t, spoolFiles(t, dir))
	assert.Equal(t, 1, model.deleteCalls)
	assert.Equal(t, []entity.RemoteHandle{"H1"}, model.deleted)
	assert.Empty(t, sub.RemoteHandle)
}

func TestWorkflowStreamChunkOrder(t *testing.T) {
	model := &fakeModel{handle: "H1", chunks: []string{"The ", "answer ", "is ", "42."}}
	w, dir := newTestWorkflow(t, "valid-key", model, Options{StreamDefault: true, DeleteRemoteFile: true})

	var emitted []string
	sub, err := w.Run(context.Background(), Input{FileName: "q.pdf", Data: strings.NewReader("pdf")}, func(chunk string) {
		emitted = append(emitted, chunk)
	})

	require.NoError(t, err)
	assert.True(t, model.lastStream)

	// 转发块按到达顺序拼接后等于最终结果
	assert.Equal(t, []string{"The ", "answer ", "is ", "42."}, emitted)
	assert.Equal(t, strings.Join(emitted, ""), sub.ResultText)
	assert.Equal(t, 4, sub.ChunkCount)
	assert.Empty(t, spoolFiles(t, dir))
}

func TestWorkflowUploadFailureIdempotent(t *testing.T) {
	model := &fakeModel{uploadErr: errors.New("service unavailable")}
	w, dir := newTestWorkflow(t, "valid-key", model, Options{DeleteRemoteFile: true})

	// 连续两次提交，错误分类一致
	for i := 0; i < 2; i++ {
		sub, err := w.Run(context.Background(), Input{FileName: "x.pdf", Data: strings.NewReader("data")}, nil)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeUploadFailed, apperrors.AsAppError(err).Code)
		assert.Equal(t, entity.SubmissionStatusFailed, sub.Status)
		assert.Empty(t, spoolFiles(t, dir))
	}

	assert.Equal(t, 2, model.uploadCalls)
	assert.Zero(t, model.generateCalls)
	// 未获得句柄，不应尝试远端删除
	assert.Zero(t, model.deleteCalls)
}

func TestWorkflowGenerateFailure(t *testing.T) {
	model := &fakeModel{handle: "H1", generateErr: errors.New("quota exceeded")}
	w, dir := newTestWorkflow(t, "valid-key", model, Options{DeleteRemoteFile: true})

	_, err := w.Run(context.Background(), Input{FileName: "x.pdf", Data: strings.NewReader("data")}, nil)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeGenerationFailed, apperrors.AsAppError(err).Code)

	// 已上传成功，失败后仍清理远端文件与暂存文件
	assert.Equal(t, 1, model.deleteCalls)
	assert.Empty(t, spoolFiles(t, dir))
}

func TestWorkflowMidStreamFailureKeepsPartialOutput(t *testing.T) {
	model := &fakeModel{
		handle:  "H1",
		chunks:  []string{"partial "},
		recvErr: errors.New("connection reset"),
	}
	w, _ := newTestWorkflow(t, "valid-key", model, Options{StreamDefault: true, DeleteRemoteFile: true})

	var emitted []string
	sub, err := w.Run(context.Background(), Input{FileName: "x.pdf", Data: strings.NewReader("data")}, func(chunk string) {
		emitted = append(emitted, chunk)
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeGenerationFailed, apperrors.AsAppError(err).Code)

	// 中断前已交付的块保持可见
	assert.Equal(t, []string{"partial "}, emitted)
	assert.Equal(t, "partial ", sub.ResultText)
}

func TestWorkflowEmptyResult(t *testing.T) {
	model := &fakeModel{handle: "H1", chunks: nil}
	w, _ := newTestWorkflow(t, "valid-key", model, Options{StreamDefault: true})

	_, err := w.Run(context.Background(), Input{FileName: "x.pdf", Data: strings.NewReader("data")}, nil)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeEmptyResult, apperrors.AsAppError(err).Code)
}

func TestWorkflowDeleteRemoteFileDisabled(t *testing.T) {
	model := &fakeModel{handle: "H1", chunks: []string{"done"}}
	w, _ := newTestWorkflow(t, "valid-key", model, Options{StreamDefault: true, DeleteRemoteFile: false})

	sub, err := w.Run(context.Background(), Input{FileName: "x.pdf", Data: strings.NewReader("data")}, nil)

	require.NoError(t, err)
	assert.Zero(t, model.deleteCalls)
	assert.Equal(t, entity.RemoteHandle("H1"), sub.RemoteHandle)
}

func durationSamples(t *testing.T, mode, status string) uint64 {
	t.Helper()
	obs, err := metrics.SolveDuration.GetMetricWithLabelValues(mode, status)
	require.NoError(t, err)
	m := &dto.Metric{}
	require.NoError(t, obs.(prometheus.Metric).Write(m))
	return m.GetHistogram().GetSampleCount()
}

func TestWorkflowDurationObservedOnFailure(t *testing.T) {
	// 失败提交同样记录端到端耗时
	before := durationSamples(t, "sync", "failed")

	model := &fakeModel{handle: "H1", generateErr: errors.New("quota exceeded")}
	w, _ := newTestWorkflow(t, "valid-key", model, Options{})

	_, err := w.Run(context.Background(), Input{FileName: "x.pdf", Data: strings.NewReader("data")}, nil)
	require.Error(t, err)

	assert.Equal(t, before+1, durationSamples(t, "sync", "failed"))
}

func TestWorkflowSpoolFailure(t *testing.T) {
	model := &fakeModel{handle: "H1", chunks: []string{"x"}}
	dir := t.TempDir()
	spool, err := storage.NewSpool(dir)
	require.NoError(t, err)
	w := NewWorkflow("valid-key", model, spool, DefaultPrompt, Options{})

	// 目录被移除后写入必然失败
	require.NoError(t, os.RemoveAll(dir))

	_, err = w.Run(context.Background(), Input{FileName: "x.pdf", Data: strings.NewReader("data")}, nil)

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStorageError, apperrors.AsAppError(err).Code)
	assert.Zero(t, model.uploadCalls)
}
