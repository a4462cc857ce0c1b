// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus 提交状态
type SubmissionStatus string

const (
	SubmissionStatusReceived   SubmissionStatus = "received"
	SubmissionStatusUploading  SubmissionStatus = "uploading"
	SubmissionStatusGenerating SubmissionStatus = "generating"
	SubmissionStatusCompleted  SubmissionStatus = "completed"
	SubmissionStatusFailed     SubmissionStatus = "failed"
)

// RemoteHandle 远端服务返回的文件引用，不透明
// 与本地暂存路径严格区分，避免二者混用后悬挂引用
type RemoteHandle string

// Submission 一次试卷提交
// 生命周期仅限单次请求，不做持久化
type Submission struct {
	ID           string           `json:"id"`
	FileName     string           `json:"file_name"`
	LocalPath    string           `json:"-"`
	RemoteHandle RemoteHandle     `json:"-"`
	PromptText   string           `json:"-"`
	ResultText   string           `json:"result_text,omitempty"`
	Status       SubmissionStatus `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	ChunkCount   int              `json:"chunk_count"`
	SizeBytes    int64            `json:"size_bytes"`
	CreatedAt    time.Time        `json:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// NewSubmission 创建新提交
func NewSubmission(fileName, promptText string) *Submission {
	return &Submission{
		ID:         uuid.New().String(),
		FileName:   fileName,
		PromptText: promptText,
		Status:     SubmissionStatusReceived,
		CreatedAt:  time.Now().UTC(),
	}
}

// MarkCompleted 标记完成
func (s *Submission) MarkCompleted() {
	now := time.Now().UTC()
	s.Status = SubmissionStatusCompleted
	s.CompletedAt = &now
}

// MarkFailed 标记失败
func (s *Submission) MarkFailed(msg string) {
	now := time.Now().UTC()
	s.Status = SubmissionStatusFailed
	s.ErrorMessage = msg
	s.CompletedAt = &now
}

// AppendChunk 追加一个生成块，按到达顺序累积
func (s *Submission) AppendChunk(chunk string) {
	s.ResultText += chunk
	s.ChunkCount++
}

// ClearRemoteHandle 远端文件删除后清空引用
func (s *Submission) ClearRemoteHandle() {
	s.RemoteHandle = ""
}
