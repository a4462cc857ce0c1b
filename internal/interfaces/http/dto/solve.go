// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"qp-solver-api/internal/domain/entity"
)

// SolveResponse 同步解题响应
type SolveResponse struct {
	SubmissionID string     `json:"submission_id"`
	FileName     string     `json:"file_name"`
	Status       string     `json:"status"`
	ResultText   string     `json:"result_text"`
	ChunkCount   int        `json:"chunk_count"`
	SizeBytes    int64      `json:"size_bytes"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// FromSubmission 由领域实体构建响应
func FromSubmission(sub *entity.Submission) *SolveResponse {
	return &SolveResponse{
		SubmissionID: sub.ID,
		FileName:     sub.FileName,
		Status:       string(sub.Status),
		ResultText:   sub.ResultText,
		ChunkCount:   sub.ChunkCount,
		SizeBytes:    sub.SizeBytes,
		CreatedAt:    sub.CreatedAt,
		CompletedAt:  sub.CompletedAt,
	}
}

// SolveDoneEvent 流式响应的终止事件负载
type SolveDoneEvent struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
	ChunkCount   int    `json:"chunk_count"`
	ResultChars  int    `json:"result_chars"`
}
