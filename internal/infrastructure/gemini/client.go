// Package gemini 封装 Google Gemini 文件上传与内容生成
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"qp-solver-api/internal/application/solve"
	"qp-solver-api/internal/config"
	"qp-solver-api/internal/domain/entity"
	"qp-solver-api/pkg/metrics"
)

const pdfMIMEType = "application/pdf"

// Client Gemini 客户端，实现 solve.DocumentModel
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration

	// 已上传文件的引用缓存：handle -> 远端文件元数据
	// Generate 需要文件 URI，而对外 handle 只暴露不透明的文件名
	mu    sync.Mutex
	files map[entity.RemoteHandle]*genai.File
}

// NewClient 创建 Gemini 客户端
func NewClient(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		files:   make(map[entity.RemoteHandle]*genai.File),
	}, nil
}

// Close 关闭底层连接
func (c *Client) Close() error {
	return c.client.Close()
}

// Upload 上传本地文件到 Gemini File API
func (c *Client) Upload(ctx context.Context, localPath, displayName string) (entity.RemoteHandle, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	start := time.Now()
	file, err := c.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: displayName,
		MIMEType:    pdfMIMEType,
	})
	c.observe("upload", start, err)
	if err != nil {
		return "", fmt.Errorf("gemini upload: %w", err)
	}

	handle := entity.RemoteHandle(file.Name)
	c.mu.Lock()
	c.files[handle] = file
	c.mu.Unlock()
	return handle, nil
}

// Generate 基于已上传文件与提示词调用生成接口
// stream 为 false 时把一次性响应归一化为单块序列
func (c *Client) Generate(ctx context.Context, prompt string, handle entity.RemoteHandle, stream bool) (solve.ChunkStream, error) {
	file, ok := c.take(handle)
	if !ok {
		return nil, fmt.Errorf("unknown remote handle %q", handle)
	}

	model := c.client.GenerativeModel(c.model)
	parts := []genai.Part{
		genai.FileData{MIMEType: file.MIMEType, URI: file.URI},
		genai.Text(prompt),
	}

	if stream {
		ctx, cancel := c.callContext(ctx)
		iter := model.GenerateContentStream(ctx, parts...)
		return &chunkStream{iter: iter, cancel: cancel, started: time.Now(), observe: c.observe}, nil
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	start := time.Now()
	resp, err := model.GenerateContent(ctx, parts...)
	c.observe("generate", start, err)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return nil, errors.New("gemini: empty response")
	}
	return solve.NewSingleChunkStream(text), nil
}

// Delete 删除远端文件
func (c *Client) Delete(ctx context.Context, handle entity.RemoteHandle) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	c.mu.Lock()
	delete(c.files, handle)
	c.mu.Unlock()

	start := time.Now()
	err := c.client.DeleteFile(ctx, string(handle))
	c.observe("delete", start, err)
	if err != nil {
		return fmt.Errorf("gemini delete %s: %w", handle, err)
	}
	return nil
}

// take 取出并淘汰缓存的文件引用
// URI 一经取出缓存项即无用处，Delete 只依赖 handle 本身；
// 立即淘汰避免关闭远端删除时缓存随提交次数无限增长
func (c *Client) take(handle entity.RemoteHandle) (*genai.File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	file, ok := c.files[handle]
	delete(c.files, handle)
	return file, ok
}

// callContext 应用单次调用超时
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// observe 记录单次调用指标
func (c *Client) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.LLMCallDuration.WithLabelValues(c.model, op).Observe(time.Since(start).Seconds())
	metrics.LLMCallTotal.WithLabelValues(c.model, op, status).Inc()
}

// chunkStream 将 Gemini 流式响应适配为 solve.ChunkStream
type chunkStream struct {
	iter     *genai.GenerateContentResponseIterator
	cancel   context.CancelFunc
	started  time.Time
	observe  func(op string, start time.Time, err error)
	finished bool
}

func (s *chunkStream) Recv() (string, error) {
	resp, err := s.iter.Next()
	if err == iterator.Done {
		s.finish(nil)
		return "", io.EOF
	}
	if err != nil {
		s.finish(err)
		return "", err
	}
	return responseText(resp), nil
}

func (s *chunkStream) Close() {
	s.finish(nil)
	s.cancel()
}

func (s *chunkStream) finish(err error) {
	if s.finished {
		return
	}
	s.finished = true
	s.observe("generate", s.started, err)
}

// responseText 拼接响应中的文本片段
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var out string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				out += string(text)
			}
		}
	}
	return out
}
