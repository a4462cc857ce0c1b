// Package storage 提供上传文件的本地暂存
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Spool 上传文件暂存目录
// 暂存文件仅在单次提交内有效，提交结束后删除
type Spool struct {
	dir string
}

// NewSpool 创建暂存目录，dir 为空时使用系统临时目录
func NewSpool(dir string) (*Spool, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "qp-solver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool dir %s: %w", dir, err)
	}
	return &Spool{dir: dir}, nil
}

// Dir 返回暂存目录路径
func (s *Spool) Dir() string {
	return s.dir
}

// Put 将内容写入暂存文件，返回文件路径与写入字节数
func (s *Spool) Put(r io.Reader, name string) (string, int64, error) {
	if name == "" {
		name = uuid.New().String()
	}
	path := filepath.Join(s.dir, name+".pdf")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create spool file: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// 写入失败时不留下半截文件
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("failed to write spool file: %w", err)
	}

	return path, n, nil
}

// Remove 删除暂存文件
func (s *Spool) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// HealthCheck 校验暂存目录可写
func (s *Spool) HealthCheck() error {
	probe := filepath.Join(s.dir, ".probe-"+uuid.New().String())
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		return fmt.Errorf("spool dir not writable: %w", err)
	}
	return os.Remove(probe)
}
