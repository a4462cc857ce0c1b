// Package web 内嵌前端页面资源
package web

import "embed"

//go:embed index.html
var FS embed.FS

// IndexPage 返回首页内容
func IndexPage() ([]byte, error) {
	return FS.ReadFile("index.html")
}
