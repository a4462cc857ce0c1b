package solve

import (
	"fmt"
	"os"
	"strings"
)

// DefaultPrompt 内置解题提示词
// 工作流构建时选定，单次运行期间不可变
const DefaultPrompt = `You will be given a question paper containing various questions, including theoretical and programming-related ones (C, MySQL, OS, etc.). Your task is to analyze the entire question paper and provide accurate, well-explained answers like a teacher.

For theoretical questions, give clear, detailed explanations.

For coding questions, provide correct and optimized code. If the code alone is sufficient, you may skip the explanation. Otherwise, include a proper explanation of how the code works.

Accuracy is the priority, take your time to ensure correctness.

Do not skip any questions; every question must be answered thoroughly.

Your goal is to ensure that every answer is well-structured, correct, and easy to understand.`

// LoadPrompt 加载提示词
// path 为空时返回内置提示词
func LoadPrompt(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPrompt, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", path, err)
	}
	prompt := strings.TrimSpace(string(content))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	return prompt, nil
}
