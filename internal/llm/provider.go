package llm

import "context"

// Provider 大模型调用的统一抽象。带 Schema 的请求走各家的结构化输出通道，
// 返回内容保证是通过 JSON Schema 校验的 JSON 文本。
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	ModelID() string
}

// Request 单轮生成请求
type Request struct {
	// System 系统提示词，设定角色和输出约束
	System string
	// Prompt 用户侧内容
	Prompt string
	// Schema 非空时要求结构化 JSON 输出
	Schema *Schema
	// MaxTokens 回复上限，0 用各 provider 默认值
	MaxTokens int
	// Temperature 0 表示确定性输出
	Temperature float64
}

// Schema 结构化输出的 JSON Schema 定义
type Schema struct {
	Name       string
	Definition map[string]any
}
