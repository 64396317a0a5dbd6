package llm

import (
	"context"
	"sync"
)

// MockResponse MockProvider 的一条预置应答
type MockResponse struct {
	Content string
	Err     error
}

// MockProvider 测试用的确定性 Provider，按 FIFO 返回预置应答并记录所有请求
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Generate 队列耗尽时返回 ErrProviderUnavailable
func (m *MockProvider) Generate(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return "", &ErrProviderUnavailable{}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Content, nil
}

func (m *MockProvider) ModelID() string {
	return "mock"
}

func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}
