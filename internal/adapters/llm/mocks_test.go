package llm_test

import (
    "context"
    "encoding/json"

    "bidwatch/internal/adapters/llm"
)

type mockClient struct {
    chatFn     func(ctx context.Context, req llm.Request) (string, error)
    completeFn func(ctx context.Context, prompt string) (string, error)
    chatCalls  int
    lastPrompt string
}

func (m *mockClient) Chat(ctx context.Context, req llm.Request, result any) error {
    m.chatCalls++
    m.lastPrompt = req.Prompt
    if m.chatFn == nil {
        return nil
    }
    body, err := m.chatFn(ctx, req)
    if err != nil {
        return err
    }
    return json.Unmarshal([]byte(body), result)
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
    m.lastPrompt = prompt
    if m.completeFn == nil {
        return "", nil
    }
    return m.completeFn(ctx, prompt)
}

func (m *mockClient) Model() string { return "mock" }
