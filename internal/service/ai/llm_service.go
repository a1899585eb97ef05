package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/likeness-ai/command-center/backend/internal/model/chat"
)

const defaultHistoryLimit = 10

// ChatService 基于 eino chain 的多轮对话：系统提示 + 历史 + 本轮输入
type ChatService struct {
	chatModel    model.ChatModel
	chain        compose.Runnable[map[string]any, *schema.Message]
	stream       bool
	historyLimit int
}

// ChatOptions 对话参数
type ChatOptions struct {
	Stream       bool
	HistoryLimit int
}

// NewChatService 编译对话链
func NewChatService(ctx context.Context, chatModel model.ChatModel, opts ChatOptions) (*ChatService, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	return &ChatService{
		chatModel:    chatModel,
		chain:        runnable,
		stream:       opts.Stream,
		historyLimit: limit,
	}, nil
}

// StreamingEnabled 指示是否开启 SSE 流式输出。
func (s *ChatService) StreamingEnabled() bool {
	return s.stream
}

// GenerateReply 生成一轮回复，history 不包含本轮用户输入
func (s *ChatService) GenerateReply(ctx context.Context, history []chat.Message, query string) (string, error) {
	response, err := s.chain.Invoke(ctx, s.buildChainInput(history, query))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil || response.Content == "" {
		return "", ErrEmptyResponse
	}

	log.Printf("[ai] generated reply, history=%d, length=%d", len(history), len(response.Content))
	return response.Content, nil
}

// StreamReply 流式生成回复
func (s *ChatService) StreamReply(ctx context.Context, history []chat.Message, query string) (*schema.StreamReader[*schema.Message], error) {
	if !s.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	stream, err := s.chain.Stream(ctx, s.buildChainInput(history, query))
	if err != nil {
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	return stream, nil
}

func (s *ChatService) buildChainInput(history []chat.Message, query string) map[string]any {
	return map[string]any{
		"system":  SystemInstruction,
		"history": s.buildHistoryMessages(history),
		"query":   query,
	}
}

func (s *ChatService) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > s.historyLimit {
		startIdx = len(messages) - s.historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleModel:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
