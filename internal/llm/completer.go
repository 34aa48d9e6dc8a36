package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ErrEmptyCompletion 模型返回了空内容
var ErrEmptyCompletion = errors.New("empty completion")

const nodeModel = "model"

// Request 一次文本生成请求
type Request struct {
	Model       string   // 为空时使用聊天模型的默认模型
	System      string   // 系统提示词
	User        string   // 用户提示词
	ImageURL    string   // 非空时作为视觉输入（URL或data URL）
	Temperature *float32 // 为空时使用模型默认值
	MaxTokens   int      // 0 表示不限制
}

// Completer 文本生成能力
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ChatCompleter 基于eino graph的文本生成实现
type ChatCompleter struct {
	runner compose.Runnable[[]*schema.Message, *schema.Message]
}

// NewChatCompleter 编译只包含一个聊天模型节点的graph
func NewChatCompleter(ctx context.Context, chatModel model.BaseChatModel) (*ChatCompleter, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	graph := compose.NewGraph[[]*schema.Message, *schema.Message]()
	if err := graph.AddChatModelNode(nodeModel, chatModel); err != nil {
		return nil, fmt.Errorf("failed to add chat model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, nodeModel); err != nil {
		return nil, fmt.Errorf("failed to add start edge: %w", err)
	}
	if err := graph.AddEdge(nodeModel, compose.END); err != nil {
		return nil, fmt.Errorf("failed to add end edge: %w", err)
	}

	runner, err := graph.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile graph: %w", err)
	}
	return &ChatCompleter{runner: runner}, nil
}

// Complete 执行一次生成并返回文本内容
func (c *ChatCompleter) Complete(ctx context.Context, req Request) (string, error) {
	var opts []model.Option
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.Temperature != nil {
		opts = append(opts, model.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	res, err := c.runner.Invoke(ctx, BuildMessages(req), compose.WithChatModelOption(opts...))
	if err != nil {
		return "", fmt.Errorf("graph invocation failed: %w", err)
	}
	if res == nil || strings.TrimSpace(res.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return res.Content, nil
}

// BuildMessages 组装system/user消息，带图片时user消息使用多模态内容
func BuildMessages(req Request) []*schema.Message {
	messages := make([]*schema.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, schema.SystemMessage(req.System))
	}

	if req.ImageURL == "" {
		return append(messages, schema.UserMessage(req.User))
	}
	return append(messages, &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: req.User},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:    req.ImageURL,
					Detail: schema.ImageURLDetailLow,
				},
			},
		},
	})
}

// Float32 返回指针，便于设置Temperature
func Float32(v float32) *float32 {
	return &v
}
