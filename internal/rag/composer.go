package rag

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/crmhub/docquery-go/internal/errors"
)

// AnswerComposer 将检索到的chunk、用户画像和查询组装为提示词并调用补全模型
// 模型标识和温度固定，保证同样输入产生同样的提示词
type AnswerComposer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewAnswerComposer 创建回答组装器
func NewAnswerComposer(client *openai.Client, model string, temperature float32, maxTokens int) *AnswerComposer {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	return &AnswerComposer{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Compose 生成最终回答
// 提供商错误包装为COMPLETION_PROVIDER_ERROR，不在此处重试
func (c *AnswerComposer) Compose(ctx context.Context, chunks []string, query, profileJSON string) (string, error) {
	if c.client == nil {
		return "", apperrors.NewExternalError(apperrors.ErrCodeCompletionProvider, "openai client not initialized")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages:    c.buildMessages(chunks, query, profileJSON),
	})
	if err != nil {
		return "", apperrors.NewExternalError(apperrors.ErrCodeCompletionProvider, "completion request failed").WithCause(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewExternalError(apperrors.ErrCodeCompletionProvider, "completion response empty")
	}

	return resp.Choices[0].Message.Content, nil
}

// buildMessages 构建固定四段式提示词：
// 系统指令、检索文本约束、个性化指令、原始查询
func (c *AnswerComposer) buildMessages(chunks []string, query, profileJSON string) []openai.ChatCompletionMessage {
	combined := strings.Join(chunks, " ")

	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: "You are a helpful assistant. Reply to the point. Dont include any apologies or explanations in your replies.",
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("you shall answer the queries asked based on the following text provided: %s. Try to include all the details and names. Make it as descriptive as possible but take inputs only from the text provided.", combined),
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("Personalize your response. greet with name. use these details: %s", profileJSON),
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: query,
		},
	}
}
