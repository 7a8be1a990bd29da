// Package openai adapts OpenAI's chat completions API into a chat
// completion Mutation operation.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/tidalcode/opstate/operation"
	"github.com/tidalcode/opstate/operation/providers/chat"
)

// New builds a Mutation operation that sends a chat.Request to an OpenAI
// chat model and returns its chat.Out. modelName defaults to a current
// GPT-4 model when empty. The operation is wrapped in a Retry modifier
// covering transient network and rate-limit errors, since the OpenAI API
// exhibits these more often than the other providers.
func New(path operation.Path, apiKey, modelName string) *operation.Operation[chat.Out] {
	if modelName == "" {
		modelName = "gpt-4o"
	}
	return newWithClient(path, &completionClient{apiKey: apiKey, modelName: modelName})
}

// completionAPI is the seam between the run body and the OpenAI SDK,
// narrow enough to fake in tests without a live API key.
type completionAPI interface {
	createChatCompletion(ctx context.Context, messages []chat.Message, tools []chat.ToolSpec) (chat.Out, error)
}

func newWithClient(path operation.Path, client completionAPI) *operation.Operation[chat.Out] {
	op := operation.NewMutation[chat.Request, chat.Out](path, func(ctx context.Context, _ operation.Context, args chat.Request, _ operation.Continuation[chat.Out]) (chat.Out, error) {
		if err := ctx.Err(); err != nil {
			return chat.Out{}, err
		}
		return client.createChatCompletion(ctx, args.Messages, args.Tools)
	})

	return op.Modifier(operation.Retry[chat.Out](operation.RetryPolicy{
		MaxAttempts: 4,
		Backoff:     operation.ExponentialBackoff(1),
		ShouldRetry: isTransientError,
	}))
}

// isTransientError reports whether err looks like a rate limit or a
// transport-level failure worth retrying.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	var rateLimitErr *rateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "network", "connection", "temporary", "503", "502", "500"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

type rateLimitError struct{ message string }

func (e *rateLimitError) Error() string { return e.message }

type completionClient struct {
	apiKey    string
	modelName string
}

func (c *completionClient) createChatCompletion(ctx context.Context, messages []chat.Message, tools []chat.ToolSpec) (chat.Out, error) {
	if c.apiKey == "" {
		return chat.Out{}, errors.New("openai: API key is required")
	}

	sdkClient := openaisdk.NewClient(option.WithAPIKey(c.apiKey))

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.modelName),
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := sdkClient.Chat.Completions.New(ctx, params)
	if err != nil {
		return chat.Out{}, fmt.Errorf("openai: %w", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(messages []chat.Message) []openaisdk.ChatCompletionMessageParamUnion {
	result := make([]openaisdk.ChatCompletionMessageParamUnion, len(messages))
	for i, m := range messages {
		switch m.Role {
		case chat.RoleSystem:
			result[i] = openaisdk.SystemMessage(m.Content)
		case chat.RoleAssistant:
			result[i] = openaisdk.AssistantMessage(m.Content)
		default:
			result[i] = openaisdk.UserMessage(m.Content)
		}
	}
	return result
}

func convertTools(tools []chat.ToolSpec) []openaisdk.ChatCompletionToolParam {
	result := make([]openaisdk.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		result[i] = openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openaisdk.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Schema),
			},
		}
	}
	return result
}

func convertResponse(resp *openaisdk.ChatCompletion) chat.Out {
	var out chat.Out
	if len(resp.Choices) == 0 {
		return out
	}
	msg := resp.Choices[0].Message
	out.Text = msg.Content
	if len(msg.ToolCalls) > 0 {
		out.ToolCalls = make([]chat.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			out.ToolCalls[i] = chat.ToolCall{Name: tc.Function.Name, Input: parseToolInput(tc.Function.Arguments)}
		}
	}
	return out
}

func parseToolInput(jsonStr string) map[string]any {
	if jsonStr == "" {
		return nil
	}
	return map[string]any{"_raw": jsonStr}
}
