// Package anthropic adapts Anthropic's Messages API into a chat completion
// Mutation operation.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tidalcode/opstate/operation"
	"github.com/tidalcode/opstate/operation/providers/chat"
)

// New builds a Mutation operation that sends a chat.Request to Claude and
// returns its chat.Out. modelName defaults to a current Claude model when
// empty. The run body extracts the system prompt from the request's
// messages before calling the API, since Anthropic expects it as a
// separate parameter rather than inline in the message list.
func New(path operation.Path, apiKey, modelName string) *operation.Operation[chat.Out] {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}
	return newWithClient(path, &messageClient{apiKey: apiKey, modelName: modelName})
}

// messageAPI is the seam between the run body and the Anthropic SDK,
// narrow enough to fake in tests without a live API key.
type messageAPI interface {
	createMessage(ctx context.Context, system string, messages []chat.Message, tools []chat.ToolSpec) (chat.Out, error)
}

func newWithClient(path operation.Path, client messageAPI) *operation.Operation[chat.Out] {
	return operation.NewMutation[chat.Request, chat.Out](path, func(ctx context.Context, _ operation.Context, args chat.Request, _ operation.Continuation[chat.Out]) (chat.Out, error) {
		if err := ctx.Err(); err != nil {
			return chat.Out{}, err
		}
		system, conversation := extractSystemPrompt(args.Messages)
		out, err := client.createMessage(ctx, system, conversation, args.Tools)
		if err != nil {
			var apiErr *anthropicAPIError
			if errors.As(err, &apiErr) {
				return chat.Out{}, apiErr
			}
			return chat.Out{}, err
		}
		return out, nil
	})
}

func extractSystemPrompt(messages []chat.Message) (string, []chat.Message) {
	var system string
	var conversation []chat.Message
	for _, m := range messages {
		if m.Role == chat.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		conversation = append(conversation, m)
	}
	return system, conversation
}

// anthropicAPIError carries Claude's error type alongside its message so
// callers can distinguish rate limiting, overload, and auth failures.
type anthropicAPIError struct {
	Type    string
	Message string
}

func (e *anthropicAPIError) Error() string { return e.Type + ": " + e.Message }

type messageClient struct {
	apiKey    string
	modelName string
}

func (c *messageClient) createMessage(ctx context.Context, system string, messages []chat.Message, tools []chat.ToolSpec) (chat.Out, error) {
	if c.apiKey == "" {
		return chat.Out{}, errors.New("anthropic: API key is required")
	}

	sdkClient := anthropicsdk.NewClient(option.WithAPIKey(c.apiKey))

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.modelName),
		Messages:  convertMessages(messages),
		MaxTokens: 4096,
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := sdkClient.Messages.New(ctx, params)
	if err != nil {
		return chat.Out{}, fmt.Errorf("anthropic: %w", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(messages []chat.Message) []anthropicsdk.MessageParam {
	result := make([]anthropicsdk.MessageParam, len(messages))
	for i, m := range messages {
		switch m.Role {
		case chat.RoleAssistant:
			result[i] = anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(m.Content))
		default:
			result[i] = anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content))
		}
	}
	return result
}

func convertTools(tools []chat.ToolSpec) []anthropicsdk.ToolUnionParam {
	result := make([]anthropicsdk.ToolUnionParam, len(tools))
	for i, t := range tools {
		var properties any
		var required []string
		if t.Schema != nil {
			if props, ok := t.Schema["properties"]; ok {
				properties = props
			}
			if req, ok := t.Schema["required"].([]string); ok {
				required = req
			}
		}
		result[i] = anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        t.Name,
				Description: anthropicsdk.String(t.Description),
				InputSchema: anthropicsdk.ToolInputSchemaParam{Properties: properties, Required: required},
			},
		}
	}
	return result
}

func convertResponse(resp *anthropicsdk.Message) chat.Out {
	var out chat.Out
	for _, block := range resp.Content {
		switch b := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += b.Text
		case anthropicsdk.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, chat.ToolCall{Name: b.Name, Input: convertToolInput(b.Input)})
		}
	}
	return out
}

func convertToolInput(input any) map[string]any {
	if input == nil {
		return nil
	}
	if m, ok := input.(map[string]any); ok {
		return m
	}
	return map[string]any{"_raw": input}
}
