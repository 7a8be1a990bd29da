// Package google adapts Google's Gemini generative content API into a chat
// completion Mutation operation.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tidalcode/opstate/operation"
	"github.com/tidalcode/opstate/operation/providers/chat"
)

// New builds a Mutation operation that sends a chat.Request to a Gemini
// model and returns its chat.Out. modelName defaults to a current Gemini
// model when empty.
func New(path operation.Path, apiKey, modelName string) *operation.Operation[chat.Out] {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return newWithClient(path, &generativeClient{apiKey: apiKey, modelName: modelName})
}

// generativeAPI is the seam between the run body and the Gemini SDK,
// narrow enough to fake in tests without a live API key.
type generativeAPI interface {
	generateContent(ctx context.Context, messages []chat.Message, tools []chat.ToolSpec) (chat.Out, error)
}

func newWithClient(path operation.Path, client generativeAPI) *operation.Operation[chat.Out] {
	return operation.NewMutation[chat.Request, chat.Out](path, func(ctx context.Context, _ operation.Context, args chat.Request, _ operation.Continuation[chat.Out]) (chat.Out, error) {
		if err := ctx.Err(); err != nil {
			return chat.Out{}, err
		}
		out, err := client.generateContent(ctx, args.Messages, args.Tools)
		if err != nil {
			var safetyErr *SafetyFilterError
			if errors.As(err, &safetyErr) {
				return chat.Out{}, safetyErr
			}
			return chat.Out{}, err
		}
		return out, nil
	})
}

// SafetyFilterError reports that Gemini blocked a response under one of its
// safety categories (hate speech, sexual content, dangerous content,
// harassment).
type SafetyFilterError struct {
	Reason   string
	Category string
}

func (e *SafetyFilterError) Error() string {
	return fmt.Sprintf("google: content blocked (%s: %s)", e.Reason, e.Category)
}

type generativeClient struct {
	apiKey    string
	modelName string
}

func (c *generativeClient) generateContent(ctx context.Context, messages []chat.Message, tools []chat.ToolSpec) (chat.Out, error) {
	if c.apiKey == "" {
		return chat.Out{}, errors.New("google: API key is required")
	}

	sdkClient, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return chat.Out{}, fmt.Errorf("google: failed to create client: %w", err)
	}
	defer sdkClient.Close()

	genModel := sdkClient.GenerativeModel(c.modelName)
	if len(tools) > 0 {
		genModel.Tools = convertTools(tools)
	}

	resp, err := genModel.GenerateContent(ctx, convertMessages(messages)...)
	if err != nil {
		return chat.Out{}, fmt.Errorf("google: %w", err)
	}
	return convertResponse(resp), nil
}

func convertMessages(messages []chat.Message) []genai.Part {
	var parts []genai.Part
	for _, m := range messages {
		if m.Content != "" {
			parts = append(parts, genai.Text(m.Content))
		}
	}
	return parts
}

func convertTools(tools []chat.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertSchema(t.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func convertSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	result := &genai.Schema{Type: genai.TypeObject}
	if props, ok := schema["properties"].(map[string]any); ok {
		properties := make(map[string]*genai.Schema)
		for key, val := range props {
			propMap, ok := val.(map[string]any)
			if !ok {
				continue
			}
			propSchema := &genai.Schema{}
			if typeStr, ok := propMap["type"].(string); ok {
				propSchema.Type = convertTypeString(typeStr)
			}
			if desc, ok := propMap["description"].(string); ok {
				propSchema.Description = desc
			}
			properties[key] = propSchema
		}
		result.Properties = properties
	}
	if required, ok := schema["required"].([]string); ok {
		result.Required = required
	}
	return result
}

func convertTypeString(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func convertResponse(resp *genai.GenerateContentResponse) chat.Out {
	var out chat.Out
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, chat.ToolCall{Name: p.Name, Input: p.Args})
		}
	}
	return out
}
