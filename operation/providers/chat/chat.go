// Package chat holds the provider-agnostic message and result shapes shared
// by the anthropic, openai, and google operation providers, so a caller can
// swap one provider's operation for another without touching call sites.
package chat

// Role identifies who produced a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation sent to a chat completion provider.
type Message struct {
	Role    Role
	Content string
}

// ToolSpec describes a tool a model may choose to call, in JSON Schema form.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ToolCall is a request from the model to invoke a specific tool.
type ToolCall struct {
	Name  string
	Input map[string]any
}

// Request is the Args type for a chat completion Mutation: a conversation
// plus the tools the model is allowed to call.
type Request struct {
	Messages []Message
	Tools    []ToolSpec
}

// Out is a provider's response: generated text, requested tool calls, or
// both.
type Out struct {
	Text      string
	ToolCalls []ToolCall
}
