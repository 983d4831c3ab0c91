package llm

// Message is one turn in a model conversation.
type Message struct {
	// Role is "system", "user", "assistant", or "tool".
	Role string

	// Content is the message text.
	Content string

	// Name optionally identifies the speaker, used when several NPCs share
	// one conversation.
	Name string

	// ToolCalls carries tool invocations requested by the assistant.
	ToolCalls []ToolCall

	// ToolCallID identifies which call a Role=="tool" message answers.
	ToolCallID string
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	// ID is the provider-assigned identifier for this call.
	ID string

	// Name is the tool name.
	Name string

	// Arguments is the JSON-encoded argument object.
	Arguments string
}

// ToolDefinition describes a tool offered to the model.
type ToolDefinition struct {
	// Name uniquely identifies the tool.
	Name string

	// Description tells the model what the tool does.
	Description string

	// Parameters is the JSON Schema of the tool's input.
	Parameters map[string]any
}

// ModelCapabilities reports what a backend model supports. Values are static
// metadata, not per-request state.
type ModelCapabilities struct {
	// ContextWindow is the combined input+output token limit.
	ContextWindow int

	// MaxOutputTokens caps a single completion.
	MaxOutputTokens int

	// SupportsToolCalling reports native function calling.
	SupportsToolCalling bool

	// SupportsVision reports image input support.
	SupportsVision bool

	// SupportsStreaming reports incremental completion support.
	SupportsStreaming bool
}
