package model

// ================ Config ================

// ConversationConfig bounds a single conversation-loop invocation.
type ConversationConfig struct {
	Tools struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"8"`
	}
	RequestTimeout string `envconfig:"CONVERSATION_REQUEST_TIMEOUT" default:"60s"`
}

// ChatModelConfig configures the Gemini response model.
type ChatModelConfig struct {
	Model       string  `envconfig:"CHAT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"CHAT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"CHAT_TEMPERATURE" default:"0.6"`
}

// PromptConfig parameterises the system prompt.
type PromptConfig struct {
	AssistantName string `envconfig:"PROMPT_ASSISTANT_NAME" default:"MenteViva"`
	DefaultCity   string `envconfig:"PROMPT_DEFAULT_CITY" default:"Madrid"`
}

// Toolset selects which tools a deployment exposes to the model.
type ToolsetConfig struct {
	Variant string `envconfig:"ASSISTANT_TOOLSET" default:"full"`
}
