package extractor

import (
	_ "embed"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/extract_prompt.txt
var extractSystemPrompt string

// messageVar is the template variable carrying the user's text.
const messageVar = "message"

// SystemPrompt returns the extraction instructions sent with every request.
func SystemPrompt() string {
	return extractSystemPrompt
}

// NewPromptTemplate builds the chat template used by the extraction chain.
// The system prompt is passed as literal content; only the user message is templated.
func NewPromptTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.MessagesPlaceholder("system_messages", false),
		schema.UserMessage("User Message:\n\"{{."+messageVar+"}}\""),
	)
}

// templateVars are the variables for one extraction request.
func templateVars(text string) map[string]any {
	return map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(extractSystemPrompt)},
		messageVar:        text,
	}
}
