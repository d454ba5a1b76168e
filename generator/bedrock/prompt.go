package bedrock

import "nutriplan"

type Prompt struct {
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
}

// NewPrompt builds the opening conversation for a generation request.
func NewPrompt(req nutriplan.GenerationRequest) Prompt {
	var bedrockTools []Tool
	if req.Tools != nil {
		for _, tool := range req.Tools.GetTools() {
			bedrockTools = append(bedrockTools, Tool{
				Name:        tool.Name(),
				Description: tool.Description(),
				InputSchema: tool.InputSchema(),
			})
		}
	}

	var messages []Message
	if req.SystemPrompt != "" {
		messages = append(messages, Message{
			Role:    "system",
			Content: MessageParts{{Type: "text", Text: req.SystemPrompt}},
		})
	}
	messages = append(messages, Message{
		Role:    "user",
		Content: MessageParts{{Type: "text", Text: req.UserPrompt}},
	})

	return Prompt{Messages: messages, Tools: bedrockTools}
}

// LastText returns a short preview of the latest message for logging.
func (p Prompt) LastText() string {
	text := "no content"
	if len(p.Messages) == 0 {
		return text
	}
	last := p.Messages[len(p.Messages)-1]
	if len(last.Content) > 0 && len(last.Content[0].Text) > 0 {
		text = last.Content[0].Text
		if len(text) > 100 {
			text = text[:97] + "..."
		}
	}
	return text
}
