package types

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type KeyBinding struct {
	Key         string
	Description string
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest always carries the system instruction first and the user text second.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

func NewChatRequest(model, instructions, userText string) ChatRequest {
	return ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: RoleSystem, Content: instructions},
			{Role: RoleUser, Content: userText},
		},
	}
}

type Choice struct {
	Message Message `json:"message"`
}

type ChatResponse struct {
	Choices []Choice `json:"choices"`
}
