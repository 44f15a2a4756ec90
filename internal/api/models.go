package api

// Endpoint paths relative to the API base URL.
const (
	ImageGenerationsPath   = "images/generations"
	ChatCompletionsPath    = "chat/completions"
	AudioTranscriptionPath = "audio/transcriptions"
)

// ImageResponse is the body returned by the image generation endpoint.
type ImageResponse struct {
	Created int64      `json:"created"`
	Data    []DataItem `json:"data"`
}

type DataItem struct {
	URL string `json:"url"`
}

// FirstURL returns the URL of the first generated image.
func (r ImageResponse) FirstURL() string {
	if len(r.Data) == 0 {
		return ""
	}
	return r.Data[0].URL
}

// MessageItem is a single chat message.
type MessageItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TextResponse is the body returned by the chat completion endpoint.
type TextResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *Usage             `json:"usage,omitempty"`
}

type CompletionChoice struct {
	Index        int         `json:"index"`
	Message      MessageItem `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage captures token counts reported with a completion.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}
