package classifier

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient generates decoy replies through any OpenAI-compatible chat
// endpoint, for deployments that run without the hosted honeypot backend.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIClient creates a classifier backed by an OpenAI-compatible API.
// baseURL may be empty for the default endpoint.
func NewOpenAIClient(apiKey, baseURL, model string, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// personaPrompt frames the decoy role. The model only ever sees redacted
// text, so the prompt can be blunt about the engagement goal.
func personaPrompt(persona string) string {
	if persona == "" {
		persona = "default"
	}
	return fmt.Sprintf(`You are a scam-baiting decoy persona (%q) replying inside a chat
conversation that a fraud-analysis system has flagged as a likely financial
scam. Reply as a plausible, slightly naive potential victim: short,
conversational, asking clarifying questions that waste the scammer's time.
Never share personal data, never send money, never include links. Reply with
the message text only.`, persona)
}

// Classify implements Classifier by asking the model for the next decoy
// turn. Errors map to ErrUnavailable so the pipeline degrades identically
// for either backend.
func (c *OpenAIClient) Classify(ctx context.Context, req Request) (*Outcome, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: personaPrompt(req.Persona),
	})
	for _, turn := range req.History {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		c.logger.Warn("openai classifier call failed", zap.String("session", req.SessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrUnavailable)
	}

	return &Outcome{Reply: strings.TrimSpace(resp.Choices[0].Message.Content)}, nil
}

// Ensure OpenAIClient implements Classifier
var _ Classifier = (*OpenAIClient)(nil)
