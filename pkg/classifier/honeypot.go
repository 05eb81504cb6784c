package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HoneyTrapAI/sentinel/pkg/httputil"
)

// sourceTag identifies the scraping surface to the backend.
const sourceTag = "whatsapp_web"

// HoneypotClient talks to the hosted honeypot backend:
// POST {base}/api/chat with an x-api-key header.
type HoneypotClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

// NewHoneypotClient creates a client with default backend credentials.
// Per-request overrides from the settings snapshot take precedence.
func NewHoneypotClient(baseURL, apiKey string, logger *zap.Logger) *HoneypotClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HoneypotClient{
		client:  httputil.ClassifyClient(),
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  logger,
	}
}

type chatRequest struct {
	SessionID           string       `json:"sessionId"`
	Message             string       `json:"message"`
	ConversationHistory []Turn       `json:"conversationHistory"`
	Metadata            chatMetadata `json:"metadata"`
}

type chatMetadata struct {
	Source  string `json:"source"`
	Persona string `json:"persona"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Classify implements Classifier against the honeypot backend. Any
// transport failure, non-2xx status, or reply-less body maps to
// ErrUnavailable.
func (c *HoneypotClient) Classify(ctx context.Context, req Request) (*Outcome, error) {
	baseURL := req.BaseURL
	if baseURL == "" {
		baseURL = c.baseURL
	}
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}

	history := req.History
	if history == nil {
		history = []Turn{}
	}

	body, err := json.Marshal(chatRequest{
		SessionID:           req.SessionID,
		Message:             req.Message,
		ConversationHistory: history,
		Metadata: chatMetadata{
			Source:  sourceTag,
			Persona: req.Persona,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Warn("classifier call failed", zap.String("session", req.SessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("classifier returned non-success status",
			zap.String("session", req.SessionID), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	raw, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed body: %v", ErrUnavailable, err)
	}

	return &Outcome{Reply: parsed.Reply}, nil
}

// Probe implements Prober with a GET against the backend root. Transport
// failures and server errors count as unreachable; anything the backend
// answers itself does not.
func (c *HoneypotClient) Probe(ctx context.Context, baseURL string) error {
	if baseURL == "" {
		baseURL = c.baseURL
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/", nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := httputil.ProbeClient().Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Ensure HoneypotClient implements both contracts
var (
	_ Classifier = (*HoneypotClient)(nil)
	_ Prober     = (*HoneypotClient)(nil)
)
