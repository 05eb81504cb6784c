package autoreply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/HoneyTrapAI/sentinel/pkg/httputil"
)

// ActionInjectReply is the command verb the scraping collaborator expects.
const ActionInjectReply = "injectReply"

// Command is the injection instruction handed to the collaborator that
// owns the chat input field. Delivery is fire-and-forget from the
// pipeline's perspective.
type Command struct {
	Action    string `json:"action"`
	Text      string `json:"text"`
	SessionID string `json:"sessionId,omitempty"`
}

// Injector delivers an injection command to the external collaborator.
type Injector interface {
	Inject(ctx context.Context, cmd Command) error
}

// QueueInjector buffers commands for a polling collaborator. When the
// buffer is full the oldest command is dropped: a stale decoy reply has no
// value, the freshest intent does.
type QueueInjector struct {
	ch     chan Command
	logger *zap.Logger
}

// NewQueueInjector creates a queue with the given buffer size.
func NewQueueInjector(size int, logger *zap.Logger) *QueueInjector {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueInjector{
		ch:     make(chan Command, size),
		logger: logger,
	}
}

// Inject enqueues the command without blocking.
func (q *QueueInjector) Inject(_ context.Context, cmd Command) error {
	for {
		select {
		case q.ch <- cmd:
			return nil
		default:
			select {
			case dropped := <-q.ch:
				q.logger.Warn("inject queue full, dropping oldest command",
					zap.String("session", dropped.SessionID))
			default:
			}
		}
	}
}

// Drain returns and removes all queued commands.
func (q *QueueInjector) Drain() []Command {
	var cmds []Command
	for {
		select {
		case cmd := <-q.ch:
			cmds = append(cmds, cmd)
		default:
			return cmds
		}
	}
}

// WebhookInjector POSTs commands to a collaborator-owned endpoint.
// Concurrency is semaphore-bounded; at capacity the command is dropped
// rather than queued, keeping the handoff fire-and-forget.
type WebhookInjector struct {
	url    string
	client *http.Client
	sem    *httputil.Semaphore
	logger *zap.Logger
}

// NewWebhookInjector creates an injector targeting url.
func NewWebhookInjector(url string, logger *zap.Logger) *WebhookInjector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookInjector{
		url:    url,
		client: httputil.ProbeClient(),
		sem:    httputil.NewSemaphore(32),
		logger: logger,
	}
}

// Inject delivers the command synchronously within the caller's deadline.
func (w *WebhookInjector) Inject(ctx context.Context, cmd Command) error {
	if !w.sem.TryAcquire() {
		return fmt.Errorf("inject webhook at capacity, command dropped")
	}
	defer w.sem.Release()

	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal inject command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build inject request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("inject webhook: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("inject webhook: status %d", resp.StatusCode)
	}
	return nil
}

// Ensure both injectors implement Injector
var (
	_ Injector = (*QueueInjector)(nil)
	_ Injector = (*WebhookInjector)(nil)
)
