// Package engine implements the per-message decision pipeline: cache
// dedup, heuristic gate, PII redaction, remote classification, and verdict
// synthesis with heuristic-only fallback.
package engine

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/HoneyTrapAI/sentinel/pkg/autoreply"
	"github.com/HoneyTrapAI/sentinel/pkg/cache"
	"github.com/HoneyTrapAI/sentinel/pkg/classifier"
	"github.com/HoneyTrapAI/sentinel/pkg/config"
	"github.com/HoneyTrapAI/sentinel/pkg/redact"
	"github.com/HoneyTrapAI/sentinel/pkg/scan"
	"github.com/HoneyTrapAI/sentinel/pkg/stats"
)

// Decision is the pipeline's final call on one message.
type Decision string

const (
	DecisionSafe    Decision = "safe"
	DecisionReview  Decision = "review"
	DecisionWarning Decision = "warning"
	DecisionEngaged Decision = "autonomous_engaged"
)

// Fixed verdict scores. The classifier contract exposes no numeric
// confidence, so scores are constants by design; an implementation feeding
// a real confidence through Verdict.Score must preserve the thresholds
// below.
const (
	ScoreDisabled = 0.0 // Analysis turned off
	ScoreNeutral  = 0.1 // No local signal, remote call skipped
	ScoreReview   = 0.5 // Passed the local gate, suspicious by default
	ScoreDegraded = 0.8 // Local hit with the classifier unreachable
)

// Severity thresholds consumed by the marking collaborator.
const (
	ThresholdHigh     = 0.7 // score > ThresholdHigh: high severity
	ThresholdElevated = 0.4 // score > ThresholdElevated: elevated
)

// Request is one immutable analysis request from the scraping collaborator.
type Request struct {
	Text      string
	SessionID string
	History   []classifier.Turn
	AutoMode  bool // Collaborator-side per-conversation opt-in
}

// Verdict is the pipeline's output for one message. Immutable once
// produced; Reply is non-empty if and only if Decision is DecisionEngaged.
type Verdict struct {
	Decision Decision `json:"decision"`
	Score    float64  `json:"score"`
	Reply    string   `json:"reply,omitempty"`
	Degraded bool     `json:"degraded,omitempty"`
}

// Options wires the engine's collaborators.
type Options struct {
	Scanner     *scan.Scanner
	Cache       cache.Store
	Classifier  classifier.Classifier
	Scheduler   *autoreply.Scheduler
	Stats       *stats.Recorder
	SafeTTL     time.Duration // Retention for safe verdicts (short tier)
	ElevatedTTL time.Duration // Retention for elevated-risk verdicts (long tier)
	Logger      *zap.Logger
}

// Engine runs the decision pipeline. Independent messages may be analyzed
// concurrently; the cache and counters are the only shared state and both
// are safe for concurrent use.
type Engine struct {
	scanner     *scan.Scanner
	cache       cache.Store
	classifier  classifier.Classifier
	scheduler   *autoreply.Scheduler
	stats       *stats.Recorder
	safeTTL     time.Duration
	elevatedTTL time.Duration
	logger      *zap.Logger
}

// New creates an engine. Scanner, Cache, Classifier and Stats are required;
// a nil Scheduler disables autonomous engagement regardless of settings.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	safeTTL := opts.SafeTTL
	if safeTTL <= 0 {
		safeTTL = 2 * time.Minute
	}
	elevatedTTL := opts.ElevatedTTL
	if elevatedTTL <= 0 {
		elevatedTTL = 30 * time.Minute
	}
	return &Engine{
		scanner:     opts.Scanner,
		cache:       opts.Cache,
		classifier:  opts.Classifier,
		scheduler:   opts.Scheduler,
		stats:       opts.Stats,
		safeTTL:     safeTTL,
		elevatedTTL: elevatedTTL,
		logger:      logger,
	}
}

// Analyze runs stages A-D for one message and always returns a verdict:
// classifier outages degrade accuracy, they never surface as errors.
func (e *Engine) Analyze(ctx context.Context, req Request, settings config.Settings) Verdict {
	// Stage A: analysis disabled.
	if !settings.Enabled {
		return Verdict{Decision: DecisionSafe, Score: ScoreDisabled}
	}

	// Stage B: cache hit short-circuits everything, including the remote
	// call and any re-scheduling of an already-engaged reply.
	key := cache.Key(req.SessionID, req.Text)
	if v, ok := e.cached(ctx, key); ok {
		return v
	}

	// Stage C: no local signal means no network call. Cached only in the
	// short-retention tier; conversational context shifts quickly.
	hint := e.scanner.Scan(req.Text)
	if hint == nil {
		v := Verdict{Decision: DecisionSafe, Score: ScoreNeutral}
		e.put(ctx, key, v, e.safeTTL)
		return v
	}

	// Stage D: redact, then ask the remote classifier.
	e.stats.IncScanned()

	outcome, err := e.classifier.Classify(ctx, classifier.Request{
		SessionID: req.SessionID,
		Message:   redact.Redact(req.Text),
		History:   req.History,
		Persona:   settings.Persona,
		BaseURL:   settings.APIURL,
		APIKey:    settings.APIKey,
	})
	if err != nil {
		// Heuristic-only fallback. Only reachable with a local hint, so a
		// dead classifier never escalates trivially-safe traffic.
		e.logger.Warn("degrading to heuristic verdict",
			zap.String("session", req.SessionID),
			zap.String("hint", string(hint.Category)),
			zap.Error(err))
		v := Verdict{Decision: DecisionWarning, Score: ScoreDegraded, Degraded: true}
		e.put(ctx, key, v, e.elevatedTTL)
		return v
	}

	v := Verdict{Decision: DecisionReview, Score: ScoreReview}

	// The settings snapshot owns autonomous mode; the request flag is the
	// collaborator's per-conversation opt-in on top of it.
	autoMode := settings.AutoMode || req.AutoMode
	if autoMode && outcome.Reply != "" && e.scheduler != nil {
		v = Verdict{Decision: DecisionEngaged, Score: ScoreReview, Reply: outcome.Reply}
		e.scheduler.Schedule(req.SessionID, outcome.Reply)
		e.stats.IncDetected()
	}

	e.put(ctx, key, v, e.elevatedTTL)
	return v
}

// cached loads and unmarshals a verdict; cache failures are logged and
// treated as misses.
func (e *Engine) cached(ctx context.Context, key string) (Verdict, bool) {
	raw, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("cache get failed", zap.Error(err))
		return Verdict{}, false
	}
	if !ok {
		return Verdict{}, false
	}

	var v Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		e.logger.Warn("dropping corrupt cache entry", zap.Error(err))
		return Verdict{}, false
	}
	return v, true
}

func (e *Engine) put(ctx context.Context, key string, v Verdict, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, key, raw, ttl); err != nil {
		e.logger.Warn("cache set failed", zap.Error(err))
	}
}
