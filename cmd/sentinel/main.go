package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/HoneyTrapAI/sentinel/pkg/autoreply"
	"github.com/HoneyTrapAI/sentinel/pkg/cache"
	"github.com/HoneyTrapAI/sentinel/pkg/classifier"
	"github.com/HoneyTrapAI/sentinel/pkg/config"
	"github.com/HoneyTrapAI/sentinel/pkg/engine"
	"github.com/HoneyTrapAI/sentinel/pkg/patterns"
	"github.com/HoneyTrapAI/sentinel/pkg/redact"
	"github.com/HoneyTrapAI/sentinel/pkg/scan"
	"github.com/HoneyTrapAI/sentinel/pkg/session"
	"github.com/HoneyTrapAI/sentinel/pkg/stats"
)

const Version = "0.1.0"

// Service bundles the analysis pipeline and its collaborators.
type Service struct {
	engine    *engine.Engine
	tracker   *session.Tracker
	scheduler *autoreply.Scheduler
	queue     *autoreply.QueueInjector // nil in webhook mode
	prober    classifier.Prober        // nil for backends without a probe surface
	recorder  *stats.Recorder
	store     cache.Store
	cfg       *config.Config
	logger    *zap.Logger
}

// NewService wires the pipeline from config.
func NewService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := patterns.Get()
	if cfg.RuleFile != "" {
		if err := reg.LoadFile(cfg.RuleFile); err != nil {
			return nil, fmt.Errorf("load rule file: %w", err)
		}
		logger.Info("extra pattern rules loaded",
			zap.String("file", cfg.RuleFile),
			zap.Int("patterns", reg.TotalPatterns()))
	}

	var store cache.Store
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rs, err := cache.NewRedisStore(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		store = rs
		logger.Info("verdict cache: redis", zap.String("addr", cfg.RedisAddr))
	} else {
		store = cache.NewMemoryStore(cfg.CacheCapacity)
		logger.Info("verdict cache: in-memory", zap.Int("capacity", cfg.CacheCapacity))
	}

	var injector autoreply.Injector
	var queue *autoreply.QueueInjector
	if cfg.InjectWebhook != "" {
		injector = autoreply.NewWebhookInjector(cfg.InjectWebhook, logger)
		logger.Info("inject delivery: webhook", zap.String("url", cfg.InjectWebhook))
	} else {
		queue = autoreply.NewQueueInjector(cfg.InjectBuffer, logger)
		injector = queue
		logger.Info("inject delivery: poll queue", zap.Int("buffer", cfg.InjectBuffer))
	}

	tracker := session.NewTracker()
	scheduler := autoreply.New(injector, tracker.IsActive,
		cfg.ReplyDelayMin, cfg.ReplyDelayMax, logger)

	// A chat switch tears down everything scoped to the old session.
	tracker.OnRotate(func(oldID string) {
		scheduler.Cancel(oldID)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.InvalidateSession(ctx, oldID); err != nil {
			logger.Warn("session cache invalidation failed",
				zap.String("session", oldID), zap.Error(err))
		}
	})

	var clf classifier.Classifier
	var prober classifier.Prober
	switch cfg.Provider {
	case config.ProviderOpenAI:
		clf = classifier.NewOpenAIClient(
			config.GetEnv("OPENAI_API_KEY", cfg.Defaults.APIKey),
			config.GetEnv("OPENAI_BASE_URL", ""),
			cfg.OpenAIModel, logger)
		logger.Info("classifier: openai-compatible", zap.String("model", cfg.OpenAIModel))
	default:
		hp := classifier.NewHoneypotClient(cfg.Defaults.APIURL, cfg.Defaults.APIKey, logger)
		clf = hp
		prober = hp
		logger.Info("classifier: honeypot backend", zap.String("url", cfg.Defaults.APIURL))
	}

	recorder := stats.NewRecorder()

	eng := engine.New(engine.Options{
		Scanner:     scan.New(),
		Cache:       store,
		Classifier:  clf,
		Scheduler:   scheduler,
		Stats:       recorder,
		SafeTTL:     cfg.SafeTTL,
		ElevatedTTL: cfg.ElevatedTTL,
		Logger:      logger,
	})

	return &Service{
		engine:    eng,
		tracker:   tracker,
		scheduler: scheduler,
		queue:     queue,
		prober:    prober,
		recorder:  recorder,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Close tears down timers and the cache backend.
func (s *Service) Close() {
	s.scheduler.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Warn("cache close failed", zap.Error(err))
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch cmd := os.Args[1]; cmd {
	case "serve":
		port := "8090"
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port, logger)
	case "scan":
		if len(os.Args) < 3 {
			fmt.Println("Usage: sentinel scan <text>")
			os.Exit(1)
		}
		runCLIScan(strings.Join(os.Args[2:], " "))
	case "probe":
		runProbe(logger)
	case "version":
		fmt.Printf("Sentinel v%s\n", Version)
		fmt.Println("Chat fraud analysis service")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Sentinel v%s - chat fraud analysis service\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  sentinel serve [port]   Start the HTTP analysis server (default: 8090)")
	fmt.Println("  sentinel scan <text>    Run the local heuristic scan on text")
	fmt.Println("  sentinel probe          Check classifier backend connectivity")
	fmt.Println("  sentinel version        Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  SENTINEL_API_URL               Classifier backend base URL")
	fmt.Println("  SENTINEL_API_KEY               Classifier backend API key")
	fmt.Println("  SENTINEL_AUTO_MODE             Enable autonomous decoy replies")
	fmt.Println("  SENTINEL_REDIS_ADDR            Use Redis for the verdict cache")
	fmt.Println("  SENTINEL_INJECT_WEBHOOK        Push inject commands to a webhook")
	fmt.Println("  SENTINEL_CLASSIFIER_PROVIDER   honeypot (default) or openai")
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

// analyzeRequest is the inbound wire shape from the scraping collaborator.
// The optional settings block overrides the configured defaults per request.
type analyzeRequest struct {
	Text                string            `json:"text"`
	SessionID           string            `json:"sessionId"`
	ConversationHistory []classifier.Turn `json:"conversationHistory"`
	AutoModeRequested   bool              `json:"autoModeRequested"`
	Settings            *settingsOverride `json:"settings"`
}

type settingsOverride struct {
	Enabled  *bool   `json:"enabled"`
	AutoMode *bool   `json:"autoMode"`
	APIURL   *string `json:"apiUrl"`
	APIKey   *string `json:"apiKey"`
	Persona  *string `json:"persona"`
}

// merge applies the override on top of the default snapshot.
func (o *settingsOverride) merge(base config.Settings) config.Settings {
	if o == nil {
		return base
	}
	if o.Enabled != nil {
		base.Enabled = *o.Enabled
	}
	if o.AutoMode != nil {
		base.AutoMode = *o.AutoMode
	}
	if o.APIURL != nil {
		base.APIURL = *o.APIURL
	}
	if o.APIKey != nil {
		base.APIKey = *o.APIKey
	}
	if o.Persona != nil {
		base.Persona = *o.Persona
	}
	return base
}

func runHTTPServer(port string, logger *zap.Logger) {
	cfg := config.NewDefaultConfig()
	svc, err := NewService(cfg, logger)
	if err != nil {
		logger.Fatal("service init failed", zap.Error(err))
	}
	defer svc.Close()

	app := fiber.New(fiber.Config{
		AppName: "Sentinel",
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	// Per-message analysis: always answers with a verdict, even when the
	// classifier backend is down.
	app.Post("/api/analyze", func(c fiber.Ctx) error {
		var req analyzeRequest
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}

		sessionID := req.SessionID
		if sessionID == "" || sessionID == "unknown" {
			sessionID = svc.tracker.Current()
		}

		verdict := svc.engine.Analyze(c.Context(), engine.Request{
			Text:      req.Text,
			SessionID: sessionID,
			History:   req.ConversationHistory,
			AutoMode:  req.AutoModeRequested,
		}, req.Settings.merge(cfg.Defaults))

		return c.JSON(verdict)
	})

	app.Get("/api/stats", func(c fiber.Ctx) error {
		return c.JSON(svc.recorder.Snapshot())
	})

	app.Get("/api/session", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"sessionId": svc.tracker.Current()})
	})

	// Chat switch: rotate the session id, drop pending decoy replies and
	// the old fingerprint namespace.
	app.Post("/api/session/rotate", func(c fiber.Ctx) error {
		fresh := svc.tracker.Rotate()
		return c.JSON(fiber.Map{"sessionId": fresh})
	})

	// Polling collaborators drain pending inject commands here.
	app.Get("/api/commands", func(c fiber.Ctx) error {
		if svc.queue == nil {
			return c.JSON([]autoreply.Command{})
		}
		cmds := svc.queue.Drain()
		if cmds == nil {
			cmds = []autoreply.Command{}
		}
		return c.JSON(cmds)
	})

	app.Get("/api/probe", func(c fiber.Ctx) error {
		if svc.prober == nil {
			return c.Status(501).JSON(fiber.Map{"error": "no probe surface for this provider"})
		}
		if err := svc.prober.Probe(c.Context(), cfg.Defaults.APIURL); err != nil {
			return c.Status(502).JSON(fiber.Map{"ok": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"ok": true})
	})

	logger.Info("sentinel listening", zap.String("port", port))
	if err := app.Listen(":" + port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// ============================================================================
// CLI Modes
// ============================================================================

// runCLIScan runs the zero-network half of the pipeline and prints what the
// classifier would have received.
func runCLIScan(text string) {
	scanner := scan.New()
	hint := scanner.Scan(text)

	out := struct {
		Hint     *scan.Hint `json:"hint"`
		Redacted string     `json:"redacted"`
	}{
		Hint:     hint,
		Redacted: redact.Redact(text),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)

	if hint == nil {
		fmt.Println("no local signal: pipeline would return a neutral verdict without a network call")
	}
}

func runProbe(logger *zap.Logger) {
	cfg := config.NewDefaultConfig()
	hp := classifier.NewHoneypotClient(cfg.Defaults.APIURL, cfg.Defaults.APIKey, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := hp.Probe(ctx, cfg.Defaults.APIURL); err != nil {
		fmt.Printf("backend unreachable: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("backend reachable at %s\n", cfg.Defaults.APIURL)
}
