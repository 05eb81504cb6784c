package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HoneyTrapAI/sentinel/pkg/autoreply"
	"github.com/HoneyTrapAI/sentinel/pkg/cache"
	"github.com/HoneyTrapAI/sentinel/pkg/classifier"
	"github.com/HoneyTrapAI/sentinel/pkg/config"
	"github.com/HoneyTrapAI/sentinel/pkg/scan"
	"github.com/HoneyTrapAI/sentinel/pkg/stats"
)

// fakeClassifier counts calls and returns a canned outcome or error.
type fakeClassifier struct {
	calls atomic.Int64
	reply string
	err   error
}

func (f *fakeClassifier) Classify(_ context.Context, req classifier.Request) (*classifier.Outcome, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &classifier.Outcome{Reply: f.reply}, nil
}

type fixture struct {
	engine   *Engine
	fake     *fakeClassifier
	queue    *autoreply.QueueInjector
	recorder *stats.Recorder
	store    *cache.MemoryStore
}

func newFixture(t *testing.T, fake *fakeClassifier) *fixture {
	t.Helper()

	store := cache.NewMemoryStore(64)
	t.Cleanup(func() { store.Close() })

	queue := autoreply.NewQueueInjector(8, nil)
	sched := autoreply.New(queue, nil, time.Millisecond, time.Millisecond, nil)
	t.Cleanup(sched.Close)

	recorder := stats.NewRecorder()

	return &fixture{
		engine: New(Options{
			Scanner:    scan.New(),
			Cache:      store,
			Classifier: fake,
			Scheduler:  sched,
			Stats:      recorder,
		}),
		fake:     fake,
		queue:    queue,
		recorder: recorder,
		store:    store,
	}
}

const riskyText = "urgent: your account is blocked, pay 9876543210@paytm"

func TestAnalyzeDisabled(t *testing.T) {
	fx := newFixture(t, &fakeClassifier{reply: "r"})

	v := fx.engine.Analyze(context.Background(), Request{Text: riskyText, SessionID: "s"},
		config.Settings{Enabled: false})

	if v.Decision != DecisionSafe || v.Score != ScoreDisabled {
		t.Errorf("verdict = %+v, want safe/0", v)
	}
	if n := fx.fake.calls.Load(); n != 0 {
		t.Errorf("classifier called %d times while disabled", n)
	}
}

func TestAnalyzeNeutralSkipsClassifier(t *testing.T) {
	fx := newFixture(t, &fakeClassifier{reply: "r"})

	v := fx.engine.Analyze(context.Background(), Request{Text: "hello, how are you", SessionID: "s"},
		config.Settings{Enabled: true})

	if v.Decision != DecisionSafe || v.Score != ScoreNeutral {
		t.Errorf("verdict = %+v, want safe/0.1", v)
	}
	if n := fx.fake.calls.Load(); n != 0 {
		t.Errorf("classifier called %d times with no local signal", n)
	}
	if snap := fx.recorder.Snapshot(); snap.MessagesScanned != 0 {
		t.Errorf("scanned counter = %d, want 0", snap.MessagesScanned)
	}
}

func TestAnalyzeReview(t *testing.T) {
	fx := newFixture(t, &fakeClassifier{reply: "sounds scary, tell me more"})

	v := fx.engine.Analyze(context.Background(), Request{Text: riskyText, SessionID: "s"},
		config.Settings{Enabled: true})

	if v.Decision != DecisionReview || v.Score != ScoreReview {
		t.Errorf("verdict = %+v, want review/0.5", v)
	}
	// Without autonomous mode the decoy reply never leaves the pipeline.
	if v.Reply != "" {
		t.Errorf("review verdict carries reply %q", v.Reply)
	}
	if snap := fx.recorder.Snapshot(); snap.MessagesScanned != 1 || snap.ScamsDetected != 0 {
		t.Errorf("counters = %+v", snap)
	}
}

func TestAnalyzeCacheDedup(t *testing.T) {
	fx := newFixture(t, &fakeClassifier{reply: "r"})
	settings := config.Settings{Enabled: true}
	req := Request{Text: riskyText, SessionID: "s"}

	first := fx.engine.Analyze(context.Background(), req, settings)
	second := fx.engine.Analyze(context.Background(), req, settings)

	if first != second {
		t.Errorf("cached verdict differs: %+v vs %+v", first, second)
	}
	if n := fx.fake.calls.Load(); n != 1 {
		t.Errorf("classifier called %d times for identical message, want 1", n)
	}

	// A different session misses the cache even for identical text.
	fx.engine.Analyze(context.Background(), Request{Text: riskyText, SessionID: "other"}, settings)
	if n := fx.fake.calls.Load(); n != 2 {
		t.Errorf("classifier called %d times across sessions, want 2", n)
	}
}

func TestAnalyzeDegraded(t *testing.T) {
	fx := newFixture(t, &fakeClassifier{err: classifier.ErrUnavailable})

	v := fx.engine.Analyze(context.Background(), Request{Text: riskyText, SessionID: "s"},
		config.Settings{Enabled: true})

	if v.Decision != DecisionWarning || v.Score != ScoreDegraded || !v.Degraded {
		t.Errorf("verdict = %+v, want degraded warning/0.8", v)
	}
	// The attempt still counts as a scan.
	if snap := fx.recorder.Snapshot(); snap.MessagesScanned != 1 {
		t.Errorf("scanned counter = %d, want 1", snap.MessagesScanned)
	}

	// Degraded verdicts are cached too: no retry storm while the backend
	// is down.
	fx.engine.Analyze(context.Background(), Request{Text: riskyText, SessionID: "s"},
		config.Settings{Enabled: true})
	if n := fx.fake.calls.Load(); n != 1 {
		t.Errorf("classifier retried %d times despite cached failure", n)
	}
}

func TestAnalyzeAutonomousEngagement(t *testing.T) {
	fx := newFixture(t, &fakeClassifier{reply: "oh dear, is my money safe?"})

	v := fx.engine.Analyze(context.Background(), Request{Text: riskyText, SessionID: "s"},
		config.Settings{Enabled: true, AutoMode: true})

	if v.Decision != DecisionEngaged || v.Reply != "oh dear, is my money safe?" {
		t.Errorf("verdict = %+v, want engaged with reply", v)
	}
	if snap := fx.recorder.Snapshot(); snap.ScamsDetected != 1 {
		t.Errorf("detected counter = %d, want 1", snap.ScamsDetected)
	}

	// Exactly one command reaches the injector.
	deadline := time.After(2 * time.Second)
	for len(fx.queue.Drain()) == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduled reply never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if extra := fx.queue.Drain(); len(extra) != 0 {
		t.Errorf("got %d extra commands", len(extra))
	}
}

func TestAnalyzeRequestOptInEnablesEngagement(t *testing.T) {
	fx := newFixture(t, &fakeClassifier{reply: "what happened to my account?"})

	v := fx.engine.Analyze(context.Background(),
		Request{Text: riskyText, SessionID: "s", AutoMode: true},
		config.Settings{Enabled: true, AutoMode: false})

	if v.Decision != DecisionEngaged {
		t.Errorf("decision = %s, want engaged via request opt-in", v.Decision)
	}
}

func TestAnalyzeEmptyReplyNeverEngages(t *testing.T) {
	fx := newFixture(t, &fakeClassifier{reply: ""})

	v := fx.engine.Analyze(context.Background(), Request{Text: riskyText, SessionID: "s"},
		config.Settings{Enabled: true, AutoMode: true})

	if v.Decision != DecisionReview || v.Reply != "" {
		t.Errorf("verdict = %+v, want plain review on empty reply", v)
	}
	if snap := fx.recorder.Snapshot(); snap.ScamsDetected != 0 {
		t.Errorf("detected counter = %d, want 0", snap.ScamsDetected)
	}
}

func TestAnalyzeNilSchedulerDisablesEngagement(t *testing.T) {
	fake := &fakeClassifier{reply: "r"}
	store := cache.NewMemoryStore(16)
	t.Cleanup(func() { store.Close() })

	e := New(Options{
		Scanner:    scan.New(),
		Cache:      store,
		Classifier: fake,
		Stats:      stats.NewRecorder(),
	})

	v := e.Analyze(context.Background(), Request{Text: riskyText, SessionID: "s"},
		config.Settings{Enabled: true, AutoMode: true})
	if v.Decision != DecisionReview {
		t.Errorf("decision = %s, want review when no scheduler is wired", v.Decision)
	}
}

func TestAnalyzeShortTextsStaySeparate(t *testing.T) {
	// Texts differing only beyond the fingerprint prefix share a verdict;
	// texts differing inside it do not.
	fx := newFixture(t, &fakeClassifier{reply: "r"})
	settings := config.Settings{Enabled: true}

	long := riskyText + " please confirm immediately before midnight today"
	fx.engine.Analyze(context.Background(), Request{Text: long, SessionID: "s"}, settings)
	fx.engine.Analyze(context.Background(), Request{Text: long + " thanks", SessionID: "s"}, settings)
	if n := fx.fake.calls.Load(); n != 1 {
		t.Errorf("classifier called %d times for same-prefix texts, want 1", n)
	}

	fx.engine.Analyze(context.Background(), Request{Text: "verify kyc or account blocked", SessionID: "s"}, settings)
	if n := fx.fake.calls.Load(); n != 2 {
		t.Errorf("classifier called %d times, want 2 after distinct text", n)
	}
}

func TestAnalyzeClassifierErrorWrapping(t *testing.T) {
	wrapped := errors.New("dial tcp: connection refused")
	fx := newFixture(t, &fakeClassifier{err: wrapped})

	v := fx.engine.Analyze(context.Background(), Request{Text: riskyText, SessionID: "s"},
		config.Settings{Enabled: true})
	if !v.Degraded {
		t.Errorf("any classifier error must degrade, got %+v", v)
	}
}
