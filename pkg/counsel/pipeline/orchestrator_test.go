package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/model"
	"ai-counselor-be/internal/repository/memory"
	"ai-counselor-be/internal/repository/specification"
	"ai-counselor-be/internal/repository/unitofwork"
	"ai-counselor-be/pkg/counsel/alert"
	"ai-counselor-be/pkg/counsel/analysis"
	"ai-counselor-be/pkg/counsel/prompt"
	"ai-counselor-be/pkg/counsel/risk"
	"ai-counselor-be/pkg/database"
	"ai-counselor-be/pkg/lock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	fn    func(text string) (entity.Analysis, error)
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, text string) (entity.Analysis, error) {
	a.mu.Lock()
	a.calls++
	fn := a.fn
	a.mu.Unlock()
	return fn(text)
}

func (a *fakeAnalyzer) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type fakeGenerator struct {
	mu     sync.Mutex
	inputs []prompt.Input
	fn     func(ctx context.Context, in prompt.Input) (string, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, in prompt.Input) (string, error) {
	g.mu.Lock()
	g.inputs = append(g.inputs, in)
	fn := g.fn
	g.mu.Unlock()
	return fn(ctx, in)
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []alert.SafetyAlert
	keys   []string
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, key string, a alert.SafetyAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	n.keys = append(n.keys, key)
	return n.err
}

func (n *fakeNotifier) Alerts() []alert.SafetyAlert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]alert.SafetyAlert(nil), n.alerts...)
}

func (n *fakeNotifier) setErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *fakeNotifier) Keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.keys...)
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses map[uuid.UUID][]string
}

func (r *recordingObserver) RunChanged(run *entity.PipelineRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[run.Id] = append(r.statuses[run.Id], run.Status)
}

func (r *recordingObserver) For(id uuid.UUID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses[id]...)
}

// heldDispatcher keeps events until the test wakes the lane itself.
type heldDispatcher struct {
	mu     sync.Mutex
	events []MessageSubmitted
}

func (d *heldDispatcher) Dispatch(ctx context.Context, event MessageSubmitted) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

// flakyLocker fails the first n acquisitions.
type flakyLocker struct {
	lock.Locker
	mu       sync.Mutex
	failures int
}

func (l *flakyLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Lease, error) {
	l.mu.Lock()
	if l.failures > 0 {
		l.failures--
		l.mu.Unlock()
		return nil, errors.New("redis: connection refused")
	}
	l.mu.Unlock()
	return l.Locker.Acquire(ctx, key, ttl)
}

type fixture struct {
	db        *gorm.DB
	factory   unitofwork.RepositoryFactory
	orch      *Orchestrator
	analyzer  *fakeAnalyzer
	generator *fakeGenerator
	notifier  *fakeNotifier
	observer  *recordingObserver
	cache     *memory.MemoryCache
	user      *entity.User
	session   *entity.ChatSession
}

func fixedAnalysis(a entity.Analysis) func(string) (entity.Analysis, error) {
	return func(string) (entity.Analysis, error) { return a, nil }
}

func echoReply(ctx context.Context, in prompt.Input) (string, error) {
	return "reply to: " + in.Message, nil
}

func newFixture(t *testing.T, dispatcher Dispatcher) *fixture {
	t.Helper()

	db, err := database.NewMemoryDB(uuid.NewString(), model.AllModels()...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		db:        db,
		factory:   unitofwork.NewRepositoryFactory(db),
		analyzer:  &fakeAnalyzer{fn: fixedAnalysis(entity.Analysis{EmotionalState: "calm", Themes: []string{}, RecommendedApproach: "supportive"})},
		generator: &fakeGenerator{fn: echoReply},
		notifier:  &fakeNotifier{},
		observer:  &recordingObserver{statuses: make(map[uuid.UUID][]string)},
		cache:     memory.NewMemoryCache(time.Minute),
	}

	f.orch = NewOrchestrator(Config{
		StepTimeout:      time.Second,
		AlertTimeout:     500 * time.Millisecond,
		MaxAttempts:      2,
		InitialBackoff:   time.Millisecond,
		MaxBackoff:       5 * time.Millisecond,
		PersistAttempts:  2,
		LockTTL:          time.Minute,
		HistoryLimit:     10,
		RecoveryInterval: time.Hour,
		PollInterval:     20 * time.Millisecond,
		Goals:            []string{"Provide emotional support", "Suggest coping strategies"},
	}, Deps{
		UowFactory: f.factory,
		Analyzer:   f.analyzer,
		Generator:  f.generator,
		Monitor:    risk.NewMonitor(4),
		Notifier:   f.notifier,
		Locker:     lock.NewLocalLocker(),
		Dispatcher: dispatcher,
		Observer:   f.observer,
		Cache:      f.cache,
	})
	t.Cleanup(f.orch.Stop)

	ctx := context.Background()
	uow := f.factory.NewUnitOfWork(ctx)
	f.user = &entity.User{Id: uuid.New(), Email: "u1@example.com", FullName: "User One", CreatedAt: time.Now()}
	require.NoError(t, uow.UserRepository().Create(ctx, f.user))
	f.session = &entity.ChatSession{Id: uuid.New(), UserId: f.user.Id, Status: constant.ChatSessionStatusActive, StartTime: time.Now()}
	require.NoError(t, uow.ChatSessionRepository().Create(ctx, f.session))

	return f
}

func (f *fixture) submit(t *testing.T, text, clientKey string) *entity.PipelineRun {
	t.Helper()
	run, err := f.orch.Submit(context.Background(), SubmitRequest{
		SessionId: f.session.Id,
		UserId:    f.user.Id,
		Text:      text,
		ClientKey: clientKey,
	})
	require.NoError(t, err)
	return run
}

func (f *fixture) await(t *testing.T, runId uuid.UUID) (*Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.orch.Await(ctx, runId)
}

func (f *fixture) send(t *testing.T, text string) *Result {
	t.Helper()
	res, err := f.await(t, f.submit(t, text, "").Id)
	require.NoError(t, err)
	return res
}

func (f *fixture) transcript(t *testing.T) []*entity.ChatMessage {
	t.Helper()
	ctx := context.Background()
	msgs, err := f.factory.NewUnitOfWork(ctx).ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: f.session.Id},
		specification.OrderBy{Field: "sequence"},
	)
	require.NoError(t, err)
	return msgs
}

func (f *fixture) memory(t *testing.T) entity.Memory {
	t.Helper()
	ctx := context.Background()
	stored, err := f.factory.NewUnitOfWork(ctx).SessionMemoryRepository().FindBySessionId(ctx, f.session.Id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	return stored.Memory
}

func (f *fixture) step(t *testing.T, run *entity.PipelineRun, name string) *entity.PipelineStep {
	t.Helper()
	ctx := context.Background()
	step, err := f.factory.NewUnitOfWork(ctx).PipelineStepRepository().FindByKey(ctx, run.StepKey(name))
	require.NoError(t, err)
	return step
}

func (f *fixture) loadRun(t *testing.T, id uuid.UUID) *entity.PipelineRun {
	t.Helper()
	ctx := context.Background()
	run, err := f.factory.NewUnitOfWork(ctx).PipelineRunRepository().FindOne(ctx, specification.ByID{ID: id})
	require.NoError(t, err)
	require.NotNil(t, run)
	return run
}

func TestAnxiousMessageEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.fn = fixedAnalysis(entity.Analysis{
		EmotionalState:      "anxious",
		Themes:              []string{"work"},
		RiskLevel:           2,
		RecommendedApproach: "cbt",
	})

	res := f.send(t, "I feel anxious about work")

	assert.Equal(t, constant.RunStatusCompleted, res.Status)
	assert.Equal(t, "reply to: I feel anxious about work", res.Reply)
	assert.Equal(t, 2, res.Analysis.RiskLevel)
	assert.Equal(t, "cbt", res.Metadata.Technique)
	assert.Equal(t, "Provide emotional support", res.Metadata.Goal)

	mem := f.memory(t)
	assert.Contains(t, mem.UserProfile.EmotionalState, "anxious")
	assert.Contains(t, mem.SessionContext.ConversationThemes, "work")
	assert.Equal(t, 2, mem.UserProfile.RiskLevel)
	assert.Empty(t, f.notifier.Alerts())

	cached, ok := f.cache.Get(f.session.Id)
	require.True(t, ok)
	assert.Equal(t, mem, cached)

	msgs := f.transcript(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, msgs[0].Role)
	assert.Equal(t, "I feel anxious about work", msgs[0].Content)
	assert.Nil(t, msgs[0].Metadata)
	assert.Equal(t, constant.ChatMessageRoleAssistant, msgs[1].Role)
	require.NotNil(t, msgs[1].Metadata)
	assert.Equal(t, 2, msgs[1].Metadata.Progress.RiskLevel)
	assert.Equal(t, "anxious", msgs[1].Metadata.Progress.EmotionalState)
	assert.False(t, msgs[1].Timestamp.Before(msgs[0].Timestamp))

	assert.Equal(t, []string{
		constant.RunStatusQueued,
		constant.RunStatusAnalyzing,
		constant.RunStatusMemoryUpdating,
		constant.RunStatusResponseGenerating,
		constant.RunStatusPersisting,
		constant.RunStatusCompleted,
	}, f.observer.For(res.RunId))

	run := f.loadRun(t, res.RunId)
	assert.Equal(t, constant.StepStatusSkipped, f.step(t, run, constant.StepRiskEvaluate).Status)
	assert.Equal(t, constant.StepStatusSucceeded, f.step(t, run, constant.StepPersist).Status)

	ctx := context.Background()
	session, err := f.factory.NewUnitOfWork(ctx).ChatSessionRepository().FindOne(ctx, specification.ByID{ID: f.session.Id})
	require.NoError(t, err)
	assert.Equal(t, 2, session.MessageCount)
	assert.Equal(t, 1, session.TurnCount)
}

func TestHighRiskEmitsExactlyOneAlert(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.fn = fixedAnalysis(entity.Analysis{EmotionalState: "hopeless", RiskLevel: 5, RecommendedApproach: "crisis-intervention"})

	res := f.send(t, "I don't want to be here anymore")

	assert.Equal(t, "reply to: I don't want to be here anymore", res.Reply)
	alerts := f.notifier.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, 5, alerts[0].RiskLevel)
	assert.Equal(t, f.session.Id.String(), alerts[0].SessionId)
	assert.Equal(t, "I don't want to be here anymore", alerts[0].Message)
	assert.Equal(t, entity.StepKey(f.session.Id, 1, constant.StepRiskEvaluate), f.notifier.Keys()[0])

	assert.Contains(t, f.observer.For(res.RunId), constant.RunStatusRiskEvaluating)
}

func TestHighRiskAlertsEvenWhenGenerationFails(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.fn = fixedAnalysis(entity.Analysis{EmotionalState: "desperate", RiskLevel: 9})
	f.generator.fn = func(ctx context.Context, in prompt.Input) (string, error) {
		return "", errors.New("model overloaded")
	}

	res := f.send(t, "everything is falling apart")

	assert.Equal(t, constant.FallbackReply, res.Reply)
	require.Len(t, f.notifier.Alerts(), 1)
	assert.Equal(t, 9, f.notifier.Alerts()[0].RiskLevel)
}

func TestAlertFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.fn = fixedAnalysis(entity.Analysis{EmotionalState: "scared", RiskLevel: 7})
	f.notifier.err = errors.New("broker unreachable")

	res := f.send(t, "I'm scared of what I might do")

	assert.Equal(t, constant.RunStatusCompleted, res.Status)
	assert.Equal(t, "reply to: I'm scared of what I might do", res.Reply)

	step := f.step(t, f.loadRun(t, res.RunId), constant.StepRiskEvaluate)
	require.NotNil(t, step)
	assert.Equal(t, constant.StepStatusFailed, step.Status)
	assert.Equal(t, 2, step.Attempts)
}

func TestMalformedAnalysisFallsBackToDefault(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.fn = func(string) (entity.Analysis, error) {
		return entity.Analysis{}, analysis.ErrMalformedAnalysis
	}

	res := f.send(t, "blah")

	assert.Equal(t, "neutral", res.Analysis.EmotionalState)
	assert.Equal(t, 0, res.Analysis.RiskLevel)
	assert.Equal(t, "supportive", res.Analysis.RecommendedApproach)
	assert.Equal(t, "reply to: blah", res.Reply)
	assert.Equal(t, 2, f.analyzer.Calls())

	mem := f.memory(t)
	assert.Equal(t, []string{"neutral"}, mem.UserProfile.EmotionalState)
	assert.Equal(t, 0, mem.UserProfile.RiskLevel)

	step := f.step(t, f.loadRun(t, res.RunId), constant.StepAnalyze)
	assert.Equal(t, constant.StepStatusFallback, step.Status)
	assert.Equal(t, 2, step.Attempts)
}

func TestSlowGenerationTimesOutToFallback(t *testing.T) {
	f := newFixture(t, nil)
	f.orch.cfg.StepTimeout = 30 * time.Millisecond
	f.generator.fn = func(ctx context.Context, in prompt.Input) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	res := f.send(t, "hello?")

	assert.Equal(t, constant.FallbackReply, res.Reply)
	assert.Len(t, f.transcript(t), 2)
}

func TestMemoryAccumulatesInSubmissionOrder(t *testing.T) {
	f := newFixture(t, nil)
	states := map[string]entity.Analysis{
		"first":  {EmotionalState: "anxious", Themes: []string{"work"}, RiskLevel: 3},
		"second": {EmotionalState: "sad", Themes: []string{"family"}, RiskLevel: 0},
	}
	f.analyzer.fn = func(text string) (entity.Analysis, error) { return states[text], nil }

	f.send(t, "first")
	res := f.send(t, "second")

	mem := f.memory(t)
	assert.Equal(t, []string{"anxious", "sad"}, mem.UserProfile.EmotionalState)
	assert.Equal(t, []string{"work", "family"}, mem.SessionContext.ConversationThemes)
	assert.Equal(t, 3, mem.UserProfile.RiskLevel)
	assert.Equal(t, 2, res.Turn)

	// The second prompt carries the first turn as history.
	f.generator.mu.Lock()
	last := f.generator.inputs[len(f.generator.inputs)-1]
	f.generator.mu.Unlock()
	require.Len(t, last.History, 2)
	assert.Equal(t, "first", last.History[0].Content)
	assert.Equal(t, "reply to: first", last.History[1].Content)
}

func TestConcurrentSubmissionsNeverInterleave(t *testing.T) {
	f := newFixture(t, nil)

	var inside, overlaps int32
	f.generator.fn = func(ctx context.Context, in prompt.Input) (string, error) {
		if atomic.AddInt32(&inside, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inside, -1)
		return "reply to: " + in.Message, nil
	}

	texts := []string{"one", "two", "three", "four", "five"}
	var wg sync.WaitGroup
	for _, text := range texts {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			run, err := f.orch.Submit(context.Background(), SubmitRequest{SessionId: f.session.Id, UserId: f.user.Id, Text: text})
			if !assert.NoError(t, err) {
				return
			}
			_, err = f.await(t, run.Id)
			assert.NoError(t, err)
		}(text)
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlaps))

	msgs := f.transcript(t)
	require.Len(t, msgs, 2*len(texts))
	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, constant.ChatMessageRoleUser, msgs[i].Role)
		assert.Equal(t, constant.ChatMessageRoleAssistant, msgs[i+1].Role)
		assert.Equal(t, "reply to: "+msgs[i].Content, msgs[i+1].Content)
		assert.Equal(t, msgs[i].Turn, msgs[i+1].Turn)
		assert.Equal(t, i/2+1, msgs[i].Turn)
	}
	assert.Len(t, f.memory(t).UserProfile.EmotionalState, len(texts))
}

func TestCommitTurnIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	res := f.send(t, "hello")

	run := f.loadRun(t, res.RunId)
	require.NoError(t, f.orch.commitTurn(context.Background(), run))

	assert.Len(t, f.transcript(t), 2)
	ctx := context.Background()
	session, err := f.factory.NewUnitOfWork(ctx).ChatSessionRepository().FindOne(ctx, specification.ByID{ID: f.session.Id})
	require.NoError(t, err)
	assert.Equal(t, 2, session.MessageCount)
}

func TestClientKeyReplaysCompletedRun(t *testing.T) {
	f := newFixture(t, nil)

	first := f.submit(t, "hello", "key-1")
	res, err := f.await(t, first.Id)
	require.NoError(t, err)

	again := f.submit(t, "hello", "key-1")
	assert.Equal(t, first.Id, again.Id)
	assert.Equal(t, constant.RunStatusCompleted, again.Status)

	replayed, err := f.await(t, again.Id)
	require.NoError(t, err)
	assert.Equal(t, res.Reply, replayed.Reply)
	assert.Equal(t, 1, f.analyzer.Calls())
	assert.Len(t, f.transcript(t), 2)
}

func TestFailedRunIsRequeuedByClientKey(t *testing.T) {
	held := &heldDispatcher{}
	f := newFixture(t, held)
	f.analyzer.fn = fixedAnalysis(entity.Analysis{EmotionalState: "hopeless", RiskLevel: 6})

	run := f.submit(t, "I give up", "key-1")
	require.NoError(t, f.db.Migrator().DropTable(&model.ChatMessage{}))
	f.orch.Wake(f.session.Id)

	_, err := f.await(t, run.Id)
	require.ErrorIs(t, err, ErrRunFailed)
	assert.Equal(t, constant.RunStatusFailed, f.loadRun(t, run.Id).Status)
	require.Len(t, f.notifier.Alerts(), 1)

	require.NoError(t, f.db.AutoMigrate(&model.ChatMessage{}))
	retried := f.submit(t, "I give up", "key-1")
	assert.Equal(t, run.Id, retried.Id)
	assert.Equal(t, constant.RunStatusQueued, retried.Status)
	f.orch.Wake(f.session.Id)

	res, err := f.await(t, run.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Turn)
	assert.Equal(t, 2, f.analyzer.Calls())
	assert.Len(t, f.notifier.Alerts(), 1, "a delivered alert is not sent again")
	assert.Len(t, f.transcript(t), 2)
	assert.Equal(t, []string{"hopeless"}, f.memory(t).UserProfile.EmotionalState)
	assert.Equal(t, 2, f.loadRun(t, run.Id).Attempt)
}

func TestStoppedLaneRestartsWithoutRecoverySweep(t *testing.T) {
	held := &heldDispatcher{}
	f := newFixture(t, held)
	f.orch.locker = &flakyLocker{Locker: lock.NewLocalLocker(), failures: 2}

	first := f.submit(t, "hello", "")
	second := f.submit(t, "are you there?", "")
	f.orch.Wake(f.session.Id)

	res, err := f.await(t, first.Id)
	require.NoError(t, err)
	assert.Equal(t, constant.RunStatusCompleted, res.Status)

	res, err = f.await(t, second.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Turn)
	assert.Len(t, f.transcript(t), 4)
}

func TestRequeuedRunAlertsWhenRiskWasSkipped(t *testing.T) {
	held := &heldDispatcher{}
	f := newFixture(t, held)
	f.analyzer.mu.Lock()
	f.analyzer.fn = func(string) (entity.Analysis, error) {
		return entity.Analysis{}, analysis.ErrMalformedAnalysis
	}
	f.analyzer.mu.Unlock()

	run := f.submit(t, "I can't do this anymore", "key-1")
	require.NoError(t, f.db.Migrator().DropTable(&model.ChatMessage{}))
	f.orch.Wake(f.session.Id)

	_, err := f.await(t, run.Id)
	require.ErrorIs(t, err, ErrRunFailed)
	assert.Equal(t, constant.StepStatusSkipped, f.step(t, f.loadRun(t, run.Id), constant.StepRiskEvaluate).Status)
	assert.Empty(t, f.notifier.Alerts())

	require.NoError(t, f.db.AutoMigrate(&model.ChatMessage{}))
	f.analyzer.mu.Lock()
	f.analyzer.fn = fixedAnalysis(entity.Analysis{EmotionalState: "hopeless", RiskLevel: 6, RecommendedApproach: "crisis-intervention"})
	f.analyzer.mu.Unlock()

	retried := f.submit(t, "I can't do this anymore", "key-1")
	require.Equal(t, run.Id, retried.Id)
	f.orch.Wake(f.session.Id)

	res, err := f.await(t, run.Id)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Analysis.RiskLevel)
	require.Len(t, f.notifier.Alerts(), 1)
	assert.Equal(t, 6, f.notifier.Alerts()[0].RiskLevel)
	assert.Equal(t, constant.StepStatusSucceeded, f.step(t, f.loadRun(t, run.Id), constant.StepRiskEvaluate).Status)
}

func TestRequeuedRunRetriesFailedAlert(t *testing.T) {
	held := &heldDispatcher{}
	f := newFixture(t, held)
	f.analyzer.mu.Lock()
	f.analyzer.fn = fixedAnalysis(entity.Analysis{EmotionalState: "hopeless", RiskLevel: 7})
	f.analyzer.mu.Unlock()
	f.notifier.setErr(errors.New("broker down"))

	run := f.submit(t, "nothing matters", "key-1")
	require.NoError(t, f.db.Migrator().DropTable(&model.ChatMessage{}))
	f.orch.Wake(f.session.Id)

	_, err := f.await(t, run.Id)
	require.ErrorIs(t, err, ErrRunFailed)
	assert.Equal(t, constant.StepStatusFailed, f.step(t, f.loadRun(t, run.Id), constant.StepRiskEvaluate).Status)

	require.NoError(t, f.db.AutoMigrate(&model.ChatMessage{}))
	f.notifier.setErr(nil)
	f.submit(t, "nothing matters", "key-1")
	f.orch.Wake(f.session.Id)

	_, err = f.await(t, run.Id)
	require.NoError(t, err)
	assert.Equal(t, constant.StepStatusSucceeded, f.step(t, f.loadRun(t, run.Id), constant.StepRiskEvaluate).Status)
}

func TestFailedOlderRunGivesUpClientKey(t *testing.T) {
	held := &heldDispatcher{}
	f := newFixture(t, held)

	failed := f.submit(t, "first try", "key-1")
	require.NoError(t, f.db.Migrator().DropTable(&model.ChatMessage{}))
	f.orch.Wake(f.session.Id)
	_, err := f.await(t, failed.Id)
	require.ErrorIs(t, err, ErrRunFailed)
	require.NoError(t, f.db.AutoMigrate(&model.ChatMessage{}))

	other := f.submit(t, "something else", "")
	f.orch.Wake(f.session.Id)
	_, err = f.await(t, other.Id)
	require.NoError(t, err)

	resubmitted := f.submit(t, "first try", "key-1")
	assert.NotEqual(t, failed.Id, resubmitted.Id)
	assert.Equal(t, 3, resubmitted.Turn)
	assert.Nil(t, f.loadRun(t, failed.Id).ClientKey)

	f.orch.Wake(f.session.Id)
	_, err = f.await(t, resubmitted.Id)
	require.NoError(t, err)
	assert.Len(t, f.transcript(t), 4)
}

func TestRecoverResumesFromCheckpoint(t *testing.T) {
	held := &heldDispatcher{}
	f := newFixture(t, held)
	ctx := context.Background()

	run := f.submit(t, "I was interrupted", "")
	assert.Len(t, held.events, 1)
	assert.Equal(t, run.Id, held.events[0].RunId)

	// Simulate a crash right after the analysis checkpoint.
	checkpoint := entity.Analysis{EmotionalState: "tired", Themes: []string{"sleep"}, RiskLevel: 1, RecommendedApproach: "mindfulness"}
	output, err := json.Marshal(checkpoint)
	require.NoError(t, err)
	uow := f.factory.NewUnitOfWork(ctx)
	mem := entity.NewMemory()
	run.Status = constant.RunStatusAnalyzing
	run.MemoryBefore = &mem
	run.Attempt = 1
	require.NoError(t, uow.PipelineRunRepository().Update(ctx, run))
	require.NoError(t, uow.PipelineStepRepository().Save(ctx, &entity.PipelineStep{
		Id:             uuid.New(),
		RunId:          run.Id,
		Name:           constant.StepAnalyze,
		IdempotencyKey: run.StepKey(constant.StepAnalyze),
		Status:         constant.StepStatusSucceeded,
		Attempts:       1,
		Output:         output,
		StartedAt:      time.Now(),
	}))

	f.orch.Recover(ctx)

	res, err := f.await(t, run.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, f.analyzer.Calls())
	assert.Equal(t, "mindfulness", res.Metadata.Technique)
	assert.Equal(t, []string{"tired"}, f.memory(t).UserProfile.EmotionalState)
	assert.Equal(t, 2, f.loadRun(t, run.Id).Attempt)
}

func TestAwaitReturnsWhenCallerGivesUp(t *testing.T) {
	f := newFixture(t, nil)
	release := make(chan struct{})
	f.generator.fn = func(ctx context.Context, in prompt.Input) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return "late reply", nil
	}

	run := f.submit(t, "are you there?", "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.orch.Await(ctx, run.Id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	res, err := f.await(t, run.Id)
	require.NoError(t, err)
	assert.Equal(t, "late reply", res.Reply)
}

func TestAwaitUnknownRun(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.await(t, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSubmitUnknownSessionFails(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.orch.Submit(context.Background(), SubmitRequest{SessionId: uuid.New(), UserId: f.user.Id, Text: "hi"})
	assert.Error(t, err)
}
