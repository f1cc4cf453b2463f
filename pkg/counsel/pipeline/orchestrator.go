// Package pipeline runs each submitted message through analyze, memory update, risk alert,
// response generation and persistence, one run at a time per session.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/pkg/logger"
	"ai-counselor-be/internal/repository/specification"
	"ai-counselor-be/internal/repository/unitofwork"
	"ai-counselor-be/pkg/counsel/alert"
	"ai-counselor-be/pkg/counsel/analysis"
	"ai-counselor-be/pkg/counsel/response"
	"ai-counselor-be/pkg/counsel/risk"
	"ai-counselor-be/pkg/lock"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const logModule = "PIPELINE"

type Deps struct {
	UowFactory unitofwork.RepositoryFactory
	Analyzer   analysis.Analyzer
	Generator  response.Generator
	Monitor    *risk.Monitor
	Notifier   alert.Notifier
	Locker     lock.Locker
	Dispatcher Dispatcher  // Optional, lanes are woken directly when nil
	Observer   RunObserver // Optional
	Cache      MemoryCache // Optional
	Logger     logger.ILogger
}

type Orchestrator struct {
	cfg        Config
	uowFactory unitofwork.RepositoryFactory
	analyzer   analysis.Analyzer
	generator  response.Generator
	monitor    *risk.Monitor
	notifier   alert.Notifier
	locker     lock.Locker
	dispatcher Dispatcher
	observer   RunObserver
	cache      MemoryCache
	logger     logger.ILogger
	tracer     trace.Tracer
	now        func() time.Time

	mu      sync.Mutex
	lanes   map[uuid.UUID]*lane
	waiters map[uuid.UUID][]chan *entity.PipelineRun
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// lane is the single drain goroutine of a session. pending records wakes that arrived mid-drain.
type lane struct {
	pending bool
}

func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Orchestrator{
		cfg:        cfg.withDefaults(),
		uowFactory: deps.UowFactory,
		analyzer:   deps.Analyzer,
		generator:  deps.Generator,
		monitor:    deps.Monitor,
		notifier:   deps.Notifier,
		locker:     locker,
		dispatcher: deps.Dispatcher,
		observer:   deps.Observer,
		cache:      deps.Cache,
		logger:     log,
		tracer:     otel.Tracer("ai-counselor-be/pipeline"),
		now:        func() time.Time { return time.Now().UTC() },
		lanes:      make(map[uuid.UUID]*lane),
		waiters:    make(map[uuid.UUID][]chan *entity.PipelineRun),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the recovery sweep: once now, then every RecoveryInterval.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return
	}
	o.wg.Add(1)
	go o.recoveryLoop()
}

// Stop cancels in-flight runs and waits for every lane to exit. Interrupted runs stay
// non-terminal in the database and resume on the next start.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) recoveryLoop() {
	defer o.wg.Done()

	o.Recover(o.ctx)

	ticker := time.NewTicker(o.cfg.RecoveryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-ticker.C:
			o.Recover(o.ctx)
		}
	}
}

// Recover wakes every session that still has non-terminal runs.
func (o *Orchestrator) Recover(ctx context.Context) {
	uow := o.uowFactory.NewUnitOfWork(ctx)
	ids, err := uow.PipelineRunRepository().FindPendingSessionIds(ctx)
	if err != nil {
		o.logger.Error(logModule, "Recovery sweep failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(ids) > 0 {
		o.logger.Info(logModule, "Resuming pending runs", map[string]interface{}{"sessions": len(ids)})
	}
	for _, id := range ids {
		o.Wake(id)
	}
}

// Wake makes sure a lane is draining the session's queued runs.
func (o *Orchestrator) Wake(sessionId uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return
	}
	if l, ok := o.lanes[sessionId]; ok {
		l.pending = true
		return
	}

	o.lanes[sessionId] = &lane{}
	o.wg.Add(1)
	go o.drain(sessionId)
}

func (o *Orchestrator) drain(sessionId uuid.UUID) {
	defer o.wg.Done()

	for {
		worked, err := o.processNext(o.ctx, sessionId)
		if err != nil {
			if o.ctx.Err() == nil {
				o.logger.Error(logModule, "Session lane stopped", map[string]interface{}{
					"session_id": sessionId.String(),
					"error":      err.Error(),
					"retry_in":   o.cfg.MaxBackoff.String(),
				})
			}
			o.closeLane(sessionId, true)
			o.wakeLater(sessionId, o.cfg.MaxBackoff)
			return
		}
		if worked {
			continue
		}
		if o.closeLane(sessionId, false) {
			return
		}
	}
}

// wakeLater restarts a failed lane after delay so queued runs do not wait for the recovery sweep.
func (o *Orchestrator) wakeLater(sessionId uuid.UUID, delay time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-o.ctx.Done():
		case <-timer.C:
			o.Wake(sessionId)
		}
	}()
}

// closeLane removes the lane unless a wake arrived meanwhile. force skips that check.
func (o *Orchestrator) closeLane(sessionId uuid.UUID, force bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	l := o.lanes[sessionId]
	if !force && l != nil && l.pending {
		l.pending = false
		return false
	}
	delete(o.lanes, sessionId)
	return true
}

func lockKey(sessionId uuid.UUID) string {
	return fmt.Sprintf("counsel:session:%s", sessionId)
}

// processNext executes the oldest non-terminal run of the session, if any.
func (o *Orchestrator) processNext(ctx context.Context, sessionId uuid.UUID) (bool, error) {
	run, err := o.uowFactory.NewUnitOfWork(ctx).PipelineRunRepository().FindNextPending(ctx, sessionId)
	if err != nil {
		return false, fmt.Errorf("find pending run: %w", err)
	}
	if run == nil {
		return false, nil
	}

	lease, err := o.locker.Acquire(ctx, lockKey(sessionId), o.cfg.LockTTL)
	if err != nil {
		return false, fmt.Errorf("acquire session lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			o.logger.Warn(logModule, "Session lock release failed", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		}
	}()

	// Another instance may have advanced the queue while we waited for the lock.
	run, err = o.uowFactory.NewUnitOfWork(ctx).PipelineRunRepository().FindNextPending(ctx, sessionId)
	if err != nil {
		return false, fmt.Errorf("reload pending run: %w", err)
	}
	if run == nil {
		return true, nil
	}

	if err := o.execute(ctx, run); err != nil {
		return false, err
	}
	return true, nil
}

// Await blocks until the run is terminal or ctx ends. Cancelling ctx does not stop the run.
func (o *Orchestrator) Await(ctx context.Context, runId uuid.UUID) (*Result, error) {
	ch := o.subscribe(runId)
	defer o.unsubscribe(runId, ch)

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		run, err := o.uowFactory.NewUnitOfWork(ctx).PipelineRunRepository().FindOne(ctx, specification.ByID{ID: runId})
		if err != nil {
			return nil, fmt.Errorf("load run: %w", err)
		}
		if run == nil {
			return nil, ErrRunNotFound
		}
		if run.IsTerminal() {
			return outcome(run)
		}

		select {
		case done := <-ch:
			return outcome(done)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func outcome(run *entity.PipelineRun) (*Result, error) {
	if run.Status == constant.RunStatusFailed {
		return nil, fmt.Errorf("%w: %s", ErrRunFailed, run.Error)
	}
	res := resultOf(run)
	return &res, nil
}

func (o *Orchestrator) subscribe(runId uuid.UUID) chan *entity.PipelineRun {
	ch := make(chan *entity.PipelineRun, 1)
	o.mu.Lock()
	o.waiters[runId] = append(o.waiters[runId], ch)
	o.mu.Unlock()
	return ch
}

func (o *Orchestrator) unsubscribe(runId uuid.UUID, ch chan *entity.PipelineRun) {
	o.mu.Lock()
	defer o.mu.Unlock()

	list := o.waiters[runId]
	for i, c := range list {
		if c == ch {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(o.waiters, runId)
	} else {
		o.waiters[runId] = list
	}
}

// finish hands the terminal run to everyone awaiting it.
func (o *Orchestrator) finish(run *entity.PipelineRun) {
	snapshot := *run

	o.mu.Lock()
	list := o.waiters[run.Id]
	delete(o.waiters, run.Id)
	o.mu.Unlock()

	for _, ch := range list {
		select {
		case ch <- &snapshot:
		default:
		}
	}
}

func (o *Orchestrator) observe(run *entity.PipelineRun) {
	if o.observer == nil {
		return
	}
	snapshot := *run
	o.observer.RunChanged(&snapshot)
}
