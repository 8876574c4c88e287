package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/templui/fitsync/internal/model"
	"github.com/templui/fitsync/internal/repository"
)

type State int

const (
	StateIdle State = iota
	StateInFlight
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInFlight:
		return "in_flight"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "idle"
}

// Options tunes the push policy and the background loop.
type Options struct {
	// Interval is the longest a pending change waits before a push is due.
	Interval time.Duration
	// Threshold makes a push due as soon as this many changes are pending.
	Threshold int
	// Retries is the number of extra attempts after a failed push.
	Retries    int
	RetryDelay time.Duration
	// BatchSize caps the changes sent per request. Zero sends everything.
	BatchSize    int
	PollInterval time.Duration
	// Retention is how long acknowledged changes are kept. Zero keeps them.
	Retention time.Duration
	Now       func() time.Time
}

type PushResult struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
	Pushed  int    `json:"pushed"`
}

type Status struct {
	Push       State
	Pull       State
	LastPushAt time.Time
	LastPullAt time.Time
	LastError  string
}

// Engine runs the push and pull state machines. At most one push and one
// pull are in flight at a time; database access never spans network I/O.
type Engine struct {
	records repository.RecordRepository
	changes repository.ChangeRepository
	states  repository.SyncStateRepository
	remote  Remote
	opts    Options

	mu     sync.Mutex
	status Status

	kicks chan *model.Session
	done  chan struct{}
}

func NewEngine(
	records repository.RecordRepository,
	changes repository.ChangeRepository,
	states repository.SyncStateRepository,
	remote Remote,
	opts Options,
) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Engine{
		records: records,
		changes: changes,
		states:  states,
		remote:  remote,
		opts:    opts,
		kicks:   make(chan *model.Session, 1),
		done:    make(chan struct{}),
	}
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Push sends the owner's pending changes when forced or when the policy
// says a push is due. A push already in flight makes this call a no-op.
func (e *Engine) Push(ctx context.Context, s *model.Session, force bool) (PushResult, error) {
	if !s.Valid() {
		return PushResult{}, ErrNoSession
	}

	e.mu.Lock()
	if e.status.Push == StateInFlight {
		e.mu.Unlock()
		pushCounter.WithLabelValues("skipped").Inc()
		return PushResult{Skipped: true, Reason: "push in flight"}, nil
	}
	prev := e.status.Push
	e.status.Push = StateInFlight
	e.mu.Unlock()

	start := e.opts.Now()
	result, err := e.push(ctx, s, force)

	e.mu.Lock()
	switch {
	case err != nil:
		e.status.Push = StateFailed
		e.status.LastError = err.Error()
	case result.Skipped:
		e.status.Push = prev
	default:
		e.status.Push = StateSucceeded
		e.status.LastPushAt = e.opts.Now()
		e.status.LastError = ""
	}
	e.mu.Unlock()

	switch {
	case err != nil:
		pushCounter.WithLabelValues("failed").Inc()
	case result.Skipped:
		pushCounter.WithLabelValues("skipped").Inc()
	default:
		pushCounter.WithLabelValues("succeeded").Inc()
		pushDuration.Observe(e.opts.Now().Sub(start).Seconds())
	}
	return result, err
}

func (e *Engine) push(ctx context.Context, s *model.Session, force bool) (PushResult, error) {
	pending, err := e.changes.Pending(ctx, s.UserID, 0)
	if err != nil {
		return PushResult{}, err
	}
	pendingGauge.Set(float64(len(pending)))

	state, err := e.states.Get(ctx, s.UserID)
	if err != nil {
		return PushResult{}, err
	}

	if !force && !e.due(len(pending), state) {
		return PushResult{Skipped: true, Reason: "not due"}, nil
	}

	pushed := 0
	var pushErr error
	for _, batch := range batches(pending, e.opts.BatchSize) {
		pushErr = e.send(ctx, s, batch)
		if pushErr != nil {
			break
		}

		upTo := batch[len(batch)-1].Seq
		if _, err := e.changes.MarkPushed(ctx, s.UserID, upTo, e.opts.Now().UTC()); err != nil {
			pushErr = err
			break
		}
		pushed += len(batch)
		state.PushedSeq = upTo
		changesPushedCounter.Add(float64(len(batch)))
	}

	if pushErr != nil {
		state.LastPushError = pushErr.Error()
	} else {
		now := e.opts.Now().UTC()
		state.LastPushAt = &now
		state.LastPushError = ""
	}
	if err := e.states.Save(ctx, state); err != nil {
		slog.Warn("failed to save sync state", "user_id", s.UserID, "error", err)
	}
	pendingGauge.Set(float64(len(pending) - pushed))

	if pushErr != nil {
		return PushResult{Pushed: pushed}, pushErr
	}
	return PushResult{Pushed: pushed}, nil
}

// due is the scheduling policy: enough changes piled up, or the oldest
// outstanding change has waited a full interval since the last push.
func (e *Engine) due(pending int, state *model.SyncState) bool {
	if pending == 0 {
		return false
	}
	if e.opts.Threshold > 0 && pending >= e.opts.Threshold {
		return true
	}
	if state.LastPushAt == nil {
		return true
	}
	return e.opts.Now().Sub(*state.LastPushAt) >= e.opts.Interval
}

// send delivers one batch, retrying transient failures with a fixed delay.
func (e *Engine) send(ctx context.Context, s *model.Session, batch []model.Change) error {
	changes := model.CompactChanges(batch)
	backoff := retry.WithMaxRetries(uint64(e.opts.Retries), retry.NewConstant(e.retryDelay()))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := e.remote.PushBatch(ctx, s.Token, s.UserID, changes)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, context.Canceled) {
			return err
		}
		slog.Warn("push attempt failed", "user_id", s.UserID, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
}

func (e *Engine) retryDelay() time.Duration {
	if e.opts.RetryDelay <= 0 {
		return time.Millisecond
	}
	return e.opts.RetryDelay
}

func batches(changes []model.Change, size int) [][]model.Change {
	if len(changes) == 0 {
		return nil
	}
	if size <= 0 || size >= len(changes) {
		return [][]model.Change{changes}
	}
	var out [][]model.Change
	for start := 0; start < len(changes); start += size {
		end := min(start+size, len(changes))
		out = append(out, changes[start:end])
	}
	return out
}

// Pull replaces the owner's local records with the remote dataset. It is
// attempted once; unpushed local changes are applied again on top.
func (e *Engine) Pull(ctx context.Context, s *model.Session) error {
	if !s.Valid() {
		return ErrNoSession
	}

	e.mu.Lock()
	if e.status.Pull == StateInFlight {
		e.mu.Unlock()
		return ErrPullInFlight
	}
	e.status.Pull = StateInFlight
	e.mu.Unlock()

	err := e.pull(ctx, s)

	e.mu.Lock()
	if err != nil {
		e.status.Pull = StateFailed
		e.status.LastError = err.Error()
	} else {
		e.status.Pull = StateSucceeded
		e.status.LastPullAt = e.opts.Now()
	}
	e.mu.Unlock()

	if err != nil {
		pullCounter.WithLabelValues("failed").Inc()
		return err
	}
	pullCounter.WithLabelValues("succeeded").Inc()
	return nil
}

func (e *Engine) pull(ctx context.Context, s *model.Session) error {
	ds, err := e.remote.PullAll(ctx, s.Token, s.UserID)
	if err != nil {
		return err
	}

	records := make([]model.Record, 0, len(ds.Records))
	for _, r := range ds.Records {
		if r.UserID == "" {
			r.UserID = s.UserID
		}
		records = append(records, r)
	}

	if err := e.records.Replace(ctx, s.UserID, records); err != nil {
		return fmt.Errorf("apply pull: %w", err)
	}

	state, err := e.states.Get(ctx, s.UserID)
	if err != nil {
		return err
	}
	now := e.opts.Now().UTC()
	state.LastPullAt = &now
	if err := e.states.Save(ctx, state); err != nil {
		return err
	}

	slog.Info("pulled remote dataset", "user_id", s.UserID, "records", len(records))
	return nil
}

// Kick asks the background loop to evaluate the push policy soon. It never
// blocks; kicks arriving while one is queued are merged.
func (e *Engine) Kick(s *model.Session) {
	if !s.Valid() {
		return
	}
	select {
	case e.kicks <- s:
	default:
	}
}

// Run evaluates the push policy on every kick and poll tick until ctx is
// done. current resolves the signed-in session for ticks. Call it once,
// usually in its own goroutine.
func (e *Engine) Run(ctx context.Context, current func(context.Context) (*model.Session, error)) {
	ticker := time.NewTicker(e.opts.PollInterval)
	defer func() {
		ticker.Stop()
		close(e.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-e.kicks:
			e.tick(ctx, s)
		case <-ticker.C:
			s, err := current(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Debug("sync loop: no session", "error", err)
				}
				continue
			}
			e.tick(ctx, s)
			e.purge(ctx)
		}
	}
}

// Wait blocks until Run has returned.
func (e *Engine) Wait() {
	<-e.done
}

func (e *Engine) tick(ctx context.Context, s *model.Session) {
	if !s.Valid() {
		return
	}
	result, err := e.Push(ctx, s, false)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("scheduled push failed", "user_id", s.UserID, "error", err)
		return
	}
	if result.Pushed > 0 {
		slog.Info("pushed changes", "user_id", s.UserID, "count", result.Pushed)
	}
}

func (e *Engine) purge(ctx context.Context) {
	if e.opts.Retention <= 0 {
		return
	}
	n, err := e.changes.PurgePushed(ctx, e.opts.Now().Add(-e.opts.Retention).UTC())
	if err != nil {
		slog.Warn("failed to purge pushed changes", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("purged pushed changes", "count", n)
	}
}
