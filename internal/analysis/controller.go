// Package analysis runs resume analyses: one active run at a time, each
// cancellable and tagged with its own ID so late results are discarded.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/cvvin/internal/model"
	"github.com/amishk599/cvvin/internal/resolve"
)

// State is the controller's lifecycle position.
type State string

const (
	Idle       State = "idle"
	Validating State = "validating"
	Running    State = "running"
	Succeeded  State = "succeeded"
	Failed     State = "failed"
)

// Status is a snapshot of the controller. Result is set only when State is
// Succeeded, Err only when State is Failed.
type Status struct {
	State  State
	RunID  string
	Result *model.MatchResult
	Err    error
}

// Gate is the part of the session store the controller depends on.
type Gate interface {
	CanEnter(stage model.Stage) error
	CurrentProfile() model.Profile
}

// Options holds the optional collaborators of a Controller.
type Options struct {
	Timeout  time.Duration     // bound on one run, zero means none
	Results  model.ResultStore // latest result sink, may be nil
	Notifier model.Notifier    // completed result sink, may be nil
	Logger   *slog.Logger
	Now      func() time.Time
}

// Controller orchestrates analysis runs. Starting a run while another is
// active cancels the earlier one (replace policy).
type Controller struct {
	gate     Gate
	pipeline *Pipeline
	timeout  time.Duration
	results  model.ResultStore
	notifier model.Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	status  Status
	current *Run

	subMu  sync.Mutex
	subs   map[int]func(Status)
	nextID int
}

func NewController(gate Gate, pipeline *Pipeline, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		gate:     gate,
		pipeline: pipeline,
		timeout:  opts.Timeout,
		results:  opts.Results,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      opts.Now,
		status:   Status{State: Idle},
		subs:     make(map[int]func(Status)),
	}
}

// Run is the handle of one started analysis.
type Run struct {
	ID        string
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	result model.MatchResult
	err    error
}

func newRun(id string, started time.Time, cancel context.CancelFunc) *Run {
	return &Run{ID: id, StartedAt: started, cancel: cancel, done: make(chan struct{})}
}

// resolve records the outcome. Only the first call has an effect.
func (r *Run) resolve(res model.MatchResult, err error) {
	r.once.Do(func() {
		r.result, r.err = res, err
		close(r.done)
	})
}

// Done is closed when the run has an outcome.
func (r *Run) Done() <-chan struct{} { return r.done }

// Result returns the outcome. It must only be called after Done is closed.
func (r *Run) Result() (model.MatchResult, error) {
	return r.result, r.err
}

// Wait blocks until the run has an outcome or ctx is done.
func (r *Run) Wait(ctx context.Context) (model.MatchResult, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return model.MatchResult{}, ctx.Err()
	}
}

// Start validates in and, when valid, starts a run in the background.
// Validation errors are returned directly and leave the controller Failed.
// The run's context derives from ctx and is bounded by the configured timeout.
func (c *Controller) Start(ctx context.Context, in resolve.Inputs) (*Run, error) {
	if err := c.gate.CanEnter(model.StageAnalysis); err != nil {
		return nil, err
	}
	in.Profile = c.gate.CurrentProfile()

	var changes []Status

	c.mu.Lock()
	if prev := c.current; prev != nil {
		c.logger.Debug("replacing active run", "run_id", prev.ID)
		c.abandon(prev)
	}
	changes = append(changes, c.setStatus(Status{State: Validating}))

	req, err := resolve.Resolve(in)
	if err != nil {
		changes = append(changes, c.setStatus(Status{State: Failed, Err: err}))
		c.mu.Unlock()
		c.publish(changes...)
		return nil, err
	}

	runCtx, cancel := c.runContext(ctx)
	run := newRun(uuid.NewString(), c.now().UTC(), cancel)
	c.current = run
	changes = append(changes, c.setStatus(Status{State: Running, RunID: run.ID}))
	c.mu.Unlock()

	c.logger.Info("analysis started",
		"run_id", run.ID,
		"resume", req.Resume.Name,
		"resume_source", req.Resume.SourceKind,
	)
	c.publish(changes...)

	go c.execute(runCtx, run, req)
	return run, nil
}

// Analyze starts a run and waits for it. If ctx is done first the run is
// canceled.
func (c *Controller) Analyze(ctx context.Context, in resolve.Inputs) (model.MatchResult, error) {
	run, err := c.Start(ctx, in)
	if err != nil {
		return model.MatchResult{}, err
	}
	select {
	case <-run.Done():
	case <-ctx.Done():
		c.Cancel(run)
	}
	return run.Result()
}

// Cancel stops run. If run is the current one the controller returns to
// Idle. The run's outcome becomes ErrCanceled unless it already had one.
func (c *Controller) Cancel(run *Run) {
	if run == nil {
		return
	}
	c.mu.Lock()
	var changes []Status
	if c.current == run {
		c.abandon(run)
		changes = append(changes, c.setStatus(Status{State: Idle}))
	} else {
		run.cancel()
		run.resolve(model.MatchResult{}, model.ErrCanceled)
	}
	c.mu.Unlock()

	c.publish(changes...)
}

// State returns a snapshot of the controller.
func (c *Controller) State() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.clone()
}

// Subscribe registers fn for state changes and returns a function that
// removes it. fn runs synchronously after the change is committed.
func (c *Controller) Subscribe(fn func(Status)) (unsubscribe func()) {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Controller) execute(ctx context.Context, run *Run, req model.AnalysisRequest) {
	res, err := c.pipeline.Run(ctx, req)
	run.cancel()

	if err == nil {
		res.RunID = run.ID
		res.ComputedAt = c.now().UTC()
	} else if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, model.ErrTimeout) {
		err = errors.Join(model.ErrTimeout, err)
	}

	c.mu.Lock()
	if c.current != run {
		c.mu.Unlock()
		c.logger.Debug("discarding stale run outcome", "run_id", run.ID, "error", err)
		run.resolve(model.MatchResult{}, model.ErrCanceled)
		return
	}
	c.current = nil

	var st Status
	switch {
	case err == nil:
		if c.results != nil {
			// Saved under the lock so a newer run's save cannot be overtaken.
			if serr := c.results.SaveResult(context.WithoutCancel(ctx), res); serr != nil {
				c.logger.Warn("could not save analysis result", "run_id", run.ID, "error", serr)
			}
		}
		st = c.setStatus(Status{State: Succeeded, RunID: run.ID, Result: &res})
	case errors.Is(err, model.ErrCanceled):
		st = c.setStatus(Status{State: Idle})
	default:
		st = c.setStatus(Status{State: Failed, RunID: run.ID, Err: err})
	}
	run.resolve(res, err)
	c.mu.Unlock()

	if err != nil {
		c.logger.Info("analysis failed", "run_id", run.ID, "error", err)
		c.publish(st)
		return
	}

	c.logger.Info("analysis finished",
		"run_id", run.ID,
		"score", res.MatchScore,
		"matched", len(res.MatchedSkills),
		"missing", len(res.MissingSkills),
		"elapsed", c.now().Sub(run.StartedAt).Round(time.Millisecond),
	)
	c.publish(st)

	if c.notifier != nil {
		if nerr := c.notifier.Notify(context.WithoutCancel(ctx), res); nerr != nil {
			c.logger.Warn("notify failed", "run_id", run.ID, "error", nerr)
		}
	}
}

// abandon cancels run and resolves it as canceled. Caller holds c.mu.
func (c *Controller) abandon(run *Run) {
	run.cancel()
	run.resolve(model.MatchResult{}, model.ErrCanceled)
	if c.current == run {
		c.current = nil
	}
}

// setStatus replaces the status and returns a copy for publishing.
// Caller holds c.mu.
func (c *Controller) setStatus(st Status) Status {
	c.status = st
	return st.clone()
}

func (c *Controller) publish(changes ...Status) {
	c.subMu.Lock()
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Status), len(ids))
	for i, id := range ids {
		fns[i] = c.subs[id]
	}
	c.subMu.Unlock()

	for _, st := range changes {
		for _, fn := range fns {
			fn(st)
		}
	}
}

func (s Status) clone() Status {
	if s.Result != nil {
		r := *s.Result
		r.MatchedSkills = slices.Clone(r.MatchedSkills)
		r.MissingSkills = slices.Clone(r.MissingSkills)
		r.Strengths = slices.Clone(r.Strengths)
		r.Improvements = slices.Clone(r.Improvements)
		s.Result = &r
	}
	return s
}
