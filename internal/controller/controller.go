package controller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/loykin/converge/internal/deplink"
	"github.com/loykin/converge/internal/history"
	"github.com/loykin/converge/internal/jobguard"
	"github.com/loykin/converge/internal/metrics"
	"github.com/loykin/converge/internal/peers"
	"github.com/loykin/converge/internal/status"
	"github.com/loykin/converge/internal/store"
	"github.com/loykin/converge/internal/workload"
)

const bootstrappedFlag = "bootstrapped"

// OneShotJob is a job that runs exactly once per instance, typically
// schema creation or seed data. Failed runs are retried on the next
// pass.
type OneShotJob struct {
	Label      string
	LeaderOnly bool
	Run        func(ctx context.Context) error
}

// Config wires a Controller from its collaborators.
type Config struct {
	Instance  string
	Leader    func() bool
	Store     store.Store
	Links     []deplink.Link
	Workloads []*workload.Handle
	Jobs      []OneShotJob
	Peers     *peers.Coordinator
	Sinks     []history.Sink
}

// Controller owns the reconciliation loop. Every external trigger
// funnels into Reconcile, which converges dependencies, workloads and
// one-shot jobs and then reports a single status projection. Passes
// are serialised.
type Controller struct {
	mu        sync.Mutex
	instance  string
	leader    func() bool
	st        store.Store
	pool      *status.Pool
	guard     *jobguard.Guard
	links     []deplink.Link
	workloads []*workload.Handle
	jobs      []OneShotJob
	peers     *peers.Coordinator
	sinks     []history.Sink

	entryRun  *status.Entry
	entryBoot *status.Entry
}

func New(cfg Config) *Controller {
	leader := cfg.Leader
	if leader == nil {
		leader = func() bool { return true }
	}
	c := &Controller{
		instance:  cfg.Instance,
		leader:    leader,
		st:        cfg.Store,
		pool:      status.NewPool(cfg.Store),
		guard:     jobguard.New(cfg.Store),
		links:     cfg.Links,
		workloads: cfg.Workloads,
		jobs:      cfg.Jobs,
		peers:     cfg.Peers,
		sinks:     cfg.Sinks,
	}
	c.entryRun = status.NewEntry("run", 100)
	c.entryBoot = status.NewEntry("bootstrap", 90)
	c.pool.Add(c.entryRun)
	c.pool.Add(c.entryBoot)
	for _, h := range cfg.Workloads {
		e := status.NewEntry(h.StatusLabel(), 50)
		h.BindStatus(e)
		c.pool.Add(e)
	}
	return c
}

// Pool exposes the status pool for status queries.
func (c *Controller) Pool() *status.Pool { return c.pool }

// Bootstrapped reports whether a pass has completed end to end on
// this instance.
func (c *Controller) Bootstrapped(ctx context.Context) bool {
	v, err := c.st.GetFlag(ctx, bootstrappedFlag)
	if err != nil {
		return false
	}
	return v
}

// Reconcile runs one full pass for the given trigger and returns the
// resulting status projection. Conditions (Waiting, Blocked) end the
// pass cleanly; anything else is reported as Blocked and logged.
func (c *Controller) Reconcile(ctx context.Context, trigger string) status.Projection {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	err := c.runPass(ctx, trigger)
	return c.finish(ctx, trigger, err, start)
}

func (c *Controller) runPass(ctx context.Context, trigger string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("reconcile panicked", "trigger", trigger, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.apply(ctx, c.plan())
}

// plan gathers the pass inputs without side effects: which mandatory
// dependencies are missing, whether this instance leads, and the
// template context assembled from every ready dependency.
type plan struct {
	leader  bool
	missing []string
	tctx    map[string]any
}

func (c *Controller) plan() *plan {
	p := &plan{leader: c.leader()}

	deps := make(map[string]map[string]string)
	for _, l := range c.links {
		if !l.Ready() {
			if l.Mandatory() {
				p.missing = append(p.missing, l.Name())
			}
			continue
		}
		deps[deplink.ContextKey(l.Name())] = l.Context()
	}
	sort.Strings(p.missing)

	p.tctx = map[string]any{
		"instance": c.instance,
		"leader":   p.leader,
		"deps":     deps,
	}
	return p
}

func (c *Controller) apply(ctx context.Context, p *plan) error {
	// Followers hold everything until the leader has announced a
	// completed bootstrap; acting on dependencies or jobs before
	// that races the leader's initialisation.
	if c.peers != nil && !p.leader && !c.peers.IsLeaderReady() {
		return &WaitingError{Reason: "leader not ready"}
	}

	if len(p.missing) > 0 {
		// Services must not keep running against dependencies that
		// have gone away.
		for _, h := range c.workloads {
			if h.Reachable(ctx) {
				if err := h.StopAll(ctx); err != nil {
					slog.Warn("failed to stop services", "workload", h.Name(), "error", err)
				}
			}
		}
		return &BlockedError{Reason: "integration missing: " + strings.Join(p.missing, ", ")}
	}

	for _, h := range c.workloads {
		if !h.Reachable(ctx) {
			return &WaitingError{Reason: "payload not ready"}
		}
	}

	for _, h := range c.workloads {
		if err := h.Init(ctx, p.tctx); err != nil {
			return err
		}
	}

	for _, h := range c.workloads {
		if !h.ServicesRunning(ctx) {
			return &WaitingError{Reason: "service not ready"}
		}
	}

	for _, job := range c.jobs {
		if job.LeaderOnly && !p.leader {
			slog.Debug("skipping leader-only job", "label", job.Label)
			continue
		}
		if err := c.runJob(ctx, job); err != nil {
			metrics.IncJobRun(job.Label, "failure")
			return &BlockedError{Reason: fmt.Sprintf("job %q: %v", job.Label, err)}
		}
		metrics.IncJobRun(job.Label, "success")
	}

	if c.peers != nil && p.leader {
		if err := c.peers.SetLeaderReady(); err != nil {
			slog.Warn("failed to announce leader readiness", "error", err)
		}
	}

	if err := c.st.SetFlag(ctx, bootstrappedFlag, true); err != nil {
		return fmt.Errorf("record bootstrap: %w", err)
	}
	c.entryBoot.Set(status.Active, "")

	for _, h := range c.workloads {
		h.Assess(ctx)
	}

	c.entryRun.Set(status.Active, "")
	return nil
}

// runJob executes a one-shot job under the run-once guard, retrying
// transient failures a few times within the pass.
func (c *Controller) runJob(ctx context.Context, job OneShotJob) error {
	return c.guard.RunOnce(ctx, job.Label, func() error {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 100 * time.Millisecond
		return backoff.Retry(
			func() error { return job.Run(ctx) },
			backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx),
		)
	})
}

func (c *Controller) finish(ctx context.Context, trigger string, err error, start time.Time) status.Projection {
	switch {
	case err == nil:
	default:
		if w, ok := asWaiting(err); ok {
			c.entryRun.Set(status.Waiting, w.Reason)
		} else if b, ok := asBlocked(err); ok {
			c.entryRun.Set(status.Blocked, b.Reason)
		} else {
			slog.Error("reconcile failed", "trigger", trigger, "error", err)
			c.entryRun.Set(status.Blocked, "see logs")
		}
	}

	c.pool.Commit(ctx)
	proj := c.pool.Projection()

	outcome := outcomeFor(proj.State, err)
	metrics.IncReconcile(string(outcome))
	metrics.ObserveReconcile(time.Since(start).Seconds())

	e := history.Event{
		Trigger:    trigger,
		Outcome:    outcome,
		Message:    proj.Message,
		Instance:   c.instance,
		OccurredAt: time.Now().UTC(),
	}
	for _, s := range c.sinks {
		_ = s.Send(ctx, e)
	}

	slog.Info("reconcile finished", "trigger", trigger, "state", proj.State, "message", proj.Message, "took", time.Since(start))
	return proj
}

func outcomeFor(state status.State, err error) history.Outcome {
	if err != nil {
		if _, ok := asWaiting(err); !ok {
			if _, okB := asBlocked(err); !okB {
				return history.OutcomeError
			}
		}
	}
	switch state {
	case status.Active:
		return history.OutcomeActive
	case status.Waiting:
		return history.OutcomeWaiting
	case status.Blocked:
		return history.OutcomeBlocked
	default:
		return history.OutcomeWaiting
	}
}
