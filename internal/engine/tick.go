// Package engine provides the habitat runtime: a fixed-interval
// dynamics ticker plus one decision-cycle goroutine per agent. Agents
// pace themselves independently; there is no global lock-step.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/swarmsim/internal/controller"
	"github.com/talgya/swarmsim/internal/env"
)

// Runtime drives the environment clock and the registered controllers.
type Runtime struct {
	Env *env.Environment

	// Interval between dynamics ticks; TickDelta is how many sim-hours
	// each tick advances.
	TickInterval time.Duration
	TickDelta    float64

	// CycleInterval paces each agent's decision loop.
	CycleInterval time.Duration

	// Speed multiplies the clock: 1.0 real-time, 0 paused.
	speedMilli int64

	tick        atomic.Uint64
	controllers []*controller.Controller
}

// NewRuntime creates a runtime over an environment.
func NewRuntime(e *env.Environment, tickInterval, cycleInterval time.Duration, tickDelta float64) *Runtime {
	r := &Runtime{
		Env:           e,
		TickInterval:  tickInterval,
		TickDelta:     tickDelta,
		CycleInterval: cycleInterval,
	}
	r.SetSpeed(1.0)
	return r
}

// Register adds a controller to be driven by Run. Call before Run.
func (r *Runtime) Register(c *controller.Controller) {
	r.controllers = append(r.controllers, c)
}

// Controllers returns the registered controllers.
func (r *Runtime) Controllers() []*controller.Controller {
	return r.controllers
}

// Tick returns the number of dynamics ticks processed so far.
func (r *Runtime) Tick() uint64 { return r.tick.Load() }

// SetSpeed adjusts the clock multiplier. 0 pauses the habitat.
func (r *Runtime) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	atomic.StoreInt64(&r.speedMilli, int64(speed*1000))
}

// Speed returns the current clock multiplier.
func (r *Runtime) Speed() float64 {
	return float64(atomic.LoadInt64(&r.speedMilli)) / 1000
}

// Run starts the ticker and every agent loop, blocking until ctx is
// cancelled. Agent loops whose entity disappears exit quietly; the
// ticker outlives them all.
func (r *Runtime) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return r.runTicker(ctx) })

	for _, c := range r.controllers {
		c := c
		g.Go(func() error { return r.runAgent(ctx, c) })
	}

	slog.Info("habitat runtime started",
		"agents", len(r.controllers),
		"tick_interval", r.TickInterval,
		"cycle_interval", r.CycleInterval,
	)
	err := g.Wait()
	slog.Info("habitat runtime stopped", "ticks", r.tick.Load())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runTicker advances environment dynamics on its own fixed cadence,
// independent of any agent's cycle.
func (r *Runtime) runTicker(ctx context.Context) error {
	timer := time.NewTimer(r.TickInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		speed := r.Speed()
		if speed > 0 {
			r.Env.Update(r.TickDelta * speed)
			r.tick.Add(1)
		}

		interval := r.TickInterval
		if speed > 1 {
			interval = time.Duration(float64(interval) / speed)
		}
		timer.Reset(interval)
	}
}

// runAgent drives one controller's perceive→decide→act→learn loop.
// Cycle errors are logged and the loop carries on; only a removed
// entity or cancellation ends it.
func (r *Runtime) runAgent(ctx context.Context, c *controller.Controller) error {
	rng := rand.New(rand.NewSource(int64(len(c.AgentID())) + time.Now().UnixNano()))

	for {
		// ±20% jitter keeps agent cycles from phase-locking.
		jitter := 0.8 + rng.Float64()*0.4
		wait := time.Duration(float64(r.CycleInterval) * jitter)
		if speed := r.Speed(); speed > 1 {
			wait = time.Duration(float64(wait) / speed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if r.Speed() == 0 {
			continue
		}
		if !r.Env.Present(c.AgentID()) {
			slog.Info("agent entity gone, stopping loop", "agent", c.AgentID())
			return nil
		}

		if _, err := c.RunCycle(ctx); err != nil {
			slog.Warn("decision cycle failed", "agent", c.AgentID(), "error", err)
		}
	}
}
