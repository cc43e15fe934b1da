/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package agent drives the read, declare and publish cycle, once or on a
// schedule.
package agent

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/penistats/pkg/declare"
	"github.com/carverauto/penistats/pkg/logger"
	"github.com/carverauto/penistats/pkg/settings"
	"github.com/carverauto/penistats/pkg/sysmetrics"
)

const (
	// DefaultPollInterval is how often continuous mode checks for a due run.
	DefaultPollInterval = 30 * time.Second

	maxConcurrentDestinations = 4
)

// RunnerConfig carries the runner dependencies. Settings may be nil, in
// which case every cycle only displays the snapshot.
type RunnerConfig struct {
	Settings     *settings.Settings
	Sampler      Sampler
	Connector    Connector
	Clock        Clock
	Throttler    *declare.Throttler
	Logger       logger.Logger
	Display      io.Writer
	PollInterval time.Duration
}

// Runner owns the declare throttle state and the schedule.
type Runner struct {
	settings     *settings.Settings
	sampler      Sampler
	connector    Connector
	clock        Clock
	throttler    *declare.Throttler
	logger       logger.Logger
	display      io.Writer
	pollInterval time.Duration
}

// CycleResult summarizes one cycle.
type CycleResult struct {
	Declared  bool
	Attempted int
	Delivered int
}

// SuccessRatio is Delivered/Attempted, or 1 when nothing was attempted.
func (c CycleResult) SuccessRatio() float64 {
	if c.Attempted == 0 {
		return 1
	}

	return float64(c.Delivered) / float64(c.Attempted)
}

// NewRunner fills unset dependencies with the live clock, a fresh throttler and stdout.
func NewRunner(cfg RunnerConfig) *Runner {
	r := &Runner{
		settings:     cfg.Settings,
		sampler:      cfg.Sampler,
		connector:    cfg.Connector,
		clock:        cfg.Clock,
		throttler:    cfg.Throttler,
		logger:       cfg.Logger,
		display:      cfg.Display,
		pollInterval: cfg.PollInterval,
	}

	if r.clock == nil {
		r.clock = systemClock{}
	}

	if r.throttler == nil {
		r.throttler = declare.NewThrottler()
	}

	if r.logger == nil {
		r.logger = logger.NewTestLogger()
	}

	if r.display == nil {
		r.display = os.Stdout
	}

	if r.pollInterval <= 0 {
		r.pollInterval = DefaultPollInterval
	}

	return r
}

// Run performs a single cycle, or loops until ctx is done when the settings
// carry a schedule.
func (r *Runner) Run(ctx context.Context) error {
	if r.settings == nil {
		return r.RunDisplayOnly(ctx)
	}

	interval, ok := r.settings.Interval()
	if !ok {
		r.RunCycle(ctx)

		return nil
	}

	return r.runContinuous(ctx, interval)
}

// runContinuous runs the first cycle one interval after start and each
// following one an interval after the previous finished.
func (r *Runner) runContinuous(ctx context.Context, interval time.Duration) error {
	next := r.clock.Now().Add(interval)

	ticker := r.clock.Ticker(r.pollInterval)
	defer ticker.Stop()

	r.logger.Info().
		Dur("interval", interval).
		Time("next_run", next).
		Msg("Starting continuous mode")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Stopping continuous mode")

			return nil
		case <-ticker.Chan():
			if r.clock.Now().Before(next) {
				continue
			}

			r.RunCycle(ctx)

			next = r.clock.Now().Add(interval)

			r.logger.Debug().Time("next_run", next).Msg("Cycle complete")
		}
	}
}

// RunDisplayOnly samples and prints without publishing anything.
func (r *Runner) RunDisplayOnly(ctx context.Context) error {
	snap := r.sampler.Sample(ctx)

	return snap.Display(r.display)
}

// RunCycle samples, declares when due and publishes to every destination.
// Without destinations the snapshot is displayed instead.
func (r *Runner) RunCycle(ctx context.Context) CycleResult {
	var result CycleResult

	snap := r.sampler.Sample(ctx)

	var dests []settings.BrokerDestination
	if r.settings != nil {
		dests = r.settings.Destinations
	}

	if len(dests) == 0 {
		if err := snap.Display(r.display); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to display values")
		}

		return result
	}

	r.logger.Info().Interface("values", &snap).Msg("Values sampled")

	dev := &r.settings.Device

	if dev.IsSet() {
		now := r.clock.Now()

		if r.throttler.Due(now) {
			result.Declared = true
			r.declare(ctx, dests, dev)
			r.throttler.Mark(now)
		}
	}

	result.Attempted = len(dests)
	result.Delivered = r.fanOut(ctx, dests, "values", func(ctx context.Context, dest *settings.BrokerDestination) error {
		return r.connector.PublishSnapshot(ctx, dest, dev, &snap)
	})

	if ratio := result.SuccessRatio(); ratio < 1 {
		r.logger.Warn().
			Int("delivered", result.Delivered).
			Int("attempted", result.Attempted).
			Msgf("Values sent to only %.0f%% of destinations", ratio*100)
	}

	return result
}

func (r *Runner) declare(ctx context.Context, dests []settings.BrokerDestination, dev *settings.DeviceIdentity) {
	decls := sysmetrics.Declarations()

	delivered := r.fanOut(ctx, dests, "declare", func(ctx context.Context, dest *settings.BrokerDestination) error {
		return r.connector.PublishDeclaration(ctx, dest, dev, decls)
	})

	r.logger.Info().
		Int("delivered", delivered).
		Int("attempted", len(dests)).
		Msg("Declared values")
}

// fanOut calls send for every destination, bounded, and returns how many
// succeeded once all have finished.
func (r *Runner) fanOut(ctx context.Context, dests []settings.BrokerDestination, kind string,
	send func(context.Context, *settings.BrokerDestination) error) int {
	var delivered atomic.Int64

	var g errgroup.Group

	g.SetLimit(maxConcurrentDestinations)

	for i := range dests {
		dest := &dests[i]

		g.Go(func() error {
			if err := send(ctx, dest); err != nil {
				r.logger.Warn().
					Err(err).
					Str("kind", kind).
					Str("broker", dest.Address()).
					Msg("Failed to publish")

				return nil
			}

			delivered.Add(1)

			return nil
		})
	}

	_ = g.Wait()

	return int(delivered.Load())
}
