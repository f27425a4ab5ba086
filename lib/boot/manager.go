// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package boot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/sitectl/lib/clock"
)

// Phase performs the work of one bootstrap level.
type Phase interface {
	// Level is the level this phase establishes.
	Level() Level

	// Boot performs the phase. A non-nil error leaves the manager at
	// the previous level.
	Boot(ctx context.Context) error
}

// PhaseFunc adapts a function to the Phase interface.
type PhaseFunc struct {
	At  Level
	Run func(ctx context.Context) error
}

// Level returns p.At.
func (p PhaseFunc) Level() Level { return p.At }

// Boot calls p.Run.
func (p PhaseFunc) Boot(ctx context.Context) error { return p.Run(ctx) }

// Locator answers questions about the host that do not require
// escalation: where the root is (once known) and which site URI a
// working directory implies.
type Locator interface {
	Root() string
	SelectURI(cwd string) string
}

// PhaseError records a failed phase.
type PhaseError struct {
	Level Level
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("bootstrap to %s failed: %v", e.Level, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Config holds the collaborators of a Manager. Every field is
// optional.
type Config struct {
	// Logger receives debug messages for each escalation step. Nil
	// discards.
	Logger *slog.Logger

	// Clock times each phase. Nil uses the real clock.
	Clock clock.Clock

	// Locator backs Root and SelectURI.
	Locator Locator
}

// Manager is the process's bootstrap state: the registered phases and
// the highest level reached so far.
type Manager struct {
	phases      map[Level]Phase
	top         Level
	current     Level
	lastFailure *PhaseError
	attempts    int

	logger  *slog.Logger
	clock   clock.Clock
	locator Locator
}

// NewManager returns a Manager at level None with no phases.
func NewManager(config Config) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Manager{
		phases:  make(map[Level]Phase),
		logger:  logger,
		clock:   clk,
		locator: config.Locator,
	}
}

// Register adds a phase. Each level between None and Max (exclusive)
// accepts exactly one phase.
func (m *Manager) Register(phase Phase) error {
	level := phase.Level()
	if level <= None || level >= Max {
		return fmt.Errorf("cannot register a phase at level %s", level)
	}
	if _, exists := m.phases[level]; exists {
		return fmt.Errorf("a phase is already registered at level %s", level)
	}
	m.phases[level] = phase
	if level > m.top {
		m.top = level
	}
	return nil
}

// Current returns the highest level reached.
func (m *Manager) Current() Level { return m.current }

// Top returns the highest level any registered phase can establish.
func (m *Manager) Top() Level { return m.top }

// Reached reports whether the recorded level is at least level. Max is
// reached once every registered phase has succeeded.
func (m *Manager) Reached(level Level) bool {
	if level >= Max {
		return m.current >= m.top
	}
	return m.current >= level
}

// LastFailure returns the most recent phase failure, or nil.
func (m *Manager) LastFailure() *PhaseError { return m.lastFailure }

// Attempts returns how many escalations have been started. Tests use
// it to prove a code path never escalated.
func (m *Manager) Attempts() int { return m.attempts }

// Root returns the host root located by the ROOT phase, or "" when no
// locator is configured or the root is not yet known.
func (m *Manager) Root() string {
	if m.locator == nil {
		return ""
	}
	return m.locator.Root()
}

// SelectURI returns the site URI implied by cwd, or "default" when no
// locator is configured.
func (m *Manager) SelectURI(cwd string) string {
	if m.locator == nil {
		return "default"
	}
	return m.locator.SelectURI(cwd)
}

// EscalateToMaximum runs every phase above the current level in
// ascending order and stops at the first failure. The failure is not
// returned; inspect Reached or LastFailure afterwards. Calling it when
// every phase has already succeeded does nothing.
func (m *Manager) EscalateToMaximum(ctx context.Context) Level {
	m.escalate(ctx, m.top)
	return m.current
}

// EscalateTo runs phases until level is reached and returns the phase
// error if one fails. Max escalates as far as possible and never
// fails.
func (m *Manager) EscalateTo(ctx context.Context, level Level) error {
	if level >= Max {
		m.EscalateToMaximum(ctx)
		return nil
	}
	if level > m.top {
		return &PhaseError{Level: level, Err: fmt.Errorf("no phase can establish level %s", level)}
	}
	return m.escalate(ctx, level)
}

func (m *Manager) escalate(ctx context.Context, target Level) error {
	if m.current >= target {
		return nil
	}
	m.attempts++

	for level := m.current + 1; level <= target; level++ {
		phase, ok := m.phases[level]
		if !ok {
			m.current = level
			continue
		}

		if err := ctx.Err(); err != nil {
			return m.fail(level, err)
		}

		m.logger.Debug("bootstrap phase starting", "level", level.String())
		start := m.clock.Now()
		err := phase.Boot(ctx)
		elapsed := clock.Since(m.clock, start)
		if err != nil {
			m.logger.Debug("bootstrap phase failed",
				"level", level.String(),
				"duration", elapsed,
				"error", err,
			)
			return m.fail(level, err)
		}

		m.current = level
		if m.lastFailure != nil && m.lastFailure.Level <= level {
			m.lastFailure = nil
		}
		m.logger.Debug("bootstrap phase finished",
			"level", level.String(),
			"duration", elapsed,
		)
	}
	return nil
}

func (m *Manager) fail(level Level, err error) error {
	m.lastFailure = &PhaseError{Level: level, Err: err}
	return m.lastFailure
}
