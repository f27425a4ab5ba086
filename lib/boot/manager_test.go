// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package boot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/sitectl/lib/clock"
)

// recordingPhases registers a phase at each given level. Phases whose
// level appears in failing return an error. The returned slice records
// the order phases ran in.
func recordingPhases(t *testing.T, manager *Manager, levels []Level, failing map[Level]bool) *[]Level {
	t.Helper()
	var ran []Level
	for _, level := range levels {
		level := level
		err := manager.Register(PhaseFunc{At: level, Run: func(context.Context) error {
			ran = append(ran, level)
			if failing[level] {
				return errors.New("unreachable " + level.String())
			}
			return nil
		}})
		if err != nil {
			t.Fatalf("Register(%s) error: %v", level, err)
		}
	}
	return &ran
}

var allPhases = []Level{Root, Site, Configuration, Database, Full}

func TestEscalateToMaximum_ReachesTop(t *testing.T) {
	manager := NewManager(Config{})
	ran := recordingPhases(t, manager, allPhases, nil)

	if got := manager.EscalateToMaximum(context.Background()); got != Full {
		t.Fatalf("EscalateToMaximum() = %s, want full", got)
	}
	if len(*ran) != len(allPhases) {
		t.Fatalf("ran %v, want every phase once", *ran)
	}
	for i, level := range allPhases {
		if (*ran)[i] != level {
			t.Errorf("phase %d ran %s, want %s", i, (*ran)[i], level)
		}
	}
	if !manager.Reached(Max) {
		t.Error("Reached(Max) should be true once every phase succeeded")
	}
}

func TestEscalateToMaximum_StopsAtFirstFailure(t *testing.T) {
	manager := NewManager(Config{})
	ran := recordingPhases(t, manager, allPhases, map[Level]bool{Full: true, Database: true})

	got := manager.EscalateToMaximum(context.Background())
	if got != Configuration {
		t.Fatalf("EscalateToMaximum() = %s, want configuration", got)
	}
	if last := (*ran)[len(*ran)-1]; last != Database {
		t.Errorf("last phase run = %s, want database (full must not run)", last)
	}
	if !manager.Reached(Site) || manager.Reached(Database) {
		t.Errorf("Reached() inconsistent with current level %s", manager.Current())
	}

	failure := manager.LastFailure()
	if failure == nil || failure.Level != Database {
		t.Fatalf("LastFailure() = %v, want a database failure", failure)
	}
	if !strings.Contains(failure.Error(), "unreachable database") {
		t.Errorf("failure message %q lost the phase error", failure.Error())
	}
}

func TestEscalateToMaximum_IdempotentAndMonotonic(t *testing.T) {
	manager := NewManager(Config{})
	ran := recordingPhases(t, manager, allPhases, nil)

	first := manager.EscalateToMaximum(context.Background())
	runs := len(*ran)
	second := manager.EscalateToMaximum(context.Background())

	if second < first {
		t.Fatalf("second escalation lowered the level: %s -> %s", first, second)
	}
	if len(*ran) != runs {
		t.Errorf("second escalation ran %d more phases, want none", len(*ran)-runs)
	}
	if manager.Attempts() != 1 {
		t.Errorf("Attempts() = %d, want 1 (the no-op call is not an attempt)", manager.Attempts())
	}
}

func TestEscalateToMaximum_RetryAfterFailureNeverLowersLevel(t *testing.T) {
	manager := NewManager(Config{})
	failing := map[Level]bool{Database: true}
	recordingPhases(t, manager, allPhases, failing)

	manager.EscalateToMaximum(context.Background())
	before := manager.Current()

	delete(failing, Database)
	after := manager.EscalateToMaximum(context.Background())
	if after < before {
		t.Fatalf("level went from %s to %s", before, after)
	}
	if after != Full {
		t.Errorf("retry reached %s, want full", after)
	}
	if manager.LastFailure() != nil {
		t.Errorf("LastFailure() = %v after the failed level succeeded", manager.LastFailure())
	}
}

func TestEscalate_SkipsLevelsWithoutPhases(t *testing.T) {
	manager := NewManager(Config{})
	recordingPhases(t, manager, []Level{Root, Database}, nil)

	if got := manager.EscalateToMaximum(context.Background()); got != Database {
		t.Fatalf("EscalateToMaximum() = %s, want database", got)
	}
	if manager.Reached(Full) {
		t.Error("no phase can establish full, so it must not be reached")
	}
	if !manager.Reached(Max) {
		t.Error("Reached(Max) should be true at the top registered level")
	}
}

func TestEscalate_NoPhasesStaysAtNone(t *testing.T) {
	manager := NewManager(Config{})
	if got := manager.EscalateToMaximum(context.Background()); got != None {
		t.Fatalf("EscalateToMaximum() = %s, want none", got)
	}
	if manager.Reached(Root) {
		t.Error("Reached(Root) with no phases")
	}
}

func TestEscalateTo_ReturnsPhaseError(t *testing.T) {
	manager := NewManager(Config{})
	recordingPhases(t, manager, allPhases, map[Level]bool{Configuration: true})

	if err := manager.EscalateTo(context.Background(), Site); err != nil {
		t.Fatalf("EscalateTo(Site) error: %v", err)
	}
	if manager.Current() != Site {
		t.Fatalf("Current() = %s, want site (EscalateTo must not overshoot)", manager.Current())
	}

	err := manager.EscalateTo(context.Background(), Full)
	var phaseErr *PhaseError
	if !errors.As(err, &phaseErr) {
		t.Fatalf("EscalateTo(Full) error = %v, want *PhaseError", err)
	}
	if phaseErr.Level != Configuration {
		t.Errorf("PhaseError.Level = %s, want configuration", phaseErr.Level)
	}

	if err := manager.EscalateTo(context.Background(), Max); err != nil {
		t.Errorf("EscalateTo(Max) should never fail, got %v", err)
	}
}

func TestEscalateTo_BeyondTopFails(t *testing.T) {
	manager := NewManager(Config{})
	recordingPhases(t, manager, []Level{Root}, nil)

	if err := manager.EscalateTo(context.Background(), Database); err == nil {
		t.Fatal("EscalateTo beyond the top registered phase should fail")
	}
}

func TestEscalate_CancelledContext(t *testing.T) {
	manager := NewManager(Config{})
	ran := recordingPhases(t, manager, allPhases, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := manager.EscalateToMaximum(ctx); got != None {
		t.Fatalf("EscalateToMaximum(cancelled) = %s, want none", got)
	}
	if len(*ran) != 0 {
		t.Errorf("phases ran despite cancelled context: %v", *ran)
	}
	if failure := manager.LastFailure(); failure == nil || !errors.Is(failure, context.Canceled) {
		t.Errorf("LastFailure() = %v, want context.Canceled", failure)
	}
}

func TestRegister_Rejections(t *testing.T) {
	manager := NewManager(Config{})
	noop := func(context.Context) error { return nil }

	if err := manager.Register(PhaseFunc{At: None, Run: noop}); err == nil {
		t.Error("registering at none should fail")
	}
	if err := manager.Register(PhaseFunc{At: Max, Run: noop}); err == nil {
		t.Error("registering at max should fail")
	}
	if err := manager.Register(PhaseFunc{At: Root, Run: noop}); err != nil {
		t.Fatalf("Register(Root) error: %v", err)
	}
	if err := manager.Register(PhaseFunc{At: Root, Run: noop}); err == nil {
		t.Error("registering twice at root should fail")
	}
}

func TestEscalate_LogsPhaseDurations(t *testing.T) {
	var output bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&output, &slog.HandlerOptions{Level: slog.LevelDebug}))
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	fake.SetStep(20 * time.Millisecond)

	manager := NewManager(Config{Logger: logger, Clock: fake})
	recordingPhases(t, manager, []Level{Root, Site}, map[Level]bool{Site: true})
	manager.EscalateToMaximum(context.Background())

	logged := output.String()
	for _, want := range []string{
		`msg="bootstrap phase finished" level=root duration=20ms`,
		`msg="bootstrap phase failed" level=site duration=20ms`,
	} {
		if !strings.Contains(logged, want) {
			t.Errorf("log output missing %q:\n%s", want, logged)
		}
	}
}

type fixedLocator struct{ root, uri string }

func (l fixedLocator) Root() string            { return l.root }
func (l fixedLocator) SelectURI(string) string { return l.uri }

func TestRootAndSelectURI(t *testing.T) {
	bare := NewManager(Config{})
	if bare.Root() != "" || bare.SelectURI("/tmp") != "default" {
		t.Errorf("manager without locator: Root()=%q SelectURI()=%q", bare.Root(), bare.SelectURI("/tmp"))
	}

	located := NewManager(Config{Locator: fixedLocator{root: "/srv/host", uri: "blog"}})
	if located.Root() != "/srv/host" || located.SelectURI("/srv/host/sites/blog") != "blog" {
		t.Errorf("Root()=%q SelectURI()=%q", located.Root(), located.SelectURI(""))
	}
}
