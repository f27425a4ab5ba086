// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock reads so that code which reports
// durations (bootstrap phase timing, redispatch latency) can be tested
// deterministically.
//
// Production code injects [Real]; tests inject [Fake] and move time
// with [FakeClock.Advance], or give it a step so that every Now call
// advances by a fixed amount.
package clock
