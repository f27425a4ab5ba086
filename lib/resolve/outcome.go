// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"errors"
	"strings"

	"github.com/bureau-foundation/sitectl/lib/boot"
	"github.com/bureau-foundation/sitectl/lib/registry"
)

// Kind classifies a resolution outcome.
type Kind int

const (
	// KindFound: a registry command matched.
	KindFound Kind = iota

	// KindRemote: the name was not known locally and the target is
	// remote; the descriptor is a proxy that redispatches.
	KindRemote

	// KindNotFound: the name is empty, or absent even though nothing
	// more could be bootstrapped.
	KindNotFound

	// KindNotFoundNeedsRoot: absent, and no host root was found.
	KindNotFoundNeedsRoot

	// KindNotFoundNeedsDatabase: absent, and the site database could
	// not be queried.
	KindNotFoundNeedsDatabase

	// KindNotFoundNeedsFullBoot: absent, and the site reached its
	// database but did not fully bootstrap.
	KindNotFoundNeedsFullBoot

	// KindObsolete: a retired command matched.
	KindObsolete
)

var kindNames = [...]string{
	KindFound:                 "found",
	KindRemote:                "remote",
	KindNotFound:              "not-found",
	KindNotFoundNeedsRoot:     "not-found-needs-root",
	KindNotFoundNeedsDatabase: "not-found-needs-database",
	KindNotFoundNeedsFullBoot: "not-found-needs-full-boot",
	KindObsolete:              "obsolete",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// NotFound reports whether k is one of the not-found kinds.
func (k Kind) NotFound() bool {
	switch k {
	case KindNotFound, KindNotFoundNeedsRoot, KindNotFoundNeedsDatabase, KindNotFoundNeedsFullBoot:
		return true
	}
	return false
}

// Outcome is the result of looking up one name.
type Outcome struct {
	Kind Kind

	// Name is the name that was looked up.
	Name string

	// Descriptor is the matched command for KindFound and
	// KindObsolete, or the proxy for KindRemote.
	Descriptor *registry.Descriptor

	// Escalated reports whether the lookup bootstrapped further.
	Escalated bool

	// Reached is the bootstrap level after the lookup.
	Reached boot.Level

	// Message is the user-facing explanation for failure kinds.
	Message string

	// Suggestions are registered names close to Name.
	Suggestions []string
}

// OK reports whether the outcome carries a runnable descriptor.
func (o Outcome) OK() bool {
	return o.Kind == KindFound || o.Kind == KindRemote
}

// Err returns nil for runnable outcomes and an *Error otherwise. An
// empty name yields nil: there is nothing to report.
func (o Outcome) Err() error {
	if o.OK() || o.Name == "" {
		return nil
	}
	return &Error{Kind: o.Kind, Name: o.Name, Message: o.Message, Suggestions: o.Suggestions}
}

// Error is a failed resolution.
type Error struct {
	Kind        Kind
	Name        string
	Message     string
	Suggestions []string
}

func (e *Error) Error() string {
	if len(e.Suggestions) == 0 {
		return e.Message
	}
	if len(e.Suggestions) == 1 {
		return e.Message + "\n\nDid you mean this?\n    " + e.Suggestions[0]
	}
	return e.Message + "\n\nDid you mean one of these?\n    " + strings.Join(e.Suggestions, "\n    ")
}

// IsNotFound reports whether err is a not-found resolution error of
// any kind.
func IsNotFound(err error) bool {
	var resolveErr *Error
	return errors.As(err, &resolveErr) && resolveErr.Kind.NotFound()
}

// IsObsolete reports whether err is a retired-command error.
func IsObsolete(err error) bool {
	var resolveErr *Error
	return errors.As(err, &resolveErr) && resolveErr.Kind == KindObsolete
}
