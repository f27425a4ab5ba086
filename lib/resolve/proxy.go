// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/sitectl/lib/registry"
	"github.com/bureau-foundation/sitectl/lib/target"
)

// Redispatcher delivers an invocation to a remote target and relays
// its output. A non-zero remote exit status is returned as an error
// that implements ExitCode() int.
type Redispatcher interface {
	Redispatch(ctx context.Context, remote target.Target, name string, invocation *registry.Invocation) error
}

// RemoteProxy returns a descriptor that redispatches name to remote.
// The proxy is never registered and never retired.
func RemoteProxy(name string, remote target.Target, redispatcher Redispatcher) *registry.Descriptor {
	return &registry.Descriptor{
		Name:        name,
		Description: fmt.Sprintf("Run %s on %s.", name, remote),
		Identity:    registry.Identity("remote/" + remote.String()),
		Source:      remote.String(),
		Handler: registry.HandlerFunc(func(ctx context.Context, invocation *registry.Invocation) error {
			if redispatcher == nil {
				return fmt.Errorf("cannot run %s on %s: no redispatch transport is configured", name, remote)
			}
			return redispatcher.Redispatch(ctx, remote, name, invocation)
		}),
	}
}

// IsRemoteProxy reports whether descriptor was built by RemoteProxy.
func IsRemoteProxy(descriptor *registry.Descriptor) bool {
	return descriptor != nil && strings.HasPrefix(string(descriptor.Identity), "remote/")
}
