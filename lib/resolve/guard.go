// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resolve

import "github.com/bureau-foundation/sitectl/lib/registry"

// CheckObsolete returns an *Error of KindObsolete carrying the
// descriptor's retirement message verbatim, or nil for commands that
// are not retired.
func CheckObsolete(descriptor *registry.Descriptor) error {
	if descriptor == nil || !descriptor.Obsolete {
		return nil
	}
	return &Error{
		Kind:    KindObsolete,
		Name:    descriptor.Name,
		Message: descriptor.ObsoleteMessage,
	}
}
