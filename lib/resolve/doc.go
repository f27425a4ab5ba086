// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package resolve maps a command name to the command that runs it,
// bootstrapping the site only as far as the lookup needs.
//
// Resolution is two-phase. A name is first looked up in the registry
// as it stands, which costs nothing. On a miss the resolver checks the
// execution target: a remote target gets a proxy command that
// redispatches the invocation to the peer, and the local bootstrap is
// left untouched. For a local target the resolver escalates the
// bootstrap as far as it will go (later phases can contribute
// commands) and looks again. A second miss is classified by how far
// the bootstrap got, so the user learns which precondition to fix:
//
//	root not found         -> KindNotFoundNeedsRoot
//	database unreachable   -> KindNotFoundNeedsDatabase
//	full bootstrap failed  -> KindNotFoundNeedsFullBoot
//	fully bootstrapped     -> KindNotFound
//
// Every registry hit passes the obsolescence guard before it is
// returned: a retired command fails with its retirement message before
// any hook or handler runs. [Resolver.ResolveForHelp] and
// [Resolver.List] skip the guard so retired commands stay
// discoverable.
//
// [Resolver.Lookup] returns an explicit [Outcome]. [Resolver.Resolve]
// converts failures into *[Error] values for callers that prefer
// error returns.
package resolve
