// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package target describes where a command runs.
//
// A [Target] is either local (this process works against a host root
// on this machine) or remote (the invocation is redispatched to a peer
// over SSH or a sitectl socket). Named targets come from alias files:
//
//	# ~/.sitectl/sites/shop.site.yml
//	prod:
//	  host: web1.example.com
//	  user: deploy
//	  root: /srv/shop
//	  uri: shop.example.com
//	stage:
//	  socket: /run/sitectl/stage.sock
//
// defines @shop.prod and @shop.stage. A file whose top level is itself
// a target (has root, host, uri, socket ...) defines a single alias
// named after the file.
//
// [Manager.Self] is the target the current invocation runs against. It
// defaults to a local target, so locality can always be answered
// without configuration.
package target
