// Package micro implements the worker-side session engine of the cryptic
// messaging fabric: endpoint registration and dispatch, tag-correlated
// outbound calls, and the blocking Run loop.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package micro

import (
	"strings"

	"github.com/cryptic-game/cryptic-go/schema"
)

type (
	// Path addresses an endpoint: an ordered sequence of strings, compared
	// elementwise. User and peer paths are distinct namespaces.
	Path []string

	userEndpoint struct {
		handler UserHandler
		schema  *schema.Structure
	}

	// registry is write-once: all registration happens before Run starts,
	// lookups during dispatch are lock-free.
	registry struct {
		user map[string]userEndpoint
		peer map[string]PeerHandler
	}
)

func NewPath(parts ...string) Path { return Path(parts) }

// key is elementwise and unambiguous: a separator that cannot appear in
// meaningful path elements keeps ["a/b"] distinct from ["a","b"].
func (p Path) key() string { return strings.Join(p, "\x1f") }

func (p Path) String() string { return "/" + strings.Join(p, "/") }

func newRegistry() registry {
	return registry{
		user: make(map[string]userEndpoint),
		peer: make(map[string]PeerHandler),
	}
}

// last-write-wins within a single registrant process
func (r *registry) addUser(path Path, s *schema.Structure, h UserHandler) {
	r.user[path.key()] = userEndpoint{handler: h, schema: s}
}

func (r *registry) addPeer(path Path, h PeerHandler) {
	r.peer[path.key()] = h
}

func (r *registry) lookupUser(path Path) (userEndpoint, bool) {
	ep, ok := r.user[path.key()]
	return ep, ok
}

func (r *registry) lookupPeer(path Path) (PeerHandler, bool) {
	h, ok := r.peer[path.key()]
	return h, ok
}
