// Package micro implements the worker-side session engine of the cryptic
// messaging fabric.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package micro

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryKindsAreDistinctNamespaces(t *testing.T) {
	reg := newRegistry()
	reg.addPeer(NewPath("x"), func(Payload, string) (Payload, error) { return Payload{"kind": "peer"}, nil })
	reg.addUser(NewPath("x"), nil, func(Payload, string) (Payload, error) { return Payload{"kind": "user"}, nil })

	ph, ok := reg.lookupPeer(NewPath("x"))
	require.True(t, ok)
	ret, _ := ph(nil, "")
	require.Equal(t, "peer", ret["kind"])

	ue, ok := reg.lookupUser(NewPath("x"))
	require.True(t, ok)
	ret, _ = ue.handler(nil, "")
	require.Equal(t, "user", ret["kind"])
}

func TestRegistryLastWriteWins(t *testing.T) {
	reg := newRegistry()
	reg.addPeer(NewPath("a", "b"), func(Payload, string) (Payload, error) { return Payload{"v": 1}, nil })
	reg.addPeer(NewPath("a", "b"), func(Payload, string) (Payload, error) { return Payload{"v": 2}, nil })

	h, ok := reg.lookupPeer(NewPath("a", "b"))
	require.True(t, ok)
	ret, _ := h(nil, "")
	require.Equal(t, 2, ret["v"])
}

func TestRegistryPathEqualityIsElementwise(t *testing.T) {
	reg := newRegistry()
	reg.addPeer(NewPath("a", "b"), func(Payload, string) (Payload, error) { return nil, nil })

	_, ok := reg.lookupPeer(NewPath("a", "b"))
	require.True(t, ok)
	_, ok = reg.lookupPeer(NewPath("a/b"))
	require.False(t, ok, "a single element must not match a two-element path")
	_, ok = reg.lookupPeer(NewPath("a"))
	require.False(t, ok)
	_, ok = reg.lookupPeer(NewPath("a", "b", "c"))
	require.False(t, ok)
}
