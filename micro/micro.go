// Package micro implements the worker-side session engine of the cryptic
// messaging fabric: endpoint registration and dispatch, tag-correlated
// outbound calls, and the blocking Run loop.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package micro

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cryptic-game/cryptic-go/cmn"
	"github.com/cryptic-game/cryptic-go/cmn/cos"
	"github.com/cryptic-game/cryptic-go/cmn/mono"
	"github.com/cryptic-game/cryptic-go/cmn/nlog"
	"github.com/cryptic-game/cryptic-go/db"
	"github.com/cryptic-game/cryptic-go/schema"
	"github.com/cryptic-game/cryptic-go/stats"
	"github.com/cryptic-game/cryptic-go/transport"
)

const (
	// outbound peer calls see no reply past this deadline
	peerCallTimeout = 10 * time.Second
	// broker-side user lookups are slower; give them more headroom
	lookupTimeout = 30 * time.Second

	// cap on concurrently running endpoint handlers
	maxWorkers = 1024
)

type (
	// Payload is the object carried in a frame's data field.
	Payload = map[string]any

	// PeerHandler answers a request originating from another worker.
	// A nil result is normalized to {}; an error is reported and replaced
	// by {} on the wire.
	PeerHandler func(data Payload, requestingMS string) (Payload, error)

	// UserHandler answers a user-originated request, under the same
	// normalization rules.
	UserHandler func(data Payload, userID string) (Payload, error)

	// MicroService is the engine facade: it binds the transport session,
	// the endpoint registry, and the correlation table, and exposes the
	// API used by worker authors. Endpoints are registered before Run;
	// everything else may be called from handlers (re-entrant calls go
	// through the same session).
	MicroService struct {
		name     string
		cfg      *cmn.Config
		sess     *transport.Session
		reg      registry
		await    awaitTable
		trk      *stats.Tracker
		database *db.Gateway
		workers  *semaphore.Weighted
		started  atomic.Bool
	}

	options struct {
		cfg     *cmn.Config
		host    string
		port    int
		hasAddr bool
	}

	Option func(*options)
)

// WithConfig bypasses the environment.
func WithConfig(cfg *cmn.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithServerAddress overrides SERVER_HOST/SERVER_PORT; the port is subject
// to the same range rule.
func WithServerAddress(host string, port int) Option {
	return func(o *options) { o.host, o.port, o.hasAddr = host, port, true }
}

// New builds a worker engine named name: loads configuration, initializes
// logging and telemetry, opens the database gateway, and prepares (but does
// not yet establish) the broker session.
func New(name string, opts ...Option) (*MicroService, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.cfg
	if cfg == nil {
		var err error
		if cfg, err = cmn.FromEnv(); err != nil {
			return nil, err
		}
	}
	if err := nlog.Setup(cfg.PathLogfile, name, cfg.DSN, cfg.Release); err != nil {
		return nil, err
	}
	gw, err := db.New(cfg)
	if err != nil {
		return nil, err
	}
	addr := cfg.ServerAddr()
	if o.hasAddr {
		if o.port < 0 || o.port > 65535 {
			return nil, cmn.ErrInvalidPort
		}
		addr = fmt.Sprintf("%s:%d", o.host, o.port)
	}
	trk := stats.NewTracker(name)
	ms := &MicroService{
		name:     name,
		cfg:      cfg,
		trk:      trk,
		database: gw,
		sess:     transport.NewSession(name, addr, trk),
		reg:      newRegistry(),
		await:    newAwaitTable(),
		workers:  semaphore.NewWeighted(maxWorkers),
	}
	return ms, nil
}

// RegisterPeerEndpoint binds handler to path for requests from other
// workers. Permitted only before Run; last write wins.
func (ms *MicroService) RegisterPeerEndpoint(path Path, handler PeerHandler) {
	if ms.started.Load() {
		nlog.Warningf("%s: ignoring registration of peer endpoint %s after start", ms.name, path)
		return
	}
	ms.reg.addPeer(path, handler)
}

// RegisterUserEndpoint binds handler to path for user requests. A non-nil
// fields map attaches a validation schema; every declared field is
// required. Permitted only before Run; last write wins.
func (ms *MicroService) RegisterUserEndpoint(path Path, fields map[string]schema.Field, handler UserHandler) {
	if ms.started.Load() {
		nlog.Warningf("%s: ignoring registration of user endpoint %s after start", ms.name, path)
		return
	}
	var s *schema.Structure
	if fields != nil {
		s = schema.New(path.String(), fields)
	}
	ms.reg.addUser(path, s, handler)
}

// DB returns the database gateway.
func (ms *MicroService) DB() *db.Gateway { return ms.database }

// Run connects to the broker, registers the worker, and serves inbound
// frames until Close. Blocking; the read loop recovers from every frame,
// parse, and transport error.
func (ms *MicroService) Run() {
	ms.started.Store(true)
	ms.sess.Connect()
	for !ms.sess.Closed() {
		for _, raw := range ms.sess.NextFrames() {
			ms.dispatch(raw)
		}
	}
	nlog.Flush()
}

// Close tears the session down; Run returns.
func (ms *MicroService) Close() { ms.sess.Close() }

// CallPeer issues a synchronous request to peer's endpoint and returns the
// reply's data. Times out after 10s.
func (ms *MicroService) CallPeer(peer string, path Path, data Payload) (Payload, error) {
	frame := Payload{"ms": peer, "data": data, "tag": "", "endpoint": []string(path)}
	return ms.call(frame, peerCallTimeout, "call to "+peer+path.String())
}

// LookupUser asks the broker about a user id; the reply carries at least a
// "valid" field.
func (ms *MicroService) LookupUser(userID string) (Payload, error) {
	frame := Payload{"action": "user", "data": Payload{"user": userID}, "tag": ""}
	return ms.call(frame, lookupTimeout, "user lookup")
}

// CheckUser reports whether the broker considers userID valid.
func (ms *MicroService) CheckUser(userID string) (bool, error) {
	reply, err := ms.LookupUser(userID)
	if err != nil {
		return false, err
	}
	valid, _ := reply["valid"].(bool)
	return valid, nil
}

// PushToUser sends data to a user, fire-and-forget: no tag, no reply.
func (ms *MicroService) PushToUser(userID string, data Payload) {
	ms.sess.Send(Payload{"action": "address", "user": userID, "data": data})
}

// call inserts the correlation entry, sends, and parks until delivery or
// deadline. Exactly one reply is consumed per call; the entry is removed
// exactly once, here.
func (ms *MicroService) call(frame Payload, timeout time.Duration, what string) (Payload, error) {
	tag := cos.GenUUID()
	frame["tag"] = tag
	ch := ms.await.add(tag)
	started := mono.NanoTime()
	ms.sess.Send(frame)
	select {
	case reply := <-ch:
		ms.await.remove(tag)
		ms.trk.CallDone(mono.Since(started))
		return reply, nil
	case <-time.After(timeout):
		ms.await.remove(tag)
		ms.trk.CallTimeout()
		return nil, cos.NewErrTimeout(what, int64(timeout/time.Second))
	}
}
