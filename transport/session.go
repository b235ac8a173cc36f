// Package transport provides the framed JSON-over-TCP session that connects
// a cryptic worker to the broker: frame extraction, registration, and
// automatic reconnect.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package transport

import (
	"net"
	"sync"
	"time"

	"github.com/cryptic-game/cryptic-go/cmn/cos"
	"github.com/cryptic-game/cryptic-go/cmn/debug"
	"github.com/cryptic-game/cryptic-go/cmn/nlog"
	"github.com/cryptic-game/cryptic-go/stats"
	jsoniter "github.com/json-iterator/go"
)

const dialRetry = 500 * time.Millisecond

type (
	// register control frame, sent first on every (re)established socket
	regMsg struct {
		Action string `json:"action"`
		Name   string `json:"name"`
	}

	// Session owns the worker's TCP connection to the broker. A single
	// reader goroutine calls NextFrames; any number of goroutines may call
	// Send concurrently - writes are serialized so frames never interleave
	// mid-object on the wire. Dial and register errors are never surfaced:
	// the session retries indefinitely with a fixed backoff.
	Session struct {
		name string
		addr string
		trk  *stats.Tracker

		mu   sync.RWMutex // guards conn pointer
		wmu  sync.Mutex   // serializes writes and reconnects
		conn net.Conn
		tie  string // connection epoch, for log correlation

		extr     Extractor
		rbuf     []byte
		lastConn net.Conn // reader side: detects epoch change, resets extractor

		closed bool
	}
)

func NewSession(name, addr string, trk *stats.Tracker) *Session {
	return &Session{
		name: name,
		addr: addr,
		trk:  trk,
		rbuf: make([]byte, MaxFrameSize),
	}
}

// Connect dials the broker, retrying every 500ms until the socket is
// established, then registers the worker. Returns only once registered.
func (s *Session) Connect() {
	conn := s.dial()
	s.wmu.Lock()
	conn = s.register(conn)
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.wmu.Unlock()
}

func (s *Session) dial() net.Conn {
	for {
		conn, err := net.Dial("tcp", s.addr)
		if err == nil {
			tie := cos.GenTie()
			s.mu.Lock()
			s.tie = tie
			s.mu.Unlock()
			nlog.Infof("%s: connected to %s [%s]", s.name, s.addr, tie)
			return conn
		}
		nlog.Debugf("%s: dial %s: %v - retrying", s.name, s.addr, err)
		time.Sleep(dialRetry)
	}
}

func (s *Session) epoch() string {
	s.mu.RLock()
	tie := s.tie
	s.mu.RUnlock()
	return tie
}

// register writes the registration frame directly on conn and returns the
// connection it registered on (a fresh one if conn died first); callers
// hold wmu.
func (s *Session) register(conn net.Conn) net.Conn {
	b, err := jsoniter.Marshal(regMsg{Action: "register", Name: s.name})
	debug.AssertNoErr(err)
	if _, err := conn.Write(b); err != nil {
		// socket died between dial and register; start over
		conn.Close()
		return s.register(s.dial())
	}
	s.trk.FrameOut(len(b))
	return conn
}

// Send serializes v as a single UTF-8 JSON frame and writes it. A
// serialization error is reported and the frame dropped; a socket error
// triggers reconnect (the frame is dropped - the broker sees either the
// whole object or nothing).
func (s *Session) Send(v any) {
	b, err := jsoniter.Marshal(v)
	if err != nil {
		nlog.Warningf("%s: invalid frame payload: %v", s.name, err)
		nlog.CaptureException(err, "data", v)
		return
	}
	s.wmu.Lock()
	conn := s.conn
	if conn == nil || s.closed {
		s.wmu.Unlock()
		return
	}
	_, err = conn.Write(b)
	s.wmu.Unlock()
	if err != nil {
		s.redial(conn)
		return
	}
	s.trk.FrameOut(len(b))
}

// NextFrames performs one bounded read and returns the frames it completed,
// possibly none. A zero-length read or socket error triggers reconnect;
// extraction errors are logged and the stream continues. Never returns an
// error: the reader loop recovers from every category.
func (s *Session) NextFrames() [][]byte {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil || s.Closed() {
		return nil
	}
	if conn != s.lastConn {
		// new connection epoch: discard partial frame state
		s.extr.Reset()
		s.lastConn = conn
	}
	n, rerr := conn.Read(s.rbuf)
	if n == 0 {
		if s.Closed() {
			return nil
		}
		nlog.Infof("%s: lost connection to broker [%s] - reconnecting", s.name, s.epoch())
		s.redial(conn)
		return nil
	}
	frames, err := s.extr.Feed(s.rbuf[:n])
	if err != nil {
		nlog.Warningf("%s: %v", s.name, err)
		nlog.CaptureException(err, "chunk", string(s.rbuf[:n]))
		s.trk.FrameDropped()
	}
	for _, f := range frames {
		s.trk.FrameIn(len(f))
	}
	if rerr != nil && !s.Closed() {
		// trailing bytes arrived together with the error (e.g. peer close)
		nlog.Infof("%s: lost connection to broker [%s] - reconnecting", s.name, s.epoch())
		s.redial(conn)
	}
	return frames
}

// redial replaces the failed connection. Exactly one caller performs the
// reconnect; others observe the already-swapped conn and return. Holding
// wmu across dial+register guarantees the next outbound frame is sent on
// the new socket, after its register frame.
func (s *Session) redial(failed net.Conn) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.conn != failed || s.closed {
		return
	}
	failed.Close()
	s.trk.Reconnect()
	conn := s.register(s.dial())
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	nlog.Infof("%s: reconnected [%s]", s.name, s.epoch())
}

func (s *Session) Closed() bool {
	s.mu.RLock()
	c := s.closed
	s.mu.RUnlock()
	return c
}

// Close tears the session down; subsequent Send/NextFrames calls are no-ops.
func (s *Session) Close() {
	s.wmu.Lock()
	s.mu.Lock()
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	s.wmu.Unlock()
	if conn != nil {
		conn.Close()
	}
}
