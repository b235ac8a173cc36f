// Package transport provides the framed JSON-over-TCP session that connects
// a cryptic worker to the broker: frame extraction, registration, and
// automatic reconnect.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package transport

import (
	"fmt"
)

// MaxFrameSize limits a single top-level JSON object on the wire; it also
// bounds the session's read chunks.
const MaxFrameSize = 4096

type (
	ErrFrameTooLong struct {
		size int
	}
	ErrFrameCorrupted struct {
		pos int
		b   byte
	}

	scanMode int

	// Extractor turns a byte stream into a sequence of complete top-level
	// JSON objects. It does not interpret values - it only locates object
	// boundaries; parsing happens downstream.
	Extractor struct {
		buf      []byte
		depth    int
		inString bool
		escaped  bool // carried across chunks - a backslash run may span a read boundary
		mode     scanMode
	}
)

const (
	modeIdle scanMode = iota
	modeScanning
)

func (e *ErrFrameTooLong) Error() string {
	return fmt.Sprintf("JSON object length exceeds %d bytes (got %d so far)", MaxFrameSize, e.size)
}

func (e *ErrFrameCorrupted) Error() string {
	return fmt.Sprintf("invalid byte %q outside JSON object at position %d", e.b, e.pos)
}

// Feed scans chunk and returns the objects completed by it, in wire order
// and byte-identical (inter-object whitespace is skipped). State persists
// across calls, so an object may span any number of chunks.
//
// The size cap is enforced at the start of the call: a carried-over
// accumulator above MaxFrameSize resets the extractor and returns
// ErrFrameTooLong. A non-whitespace byte between objects resets the
// extractor and returns ErrFrameCorrupted together with any objects
// completed earlier in the same chunk. Neither error is fatal to the
// stream: the extractor is idle afterwards and the caller keeps feeding.
func (x *Extractor) Feed(chunk []byte) (frames [][]byte, err error) {
	if len(x.buf) > MaxFrameSize {
		size := len(x.buf)
		x.Reset()
		return nil, &ErrFrameTooLong{size}
	}
	for pos, b := range chunk {
		if x.mode == modeScanning {
			x.buf = append(x.buf, b)
			x.scan(b)
			if x.depth == 0 {
				frames = append(frames, x.buf)
				x.Reset()
			}
			continue
		}
		switch b {
		case '{':
			x.mode = modeScanning
			x.depth = 1
			x.buf = append(x.buf, b)
		case ' ', '\t', '\n', '\r':
			// inter-frame whitespace
		default:
			x.Reset()
			return frames, &ErrFrameCorrupted{pos: pos, b: b}
		}
	}
	return frames, nil
}

func (x *Extractor) scan(b byte) {
	if x.inString {
		switch {
		case x.escaped:
			x.escaped = false
		case b == '\\':
			x.escaped = true
		case b == '"':
			x.inString = false
		}
		return
	}
	switch b {
	case '{':
		x.depth++
	case '}':
		x.depth--
	case '"':
		x.inString = true
	}
}

// Reset returns the extractor to idle; pending partial state is discarded.
func (x *Extractor) Reset() {
	x.buf = nil
	x.depth = 0
	x.inString = false
	x.escaped = false
	x.mode = modeIdle
}
