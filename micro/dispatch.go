// Package micro implements the worker-side session engine of the cryptic
// messaging fabric.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package micro

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/cryptic-game/cryptic-go/cmn/nlog"
)

const (
	errUnknownEndpoint = "unknown_endpoint"
	errInvalidInput    = "invalid_input_data"
)

// dispatch parses one extracted frame and routes it: replies resolve the
// awaiting caller inline; requests run their handler on a fresh worker.
// The caller (the read loop) never blocks on handler work.
func (ms *MicroService) dispatch(raw []byte) {
	var frame map[string]any
	if err := jsoniter.Unmarshal(raw, &frame); err != nil {
		nlog.Debugf("%s: unparsable frame: %s", ms.name, raw)
		nlog.CaptureException(err, "data", string(raw))
		ms.trk.FrameDropped()
		return
	}

	tag, tagOK := frame["tag"].(string)
	data, dataOK := frame["data"].(map[string]any)
	if !tagOK || !dataOK {
		nlog.Warningf("%s: got an unknown request: %s", ms.name, raw)
		ms.trk.FrameDropped()
		return
	}

	var (
		ep, epOK        = toPath(frame["endpoint"])
		requester, isMS = frame["ms"].(string)
		userID, isUser  = frame["user"].(string)
	)
	// a frame is a request only if it carries a non-empty endpoint to
	// dispatch; everything else is a reply candidate
	if !epOK || len(ep) == 0 || (!isMS && !isUser) {
		if ms.await.deliver(tag, data) {
			return
		}
		if !isMS && !isUser && !epOK {
			nlog.Warningf("%s: got an unknown request: %s", ms.name, raw)
		} else {
			// late reply - its caller timed out and removed the tag
			nlog.Debugf("%s: discarding reply with no awaiting caller: tag %s", ms.name, tag)
		}
		ms.trk.FrameDropped()
		return
	}

	// ms wins over user on malformed frames carrying both
	go func() {
		if err := ms.workers.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer ms.workers.Release(1)
		if isMS {
			ms.servePeer(tag, requester, ep, data)
		} else {
			ms.serveUser(tag, userID, ep, data)
		}
	}()
}

func (ms *MicroService) servePeer(tag, requester string, ep Path, data Payload) {
	handler, ok := ms.reg.lookupPeer(ep)
	if !ok {
		nlog.Debugf("%s: (microservice requested): %s endpoint not found", ms.name, ep)
		ms.sess.Send(Payload{"tag": tag, "ms": requester, "data": Payload{"error": errUnknownEndpoint}})
		return
	}
	ret := ms.invoke(ep, data, func() (Payload, error) {
		return handler(data, requester)
	})
	ms.sess.Send(Payload{"ms": requester, "endpoint": []string{}, "tag": tag, "data": ret})
}

func (ms *MicroService) serveUser(tag, userID string, ep Path, data Payload) {
	endpoint, ok := ms.reg.lookupUser(ep)
	if !ok {
		nlog.Debugf("%s: (user requested): %s endpoint not found", ms.name, ep)
		ms.sess.Send(Payload{"tag": tag, "user": userID, "data": Payload{"error": errUnknownEndpoint}})
		return
	}
	if endpoint.schema != nil {
		if err := endpoint.schema.Validate(data); err != nil {
			nlog.Debugf("%s: invalid input data: %v", ms.name, err)
			ms.sess.Send(Payload{"tag": tag, "data": Payload{"error": errInvalidInput}})
			return
		}
	}
	ret := ms.invoke(ep, data, func() (Payload, error) {
		return endpoint.handler(data, userID)
	})
	ms.sess.Send(Payload{"tag": tag, "data": ret})
}

// invoke runs an endpoint handler inside a per-request database scope,
// released on all exit paths. A handler error or panic is reported with
// endpoint and frame context and replaced by an empty reply; a nil result
// is normalized to {}.
func (ms *MicroService) invoke(ep Path, data Payload, run func() (Payload, error)) (ret Payload) {
	sess := ms.database.Session()
	defer ms.database.Release(sess)
	defer func() {
		if r := recover(); r != nil {
			ms.trk.HandlerFailure()
			nlog.CaptureException(fmt.Errorf("handler panic: %v", r), "endpoint", ep.String(), "data", data)
			ret = Payload{}
		}
	}()
	out, err := run()
	if err != nil {
		ms.trk.HandlerFailure()
		nlog.CaptureException(err, "endpoint", ep.String(), "data", data)
		return Payload{}
	}
	if out == nil {
		return Payload{}
	}
	return out
}

// toPath converts a frame's endpoint field. Reports presence; a field that
// is absent or not a sequence of strings yields (nil, false).
func toPath(v any) (Path, bool) {
	if v == nil {
		return nil, false
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	p := make(Path, 0, len(raw))
	for _, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		p = append(p, s)
	}
	return p, true
}
