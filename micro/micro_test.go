// Package micro implements the worker-side session engine of the cryptic
// messaging fabric.
/*
 * Copyright (c) 2019-2026, The Cryptic Game Project. All rights reserved.
 */
package micro_test

import (
	"errors"
	"net"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/cryptic-game/cryptic-go/cmn"
	"github.com/cryptic-game/cryptic-go/cmn/cos"
	"github.com/cryptic-game/cryptic-go/micro"
	"github.com/cryptic-game/cryptic-go/schema"
	"github.com/cryptic-game/cryptic-go/transport"
)

const testTimeout = 5 * time.Second

// broker fakes the central server: one listener, frames in and out over the
// currently accepted connection.
type broker struct {
	t      *testing.T
	ln     net.Listener
	conn   net.Conn
	frames chan map[string]any
}

func newBroker(t *testing.T) *broker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return &broker{t: t, ln: ln, frames: make(chan map[string]any, 16)}
}

func (b *broker) port() int { return b.ln.Addr().(*net.TCPAddr).Port }

// accept takes the next worker connection and pumps its frames.
func (b *broker) accept() {
	b.t.Helper()
	conn, err := b.ln.Accept()
	require.NoError(b.t, err)
	b.conn = conn
	go func() {
		var (
			x   transport.Extractor
			buf = make([]byte, transport.MaxFrameSize)
		)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				raw, ferr := x.Feed(buf[:n])
				if ferr != nil {
					return
				}
				for _, r := range raw {
					var frame map[string]any
					if jsoniter.Unmarshal(r, &frame) == nil {
						b.frames <- frame
					}
				}
			}
			if err != nil {
				return
			}
		}
	}()
}

func (b *broker) next() map[string]any {
	b.t.Helper()
	select {
	case f := <-b.frames:
		return f
	case <-time.After(testTimeout):
		b.t.Fatal("timed out waiting for a frame from the worker")
		return nil
	}
}

func (b *broker) send(raw string) {
	b.t.Helper()
	_, err := b.conn.Write([]byte(raw))
	require.NoError(b.t, err)
}

func testConfig(t *testing.T) *cmn.Config {
	return &cmn.Config{
		Mode:         cmn.ModeDebug,
		DBMS:         cmn.DBMSSQLite,
		DataLocation: t.TempDir(),
		SQLiteFile:   "test.db",
		ServerHost:   "127.0.0.1",
		ServerPort:   1,
	}
}

// startWorker builds the engine, runs it, and consumes the register frame.
func startWorker(t *testing.T, b *broker, setup func(*micro.MicroService)) *micro.MicroService {
	t.Helper()
	ms, err := micro.New("testms",
		micro.WithConfig(testConfig(t)),
		micro.WithServerAddress("127.0.0.1", b.port()))
	require.NoError(t, err)
	if setup != nil {
		setup(ms)
	}
	go ms.Run()
	t.Cleanup(ms.Close)

	b.accept()
	reg := b.next()
	require.Equal(t, "register", reg["action"])
	require.Equal(t, "testms", reg["name"])
	return ms
}

func TestPeerDispatchMiss(t *testing.T) {
	b := newBroker(t)
	startWorker(t, b, nil)

	b.send(`{"ms":"auth","endpoint":["x"],"tag":"T1","data":{}}`)
	reply := b.next()
	require.Equal(t, "T1", reply["tag"])
	require.Equal(t, "auth", reply["ms"])
	require.Equal(t, map[string]any{"error": "unknown_endpoint"}, reply["data"])
	require.NotContains(t, reply, "user")
}

func TestUserDispatchSuccess(t *testing.T) {
	b := newBroker(t)
	startWorker(t, b, func(ms *micro.MicroService) {
		ms.RegisterUserEndpoint(micro.NewPath("ping"), map[string]schema.Field{
			"n": schema.Integer(),
		}, func(data micro.Payload, userID string) (micro.Payload, error) {
			return micro.Payload{"echo": data["n"]}, nil
		})
	})

	b.send(`{"user":"U","endpoint":["ping"],"tag":"T2","data":{"n":7}}`)
	reply := b.next()
	require.Equal(t, "T2", reply["tag"])
	require.Equal(t, map[string]any{"echo": float64(7)}, reply["data"])
	require.NotContains(t, reply, "user")
	require.NotContains(t, reply, "endpoint")
}

func TestUserSchemaRejection(t *testing.T) {
	b := newBroker(t)
	startWorker(t, b, func(ms *micro.MicroService) {
		ms.RegisterUserEndpoint(micro.NewPath("ping"), map[string]schema.Field{
			"n": schema.Integer(),
		}, func(data micro.Payload, userID string) (micro.Payload, error) {
			return micro.Payload{"echo": data["n"]}, nil
		})
	})

	b.send(`{"user":"U","endpoint":["ping"],"tag":"T3","data":{}}`)
	reply := b.next()
	require.Equal(t, "T3", reply["tag"])
	require.Equal(t, map[string]any{"error": "invalid_input_data"}, reply["data"])
}

func TestUserDispatchMissEchoesUser(t *testing.T) {
	b := newBroker(t)
	startWorker(t, b, nil)

	b.send(`{"user":"U","endpoint":["nope"],"tag":"T4","data":{}}`)
	reply := b.next()
	require.Equal(t, "T4", reply["tag"])
	require.Equal(t, "U", reply["user"])
	require.Equal(t, map[string]any{"error": "unknown_endpoint"}, reply["data"])
}

// a handler that issues a synchronous peer call over the same session
func TestPeerCallRoundTrip(t *testing.T) {
	b := newBroker(t)
	var ms *micro.MicroService
	ms = startWorker(t, b, func(m *micro.MicroService) {
		ms = m
		m.RegisterPeerEndpoint(micro.NewPath("a"), func(data micro.Payload, requester string) (micro.Payload, error) {
			return ms.CallPeer("other", micro.NewPath("b"), micro.Payload{"q": 1})
		})
	})

	b.send(`{"ms":"auth","endpoint":["a"],"tag":"TA","data":{}}`)

	// the engine emits the outbound peer call
	call := b.next()
	require.Equal(t, "other", call["ms"])
	require.Equal(t, []any{"b"}, call["endpoint"])
	require.Equal(t, map[string]any{"q": float64(1)}, call["data"])
	tag, ok := call["tag"].(string)
	require.True(t, ok)
	require.True(t, cos.IsValidUUID(tag))

	// feed the matching reply; the parked handler resumes
	raw, err := jsoniter.MarshalToString(map[string]any{"tag": tag, "data": map[string]any{"ok": true}})
	require.NoError(t, err)
	b.send(raw)

	// the handler's own reply carries the peer call's result
	reply := b.next()
	require.Equal(t, "TA", reply["tag"])
	require.Equal(t, "auth", reply["ms"])
	require.Equal(t, []any{}, reply["endpoint"])
	require.Equal(t, map[string]any{"ok": true}, reply["data"])
}

func TestHandlerErrorYieldsEmptyReply(t *testing.T) {
	b := newBroker(t)
	startWorker(t, b, func(ms *micro.MicroService) {
		ms.RegisterUserEndpoint(micro.NewPath("boom"), nil, func(micro.Payload, string) (micro.Payload, error) {
			return nil, errors.New("kaput")
		})
		ms.RegisterPeerEndpoint(micro.NewPath("panic"), func(micro.Payload, string) (micro.Payload, error) {
			panic("kaput")
		})
	})

	b.send(`{"user":"U","endpoint":["boom"],"tag":"T5","data":{}}`)
	reply := b.next()
	require.Equal(t, "T5", reply["tag"])
	require.Equal(t, map[string]any{}, reply["data"])

	b.send(`{"ms":"auth","endpoint":["panic"],"tag":"T6","data":{}}`)
	reply = b.next()
	require.Equal(t, "T6", reply["tag"])
	require.Equal(t, map[string]any{}, reply["data"])
}

func TestNilHandlerReturnNormalizedToEmpty(t *testing.T) {
	b := newBroker(t)
	startWorker(t, b, func(ms *micro.MicroService) {
		ms.RegisterPeerEndpoint(micro.NewPath("quiet"), func(micro.Payload, string) (micro.Payload, error) {
			return nil, nil
		})
	})

	b.send(`{"ms":"auth","endpoint":["quiet"],"tag":"T7","data":{}}`)
	reply := b.next()
	require.Equal(t, "T7", reply["tag"])
	require.Equal(t, map[string]any{}, reply["data"])
}

// malformed frame carrying both ms and user: the peer branch wins
func TestMSWinsOverUser(t *testing.T) {
	b := newBroker(t)
	startWorker(t, b, func(ms *micro.MicroService) {
		ms.RegisterUserEndpoint(micro.NewPath("both"), nil, func(micro.Payload, string) (micro.Payload, error) {
			return micro.Payload{"served": "user"}, nil
		})
	})

	// only a user endpoint exists; the peer branch misses and echoes ms
	b.send(`{"ms":"auth","user":"U","endpoint":["both"],"tag":"T8","data":{}}`)
	reply := b.next()
	require.Equal(t, "T8", reply["tag"])
	require.Equal(t, "auth", reply["ms"])
	require.Equal(t, map[string]any{"error": "unknown_endpoint"}, reply["data"])
}

func TestMalformedTagDropped(t *testing.T) {
	b := newBroker(t)
	startWorker(t, b, func(ms *micro.MicroService) {
		ms.RegisterPeerEndpoint(micro.NewPath("ok"), func(micro.Payload, string) (micro.Payload, error) {
			return micro.Payload{"fine": true}, nil
		})
	})

	// non-string tag and non-object data: logged and dropped, stream continues
	b.send(`{"ms":"auth","endpoint":["ok"],"tag":1,"data":{}}`)
	b.send(`{"ms":"auth","endpoint":["ok"],"tag":"T9","data":[]}`)
	b.send(`{"ms":"auth","endpoint":["ok"],"tag":"T10","data":{}}`)
	reply := b.next()
	require.Equal(t, "T10", reply["tag"])
	require.Equal(t, map[string]any{"fine": true}, reply["data"])
}

func TestPushToUser(t *testing.T) {
	b := newBroker(t)
	ms := startWorker(t, b, nil)

	ms.PushToUser("U1", micro.Payload{"note": "hi"})
	frame := b.next()
	require.Equal(t, "address", frame["action"])
	require.Equal(t, "U1", frame["user"])
	require.Equal(t, map[string]any{"note": "hi"}, frame["data"])
	require.NotContains(t, frame, "tag")
}

func TestLookupAndCheckUser(t *testing.T) {
	b := newBroker(t)
	ms := startWorker(t, b, nil)

	type result struct {
		valid bool
		err   error
	}
	done := make(chan result, 1)
	go func() {
		valid, err := ms.CheckUser("U2")
		done <- result{valid, err}
	}()

	lookup := b.next()
	require.Equal(t, "user", lookup["action"])
	require.Equal(t, map[string]any{"user": "U2"}, lookup["data"])
	tag, ok := lookup["tag"].(string)
	require.True(t, ok)

	raw, err := jsoniter.MarshalToString(map[string]any{"tag": tag, "data": map[string]any{"valid": true}})
	require.NoError(t, err)
	b.send(raw)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		require.True(t, res.valid)
	case <-time.After(testTimeout):
		t.Fatal("CheckUser did not return")
	}
}

func TestPreconditions(t *testing.T) {
	handler := micro.WithPreconditions(
		func(data micro.Payload, userID string) (micro.Payload, error) {
			return micro.Payload{"granted": true}, nil
		},
		func(data micro.Payload, _ string) error {
			if _, ok := data["token"]; !ok {
				return micro.Abort(micro.Payload{"error": "missing_token"})
			}
			return nil
		},
	)

	ret, err := handler(micro.Payload{}, "U")
	require.NoError(t, err)
	require.Equal(t, micro.Payload{"error": "missing_token"}, ret)

	ret, err = handler(micro.Payload{"token": "x"}, "U")
	require.NoError(t, err)
	require.Equal(t, micro.Payload{"granted": true}, ret)
}
