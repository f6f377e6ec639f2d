package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/roach88/shipbot/internal/transport"
	"github.com/roach88/shipbot/internal/urbit"
)

// Call is one request a FakeTransport received. Poll calls are not recorded.
type Call struct {
	Op       transport.Op
	Stream   transport.Stream
	App      string
	Mark     string
	Resource urbit.Resource
	FrameID  uint64
	Flags    transport.JoinFlags
	Message  urbit.Message
	// Payload is the poke payload marshaled to JSON.
	Payload json.RawMessage
	// Err is the error returned to the caller, if any.
	Err error
}

// FakeTransport is an in-memory transport.Transport.
//
// Frames are queued per stream with Push and handed out by Poll in FIFO
// order. Frame ids are assigned from one counter across all streams, like
// the event ids of a real channel. Every non-poll call is appended to an
// ordered log; failures can be injected per operation.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeTransport struct {
	mu      sync.Mutex
	nextID  uint64
	nextSub uint64
	queues  map[transport.Stream][]transport.Frame
	subs    map[transport.Stream]*fakeSubscription
	calls   []Call
	fail    map[transport.Op]error
}

type fakeSubscription struct {
	id     uint64
	stream transport.Stream
	owner  *FakeTransport
}

func (s *fakeSubscription) Stream() transport.Stream { return s.stream }
func (s *fakeSubscription) ID() uint64               { return s.id }

// NewFakeTransport returns an empty fake.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		queues: make(map[transport.Stream][]transport.Frame),
		subs:   make(map[transport.Stream]*fakeSubscription),
		fail:   make(map[transport.Op]error),
	}
}

// Push queues a frame on stream and returns its id.
func (f *FakeTransport) Push(stream transport.Stream, data string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.queues[stream] = append(f.queues[stream], transport.Frame{
		ID:     f.nextID,
		Stream: stream,
		Data:   []byte(data),
	})
	return f.nextID
}

// Pending returns the number of queued frames on stream.
func (f *FakeTransport) Pending(stream transport.Stream) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queues[stream])
}

// FailOn makes every later call of op return err wrapped in a
// *transport.Error. A nil err clears the failure.
func (f *FakeTransport) FailOn(op transport.Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// Calls returns a copy of the call log.
func (f *FakeTransport) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsOf returns the logged calls of one operation.
func (f *FakeTransport) CallsOf(op transport.Op) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the call log. Queued frames and subscriptions are kept.
func (f *FakeTransport) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// failure returns the injected error for op, wrapped. Caller holds f.mu.
func (f *FakeTransport) failure(op transport.Op, target string) error {
	if err, ok := f.fail[op]; ok {
		return transport.NewError(op, target, err)
	}
	return nil
}

// Subscribe implements transport.Transport. Subscribing twice to the same
// stream is an error.
func (f *FakeTransport) Subscribe(ctx context.Context, stream transport.Stream) (transport.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.failure(transport.OpSubscribe, stream.String())
	if err == nil {
		if _, dup := f.subs[stream]; dup {
			err = transport.NewError(transport.OpSubscribe, stream.String(), fmt.Errorf("already subscribed"))
		}
	}
	f.calls = append(f.calls, Call{Op: transport.OpSubscribe, Stream: stream, Err: err})
	if err != nil {
		return nil, err
	}

	f.nextSub++
	sub := &fakeSubscription{id: f.nextSub, stream: stream, owner: f}
	f.subs[stream] = sub
	return sub, nil
}

// Poll implements transport.Transport.
func (f *FakeTransport) Poll(ctx context.Context, sub transport.Subscription) (transport.Frame, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkSub(transport.OpPoll, sub); err != nil {
		return transport.Frame{}, false, err
	}
	stream := sub.Stream()
	if err := f.failure(transport.OpPoll, stream.String()); err != nil {
		return transport.Frame{}, false, err
	}

	q := f.queues[stream]
	if len(q) == 0 {
		return transport.Frame{}, false, nil
	}
	frame := q[0]
	f.queues[stream] = q[1:]
	return frame, true, nil
}

// Poke implements transport.Transport.
func (f *FakeTransport) Poke(ctx context.Context, app, mark string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.Marshal(payload)
	if err != nil {
		err = transport.NewError(transport.OpPoke, app, err)
	} else {
		err = f.failure(transport.OpPoke, app)
	}
	f.calls = append(f.calls, Call{Op: transport.OpPoke, App: app, Mark: mark, Payload: raw, Err: err})
	return err
}

// Join implements transport.Transport.
func (f *FakeTransport) Join(ctx context.Context, resource urbit.Resource, flags transport.JoinFlags) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.failure(transport.OpJoin, resource.String())
	f.calls = append(f.calls, Call{Op: transport.OpJoin, Resource: resource, Flags: flags, Err: err})
	return err
}

// Ack implements transport.Transport.
func (f *FakeTransport) Ack(ctx context.Context, sub transport.Subscription, frameID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.checkSub(transport.OpAck, sub)
	var stream transport.Stream
	if err == nil {
		stream = sub.Stream()
		err = f.failure(transport.OpAck, stream.String())
	}
	f.calls = append(f.calls, Call{Op: transport.OpAck, Stream: stream, FrameID: frameID, Err: err})
	return err
}

// PostMessage implements transport.Transport.
func (f *FakeTransport) PostMessage(ctx context.Context, resource urbit.Resource, msg urbit.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := f.failure(transport.OpPost, resource.String())
	f.calls = append(f.calls, Call{Op: transport.OpPost, Resource: resource, Message: msg, Err: err})
	return err
}

// checkSub rejects subscriptions this fake did not hand out. Caller holds f.mu.
func (f *FakeTransport) checkSub(op transport.Op, sub transport.Subscription) error {
	fs, ok := sub.(*fakeSubscription)
	if !ok || fs.owner != f || f.subs[fs.stream] != fs {
		return transport.NewError(op, "", fmt.Errorf("unknown subscription"))
	}
	return nil
}

var _ transport.Transport = (*FakeTransport)(nil)
