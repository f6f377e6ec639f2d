package eyre

import (
	"sync"

	"github.com/roach88/shipbot/internal/transport"
)

// queuedFrame is a frame tagged with the channel epoch it arrived in.
// Event ids restart when the channel is rebuilt, so an ack is only valid
// within the frame's own epoch.
type queuedFrame struct {
	transport.Frame
	epoch uint64
}

// frameQueue is a thread-safe FIFO of frames for one subscription.
//
// The SSE reader goroutine enqueues; Poll dequeues without blocking. The
// queue is unbounded: a slow dispatcher never stalls the event stream.
type frameQueue struct {
	mu     sync.Mutex
	frames []queuedFrame
	closed bool
	err    error
}

func newFrameQueue() *frameQueue {
	return &frameQueue{frames: make([]queuedFrame, 0, 16)}
}

// Enqueue adds a frame to the back of the queue.
// Returns false if the queue is closed.
func (q *frameQueue) Enqueue(f queuedFrame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.frames = append(q.frames, f)
	return true
}

// TryDequeue removes the front frame without blocking.
//
// Once the queue is closed and drained it returns the close error.
func (q *frameQueue) TryDequeue() (queuedFrame, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		if q.closed {
			return queuedFrame{}, false, q.err
		}
		return queuedFrame{}, false, nil
	}

	f := q.frames[0]
	// Release the payload for GC.
	q.frames[0] = queuedFrame{}
	if len(q.frames) == 1 {
		q.frames = q.frames[:0]
	} else {
		q.frames = q.frames[1:]
	}
	return f, true, nil
}

// Len returns the current queue length.
func (q *frameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Close stops accepting frames. Frames already queued can still be
// dequeued; after that TryDequeue returns err.
func (q *frameQueue) Close(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	if err == nil {
		err = transport.ErrClosed
	}
	q.err = err
}
