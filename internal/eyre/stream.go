package eyre

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/roach88/shipbot/internal/transport"
)

// errStreamEnded reports a clean EOF on the event stream.
var errStreamEnded = errors.New("event stream ended")

// ensureStream opens the channel's event stream once.
func (c *Client) ensureStream() error {
	c.mu.Lock()
	if c.streaming {
		c.mu.Unlock()
		return nil
	}
	if c.closed {
		c.mu.Unlock()
		return transport.ErrClosed
	}
	c.streaming = true
	c.mu.Unlock()

	resp, err := c.openStream(c.ctx)
	if err != nil {
		c.mu.Lock()
		c.streaming = false
		c.mu.Unlock()
		return fmt.Errorf("open event stream: %w", err)
	}
	go c.read(resp)
	return nil
}

// openStream issues the channel GET. After the first event it resumes
// from the last event id seen.
func (c *Client) openStream(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.channelURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.mu.Lock()
	if c.sawEvent {
		req.Header.Set("Last-Event-ID", strconv.FormatUint(c.lastEvent, 10))
	}
	c.mu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		drain(resp.Body)
		return nil, err
	}
	return resp, nil
}

// read consumes the event stream and reopens it whenever it ends, until
// the client is closed. Then it closes every queue.
func (c *Client) read(resp *http.Response) {
	defer close(c.done)

	for resp != nil {
		err := c.consume(resp)
		if c.ctx.Err() != nil {
			break
		}
		c.logger.Warn("event stream lost", "channel", c.channelID, "error", err)
		resp = c.reconnect()
	}

	c.logger.Debug("event stream closed", "channel", c.channelID)
	c.closeQueues(transport.ErrClosed)
}

func (c *Client) consume(resp *http.Response) error {
	defer resp.Body.Close()

	scanner := newSSEScanner(resp.Body)
	for scanner.Next() {
		c.dispatch(scanner.Event())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errStreamEnded
}

// reconnect reopens the event stream with exponential backoff. It returns
// nil once the client is closing.
func (c *Client) reconnect() *http.Response {
	wait := c.retryMin
	for attempt := 1; ; attempt++ {
		select {
		case <-c.ctx.Done():
			return nil
		case <-time.After(wait):
		}

		resp, err := c.resume(c.ctx)
		if err == nil {
			c.logger.Info("event stream reconnected", "channel", c.channelID, "attempt", attempt)
			return resp
		}
		if c.ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("reconnect failed",
			"channel", c.channelID,
			"attempt", attempt,
			"retry_in", min(wait*2, c.retryMax),
			"error", err)
		wait = min(wait*2, c.retryMax)
	}
}

// resume reattaches to the channel. When the ship refuses the channel (it
// timed out, or the session expired) the client logs in again and
// resubscribes every stream on a fresh channel.
func (c *Client) resume(ctx context.Context) (*http.Response, error) {
	c.mu.Lock()
	rebuild := c.rebuild
	c.mu.Unlock()

	if !rebuild {
		resp, err := c.openStream(ctx)
		var se *statusError
		if err == nil || !errors.As(err, &se) {
			return resp, err
		}
		c.logger.Warn("channel refused, rebuilding", "channel", c.channelID, "status", se.Code)
		c.mu.Lock()
		c.rebuild = true
		c.epoch++
		c.sawEvent = false
		c.mu.Unlock()
	}

	if err := c.rebuildChannel(ctx); err != nil {
		return nil, err
	}
	return c.openStream(ctx)
}

// rebuildChannel logs in again and resubscribes every stream in the order
// they were first opened.
func (c *Client) rebuildChannel(ctx context.Context) error {
	if err := c.Login(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID() < subs[j].ID() })

	for _, sub := range subs {
		if err := c.resubscribe(ctx, sub); err != nil {
			return fmt.Errorf("resubscribe %s: %w", sub.stream, err)
		}
	}

	c.mu.Lock()
	c.rebuild = false
	c.mu.Unlock()
	c.logger.Info("channel rebuilt", "channel", c.channelID, "subscriptions", len(subs))
	return nil
}

// resubscribe opens sub again under a new action id. The subscription
// handle and its buffered frames are kept.
func (c *Client) resubscribe(ctx context.Context, sub *subscription) error {
	ship, err := c.requireShip()
	if err != nil {
		return err
	}

	id := c.nextAction.Add(1)
	c.mu.Lock()
	delete(c.subs, sub.ID())
	sub.id.Store(id)
	c.subs[id] = sub
	c.mu.Unlock()

	return c.put(ctx, action{
		ID:     id,
		Action: "subscribe",
		Ship:   ship.Name(),
		App:    sub.stream.App,
		Path:   sub.stream.Path,
	})
}

// resubscribeAfterQuit retries resubscribe until it succeeds or the client
// closes. At most one retry loop runs per subscription.
func (c *Client) resubscribeAfterQuit(sub *subscription) {
	if !sub.resubscribing.CompareAndSwap(false, true) {
		return
	}
	defer sub.resubscribing.Store(false)

	wait := c.retryMin
	for {
		err := c.resubscribe(c.ctx, sub)
		if err == nil {
			c.logger.Info("resubscribed", "stream", sub.stream.String(), "subscription", sub.ID())
			return
		}
		if c.ctx.Err() != nil {
			return
		}
		c.logger.Warn("resubscribe failed", "stream", sub.stream.String(), "error", err)

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(wait):
		}
		wait = min(wait*2, c.retryMax)
	}
}

// dispatch routes one channel event.
//
// Diffs are queued on their subscription and acked when consumed. All
// other responses are acked here. Events at or below the last seen id
// are replays and are dropped.
func (c *Client) dispatch(ev sseEvent) {
	c.mu.Lock()
	if ev.HasID {
		if c.sawEvent && ev.ID <= c.lastEvent {
			c.mu.Unlock()
			return
		}
		c.lastEvent, c.sawEvent = ev.ID, true
	}
	epoch := c.epoch
	c.mu.Unlock()

	if !gjson.Valid(ev.Data) {
		c.logger.Warn("malformed channel event", "event_id", ev.ID)
		c.ackEvent(ev.ID)
		return
	}
	doc := gjson.Parse(ev.Data)
	id := doc.Get("id").Uint()
	response := doc.Get("response").String()

	c.mu.Lock()
	sub := c.subs[id]
	c.mu.Unlock()

	switch response {
	case "diff":
		if sub == nil {
			c.logger.Warn("diff for unknown subscription", "subscription", id, "event_id", ev.ID)
			c.ackEvent(ev.ID)
			return
		}
		frame := transport.Frame{
			ID:     ev.ID,
			Stream: sub.stream,
			Data:   []byte(doc.Get("json").Raw),
		}
		if !sub.queue.Enqueue(queuedFrame{Frame: frame, epoch: epoch}) {
			c.ackEvent(ev.ID)
		}
		return

	case "subscribe":
		if e := doc.Get("err"); e.Exists() && sub != nil {
			c.logger.Warn("subscription rejected",
				"stream", sub.stream.String(),
				"subscription", id,
				"error", e.String())
			sub.queue.Close(fmt.Errorf("subscription rejected: %s", e.String()))
		}

	case "quit":
		if sub != nil {
			c.logger.Warn("subscription quit, resubscribing", "stream", sub.stream.String(), "subscription", id)
			go c.resubscribeAfterQuit(sub)
		}

	case "poke":
		if e := doc.Get("err"); e.Exists() {
			c.logger.Warn("poke nacked", "action", id, "error", e.String())
		}

	default:
		c.logger.Debug("unhandled channel event", "response", response, "event_id", ev.ID)
	}
	c.ackEvent(ev.ID)
}

func (c *Client) ackEvent(eventID uint64) {
	if err := c.ack(c.ctx, eventID); err != nil && c.ctx.Err() == nil {
		c.logger.Warn("event ack failed", "event_id", eventID, "error", err)
	}
}

func (c *Client) closeQueues(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		sub.queue.Close(cause)
	}
}
