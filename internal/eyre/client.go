package eyre

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/roach88/shipbot/internal/transport"
	"github.com/roach88/shipbot/internal/urbit"
)

// authCookiePrefix prefixes the session cookie name; the rest is the ship.
const authCookiePrefix = "urbauth-"

// Reconnect backoff bounds.
const (
	defaultRetryMin = time.Second
	defaultRetryMax = 30 * time.Second
)

// HoldFunc reports whether a frame of a manual-ack stream waits for an
// explicit Ack. Frames it lets go are acked by Poll.
type HoldFunc func(data []byte) bool

// HoldAll holds every frame.
func HoldAll([]byte) bool { return true }

// HoldInvites holds invite-store updates that carry a new invite. The
// dispatcher acks those after accepting them; every other update is
// housekeeping and is acked on Poll.
func HoldInvites(data []byte) bool {
	return gjson.GetBytes(data, "invite-update.invite").IsObject()
}

// Client is a transport.Transport backed by one Eyre channel.
//
// Thread-safety: all methods are safe for concurrent use. Frames are
// delivered by a single reader goroutine started on the first Subscribe.
// The reader reopens the stream when it drops, and rebuilds the channel
// when the ship no longer knows it. Subscription handles survive both.
type Client struct {
	base      *url.URL
	code      string
	http      *http.Client
	logger    *slog.Logger
	channelID string
	now       func() time.Time
	manualAck map[transport.Stream]HoldFunc
	retryMin  time.Duration
	retryMax  time.Duration

	nextAction atomic.Uint64

	// ctx bounds the event stream and the reader's own requests.
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	ship      urbit.Ship
	subs      map[uint64]*subscription
	streaming bool
	closed    bool
	// epoch counts channel rebuilds; lastEvent is the newest event id
	// seen in the current epoch.
	epoch     uint64
	lastEvent uint64
	sawEvent  bool
	rebuild   bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. A cookie jar is attached when the
// client has none, since the session lives in a cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithChannelID fixes the channel uid instead of generating one.
func WithChannelID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.channelID = id
		}
	}
}

// WithManualAck lists the streams whose frames are acked only through
// Ack. Frames of every other stream are acked as Poll returns them.
// Default: transport.InviteUpdates, held by HoldInvites.
func WithManualAck(streams ...transport.Stream) Option {
	return func(c *Client) {
		c.manualAck = make(map[transport.Stream]HoldFunc, len(streams))
		for _, s := range streams {
			c.manualAck[s] = HoldAll
		}
	}
}

// WithReconnectBackoff bounds the wait between reconnect attempts. The
// wait starts at initial and doubles up to limit.
func WithReconnectBackoff(initial, limit time.Duration) Option {
	return func(c *Client) {
		if initial > 0 {
			c.retryMin = initial
		}
		if limit >= c.retryMin {
			c.retryMax = limit
		}
	}
}

// WithNow sets the time source used to stamp outgoing posts.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a client for the ship at shipURL. Call Login before any
// other method.
func New(shipURL, code string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(shipURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ship url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("ship url %q: scheme must be http or https", shipURL)
	}
	if code == "" {
		return nil, errors.New("ship code is empty")
	}

	c := &Client{
		base:      base,
		code:      code,
		http:      &http.Client{},
		logger:    slog.Default(),
		channelID: fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.NewString()[:6]),
		now:       time.Now,
		manualAck: map[transport.Stream]HoldFunc{transport.InviteUpdates: HoldInvites},
		retryMin:  defaultRetryMin,
		retryMax:  defaultRetryMax,
		subs:      make(map[uint64]*subscription),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		hc := *c.http
		hc.Jar = jar
		c.http = &hc
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// ChannelID returns the channel uid.
func (c *Client) ChannelID() string {
	return c.channelID
}

// Ship returns the ship this client is authenticated as. Empty before Login.
func (c *Client) Ship() urbit.Ship {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ship
}

// Login authenticates with the ship's +code. The ship name is read from
// the session cookie.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{"password": {c.code}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/~/login"), strings.NewReader(form.Encode()))
	if err != nil {
		return transport.NewError(transport.OpLogin, c.base.Host, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return transport.NewError(transport.OpLogin, c.base.Host, err)
	}
	defer drain(resp.Body)
	if err := checkStatus(resp); err != nil {
		return transport.NewError(transport.OpLogin, c.base.Host, err)
	}

	for _, ck := range resp.Cookies() {
		name, ok := strings.CutPrefix(ck.Name, authCookiePrefix)
		if !ok {
			continue
		}
		ship, err := urbit.ParseShip(name)
		if err != nil {
			return transport.NewError(transport.OpLogin, c.base.Host, fmt.Errorf("session cookie: %w", err))
		}
		c.mu.Lock()
		c.ship = ship
		c.mu.Unlock()
		c.logger.Info("logged in", "ship", ship.String(), "channel", c.channelID)
		return nil
	}
	return transport.NewError(transport.OpLogin, c.base.Host, errors.New("no session cookie in response"))
}

// Subscribe opens a stream on the channel and starts the event reader if
// it is not running yet.
func (c *Client) Subscribe(ctx context.Context, stream transport.Stream) (transport.Subscription, error) {
	ship, err := c.requireShip()
	if err != nil {
		return nil, transport.NewError(transport.OpSubscribe, stream.String(), err)
	}

	sub := &subscription{
		stream:  stream,
		hold:    c.manualAck[stream],
		queue:   newFrameQueue(),
		pending: make(map[uint64]uint64),
	}
	id := c.nextAction.Add(1)
	sub.id.Store(id)
	// Registered before the request so no event can arrive unrouted.
	c.mu.Lock()
	c.subs[id] = sub
	c.mu.Unlock()

	err = c.put(ctx, action{
		ID:     id,
		Action: "subscribe",
		Ship:   ship.Name(),
		App:    stream.App,
		Path:   stream.Path,
	})
	if err == nil {
		err = c.ensureStream()
	}
	if err != nil {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		return nil, transport.NewError(transport.OpSubscribe, stream.String(), err)
	}

	c.logger.Debug("subscribed", "stream", stream.String(), "subscription", id)
	return sub, nil
}

// Poll returns the next buffered frame of sub without blocking.
//
// Frames that are not held are acked before they are returned. A failed
// ack is logged; the frame is still delivered. Frames that arrived before
// a channel rebuild are not acked on the new channel.
func (c *Client) Poll(ctx context.Context, s transport.Subscription) (transport.Frame, bool, error) {
	sub, err := c.own(s)
	if err != nil {
		return transport.Frame{}, false, transport.NewError(transport.OpPoll, s.Stream().String(), err)
	}

	qf, ok, err := sub.queue.TryDequeue()
	if err != nil {
		return transport.Frame{}, false, transport.NewError(transport.OpPoll, sub.stream.String(), err)
	}
	if !ok {
		return transport.Frame{}, false, nil
	}

	if sub.hold != nil && sub.hold(qf.Data) {
		sub.holdFrame(qf.ID, qf.epoch)
		return qf.Frame, true, nil
	}
	if qf.epoch != c.currentEpoch() {
		return qf.Frame, true, nil
	}
	if err := c.ack(ctx, qf.ID); err != nil {
		c.logger.Warn("auto ack failed",
			"stream", sub.stream.String(),
			"frame_id", qf.ID,
			"error", err)
	}
	return qf.Frame, true, nil
}

// Ack acknowledges a frame. Acking a held frame from before a channel
// rebuild is a no-op.
func (c *Client) Ack(ctx context.Context, s transport.Subscription, frameID uint64) error {
	sub, err := c.own(s)
	if err != nil {
		return transport.NewError(transport.OpAck, s.Stream().String(), err)
	}
	if epoch, held := sub.release(frameID); held && epoch != c.currentEpoch() {
		c.logger.Debug("ack skipped, channel rebuilt since frame arrived",
			"stream", sub.stream.String(),
			"frame_id", frameID)
		return nil
	}
	return transport.NewError(transport.OpAck, s.Stream().String(), c.ack(ctx, frameID))
}

// Poke sends a poke to an agent on this ship. It returns once Eyre has
// accepted the action; a negative poke ack arrives later on the event
// stream and is logged by the reader.
func (c *Client) Poke(ctx context.Context, app, mark string, payload any) error {
	ship, err := c.requireShip()
	if err != nil {
		return transport.NewError(transport.OpPoke, app, err)
	}
	err = c.put(ctx, action{
		ID:     c.nextAction.Add(1),
		Action: "poke",
		Ship:   ship.Name(),
		App:    app,
		Mark:   mark,
		JSON:   payload,
	})
	return transport.NewError(transport.OpPoke, app, err)
}

// Join runs the graph-join thread for resource. The thread takes only the
// resource and host; flags are logged and never sent.
func (c *Client) Join(ctx context.Context, resource urbit.Resource, flags transport.JoinFlags) error {
	if _, err := c.requireShip(); err != nil {
		return transport.NewError(transport.OpJoin, resource.String(), err)
	}
	body := map[string]any{
		"join": map[string]any{
			"resource": map[string]string{
				"ship": resource.Ship.String(),
				"name": resource.Name,
			},
			"ship": resource.Ship.String(),
		},
	}
	c.logger.Debug("joining",
		"resource", resource.String(),
		"requester", flags.Requester.String(),
		"app", flags.App,
		"autojoin", flags.Autojoin,
		"share_contact", flags.ShareContact)

	err := c.spider(ctx, "landscape", "graph-view-action", "graph-join", "json", body)
	return transport.NewError(transport.OpJoin, resource.String(), err)
}

// PostMessage adds msg as a new top-level node of the chat resource.
func (c *Client) PostMessage(ctx context.Context, resource urbit.Resource, msg urbit.Message) error {
	ship, err := c.requireShip()
	if err != nil {
		return transport.NewError(transport.OpPost, resource.String(), err)
	}
	payload := addNodes(ship, resource, msg, c.now())
	err = c.Poke(ctx, "graph-push-hook", "graph-update-3", payload)
	if err != nil {
		var te *transport.Error
		if errors.As(err, &te) {
			err = te.Err
		}
		return transport.NewError(transport.OpPost, resource.String(), err)
	}
	return nil
}

// Close deletes the channel and stops the reader. Buffered frames remain
// pollable; after them Poll returns transport.ErrClosed.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	streaming := c.streaming
	c.mu.Unlock()

	var err error
	if streaming {
		err = c.put(ctx, action{ID: c.nextAction.Add(1), Action: "delete"})
	}
	c.cancel()
	if streaming {
		select {
		case <-c.done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	}
	c.closeQueues(transport.ErrClosed)
	return transport.NewError(transport.OpClose, c.channelID, err)
}

func (c *Client) ack(ctx context.Context, eventID uint64) error {
	return c.put(ctx, action{
		ID:      c.nextAction.Add(1),
		Action:  "ack",
		EventID: &eventID,
	})
}

func (c *Client) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *Client) requireShip() (urbit.Ship, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", transport.ErrClosed
	}
	if c.ship.IsZero() {
		return "", errors.New("not logged in")
	}
	return c.ship, nil
}

func (c *Client) own(s transport.Subscription) (*subscription, error) {
	sub, ok := s.(*subscription)
	if !ok {
		return nil, fmt.Errorf("subscription %T does not belong to this client", s)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[sub.ID()] != sub {
		return nil, fmt.Errorf("unknown subscription %d", sub.ID())
	}
	return sub, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) channelURL() string {
	return c.endpoint("/~/channel/" + c.channelID)
}

// put sends a batch of channel actions.
func (c *Client) put(ctx context.Context, actions ...action) error {
	body, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.channelURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp.Body)
	return checkStatus(resp)
}

// spider runs a thread through the spider endpoint.
func (c *Client) spider(ctx context.Context, desk, inputMark, thread, outputMark string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode thread input: %w", err)
	}
	path := fmt.Sprintf("/spider/%s/%s/%s/%s.json", desk, inputMark, thread, outputMark)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp.Body)
	return checkStatus(resp)
}

// action is one entry of a channel PUT body.
type action struct {
	ID      uint64  `json:"id"`
	Action  string  `json:"action"`
	Ship    string  `json:"ship,omitempty"`
	App     string  `json:"app,omitempty"`
	Path    string  `json:"path,omitempty"`
	Mark    string  `json:"mark,omitempty"`
	JSON    any     `json:"json,omitempty"`
	EventID *uint64 `json:"event-id,omitempty"`
}

// subscription is the Client's transport.Subscription. Its id changes
// when the stream is resubscribed.
type subscription struct {
	id            atomic.Uint64
	stream        transport.Stream
	hold          HoldFunc
	queue         *frameQueue
	resubscribing atomic.Bool

	mu      sync.Mutex
	pending map[uint64]uint64 // held frame id -> epoch it arrived in
}

func (s *subscription) Stream() transport.Stream { return s.stream }
func (s *subscription) ID() uint64               { return s.id.Load() }

func (s *subscription) holdFrame(frameID, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[frameID] = epoch
}

func (s *subscription) release(frameID uint64) (epoch uint64, held bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	epoch, held = s.pending[frameID]
	delete(s.pending, frameID)
	return epoch, held
}

// statusError is a non-2xx response from the ship.
type statusError struct {
	Code   int
	Status string
	Body   string
}

func (e *statusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("unexpected status %s", e.Status)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &statusError{
		Code:   resp.StatusCode,
		Status: resp.Status,
		Body:   strings.TrimSpace(string(snippet)),
	}
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	_ = body.Close()
}

var _ transport.Transport = (*Client)(nil)
