package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roach88/shipbot/internal/dispatch"
	"github.com/roach88/shipbot/internal/journal"
	"github.com/roach88/shipbot/internal/responder"
	"github.com/roach88/shipbot/internal/testutil"
	"github.com/roach88/shipbot/internal/transport"
	"github.com/roach88/shipbot/internal/urbit"
)

// Harness is one scenario execution: a dispatcher wired to an in-memory
// transport and journal.
type Harness struct {
	transport  *testutil.FakeTransport
	journal    *journal.Journal
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes dispatcher logs to l. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal. Execution flow:
//  1. Inject failures and open the streams (cycle 0)
//  2. For each cycle, push its frames, run one dispatch cycle and check
//     its expect clause
//  3. Evaluate assertions against the trace and journal
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	ship, err := urbit.ParseShip(scenario.Ship)
	if err != nil {
		return nil, fmt.Errorf("ship: %w", err)
	}
	identity, err := dispatch.NewIdentity(ship)
	if err != nil {
		return nil, err
	}
	resp, err := responder.New(scenario.Responder)
	if err != nil {
		return nil, err
	}

	j, err := journal.Open(context.Background(), ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	fake := testutil.NewFakeTransport()
	for _, f := range scenario.Failures {
		fake.FailOn(failureOps[f.Op], errors.New(f.Error))
	}

	h := &Harness{
		transport: fake,
		journal:   j,
		logger:    cfg.logger,
	}
	h.dispatcher = dispatch.New(fake, identity, resp,
		dispatch.WithLogger(cfg.logger),
		dispatch.WithRecorder(j),
		dispatch.WithTokenGenerator(testutil.NewSequenceTokenGenerator(scenario.TokenPrefix)),
	)

	ctx := context.Background()
	result := NewResult()

	openErr := h.dispatcher.Open(ctx)
	h.collectCalls(0, result)
	if openErr != nil {
		result.AddError(fmt.Sprintf("open streams: %v", openErr))
		return result, nil
	}

	for i, step := range scenario.Cycles {
		if err := h.runCycle(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("cycle %d: %w", i+1, err)
		}
	}

	entries, err := j.Entries(ctx, journal.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	result.Journal = entries

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// runCycle pushes a cycle's frames, runs it, and records its calls and
// report.
func (h *Harness) runCycle(ctx context.Context, n int, step CycleStep, result *Result) error {
	for i, f := range step.Frames {
		stream, err := ParseStream(f.Stream)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		data, err := f.frameData()
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		h.transport.Push(stream, data)
	}

	report := h.dispatcher.RunCycle(ctx)
	h.collectCalls(n, result)
	result.addReport(n, report)

	h.logger.Info("cycle completed",
		"cycle", n,
		"token", report.Token,
		"frames", report.Frames,
	)

	counts := reportCounts(report)
	keys := make([]string, 0, len(step.Expect))
	for k := range step.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if got := counts[k].(int); got != step.Expect[k] {
			result.AddError(fmt.Sprintf("cycle %d: expected %s = %d, got %d", n, k, step.Expect[k], got))
		}
	}
	return nil
}

// collectCalls moves the transport's call log into the trace.
func (h *Harness) collectCalls(cycle int, result *Result) {
	for _, c := range h.transport.Calls() {
		outcome := "ok"
		args := callArgs(c)
		if c.Err != nil {
			outcome = "failed"
			args["error"] = c.Err.Error()
		}
		result.addCall(cycle, string(c.Op), args, outcome)
	}
	h.transport.Reset()
}

// callArgs extracts the trace args of one transport call.
func callArgs(c testutil.Call) map[string]any {
	switch c.Op {
	case transport.OpSubscribe:
		return map[string]any{"stream": c.Stream.String()}
	case transport.OpAck:
		return map[string]any{"stream": c.Stream.String(), "frame_id": c.FrameID}
	case transport.OpJoin:
		return map[string]any{"resource": c.Resource.String(), "requester": c.Flags.Requester.String()}
	case transport.OpPost:
		return map[string]any{
			"resource": c.Resource.String(),
			"text":     strings.TrimSpace(c.Message.Contents.FormattedString()),
		}
	case transport.OpPoke:
		args := map[string]any{"app": c.App, "mark": c.Mark}
		if res := gjson.GetBytes(c.Payload, "join.resource"); res.Exists() {
			args["resource"] = res.Get("ship").String() + "/" + res.Get("name").String()
		}
		return args
	}
	return map[string]any{}
}
