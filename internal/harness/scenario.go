package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shipbot/internal/transport"
	"github.com/roach88/shipbot/internal/urbit"
)

// Scenario is a scripted run of the dispatcher.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Ship is the bridge's own ship.
	Ship string `yaml:"ship"`

	// Responder names the responder to run (chart, echo, none).
	// Empty means chart.
	Responder string `yaml:"responder,omitempty"`

	// TokenPrefix prefixes cycle tokens. Empty means "cycle".
	TokenPrefix string `yaml:"token_prefix,omitempty"`

	// Failures are injected before the streams are opened.
	Failures []Failure `yaml:"failures,omitempty"`

	// Cycles are run in order, one dispatch cycle each.
	Cycles []CycleStep `yaml:"cycles"`

	// Assertions validate the trace and journal after the last cycle.
	Assertions []Assertion `yaml:"assertions"`
}

// Failure makes every call of one transport operation fail.
type Failure struct {
	Op    string `yaml:"op"`
	Error string `yaml:"error"`
}

// CycleStep is one dispatch cycle: frames pushed before it runs, and the
// report fields expected after.
type CycleStep struct {
	Frames []FrameStep `yaml:"frames"`

	// Expect is a subset match on the cycle report counts.
	Expect map[string]int `yaml:"expect,omitempty"`
}

// FrameStep is one frame pushed onto a stream. Exactly one of JSON and Raw
// is set.
type FrameStep struct {
	// Stream is "invite", "metadata", "graph" or "app/path".
	Stream string `yaml:"stream"`

	// JSON is written as YAML and sent as JSON, keys in written order.
	JSON yaml.Node `yaml:"json,omitempty"`

	// Raw is sent verbatim.
	Raw string `yaml:"raw,omitempty"`
}

// Assertion validates the trace or the journal.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count,
	// journal_count.
	Type string `yaml:"type"`

	// Action is a transport call name (subscribe, poke, join, ack, post).
	Action string `yaml:"action,omitempty"`

	// Args are matched as a subset of the call's args.
	Args map[string]any `yaml:"args,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Where filters journal entries by field (journal_count).
	Where map[string]any `yaml:"where,omitempty"`

	// Count is the expected number of matches.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertJournalCount  = "journal_count"
)

// reportFields are the keys a cycle expect clause may use.
var reportFields = map[string]bool{
	"frames":          true,
	"unrecognized":    true,
	"invites":         true,
	"acks":            true,
	"self_suppressed": true,
	"joins":           true,
	"posts":           true,
	"failures":        true,
}

var failureOps = map[string]transport.Op{
	string(transport.OpSubscribe): transport.OpSubscribe,
	string(transport.OpPoll):      transport.OpPoll,
	string(transport.OpPoke):      transport.OpPoke,
	string(transport.OpJoin):      transport.OpJoin,
	string(transport.OpAck):       transport.OpAck,
	string(transport.OpPost):      transport.OpPost,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := urbit.ParseShip(s.Ship); err != nil {
		return fmt.Errorf("ship: %w", err)
	}
	if len(s.Cycles) == 0 {
		return fmt.Errorf("cycles list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, f := range s.Failures {
		if _, ok := failureOps[f.Op]; !ok {
			return fmt.Errorf("failures[%d]: unknown op %q", i, f.Op)
		}
		if f.Error == "" {
			return fmt.Errorf("failures[%d]: error is required", i)
		}
	}

	for i, c := range s.Cycles {
		for j, f := range c.Frames {
			if _, err := ParseStream(f.Stream); err != nil {
				return fmt.Errorf("cycles[%d].frames[%d]: %w", i, j, err)
			}
			hasJSON := f.JSON.Kind != 0
			if hasJSON == (f.Raw != "") {
				return fmt.Errorf("cycles[%d].frames[%d]: exactly one of json and raw is required", i, j)
			}
		}
		for key := range c.Expect {
			if !reportFields[key] {
				return fmt.Errorf("cycles[%d].expect: unknown report field %q", i, key)
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertJournalCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for journal_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// ParseStream resolves a scenario stream name.
func ParseStream(name string) (transport.Stream, error) {
	switch name {
	case "invite":
		return transport.InviteUpdates, nil
	case "metadata":
		return transport.MetadataAll, nil
	case "graph":
		return transport.GraphUpdates, nil
	}
	app, path, ok := strings.Cut(name, "/")
	if !ok || app == "" || path == "" {
		return transport.Stream{}, fmt.Errorf("unknown stream %q", name)
	}
	return transport.Stream{App: app, Path: "/" + path}, nil
}

// frameData returns the bytes to push for a frame step.
func (f FrameStep) frameData() (string, error) {
	if f.Raw != "" {
		return f.Raw, nil
	}
	var buf bytes.Buffer
	if err := writeJSON(&buf, &f.JSON); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// writeJSON renders a YAML node as compact JSON, keeping mapping order.
func writeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, n.Content[0])

	case yaml.AliasNode:
		return writeJSON(buf, n.Alias)

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			buf.WriteString("null")
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return err
			}
			buf.WriteString(strconv.FormatBool(b))
		case "!!int":
			var i int64
			if err := n.Decode(&i); err != nil {
				return err
			}
			buf.WriteString(strconv.FormatInt(i, 10))
		case "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return err
			}
			out, err := json.Marshal(f)
			if err != nil {
				return fmt.Errorf("line %d: %w", n.Line, err)
			}
			buf.Write(out)
		default:
			out, err := json.Marshal(n.Value)
			if err != nil {
				return err
			}
			buf.Write(out)
		}
		return nil
	}
	return fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}
