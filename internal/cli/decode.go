package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/roach88/shipbot/internal/decode"
	"github.com/roach88/shipbot/internal/harness"
	"github.com/roach88/shipbot/internal/transport"
	"github.com/roach88/shipbot/internal/urbit"
)

// maxFrameLine bounds one line of a frame file.
const maxFrameLine = 4 << 20

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Stream string // default stream for lines without one
}

// DecodedFrame is the decode result of one frame line.
type DecodedFrame struct {
	Line      int    `json:"line"`
	ID        uint64 `json:"id"`
	Stream    string `json:"stream"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail,omitempty"`
	IndexedAt string `json:"indexed_at,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DecodeResult holds the overall decode output.
type DecodeResult struct {
	Frames       []DecodedFrame `json:"frames"`
	Total        int            `json:"total"`
	Unrecognized int            `json:"unrecognized"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <frames-file>",
		Short: "Decode a file of captured frames",
		Long: `Decode captured stream frames offline.

Each non-empty line is one frame. A line is either a channel event
envelope ({"id": 7, "stream": "graph", "json": {...}}) or a bare
update payload, which gets the line number as its frame id and the
--stream stream. Use "-" to read from stdin.

Examples:
  shipbot decode frames.jsonl
  shipbot decode --stream metadata captured.jsonl
  cat frames.jsonl | shipbot decode - --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Stream, "stream", "graph", "stream of lines without one (invite|metadata|graph|app/path)")

	return cmd
}

func runDecode(opts *DecodeOptions, path string, cmd *cobra.Command) error {
	defaultStream, err := harness.ParseStream(opts.Stream)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --stream", err)
	}

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open frames file", err)
		}
		defer f.Close()
		r = f
	}

	frames, err := readFrames(r, defaultStream)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read frames", err)
	}

	result := DecodeResult{Frames: make([]DecodedFrame, 0, len(frames))}
	for _, lf := range frames {
		df := describe(lf.line, decode.Decode(lf.frame))
		if df.Kind == string(decode.KindUnrecognized) {
			result.Unrecognized++
		}
		result.Frames = append(result.Frames, df)
	}
	result.Total = len(result.Frames)

	out := newFormatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return out.Success(result)
	}

	rows := make([][]string, 0, len(result.Frames))
	for _, f := range result.Frames {
		detail := f.Detail
		if f.IndexedAt != "" {
			detail += " at " + f.IndexedAt
		}
		if f.Error != "" {
			detail = f.Error
		}
		rows = append(rows, []string{fmt.Sprint(f.Line), fmt.Sprint(f.ID), f.Stream, f.Kind, detail})
	}
	if err := out.Table([]string{"LINE", "ID", "STREAM", "KIND", "DETAIL"}, rows); err != nil {
		return err
	}
	fmt.Fprintf(out.Writer, "\n%d frames, %d unrecognized\n", result.Total, result.Unrecognized)
	return nil
}

type lineFrame struct {
	line  int
	frame transport.Frame
}

// readFrames splits a frame file into frames. Envelope lines carry their
// own id and stream.
func readFrames(r io.Reader, defaultStream transport.Stream) ([]lineFrame, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFrameLine)

	var frames []lineFrame
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		frame := transport.Frame{ID: uint64(line), Stream: defaultStream, Data: []byte(text)}
		if env := gjson.Parse(text); env.IsObject() && env.Get("json").Exists() {
			frame.Data = []byte(env.Get("json").Raw)
			if id := env.Get("id"); id.Exists() {
				frame.ID = id.Uint()
			}
			if s := env.Get("stream"); s.Exists() {
				stream, err := harness.ParseStream(s.String())
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				frame.Stream = stream
			}
		}
		frames = append(frames, lineFrame{line: line, frame: frame})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	return frames, nil
}

// describe renders a decoded event as one line of detail.
func describe(line int, ev decode.Event) DecodedFrame {
	ref := ev.Frame()
	df := DecodedFrame{
		Line:   line,
		ID:     ref.ID,
		Stream: ref.Stream.String(),
		Kind:   string(ev.Kind()),
	}

	switch e := ev.(type) {
	case *decode.GraphUpdate:
		df.Detail = fmt.Sprintf("%s %s by %s: %q (%d nodes)",
			e.Resource, e.Post.Index, e.Post.Author, e.Post.Contents.FormattedString(), e.NodeCount)
		if at, ok := urbit.IndexTime(e.Post.Index); ok {
			df.IndexedAt = at.Format(time.RFC3339Nano)
		}
	case *decode.InviteUpdate:
		if e.Invite == nil {
			df.Detail = "not a new invite"
			break
		}
		df.Detail = fmt.Sprintf("invite to %s", e.Invite.Resource)
		if !e.Invite.Inviter.IsZero() {
			df.Detail += fmt.Sprintf(" from %s", e.Invite.Inviter)
		}
	case *decode.MetadataUpdate:
		var parts []string
		if e.Added != nil {
			parts = append(parts, fmt.Sprintf("add %s %s", e.Added.AppName, e.Added.Resource))
		}
		if len(e.Associations) > 0 {
			parts = append(parts, fmt.Sprintf("%d associations", len(e.Associations)))
		}
		if e.Removed != nil {
			parts = append(parts, "remove "+removedName(e.Removed))
		}
		if len(e.Skipped) > 0 {
			parts = append(parts, fmt.Sprintf("%d skipped", len(e.Skipped)))
		}
		df.Detail = strings.Join(parts, ", ")
	case *decode.Unrecognized:
		if e.Err != nil {
			df.ErrorCode = string(e.Err.Code)
			df.Error = e.Err.Error()
		}
	}
	return df
}

func removedName(r *decode.Removal) string {
	if !r.Resource.IsZero() {
		return r.Resource.String()
	}
	return string(r.Raw)
}
