package eyre

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// sseEvent is one Server-Sent Event.
type sseEvent struct {
	// ID is the "id:" field, the channel event id used for acks.
	ID    uint64
	HasID bool
	Type  string
	Data  string
}

// sseScanner reads Server-Sent Events from a reader.
//
// Events are delimited by blank lines. "data:" lines are joined with
// newlines, "id:" is parsed as an unsigned integer, comments and unknown
// fields are ignored.
type sseScanner struct {
	reader  *bufio.Reader
	current sseEvent
	err     error
}

func newSSEScanner(r io.Reader) *sseScanner {
	return &sseScanner{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next event. Returns false at EOF or on error.
func (s *sseScanner) Next() bool {
	if s.err != nil {
		return false
	}
	s.current = sseEvent{}

	var (
		data    []string
		hasData bool
		ev      sseEvent
	)
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			s.err = err
			if err == io.EOF && hasData {
				ev.Data = strings.Join(data, "\n")
				s.current = ev
				return true
			}
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if hasData {
				ev.Data = strings.Join(data, "\n")
				s.current = ev
				return true
			}
			ev = sseEvent{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if ok {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			if id, perr := strconv.ParseUint(value, 10, 64); perr == nil {
				ev.ID, ev.HasID = id, true
			}
		}
	}
}

// Event returns the event read by the last successful Next.
func (s *sseScanner) Event() sseEvent {
	return s.current
}

// Err returns the error that stopped the scanner, nil for a clean EOF.
func (s *sseScanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
