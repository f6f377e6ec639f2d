package responder

import (
	"fmt"
	"sort"

	"github.com/roach88/shipbot/internal/dispatch"
)

// Responder names accepted by New.
const (
	NameChart = "chart"
	NameEcho  = "echo"
	NameNone  = "none"
)

var registry = map[string]func() dispatch.Responder{
	NameChart: func() dispatch.Responder { return NewChart() },
	NameEcho:  func() dispatch.Responder { return Echo{} },
	NameNone:  func() dispatch.Responder { return dispatch.Silent },
}

// New returns the responder registered under name. An empty name is chart.
func New(name string) (dispatch.Responder, error) {
	if name == "" {
		name = NameChart
	}
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown responder %q (available: %v)", name, Names())
	}
	return build(), nil
}

// Names returns the registered responder names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
