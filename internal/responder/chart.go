package responder

import (
	"net/url"

	"github.com/roach88/shipbot/internal/urbit"
)

// ChartCommand is the first word of a chart request.
const ChartCommand = "c"

// ChartUsage is the reply to a chart command with too few arguments.
const ChartUsage = "Unknown command.\n" +
	"Type `c <trading_pair> <timeframe>` to get the corresponding chart.\n" +
	"You can look up any trading pair and timeframe supported by TradingView.\n" +
	"Example: `c ethusd 4h`"

// DefaultChartBase is the TradingView widget endpoint.
const DefaultChartBase = "https://www.tradingview.com/widgetembed/"

// Chart answers "c <pair> <timeframe>" with a chart link.
type Chart struct {
	// Base is the widget endpoint. Empty means DefaultChartBase.
	Base string
}

// NewChart returns a Chart using DefaultChartBase.
func NewChart() *Chart {
	return &Chart{Base: DefaultChartBase}
}

// URL returns the chart link for a pair at a TradingView interval.
func (c *Chart) URL(pair, interval string) string {
	base := c.Base
	if base == "" {
		base = DefaultChartBase
	}
	return base + "?symbol=" + url.QueryEscape(pair) +
		"&interval=" + url.QueryEscape(interval) +
		"&theme=dark&style=1&hidetoptoolbar=1&symboledit=1&saveimage=1&withdateranges=1"
}

// Respond implements dispatch.Responder.
func (c *Chart) Respond(msg urbit.AuthoredMessage) (urbit.Message, bool) {
	words := msg.Words()
	if len(words) == 0 || words[0] != ChartCommand {
		return urbit.Message{}, false
	}
	if len(words) <= 2 {
		return urbit.NewMessage().AddText(ChartUsage), true
	}
	return urbit.NewMessage().AddURL(c.URL(words[1], ParseTimeframe(words[2]))), true
}
