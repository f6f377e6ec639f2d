package responder

import "strings"

// DefaultTimeframe is used when a phrase matches no known timeframe.
const DefaultTimeframe = "1"

type timeframe struct {
	interval string
	phrases  []string
}

// timeframes maps user phrases to TradingView intervals. Some phrases appear
// under several intervals; the first match wins, so "1" is one minute and
// "m" is one minute, not one month.
var timeframes = []timeframe{
	{"1", []string{"1", "1m", "1min", "1mins", "1minute", "1minutes", "min", "m"}},
	{"3", []string{"3", "3m", "3min", "3mins", "3minute", "3minutes"}},
	{"5", []string{"5", "5m", "5min", "5mins", "5minute", "5minutes"}},
	{"15", []string{"15", "15m", "15min", "15mins", "15minute", "15minutes"}},
	{"30", []string{"30", "30m", "30min", "30mins", "30minute", "30minutes"}},
	{"60", []string{"60", "60m", "60min", "60mins", "60minute", "60minutes", "1", "1h", "1hr", "1hour", "1hours", "hourly", "hour", "hr", "h"}},
	{"120", []string{"120", "120m", "120min", "120mins", "120minute", "120minutes", "2", "2h", "2hr", "2hrs", "2hour", "2hours"}},
	{"180", []string{"180", "180m", "180min", "180mins", "180minute", "180minutes", "3", "3h", "3hr", "3hrs", "3hour", "3hours"}},
	{"240", []string{"240", "240m", "240min", "240mins", "240minute", "240minutes", "4", "4h", "4hr", "4hrs", "4hour", "4hours"}},
	{"D", []string{"24", "24h", "24hr", "24hrs", "24hour", "24hours", "d", "day", "1", "1d", "1day", "daily", "1440", "1440m", "1440min", "1440mins", "1440minute", "1440minutes"}},
	{"W", []string{"7", "7d", "7day", "7days", "w", "week", "1w", "1week", "weekly"}},
	{"M", []string{"30d", "30day", "30days", "1", "1m", "m", "mo", "month", "1mo", "1month", "monthly"}},
	{"Y", []string{"12", "12m", "12mo", "12month", "12months", "year", "yearly", "1year", "1y", "y", "annual", "annually"}},
}

// ParseTimeframe maps a phrase such as "4h" or "daily" to a TradingView
// interval. Matching is case-insensitive. Unknown phrases map to
// DefaultTimeframe.
func ParseTimeframe(phrase string) string {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	for _, tf := range timeframes {
		for _, p := range tf.phrases {
			if p == phrase {
				return tf.interval
			}
		}
	}
	return DefaultTimeframe
}
