package urbit

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// @da is an absolute date: 2^64 units per second, counted from the
// Urbit epoch. unixEpochDa is the @da of 1970-01-01T00:00:00Z.
var (
	unixEpochDa, _ = new(big.Int).SetString("170141184475152167957503069145530368000", 10)
	daSecond       = new(big.Int).Lsh(big.NewInt(1), 64)
	daHalfSecond   = new(big.Int).Lsh(big.NewInt(1), 63)
	msPerSecond    = big.NewInt(1000)
)

// DaFromTime converts a wall time to @da at millisecond precision.
func DaFromTime(t time.Time) *big.Int {
	ms := big.NewInt(t.UnixMilli())
	da := new(big.Int).Mul(ms, daSecond)
	da.Quo(da, msPerSecond)
	return da.Add(da, unixEpochDa)
}

// TimeFromDa converts @da back to wall time, rounded to the nearest
// millisecond so that TimeFromDa(DaFromTime(t)) keeps t's milliseconds.
func TimeFromDa(da *big.Int) time.Time {
	ms := new(big.Int).Sub(da, unixEpochDa)
	ms.Mul(ms, msPerSecond)
	ms.Add(ms, daHalfSecond)
	ms.Div(ms, daSecond)
	return time.UnixMilli(ms.Int64()).UTC()
}

// NodeIndex returns the graph-store node index for a post sent at t.
func NodeIndex(t time.Time) string {
	return "/" + DaFromTime(t).String()
}

// ParseNodeIndex parses a top-level node index back to its @da.
func ParseNodeIndex(index string) (*big.Int, error) {
	digits := strings.TrimPrefix(index, "/")
	if digits == index || strings.Contains(digits, "/") {
		return nil, fmt.Errorf("invalid node index %q", index)
	}
	da, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid node index %q", index)
	}
	return da, nil
}

// IndexTime returns the time encoded in a top-level node index. Indices
// that are not a @da after the Unix epoch report false.
func IndexTime(index string) (time.Time, bool) {
	da, err := ParseNodeIndex(index)
	if err != nil || da.Cmp(unixEpochDa) < 0 {
		return time.Time{}, false
	}
	return TimeFromDa(da), true
}
