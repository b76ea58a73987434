package core

import (
	"fmt"
	"strings"

	"github.com/xhit/go-str2duration/v2"
)

// SourceID builds the partition key of an instrument and timeframe pair
func SourceID(symbol, interval string) string {
	return symbol + "_" + interval
}

// ParseSourceID splits a source id back into symbol and interval and checks
// the interval is a valid timeframe such as 15m, 1h or 1d.
func ParseSourceID(sourceID string) (symbol, interval string, err error) {
	idx := strings.LastIndex(sourceID, "_")
	if idx <= 0 || idx == len(sourceID)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrEmptySource, sourceID)
	}

	symbol, interval = sourceID[:idx], sourceID[idx+1:]
	if _, err := str2duration.ParseDuration(interval); err != nil {
		return "", "", fmt.Errorf("invalid interval %q: %w", interval, err)
	}

	return symbol, interval, nil
}
