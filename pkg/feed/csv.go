// Package feed loads the bar series drawn under the chart, from CSV files or
// straight from an exchange.
package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"
)

var (
	ErrNoBars = errors.New("no bars")

	// CSVHeaders is the column order written by WriteCSV and assumed for headerless files
	CSVHeaders = []string{"time", "open", "close", "low", "high", "volume"}

	defaultHeaderMap = lo.Associate(CSVHeaders, func(h string) (string, int) {
		return h, lo.IndexOf(CSVHeaders, h)
	})
)

// weekAnchor is the first Sunday after the unix epoch; week buckets start on Sundays
const weekAnchor = 3 * 24 * 60 * 60

// PairFeed names a CSV file holding bars of one pair at one timeframe
type PairFeed struct {
	Pair      string
	File      string
	Timeframe string
}

// CSVFeed holds bar series read from CSV files, keyed by source id
type CSVFeed struct {
	series map[string][]core.Bar
}

// NewCSVFeed reads every feed and, when targetTimeframe is set and differs
// from the file timeframe, resamples it.
func NewCSVFeed(targetTimeframe string, feeds ...PairFeed) (*CSVFeed, error) {
	c := &CSVFeed{series: make(map[string][]core.Bar)}

	for _, feed := range feeds {
		bars, err := readFile(feed.File)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", feed.File, err)
		}
		c.series[core.SourceID(feed.Pair, feed.Timeframe)] = bars

		if targetTimeframe == "" || targetTimeframe == feed.Timeframe {
			continue
		}

		resampled, err := Resample(bars, feed.Timeframe, targetTimeframe)
		if err != nil {
			return nil, err
		}
		c.series[core.SourceID(feed.Pair, targetTimeframe)] = resampled
	}

	return c, nil
}

// Bars returns the series loaded for pair and timeframe
func (c *CSVFeed) Bars(pair, timeframe string) ([]core.Bar, error) {
	bars, ok := c.series[core.SourceID(pair, timeframe)]
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoBars, core.SourceID(pair, timeframe))
	}
	return append([]core.Bar(nil), bars...), nil
}

// Sources lists the source ids the feed can serve
func (c *CSVFeed) Sources() []string {
	return lo.Keys(c.series)
}

// Limit keeps only the bars within duration of the last bar of each series
func (c *CSVFeed) Limit(duration time.Duration) *CSVFeed {
	for key, bars := range c.series {
		if len(bars) == 0 {
			continue
		}

		start := bars[len(bars)-1].Time - int64(duration/time.Second)
		c.series[key] = lo.Filter(bars, func(bar core.Bar, _ int) bool {
			return bar.Time > start
		})
	}
	return c
}

func readFile(path string) ([]core.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses bars from r. A first row that does not start with a number is
// treated as a header and may list the columns in any order.
func ReadCSV(r io.Reader) ([]core.Bar, error) {
	lines, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoBars
	}

	headerMap := defaultHeaderMap
	if _, err := strconv.ParseInt(lines[0][0], 10, 64); err != nil {
		headerMap = lo.Associate(lines[0], func(h string) (string, int) {
			return h, lo.IndexOf(lines[0], h)
		})
		lines = lines[1:]
	}

	for _, h := range CSVHeaders {
		if _, ok := headerMap[h]; !ok {
			return nil, fmt.Errorf("missing column %q", h)
		}
	}

	bars := make([]core.Bar, 0, len(lines))
	for n, line := range lines {
		bar, err := parseLine(line, headerMap)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func parseLine(line []string, headerMap map[string]int) (core.Bar, error) {
	field := func(name string) (string, error) {
		idx := headerMap[name]
		if idx >= len(line) {
			return "", fmt.Errorf("missing %s value", name)
		}
		return line[idx], nil
	}

	raw, err := field("time")
	if err != nil {
		return core.Bar{}, err
	}
	bar := core.Bar{}
	if bar.Time, err = strconv.ParseInt(raw, 10, 64); err != nil {
		return core.Bar{}, err
	}

	for name, dst := range map[string]*float64{
		"open": &bar.Open, "close": &bar.Close, "low": &bar.Low, "high": &bar.High, "volume": &bar.Volume,
	} {
		if raw, err = field(name); err != nil {
			return core.Bar{}, err
		}
		if *dst, err = strconv.ParseFloat(raw, 64); err != nil {
			return core.Bar{}, fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return bar, nil
}

// WriteCSV writes bars with a header row in CSVHeaders order
func WriteCSV(w io.Writer, bars []core.Bar, precision int) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeaders); err != nil {
		return err
	}

	for _, bar := range bars {
		if err := writer.Write(bar.ToSlice(precision)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// Resample aggregates bars of sourceTimeframe into buckets of targetTimeframe.
// Buckets that do not start on a period boundary or end before the period
// closes are dropped.
func Resample(bars []core.Bar, sourceTimeframe, targetTimeframe string) ([]core.Bar, error) {
	from, err := str2duration.ParseDuration(sourceTimeframe)
	if err != nil {
		return nil, fmt.Errorf("invalid timeframe %q: %w", sourceTimeframe, err)
	}
	to, err := str2duration.ParseDuration(targetTimeframe)
	if err != nil {
		return nil, fmt.Errorf("invalid timeframe %q: %w", targetTimeframe, err)
	}
	if to < from || to%from != 0 {
		return nil, fmt.Errorf("cannot resample %s into %s", sourceTimeframe, targetTimeframe)
	}

	step, period := int64(from/time.Second), int64(to/time.Second)
	buckets := lo.PartitionBy(bars, func(bar core.Bar) int64 {
		return bucketStart(bar.Time, period)
	})

	result := make([]core.Bar, 0, len(buckets))
	for _, bucket := range buckets {
		first, last := bucket[0], bucket[len(bucket)-1]
		start := bucketStart(first.Time, period)
		if first.Time != start || last.Time+step != start+period {
			continue
		}

		bar := core.Bar{Time: start, Open: first.Open, Close: last.Close, Low: math.Inf(1), High: math.Inf(-1)}
		for _, b := range bucket {
			bar.High = math.Max(bar.High, b.High)
			bar.Low = math.Min(bar.Low, b.Low)
			bar.Volume += b.Volume
		}
		result = append(result, bar)
	}

	return result, nil
}

func bucketStart(t, period int64) int64 {
	offset := ((t-weekAnchor)%period + period) % period
	return t - offset
}
