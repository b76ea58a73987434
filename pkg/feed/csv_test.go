package feed

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raykavin/chartdraw/pkg/core"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_Headerless(t *testing.T) {
	data := "60,10,12,9,13,100\n120,12,11,10,14,50\n"

	bars, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, []core.Bar{
		{Time: 60, Open: 10, Close: 12, Low: 9, High: 13, Volume: 100},
		{Time: 120, Open: 12, Close: 11, Low: 10, High: 14, Volume: 50},
	}, bars)
}

func TestReadCSV_CustomHeaderOrder(t *testing.T) {
	data := "open,high,low,close,volume,time,trades\n10,13,9,12,100,60,7\n"

	bars, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	require.Equal(t, core.Bar{Time: 60, Open: 10, Close: 12, Low: 9, High: 13, Volume: 100}, bars[0])
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoBars)

	_, err = ReadCSV(strings.NewReader("time,open,close\n1,2,3\n"))
	require.ErrorContains(t, err, "missing column")

	_, err = ReadCSV(strings.NewReader("60,x,12,9,13,100\n"))
	require.ErrorContains(t, err, "line 1")
}

func TestWriteCSV_ReadBack(t *testing.T) {
	bars := []core.Bar{{Time: 60, Open: 1.5, Close: 2.25, Low: 1, High: 3, Volume: 10}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, bars, 2))
	require.True(t, strings.HasPrefix(buf.String(), "time,open,close,low,high,volume\n"))

	read, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Equal(t, bars, read)
}

func minuteBars(from, count int64) []core.Bar {
	bars := make([]core.Bar, 0, count)
	for i := int64(0); i < count; i++ {
		price := float64(from + i)
		bars = append(bars, core.Bar{
			Time:   (from + i) * 60,
			Open:   price,
			Close:  price + 0.5,
			Low:    price - 1,
			High:   price + 1,
			Volume: 1,
		})
	}
	return bars
}

func TestResample(t *testing.T) {
	// minutes 3..16: the 0-5 bucket is partial at the start and 15-20 at the end
	bars := minuteBars(3, 14)

	resampled, err := Resample(bars, "1m", "5m")
	require.NoError(t, err)
	require.Len(t, resampled, 2)

	first := resampled[0]
	require.Equal(t, int64(5*60), first.Time)
	require.Equal(t, 5.0, first.Open)
	require.Equal(t, 9.5, first.Close)
	require.Equal(t, 4.0, first.Low)
	require.Equal(t, 10.0, first.High)
	require.Equal(t, 5.0, first.Volume)

	require.Equal(t, int64(10*60), resampled[1].Time)
}

func TestResample_WeekStartsOnSunday(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC).Unix()
	bars := make([]core.Bar, 0, 8)
	for d := int64(-1); d < 7; d++ {
		bars = append(bars, core.Bar{Time: sunday + d*86400, Open: 1, Close: 1, Low: 1, High: 1})
	}

	resampled, err := Resample(bars, "1d", "1w")
	require.NoError(t, err)
	require.Len(t, resampled, 1)
	require.Equal(t, sunday, resampled[0].Time)
}

func TestResample_InvalidTimeframes(t *testing.T) {
	_, err := Resample(nil, "5m", "1m")
	require.Error(t, err)

	_, err = Resample(nil, "1m", "bogus")
	require.Error(t, err)
}

func TestCSVFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "btc.csv")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, minuteBars(0, 20), 4))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	feed, err := NewCSVFeed("5m", PairFeed{Pair: "BTCUSDT", File: path, Timeframe: "1m"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"BTCUSDT_1m", "BTCUSDT_5m"}, feed.Sources())

	raw, err := feed.Bars("BTCUSDT", "1m")
	require.NoError(t, err)
	require.Len(t, raw, 20)

	resampled, err := feed.Bars("BTCUSDT", "5m")
	require.NoError(t, err)
	require.Len(t, resampled, 4)

	_, err = feed.Bars("ETHUSDT", "1m")
	require.ErrorIs(t, err, ErrNoBars)

	feed.Limit(5 * time.Minute)
	raw, err = feed.Bars("BTCUSDT", "1m")
	require.NoError(t, err)
	require.Len(t, raw, 5)
	require.Equal(t, int64(15*60), raw[0].Time)
}
