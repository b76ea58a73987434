package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/raykavin/chartdraw/pkg/logger/zerolog"
	"github.com/stretchr/testify/require"
)

const klinesResponse = `[
	[1700000000000, "10.0", "12.0", "9.0", "11.0", "100.0", 1700000059999, "0", 1, "0", "0", "0"],
	[1700000060000, "11.0", "13.0", "10.5", "12.5", "80.0", 1700000119999, "0", 1, "0", "0", "0"],
	[1700000120000, "12.5", "12.6", "12.4", "12.5", "1.0", 1700000179999, "0", 1, "0", "0", "0"]
]`

func klinesServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/klines", r.URL.Path)
		require.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		require.Equal(t, "1m", r.URL.Query().Get("interval"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(klinesResponse))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestBinanceFeed_BarsByLimitDropsOpenBar(t *testing.T) {
	server := klinesServer(t)
	feed := NewBinanceFeed(zerolog.Nop(), WithBaseURL(server.URL))

	bars, err := feed.BarsByLimit(context.Background(), "BTCUSDT", "1m", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	require.Equal(t, int64(1700000000), bars[0].Time)
	require.Equal(t, 10.0, bars[0].Open)
	require.Equal(t, 12.0, bars[0].High)
	require.Equal(t, 9.0, bars[0].Low)
	require.Equal(t, 11.0, bars[0].Close)
	require.Equal(t, 100.0, bars[0].Volume)
	require.Equal(t, int64(1700000060), bars[1].Time)
}

func TestBarFromKline_InvalidNumber(t *testing.T) {
	_, err := barsFromKlines(nil)
	require.NoError(t, err)

	_, err = barFromKline(binance.Kline{
		OpenTime: 1700000000000,
		Open:     "1",
		High:     "2",
		Low:      "0.5",
		Close:    "n/a",
		Volume:   "3",
	})
	require.ErrorContains(t, err, "close")
}
