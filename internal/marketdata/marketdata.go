// Package marketdata implements the Market Data adapter contract: historical
// candle fetch over REST and a live combined kline stream over WebSocket.
// Grounded on the teacher's internal/data/market_data.go (gorilla/websocket
// dial, SUBSCRIBE/UNSUBSCRIBE framing, readLoop/reconnectMonitor shape) and
// on original_source/backend/src/services/market_stream.rs +
// market_data.rs for the exact contract and env-driven host selection.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/atlas-desktop/krypto-paper/internal/apperr"
	"github.com/atlas-desktop/krypto-paper/internal/dataframe"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultRESTBase = "https://api.binance.com"
	defaultWSBase   = "wss://stream.binance.com:9443"
	usWSBase        = "wss://stream.binance.us:9443"
)

// KlineEvent is one (symbol, kline) event pushed by the live stream.
type KlineEvent struct {
	Symbol    string
	Time      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	IsFinal   bool
}

// Adapter implements the fetch_candles + start_stream contract against the
// exchange's public REST and combined-stream WebSocket endpoints.
type Adapter struct {
	logger   *zap.Logger
	restBase string
	wsBase   string

	keepRunning atomic.Bool
	httpClient  *http.Client
}

// Config selects the exchange host, mirroring original_source's
// BINANCE_WS_ENDPOINT / BINANCE_US environment selection.
type Config struct {
	WSEndpoint string
	US         bool
}

// New constructs an Adapter from Config.
func New(logger *zap.Logger, cfg Config) *Adapter {
	wsBase := defaultWSBase
	switch {
	case cfg.WSEndpoint != "":
		wsBase = cfg.WSEndpoint
	case cfg.US:
		wsBase = usWSBase
	}
	return &Adapter{
		logger:     logger.Named("marketdata"),
		restBase:   defaultRESTBase,
		wsBase:     wsBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchCandles returns the last `limit` candles for (symbol, interval) as a
// DataFrame with time/open/high/low/close/volume columns.
func (a *Adapter) FetchCandles(ctx context.Context, symbol, interval string, limit int) (*dataframe.DataFrame, error) {
	u, _ := url.Parse(a.restBase + "/api/v3/klines")
	q := u.Query()
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperr.NewMarketAPI("build candle request", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperr.NewMarketAPI("fetch candles", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.NewMarketAPI("read candle response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.NewMarketAPI(fmt.Sprintf("binance status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperr.NewData("decode candle response", err)
	}

	df := dataframe.New(len(raw))
	for i, row := range raw {
		if len(row) < 6 {
			continue
		}
		openTimeMs, _ := row[0].(float64)
		df.Time[i] = time.UnixMilli(int64(openTimeMs)).UTC()
		df.Open[i] = parseFloatField(row[1])
		df.High[i] = parseFloatField(row[2])
		df.Low[i] = parseFloatField(row[3])
		df.Close[i] = parseFloatField(row[4])
		df.Volume[i] = parseFloatField(row[5])
	}
	return df, nil
}

// StartStream opens a combined 1-minute kline stream for symbols and
// returns a channel of events. The channel is unbounded (fed by an internal
// goroutine-owned queue so a slow consumer cannot block the websocket
// reader); closing it signals disconnection. Stop() cooperatively tears the
// reader down after its current read.
func (a *Adapter) StartStream(ctx context.Context, symbols []string) (<-chan KlineEvent, error) {
	a.keepRunning.Store(true)

	streams := make([]string, len(symbols))
	for i, s := range symbols {
		streams[i] = strings.ToLower(s) + "@kline_1m"
	}
	streamPath := strings.Join(streams, "/")
	dialURL := fmt.Sprintf("%s/stream?streams=%s", a.wsBase, streamPath)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		return nil, apperr.NewMarketAPI("dial combined stream", err)
	}

	raw := make(chan KlineEvent)
	out := unboundedRelay(raw)

	go func() {
		defer close(raw)
		defer conn.Close()
		for a.keepRunning.Load() {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if a.keepRunning.Load() {
					a.logger.Error("stream read error", zap.Error(err))
				}
				return
			}
			evt, ok := parseCombinedKline(message)
			if !ok {
				continue
			}
			select {
			case raw <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Stop sets the cooperative stop flag; the reader goroutine exits after its
// current blocking read returns.
func (a *Adapter) Stop() {
	a.keepRunning.Store(false)
}

// unboundedRelay forwards values from in to an unbounded output channel,
// buffering in a growable slice so a slow consumer never blocks the
// websocket reader goroutine feeding in. Closes out once in closes and the
// buffer drains.
func unboundedRelay(in <-chan KlineEvent) <-chan KlineEvent {
	out := make(chan KlineEvent)
	go func() {
		defer close(out)
		var buf []KlineEvent
		for {
			if len(buf) == 0 {
				v, ok := <-in
				if !ok {
					return
				}
				buf = append(buf, v)
				continue
			}
			select {
			case v, ok := <-in:
				if !ok {
					for _, item := range buf {
						out <- item
					}
					return
				}
				buf = append(buf, v)
			case out <- buf[0]:
				buf = buf[1:]
			}
		}
	}()
	return out
}

func parseCombinedKline(message []byte) (KlineEvent, bool) {
	var envelope struct {
		Data struct {
			EventType string `json:"e"`
			Kline     struct {
				StartTime int64  `json:"t"`
				Symbol    string `json:"s"`
				Interval  string `json:"i"`
				Open      string `json:"o"`
				High      string `json:"h"`
				Low       string `json:"l"`
				Close     string `json:"c"`
				Volume    string `json:"v"`
				IsFinal   bool   `json:"x"`
			} `json:"k"`
		} `json:"data"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		return KlineEvent{}, false
	}
	if envelope.Data.EventType != "kline" {
		return KlineEvent{}, false
	}
	k := envelope.Data.Kline
	return KlineEvent{
		Symbol:  strings.ToUpper(k.Symbol),
		Time:    time.UnixMilli(k.StartTime).UTC(),
		Open:    parseFloatString(k.Open),
		High:    parseFloatString(k.High),
		Low:     parseFloatString(k.Low),
		Close:   parseFloatString(k.Close),
		Volume:  parseFloatString(k.Volume),
		IsFinal: k.IsFinal,
	}, true
}

func parseFloatField(v any) float64 {
	switch t := v.(type) {
	case string:
		return parseFloatString(t)
	case float64:
		return t
	default:
		return 0
	}
}

func parseFloatString(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
