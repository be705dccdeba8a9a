// Package ingest streams kline (candle) updates from an exchange websocket
// and persists closed bars to the candle store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"strategy-tuner/internal/domain"
	"strategy-tuner/internal/observability"
	"strategy-tuner/internal/storage"
)

// FeedConfig configures websocket feed behavior.
type FeedConfig struct {
	// URL is the full websocket stream URL.
	URL string
	// Exchange names the source, used as the storage series key.
	Exchange string
	// Symbol and Timeframe identify the stream's series.
	Symbol    string
	Timeframe string

	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// FlushSize is how many closed bars buffer before a bulk insert.
	FlushSize int
	// FlushInterval forces a flush of a partial buffer.
	FlushInterval time.Duration
}

// DefaultFeedConfig returns default feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		Exchange:          "binance",
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		FlushSize:         50,
		FlushInterval:     10 * time.Second,
	}
}

// klineFrame is the wire shape of a Binance kline stream event. OHLC fields
// arrive as decimal strings and are parsed exactly, never through float64.
type klineFrame struct {
	EventType string `json:"e"`
	Kline     struct {
		OpenTimeMs int64  `json:"t"`
		Open       string `json:"o"`
		High       string `json:"h"`
		Low        string `json:"l"`
		Close      string `json:"c"`
		Closed     bool   `json:"x"`
	} `json:"k"`
}

// Feed consumes a kline stream and writes closed bars to storage.
type Feed struct {
	cfg    FeedConfig
	store  storage.CandleStore
	log    zerolog.Logger
	buffer []*domain.Candle
}

// NewFeed creates a feed. Zero-valued config fields fall back to defaults.
func NewFeed(cfg FeedConfig, store storage.CandleStore, log zerolog.Logger) *Feed {
	def := DefaultFeedConfig()
	if cfg.Exchange == "" {
		cfg.Exchange = def.Exchange
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = def.MaxReconnectDelay
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = def.FlushSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	return &Feed{cfg: cfg, store: store, log: log}
}

// Run consumes the stream until the context is cancelled, reconnecting with
// exponential backoff on connection failures. The remaining buffer is flushed
// before returning.
func (f *Feed) Run(ctx context.Context) error {
	if f.cfg.URL == "" {
		return fmt.Errorf("ingest feed url is required")
	}

	delay := f.cfg.ReconnectDelay
	for {
		err := f.consume(ctx)
		if ctx.Err() != nil {
			f.flush(context.Background())
			return ctx.Err()
		}

		f.log.Warn().Err(err).Dur("retry_in", delay).Msg("stream dropped, reconnecting")
		observability.RecordIngestReconnect()

		select {
		case <-ctx.Done():
			f.flush(context.Background())
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > f.cfg.MaxReconnectDelay {
			delay = f.cfg.MaxReconnectDelay
		}
	}
}

// consume runs one connection lifetime: dial, read frames, buffer closed
// bars, flush by size or timer.
func (f *Feed) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", f.cfg.URL, err)
	}
	defer conn.Close()

	f.log.Info().Str("url", f.cfg.URL).Str("symbol", f.cfg.Symbol).Str("timeframe", f.cfg.Timeframe).Msg("stream connected")

	// Close the connection on cancel so ReadMessage unblocks.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	flushTimer := time.NewTicker(f.cfg.FlushInterval)
	defer flushTimer.Stop()

	for {
		select {
		case <-flushTimer.C:
			f.flush(ctx)
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		candle, closed, err := parseKline(payload)
		if err != nil {
			f.log.Warn().Err(err).Msg("skipping malformed kline frame")
			continue
		}
		if !closed {
			continue
		}

		f.buffer = append(f.buffer, candle)
		if len(f.buffer) >= f.cfg.FlushSize {
			f.flush(ctx)
		}
	}
}

// flush bulk-inserts the buffered bars. A failed insert keeps the buffer for
// the next attempt, so a transient storage outage loses nothing.
func (f *Feed) flush(ctx context.Context) {
	if len(f.buffer) == 0 {
		return
	}
	if err := f.store.InsertBulk(ctx, f.cfg.Exchange, f.cfg.Symbol, f.cfg.Timeframe, f.buffer); err != nil {
		f.log.Error().Err(err).Int("buffered", len(f.buffer)).Msg("candle flush failed, keeping buffer")
		return
	}
	observability.RecordCandlesIngested(len(f.buffer))
	f.log.Debug().Int("count", len(f.buffer)).Msg("candles stored")
	f.buffer = f.buffer[:0]
}

// parseKline decodes one stream frame. Non-kline events are reported as
// not-closed and skipped upstream.
func parseKline(payload []byte) (*domain.Candle, bool, error) {
	var frame klineFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, false, fmt.Errorf("decode frame: %w", err)
	}
	if frame.EventType != "kline" {
		return nil, false, nil
	}
	if !frame.Kline.Closed {
		return nil, false, nil
	}

	open, err := decimal.NewFromString(frame.Kline.Open)
	if err != nil {
		return nil, false, fmt.Errorf("parse open %q: %w", frame.Kline.Open, err)
	}
	high, err := decimal.NewFromString(frame.Kline.High)
	if err != nil {
		return nil, false, fmt.Errorf("parse high %q: %w", frame.Kline.High, err)
	}
	low, err := decimal.NewFromString(frame.Kline.Low)
	if err != nil {
		return nil, false, fmt.Errorf("parse low %q: %w", frame.Kline.Low, err)
	}
	closeP, err := decimal.NewFromString(frame.Kline.Close)
	if err != nil {
		return nil, false, fmt.Errorf("parse close %q: %w", frame.Kline.Close, err)
	}

	return &domain.Candle{
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closeP,
		TimestampMs: frame.Kline.OpenTimeMs,
	}, true, nil
}
