package broker

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/execution"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
)

const (
	defaultStreamURL = "wss://stream.binance.com:9443/ws"
	streamBufferCap  = 4096
)

// Stream buffers trades from a public websocket feed and serves pull-style
// tick fetches from that buffer. Order submission is paper-only: requests
// are acknowledged and logged, never routed to a venue.
type Stream struct {
	url         string
	symbol      string
	constraints Constraints
	log         zerolog.Logger

	mu     sync.Mutex
	buf    []signal.Tick
	ticket int64

	done chan struct{}
}

// NewStream connects in the background and keeps reconnecting with backoff
// until ctx is canceled.
func NewStream(ctx context.Context, url, symbol string, constraints Constraints, log zerolog.Logger) *Stream {
	if url == "" {
		url = fmt.Sprintf("%s/%s@trade", defaultStreamURL, strings.ToLower(symbol))
	}
	s := &Stream{
		url:         url,
		symbol:      symbol,
		constraints: constraints,
		log:         log,
		done:        make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.done)

	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn().Err(err).Msg("trade stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return
	}
}

func (s *Stream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.log.Info().Str("url", s.url).Str("sym", s.symbol).Msg("connected trade stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	go func() {
		<-pingCtx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		s.ingest(message)
	}
}

func (s *Stream) ingest(message []byte) {
	price := gjson.GetBytes(message, "p").Float()
	if price <= 0 {
		return
	}
	ts := time.UnixMilli(gjson.GetBytes(message, "T").Int())

	s.mu.Lock()
	s.buf = append(s.buf, signal.Tick{Symbol: s.symbol, Price: price, Ts: ts})
	if len(s.buf) > streamBufferCap {
		s.buf = s.buf[len(s.buf)-streamBufferCap:]
	}
	s.mu.Unlock()
}

// FetchTicks returns buffered ticks stamped at or after since, oldest first.
func (s *Stream) FetchTicks(_ context.Context, _ string, since time.Time, max int) ([]signal.Tick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]signal.Tick, 0, max)
	for _, tk := range s.buf {
		if tk.Ts.Before(since) {
			continue
		}
		out = append(out, tk)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out, nil
}

// SubmitOrder acknowledges the request without venue submission.
func (s *Stream) SubmitOrder(_ context.Context, order execution.OrderRequest) (*execution.Result, error) {
	s.mu.Lock()
	s.ticket++
	ticket := s.ticket
	s.mu.Unlock()

	s.log.Info().
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Float64("px", order.Price).
		Float64("sl", order.StopLoss).
		Float64("tp", order.TakeProfit).
		Msg("paper order recorded")
	return &execution.Result{
		Retcode: execution.RetcodeDone,
		Ticket:  ticket,
		Deal:    ticket,
		Price:   order.Price,
	}, nil
}

// SymbolConstraints returns the configured defaults; a public trade stream
// carries no venue metadata.
func (s *Stream) SymbolConstraints(context.Context, string) (Constraints, error) {
	return s.constraints, nil
}

// Close waits briefly for the background consumer to stop. The consumer is
// bound to the context passed at construction.
func (s *Stream) Close() error {
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
	}
	return nil
}
