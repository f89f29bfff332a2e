package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/execution"
	"github.com/MLOpsArtisan/Build-HFT-Agent/internal/signal"
)

const defaultGatewayTimeout = 5 * time.Second

// Gateway is a REST client for a terminal bridge exposing tick retrieval,
// order submission, and symbol metadata.
type Gateway struct {
	baseURL string
	client  *fasthttp.Client
	timeout time.Duration
	log     zerolog.Logger
}

// NewGateway builds a client for the bridge at baseURL.
func NewGateway(baseURL string, timeout time.Duration, log zerolog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &Gateway{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &fasthttp.Client{},
		timeout: timeout,
		log:     log,
	}
}

// FetchTicks retrieves ticks observed at or after since, oldest first.
func (g *Gateway) FetchTicks(ctx context.Context, symbol string, since time.Time, max int) ([]signal.Tick, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.baseURL + "/ticks")
	req.Header.SetMethod(fasthttp.MethodGet)
	args := req.URI().QueryArgs()
	args.Set("symbol", symbol)
	args.Set("from", strconv.FormatInt(since.UnixMicro(), 10))
	args.Set("limit", strconv.Itoa(max))

	if err := g.do(ctx, req, resp); err != nil {
		return nil, fmt.Errorf("fetch ticks: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("fetch ticks: gateway status %d", resp.StatusCode())
	}
	return parseTicks(symbol, resp.Body())
}

// SubmitOrder posts a market order request to the bridge.
func (g *Gateway) SubmitOrder(ctx context.Context, order execution.OrderRequest) (*execution.Result, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.baseURL + "/order")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := g.do(ctx, req, resp); err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("submit order: gateway status %d", resp.StatusCode())
	}
	return parseResult(resp.Body()), nil
}

// SymbolConstraints reads the minimum stop level and point size for symbol.
func (g *Gateway) SymbolConstraints(ctx context.Context, symbol string) (Constraints, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.baseURL + "/symbol")
	req.Header.SetMethod(fasthttp.MethodGet)
	req.URI().QueryArgs().Set("name", symbol)

	if err := g.do(ctx, req, resp); err != nil {
		return Constraints{}, fmt.Errorf("symbol constraints: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return Constraints{}, fmt.Errorf("symbol constraints: gateway status %d", resp.StatusCode())
	}
	return parseConstraints(resp.Body())
}

// Close is a no-op; the underlying client pools its connections.
func (g *Gateway) Close() error { return nil }

func (g *Gateway) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := g.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}
	return g.client.DoTimeout(req, resp, timeout)
}

func parseTicks(symbol string, body []byte) ([]signal.Tick, error) {
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("fetch ticks: unexpected response shape")
	}
	rows := parsed.Array()
	ticks := make([]signal.Tick, 0, len(rows))
	for _, row := range rows {
		ts := tickTime(row)
		ticks = append(ticks, signal.FromQuote(
			symbol,
			row.Get("last").Float(),
			row.Get("bid").Float(),
			row.Get("ask").Float(),
			ts,
		))
	}
	return ticks, nil
}

func tickTime(row gjson.Result) time.Time {
	if msc := row.Get("time_msc"); msc.Exists() {
		return time.UnixMilli(msc.Int())
	}
	return time.Unix(row.Get("time").Int(), 0)
}

func parseResult(body []byte) *execution.Result {
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil
	}
	return &execution.Result{
		Retcode: int(parsed.Get("retcode").Int()),
		Ticket:  parsed.Get("order").Int(),
		Deal:    parsed.Get("deal").Int(),
		Price:   parsed.Get("price").Float(),
		Profit:  parsed.Get("profit").Float(),
		Comment: parsed.Get("comment").String(),
	}
}

func parseConstraints(body []byte) (Constraints, error) {
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return Constraints{}, ErrNoConstraints
	}
	return Constraints{
		StopsLevel: int(parsed.Get("trade_stops_level").Int()),
		Point:      parsed.Get("point").Float(),
	}, nil
}
