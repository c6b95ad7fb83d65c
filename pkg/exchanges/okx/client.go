package okx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"alphapilot/pkg/exchanges/common"
)

// Config holds OKX v5 API credentials.
type Config struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	Passphrase string
	Simulated  bool
}

// Client talks to the OKX v5 REST API with HMAC-signed requests.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	rateLimiter *common.RateLimiter
}

// NewClient creates an OKX client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.okx.com"
	}
	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		rateLimiter: common.NewRateLimiter(60, 2*time.Second),
	}
}

// envelope is the OKX v5 response wrapper.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) sign(timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*envelope, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OK-ACCESS-KEY", c.cfg.APIKey)
	req.Header.Set("OK-ACCESS-SIGN", c.sign(timestamp, method, path, string(body)))
	req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.cfg.Passphrase)
	if c.cfg.Simulated {
		req.Header.Set("x-simulated-trading", "1")
	}

	c.rateLimiter.Record()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("okx %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("okx read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("okx http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("okx decode envelope: %w", err)
	}
	return &env, nil
}

type orderAck struct {
	OrdID   string `json:"ordId"`
	AlgoID  string `json:"algoId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
	ClOrdID string `json:"clOrdId"`
}

// SubmitOrder places a cross-margin market order. A venue rejection comes
// back as Accepted=false with a nil error; errors mean the call itself failed.
func (c *Client) SubmitOrder(ctx context.Context, req common.OrderRequest) (common.OrderResult, error) {
	payload := map[string]string{
		"instId":  req.Symbol,
		"tdMode":  "cross",
		"side":    string(req.Side),
		"ordType": "market",
		"sz":      formatQty(req.Qty),
	}
	if req.ReduceOnly {
		payload["reduceOnly"] = "true"
	}
	if req.ClientID != "" {
		payload["clOrdId"] = req.ClientID
	}

	env, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", []map[string]string{payload})
	if err != nil {
		return common.OrderResult{}, err
	}
	return ackResult(env)
}

// SubmitAlgoOrder places a trigger order that fires at market price.
func (c *Client) SubmitAlgoOrder(ctx context.Context, req common.AlgoOrderRequest) (common.OrderResult, error) {
	payload := map[string]string{
		"instId":        req.Symbol,
		"tdMode":        "cross",
		"side":          string(req.Side),
		"ordType":       "trigger",
		"sz":            formatQty(req.Qty),
		"triggerPx":     formatPx(req.TriggerPrice),
		"orderPx":       "-1", // market order on trigger
		"reduceOnly":    "true",
		"triggerPxType": "last",
	}
	if req.ClientID != "" {
		payload["algoClOrdId"] = req.ClientID
	}

	env, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order-algo", []map[string]string{payload})
	if err != nil {
		return common.OrderResult{}, err
	}
	return ackResult(env)
}

func ackResult(env *envelope) (common.OrderResult, error) {
	var acks []orderAck
	if err := json.Unmarshal(env.Data, &acks); err != nil || len(acks) == 0 {
		// Top-level rejection without per-order detail.
		return common.OrderResult{Accepted: env.Code == "0", Code: env.Code, Message: env.Msg}, nil
	}
	ack := acks[0]
	id := ack.OrdID
	if id == "" {
		id = ack.AlgoID
	}
	accepted := env.Code == "0" && (ack.SCode == "" || ack.SCode == "0")
	code := ack.SCode
	if code == "" {
		code = env.Code
	}
	msg := ack.SMsg
	if msg == "" {
		msg = env.Msg
	}
	return common.OrderResult{OrderID: id, Accepted: accepted, Code: code, Message: msg}, nil
}

type algoRow struct {
	AlgoID    string `json:"algoId"`
	InstID    string `json:"instId"`
	Side      string `json:"side"`
	TriggerPx string `json:"triggerPx"`
	Sz        string `json:"sz"`
}

// PendingAlgoOrders lists open trigger orders for a symbol.
func (c *Client) PendingAlgoOrders(ctx context.Context, symbol string) ([]common.AlgoOrder, error) {
	path := "/api/v5/trade/orders-algo-pending?ordType=trigger&instId=" + symbol
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if env.Code != "0" {
		return nil, fmt.Errorf("okx orders-algo-pending: code %s: %s", env.Code, env.Msg)
	}

	var rows []algoRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("okx decode algo orders: %w", err)
	}
	out := make([]common.AlgoOrder, 0, len(rows))
	for _, r := range rows {
		out = append(out, common.AlgoOrder{
			AlgoID:       r.AlgoID,
			Symbol:       r.InstID,
			Side:         common.Side(r.Side),
			TriggerPrice: parseFloat(r.TriggerPx),
			Qty:          parseFloat(r.Sz),
		})
	}
	return out, nil
}

// CancelAlgoOrders cancels trigger orders by id.
func (c *Client) CancelAlgoOrders(ctx context.Context, symbol string, algoIDs []string) error {
	if len(algoIDs) == 0 {
		return nil
	}
	payload := make([]map[string]string, 0, len(algoIDs))
	for _, id := range algoIDs {
		payload = append(payload, map[string]string{"algoId": id, "instId": symbol})
	}
	env, err := c.do(ctx, http.MethodPost, "/api/v5/trade/cancel-algos", payload)
	if err != nil {
		return err
	}
	if env.Code != "0" {
		return fmt.Errorf("okx cancel-algos: code %s: %s", env.Code, env.Msg)
	}
	return nil
}

type positionRow struct {
	InstID  string `json:"instId"`
	Pos     string `json:"pos"`
	PosSide string `json:"posSide"`
	AvgPx   string `json:"avgPx"`
	CTime   string `json:"cTime"`
}

// Positions lists open positions. Net mode reports shorts as negative pos.
func (c *Client) Positions(ctx context.Context) ([]common.Position, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/v5/account/positions", nil)
	if err != nil {
		return nil, err
	}
	if env.Code != "0" {
		return nil, fmt.Errorf("okx positions: code %s: %s", env.Code, env.Msg)
	}

	var rows []positionRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, fmt.Errorf("okx decode positions: %w", err)
	}
	out := make([]common.Position, 0, len(rows))
	for _, r := range rows {
		qty := parseFloat(r.Pos)
		if qty == 0 {
			continue
		}
		side := common.SideBuy
		if qty < 0 || r.PosSide == "short" {
			side = common.SideSell
			if qty < 0 {
				qty = -qty
			}
		}
		var opened time.Time
		if ms := parseFloat(r.CTime); ms > 0 {
			opened = time.UnixMilli(int64(ms))
		}
		out = append(out, common.Position{
			Symbol:     r.InstID,
			Side:       side,
			Qty:        qty,
			EntryPrice: parseFloat(r.AvgPx),
			OpenedAt:   opened,
		})
	}
	return out, nil
}

type instrumentRow struct {
	InstID string `json:"instId"`
	LotSz  string `json:"lotSz"`
	MinSz  string `json:"minSz"`
	CtVal  string `json:"ctVal"`
	TickSz string `json:"tickSz"`
}

// Instrument fetches sizing rules for a swap symbol.
func (c *Client) Instrument(ctx context.Context, symbol string) (common.Instrument, error) {
	path := "/api/v5/public/instruments?instType=SWAP&instId=" + symbol
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return common.Instrument{}, err
	}
	if env.Code != "0" {
		return common.Instrument{}, fmt.Errorf("okx instruments: code %s: %s", env.Code, env.Msg)
	}

	var rows []instrumentRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return common.Instrument{}, fmt.Errorf("okx decode instruments: %w", err)
	}
	if len(rows) == 0 {
		return common.Instrument{}, fmt.Errorf("okx instrument %s not found", symbol)
	}
	r := rows[0]
	return common.Instrument{
		Symbol:   r.InstID,
		LotSize:  parseFloat(r.LotSz),
		MinSize:  parseFloat(r.MinSz),
		CtVal:    parseFloat(r.CtVal),
		TickSize: parseFloat(r.TickSz),
	}, nil
}

type balanceDetail struct {
	Ccy string `json:"ccy"`
	Eq  string `json:"eq"`
}

type balanceRow struct {
	Details []balanceDetail `json:"details"`
}

// Balance returns USDT equity.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/v5/account/balance?ccy=USDT", nil)
	if err != nil {
		return 0, err
	}
	if env.Code != "0" {
		return 0, fmt.Errorf("okx balance: code %s: %s", env.Code, env.Msg)
	}

	var rows []balanceRow
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return 0, fmt.Errorf("okx decode balance: %w", err)
	}
	for _, row := range rows {
		for _, d := range row.Details {
			if d.Ccy == "USDT" {
				return parseFloat(d.Eq), nil
			}
		}
	}
	return 0, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func formatPx(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
