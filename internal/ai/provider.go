package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"alphapilot/internal/market"
	"alphapilot/pkg/config"
	"alphapilot/pkg/logger"
)

// Gateway performs one chat-completion round trip to one provider.
type Gateway struct {
	prov config.Provider
	http *http.Client
	log  *logrus.Entry
}

// NewGateway builds a gateway for one provider. Connect and header
// timeouts come from the provider baseline; the total timeout is applied
// per call via context so it can adapt.
func NewGateway(p config.Provider) *Gateway {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: time.Duration(p.ConnectTimeout * float64(time.Second)),
		}).DialContext,
		ResponseHeaderTimeout: time.Duration(p.ResponseTimeout * float64(time.Second)),
		MaxIdleConnsPerHost:   4,
	}
	return &Gateway{
		prov: p,
		http: &http.Client{Transport: transport},
		log:  logger.WithModule("ai").WithField("provider", p.Name),
	}
}

// Name returns the provider name.
func (g *Gateway) Name() string { return g.prov.Name }

// Provider returns the provider config.
func (g *Gateway) Provider() config.Provider { return g.prov }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// decision is the strict JSON shape providers must answer with.
type decision struct {
	Signal     string `json:"signal"`
	Confidence string `json:"confidence"`
	Reason     string `json:"reason"`
}

// Fetch asks the provider for a signal on the snapshot's symbol. totalTimeout
// caps the whole round trip. Every failure comes back as a *GatewayError.
func (g *Gateway) Fetch(ctx context.Context, snap market.Snapshot, totalTimeout time.Duration) (*AISignal, error) {
	ctx, cancel := context.WithTimeout(ctx, totalTimeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: g.prov.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(snap)},
		},
		Temperature: 0.1,
		MaxTokens:   400,
	})
	if err != nil {
		return nil, g.fail(KindPayload, 0, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.prov.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, g.fail(KindPayload, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.prov.APIKey())
	req.Header.Set("User-Agent", "alphapilot/1.0")

	start := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, g.classifyTransport(err)
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		// Drain a little for the error message, then classify.
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, g.classifyStatus(resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, g.fail(KindPayload, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, g.fail(KindParse, resp.StatusCode, fmt.Errorf("decode envelope: %w", err))
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return nil, g.fail(KindPayload, resp.StatusCode, errors.New("empty completion"))
	}

	sig, err := g.parseDecision(cr.Choices[0].Message.Content, snap.Symbol)
	if err != nil {
		return nil, err
	}
	sig.Latency = latency
	sig.Timestamp = time.Now()
	return sig, nil
}

// parseDecision applies the strict schema: known signal class, known
// confidence tier. Anything else is rejected, never guessed at.
func (g *Gateway) parseDecision(content, symbol string) (*AISignal, error) {
	var d decision
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &d); err != nil {
		return nil, g.fail(KindParse, 0, fmt.Errorf("decode decision: %w", err))
	}

	sig, ok := ParseSignal(strings.ToUpper(strings.TrimSpace(d.Signal)))
	if !ok {
		return nil, g.fail(KindParse, 0, fmt.Errorf("unknown signal %q", d.Signal))
	}
	conf, ok := confidenceTiers[strings.ToUpper(strings.TrimSpace(d.Confidence))]
	if !ok {
		return nil, g.fail(KindParse, 0, fmt.Errorf("unknown confidence tier %q", d.Confidence))
	}

	return &AISignal{
		Provider:   g.prov.Name,
		Symbol:     symbol,
		Signal:     sig,
		Confidence: conf,
		Reason:     strings.TrimSpace(d.Reason),
	}, nil
}

func (g *Gateway) classifyTransport(err error) *GatewayError {
	kind := KindConnection
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		kind = KindTimeout
	}
	return g.fail(kind, 0, err)
}

func (g *Gateway) classifyStatus(status int, body string) *GatewayError {
	err := fmt.Errorf("http %d: %s", status, body)
	switch {
	case status == http.StatusTooManyRequests:
		return g.fail(KindRateLimited, status, err)
	case status >= 400 && status < 500:
		return g.fail(KindAuth, status, err)
	default:
		return g.fail(KindConnection, status, err)
	}
}

func (g *Gateway) fail(kind ErrorKind, status int, err error) *GatewayError {
	return &GatewayError{Provider: g.prov.Name, Kind: kind, Status: status, Err: err}
}

// stripCodeFence removes a Markdown ```json fence if the model wrapped its
// answer in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

const systemPrompt = `You are a cryptocurrency trading analyst. Answer with strict JSON only, no prose:
{"signal": "BUY"|"SELL"|"HOLD", "confidence": "HIGH"|"MEDIUM"|"LOW", "reason": "<one sentence>"}`

func buildPrompt(s market.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\nPrice: %.6f\n", s.Symbol, s.Price)
	fmt.Fprintf(&b, "RSI(14): %.2f\nMACD: %.6f  Signal: %.6f  Hist: %.6f\n", s.RSI, s.MACD, s.MACDSignal, s.MACDHist)
	fmt.Fprintf(&b, "ATR%%: %.2f\nTrend: %s (strength %.2f)\n", s.ATRPercent, s.Trend, s.TrendStrength)
	fmt.Fprintf(&b, "MA20: %.6f  MA50: %.6f\n", s.MA20, s.MA50)
	fmt.Fprintf(&b, "Bollinger: %.6f / %.6f / %.6f\n", s.BollUpper, s.BollMid, s.BollLower)
	fmt.Fprintf(&b, "Volume ratio: %.2f\nSupport: %.6f  Resistance: %.6f\n", s.VolumeRatio, s.Support, s.Resistance)
	b.WriteString("Give your trading signal for the next interval.")
	return b.String()
}
