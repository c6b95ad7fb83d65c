package market

import (
	"math/rand"
	"sync"
	"time"
)

// MockSource produces plausible random snapshots for dry runs.
type MockSource struct {
	mu     sync.Mutex
	prices map[string]float64
	rng    *rand.Rand
}

// NewMockSource seeds a random-walk source with starting prices.
func NewMockSource(prices map[string]float64) *MockSource {
	cp := make(map[string]float64, len(prices))
	for k, v := range prices {
		cp[k] = v
	}
	return &MockSource{
		prices: cp,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Snapshot random-walks the price and derives indicator values around it.
func (m *MockSource) Snapshot(symbol string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	price, ok := m.prices[symbol]
	if !ok {
		price = 100.0
	}
	price *= 1 + (m.rng.Float64()-0.5)*0.01
	m.prices[symbol] = price

	rsi := 30 + m.rng.Float64()*40
	macd := (m.rng.Float64() - 0.5) * price * 0.002
	trend := TrendNeutral
	switch {
	case rsi > 58:
		trend = TrendBullish
	case rsi < 42:
		trend = TrendBearish
	}

	return Snapshot{
		Symbol:        symbol,
		Price:         price,
		RSI:           rsi,
		MACD:          macd,
		MACDSignal:    macd * (0.8 + m.rng.Float64()*0.4),
		MACDHist:      macd * 0.2,
		ATRPercent:    0.5 + m.rng.Float64()*2.5,
		Trend:         trend,
		TrendStrength: m.rng.Float64() * 0.6,
		MA20:          price * (1 + (m.rng.Float64()-0.5)*0.01),
		MA50:          price * (1 + (m.rng.Float64()-0.5)*0.02),
		BollUpper:     price * 1.02,
		BollMid:       price,
		BollLower:     price * 0.98,
		VolumeRatio:   0.6 + m.rng.Float64(),
		Support:       price * 0.97,
		Resistance:    price * 1.03,
		SpreadPercent: 0.02 + m.rng.Float64()*0.05,
		Timestamp:     time.Now(),
	}, nil
}
