package subsystems

import (
	"math"

	"github.com/ojrac/opensimplex-go"
)

// Stock is one listed symbol. Its price is a pure function of market time,
// so a batch of cycles lands on the same price as cycle-by-cycle updates.
type Stock struct {
	Symbol     string  `json:"symbol"`
	BasePrice  float64 `json:"base_price"`
	Volatility float64 `json:"volatility"` // fraction of base price the noise may swing
	Price      float64 `json:"price"`
	Shares     int64   `json:"shares"`
}

// Market holds the stock exchange account.
type Market struct {
	Stocks []*Stock `json:"stocks"`
	Cycles int64    `json:"cycles"`
	Seed   int64    `json:"seed"`

	// Frequency is noise samples per cycle; lower values give smoother prices.
	Frequency float64 `json:"frequency"`

	noise opensimplex.Noise
}

// NewMarket creates a market whose price curves are seeded deterministically.
func NewMarket(seed int64, stocks ...*Stock) *Market {
	m := &Market{
		Stocks:    stocks,
		Frequency: 0.002,
	}
	m.Seed = seed
	m.Attach()
	return m
}

// Attach rebuilds the noise field from Seed, for a market restored from a save.
func (m *Market) Attach() {
	m.noise = opensimplex.NewNormalized(m.Seed)
	m.reprice()
}

// Process advances market time.
func (m *Market) Process(numCycles int64) error {
	if numCycles <= 0 {
		return nil
	}
	m.Cycles += numCycles
	m.reprice()
	return nil
}

// Value returns the worth of all held shares at current prices.
func (m *Market) Value() float64 {
	var total float64
	for _, s := range m.Stocks {
		total += s.Price * float64(s.Shares)
	}
	return total
}

// Price curve shape: a slow trend plus two faster layers at half and quarter
// weight for intraday jitter.
var priceLayers = [...]struct{ scale, weight float64 }{
	{1, 1},
	{2, 0.5},
	{4, 0.25},
}

func (m *Market) reprice() {
	t := float64(m.Cycles) * m.Frequency
	for i, s := range m.Stocks {
		// Each symbol samples its own row of the noise field.
		swing := (m.sample(t, float64(i)*10)*2 - 1) * s.Volatility
		s.Price = math.Max(0.01, s.BasePrice*(1+swing))
	}
}

// sample returns the weighted mean of the price layers at (t, row), in [0, 1].
func (m *Market) sample(t, row float64) float64 {
	var sum, weights float64
	for _, l := range priceLayers {
		sum += m.noise.Eval2(t*l.scale, row*l.scale) * l.weight
		weights += l.weight
	}
	return sum / weights
}
