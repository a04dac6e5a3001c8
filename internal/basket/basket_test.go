package basket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisetrade/internal/domain/models"
)

func TestNormalizePercentWeights(t *testing.T) {
	raw := []models.Holding{
		{Symbol: "AAPL", Weight: 12.5},
		{Symbol: "MSFT", Weight: 10.0},
		{Symbol: "NVDA", Weight: 2.5},
	}

	got := Normalize(raw)
	require.Len(t, got, 3)

	sum := 0.0
	for _, h := range got {
		sum += h.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "weights renormalize to one")
	assert.Equal(t, "AAPL", got[0].Symbol, "sorted descending by weight")
	assert.InDelta(t, 0.5, got[0].Weight, 1e-9)
	assert.InDelta(t, 0.1, got[2].Weight, 1e-9)
}

func TestNormalizeFractionWeightsUntouchedScale(t *testing.T) {
	raw := []models.Holding{
		{Symbol: "AAPL", Weight: 0.6},
		{Symbol: "MSFT", Weight: 0.2},
	}

	got := Normalize(raw)
	assert.InDelta(t, 0.75, got[0].Weight, 1e-9)
	assert.InDelta(t, 0.25, got[1].Weight, 1e-9)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Nil(t, Normalize(nil))
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	raw := []models.Holding{{Symbol: "AAPL", Weight: 50}}
	Normalize(raw)
	assert.InDelta(t, 50, raw[0].Weight, 1e-9)
}

func TestTruncateTopNRescalesKeptWeights(t *testing.T) {
	raw := make([]models.Holding, 12)
	for i := range raw {
		raw[i] = models.Holding{Symbol: string(rune('A' + i)), Weight: 1.0 / 12}
	}

	got := truncateTopN(Normalize(raw), 10)
	require.Len(t, got, 10)

	sum := 0.0
	for _, h := range got {
		sum += h.Weight
		assert.InDelta(t, 0.1, h.Weight, 1e-9)
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "kept subset carries the full unit")
}

func TestTruncateTopNNoCutLeavesWeightsAlone(t *testing.T) {
	raw := []models.Holding{
		{Symbol: "AAPL", Weight: 0.7},
		{Symbol: "MSFT", Weight: 0.3},
	}
	got := truncateTopN(raw, 10)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.7, got[0].Weight, 1e-9)
}

func TestBasketIsBasket(t *testing.T) {
	assert.False(t, (&models.Basket{Ticker: "AAPL"}).IsBasket())
	assert.True(t, (&models.Basket{Ticker: "QQQ", Holdings: []models.Holding{{Symbol: "AAPL", Weight: 1}}}).IsBasket())
	var nilBasket *models.Basket
	assert.False(t, nilBasket.IsBasket())
}
