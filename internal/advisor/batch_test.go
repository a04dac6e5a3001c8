package advisor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisetrade/internal/domain/models"
)

// switchSynth answers per ticker so batch tests can mix outcomes.
type switchSynth struct {
	mu      sync.Mutex
	actions map[string]models.Action
	fail    map[string]bool
}

func (s *switchSynth) Synthesize(ctx context.Context, state *models.PipelineState) (*models.Advice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[state.Ticker] {
		return nil, errors.New("synthesis refused")
	}
	action := s.actions[state.Ticker]
	if action == "" {
		action = models.ActionHold
	}
	return &models.Advice{Ticker: state.Ticker, Action: action, Confidence: 0.7}, nil
}

func (s *switchSynth) Name() string { return "switch" }

type captureNotifier struct {
	mu       sync.Mutex
	received []*models.Advice
	calls    int
}

func (n *captureNotifier) Notify(ctx context.Context, advice []*models.Advice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.received = append(n.received, advice...)
	return nil
}

func (n *captureNotifier) Name() string { return "capture" }

func newBatchPipeline(synth *switchSynth) *Pipeline {
	return NewPipeline(Config{}, Deps{Synth: synth})
}

func TestRunnerResultsInInputOrder(t *testing.T) {
	synth := &switchSynth{actions: map[string]models.Action{
		"AAPL": models.ActionBuy,
		"MSFT": models.ActionSell,
		"TSLA": models.ActionHold,
	}}
	r := NewRunner(newBatchPipeline(synth), 2, nil)

	results := r.Run(context.Background(), []string{"AAPL", "MSFT", "TSLA"})
	require.Len(t, results, 3)
	assert.Equal(t, "AAPL", results[0].Ticker)
	assert.Equal(t, models.ActionBuy, results[0].Advice.Action)
	assert.Equal(t, "MSFT", results[1].Ticker)
	assert.Equal(t, models.ActionSell, results[1].Advice.Action)
	assert.Equal(t, "TSLA", results[2].Ticker)
}

func TestRunnerIsolatesFailures(t *testing.T) {
	synth := &switchSynth{
		actions: map[string]models.Action{"MSFT": models.ActionBuy},
		fail:    map[string]bool{"AAPL": true},
	}
	r := NewRunner(newBatchPipeline(synth), 1, nil)

	results := r.Run(context.Background(), []string{"AAPL", "MSFT"})
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.Nil(t, results[0].Advice)
	require.NoError(t, results[1].Err)
	assert.Equal(t, models.ActionBuy, results[1].Advice.Action)
}

func TestRunnerNotifiesActionableOnly(t *testing.T) {
	synth := &switchSynth{actions: map[string]models.Action{
		"AAPL": models.ActionBuy,
		"MSFT": models.ActionHold,
		"TSLA": models.ActionSell,
	}}
	notifier := &captureNotifier{}
	r := NewRunner(newBatchPipeline(synth), 2, nil, notifier)

	r.Run(context.Background(), []string{"AAPL", "MSFT", "TSLA"})

	assert.Equal(t, 1, notifier.calls)
	require.Len(t, notifier.received, 2)
	tickers := []string{notifier.received[0].Ticker, notifier.received[1].Ticker}
	assert.ElementsMatch(t, []string{"AAPL", "TSLA"}, tickers)
}

func TestRunnerWithholdsNotifyOnPartialFailure(t *testing.T) {
	synth := &switchSynth{
		actions: map[string]models.Action{"MSFT": models.ActionBuy},
		fail:    map[string]bool{"AAPL": true},
	}
	notifier := &captureNotifier{}
	r := NewRunner(newBatchPipeline(synth), 2, nil, notifier)

	results := r.Run(context.Background(), []string{"AAPL", "MSFT"})

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Equal(t, models.ActionBuy, results[1].Advice.Action)

	assert.Zero(t, notifier.calls, "an incomplete batch is never announced")
	assert.Empty(t, notifier.received)
}

func TestRunnerPortfolioKeysAdvicePerPosition(t *testing.T) {
	vol := 0.22
	synth := &switchSynth{actions: map[string]models.Action{
		"AAPL": models.ActionBuy,
		"MSFT": models.ActionSell,
	}}
	store := &memAdviceStore{}
	risk := &fakeRisk{metrics: &models.RiskMetrics{Volatility: &vol}}
	p := NewPipeline(Config{}, Deps{
		Risk: risk,
		Portfolios: &fakePortfolios{portfolio: &models.Portfolio{
			ID:   3,
			Name: "growth",
			Positions: []models.Position{
				{Ticker: "AAPL", Quantity: 10},
				{Ticker: "MSFT", Quantity: 5},
				{Ticker: "AAPL", Quantity: 2}, // second lot, advised once
			},
		}},
		Synth:   synth,
		Advices: store,
	})
	r := NewRunner(p, 2, nil)

	results, err := r.RunPortfolio(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, results, 2, "duplicate position tickers collapse")

	tickers := []string{results[0].Ticker, results[1].Ticker}
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, tickers)

	require.Len(t, store.saved, 2)
	for _, a := range store.saved {
		assert.Equal(t, uint(3), a.PortfolioID)
	}
	assert.Equal(t, 2, risk.calls, "risk stage runs for every position")
}

func TestRunnerPortfolioWithoutStore(t *testing.T) {
	r := NewRunner(newBatchPipeline(&switchSynth{}), 2, nil)

	_, err := r.RunPortfolio(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portfolio store")
}

func TestRunnerPortfolioNotFound(t *testing.T) {
	p := NewPipeline(Config{}, Deps{
		Portfolios: &fakePortfolios{err: errors.New("portfolio 9 not found")},
		Synth:      &switchSynth{},
	})
	r := NewRunner(p, 2, nil)

	_, err := r.RunPortfolio(context.Background(), 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRunnerSkipsNotifyWhenAllHold(t *testing.T) {
	synth := &switchSynth{}
	notifier := &captureNotifier{}
	r := NewRunner(newBatchPipeline(synth), 2, nil, notifier)

	r.Run(context.Background(), []string{"AAPL", "MSFT"})
	assert.Zero(t, notifier.calls)
}

func TestRunnerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(newBatchPipeline(&switchSynth{}), 2, nil)
	results := r.Run(ctx, []string{"AAPL", "MSFT"})

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Error(t, res.Err)
	}
}
