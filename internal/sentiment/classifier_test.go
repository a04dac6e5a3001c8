package sentiment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisetrade/internal/domain/models"
)

// fakeLLM returns canned completions in order.
type fakeLLM struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeLLM) Invoke(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func (f *fakeLLM) Name() string { return "fake" }

// memStore is an in-memory SentimentStore.
type memStore struct {
	mu sync.Mutex
	m  map[string]*models.SentimentResult
}

func newMemStore() *memStore {
	return &memStore{m: make(map[string]*models.SentimentResult)}
}

func (s *memStore) Get(ctx context.Context, ticker, day string) (*models.SentimentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.m[ticker+"|"+day]; ok {
		return r, nil
	}
	return nil, errors.New("not found")
}

func (s *memStore) Put(ctx context.Context, r *models.SentimentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[r.Ticker+"|"+r.Day] = r
	return nil
}

func TestClassifyStrictJSON(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"summary": "Earnings beat expectations", "score": 0.8}`}}
	c := NewClassifier(llm, newMemStore(), nil, nil)

	got, err := c.Classify(context.Background(), "AAPL", []string{"Apple beats Q3 estimates"})
	require.NoError(t, err)
	assert.Equal(t, "Earnings beat expectations", got.Summary)
	assert.InDelta(t, 0.8, got.Score, 1e-9)
}

func TestClassifySalvagesEmbeddedJSON(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"Sure! Here is the result:\n```json\n{\"summary\": \"Mixed signals\", \"score\": -0.1}\n```\nLet me know if you need more.",
	}}
	c := NewClassifier(llm, newMemStore(), nil, nil)

	got, err := c.Classify(context.Background(), "TSLA", []string{"Tesla recalls vehicles", "Tesla opens new factory"})
	require.NoError(t, err)
	assert.Equal(t, "Mixed signals", got.Summary)
	assert.InDelta(t, -0.1, got.Score, 1e-9)
}

func TestClassifyParseFailureNotPersisted(t *testing.T) {
	llm := &fakeLLM{responses: []string{"I cannot classify this."}}
	store := newMemStore()
	c := NewClassifier(llm, store, nil, nil)

	got, err := c.Classify(context.Background(), "NVDA", []string{"headline"})
	require.NoError(t, err)
	assert.Equal(t, "LLM parse error", got.Summary)
	assert.Zero(t, got.Score)
	assert.Empty(t, store.m, "unparseable results must not be memoized")
}

func TestClassifyEmptyHeadlines(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"summary": "x", "score": 1}`}}
	c := NewClassifier(llm, newMemStore(), nil, nil)

	got, err := c.Classify(context.Background(), "MSFT", nil)
	require.NoError(t, err)
	assert.Equal(t, "No fresh headlines", got.Summary)
	assert.Zero(t, got.Score)
	assert.Zero(t, llm.calls, "no headlines means no model call")
}

func TestClassifyMemoizedPerDay(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"summary": "Bullish", "score": 0.5}`}}
	store := newMemStore()
	c := NewClassifier(llm, store, nil, nil)

	first, err := c.Classify(context.Background(), "AMD", []string{"AMD ships new chips"})
	require.NoError(t, err)

	second, err := c.Classify(context.Background(), "AMD", []string{"different headlines entirely"})
	require.NoError(t, err)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, 1, llm.calls, "second call must be served from the store")
}

func TestClassifyClampsScore(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"summary": "Euphoric", "score": 3.5}`}}
	c := NewClassifier(llm, newMemStore(), nil, nil)

	got, err := c.Classify(context.Background(), "GME", []string{"to the moon"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.Score, 1e-9)
}

func TestClassifyLLMError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("quota exceeded")}
	c := NewClassifier(llm, newMemStore(), nil, nil)

	_, err := c.Classify(context.Background(), "AAPL", []string{"headline"})
	assert.Error(t, err)
}

func TestPromptContainsHeadlineBullets(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"summary": "ok", "score": 0}`}}
	c := NewClassifier(llm, newMemStore(), nil, nil)

	_, err := c.Classify(context.Background(), "AAPL", []string{"first headline", "second headline"})
	require.NoError(t, err)
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "- first headline")
	assert.Contains(t, llm.prompts[0], "- second headline")
	assert.Contains(t, llm.prompts[0], "AAPL")
}

// fakeHeadlines serves canned titles per ticker.
type fakeHeadlines struct {
	titles map[string][]string
}

func (f *fakeHeadlines) HeadlineTitles(ctx context.Context, ticker string, limit int) ([]string, error) {
	t, ok := f.titles[ticker]
	if !ok {
		return nil, fmt.Errorf("no news for %s", ticker)
	}
	return t, nil
}

func TestBasketAggregateMeanScore(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"summary": "A", "score": 0.6}`,
		`{"summary": "B", "score": 0.2}`,
	}}
	headlines := &fakeHeadlines{titles: map[string][]string{
		"AAPL": {"h1"},
		"MSFT": {"h2"},
	}}
	agg := NewBasketAggregator(NewClassifier(llm, newMemStore(), nil, nil), headlines, llm, 40, nil)

	basket := &models.Basket{
		Ticker: "QQQ",
		Holdings: []models.Holding{
			{Symbol: "AAPL", Weight: 0.5},
			{Symbol: "MSFT", Weight: 0.5},
		},
	}

	got, err := agg.Aggregate(context.Background(), basket)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, got.Score, 1e-9, "arithmetic mean of constituent scores")
	assert.Contains(t, got.Summary, "Aggregated sentiment for 2 constituents")
	assert.Contains(t, got.Summary, "AAPL: 0.60")
	assert.Contains(t, got.Summary, "MSFT: 0.20")
}

func TestBasketAggregateCapsConstituents(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"summary": "x", "score": 0.1}`}}
	titles := make(map[string][]string)
	holdings := make([]models.Holding, 0, 8)
	for i := 0; i < 8; i++ {
		sym := fmt.Sprintf("T%d", i)
		titles[sym] = []string{"h"}
		holdings = append(holdings, models.Holding{Symbol: sym})
	}
	agg := NewBasketAggregator(NewClassifier(llm, newMemStore(), nil, nil), &fakeHeadlines{titles: titles}, llm, 40, nil)

	_, err := agg.Aggregate(context.Background(), &models.Basket{Ticker: "BIG", Holdings: holdings})
	require.NoError(t, err)
	assert.Equal(t, 5, llm.calls, "only the top five holdings are classified")
}

func TestBasketAggregateAllFailed(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"summary": "x", "score": 0}`}}
	agg := NewBasketAggregator(NewClassifier(llm, newMemStore(), nil, nil), &fakeHeadlines{titles: nil}, llm, 40, nil)

	basket := &models.Basket{
		Ticker:   "XYZ",
		Holdings: []models.Holding{{Symbol: "AAA"}, {Symbol: "BBB"}},
	}
	got, err := agg.Aggregate(context.Background(), basket)
	require.NoError(t, err)
	assert.Zero(t, got.Score)
	assert.Equal(t, "Could not determine sentiment for 2 constituents.", got.Summary)
}

func TestResolveTickerTranslatesMultiWordNames(t *testing.T) {
	llm := &fakeLLM{responses: []string{"AAPL"}}
	agg := NewBasketAggregator(nil, nil, llm, 40, nil)

	got := agg.resolveTicker(context.Background(), models.Holding{Symbol: "Apple Inc"})
	assert.Equal(t, "AAPL", got)

	// plain symbols pass through without a model call
	calls := llm.calls
	got = agg.resolveTicker(context.Background(), models.Holding{Symbol: "MSFT"})
	assert.Equal(t, "MSFT", got)
	assert.Equal(t, calls, llm.calls)
}

func TestResolveTickerKeepsOriginalOnFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("down")}
	agg := NewBasketAggregator(nil, nil, llm, 40, nil)

	got := agg.resolveTicker(context.Background(), models.Holding{Symbol: "Berkshire Hathaway"})
	assert.Equal(t, "Berkshire Hathaway", got)
}
