package models

import "time"

// SentimentResult is a classified news digest for a ticker on one UTC day.
type SentimentResult struct {
	Ticker  string
	Day     string // UTC calendar day, YYYY-MM-DD
	Summary string
	Score   float64 // -1 (bearish) .. +1 (bullish)
	AsOf    time.Time
}

// Holding is one constituent of an ETF or index basket.
type Holding struct {
	Symbol string
	Name   string
	Weight float64 // fraction of the basket, weights sum to ~1
}

// Basket describes a decomposable instrument and its top constituents.
type Basket struct {
	Ticker   string
	Holdings []Holding
}

// IsBasket reports whether the instrument decomposed into constituents.
func (b *Basket) IsBasket() bool {
	return b != nil && len(b.Holdings) > 0
}
