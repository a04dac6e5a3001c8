package models

import "time"

// Bar represents one OHLCV session for a ticker.
type Bar struct {
	Ticker    string
	SessionAt time.Time // UTC session date, time-of-day zeroed
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Source    string // provider that produced the row
}

// Quote is the latest observed price for a ticker.
type Quote struct {
	Ticker string
	Price  float64
	AsOf   time.Time
}

// FXRate is a spot conversion rate between two currencies.
type FXRate struct {
	Base   string
	Quote  string
	Rate   float64
	AsOf   time.Time
	Source string
}

// HotTicker is one row of the most-active screener.
type HotTicker struct {
	Ticker        string
	Name          string
	Price         float64
	ChangePercent float64
	Volume        float64
}
