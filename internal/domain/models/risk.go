package models

// RiskMetrics summarizes trailing portfolio risk. Fields that could not be
// computed are carried as nil rather than zero so downstream consumers can
// tell "no beta" from "beta of zero".
type RiskMetrics struct {
	Weights    map[string]float64 `json:"weights,omitempty"`    // cost-basis position weights
	Volatility *float64           `json:"volatility,omitempty"` // annualized, decimal
	Beta       *float64           `json:"beta,omitempty"`       // against the benchmark
	VaR95      *float64           `json:"var_95,omitempty"`     // one-day, 95% confidence
	SampleSize int                `json:"sample_size,omitempty"`
	Note       string             `json:"note,omitempty"` // why metrics are missing
}

// Position is one holding of a portfolio.
type Position struct {
	Ticker   string
	Quantity float64
	AvgPrice float64
}

// Portfolio is a named set of positions belonging to an owner.
type Portfolio struct {
	ID        uint
	Name      string
	Owner     string
	Positions []Position
}
