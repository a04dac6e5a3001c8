package models

import "time"

// Article is one news headline attached to a ticker.
type Article struct {
	Ticker      string
	Title       string
	URL         string
	Publisher   string
	PublishedAt time.Time
	Source      string // vendor chain link that produced it
}

// MacroRegime classifies the broad market risk environment.
type MacroRegime string

const (
	RegimeRiskOn  MacroRegime = "RISK_ON"
	RegimeNeutral MacroRegime = "NEUTRAL"
	RegimeRiskOff MacroRegime = "RISK_OFF"
	RegimeUnknown MacroRegime = "UNKNOWN"
)

// MacroSnapshot is the macro context used during advice synthesis.
type MacroSnapshot struct {
	Regime MacroRegime
	VIX    float64 // zero when unavailable
	AsOf   time.Time
}
