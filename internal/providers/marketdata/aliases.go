package marketdata

import "strings"

// alias maps a broker CFD ticker to the symbols real data vendors know.
type alias struct {
	Yahoo string
	AV    string // Alpha Vantage has no futures, use the index instead
}

// cfdAliases translates common broker CFD names. Yahoo gets the futures
// contract, Alpha Vantage the underlying index.
var cfdAliases = map[string]alias{
	"US100":   {Yahoo: "NQ=F", AV: "NDX"},
	"US500":   {Yahoo: "ES=F", AV: "SPX"},
	"US30":    {Yahoo: "YM=F", AV: "DJI"},
	"DE40":    {Yahoo: "FDAX.DE", AV: "GDAXI"},
	"VVSM.HA": {Yahoo: "VVSM.DE", AV: "VVSM.DE"},
}

// YahooSymbol resolves ticker to the symbol Yahoo Finance understands.
func YahooSymbol(ticker string) string {
	if a, ok := cfdAliases[strings.ToUpper(ticker)]; ok {
		return a.Yahoo
	}
	return ticker
}

// AlphaVantageSymbol resolves ticker for Alpha Vantage, which rejects the
// caret prefix used for indices elsewhere.
func AlphaVantageSymbol(ticker string) string {
	if a, ok := cfdAliases[strings.ToUpper(ticker)]; ok {
		return strings.TrimPrefix(a.AV, "^")
	}
	return strings.TrimPrefix(ticker, "^")
}
