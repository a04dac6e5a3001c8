package models

// Requests for the advice HTTP endpoints. Defined in domain for consistency and reuse.

type AdviseRequest struct {
	Ticker      string `param:"ticker" query:"ticker" json:"ticker" validate:"required,min=1,max=16"`
	Synthesizer string `query:"synthesizer" json:"synthesizer" default:"rules" validate:"oneof=rules llm"`
	Refresh     bool   `query:"refresh" json:"refresh"`
}

type AdviseBatchRequest struct {
	Tickers     []string `json:"tickers" validate:"required,min=1,max=50,dive,min=1,max=16"`
	Synthesizer string   `json:"synthesizer" default:"rules" validate:"oneof=rules llm"`
}

type AdviceHistoryRequest struct {
	Ticker string `param:"ticker" query:"ticker" json:"ticker" validate:"required,min=1,max=16"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=200"`
}

type HotTickersRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=50"`
}

type FXRequest struct {
	Base  string `query:"base" json:"base" validate:"required,len=3"`
	Quote string `query:"quote" json:"quote" validate:"required,len=3"`
}

type PortfolioRiskRequest struct {
	PortfolioID uint `param:"id" json:"portfolio_id" validate:"required,gte=1"`
}

type PortfolioAdviseRequest struct {
	PortfolioID uint   `param:"id" json:"portfolio_id" validate:"required,gte=1"`
	Synthesizer string `query:"synthesizer" json:"synthesizer" default:"rules" validate:"oneof=rules llm"`
}

type PortfolioAdviceRequest struct {
	PortfolioID uint `param:"id" json:"portfolio_id" validate:"required,gte=1"`
}

type PortfolioSaveRequest struct {
	Name      string                 `json:"name" validate:"required,min=1,max=128"`
	Owner     string                 `json:"owner" validate:"max=128"`
	Positions []PortfolioPositionReq `json:"positions" validate:"required,min=1,max=200,dive"`
}

type PortfolioPositionReq struct {
	Ticker   string  `json:"ticker" validate:"required,min=1,max=16"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
	AvgPrice float64 `json:"avg_price" validate:"required,gt=0"`
}

type PortfolioListRequest struct {
	Owner string `query:"owner" json:"owner" validate:"max=128"`
}

type PortfolioGetRequest struct {
	PortfolioID uint `param:"id" json:"portfolio_id" validate:"required,gte=1"`
}
