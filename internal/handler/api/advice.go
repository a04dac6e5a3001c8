package api

import (
	"github.com/labstack/echo/v4"

	"wisetrade/internal/advisor"
	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/repository"
	"wisetrade/internal/providers/fx"
	"wisetrade/internal/providers/screener"
	"wisetrade/internal/risk"
	xhttp "wisetrade/pkg/http"
	xlogger "wisetrade/pkg/logger"
)

// AdviceHandler exposes the advice pipeline over HTTP.
type AdviceHandler struct {
	log         *xlogger.Logger
	pipelines   map[string]*advisor.Pipeline
	advices     repository.AdviceStore
	portfolios  repository.PortfolioStore
	analyser    *risk.Analyser
	screener    *screener.Service
	fx          *fx.Client
	concurrency int
}

func NewAdviceHandler(
	log *xlogger.Logger,
	pipelines map[string]*advisor.Pipeline,
	advices repository.AdviceStore,
	portfolios repository.PortfolioStore,
	analyser *risk.Analyser,
	scr *screener.Service,
	fxClient *fx.Client,
	concurrency int,
) *AdviceHandler {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &AdviceHandler{
		log:         log,
		pipelines:   pipelines,
		advices:     advices,
		portfolios:  portfolios,
		analyser:    analyser,
		screener:    scr,
		fx:          fxClient,
		concurrency: concurrency,
	}
}

func (h *AdviceHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/advice/:ticker", h.Advise)
	g.GET("/advice/:ticker/history", h.History)
	g.POST("/advice/batch", h.Batch)
	g.GET("/hot", h.HotTickers)
	g.GET("/fx", h.FXRate)
	g.GET("/portfolio/:id/risk", h.PortfolioRisk)
	g.POST("/portfolio/:id/advise", h.AdvisePortfolio)
	g.GET("/portfolio/:id/advice", h.PortfolioAdvice)
}

// batchEntry is one ticker's outcome in a batch or portfolio response.
type batchEntry struct {
	Ticker string         `json:"ticker"`
	Advice *models.Advice `json:"advice,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func (h *AdviceHandler) pipeline(name string) (*advisor.Pipeline, *xhttp.AppError) {
	p, ok := h.pipelines[name]
	if !ok || p == nil {
		return nil, xhttp.BadRequestErrorf("synthesizer '%s' is not configured", name)
	}
	return p, nil
}

func (h *AdviceHandler) Advise(c echo.Context) error {
	req := &models.AdviseRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p, appErr := h.pipeline(req.Synthesizer)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	advice, err := p.Advise(c.Request().Context(), req.Ticker)
	if err != nil {
		h.log.Error("advise error", xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, advice)
}

func (h *AdviceHandler) History(c echo.Context) error {
	req := &models.AdviceHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	history, err := h.advices.History(c.Request().Context(), req.Ticker, req.Limit)
	if err != nil {
		h.log.Error("advice history error", xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, history, int64(len(history)))
}

func (h *AdviceHandler) Batch(c echo.Context) error {
	req := &models.AdviseBatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p, appErr := h.pipeline(req.Synthesizer)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	runner := advisor.NewRunner(p, h.concurrency, h.log)
	results := runner.Run(c.Request().Context(), req.Tickers)

	out := make([]batchEntry, 0, len(results))
	for _, r := range results {
		entry := batchEntry{Ticker: r.Ticker, Advice: r.Advice}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		}
		out = append(out, entry)
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *AdviceHandler) HotTickers(c echo.Context) error {
	if h.screener == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("screener is not configured"))
	}
	req := &models.HotTickersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	hot, err := h.screener.HotTickers(c.Request().Context(), req.Limit)
	if err != nil {
		h.log.Error("hot tickers error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, hot, int64(len(hot)))
}

func (h *AdviceHandler) FXRate(c echo.Context) error {
	if h.fx == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("fx is not configured"))
	}
	req := &models.FXRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rate, err := h.fx.Rate(c.Request().Context(), req.Base, req.Quote)
	if err != nil {
		h.log.Error("fx rate error",
			xlogger.String("base", req.Base),
			xlogger.String("quote", req.Quote),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, rate)
}

func (h *AdviceHandler) PortfolioRisk(c echo.Context) error {
	if h.analyser == nil || h.portfolios == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("portfolio risk is not configured"))
	}
	req := &models.PortfolioRiskRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	portfolio, err := h.portfolios.Get(c.Request().Context(), req.PortfolioID)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("portfolio %d not found", req.PortfolioID))
	}

	metrics := h.analyser.Analyse(c.Request().Context(), portfolio)
	return xhttp.SuccessResponse(c, metrics)
}

// AdvisePortfolio runs the pipeline over every position of a portfolio with
// risk metrics in scope; each advice upserts on (portfolio, ticker).
func (h *AdviceHandler) AdvisePortfolio(c echo.Context) error {
	req := &models.PortfolioAdviseRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p, appErr := h.pipeline(req.Synthesizer)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}

	runner := advisor.NewRunner(p, h.concurrency, h.log)
	results, err := runner.RunPortfolio(c.Request().Context(), req.PortfolioID)
	if err != nil {
		h.log.Error("portfolio advise error",
			xlogger.Int("portfolio", int(req.PortfolioID)),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("portfolio %d not found", req.PortfolioID))
	}

	out := make([]batchEntry, 0, len(results))
	for _, r := range results {
		entry := batchEntry{Ticker: r.Ticker, Advice: r.Advice}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		}
		out = append(out, entry)
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

// PortfolioAdvice lists the latest advice row per position.
func (h *AdviceHandler) PortfolioAdvice(c echo.Context) error {
	req := &models.PortfolioAdviceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	advice, err := h.advices.ForPortfolio(c.Request().Context(), req.PortfolioID)
	if err != nil {
		h.log.Error("portfolio advice error",
			xlogger.Int("portfolio", int(req.PortfolioID)),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, advice, int64(len(advice)))
}
