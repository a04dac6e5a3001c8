package api

import (
	"github.com/labstack/echo/v4"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/repository"
	xhttp "wisetrade/pkg/http"
	xlogger "wisetrade/pkg/logger"
)

// PortfolioHandler manages stored portfolios.
type PortfolioHandler struct {
	log        *xlogger.Logger
	portfolios repository.PortfolioStore
}

func NewPortfolioHandler(log *xlogger.Logger, portfolios repository.PortfolioStore) *PortfolioHandler {
	return &PortfolioHandler{log: log, portfolios: portfolios}
}

func (h *PortfolioHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/portfolio")
	g.POST("", h.Save)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

func (h *PortfolioHandler) Save(c echo.Context) error {
	req := &models.PortfolioSaveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p := &models.Portfolio{Name: req.Name, Owner: req.Owner}
	for _, pos := range req.Positions {
		p.Positions = append(p.Positions, models.Position{
			Ticker:   pos.Ticker,
			Quantity: pos.Quantity,
			AvgPrice: pos.AvgPrice,
		})
	}

	if err := h.portfolios.Save(c.Request().Context(), p); err != nil {
		h.log.Error("portfolio save error", xlogger.String("name", req.Name), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, p)
}

func (h *PortfolioHandler) List(c echo.Context) error {
	req := &models.PortfolioListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	list, err := h.portfolios.List(c.Request().Context(), req.Owner)
	if err != nil {
		h.log.Error("portfolio list error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, list, int64(len(list)))
}

func (h *PortfolioHandler) Get(c echo.Context) error {
	req := &models.PortfolioGetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p, err := h.portfolios.Get(c.Request().Context(), req.PortfolioID)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("portfolio %d not found", req.PortfolioID))
	}
	return xhttp.SuccessResponse(c, p)
}
