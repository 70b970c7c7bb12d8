package handlers

import (
	"net/http"
	"strings"

	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/services"
	"github.com/beeseek/beeseek-go/types/requests"
	"github.com/beeseek/beeseek-go/utils"
	"go.uber.org/zap"
)

type SwapHandler interface {
	QuoteSwap(w http.ResponseWriter, r *http.Request)
	ExecuteSwap(w http.ResponseWriter, r *http.Request)
	FetchTicker(w http.ResponseWriter, r *http.Request)

	ServeHttp(*http.ServeMux)
}

func NewSwapHandler(accountService services.AccountService, quoteService services.QuoteService, swapService services.SwapService, assetService services.AssetService, priceFeed services.PriceFeed, middlewares MiddleWareHandler, log *zap.Logger) SwapHandler {
	return &swapHandler{
		handler: handler{
			accountService: accountService,
			quoteService:   quoteService,
			swapService:    swapService,
			assetService:   assetService,
			priceFeed:      priceFeed,
			middlewares:    middlewares,
			log:            log,
		},
	}
}

type swapHandler struct {
	handler
}

func (s *swapHandler) ServeHttp(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/users/{user_id}/swap_quotation", s.middlewares.ValidateAccessToken(s.QuoteSwap))
	mux.HandleFunc("POST /api/v1/users/{user_id}/swaps", s.middlewares.ValidateAccessToken(s.ExecuteSwap))
	mux.HandleFunc("GET /api/v1/markets/tickers/{market}", s.FetchTicker)
}

func (s *swapHandler) QuoteSwap(w http.ResponseWriter, r *http.Request) {
	req, err := utils.Bind[requests.QuoteSwapRequest](r)
	if err != nil {
		errors.HandleBindError(err).Serialize(w)
		return
	}

	res, err := s.quoteService.CreateQuotation(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, res)
}

func (s *swapHandler) ExecuteSwap(w http.ResponseWriter, r *http.Request) {
	req, err := utils.Bind[requests.ExecuteSwapRequest](r)
	if err != nil {
		errors.HandleBindError(err).Serialize(w)
		return
	}

	res, err := s.swapService.ExecuteSwap(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, res)
}

// FetchTicker serves the feed snapshot for a concatenated market symbol,
// e.g. btcusdt.
func (s *swapHandler) FetchTicker(w http.ResponseWriter, r *http.Request) {
	market := strings.ToLower(r.PathValue("market"))

	for _, asset := range s.assetService.Tradeable() {
		if !strings.HasPrefix(market, asset.Symbol) {
			continue
		}
		counter := strings.TrimPrefix(market, asset.Symbol)
		if _, err := s.assetService.Get(counter); err != nil {
			continue
		}

		buy, err := s.priceFeed.Price(asset.Symbol, counter)
		if err != nil {
			continue
		}
		sell, _ := s.priceFeed.Price(counter, asset.Symbol)

		ticker := map[string]any{
			"market": market,
			"ticker": map[string]any{
				"buy":         buy.Rate,
				"open":        buy.Rate,
				"observed_at": buy.ObservedAt,
			},
		}
		if sell != nil {
			ticker["ticker"].(map[string]any)["sell"] = sell.Rate
		}

		utils.JSON(w, 200, map[string]any{"data": ticker})
		return
	}

	errors.NewNotFoundError("market not found").Serialize(w)
}
