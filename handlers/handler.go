package handlers

import (
	"net/http"

	"github.com/beeseek/beeseek-go/services"
	"go.uber.org/zap"
)

type handler struct {
	accountService services.AccountService
	walletService  services.WalletService
	quoteService   services.QuoteService
	swapService    services.SwapService
	assetService   services.AssetService
	priceFeed      services.PriceFeed
	middlewares    MiddleWareHandler

	log *zap.Logger
}

type Handler interface {
	ServeHttp(*http.ServeMux)
}
