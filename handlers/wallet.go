package handlers

import (
	"net/http"

	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/services"
	"github.com/beeseek/beeseek-go/types/requests"
	"github.com/beeseek/beeseek-go/utils"
	"go.uber.org/zap"
)

type WalletHandler interface {
	FetchUserWallets(w http.ResponseWriter, r *http.Request)
	FetchUserWallet(w http.ResponseWriter, r *http.Request)

	ServeHttp(*http.ServeMux)
}

func NewWalletHandler(accountService services.AccountService, walletService services.WalletService, middlewares MiddleWareHandler, log *zap.Logger) WalletHandler {
	return &walletHandler{
		handler: handler{accountService: accountService, walletService: walletService, middlewares: middlewares, log: log},
	}
}

type walletHandler struct {
	handler
}

func (h *walletHandler) ServeHttp(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/users/{user_id}/wallets", h.middlewares.ValidateAccessToken(h.FetchUserWallets))
	mux.HandleFunc("GET /api/v1/users/{user_id}/wallets/{currency}", h.middlewares.ValidateAccessToken(h.FetchUserWallet))
}

func (h *walletHandler) FetchUserWallets(w http.ResponseWriter, r *http.Request) {
	req, err := utils.Bind[requests.FetchUserWalletsRequest](r)
	if err != nil {
		errors.HandleBindError(err).Serialize(w)
		return
	}

	res, err := h.walletService.FetchUserWallets(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, res)
}

func (h *walletHandler) FetchUserWallet(w http.ResponseWriter, r *http.Request) {
	req, err := utils.Bind[requests.FetchUserWalletRequest](r)
	if err != nil {
		errors.HandleBindError(err).Serialize(w)
		return
	}

	res, err := h.walletService.FetchUserWallet(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, res)
}
