package handlers

import (
	"net/http"

	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/services"
	"github.com/beeseek/beeseek-go/types/requests"
	"github.com/beeseek/beeseek-go/utils"
	"go.uber.org/zap"
)

type AccountHandler interface {
	CreateAccount(w http.ResponseWriter, r *http.Request)
	FetchAccountDetails(w http.ResponseWriter, r *http.Request)

	ServeHttp(*http.ServeMux)
}

func NewAccountHandler(accountService services.AccountService, middlewares MiddleWareHandler, log *zap.Logger) AccountHandler {
	return &accountHandler{
		handler: handler{accountService: accountService, middlewares: middlewares, log: log},
	}
}

type accountHandler struct {
	handler
}

func (a *accountHandler) ServeHttp(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/users", a.CreateAccount)
	mux.HandleFunc("GET /api/v1/users/{user_id}", a.middlewares.ValidateAccessToken(a.FetchAccountDetails))
}

func (a *accountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	req, err := utils.Bind[requests.CreateAccountRequest](r)
	if err != nil {
		errors.HandleBindError(err).Serialize(w)
		return
	}

	res, err := a.accountService.CreateAccount(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 201, res)
}

func (a *accountHandler) FetchAccountDetails(w http.ResponseWriter, r *http.Request) {
	req, err := utils.Bind[requests.FetchAccountDetailsRequest](r)
	if err != nil {
		errors.HandleBindError(err).Serialize(w)
		return
	}

	res, err := a.accountService.FetchAccountDetails(r.Context(), req)
	if err != nil {
		errors.AsAppError(err).Serialize(w)
		return
	}

	utils.JSON(w, 200, res)
}
