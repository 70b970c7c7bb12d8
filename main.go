package main

import (
	"net/http"

	"github.com/beeseek/beeseek-go/db"
	"github.com/beeseek/beeseek-go/handlers"
	"github.com/beeseek/beeseek-go/services"
	"github.com/madflojo/tasks"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	fx.New(
		fx.Provide(
			NewHttpServer,
			fx.Annotate(
				NewServeMux,
				fx.ParamTags(`group:"handlers"`),
			),
			fx.Annotate(
				handlers.NewAccountHandler,
				fx.As(new(handlers.Handler)),
				fx.ResultTags(`group:"handlers"`),
			),
			fx.Annotate(
				handlers.NewWalletHandler,
				fx.As(new(handlers.Handler)),
				fx.ResultTags(`group:"handlers"`),
			),
			fx.Annotate(
				handlers.NewSwapHandler,
				fx.As(new(handlers.Handler)),
				fx.ResultTags(`group:"handlers"`),
			),
			handlers.NewMiddlewareHandler,
			services.NewAssetService,
			fx.Annotate(
				services.NewPriceFeedService,
				fx.As(new(services.PriceFeed)),
			),
			services.NewRouteFinder,
			services.NewQuoteService,
			fx.Annotate(
				services.NewWalletService,
				fx.As(new(services.WalletService)),
				fx.As(new(services.Ledger)),
			),
			services.NewResultStore,
			services.NewSwapService,
			services.NewAccountService,
			db.GetDataDBConnection,
			db.GetTxDBConnection,
			db.GetRedisConnection,
			tasks.New,
			zap.NewProduction,
		),
		fx.Invoke(func(*http.Server) {}),
	).Run()
}
