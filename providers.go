package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/MadAppGang/httplog"
	lzap "github.com/MadAppGang/httplog/zap"
	gorilla "github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/beeseek/beeseek-go/config"
	"github.com/beeseek/beeseek-go/handlers"
)

func NewHttpServer(lc fx.Lifecycle, mux *http.ServeMux, log *zap.Logger) *http.Server {
	handler := httplog.LoggerWithConfig(httplog.LoggerConfig{
		Formatter: lzap.DefaultZapLogger(log, zapcore.InfoLevel, ""),
	})(mux)

	srv := &http.Server{
		Addr: config.ADDR,
		Handler: gorilla.RecoveryHandler()(
			gorilla.CORS(gorilla.AllowedOrigins([]string{"*"}))(handler),
		),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			fmt.Println("Starting HTTP server at", srv.Addr)
			go srv.Serve(ln)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return srv
}

func NewServeMux(routers []handlers.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	for _, router := range routers {
		router.ServeHttp(mux)
	}
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}
