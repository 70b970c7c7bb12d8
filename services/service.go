package services

import (
	"database/sql"

	tdb "github.com/tigerbeetle/tigerbeetle-go"
	"go.uber.org/zap"
)

type service struct {
	transactionDB  tdb.Client
	dataDB         *sql.DB
	accountService AccountService
	assetService   AssetService
	walletService  WalletService
	log            *zap.Logger
}
