package services

import (
	"context"
	"database/sql"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/models"
)

// AssetService exposes the read-only asset catalog. Assets are created and
// retired by an external catalog process; this service only reads them, once
// at startup, and serves them from memory.
type AssetService interface {
	Get(symbol string) (*models.Asset, error)
	Tradeable() []*models.Asset
	Ledgers() map[uint32]string
	LedgerIDs() map[string]uint32
	Reload(ctx context.Context) error
}

func NewAssetService(dataDatabase *sql.DB, log *zap.Logger) AssetService {
	a := &assetService{
		service: service{
			dataDB: dataDatabase,
			log:    log,
		},
		assets: map[string]*models.Asset{},
	}

	if err := a.Reload(context.Background()); err != nil {
		panic(err)
	}

	return a
}

type assetService struct {
	service

	mu     sync.RWMutex
	assets map[string]*models.Asset
}

func (a *assetService) Reload(ctx context.Context) error {
	rows, err := sq.
		Select("symbol", "decimal_precision", "tradeable", "ledger_id").
		From("assets").
		RunWith(a.dataDB).
		QueryContext(ctx)
	if err != nil {
		return errors.HandleDataDBError(err)
	}
	defer rows.Close()

	assets := map[string]*models.Asset{}
	for rows.Next() {
		asset := &models.Asset{}
		err = rows.Scan(&asset.Symbol, &asset.Precision, &asset.Tradeable, &asset.LedgerID)
		if err != nil {
			return errors.HandleDataDBError(err)
		}
		assets[asset.Symbol] = asset
	}

	a.mu.Lock()
	a.assets = assets
	a.mu.Unlock()

	a.log.Info("asset catalog loaded", zap.Int("assets", len(assets)))
	return nil
}

func (a *assetService) Get(symbol string) (*models.Asset, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	asset, ok := a.assets[symbol]
	if !ok {
		return nil, errors.NewNotFoundError("unknown asset: " + symbol)
	}
	return asset, nil
}

func (a *assetService) Tradeable() []*models.Asset {
	a.mu.RLock()
	defer a.mu.RUnlock()
	assets := make([]*models.Asset, 0, len(a.assets))
	for _, asset := range a.assets {
		if asset.Tradeable {
			assets = append(assets, asset)
		}
	}
	return assets
}

func (a *assetService) Ledgers() map[uint32]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ledgers := make(map[uint32]string, len(a.assets))
	for _, asset := range a.assets {
		ledgers[asset.LedgerID] = asset.Symbol
	}
	return ledgers
}

func (a *assetService) LedgerIDs() map[string]uint32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make(map[string]uint32, len(a.assets))
	for _, asset := range a.assets {
		ids[asset.Symbol] = asset.LedgerID
	}
	return ids
}
