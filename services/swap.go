package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beeseek/beeseek-go/config"
	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/metrics"
	"github.com/beeseek/beeseek-go/models"
	"github.com/beeseek/beeseek-go/types/requests"
	"github.com/beeseek/beeseek-go/types/responses"
	"github.com/beeseek/beeseek-go/utils"
)

// Namespace for deriving ledger transfer references from idempotency keys.
var swapRefNamespace = uuid.MustParse("8a4ff4bc-0f1f-4f59-9030-0ed8f663ed25")

// SwapService executes swap requests exactly once per idempotency key.
// Per key: received -> validating -> settled | rejected; terminal results are
// recorded and replayed verbatim. Only infrastructure failures leave no
// record, which is what makes them safe to retry with the same key.
type SwapService interface {
	Execute(ctx context.Context, req *models.SwapRequest) (*models.SwapResult, error)
	ExecuteSwap(ctx context.Context, req *requests.ExecuteSwapRequest) (*responses.Response[*models.SwapResult], error)
}

func NewSwapService(assetService AssetService, routeFinder RouteFinder, ledger Ledger, results ResultStore, log *zap.Logger) SwapService {
	return &swapService{
		service:     service{assetService: assetService, log: log},
		routeFinder: routeFinder,
		ledger:      ledger,
		results:     results,
		feePercent:  config.PLATFORM_FEE_PERCENT,
		keys:        newKeyLocks(),
	}
}

type swapService struct {
	service
	routeFinder RouteFinder
	ledger      Ledger
	results     ResultStore
	feePercent  float64
	keys        *keyLocks
}

func (s *swapService) ExecuteSwap(ctx context.Context, req *requests.ExecuteSwapRequest) (*responses.Response[*models.SwapResult], error) {
	result, err := s.Execute(ctx, &models.SwapRequest{
		IdempotencyKey:  req.IdempotencyKey,
		UserID:          req.UserID,
		FromCurrency:    req.FromCurrency,
		ToCurrency:      req.ToCurrency,
		InputAmount:     float64(req.FromAmount),
		ExpectedRate:    float64(req.ExpectedRate),
		SlippagePercent: float64(req.SlippagePercent),
		MinReceive:      float64(req.MinReceive),
	})
	if err != nil {
		return nil, err
	}

	return &responses.Response[*models.SwapResult]{
		Status: "successful",
		Data:   result,
	}, nil
}

// Execute validates and settles one swap request. Steps, first failure wins:
// replay check, balance check, price re-validation against min receive,
// atomic ledger settlement, result recording. Settlement always uses the
// current rate; the quoted rate is advisory and min receive is the floor.
func (s *swapService) Execute(ctx context.Context, req *models.SwapRequest) (*models.SwapResult, error) {
	if req.IdempotencyKey == "" {
		return nil, errors.NewValidationError("idempotency key is required")
	}
	if req.InputAmount <= 0 {
		return nil, errors.NewInvalidAmountError("input amount must be greater than zero")
	}

	unlock := s.keys.Lock(req.IdempotencyKey)
	defer unlock()

	stored, err := s.results.GetResult(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		metrics.IncSwap("replay")
		return stored, nil
	}

	start := time.Now()
	defer metrics.ObserveSettle(start)

	toAsset, err := s.assetService.Get(req.ToCurrency)
	if err != nil {
		return nil, err
	}
	fromAsset, err := s.assetService.Get(req.FromCurrency)
	if err != nil {
		return nil, err
	}
	if !fromAsset.Tradeable || !toAsset.Tradeable {
		return nil, errors.NewValidationError("currency pair is not tradeable")
	}

	// balance check
	balance, err := s.ledger.Available(ctx, req.UserID, req.FromCurrency)
	if err != nil {
		metrics.IncSwap("infrastructure")
		return nil, err
	}
	if balance < req.InputAmount {
		return s.reject(ctx, req, errors.ErrInsufficientBalance)
	}

	// price re-validation: the quote the caller holds is advisory, this
	// recomputation against the live feed is authoritative
	route, err := s.routeFinder.FindRoute(s.assetService.Tradeable(), req.FromCurrency, req.ToCurrency)
	if err != nil {
		// a vanished pair is a feed hiccup, not a terminal rejection
		metrics.IncSwap("infrastructure")
		return nil, errors.NewInfrastructureError(err)
	}

	toAmount := utils.FloorTo(req.InputAmount*route.CompositeRate*(1-s.feePercent/100), toAsset.Precision)
	if toAmount < req.MinReceive {
		return s.reject(ctx, req, errors.ErrSlippageExceeded)
	}

	ref := uuid.NewSHA1(swapRefNamespace, []byte(req.IdempotencyKey))
	transfer := &LedgerTransfer{
		Ref:          ref,
		UserID:       req.UserID,
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		FromAmount:   req.InputAmount,
		ToAmount:     toAmount,
		Rate:         route.CompositeRate,
	}

	switch err := s.ledger.Settle(ctx, transfer); {
	case err == nil:
	case errors.Is(err, ErrSwapAlreadySettled):
		// settled on a prior attempt whose result record was lost; the
		// posted legs are the source of truth
		settled, lerr := s.ledger.LookupSettlement(ctx, ref)
		if lerr != nil {
			metrics.IncSwap("infrastructure")
			return nil, lerr
		}
		transfer = settled
		toAmount = settled.ToAmount
	case errors.Is(err, ErrInsufficientFunds):
		return s.reject(ctx, req, errors.ErrInsufficientBalance)
	default:
		metrics.IncSwap("infrastructure")
		return nil, errors.HandleTxDBError(err)
	}

	now := time.Now()
	result := &models.SwapResult{
		IdempotencyKey: req.IdempotencyKey,
		Status:         models.SwapSettled,
		FromCurrency:   req.FromCurrency,
		ToCurrency:     req.ToCurrency,
		FromAmount:     transfer.FromAmount,
		ToAmount:       toAmount,
		EffectiveRate:  toAmount / transfer.FromAmount,
		SettledAt:      &now,
	}

	metrics.IncSwap("settled")
	return s.record(ctx, req.IdempotencyKey, result)
}

func (s *swapService) reject(ctx context.Context, req *models.SwapRequest, reason errors.ErrorType) (*models.SwapResult, error) {
	metrics.IncSwap("rejected")
	return s.record(ctx, req.IdempotencyKey, &models.SwapResult{
		IdempotencyKey: req.IdempotencyKey,
		Status:         models.SwapRejected,
		Reason:         string(reason),
		FromCurrency:   req.FromCurrency,
		ToCurrency:     req.ToCurrency,
		FromAmount:     req.InputAmount,
	})
}

func (s *swapService) record(ctx context.Context, key string, result *models.SwapResult) (*models.SwapResult, error) {
	stored, err := s.results.PutResult(ctx, key, result)
	if err != nil {
		if result.Status == models.SwapSettled {
			// the swap settled; losing the record must not fail the call,
			// the ledger collision on Ref covers any retry
			s.log.Error("recording settled swap result", zap.String("key", key), zap.Error(err))
			return result, nil
		}
		return nil, err
	}
	return stored, nil
}

// keyLocks serializes execution per idempotency key for the
// validate-and-settle window only.
type keyLocks struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	refs int
	mu   sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{keys: map[string]*keyLock{}}
}

func (k *keyLocks) Lock(key string) (unlock func()) {
	k.mu.Lock()
	entry, ok := k.keys[key]
	if !ok {
		entry = &keyLock{}
		k.keys[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.keys, key)
		}
		k.mu.Unlock()
	}
}
