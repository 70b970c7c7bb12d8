package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beeseek/beeseek-go/config"
	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/models"
	"go.uber.org/zap"
)

type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]map[string]float64
	settled  map[uuid.UUID]*LedgerTransfer
	settles  int
	failNext error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: map[string]map[string]float64{},
		settled:  map[uuid.UUID]*LedgerTransfer{},
	}
}

func (l *fakeLedger) credit(userID, currency string, amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[userID]; !ok {
		l.balances[userID] = map[string]float64{}
	}
	l.balances[userID][currency] += amount
}

func (l *fakeLedger) balance(userID, currency string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID][currency]
}

func (l *fakeLedger) Available(_ context.Context, userID, currency string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext != nil {
		err := l.failNext
		l.failNext = nil
		return 0, errors.NewInfrastructureError(err)
	}
	return l.balances[userID][currency], nil
}

func (l *fakeLedger) Settle(_ context.Context, transfer *LedgerTransfer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failNext != nil {
		err := l.failNext
		l.failNext = nil
		return err
	}
	if _, ok := l.settled[transfer.Ref]; ok {
		return ErrSwapAlreadySettled
	}
	if l.balances[transfer.UserID][transfer.FromCurrency] < transfer.FromAmount {
		return ErrInsufficientFunds
	}

	l.balances[transfer.UserID][transfer.FromCurrency] -= transfer.FromAmount
	l.balances[transfer.UserID][transfer.ToCurrency] += transfer.ToAmount

	copied := *transfer
	l.settled[transfer.Ref] = &copied
	l.settles++
	return nil
}

func (l *fakeLedger) LookupSettlement(_ context.Context, ref uuid.UUID) (*LedgerTransfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	transfer, ok := l.settled[ref]
	if !ok {
		return nil, errors.NewInfrastructureError(stderrors.New("settlement not found in ledger"))
	}
	copied := *transfer
	return &copied, nil
}

func newTestResults(t *testing.T) ResultStore {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewResultStore(rdb, zap.NewNop())
}

type swapFixture struct {
	svc    SwapService
	ledger *fakeLedger
	feed   *fakeFeed
	assets *fakeAssets
}

func newSwapFixture(t *testing.T, symbols ...string) *swapFixture {
	t.Helper()
	config.PLATFORM_FEE_PERCENT = 0.5

	feed := newFakeFeed()
	assets := newFakeAssets(symbols...)
	ledger := newFakeLedger()
	finder := NewRouteFinder(feed, zap.NewNop())

	return &swapFixture{
		svc:    NewSwapService(assets, finder, ledger, newTestResults(t), zap.NewNop()),
		ledger: ledger,
		feed:   feed,
		assets: assets,
	}
}

const alice = "5f0f1c1e-0000-4000-8000-000000000001"

func TestExecute_SettlesAtCurrentRate(t *testing.T) {
	f := newSwapFixture(t, "btc", "usdt")
	f.assets.withPrecision("usdt", 3)
	f.feed.set("btc", "usdt", 65_000, time.Now())
	f.ledger.credit(alice, "btc", 0.2)

	result, err := f.svc.Execute(context.Background(), &models.SwapRequest{
		IdempotencyKey:  "swap-1",
		UserID:          alice,
		FromCurrency:    "btc",
		ToCurrency:      "usdt",
		InputAmount:     0.1,
		ExpectedRate:    65_000,
		SlippagePercent: 1,
		MinReceive:      6_402.82,
	})
	require.NoError(t, err)

	assert.Equal(t, models.SwapSettled, result.Status)
	assert.Equal(t, 0.1, result.FromAmount)
	assert.InDelta(t, 6_467.5, result.ToAmount, 0.001)
	assert.InDelta(t, 64_675, result.EffectiveRate, 0.01)
	require.NotNil(t, result.SettledAt)

	assert.GreaterOrEqual(t, result.ToAmount, 6_402.82)
	assert.InDelta(t, 0.1, f.ledger.balance(alice, "btc"), 1e-9)
	assert.InDelta(t, result.ToAmount, f.ledger.balance(alice, "usdt"), 1e-9)
	assert.Equal(t, 1, f.ledger.settles)
}

func TestExecute_ReplayIsVerbatim(t *testing.T) {
	f := newSwapFixture(t, "btc", "usdt")
	f.feed.set("btc", "usdt", 65_000, time.Now())
	f.ledger.credit(alice, "btc", 1)

	req := &models.SwapRequest{
		IdempotencyKey:  "swap-replay",
		UserID:          alice,
		FromCurrency:    "btc",
		ToCurrency:      "usdt",
		InputAmount:     0.1,
		SlippagePercent: 1,
		MinReceive:      6_400,
	}

	first, err := f.svc.Execute(context.Background(), req)
	require.NoError(t, err)

	// a rate move between attempts must not change the recorded outcome
	f.feed.set("btc", "usdt", 70_000, time.Now())

	second, err := f.svc.Execute(context.Background(), req)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))

	assert.Equal(t, 1, f.ledger.settles)
	assert.InDelta(t, 0.9, f.ledger.balance(alice, "btc"), 1e-9)
}

func TestExecute_ConcurrentSameKeySettlesOnce(t *testing.T) {
	f := newSwapFixture(t, "btc", "usdt")
	f.feed.set("btc", "usdt", 65_000, time.Now())
	f.ledger.credit(alice, "btc", 0.1) // enough for exactly one attempt

	req := &models.SwapRequest{
		IdempotencyKey:  "swap-race",
		UserID:          alice,
		FromCurrency:    "btc",
		ToCurrency:      "usdt",
		InputAmount:     0.1,
		SlippagePercent: 1,
		MinReceive:      6_400,
	}

	results := make([]*models.SwapResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Execute(context.Background(), req)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, f.ledger.settles)
	assert.Equal(t, models.SwapSettled, results[0].Status)
	assert.Equal(t, results[0].ToAmount, results[1].ToAmount)
	assert.InDelta(t, 0.0, f.ledger.balance(alice, "btc"), 1e-9)
}

func TestExecute_InsufficientBalanceIsTerminal(t *testing.T) {
	f := newSwapFixture(t, "usdt", "btc")
	f.feed.set("usdt", "btc", 1.0/65_000, time.Now())
	f.ledger.credit(alice, "usdt", 100)

	req := &models.SwapRequest{
		IdempotencyKey:  "swap-poor",
		UserID:          alice,
		FromCurrency:    "usdt",
		ToCurrency:      "btc",
		InputAmount:     150,
		SlippagePercent: 1,
		MinReceive:      0.002,
	}

	result, err := f.svc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.SwapRejected, result.Status)
	assert.Equal(t, string(errors.ErrInsufficientBalance), result.Reason)
	assert.Nil(t, result.SettledAt)
	assert.Equal(t, 0, f.ledger.settles)
	assert.Equal(t, 100.0, f.ledger.balance(alice, "usdt"))

	// rejection is sticky: topping up does not resurrect the key
	f.ledger.credit(alice, "usdt", 200)
	replay, err := f.svc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.SwapRejected, replay.Status)
	assert.Equal(t, 0, f.ledger.settles)

	// a fresh key goes through
	req.IdempotencyKey = "swap-funded"
	retried, err := f.svc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.SwapSettled, retried.Status)
	assert.Equal(t, 1, f.ledger.settles)
}

func TestExecute_SlippageExceeded(t *testing.T) {
	f := newSwapFixture(t, "eth", "usdt")
	f.assets.withPrecision("usdt", 3)
	// quoted at 60,000 composite; market fell to 58,000 before confirmation
	f.feed.set("eth", "usdt", 58_000, time.Now())
	f.ledger.credit(alice, "eth", 2)

	result, err := f.svc.Execute(context.Background(), &models.SwapRequest{
		IdempotencyKey:  "swap-slip",
		UserID:          alice,
		FromCurrency:    "eth",
		ToCurrency:      "usdt",
		InputAmount:     1,
		ExpectedRate:    60_000,
		SlippagePercent: 1,
		MinReceive:      59_103,
	})
	require.NoError(t, err)

	assert.Equal(t, models.SwapRejected, result.Status)
	assert.Equal(t, string(errors.ErrSlippageExceeded), result.Reason)
	assert.Equal(t, 0, f.ledger.settles)
	assert.Equal(t, 2.0, f.ledger.balance(alice, "eth"))
}

func TestExecute_FavorableMoveSettlesAboveMinReceive(t *testing.T) {
	f := newSwapFixture(t, "eth", "usdt")
	f.assets.withPrecision("usdt", 3)
	// quoted at 60,000; market moved up before confirmation
	f.feed.set("eth", "usdt", 62_000, time.Now())
	f.ledger.credit(alice, "eth", 1)

	result, err := f.svc.Execute(context.Background(), &models.SwapRequest{
		IdempotencyKey:  "swap-lucky",
		UserID:          alice,
		FromCurrency:    "eth",
		ToCurrency:      "usdt",
		InputAmount:     1,
		ExpectedRate:    60_000,
		SlippagePercent: 1,
		MinReceive:      59_103,
	})
	require.NoError(t, err)

	assert.Equal(t, models.SwapSettled, result.Status)
	assert.InDelta(t, 61_690, result.ToAmount, 0.001)
	assert.Greater(t, result.ToAmount, 59_103.0)
}

func TestExecute_InfrastructureFailureLeavesNoRecord(t *testing.T) {
	f := newSwapFixture(t, "btc", "usdt")
	f.feed.set("btc", "usdt", 65_000, time.Now())
	f.ledger.credit(alice, "btc", 1)
	f.ledger.failNext = stderrors.New("ledger cluster unavailable")

	req := &models.SwapRequest{
		IdempotencyKey:  "swap-outage",
		UserID:          alice,
		FromCurrency:    "btc",
		ToCurrency:      "usdt",
		InputAmount:     0.1,
		SlippagePercent: 1,
		MinReceive:      6_400,
	}

	_, err := f.svc.Execute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.IsInfrastructure(err))
	assert.Equal(t, 0, f.ledger.settles)
	assert.Equal(t, 1.0, f.ledger.balance(alice, "btc"))

	// same key retries cleanly once the dependency recovers
	result, err := f.svc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.SwapSettled, result.Status)
	assert.Equal(t, 1, f.ledger.settles)
}

func TestExecute_PriceUnavailableIsRetryable(t *testing.T) {
	f := newSwapFixture(t, "btc", "usdt")
	f.ledger.credit(alice, "btc", 1)

	req := &models.SwapRequest{
		IdempotencyKey:  "swap-nofeed",
		UserID:          alice,
		FromCurrency:    "btc",
		ToCurrency:      "usdt",
		InputAmount:     0.1,
		SlippagePercent: 1,
		MinReceive:      6_400,
	}

	_, err := f.svc.Execute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.IsInfrastructure(err))
	assert.Equal(t, 0, f.ledger.settles)

	f.feed.set("btc", "usdt", 65_000, time.Now())
	result, err := f.svc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.SwapSettled, result.Status)
}

func TestExecute_RebuildsResultFromLedger(t *testing.T) {
	f := newSwapFixture(t, "btc", "usdt")
	f.feed.set("btc", "usdt", 65_000, time.Now())
	f.ledger.credit(alice, "usdt", 6_467.5)

	// a prior attempt settled the legs but crashed before recording
	ref := uuid.NewSHA1(swapRefNamespace, []byte("swap-crashed"))
	f.ledger.settled[ref] = &LedgerTransfer{
		Ref:          ref,
		UserID:       alice,
		FromCurrency: "btc",
		ToCurrency:   "usdt",
		FromAmount:   0.1,
		ToAmount:     6_467.5,
		Rate:         65_000,
	}
	f.ledger.credit(alice, "btc", 1)

	result, err := f.svc.Execute(context.Background(), &models.SwapRequest{
		IdempotencyKey:  "swap-crashed",
		UserID:          alice,
		FromCurrency:    "btc",
		ToCurrency:      "usdt",
		InputAmount:     0.1,
		SlippagePercent: 1,
		MinReceive:      6_400,
	})
	require.NoError(t, err)

	assert.Equal(t, models.SwapSettled, result.Status)
	assert.Equal(t, 6_467.5, result.ToAmount)
	// no new legs posted; balances stay where the first settlement left them
	assert.Equal(t, 0, f.ledger.settles)
	assert.Equal(t, 1.0, f.ledger.balance(alice, "btc"))
}

func TestExecute_UntradeablePairNeverSettles(t *testing.T) {
	f := newSwapFixture(t, "btc", "ngn")
	f.assets.assets["ngn"].Tradeable = false
	// a direct price exists, but the catalog has retired the pair
	f.feed.set("btc", "ngn", 97_000_000, time.Now())
	f.ledger.credit(alice, "btc", 1)

	_, err := f.svc.Execute(context.Background(), &models.SwapRequest{
		IdempotencyKey:  "swap-retired",
		UserID:          alice,
		FromCurrency:    "btc",
		ToCurrency:      "ngn",
		InputAmount:     0.1,
		SlippagePercent: 1,
		MinReceive:      9_000_000,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrValidation, errors.AsAppError(err).Type)
	assert.Equal(t, 0, f.ledger.settles)
	assert.Equal(t, 1.0, f.ledger.balance(alice, "btc"))
}

func TestExecute_ValidatesRequest(t *testing.T) {
	f := newSwapFixture(t, "btc", "usdt")

	_, err := f.svc.Execute(context.Background(), &models.SwapRequest{
		UserID:       alice,
		FromCurrency: "btc",
		ToCurrency:   "usdt",
		InputAmount:  0.1,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrValidation, errors.AsAppError(err).Type)

	_, err = f.svc.Execute(context.Background(), &models.SwapRequest{
		IdempotencyKey: "swap-zero",
		UserID:         alice,
		FromCurrency:   "btc",
		ToCurrency:     "usdt",
		InputAmount:    0,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidAmount, errors.AsAppError(err).Type)
	assert.Equal(t, 0, f.ledger.settles)
}
