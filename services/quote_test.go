package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beeseek/beeseek-go/config"
	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/models"
	"github.com/beeseek/beeseek-go/types/requests"
	"go.uber.org/zap"
)

func testQuoteService(now time.Time) *quoteService {
	return &quoteService{now: func() time.Time { return now }}
}

func directRoute(from, to string, rate float64, observedAt time.Time) *models.Route {
	return &models.Route{
		Type:          models.RouteDirect,
		Path:          []string{from, to},
		CompositeRate: rate,
		ObservedAt:    observedAt,
	}
}

func TestBuildQuote_FeeComesOffOutput(t *testing.T) {
	now := time.Now()
	q := testQuoteService(now)
	dest := &models.Asset{Symbol: "usdt", Precision: 3, Tradeable: true}

	quote, err := q.BuildQuote(directRoute("btc", "usdt", 65_000, now), dest, 0.1, 1, 0.5, 15)
	require.NoError(t, err)

	assert.Equal(t, 0.1, quote.InputAmount)
	assert.InDelta(t, 32.5, quote.PlatformFee, 1e-9)
	assert.InDelta(t, 6_467.5, quote.EstimatedOutput, 1e-9)
	assert.InDelta(t, 6_402.825, quote.MinReceive, 0.0011)
	assert.Equal(t, 1.0, quote.SlippagePercent)
}

func TestBuildQuote_TwoHopCompositeRate(t *testing.T) {
	now := time.Now()
	q := testQuoteService(now)
	dest := &models.Asset{Symbol: "bsk", Precision: 8, Tradeable: true}
	route := &models.Route{
		Type:          models.RouteTwoHop,
		Path:          []string{"eth", "usdt", "bsk"},
		CompositeRate: 3_000 * 20,
		ObservedAt:    now,
	}

	quote, err := q.BuildQuote(route, dest, 1, 1, 0.5, 15)
	require.NoError(t, err)

	assert.InDelta(t, 59_700, quote.EstimatedOutput, 1e-6)
	assert.InDelta(t, 59_103, quote.MinReceive, 1e-6)
}

func TestBuildQuote_MinReceiveFlooredToPrecision(t *testing.T) {
	now := time.Now()
	q := testQuoteService(now)
	dest := &models.Asset{Symbol: "usdt", Precision: 2, Tradeable: true}

	quote, err := q.BuildQuote(directRoute("btc", "usdt", 65_000, now), dest, 0.1, 1, 0.5, 15)
	require.NoError(t, err)

	// 6402.825 floors down at two decimals, never rounds up
	assert.InDelta(t, 6_402.82, quote.MinReceive, 1e-9)
}

func TestBuildQuote_ZeroSlippage(t *testing.T) {
	now := time.Now()
	q := testQuoteService(now)
	dest := &models.Asset{Symbol: "usdt", Precision: 8, Tradeable: true}

	quote, err := q.BuildQuote(directRoute("btc", "usdt", 50_000, now), dest, 1, 0, 0, 15)
	require.NoError(t, err)
	assert.InDelta(t, 50_000, quote.MinReceive, 1e-6)
	assert.InDelta(t, 50_000, quote.EstimatedOutput, 1e-6)
	assert.Zero(t, quote.PlatformFee)
}

func TestBuildQuote_RejectsBadInputs(t *testing.T) {
	now := time.Now()
	q := testQuoteService(now)
	dest := &models.Asset{Symbol: "usdt", Precision: 8, Tradeable: true}
	route := directRoute("btc", "usdt", 65_000, now)

	for _, tc := range []struct {
		name     string
		amount   float64
		slippage float64
	}{
		{"zero amount", 0, 1},
		{"negative amount", -0.5, 1},
		{"negative slippage", 1, -1},
		{"slippage above cap", 1, 10.5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := q.BuildQuote(route, dest, tc.amount, tc.slippage, 0.5, 15)
			require.Error(t, err)
			assert.Equal(t, errors.ErrInvalidAmount, errors.AsAppError(err).Type)
		})
	}
}

func TestQuoteExpiry(t *testing.T) {
	now := time.Now()
	q := testQuoteService(now)
	dest := &models.Asset{Symbol: "usdt", Precision: 8, Tradeable: true}

	quote, err := q.BuildQuote(directRoute("btc", "usdt", 65_000, now), dest, 0.1, 1, 0.5, 15)
	require.NoError(t, err)

	assert.Equal(t, now.Add(15*time.Second), quote.ExpiresAt())
	assert.False(t, quote.Expired(now.Add(14*time.Second)))
	assert.True(t, quote.Expired(now.Add(16*time.Second)))
}

func TestCreateQuotation(t *testing.T) {
	feed := newFakeFeed()
	feed.set("btc", "usdt", 65_000, time.Now())

	assets := newFakeAssets("btc", "usdt").withPrecision("usdt", 3)
	finder := NewRouteFinder(feed, zap.NewNop())
	q := NewQuoteService(assets, finder, zap.NewNop())

	config.PLATFORM_FEE_PERCENT = 0.5
	config.QUOTE_TTL_SECONDS = 15

	res, err := q.CreateQuotation(context.Background(), &requests.QuoteSwapRequest{
		UserID:          "u1",
		FromCurrency:    "btc",
		ToCurrency:      "usdt",
		FromAmount:      0.1,
		SlippagePercent: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "successful", res.Status)
	assert.Equal(t, "direct", res.Data.RouteType)
	assert.Equal(t, []string{"btc", "usdt"}, res.Data.RoutePath)
	assert.Equal(t, 65_000.0, res.Data.QuotedRate)
	assert.InDelta(t, 6_467.5, res.Data.EstimatedOutput, 1e-9)
	assert.InDelta(t, 6_402.825, res.Data.MinReceive, 0.0011)
	assert.Equal(t, res.Data.CreatedAt.Add(15*time.Second), res.Data.ExpiresAt)
}

func TestCreateQuotation_UntradeablePair(t *testing.T) {
	feed := newFakeFeed()
	feed.set("btc", "ngn", 97_000_000, time.Now())

	assets := newFakeAssets("btc", "ngn")
	assets.assets["ngn"].Tradeable = false

	q := NewQuoteService(assets, NewRouteFinder(feed, zap.NewNop()), zap.NewNop())

	_, err := q.CreateQuotation(context.Background(), &requests.QuoteSwapRequest{
		UserID:       "u1",
		FromCurrency: "btc",
		ToCurrency:   "ngn",
		FromAmount:   1,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrValidation, errors.AsAppError(err).Type)
}

func TestCreateQuotation_NoRoute(t *testing.T) {
	assets := newFakeAssets("btc", "usdt")
	q := NewQuoteService(assets, NewRouteFinder(newFakeFeed(), zap.NewNop()), zap.NewNop())

	_, err := q.CreateQuotation(context.Background(), &requests.QuoteSwapRequest{
		UserID:       "u1",
		FromCurrency: "btc",
		ToCurrency:   "usdt",
		FromAmount:   1,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrNoRoute, errors.AsAppError(err).Type)
}
