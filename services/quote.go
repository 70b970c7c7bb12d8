package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/beeseek/beeseek-go/config"
	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/metrics"
	"github.com/beeseek/beeseek-go/models"
	"github.com/beeseek/beeseek-go/types/requests"
	"github.com/beeseek/beeseek-go/types/responses"
	"github.com/beeseek/beeseek-go/utils"
)

// QuoteService derives displayable, refreshable quotes. Quotes are advisory:
// callers refresh them on a cadence shorter than the TTL and the execution
// coordinator re-validates against the live rate regardless.
type QuoteService interface {
	BuildQuote(route *models.Route, dest *models.Asset, inputAmount, slippagePercent, feePercent float64, ttlSeconds int) (*models.Quote, error)
	CreateQuotation(ctx context.Context, req *requests.QuoteSwapRequest) (*responses.Response[*responses.SwapQuotationResponseData], error)
}

func NewQuoteService(assetService AssetService, routeFinder RouteFinder, log *zap.Logger) QuoteService {
	return &quoteService{
		service:     service{assetService: assetService, log: log},
		routeFinder: routeFinder,
		now:         time.Now,
	}
}

type quoteService struct {
	service
	routeFinder RouteFinder
	now         func() time.Time
}

// BuildQuote is a pure function of the route snapshot and its parameters.
// The platform fee comes off the output side so the committed input amount
// stays exact; min receive floors to the destination asset's precision.
func (q *quoteService) BuildQuote(route *models.Route, dest *models.Asset, inputAmount, slippagePercent, feePercent float64, ttlSeconds int) (*models.Quote, error) {
	if inputAmount <= 0 {
		return nil, errors.NewInvalidAmountError("input amount must be greater than zero")
	}
	if slippagePercent < 0 || slippagePercent > 10 {
		return nil, errors.NewInvalidAmountError("slippage percent must be between 0 and 10")
	}

	outputBeforeFee := inputAmount * route.CompositeRate
	fee := outputBeforeFee * feePercent / 100
	estimated := outputBeforeFee - fee
	minReceive := utils.FloorTo(estimated*(1-slippagePercent/100), dest.Precision)

	return &models.Quote{
		Route:           route,
		InputAmount:     inputAmount,
		EstimatedOutput: estimated,
		PlatformFee:     fee,
		MinReceive:      minReceive,
		SlippagePercent: slippagePercent,
		CreatedAt:       q.now(),
		TTLSeconds:      ttlSeconds,
	}, nil
}

func (q *quoteService) CreateQuotation(ctx context.Context, req *requests.QuoteSwapRequest) (*responses.Response[*responses.SwapQuotationResponseData], error) {
	fromAsset, err := q.assetService.Get(req.FromCurrency)
	if err != nil {
		metrics.IncQuote("invalid_pair")
		return nil, err
	}
	toAsset, err := q.assetService.Get(req.ToCurrency)
	if err != nil {
		metrics.IncQuote("invalid_pair")
		return nil, err
	}
	if !fromAsset.Tradeable || !toAsset.Tradeable {
		metrics.IncQuote("invalid_pair")
		return nil, errors.NewValidationError("currency pair is not tradeable")
	}

	route, err := q.routeFinder.FindRoute(q.assetService.Tradeable(), fromAsset.Symbol, toAsset.Symbol)
	if err != nil {
		metrics.IncQuote("no_route")
		return nil, err
	}

	quote, err := q.BuildQuote(route, toAsset, float64(req.FromAmount), float64(req.SlippagePercent), config.PLATFORM_FEE_PERCENT, config.QUOTE_TTL_SECONDS)
	if err != nil {
		metrics.IncQuote("invalid_amount")
		return nil, err
	}

	metrics.IncQuote("ok")
	return &responses.Response[*responses.SwapQuotationResponseData]{
		Status: "successful",
		Data: &responses.SwapQuotationResponseData{
			FromCurrency:    fromAsset.Symbol,
			ToCurrency:      toAsset.Symbol,
			RouteType:       string(route.Type),
			RoutePath:       route.Path,
			QuotedRate:      route.CompositeRate,
			FromAmount:      quote.InputAmount,
			EstimatedOutput: quote.EstimatedOutput,
			PlatformFee:     quote.PlatformFee,
			MinReceive:      quote.MinReceive,
			SlippagePercent: quote.SlippagePercent,
			CreatedAt:       quote.CreatedAt,
			ExpiresAt:       quote.ExpiresAt(),
		},
	}, nil
}
