package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/madflojo/tasks"
	"go.uber.org/zap"

	"github.com/beeseek/beeseek-go/config"
	"github.com/beeseek/beeseek-go/metrics"
	"github.com/beeseek/beeseek-go/models"
)

// ErrPriceUnavailable is returned when a pair has no observation or the
// latest observation is older than the configured maximum age.
var ErrPriceUnavailable = stderrors.New("price unavailable for pair")

// PriceFeed supplies the latest mid-price for an ordered asset pair. The swap
// core never caches what it returns; every quote and every execution asks
// again.
type PriceFeed interface {
	Price(from, to string) (*models.PricePoint, error)
}

type PriceFeedService interface {
	PriceFeed

	Set(from, to string, rate float64, observedAt time.Time)
}

// Seed rates used until the first successful upstream poll, mirroring the
// launch markets.
var seedRates = map[string]map[string]float64{
	"usdt": {"btc": 1.0 / 65_000, "eth": 1.0 / 3_000, "sol": 1.0 / 155, "bnb": 1.0 / 580, "bsk": 20, "usdc": 1},
	"btc":  {"usdt": 65_000},
	"eth":  {"usdt": 3_000},
	"sol":  {"usdt": 155},
	"bnb":  {"usdt": 580},
	"bsk":  {"usdt": 0.05},
	"usdc": {"usdt": 1},
}

func NewPriceFeedService(scheduler *tasks.Scheduler, log *zap.Logger) PriceFeedService {
	f := &priceFeedService{
		prices: map[string]map[string]models.PricePoint{},
		maxAge: config.MAX_PRICE_AGE,
		now:    time.Now,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}

	boot := time.Now()
	for from, pairs := range seedRates {
		for to, rate := range pairs {
			f.Set(from, to, rate, boot)
		}
	}

	if config.PRICE_FEED_URL != "" {
		err := scheduler.AddWithID("price-feed-poll", &tasks.Task{
			Interval: config.PRICE_POLL_INTERVAL,
			TaskFunc: f.poll,
		})
		if err != nil {
			panic(err)
		}
	}

	return f
}

type priceFeedService struct {
	mu     sync.RWMutex
	prices map[string]map[string]models.PricePoint
	maxAge time.Duration
	now    func() time.Time
	client *http.Client
	log    *zap.Logger
}

func (f *priceFeedService) Price(from, to string) (*models.PricePoint, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	pairs, ok := f.prices[from]
	if !ok {
		return nil, ErrPriceUnavailable
	}
	point, ok := pairs[to]
	if !ok {
		return nil, ErrPriceUnavailable
	}
	if f.maxAge > 0 && f.now().Sub(point.ObservedAt) > f.maxAge {
		return nil, ErrPriceUnavailable
	}
	return &point, nil
}

func (f *priceFeedService) Set(from, to string, rate float64, observedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.prices[from]; !ok {
		f.prices[from] = map[string]models.PricePoint{}
	}
	f.prices[from][to] = models.PricePoint{
		From:       from,
		To:         to,
		Rate:       rate,
		ObservedAt: observedAt,
	}
}

type upstreamTicker struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate,string"`
}

func (f *priceFeedService) poll() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.PRICE_FEED_URL, nil)
	if err != nil {
		f.log.Error("building price feed request", zap.Error(err))
		return nil
	}
	res, err := f.client.Do(req)
	if err != nil {
		f.log.Error("polling price feed", zap.Error(err))
		return nil
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		f.log.Error("polling price feed", zap.Int("status", res.StatusCode))
		return nil
	}

	var tickers []upstreamTicker
	if err := json.NewDecoder(res.Body).Decode(&tickers); err != nil {
		f.log.Error("decoding price feed payload", zap.Error(err))
		return nil
	}

	observed := f.now()
	for _, t := range tickers {
		if t.Rate <= 0 || t.From == "" || t.To == "" {
			continue
		}
		f.Set(t.From, t.To, t.Rate, observed)
	}
	metrics.SetLastPricePoll(observed)

	return nil
}
