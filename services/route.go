package services

import (
	"go.uber.org/zap"

	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/models"
)

// RouteFinder computes the best available conversion path between two assets
// over the supplied price snapshot. Pure: no side effects, no state.
type RouteFinder interface {
	FindRoute(tradeable []*models.Asset, from, to string) (*models.Route, error)
}

func NewRouteFinder(feed PriceFeed, log *zap.Logger) RouteFinder {
	return &routeFinder{feed: feed, log: log}
}

type routeFinder struct {
	feed PriceFeed
	log  *zap.Logger
}

// FindRoute prefers a direct priced pair. Failing that it searches for a
// single bridge asset priced against both endpoints and picks the best
// composite rate, breaking ties on observation recency. Routes longer than
// two hops are not considered; search stays O(assets) and error cannot
// compound across stale legs.
func (r *routeFinder) FindRoute(tradeable []*models.Asset, from, to string) (*models.Route, error) {
	if point, err := r.feed.Price(from, to); err == nil {
		return &models.Route{
			Type:          models.RouteDirect,
			Path:          []string{from, to},
			CompositeRate: point.Rate,
			ObservedAt:    point.ObservedAt,
		}, nil
	}

	var best *models.Route
	for _, bridge := range tradeable {
		if !bridge.Tradeable || bridge.Symbol == from || bridge.Symbol == to {
			continue
		}
		leg1, err := r.feed.Price(from, bridge.Symbol)
		if err != nil {
			continue
		}
		leg2, err := r.feed.Price(bridge.Symbol, to)
		if err != nil {
			continue
		}

		rate := leg1.Rate * leg2.Rate
		// a route is only as fresh as its stalest leg
		observed := leg1.ObservedAt
		if leg2.ObservedAt.Before(observed) {
			observed = leg2.ObservedAt
		}

		if best == nil || rate > best.CompositeRate ||
			(rate == best.CompositeRate && observed.After(best.ObservedAt)) {
			best = &models.Route{
				Type:          models.RouteTwoHop,
				Path:          []string{from, bridge.Symbol, to},
				CompositeRate: rate,
				ObservedAt:    observed,
			}
		}
	}

	if best == nil {
		return nil, errors.NewNoRouteError(from, to)
	}
	return best, nil
}
