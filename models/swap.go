package models

import "time"

type RouteType string

const (
	RouteDirect RouteType = "direct"
	RouteTwoHop RouteType = "two_hop"
)

// PricePoint is a feed observation for one ordered pair. It is never stored;
// each quote and each execution works off a fresh one.
type PricePoint struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Rate       float64   `json:"rate"`
	ObservedAt time.Time `json:"observed_at"`
}

// Route is the asset path a swap converts through: [from, to] for a direct
// pair, [from, bridge, to] when priced only via a bridge. Recomputed per
// request, never persisted.
type Route struct {
	Type          RouteType `json:"type"`
	Path          []string  `json:"path"`
	CompositeRate float64   `json:"composite_rate"`
	ObservedAt    time.Time `json:"observed_at"`
}

func (r *Route) From() string { return r.Path[0] }
func (r *Route) To() string   { return r.Path[len(r.Path)-1] }

// Quote is advisory: the coordinator re-validates against the live rate at
// execution time, so an expired or stale quote can never settle.
type Quote struct {
	Route           *Route    `json:"route"`
	InputAmount     float64   `json:"input_amount,string"`
	EstimatedOutput float64   `json:"estimated_output,string"`
	PlatformFee     float64   `json:"platform_fee,string"`
	MinReceive      float64   `json:"min_receive,string"`
	SlippagePercent float64   `json:"slippage_percent,string"`
	CreatedAt       time.Time `json:"created_at"`
	TTLSeconds      int       `json:"ttl_seconds"`
}

func (q *Quote) ExpiresAt() time.Time {
	return q.CreatedAt.Add(time.Duration(q.TTLSeconds) * time.Second)
}

func (q *Quote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt())
}

// SwapRequest is one logical swap intent. IdempotencyKey is caller-supplied
// and identical across retries of the same intent.
type SwapRequest struct {
	IdempotencyKey  string  `json:"idempotency_key"`
	UserID          string  `json:"user_id"`
	FromCurrency    string  `json:"from_currency"`
	ToCurrency      string  `json:"to_currency"`
	InputAmount     float64 `json:"input_amount,string"`
	ExpectedRate    float64 `json:"expected_rate,string"`
	SlippagePercent float64 `json:"slippage_percent,string"`
	MinReceive      float64 `json:"min_receive,string"`
}

type SwapStatus string

const (
	SwapSettled  SwapStatus = "settled"
	SwapRejected SwapStatus = "rejected"
)

// SwapResult is the terminal outcome for an idempotency key. Once recorded it
// is immutable and replayed verbatim to every request carrying the same key.
type SwapResult struct {
	IdempotencyKey string     `json:"idempotency_key"`
	Status         SwapStatus `json:"status"`
	Reason         string     `json:"reason,omitempty"`
	FromCurrency   string     `json:"from_currency"`
	ToCurrency     string     `json:"to_currency"`
	FromAmount     float64    `json:"from_amount,string"`
	ToAmount       float64    `json:"to_amount,string"`
	EffectiveRate  float64    `json:"effective_rate,string"`
	SettledAt      *time.Time `json:"settled_at,omitempty"`
}
