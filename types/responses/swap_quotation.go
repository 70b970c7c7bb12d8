package responses

import "time"

type SwapQuotationResponseData struct {
	FromCurrency    string    `json:"from_currency"`
	ToCurrency      string    `json:"to_currency"`
	RouteType       string    `json:"route_type"`
	RoutePath       []string  `json:"route_path"`
	QuotedRate      float64   `json:"quoted_rate,string"`
	FromAmount      float64   `json:"from_amount,string"`
	EstimatedOutput float64   `json:"estimated_output,string"`
	PlatformFee     float64   `json:"platform_fee,string"`
	MinReceive      float64   `json:"min_receive,string"`
	SlippagePercent float64   `json:"slippage_percent,string"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}
