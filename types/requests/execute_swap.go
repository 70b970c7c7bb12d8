package requests

import "github.com/beeseek/beeseek-go/models"

// IdempotencyKey identifies one logical swap intent; clients reuse it across
// retries of the same confirmation, never across new ones.
type ExecuteSwapRequest struct {
	UserID          string        `uri:"user_id" validate:"required"`
	IdempotencyKey  string        `header:"idempotency-key" json:"idempotency_key" validate:"required"`
	FromCurrency    string        `json:"from_currency" validate:"required"`
	ToCurrency      string        `json:"to_currency" validate:"required,nefield=FromCurrency"`
	FromAmount      models.Double `json:"from_amount" validate:"required,gt=0"`
	ExpectedRate    models.Double `json:"expected_rate"`
	SlippagePercent models.Double `json:"slippage_percent" validate:"gte=0,lte=10"`
	MinReceive      models.Double `json:"min_receive" validate:"required,gt=0"`
}
