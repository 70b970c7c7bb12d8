package requests

import "github.com/beeseek/beeseek-go/models"

type QuoteSwapRequest struct {
	UserID          string        `uri:"user_id" validate:"required"`
	FromCurrency    string        `json:"from_currency" validate:"required"`
	ToCurrency      string        `json:"to_currency" validate:"required,nefield=FromCurrency"`
	FromAmount      models.Double `json:"from_amount" validate:"required,gt=0"`
	SlippagePercent models.Double `json:"slippage_percent" validate:"gte=0,lte=10"`
}
