package responses

import "github.com/beeseek/beeseek-go/models"

type UserWalletResponseData struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Currency      string          `json:"currency"`
	Balance       float64         `json:"balance,string"`
	LockedBalance float64         `json:"locked,string"`
	User          *models.Account `json:"user"`
}
