package responses

import "github.com/beeseek/beeseek-go/models"

type CreateAccountResponseData struct {
	User  *models.Account     `json:"user"`
	Token *models.AccessToken `json:"token"`
}
