package requests

type FetchUserWalletsRequest struct {
	UserID string `uri:"user_id" validate:"required"`
}

type FetchUserWalletRequest struct {
	UserID   string `uri:"user_id" validate:"required"`
	Currency string `uri:"currency" validate:"required"`
}
