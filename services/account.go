package services

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lucsky/cuid"
	tdb "github.com/tigerbeetle/tigerbeetle-go"
	tdb_types "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/models"
	"github.com/beeseek/beeseek-go/types/requests"
	"github.com/beeseek/beeseek-go/types/responses"
)

// AccountService is the authentication collaborator surface: account
// creation (which provisions one wallet per catalog asset) and token lookup
// for the middleware. Session handling proper lives outside this service.
type AccountService interface {
	CreateAccount(context.Context, *requests.CreateAccountRequest) (*responses.Response[*responses.CreateAccountResponseData], error)
	FetchAccountDetails(context.Context, *requests.FetchAccountDetailsRequest) (*responses.Response[*models.Account], error)
	GetAccountByAccessToken(context.Context, string) (*models.Account, error)
}

func NewAccountService(txDatabase tdb.Client, dataDatabase *sql.DB, assetService AssetService, log *zap.Logger) AccountService {
	return &accountService{
		service{
			transactionDB: txDatabase,
			dataDB:        dataDatabase,
			assetService:  assetService,
			log:           log,
		},
	}
}

type accountService struct {
	service
}

func (a *accountService) CreateAccount(ctx context.Context, req *requests.CreateAccountRequest) (*responses.Response[*responses.CreateAccountResponseData], error) {
	now := time.Now()
	accountID := uuid.New()

	account := &models.Account{
		ID:          accountID.String(),
		SN:          cuid.New(),
		DisplayName: req.DisplayName,
		Email:       cases.Lower(language.English).String(req.Email),
		FirstName:   cases.Title(language.English).String(req.FirstName),
		LastName:    cases.Title(language.English).String(req.LastName),
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}

	password, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	tx, err := a.dataDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	// Defer a rollback in case anything fails.
	defer tx.Rollback()

	// * create user account
	_, err = sq.
		Insert("accounts").
		Columns("id", "sn", "display_name", "email", "first_name", "last_name", "created_at", "updated_at").
		Values(account.ID, account.SN, account.DisplayName, account.Email, account.FirstName, account.LastName, now, now).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return nil, errors.HandleDataDBError(err)
	}

	_, err = sq.
		Insert("credentials").
		Columns("id", "password").
		Values(account.ID, string(password)).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return nil, errors.HandleDataDBError(err)
	}

	accessToken := &models.AccessToken{
		ID:          uuid.NewString(),
		Name:        "Default Token",
		Description: "default token for user requests",
		AccountID:   account.ID,
		Token:       "pub_test_" + cuid.Slug(),
	}

	// * create user access token to authenticate requests
	_, err = sq.
		Insert("access_tokens").
		Columns("id", "name", "description", "account_id", "token").
		Values(accessToken.ID, accessToken.Name, accessToken.Description, accessToken.AccountID, accessToken.Token).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return nil, errors.HandleDataDBError(err)
	}

	ledgers := a.assetService.Ledgers()
	wallets := make([]tdb_types.Account, 0, len(ledgers))
	for ledgerID := range ledgers {
		wallets = append(wallets, tdb_types.Account{
			ID: tdb_types.ID(),
			Flags: tdb_types.AccountFlags{
				History:                    true,
				DebitsMustNotExceedCredits: true,
				Linked:                     len(wallets) < (len(ledgers) - 1),
			}.ToUint16(),
			Ledger:      ledgerID,
			Code:        1,
			UserData128: tdb_types.BytesToUint128(accountID),
		})
	}

	// * store wallets ref in wallets collection
	walletsInsertStmt := sq.
		Insert("wallets").
		Columns("id", "account_id", "token")
	for _, wallet := range wallets {
		walletsInsertStmt = walletsInsertStmt.
			Values(wallet.ID.String(), account.ID, ledgers[wallet.Ledger])
	}

	_, err = walletsInsertStmt.
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return nil, errors.HandleDataDBError(err)
	}

	// * create wallet accounts in the balance ledger
	txRes, err := a.transactionDB.CreateAccounts(wallets)
	if err != nil {
		return nil, errors.HandleTxDBError(err)
	}
	if len(txRes) > 0 {
		return nil, errors.NewUnknownError(txRes[0].Result.String())
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.HandleDataDBError(err)
	}

	return &responses.Response[*responses.CreateAccountResponseData]{
		Status:  "successful",
		Message: "Account Created successfully",
		Data: &responses.CreateAccountResponseData{
			User:  account,
			Token: accessToken,
		},
	}, nil
}

func (a *accountService) FetchAccountDetails(ctx context.Context, req *requests.FetchAccountDetailsRequest) (*responses.Response[*models.Account], error) {
	userID := req.UserID
	if userID == "me" {
		user, ok := ctx.Value("user").(*models.Account)
		if !ok {
			return nil, errors.NewAuthenticationError("no authenticated user")
		}
		userID = user.ID
	}

	row := sq.
		Select("id", "sn", "display_name", "email", "first_name", "last_name", "created_at", "updated_at").
		From("accounts").
		Where(sq.Eq{"id": userID}).
		Limit(1).
		RunWith(a.dataDB).
		QueryRowContext(ctx)
	if row == nil {
		return nil, errors.NewNotFoundError("user not found")
	}

	var account = &models.Account{}
	err := row.Scan(&account.ID, &account.SN, &account.DisplayName, &account.Email, &account.FirstName, &account.LastName, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, errors.HandleDataDBError(err)
	}

	return &responses.Response[*models.Account]{
		Status: "successful",
		Data:   account,
	}, nil
}

func (a *accountService) GetAccountByAccessToken(ctx context.Context, token string) (*models.Account, error) {
	row := sq.
		Select("accounts.id", "accounts.email", "accounts.display_name").
		From("access_tokens").
		Join("accounts on access_tokens.account_id = accounts.id").
		Where(sq.Eq{"token": token}).
		RunWith(a.dataDB).
		QueryRowContext(ctx)
	if row == nil {
		return nil, errors.NewNotFoundError("token not found")
	}

	var account = &models.Account{}
	err := row.Scan(&account.ID, &account.Email, &account.DisplayName)
	if err != nil {
		return nil, errors.HandleDataDBError(err)
	}

	return account, nil
}
