package services

import (
	"context"
	"database/sql"
	"encoding/binary"
	stderrors "errors"
	"math"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	tdb "github.com/tigerbeetle/tigerbeetle-go"
	tdb_types "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/types/requests"
	"github.com/beeseek/beeseek-go/types/responses"
	"github.com/beeseek/beeseek-go/utils"
)

var (
	// ErrSwapAlreadySettled reports that the ledger has already posted the
	// transfer pair for this reference; the balances must not move again.
	ErrSwapAlreadySettled = stderrors.New("swap transfer already settled")
	// ErrInsufficientFunds reports that the ledger refused the debit leg.
	ErrInsufficientFunds = stderrors.New("insufficient funds for debit leg")
)

// LedgerTransfer is one atomic two-leg settlement: debit FromAmount of
// FromCurrency and credit ToAmount of ToCurrency for the same user. Ref
// derives deterministically from the idempotency key so replays collide at
// the ledger instead of double-settling.
type LedgerTransfer struct {
	Ref          uuid.UUID
	UserID       string
	FromCurrency string
	ToCurrency   string
	FromAmount   float64
	ToAmount     float64
	Rate         float64
}

// Ledger is the balance-mutation boundary the execution coordinator settles
// against. The production implementation is the wallet service below;
// tests substitute an in-memory fake.
type Ledger interface {
	Available(ctx context.Context, userID, currency string) (float64, error)
	Settle(ctx context.Context, transfer *LedgerTransfer) error
	LookupSettlement(ctx context.Context, ref uuid.UUID) (*LedgerTransfer, error)
}

type WalletService interface {
	Ledger

	FetchUserWallets(ctx context.Context, req *requests.FetchUserWalletsRequest) (*responses.Response[[]*responses.UserWalletResponseData], error)
	FetchUserWallet(ctx context.Context, req *requests.FetchUserWalletRequest) (*responses.Response[*responses.UserWalletResponseData], error)
}

func NewWalletService(txDatabase tdb.Client, dataDatabase *sql.DB, accountService AccountService, assetService AssetService, log *zap.Logger) WalletService {
	w := &walletService{
		service: service{
			transactionDB:  txDatabase,
			dataDB:         dataDatabase,
			accountService: accountService,
			assetService:   assetService,
			log:            log,
		},
	}

	if err := w.initSystemAccounts(); err != nil {
		panic(err)
	}

	return w
}

type walletService struct {
	service
}

// One system account per asset ledger; settlements debit and credit against
// these counterparties.
func (w *walletService) initSystemAccounts() error {
	systemAccounts := []tdb_types.Account{}
	for ledgerID := range w.assetService.Ledgers() {
		systemAccounts = append(systemAccounts, tdb_types.Account{
			ID:     tdb_types.ToUint128(uint64(ledgerID)),
			Ledger: ledgerID,
			Code:   2,
			Flags:  tdb_types.AccountFlags{History: true}.ToUint16(),
		})
	}

	res, err := w.transactionDB.CreateAccounts(systemAccounts)
	if err != nil {
		return err
	}
	for _, r := range res {
		switch r.Result {
		case tdb_types.AccountExists,
			tdb_types.AccountExistsWithDifferentFlags,
			tdb_types.AccountExistsWithDifferentUserData128,
			tdb_types.AccountExistsWithDifferentUserData64,
			tdb_types.AccountExistsWithDifferentUserData32,
			tdb_types.AccountExistsWithDifferentLedger,
			tdb_types.AccountExistsWithDifferentCode:
		default:
			return errors.NewFailedDependencyError(r.Result.String())
		}
	}

	return nil
}

func (w *walletService) lookupWalletID(ctx context.Context, userID, currency string) (tdb_types.Uint128, error) {
	row := sq.
		Select("id").
		From("wallets").
		Where(sq.Eq{"account_id": userID, "token": currency}).
		RunWith(w.dataDB).
		QueryRowContext(ctx)

	var id string
	if err := row.Scan(&id); err != nil {
		return tdb_types.Uint128{}, errors.HandleDataDBError(err)
	}
	return tdb_types.HexStringToUint128(id)
}

func (w *walletService) Available(ctx context.Context, userID, currency string) (float64, error) {
	walletID, err := w.lookupWalletID(ctx, userID, currency)
	if err != nil {
		return 0, err
	}

	res, err := w.transactionDB.LookupAccounts([]tdb_types.Uint128{walletID})
	if err != nil {
		return 0, errors.HandleTxDBError(err)
	}
	if len(res) < 1 {
		return 0, errors.NewNotFoundError("wallet not found")
	}

	credits := res[0].CreditsPosted.BigInt()
	debits := res[0].DebitsPosted.BigInt()
	pendingDebits := res[0].DebitsPending.BigInt()
	balance := credits.Sub(&credits, &debits)
	balance = balance.Sub(balance, &pendingDebits)

	return utils.FromAmount(tdb_types.BigIntToUint128(*balance)), nil
}

func transferLegIDs(ref uuid.UUID) (tdb_types.Uint128, tdb_types.Uint128) {
	debitID := uuid.NewSHA1(ref, []byte("debit"))
	creditID := uuid.NewSHA1(ref, []byte("credit"))
	return tdb_types.BytesToUint128(debitID), tdb_types.BytesToUint128(creditID)
}

// Settle posts both legs as a linked pair: either both post or neither does.
// Leg IDs derive from the transfer reference, so re-settling the same
// reference returns ErrSwapAlreadySettled instead of moving balances twice.
func (w *walletService) Settle(ctx context.Context, transfer *LedgerTransfer) error {
	fromWalletID, err := w.lookupWalletID(ctx, transfer.UserID, transfer.FromCurrency)
	if err != nil {
		return err
	}
	toWalletID, err := w.lookupWalletID(ctx, transfer.UserID, transfer.ToCurrency)
	if err != nil {
		return err
	}

	ledgerIDs := w.assetService.LedgerIDs()
	debitID, creditID := transferLegIDs(transfer.Ref)
	ref := binary.BigEndian.Uint64(transfer.Ref[:8])

	legs := []tdb_types.Transfer{
		{
			ID:              debitID,
			DebitAccountID:  fromWalletID,
			CreditAccountID: tdb_types.ToUint128(uint64(ledgerIDs[transfer.FromCurrency])),
			Amount:          utils.ToAmount(transfer.FromAmount),
			Ledger:          ledgerIDs[transfer.FromCurrency],
			UserData128:     tdb_types.BytesToUint128(uuid.MustParse(transfer.UserID)),
			UserData64:      ref,
			UserData32:      uint32(math.Floor(transfer.Rate * 1e4)),
			Code:            1,
			Flags:           tdb_types.TransferFlags{Linked: true}.ToUint16(),
		},
		{
			ID:              creditID,
			DebitAccountID:  tdb_types.ToUint128(uint64(ledgerIDs[transfer.ToCurrency])),
			CreditAccountID: toWalletID,
			Amount:          utils.ToAmount(transfer.ToAmount),
			Ledger:          ledgerIDs[transfer.ToCurrency],
			UserData128:     tdb_types.BytesToUint128(uuid.MustParse(transfer.UserID)),
			UserData64:      ref,
			UserData32:      uint32(math.Floor(transfer.Rate * 1e4)),
			Code:            1,
		},
	}

	res, err := w.transactionDB.CreateTransfers(legs)
	if err != nil {
		return errors.HandleTxDBError(err)
	}

	for _, r := range res {
		switch r.Result {
		case tdb_types.TransferLinkedEventFailed:
			continue
		case tdb_types.TransferExists:
			return ErrSwapAlreadySettled
		case tdb_types.TransferExceedsCredits:
			return ErrInsufficientFunds
		default:
			return errors.NewInfrastructureError(errors.NewFailedDependencyError(r.Result.String()))
		}
	}

	return nil
}

// LookupSettlement rebuilds a settled transfer pair from the ledger. Used
// when the result record was lost after settlement; the posted legs are the
// source of truth.
func (w *walletService) LookupSettlement(ctx context.Context, ref uuid.UUID) (*LedgerTransfer, error) {
	debitID, creditID := transferLegIDs(ref)

	res, err := w.transactionDB.LookupTransfers([]tdb_types.Uint128{debitID, creditID})
	if err != nil {
		return nil, errors.HandleTxDBError(err)
	}
	if len(res) < 2 {
		return nil, errors.NewInfrastructureError(errors.NewFailedDependencyError("settlement not found in ledger"))
	}

	ledgers := w.assetService.Ledgers()
	fromAmount := utils.FromAmount(res[0].Amount)
	toAmount := utils.FromAmount(res[1].Amount)
	userID := uuid.UUID(res[0].UserData128.Bytes())

	return &LedgerTransfer{
		Ref:          ref,
		UserID:       userID.String(),
		FromCurrency: ledgers[res[0].Ledger],
		ToCurrency:   ledgers[res[1].Ledger],
		FromAmount:   fromAmount,
		ToAmount:     toAmount,
		Rate:         toAmount / fromAmount,
	}, nil
}

func (w *walletService) FetchUserWallets(ctx context.Context, req *requests.FetchUserWalletsRequest) (*responses.Response[[]*responses.UserWalletResponseData], error) {
	user, err := w.accountService.FetchAccountDetails(ctx, &requests.FetchAccountDetailsRequest{UserID: req.UserID})
	if err != nil {
		return nil, err
	}

	rows, err := sq.
		Select("id", "account_id", "token").
		From("wallets").
		Where(sq.Eq{"account_id": user.Data.ID}).
		RunWith(w.dataDB).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.HandleDataDBError(err)
	}
	defer rows.Close()

	type walletRow struct {
		id, accountID, token string
	}
	var walletsMap = map[string]walletRow{}
	for rows.Next() {
		wallet := walletRow{}
		err = rows.Scan(&wallet.id, &wallet.accountID, &wallet.token)
		if err != nil {
			return nil, errors.HandleDataDBError(err)
		}
		walletsMap[wallet.id] = wallet
	}

	res, err := w.transactionDB.QueryAccounts(tdb_types.QueryFilter{
		UserData128: tdb_types.BytesToUint128(uuid.MustParse(user.Data.ID)),
		Limit:       uint32(len(w.assetService.Ledgers())),
	})
	if err != nil {
		return nil, errors.HandleTxDBError(err)
	}

	data := make([]*responses.UserWalletResponseData, 0, len(res))
	for i := range res {
		wallet, ok := walletsMap[res[i].ID.String()]
		if !ok {
			continue
		}
		asset, err := w.assetService.Get(wallet.token)
		if err != nil {
			continue
		}

		credits := res[i].CreditsPosted.BigInt()
		debits := res[i].DebitsPosted.BigInt()
		pendingDebits := res[i].DebitsPending.BigInt()
		balance := credits.Sub(&credits, &debits)
		balance = balance.Sub(balance, &pendingDebits)

		data = append(data, &responses.UserWalletResponseData{
			ID:            wallet.id,
			Name:          cases.Upper(language.English).String(wallet.token),
			Currency:      wallet.token,
			Balance:       utils.FloorTo(utils.FromAmount(tdb_types.BigIntToUint128(*balance)), asset.Precision),
			LockedBalance: utils.FloorTo(utils.FromAmount(tdb_types.BigIntToUint128(pendingDebits)), asset.Precision),
			User:          user.Data,
		})
	}

	return &responses.Response[[]*responses.UserWalletResponseData]{
		Status: "successful",
		Data:   data,
	}, nil
}

func (w *walletService) FetchUserWallet(ctx context.Context, req *requests.FetchUserWalletRequest) (*responses.Response[*responses.UserWalletResponseData], error) {
	user, err := w.accountService.FetchAccountDetails(ctx, &requests.FetchAccountDetailsRequest{UserID: req.UserID})
	if err != nil {
		return nil, err
	}

	asset, err := w.assetService.Get(req.Currency)
	if err != nil {
		return nil, err
	}

	walletID, err := w.lookupWalletID(ctx, user.Data.ID, asset.Symbol)
	if err != nil {
		return nil, err
	}

	res, err := w.transactionDB.LookupAccounts([]tdb_types.Uint128{walletID})
	if err != nil {
		return nil, errors.HandleTxDBError(err)
	}
	if len(res) < 1 {
		return nil, errors.NewNotFoundError("wallet not found")
	}

	credits := res[0].CreditsPosted.BigInt()
	debits := res[0].DebitsPosted.BigInt()
	pendingDebits := res[0].DebitsPending.BigInt()
	balance := credits.Sub(&credits, &debits)
	balance = balance.Sub(balance, &pendingDebits)

	data := &responses.UserWalletResponseData{
		ID:            walletID.String(),
		Name:          cases.Upper(language.English).String(asset.Symbol),
		Currency:      asset.Symbol,
		Balance:       utils.FloorTo(utils.FromAmount(tdb_types.BigIntToUint128(*balance)), asset.Precision),
		LockedBalance: utils.FloorTo(utils.FromAmount(tdb_types.BigIntToUint128(pendingDebits)), asset.Precision),
		User:          user.Data,
	}

	return &responses.Response[*responses.UserWalletResponseData]{
		Status: "successful",
		Data:   data,
	}, nil
}
