package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/types"
)

const CodeInsufficientCredits = "INSUFFICIENT_CREDITS"

type WalletService interface {
	Get(ctx context.Context, accountID uuid.UUID) (*types.Wallet, error)
	Topup(ctx context.Context, accountID uuid.UUID, amount int64) (*types.Wallet, error)
	Transactions(ctx context.Context, accountID uuid.UUID) ([]*types.WalletTransaction, error)
}

type walletService struct {
	db         *gorm.DB
	log        *logger.Logger
	walletRepo repos.WalletRepo
}

func NewWalletService(db *gorm.DB, log *logger.Logger, walletRepo repos.WalletRepo) WalletService {
	return &walletService{
		db:         db,
		log:        log.With("service", "WalletService"),
		walletRepo: walletRepo,
	}
}

func (ws *walletService) Get(ctx context.Context, accountID uuid.UUID) (*types.Wallet, error) {
	wallet, err := ws.walletRepo.GetByAccountID(ctx, nil, accountID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if wallet == nil {
		return nil, apierr.NotFound(fmt.Errorf("no wallet for account %s", accountID))
	}
	return wallet, nil
}

func (ws *walletService) Topup(ctx context.Context, accountID uuid.UUID, amount int64) (*types.Wallet, error) {
	if amount <= 0 {
		return nil, apierr.BadRequest(errors.New("topup amount must be positive"))
	}
	wallet, err := ws.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	err = ws.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return ws.walletRepo.Apply(ctx, tx, wallet.ID, amount, types.TxnTopup, "")
	})
	if err != nil {
		return nil, apierr.Storage(err)
	}
	ws.log.Info("Wallet topped up", "account_id", accountID.String(), "amount", amount)
	return ws.Get(ctx, accountID)
}

func (ws *walletService) Transactions(ctx context.Context, accountID uuid.UUID) ([]*types.WalletTransaction, error) {
	wallet, err := ws.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	entries, err := ws.walletRepo.ListTransactions(ctx, nil, wallet.ID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return entries, nil
}
