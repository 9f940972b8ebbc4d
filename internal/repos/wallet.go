package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/types"
)

// ErrInsufficientFunds is returned when a debit would take the balance
// below zero. The floor is enforced in the UPDATE itself so concurrent
// debits cannot both pass a stale balance read.
var ErrInsufficientFunds = errors.New("insufficient funds")

type WalletRepo interface {
	Create(ctx context.Context, tx *gorm.DB, wallet *types.Wallet) error
	GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.Wallet, error)
	// Apply adjusts the balance and appends the matching ledger entry.
	// Callers must run it inside a transaction.
	Apply(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, amount int64, kind, reference string) error
	ListTransactions(ctx context.Context, tx *gorm.DB, walletID uuid.UUID) ([]*types.WalletTransaction, error)
}

type walletRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWalletRepo(db *gorm.DB, baseLog *logger.Logger) WalletRepo {
	return &walletRepo{db: db, log: baseLog.With("repo", "WalletRepo")}
}

func (wr *walletRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return wr.db
}

func (wr *walletRepo) Create(ctx context.Context, tx *gorm.DB, wallet *types.Wallet) error {
	if wallet.ID == uuid.Nil {
		wallet.ID = uuid.New()
	}
	if err := wr.conn(tx).WithContext(ctx).Create(wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (wr *walletRepo) GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.Wallet, error) {
	var result types.Wallet
	err := wr.conn(tx).WithContext(ctx).Where("account_id = ?", accountID).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (wr *walletRepo) Apply(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, amount int64, kind, reference string) error {
	conn := wr.conn(tx).WithContext(ctx)
	query := conn.Model(&types.Wallet{}).Where("id = ?", walletID)
	if amount < 0 {
		query = conn.Model(&types.Wallet{}).Where("id = ? AND balance + ? >= 0", walletID, amount)
	}
	res := query.Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if amount < 0 {
			return ErrInsufficientFunds
		}
		return errors.New("wallet not found")
	}
	entry := &types.WalletTransaction{
		ID:        uuid.New(),
		WalletID:  walletID,
		Amount:    amount,
		Kind:      kind,
		Reference: reference,
	}
	return conn.Create(entry).Error
}

func (wr *walletRepo) ListTransactions(ctx context.Context, tx *gorm.DB, walletID uuid.UUID) ([]*types.WalletTransaction, error) {
	var results []*types.WalletTransaction
	if err := wr.conn(tx).WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
