package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/types"
)

type AdminRepo interface {
	Create(ctx context.Context, tx *gorm.DB, admin *types.Admin) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Admin, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Admin, error)
}

type adminRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdminRepo(db *gorm.DB, baseLog *logger.Logger) AdminRepo {
	return &adminRepo{db: db, log: baseLog.With("repo", "AdminRepo")}
}

func (ar *adminRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}

func (ar *adminRepo) Create(ctx context.Context, tx *gorm.DB, admin *types.Admin) error {
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}
	if err := ar.conn(tx).WithContext(ctx).Create(admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (ar *adminRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Admin, error) {
	var result types.Admin
	err := ar.conn(tx).WithContext(ctx).Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *adminRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Admin, error) {
	var result types.Admin
	err := ar.conn(tx).WithContext(ctx).Where("email = ?", email).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}
