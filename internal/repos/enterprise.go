package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/types"
)

type EnterpriseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, enterprise *types.Enterprise) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Enterprise, error)
	GetByOwner(ctx context.Context, tx *gorm.DB, ownerAccountID uuid.UUID) (*types.Enterprise, error)
	ListByStatus(ctx context.Context, tx *gorm.DB, status string) ([]*types.Enterprise, error)
	SetStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
	AddMember(ctx context.Context, tx *gorm.DB, member *types.EnterpriseMember) error
	MemberOf(ctx context.Context, tx *gorm.DB, enterpriseID, accountID uuid.UUID) (bool, error)
}

type enterpriseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnterpriseRepo(db *gorm.DB, baseLog *logger.Logger) EnterpriseRepo {
	return &enterpriseRepo{db: db, log: baseLog.With("repo", "EnterpriseRepo")}
}

func (er *enterpriseRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return er.db
}

func (er *enterpriseRepo) Create(ctx context.Context, tx *gorm.DB, enterprise *types.Enterprise) error {
	if enterprise.ID == uuid.Nil {
		enterprise.ID = uuid.New()
	}
	if err := er.conn(tx).WithContext(ctx).Create(enterprise).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (er *enterpriseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Enterprise, error) {
	var result types.Enterprise
	err := er.conn(tx).WithContext(ctx).
		Preload("Members").
		Where("id = ?", id).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (er *enterpriseRepo) GetByOwner(ctx context.Context, tx *gorm.DB, ownerAccountID uuid.UUID) (*types.Enterprise, error) {
	var result types.Enterprise
	err := er.conn(tx).WithContext(ctx).
		Preload("Members").
		Where("owner_account_id = ?", ownerAccountID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (er *enterpriseRepo) ListByStatus(ctx context.Context, tx *gorm.DB, status string) ([]*types.Enterprise, error) {
	var results []*types.Enterprise
	if err := er.conn(tx).WithContext(ctx).
		Preload("Members").
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (er *enterpriseRepo) SetStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	return er.conn(tx).WithContext(ctx).
		Model(&types.Enterprise{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (er *enterpriseRepo) AddMember(ctx context.Context, tx *gorm.DB, member *types.EnterpriseMember) error {
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	if err := er.conn(tx).WithContext(ctx).Create(member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (er *enterpriseRepo) MemberOf(ctx context.Context, tx *gorm.DB, enterpriseID, accountID uuid.UUID) (bool, error) {
	var count int64
	if err := er.conn(tx).WithContext(ctx).
		Model(&types.EnterpriseMember{}).
		Where("enterprise_id = ? AND account_id = ?", enterpriseID, accountID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
