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

type ConsultantRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profile *types.ConsultantProfile) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ConsultantProfile, error)
	GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.ConsultantProfile, error)
	ListByStatus(ctx context.Context, tx *gorm.DB, status string) ([]*types.ConsultantProfile, error)
	SetStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
	AddDocument(ctx context.Context, tx *gorm.DB, doc *types.ConsultantDocument) error
}

type consultantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConsultantRepo(db *gorm.DB, baseLog *logger.Logger) ConsultantRepo {
	return &consultantRepo{db: db, log: baseLog.With("repo", "ConsultantRepo")}
}

func (cr *consultantRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return cr.db
}

func (cr *consultantRepo) Create(ctx context.Context, tx *gorm.DB, profile *types.ConsultantProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if err := cr.conn(tx).WithContext(ctx).Create(profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (cr *consultantRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ConsultantProfile, error) {
	var result types.ConsultantProfile
	err := cr.conn(tx).WithContext(ctx).
		Preload("Documents").
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

func (cr *consultantRepo) GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.ConsultantProfile, error) {
	var result types.ConsultantProfile
	err := cr.conn(tx).WithContext(ctx).
		Preload("Documents").
		Where("account_id = ?", accountID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *consultantRepo) ListByStatus(ctx context.Context, tx *gorm.DB, status string) ([]*types.ConsultantProfile, error) {
	var results []*types.ConsultantProfile
	if err := cr.conn(tx).WithContext(ctx).
		Preload("Documents").
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *consultantRepo) SetStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	return cr.conn(tx).WithContext(ctx).
		Model(&types.ConsultantProfile{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (cr *consultantRepo) AddDocument(ctx context.Context, tx *gorm.DB, doc *types.ConsultantDocument) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	return cr.conn(tx).WithContext(ctx).Create(doc).Error
}
