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

type BookingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, booking *types.Booking) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Booking, error)
	ListByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]*types.Booking, error)
	ListByConsultant(ctx context.Context, tx *gorm.DB, consultantID uuid.UUID) ([]*types.Booking, error)
	SetStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error
}

type bookingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBookingRepo(db *gorm.DB, baseLog *logger.Logger) BookingRepo {
	return &bookingRepo{db: db, log: baseLog.With("repo", "BookingRepo")}
}

func (br *bookingRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return br.db
}

func (br *bookingRepo) Create(ctx context.Context, tx *gorm.DB, booking *types.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	return br.conn(tx).WithContext(ctx).Create(booking).Error
}

func (br *bookingRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Booking, error) {
	var result types.Booking
	err := br.conn(tx).WithContext(ctx).Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (br *bookingRepo) ListByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]*types.Booking, error) {
	var results []*types.Booking
	if err := br.conn(tx).WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("starts_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (br *bookingRepo) ListByConsultant(ctx context.Context, tx *gorm.DB, consultantID uuid.UUID) ([]*types.Booking, error) {
	var results []*types.Booking
	if err := br.conn(tx).WithContext(ctx).
		Where("consultant_id = ?", consultantID).
		Order("starts_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (br *bookingRepo) SetStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	return br.conn(tx).WithContext(ctx).
		Model(&types.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}
