package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/types"
)

type BookingService interface {
	Create(ctx context.Context, accountID, consultantProfileID uuid.UUID, startsAt, endsAt time.Time, notes map[string]any) (*types.Booking, error)
	Cancel(ctx context.Context, accountID, bookingID uuid.UUID) (*types.Booking, error)
	Complete(ctx context.Context, consultantAccountID, bookingID uuid.UUID) (*types.Booking, error)
	ListMine(ctx context.Context, accountID uuid.UUID) ([]*types.Booking, error)
	ListForConsultant(ctx context.Context, consultantAccountID uuid.UUID) ([]*types.Booking, error)
}

type bookingService struct {
	db             *gorm.DB
	log            *logger.Logger
	bookingRepo    repos.BookingRepo
	consultantRepo repos.ConsultantRepo
	walletRepo     repos.WalletRepo
}

func NewBookingService(db *gorm.DB, log *logger.Logger, bookingRepo repos.BookingRepo, consultantRepo repos.ConsultantRepo, walletRepo repos.WalletRepo) BookingService {
	return &bookingService{
		db:             db,
		log:            log.With("service", "BookingService"),
		bookingRepo:    bookingRepo,
		consultantRepo: consultantRepo,
		walletRepo:     walletRepo,
	}
}

// Create books a session against a verified consultant. The credit hold and
// the booking row commit or roll back together.
func (bs *bookingService) Create(ctx context.Context, accountID, consultantProfileID uuid.UUID, startsAt, endsAt time.Time, notes map[string]any) (*types.Booking, error) {
	if !endsAt.After(startsAt) {
		return nil, apierr.BadRequest(errors.New("booking must end after it starts"))
	}

	profile, err := bs.consultantRepo.GetByID(ctx, nil, consultantProfileID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if profile == nil {
		return nil, apierr.NotFound(fmt.Errorf("consultant profile %s not found", consultantProfileID))
	}
	if profile.Status != types.StatusVerified {
		return nil, apierr.Forbidden(fmt.Errorf("consultant %s is not verified", consultantProfileID))
	}
	if profile.AccountID == accountID {
		return nil, apierr.BadRequest(errors.New("cannot book your own consultancy"))
	}

	cost := creditCost(profile.HourlyRate, endsAt.Sub(startsAt))

	wallet, err := bs.walletRepo.GetByAccountID(ctx, nil, accountID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if wallet == nil {
		return nil, apierr.NotFound(fmt.Errorf("no wallet for account %s", accountID))
	}
	if wallet.Balance < cost {
		return nil, apierr.Conflict(CodeInsufficientCredits, fmt.Errorf("need %d credits, have %d", cost, wallet.Balance))
	}

	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return nil, apierr.BadRequest(fmt.Errorf("invalid notes: %w", err))
	}
	if notes == nil {
		notesJSON = []byte(`{}`)
	}

	booking := &types.Booking{
		ID:           uuid.New(),
		AccountID:    accountID,
		ConsultantID: consultantProfileID,
		StartsAt:     startsAt.UTC(),
		EndsAt:       endsAt.UTC(),
		CreditCost:   cost,
		Status:       types.BookingConfirmed,
		Notes:        datatypes.JSON(notesJSON),
	}
	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bs.bookingRepo.Create(ctx, tx, booking); err != nil {
			return err
		}
		return bs.walletRepo.Apply(ctx, tx, wallet.ID, -cost, types.TxnBookingHold, booking.ID.String())
	})
	if err != nil {
		// The balance read above can go stale under concurrent holds; the
		// floor inside Apply is the authoritative check.
		if errors.Is(err, repos.ErrInsufficientFunds) {
			return nil, apierr.Conflict(CodeInsufficientCredits, fmt.Errorf("need %d credits", cost))
		}
		return nil, apierr.Storage(err)
	}
	bs.log.Info("Booking created", "booking_id", booking.ID.String(), "cost", cost)
	return booking, nil
}

func (bs *bookingService) Cancel(ctx context.Context, accountID, bookingID uuid.UUID) (*types.Booking, error) {
	booking, err := bs.bookingRepo.GetByID(ctx, nil, bookingID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if booking == nil {
		return nil, apierr.NotFound(fmt.Errorf("booking %s not found", bookingID))
	}
	if booking.AccountID != accountID {
		return nil, apierr.Forbidden(fmt.Errorf("booking %s does not belong to account %s", bookingID, accountID))
	}
	switch booking.Status {
	case types.BookingCancelled:
		return booking, nil
	case types.BookingCompleted:
		return nil, apierr.Conflict("", errors.New("completed bookings cannot be cancelled"))
	}

	wallet, err := bs.walletRepo.GetByAccountID(ctx, nil, accountID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if wallet == nil {
		return nil, apierr.Storage(fmt.Errorf("no wallet for account %s", accountID))
	}

	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bs.bookingRepo.SetStatus(ctx, tx, bookingID, types.BookingCancelled); err != nil {
			return err
		}
		return bs.walletRepo.Apply(ctx, tx, wallet.ID, booking.CreditCost, types.TxnBookingRefund, booking.ID.String())
	})
	if err != nil {
		return nil, apierr.Storage(err)
	}
	booking.Status = types.BookingCancelled
	bs.log.Info("Booking cancelled", "booking_id", bookingID.String())
	return booking, nil
}

// Complete is invoked by the consultant once the session happened. The held
// credits are captured into the consultant's wallet.
func (bs *bookingService) Complete(ctx context.Context, consultantAccountID, bookingID uuid.UUID) (*types.Booking, error) {
	booking, err := bs.bookingRepo.GetByID(ctx, nil, bookingID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if booking == nil {
		return nil, apierr.NotFound(fmt.Errorf("booking %s not found", bookingID))
	}

	profile, err := bs.consultantRepo.GetByID(ctx, nil, booking.ConsultantID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if profile == nil || profile.AccountID != consultantAccountID {
		return nil, apierr.Forbidden(fmt.Errorf("booking %s is not for this consultant", bookingID))
	}
	switch booking.Status {
	case types.BookingCompleted:
		return booking, nil
	case types.BookingCancelled:
		return nil, apierr.Conflict("", errors.New("cancelled bookings cannot be completed"))
	}

	consultantWallet, err := bs.walletRepo.GetByAccountID(ctx, nil, consultantAccountID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if consultantWallet == nil {
		return nil, apierr.Storage(fmt.Errorf("no wallet for consultant account %s", consultantAccountID))
	}

	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bs.bookingRepo.SetStatus(ctx, tx, bookingID, types.BookingCompleted); err != nil {
			return err
		}
		return bs.walletRepo.Apply(ctx, tx, consultantWallet.ID, booking.CreditCost, types.TxnBookingCapture, booking.ID.String())
	})
	if err != nil {
		return nil, apierr.Storage(err)
	}
	booking.Status = types.BookingCompleted
	bs.log.Info("Booking completed", "booking_id", bookingID.String())
	return booking, nil
}

func (bs *bookingService) ListMine(ctx context.Context, accountID uuid.UUID) ([]*types.Booking, error) {
	bookings, err := bs.bookingRepo.ListByAccount(ctx, nil, accountID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return bookings, nil
}

// ListForConsultant returns the sessions booked against the caller's own
// consultant profile.
func (bs *bookingService) ListForConsultant(ctx context.Context, consultantAccountID uuid.UUID) ([]*types.Booking, error) {
	profile, err := bs.consultantRepo.GetByAccountID(ctx, nil, consultantAccountID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if profile == nil {
		return nil, apierr.NotFound(fmt.Errorf("account %s has no consultant profile", consultantAccountID))
	}
	bookings, err := bs.bookingRepo.ListByConsultant(ctx, nil, profile.ID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return bookings, nil
}

// creditCost rounds partial hours up so a 90 minute session at rate 10
// costs 15 credits rounded to 15; a 61 minute session still costs the
// next full credit.
func creditCost(hourlyRate int64, d time.Duration) int64 {
	minutes := int64(d.Minutes())
	if minutes <= 0 {
		return hourlyRate
	}
	cost := hourlyRate * minutes / 60
	if hourlyRate*minutes%60 != 0 {
		cost++
	}
	return cost
}
