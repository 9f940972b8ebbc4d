package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/types"
)

type bookingFixture struct {
	svc            BookingService
	walletSvc      WalletService
	walletRepo     repos.WalletRepo
	consultantRepo repos.ConsultantRepo
	db             *gorm.DB

	client            *types.Account
	consultantAccount *types.Account
	profile           *types.ConsultantProfile
}

func newBookingFixture(t *testing.T, clientBalance int64) *bookingFixture {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger(t)
	accountRepo := repos.NewAccountRepo(db, log)
	consultantRepo := repos.NewConsultantRepo(db, log)
	walletRepo := repos.NewWalletRepo(db, log)
	bookingRepo := repos.NewBookingRepo(db, log)
	ctx := context.Background()

	client := &types.Account{ID: uuid.New(), Email: "client@example.com", Role: types.RoleUser, Verified: true}
	consultantAccount := &types.Account{ID: uuid.New(), Email: "pro@example.com", Role: types.RoleConsultant, Verified: true}
	for _, a := range []*types.Account{client, consultantAccount} {
		if err := accountRepo.Create(ctx, nil, a); err != nil {
			t.Fatalf("seed account: %v", err)
		}
		if err := walletRepo.Create(ctx, nil, &types.Wallet{ID: uuid.New(), AccountID: a.ID}); err != nil {
			t.Fatalf("seed wallet: %v", err)
		}
	}

	profile := &types.ConsultantProfile{
		ID:         uuid.New(),
		AccountID:  consultantAccount.ID,
		Headline:   "Contract review",
		HourlyRate: 10,
		Status:     types.StatusVerified,
	}
	if err := consultantRepo.Create(ctx, nil, profile); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	if clientBalance > 0 {
		wallet, err := walletRepo.GetByAccountID(ctx, nil, client.ID)
		if err != nil || wallet == nil {
			t.Fatalf("load client wallet: %v", err)
		}
		if err := walletRepo.Apply(ctx, nil, wallet.ID, clientBalance, types.TxnTopup, ""); err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}

	return &bookingFixture{
		svc:               NewBookingService(db, log, bookingRepo, consultantRepo, walletRepo),
		walletSvc:         NewWalletService(db, log, walletRepo),
		walletRepo:        walletRepo,
		consultantRepo:    consultantRepo,
		db:                db,
		client:            client,
		consultantAccount: consultantAccount,
		profile:           profile,
	}
}

func (f *bookingFixture) balance(t *testing.T, accountID uuid.UUID) int64 {
	t.Helper()
	wallet, err := f.walletRepo.GetByAccountID(context.Background(), nil, accountID)
	if err != nil || wallet == nil {
		t.Fatalf("load wallet: %v", err)
	}
	return wallet.Balance
}

func TestBookingCreate_HoldsCredits(t *testing.T) {
	f := newBookingFixture(t, 100)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	booking, err := f.svc.Create(ctx, f.client.ID, f.profile.ID, start, start.Add(2*time.Hour), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if booking.Status != types.BookingConfirmed {
		t.Fatalf("expected confirmed, got %q", booking.Status)
	}
	if booking.CreditCost != 20 {
		t.Fatalf("expected 20 credits for 2h at rate 10, got %d", booking.CreditCost)
	}
	if got := f.balance(t, f.client.ID); got != 80 {
		t.Fatalf("expected client balance 80 after hold, got %d", got)
	}
}

func TestBookingCreate_InsufficientCredits(t *testing.T) {
	f := newBookingFixture(t, 5)
	start := time.Now().Add(24 * time.Hour)

	_, err := f.svc.Create(context.Background(), f.client.ID, f.profile.ID, start, start.Add(time.Hour), nil)
	if !apierr.Is(err, CodeInsufficientCredits) {
		t.Fatalf("expected INSUFFICIENT_CREDITS, got %v", err)
	}
	if got := f.balance(t, f.client.ID); got != 5 {
		t.Fatalf("failed booking must not touch the wallet, balance %d", got)
	}
}

// staleBalanceWalletRepo reports a balance that has already been spent by
// another request, so the service's pre-transaction check passes on data
// that is stale by the time the debit runs.
type staleBalanceWalletRepo struct {
	repos.WalletRepo
	inflate int64
}

func (r *staleBalanceWalletRepo) GetByAccountID(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*types.Wallet, error) {
	wallet, err := r.WalletRepo.GetByAccountID(ctx, tx, accountID)
	if wallet != nil {
		wallet.Balance += r.inflate
	}
	return wallet, err
}

func TestBookingCreate_StaleBalanceReadCannotOverdraw(t *testing.T) {
	f := newBookingFixture(t, 10)
	log := newTestLogger(t)
	stale := &staleBalanceWalletRepo{WalletRepo: f.walletRepo, inflate: 100}
	svc := NewBookingService(f.db, log, repos.NewBookingRepo(f.db, log), f.consultantRepo, stale)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	// 2h at rate 10 costs 20; the wallet really holds 10.
	_, err := svc.Create(ctx, f.client.ID, f.profile.ID, start, start.Add(2*time.Hour), nil)
	if !apierr.Is(err, CodeInsufficientCredits) {
		t.Fatalf("expected INSUFFICIENT_CREDITS from the transactional floor, got %v", err)
	}
	if got := f.balance(t, f.client.ID); got != 10 {
		t.Fatalf("balance must never go negative, got %d", got)
	}
	bookings, err := svc.ListMine(ctx, f.client.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bookings) != 0 {
		t.Fatalf("failed hold must roll the booking row back, got %d bookings", len(bookings))
	}
}

func TestBookingCreate_RequiresVerifiedConsultant(t *testing.T) {
	f := newBookingFixture(t, 100)
	ctx := context.Background()
	if err := f.consultantRepo.SetStatus(ctx, nil, f.profile.ID, types.StatusPending); err != nil {
		t.Fatalf("set pending: %v", err)
	}
	start := time.Now().Add(24 * time.Hour)

	_, err := f.svc.Create(ctx, f.client.ID, f.profile.ID, start, start.Add(time.Hour), nil)
	if !apierr.Is(err, apierr.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for unverified consultant, got %v", err)
	}
}

func TestBookingCreate_RejectsSelfBooking(t *testing.T) {
	f := newBookingFixture(t, 100)
	start := time.Now().Add(24 * time.Hour)

	_, err := f.svc.Create(context.Background(), f.consultantAccount.ID, f.profile.ID, start, start.Add(time.Hour), nil)
	if !apierr.Is(err, apierr.CodeBadRequest) {
		t.Fatalf("expected BAD_REQUEST for self booking, got %v", err)
	}
}

func TestBookingCancel_RefundsHold(t *testing.T) {
	f := newBookingFixture(t, 100)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	booking, err := f.svc.Create(ctx, f.client.ID, f.profile.ID, start, start.Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cancelled, err := f.svc.Cancel(ctx, f.client.ID, booking.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != types.BookingCancelled {
		t.Fatalf("expected cancelled, got %q", cancelled.Status)
	}
	if got := f.balance(t, f.client.ID); got != 100 {
		t.Fatalf("expected full refund, balance %d", got)
	}

	// Cancelling again is a no-op, not a second refund.
	if _, err := f.svc.Cancel(ctx, f.client.ID, booking.ID); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if got := f.balance(t, f.client.ID); got != 100 {
		t.Fatalf("repeat cancel must not refund twice, balance %d", got)
	}
}

func TestBookingCancel_OwnerOnly(t *testing.T) {
	f := newBookingFixture(t, 100)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	booking, err := f.svc.Create(ctx, f.client.ID, f.profile.ID, start, start.Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.svc.Cancel(ctx, f.consultantAccount.ID, booking.ID)
	if !apierr.Is(err, apierr.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestBookingComplete_CapturesToConsultant(t *testing.T) {
	f := newBookingFixture(t, 100)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	booking, err := f.svc.Create(ctx, f.client.ID, f.profile.ID, start, start.Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	completed, err := f.svc.Complete(ctx, f.consultantAccount.ID, booking.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != types.BookingCompleted {
		t.Fatalf("expected completed, got %q", completed.Status)
	}
	if got := f.balance(t, f.consultantAccount.ID); got != 10 {
		t.Fatalf("expected consultant paid 10, balance %d", got)
	}
	if got := f.balance(t, f.client.ID); got != 90 {
		t.Fatalf("client hold must stay captured, balance %d", got)
	}

	// Completed bookings cannot be cancelled.
	_, err = f.svc.Cancel(ctx, f.client.ID, booking.ID)
	if !apierr.Is(err, apierr.CodeConflict) {
		t.Fatalf("expected CONFLICT cancelling a completed booking, got %v", err)
	}
}

func TestBookingComplete_WrongConsultant(t *testing.T) {
	f := newBookingFixture(t, 100)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	booking, err := f.svc.Create(ctx, f.client.ID, f.profile.ID, start, start.Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.svc.Complete(ctx, f.client.ID, booking.ID)
	if !apierr.Is(err, apierr.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestBookingListForConsultant(t *testing.T) {
	f := newBookingFixture(t, 100)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	booking, err := f.svc.Create(ctx, f.client.ID, f.profile.ID, start, start.Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bookings, err := f.svc.ListForConsultant(ctx, f.consultantAccount.ID)
	if err != nil {
		t.Fatalf("list for consultant: %v", err)
	}
	if len(bookings) != 1 || bookings[0].ID != booking.ID {
		t.Fatalf("expected the consultant's single booking, got %+v", bookings)
	}

	// The client has no consultant profile to list against.
	_, err = f.svc.ListForConsultant(ctx, f.client.ID)
	if !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND without a profile, got %v", err)
	}
}

func TestCreditCost_RoundsPartialHoursUp(t *testing.T) {
	cases := []struct {
		rate int64
		d    time.Duration
		want int64
	}{
		{10, time.Hour, 10},
		{10, 90 * time.Minute, 15},
		{10, 61 * time.Minute, 11},
		{10, 30 * time.Minute, 5},
		{7, 25 * time.Minute, 3},
		{10, 0, 10},
	}
	for _, tc := range cases {
		if got := creditCost(tc.rate, tc.d); got != tc.want {
			t.Fatalf("creditCost(%d, %v) = %d, want %d", tc.rate, tc.d, got, tc.want)
		}
	}
}
