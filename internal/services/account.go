package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/requestdata"
	"github.com/konsulo/konsulo-backend/internal/types"
)

type AccountService interface {
	GetMe(ctx context.Context) (*types.Account, error)
	UpdateMe(ctx context.Context, firstName, lastName string) (*types.Account, error)
}

type accountService struct {
	db            *gorm.DB
	log           *logger.Logger
	accountRepo   repos.AccountRepo
	avatarService AvatarService
}

func NewAccountService(db *gorm.DB, log *logger.Logger, accountRepo repos.AccountRepo, avatarService AvatarService) AccountService {
	return &accountService{
		db:            db,
		log:           log.With("service", "AccountService"),
		accountRepo:   accountRepo,
		avatarService: avatarService,
	}
}

func (as *accountService) GetMe(ctx context.Context) (*types.Account, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return nil, apierr.Unauthorized(errors.New("no resolved identity on request"))
	}
	account, err := as.accountRepo.GetByID(ctx, nil, rd.AccountID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if account == nil {
		return nil, apierr.AccountNotFound(errors.New("resolved account no longer exists"))
	}
	return account, nil
}

func (as *accountService) UpdateMe(ctx context.Context, firstName, lastName string) (*types.Account, error) {
	account, err := as.GetMe(ctx)
	if err != nil {
		return nil, err
	}

	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	nameChanged := (firstName != "" && firstName != account.FirstName) ||
		(lastName != "" && lastName != account.LastName)
	if firstName != "" {
		account.FirstName = firstName
	}
	if lastName != "" {
		account.LastName = lastName
	}
	if err := as.accountRepo.Update(ctx, nil, account); err != nil {
		return nil, apierr.Storage(err)
	}

	// Initials changed, so re-render the avatar. Best effort.
	if nameChanged && as.avatarService != nil {
		if err := as.avatarService.CreateAndUploadAccountAvatar(ctx, account); err != nil {
			as.log.Warn("Failed to refresh avatar after rename (ignored)", "email", account.Email, "error", err)
		}
	}
	return account, nil
}
