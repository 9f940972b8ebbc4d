package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/types"
)

// MemberInvite is returned once at invite time. The temp password is never
// retrievable again; only its hash is stored.
type MemberInvite struct {
	Account      *types.Account `json:"account"`
	TempUsername string         `json:"temp_username"`
	TempPassword string         `json:"temp_password"`
	InviteToken  string         `json:"invite_token"`
}

// InvitePreview is the public view of an outstanding invite, safe to show
// on the first-login form. Credentials and hashes never leave the server.
type InvitePreview struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type EnterpriseService interface {
	Create(ctx context.Context, ownerAccountID uuid.UUID, name string) (*types.Enterprise, error)
	InviteMember(ctx context.Context, ownerAccountID, enterpriseID uuid.UUID, email, firstName, lastName string) (*MemberInvite, error)
	LookupInvite(ctx context.Context, token string) (*InvitePreview, error)
	MemberFirstLogin(ctx context.Context, username, password string) (*types.Account, error)
	GetOwned(ctx context.Context, ownerAccountID uuid.UUID) (*types.Enterprise, error)
}

type enterpriseService struct {
	db             *gorm.DB
	log            *logger.Logger
	enterpriseRepo repos.EnterpriseRepo
	accountRepo    repos.AccountRepo
	walletRepo     repos.WalletRepo
}

func NewEnterpriseService(db *gorm.DB, log *logger.Logger, enterpriseRepo repos.EnterpriseRepo, accountRepo repos.AccountRepo, walletRepo repos.WalletRepo) EnterpriseService {
	return &enterpriseService{
		db:             db,
		log:            log.With("service", "EnterpriseService"),
		enterpriseRepo: enterpriseRepo,
		accountRepo:    accountRepo,
		walletRepo:     walletRepo,
	}
}

func (es *enterpriseService) Create(ctx context.Context, ownerAccountID uuid.UUID, name string) (*types.Enterprise, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.BadRequest(errors.New("enterprise name is required"))
	}
	existing, err := es.enterpriseRepo.GetByOwner(ctx, nil, ownerAccountID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if existing != nil {
		return nil, apierr.Conflict("", fmt.Errorf("account %s already owns an enterprise", ownerAccountID))
	}

	enterprise := &types.Enterprise{
		ID:             uuid.New(),
		OwnerAccountID: ownerAccountID,
		Name:           name,
		Status:         types.StatusPending,
	}
	err = es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := es.enterpriseRepo.Create(ctx, tx, enterprise); err != nil {
			return err
		}
		return es.accountRepo.SetRole(ctx, tx, ownerAccountID, types.RoleEnterpriseOwner)
	})
	if err != nil {
		return nil, apierr.Storage(err)
	}
	es.log.Info("Enterprise created", "enterprise_id", enterprise.ID.String(), "name", name)
	return enterprise, nil
}

// InviteMember provisions a member account with one-time credentials. The
// member either signs in with them once or later arrives through the
// identity provider, in which case the resolver links by email.
func (es *enterpriseService) InviteMember(ctx context.Context, ownerAccountID, enterpriseID uuid.UUID, email, firstName, lastName string) (*MemberInvite, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apierr.BadRequest(errors.New("member email is required"))
	}

	enterprise, err := es.enterpriseRepo.GetByID(ctx, nil, enterpriseID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if enterprise == nil {
		return nil, apierr.NotFound(fmt.Errorf("enterprise %s not found", enterpriseID))
	}
	if enterprise.OwnerAccountID != ownerAccountID {
		return nil, apierr.Forbidden(fmt.Errorf("account %s does not own enterprise %s", ownerAccountID, enterpriseID))
	}

	tempPassword := uuid.New().String()
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.Storage(fmt.Errorf("hash temp password: %w", err))
	}
	inviteToken := uuid.New().String()

	member := &types.Account{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Role:         types.RoleEnterpriseMember,
		Verified:     false,
		TempUsername: email,
		TempPassword: string(hash),
		InviteToken:  inviteToken,
	}

	err = es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := es.accountRepo.Create(ctx, tx, member); err != nil {
			return err
		}
		if err := es.walletRepo.Create(ctx, tx, &types.Wallet{ID: uuid.New(), AccountID: member.ID}); err != nil {
			return err
		}
		return es.enterpriseRepo.AddMember(ctx, tx, &types.EnterpriseMember{
			ID:           uuid.New(),
			EnterpriseID: enterpriseID,
			AccountID:    member.ID,
		})
	})
	if err != nil {
		if errors.Is(err, repos.ErrDuplicate) {
			return nil, apierr.Conflict("", fmt.Errorf("an account with email %s already exists", email))
		}
		return nil, apierr.Storage(err)
	}

	es.log.Info("Enterprise member invited", "enterprise_id", enterpriseID.String(), "email", email)
	return &MemberInvite{
		Account:      member,
		TempUsername: email,
		TempPassword: tempPassword,
		InviteToken:  inviteToken,
	}, nil
}

// LookupInvite resolves an invite token to the invited member's details.
// Activation clears the token, so a spent invite reads as not found.
func (es *enterpriseService) LookupInvite(ctx context.Context, token string) (*InvitePreview, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apierr.BadRequest(errors.New("invite token is required"))
	}
	account, err := es.accountRepo.GetByInviteToken(ctx, nil, token)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if account == nil {
		return nil, apierr.NotFound(errors.New("invite not found or already used"))
	}
	return &InvitePreview{
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
	}, nil
}

// MemberFirstLogin exchanges one-time credentials for the member account
// and burns them. Subsequent logins go through the identity provider.
func (es *enterpriseService) MemberFirstLogin(ctx context.Context, username, password string) (*types.Account, error) {
	username = normalizeEmail(username)
	account, err := es.accountRepo.GetByEmail(ctx, nil, username)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if account == nil || account.TempPassword == "" {
		es.log.Warn("Member first login for unknown or already-activated account", "email", username)
		return nil, apierr.Unauthorized(errors.New("invalid credentials"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.TempPassword), []byte(password)); err != nil {
		es.log.Warn("Member first login with wrong temp password", "email", username)
		return nil, apierr.Unauthorized(errors.New("invalid credentials"))
	}
	if err := es.accountRepo.ClearTempCredentials(ctx, nil, account.ID); err != nil {
		return nil, apierr.Storage(err)
	}
	account.TempUsername = ""
	account.TempPassword = ""
	account.InviteToken = ""
	es.log.Info("Enterprise member activated", "email", username)
	return account, nil
}

func (es *enterpriseService) GetOwned(ctx context.Context, ownerAccountID uuid.UUID) (*types.Enterprise, error) {
	enterprise, err := es.enterpriseRepo.GetByOwner(ctx, nil, ownerAccountID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if enterprise == nil {
		return nil, apierr.NotFound(fmt.Errorf("account %s owns no enterprise", ownerAccountID))
	}
	return enterprise, nil
}
