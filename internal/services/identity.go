package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/types"
)

// AuthMode selects the credential source once at startup. Per-request
// environment sniffing is deliberately not supported.
type AuthMode string

const (
	// AuthModeProduction verifies identity-provider tokens on every request.
	AuthModeProduction AuthMode = "production"
	// AuthModeDegradedFallback trusts the x-user-email header. Lookup only,
	// never provisions. Exists for test and local environments.
	AuthModeDegradedFallback AuthMode = "degraded_fallback"
)

const subjectCacheTTL = 5 * time.Minute

// IdentityService turns a verified external identity into a local account:
// find by subject id, else link by email, else provision.
type IdentityService interface {
	Resolve(ctx context.Context, subjectID, email string, identity *VerifiedIdentity) (*types.Account, error)
	ResolveByEmail(ctx context.Context, email string) (*types.Account, error)
}

type identityService struct {
	db            *gorm.DB
	log           *logger.Logger
	accountRepo   repos.AccountRepo
	walletRepo    repos.WalletRepo
	avatarService AvatarService
	cache         *redis.Client
}

func NewIdentityService(
	db *gorm.DB,
	log *logger.Logger,
	accountRepo repos.AccountRepo,
	walletRepo repos.WalletRepo,
	avatarService AvatarService,
	cache *redis.Client,
) IdentityService {
	return &identityService{
		db:            db,
		log:           log.With("service", "IdentityService"),
		accountRepo:   accountRepo,
		walletRepo:    walletRepo,
		avatarService: avatarService,
		cache:         cache,
	}
}

func (is *identityService) Resolve(ctx context.Context, subjectID, email string, identity *VerifiedIdentity) (*types.Account, error) {
	subjectID = strings.TrimSpace(subjectID)
	email = normalizeEmail(email)
	if subjectID == "" {
		return nil, apierr.InvalidCredential(errors.New("verified identity has no subject id"))
	}
	if email == "" {
		// Fatal: without a contact identity the flow cannot proceed.
		is.log.Warn("Verified identity carries no email", "subject_id", subjectID)
		return nil, apierr.MissingEmail(fmt.Errorf("identity %s has no email", subjectID))
	}

	// Fast path: subject id seen before.
	if account, ok := is.cachedBySubject(ctx, subjectID); ok {
		return account, nil
	}
	account, err := is.accountRepo.GetBySubjectID(ctx, nil, subjectID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if account != nil {
		is.cacheSubject(ctx, subjectID, account.ID)
		return account, nil
	}

	// Link path: account exists under this email but was never connected to
	// the identity provider (e.g. enterprise-member invites).
	account, err = is.accountRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if account != nil {
		if account.SubjectID != nil {
			if *account.SubjectID == subjectID {
				is.cacheSubject(ctx, subjectID, account.ID)
				return account, nil
			}
			// The email belongs to an account owned by another identity;
			// linked subjects are immutable.
			is.log.Warn("Email already linked to a different subject", "email", email, "subject_id", subjectID)
			return nil, apierr.Conflict("", fmt.Errorf("email %s is already linked to another identity", email))
		}
		if err := is.accountRepo.LinkSubject(ctx, nil, account.ID, subjectID); err != nil {
			is.log.Warn("Failed to link subject to existing account", "email", email, "error", err)
			return nil, apierr.Storage(err)
		}
		is.log.Info("Linked external subject to existing account", "email", email, "subject_id", subjectID)
		linked, err := is.accountRepo.GetByID(ctx, nil, account.ID)
		if err != nil || linked == nil {
			return nil, apierr.Storage(fmt.Errorf("reload linked account: %w", err))
		}
		is.cacheSubject(ctx, subjectID, linked.ID)
		return linked, nil
	}

	// Provision path.
	created, err := is.provision(ctx, subjectID, email, identity)
	if errors.Is(err, repos.ErrDuplicate) {
		// Lost the concurrent-first-login race: another request created the
		// row between our lookup and insert. Self-heal with one re-read.
		is.log.Info("Account creation conflicted, retrying as lookup", "email", email)
		existing, lookErr := is.accountRepo.GetByEmail(ctx, nil, email)
		if lookErr != nil {
			return nil, apierr.Storage(lookErr)
		}
		if existing == nil {
			return nil, apierr.Storage(fmt.Errorf("conflict on create but no account for %s", email))
		}
		is.cacheSubject(ctx, subjectID, existing.ID)
		return existing, nil
	}
	if err != nil {
		return nil, apierr.Storage(err)
	}
	is.cacheSubject(ctx, subjectID, created.ID)
	return created, nil
}

func (is *identityService) provision(ctx context.Context, subjectID, email string, identity *VerifiedIdentity) (*types.Account, error) {
	account := &types.Account{
		ID:        uuid.New(),
		SubjectID: &subjectID,
		Email:     email,
		Role:      types.RoleUser,
		Verified:  true,
	}
	if identity != nil {
		account.FirstName = identity.FirstName
		account.LastName = identity.LastName
	}

	err := is.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := is.accountRepo.Create(ctx, tx, account); err != nil {
			return err
		}
		wallet := &types.Wallet{ID: uuid.New(), AccountID: account.ID}
		if err := is.walletRepo.Create(ctx, tx, wallet); err != nil {
			return err
		}
		account.Wallet = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Avatar generation is best effort; a missing avatar never blocks login.
	if is.avatarService != nil {
		if err := is.avatarService.CreateAndUploadAccountAvatar(ctx, account); err != nil {
			is.log.Warn("Failed to generate account avatar (ignored)", "email", email, "error", err)
		}
	}

	is.log.Info("Provisioned new account from verified identity", "email", email, "subject_id", subjectID)
	return account, nil
}

// ResolveByEmail is the degraded-fallback path: lookup only, never creates.
// The middleware only routes here when AuthMode is DegradedFallback.
func (is *identityService) ResolveByEmail(ctx context.Context, email string) (*types.Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apierr.MissingCredential(errors.New("empty x-user-email header"))
	}
	account, err := is.accountRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if account == nil {
		return nil, apierr.AccountNotFound(fmt.Errorf("no account for %s", email))
	}
	return account, nil
}

func (is *identityService) cachedBySubject(ctx context.Context, subjectID string) (*types.Account, bool) {
	if is.cache == nil {
		return nil, false
	}
	raw, err := is.cache.Get(ctx, subjectCacheKey(subjectID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			is.log.Debug("Subject cache read failed (ignored)", "error", err)
		}
		return nil, false
	}
	accountID, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	account, err := is.accountRepo.GetByID(ctx, nil, accountID)
	if err != nil || account == nil {
		return nil, false
	}
	return account, true
}

func (is *identityService) cacheSubject(ctx context.Context, subjectID string, accountID uuid.UUID) {
	if is.cache == nil {
		return
	}
	if err := is.cache.Set(ctx, subjectCacheKey(subjectID), accountID.String(), subjectCacheTTL).Err(); err != nil {
		is.log.Debug("Subject cache write failed (ignored)", "error", err)
	}
}

func subjectCacheKey(subjectID string) string {
	return "identity:subject:" + subjectID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
