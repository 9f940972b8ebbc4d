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

// ErrDuplicate surfaces a unique-constraint violation without leaking the
// driver error type to callers. The identity resolver relies on it to
// detect the concurrent-first-login race.
var ErrDuplicate = errors.New("duplicate key")

type AccountRepo interface {
	Create(ctx context.Context, tx *gorm.DB, account *types.Account) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Account, error)
	GetBySubjectID(ctx context.Context, tx *gorm.DB, subjectID string) (*types.Account, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Account, error)
	GetByInviteToken(ctx context.Context, tx *gorm.DB, token string) (*types.Account, error)
	LinkSubject(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, subjectID string) error
	SetRole(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, role string) error
	Update(ctx context.Context, tx *gorm.DB, account *types.Account) error
	ClearTempCredentials(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) error
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	return &accountRepo{db: db, log: baseLog.With("repo", "AccountRepo")}
}

func (ar *accountRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}

func (ar *accountRepo) Create(ctx context.Context, tx *gorm.DB, account *types.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if err := ar.conn(tx).WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (ar *accountRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Account, error) {
	return ar.getOne(ctx, tx, "id = ?", id)
}

func (ar *accountRepo) GetBySubjectID(ctx context.Context, tx *gorm.DB, subjectID string) (*types.Account, error) {
	return ar.getOne(ctx, tx, "subject_id = ?", subjectID)
}

func (ar *accountRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Account, error) {
	return ar.getOne(ctx, tx, "email = ?", email)
}

func (ar *accountRepo) GetByInviteToken(ctx context.Context, tx *gorm.DB, token string) (*types.Account, error) {
	if token == "" {
		return nil, nil
	}
	return ar.getOne(ctx, tx, "invite_token = ?", token)
}

func (ar *accountRepo) getOne(ctx context.Context, tx *gorm.DB, query string, arg any) (*types.Account, error) {
	var result types.Account
	err := ar.conn(tx).WithContext(ctx).
		Preload("ConsultantProfile").
		Preload("ConsultantProfile.Documents").
		Preload("Wallet").
		Where(query, arg).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// LinkSubject attaches the external subject id to an account found by email
// and marks it verified. Guarded so an already-linked account is never
// overwritten with a different subject.
func (ar *accountRepo) LinkSubject(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, subjectID string) error {
	res := ar.conn(tx).WithContext(ctx).
		Model(&types.Account{}).
		Where("id = ? AND subject_id IS NULL", accountID).
		Updates(map[string]any{
			"subject_id": subjectID,
			"verified":   true,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("account already linked to a subject")
	}
	return nil
}

func (ar *accountRepo) SetRole(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, role string) error {
	return ar.conn(tx).WithContext(ctx).
		Model(&types.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{"role": role, "updated_at": time.Now().UTC()}).Error
}

func (ar *accountRepo) Update(ctx context.Context, tx *gorm.DB, account *types.Account) error {
	if err := ar.conn(tx).WithContext(ctx).Save(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (ar *accountRepo) ClearTempCredentials(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) error {
	return ar.conn(tx).WithContext(ctx).
		Model(&types.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"temp_username": "",
			"temp_password": "",
			"invite_token":  "",
			"updated_at":    time.Now().UTC(),
		}).Error
}
