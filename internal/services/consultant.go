package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/types"
)

type ConsultantService interface {
	CreateProfile(ctx context.Context, accountID uuid.UUID, headline, bio string, hourlyRate int64, specialties []string) (*types.ConsultantProfile, error)
	SubmitDocument(ctx context.Context, accountID uuid.UUID, kind, filename string, file io.Reader) (*types.ConsultantDocument, error)
	ListVerified(ctx context.Context) ([]*types.ConsultantProfile, error)
}

type consultantService struct {
	db             *gorm.DB
	log            *logger.Logger
	consultantRepo repos.ConsultantRepo
	accountRepo    repos.AccountRepo
	bucketService  BucketService
}

func NewConsultantService(db *gorm.DB, log *logger.Logger, consultantRepo repos.ConsultantRepo, accountRepo repos.AccountRepo, bucketService BucketService) ConsultantService {
	return &consultantService{
		db:             db,
		log:            log.With("service", "ConsultantService"),
		consultantRepo: consultantRepo,
		accountRepo:    accountRepo,
		bucketService:  bucketService,
	}
}

// CreateProfile onboards an account as a consultant: a pending profile plus
// the role switch, atomically. Verification stays with the admin workflow.
func (cs *consultantService) CreateProfile(ctx context.Context, accountID uuid.UUID, headline, bio string, hourlyRate int64, specialties []string) (*types.ConsultantProfile, error) {
	if hourlyRate <= 0 {
		return nil, apierr.BadRequest(errors.New("hourly rate must be positive"))
	}
	existing, err := cs.consultantRepo.GetByAccountID(ctx, nil, accountID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if existing != nil {
		return nil, apierr.Conflict("", fmt.Errorf("account %s already has a consultant profile", accountID))
	}

	specJSON, err := json.Marshal(specialties)
	if err != nil {
		return nil, apierr.BadRequest(fmt.Errorf("invalid specialties: %w", err))
	}
	profile := &types.ConsultantProfile{
		ID:          uuid.New(),
		AccountID:   accountID,
		Headline:    strings.TrimSpace(headline),
		Bio:         strings.TrimSpace(bio),
		HourlyRate:  hourlyRate,
		Specialties: datatypes.JSON(specJSON),
		Status:      types.StatusPending,
	}

	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cs.consultantRepo.Create(ctx, tx, profile); err != nil {
			return err
		}
		return cs.accountRepo.SetRole(ctx, tx, accountID, types.RoleConsultant)
	})
	if err != nil {
		if errors.Is(err, repos.ErrDuplicate) {
			return nil, apierr.Conflict("", fmt.Errorf("account %s already has a consultant profile", accountID))
		}
		return nil, apierr.Storage(err)
	}
	cs.log.Info("Consultant profile created", "account_id", accountID.String(), "profile_id", profile.ID.String())
	return profile, nil
}

func (cs *consultantService) SubmitDocument(ctx context.Context, accountID uuid.UUID, kind, filename string, file io.Reader) (*types.ConsultantDocument, error) {
	if cs.bucketService == nil {
		return nil, apierr.Storage(errors.New("document storage is not configured"))
	}
	profile, err := cs.consultantRepo.GetByAccountID(ctx, nil, accountID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if profile == nil {
		return nil, apierr.NotFound(fmt.Errorf("account %s has no consultant profile", accountID))
	}

	key := fmt.Sprintf("kyc_document/%s/%d-%s", profile.ID.String(), time.Now().UnixNano(), sanitizeFilename(filename))
	if err := cs.bucketService.UploadFile(ctx, key, file); err != nil {
		return nil, apierr.Storage(fmt.Errorf("upload document: %w", err))
	}

	doc := &types.ConsultantDocument{
		ID:        uuid.New(),
		ProfileID: profile.ID,
		Kind:      strings.TrimSpace(kind),
		BucketKey: key,
		URL:       cs.bucketService.GetPublicURL(key),
	}
	if err := cs.consultantRepo.AddDocument(ctx, nil, doc); err != nil {
		return nil, apierr.Storage(err)
	}
	cs.log.Info("KYC document submitted", "profile_id", profile.ID.String(), "kind", doc.Kind)
	return doc, nil
}

func (cs *consultantService) ListVerified(ctx context.Context) ([]*types.ConsultantProfile, error) {
	profiles, err := cs.consultantRepo.ListByStatus(ctx, nil, types.StatusVerified)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return profiles, nil
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "document"
	}
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	return name
}
