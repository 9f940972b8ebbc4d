package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/types"
)

// VerificationService drives the admin KYC approval flow. The only
// transition is pending -> verified; verifying an already-verified entity
// is a no-op success, and nothing ever moves back to pending.
type VerificationService interface {
	VerifyConsultant(ctx context.Context, profileID uuid.UUID) (*types.ConsultantProfile, error)
	VerifyEnterprise(ctx context.Context, enterpriseID uuid.UUID) (*types.Enterprise, error)
	PendingConsultants(ctx context.Context) ([]*types.ConsultantProfile, error)
	PendingEnterprises(ctx context.Context) ([]*types.Enterprise, error)
	PendingOverview(ctx context.Context) ([]*types.ConsultantProfile, []*types.Enterprise, error)
}

type verificationService struct {
	db             *gorm.DB
	log            *logger.Logger
	consultantRepo repos.ConsultantRepo
	enterpriseRepo repos.EnterpriseRepo
}

func NewVerificationService(db *gorm.DB, log *logger.Logger, consultantRepo repos.ConsultantRepo, enterpriseRepo repos.EnterpriseRepo) VerificationService {
	return &verificationService{
		db:             db,
		log:            log.With("service", "VerificationService"),
		consultantRepo: consultantRepo,
		enterpriseRepo: enterpriseRepo,
	}
}

func (vs *verificationService) VerifyConsultant(ctx context.Context, profileID uuid.UUID) (*types.ConsultantProfile, error) {
	profile, err := vs.consultantRepo.GetByID(ctx, nil, profileID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if profile == nil {
		return nil, apierr.NotFound(fmt.Errorf("consultant profile %s not found", profileID))
	}
	if profile.Status == types.StatusVerified {
		return profile, nil
	}
	if err := vs.consultantRepo.SetStatus(ctx, nil, profileID, types.StatusVerified); err != nil {
		return nil, apierr.Storage(err)
	}
	profile.Status = types.StatusVerified
	vs.log.Info("Consultant profile verified", "profile_id", profileID.String())
	return profile, nil
}

func (vs *verificationService) VerifyEnterprise(ctx context.Context, enterpriseID uuid.UUID) (*types.Enterprise, error) {
	enterprise, err := vs.enterpriseRepo.GetByID(ctx, nil, enterpriseID)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if enterprise == nil {
		return nil, apierr.NotFound(fmt.Errorf("enterprise %s not found", enterpriseID))
	}
	if enterprise.Status == types.StatusVerified {
		return enterprise, nil
	}
	if err := vs.enterpriseRepo.SetStatus(ctx, nil, enterpriseID, types.StatusVerified); err != nil {
		return nil, apierr.Storage(err)
	}
	enterprise.Status = types.StatusVerified
	vs.log.Info("Enterprise verified", "enterprise_id", enterpriseID.String())
	return enterprise, nil
}

func (vs *verificationService) PendingConsultants(ctx context.Context) ([]*types.ConsultantProfile, error) {
	profiles, err := vs.consultantRepo.ListByStatus(ctx, nil, types.StatusPending)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return profiles, nil
}

func (vs *verificationService) PendingEnterprises(ctx context.Context) ([]*types.Enterprise, error) {
	enterprises, err := vs.enterpriseRepo.ListByStatus(ctx, nil, types.StatusPending)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return enterprises, nil
}

// PendingOverview loads both review queues concurrently for the admin
// dashboard landing view.
func (vs *verificationService) PendingOverview(ctx context.Context) ([]*types.ConsultantProfile, []*types.Enterprise, error) {
	var (
		profiles    []*types.ConsultantProfile
		enterprises []*types.Enterprise
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = vs.consultantRepo.ListByStatus(gctx, nil, types.StatusPending)
		return err
	})
	g.Go(func() error {
		var err error
		enterprises, err = vs.enterpriseRepo.ListByStatus(gctx, nil, types.StatusPending)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, apierr.Storage(err)
	}
	return profiles, enterprises, nil
}
