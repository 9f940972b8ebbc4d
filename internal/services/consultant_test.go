package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/types"
)

type fakeBucket struct {
	uploads map[string][]byte
	deleted []string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{uploads: map[string][]byte{}}
}

func (f *fakeBucket) UploadFile(_ context.Context, key string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.uploads[key] = data
	return nil
}

func (f *fakeBucket) DeleteFile(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBucket) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func newConsultantFixture(t *testing.T) (ConsultantService, repos.AccountRepo, *fakeBucket, *types.Account) {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger(t)
	accountRepo := repos.NewAccountRepo(db, log)
	consultantRepo := repos.NewConsultantRepo(db, log)
	bucket := newFakeBucket()

	account := &types.Account{ID: uuid.New(), Email: "pro@example.com", Role: types.RoleUser, Verified: true}
	if err := accountRepo.Create(context.Background(), nil, account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return NewConsultantService(db, log, consultantRepo, accountRepo, bucket), accountRepo, bucket, account
}

func TestCreateProfile_PendingAndRoleSwitch(t *testing.T) {
	svc, accountRepo, _, account := newConsultantFixture(t)
	ctx := context.Background()

	profile, err := svc.CreateProfile(ctx, account.ID, "Contract law", "10y experience", 25, []string{"contracts", "ip"})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if profile.Status != types.StatusPending {
		t.Fatalf("expected pending, got %q", profile.Status)
	}

	reloaded, err := accountRepo.GetByID(ctx, nil, account.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload account: %v", err)
	}
	if reloaded.Role != types.RoleConsultant {
		t.Fatalf("expected role consultant, got %q", reloaded.Role)
	}

	_, err = svc.CreateProfile(ctx, account.ID, "Again", "", 30, nil)
	if !apierr.Is(err, apierr.CodeConflict) {
		t.Fatalf("expected CONFLICT on second profile, got %v", err)
	}
}

func TestCreateProfile_RequiresPositiveRate(t *testing.T) {
	svc, _, _, account := newConsultantFixture(t)

	_, err := svc.CreateProfile(context.Background(), account.ID, "x", "", 0, nil)
	if !apierr.Is(err, apierr.CodeBadRequest) {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
}

func TestSubmitDocument_UploadsAndRecords(t *testing.T) {
	svc, _, bucket, account := newConsultantFixture(t)
	ctx := context.Background()

	if _, err := svc.CreateProfile(ctx, account.ID, "Contract law", "", 25, nil); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	doc, err := svc.SubmitDocument(ctx, account.ID, "license", "bar license.pdf", strings.NewReader("pdfdata"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if doc.Kind != "license" {
		t.Fatalf("expected kind license, got %q", doc.Kind)
	}
	if _, ok := bucket.uploads[doc.BucketKey]; !ok {
		t.Fatalf("expected upload under key %q", doc.BucketKey)
	}
	if !strings.HasPrefix(doc.URL, "https://cdn.test/") {
		t.Fatalf("expected public URL from bucket, got %q", doc.URL)
	}
}

func TestSubmitDocument_RequiresProfile(t *testing.T) {
	svc, _, _, account := newConsultantFixture(t)

	_, err := svc.SubmitDocument(context.Background(), account.ID, "license", "x.pdf", strings.NewReader("x"))
	if !apierr.Is(err, apierr.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND without profile, got %v", err)
	}
}

func TestListVerified_ExcludesPending(t *testing.T) {
	svc, _, _, account := newConsultantFixture(t)
	ctx := context.Background()

	if _, err := svc.CreateProfile(ctx, account.ID, "Contract law", "", 25, nil); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	profiles, err := svc.ListVerified(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(profiles) != 0 {
		t.Fatalf("pending profiles must not appear in the directory, got %d", len(profiles))
	}
}
