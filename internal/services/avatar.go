package services

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/konsulo/konsulo-backend/internal/logger"
	"github.com/konsulo/konsulo-backend/internal/repos"
	"github.com/konsulo/konsulo-backend/internal/types"
)

// AvatarService renders an initials avatar for a freshly provisioned
// account and uploads it to object storage. The background color is a
// stable hash of the email so re-renders look identical.
type AvatarService interface {
	CreateAndUploadAccountAvatar(ctx context.Context, account *types.Account) error
}

type avatarService struct {
	log           *logger.Logger
	accountRepo   repos.AccountRepo
	bucketService BucketService
	palette       []color.NRGBA
	fontFace      font.Face
}

func NewAvatarService(log *logger.Logger, accountRepo repos.AccountRepo, bucketService BucketService) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")

	fontPath := os.Getenv("AVATAR_FONT")
	if strings.TrimSpace(fontPath) == "" {
		return nil, fmt.Errorf("env var AVATAR_FONT is empty")
	}
	face, err := loadFontFace(fontPath, 206)
	if err != nil {
		return nil, fmt.Errorf("could not load avatar font: %w", err)
	}

	return &avatarService{
		log:           serviceLog,
		accountRepo:   accountRepo,
		bucketService: bucketService,
		palette: []color.NRGBA{
			{R: 0x4C, G: 0x6E, B: 0xF5, A: 0xFF},
			{R: 0x0E, G: 0xA5, B: 0xE9, A: 0xFF},
			{R: 0x10, G: 0xB9, B: 0x81, A: 0xFF},
			{R: 0xF5, G: 0x9E, B: 0x0B, A: 0xFF},
			{R: 0xEF, G: 0x44, B: 0x44, A: 0xFF},
			{R: 0x8B, G: 0x5C, B: 0xF6, A: 0xFF},
			{R: 0xEC, G: 0x48, B: 0x99, A: 0xFF},
		},
		fontFace: face,
	}, nil
}

func (as *avatarService) CreateAndUploadAccountAvatar(ctx context.Context, account *types.Account) error {
	buf, err := as.render(account)
	if err != nil {
		return err
	}

	oldKey := strings.TrimSpace(account.AvatarBucketKey)
	newKey := fmt.Sprintf("account_avatar/%s/%d.png", account.ID.String(), time.Now().UnixNano())

	if err := as.bucketService.UploadFile(ctx, newKey, bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("failed to upload account avatar: %w", err)
	}

	account.AvatarBucketKey = newKey
	account.AvatarURL = as.bucketService.GetPublicURL(newKey)
	if err := as.accountRepo.Update(ctx, nil, account); err != nil {
		return fmt.Errorf("failed to persist avatar reference: %w", err)
	}

	// Best-effort delete of the previous object once the new one is live.
	if oldKey != "" && oldKey != newKey {
		if err := as.bucketService.DeleteFile(ctx, oldKey); err != nil {
			as.log.Warn("Failed to delete old avatar (ignored)", "oldKey", oldKey, "error", err)
		}
	}
	return nil
}

func (as *avatarService) render(account *types.Account) (bytes.Buffer, error) {
	const size = 512
	const finalSize = 256

	dc := gg.NewContext(size, size)
	dc.DrawCircle(size/2, size/2, size/2)
	dc.Clip()

	bg := as.palette[colorIndex(account.Email, len(as.palette))]
	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, size, size)
	dc.Fill()

	dc.SetFontFace(as.fontFace)
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(initials(account), size/2, size/2, 0.5, 0.46)

	// Render at 2x then downscale for smoother edges.
	scaled := image.NewNRGBA(image.Rect(0, 0, finalSize, finalSize))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), dc.Image(), dc.Image().Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return bytes.Buffer{}, fmt.Errorf("encode avatar png: %w", err)
	}
	return buf, nil
}

func initials(account *types.Account) string {
	first := strings.TrimSpace(account.FirstName)
	last := strings.TrimSpace(account.LastName)
	out := ""
	if first != "" {
		out += strings.ToUpper(first[:1])
	}
	if last != "" {
		out += strings.ToUpper(last[:1])
	}
	if out == "" && account.Email != "" {
		out = strings.ToUpper(account.Email[:1])
	}
	if out == "" {
		out = "?"
	}
	return out
}

func colorIndex(seed string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(seed)))
	return int(h.Sum32() % uint32(n))
}

func loadFontFace(path string, points float64) (font.Face, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parsed, err := truetype.Parse(raw)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(parsed, &truetype.Options{Size: points}), nil
}
