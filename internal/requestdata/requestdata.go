package requestdata

import (
	"context"

	"github.com/google/uuid"
)

var requestDataKey = struct{}{}
var adminDataKey = struct{ admin bool }{admin: true}

// RequestData is the per-request identity resolved by the auth middleware.
// Handlers and services read it from the context instead of re-parsing
// credentials.
type RequestData struct {
	AccountID uuid.UUID
	SubjectID string
	Email     string
	Role      string
	Verified  bool
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}

// AdminData identifies the operator behind an admin-console request. It is
// populated from the admin session token, never from the external identity
// provider path.
type AdminData struct {
	AdminID uuid.UUID
	Email   string
}

func WithAdminData(ctx context.Context, ad *AdminData) context.Context {
	return context.WithValue(ctx, adminDataKey, ad)
}

func GetAdminData(ctx context.Context) *AdminData {
	if ad, ok := ctx.Value(adminDataKey).(*AdminData); ok {
		return ad
	}
	return nil
}
