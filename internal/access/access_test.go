package access

import (
	"testing"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/types"
)

func TestHasRole(t *testing.T) {
	cases := []struct {
		name    string
		account *types.Account
		roles   []string
		allowed bool
	}{
		{"exact match", &types.Account{Role: types.RoleConsultant}, []string{types.RoleConsultant}, true},
		{"any of several", &types.Account{Role: types.RoleEnterpriseOwner}, []string{types.RoleConsultant, types.RoleEnterpriseOwner}, true},
		{"wrong role", &types.Account{Role: types.RoleUser}, []string{types.RoleConsultant}, false},
		{"nil account", nil, []string{types.RoleUser}, false},
	}
	for _, tc := range cases {
		err := HasRole(tc.roles...)(tc.account)
		if tc.allowed && err != nil {
			t.Fatalf("%s: unexpected deny %v", tc.name, err)
		}
		if !tc.allowed {
			if !apierr.Is(err, apierr.CodeForbidden) {
				t.Fatalf("%s: expected FORBIDDEN, got %v", tc.name, err)
			}
		}
	}
}

func TestIsVerified(t *testing.T) {
	if err := IsVerified()(&types.Account{Verified: true}); err != nil {
		t.Fatalf("verified account denied: %v", err)
	}
	if err := IsVerified()(&types.Account{Verified: false}); !apierr.Is(err, apierr.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	if err := Check(&types.Account{Role: types.RoleConsultant}, HasRole(types.RoleConsultant)); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if err := Check(nil, HasRole(types.RoleConsultant)); !apierr.Is(err, apierr.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for nil account, got %v", err)
	}
}

func TestAll_FirstFailureWins(t *testing.T) {
	account := &types.Account{Role: types.RoleConsultant, Verified: false}
	err := All(HasRole(types.RoleConsultant), IsVerified())(account)
	if !apierr.Is(err, apierr.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN from second predicate, got %v", err)
	}
	account.Verified = true
	if err := All(HasRole(types.RoleConsultant), IsVerified())(account); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
}
