package access

import (
	"fmt"

	"github.com/konsulo/konsulo-backend/internal/apierr"
	"github.com/konsulo/konsulo-backend/internal/types"
)

// Predicate is one access rule over a resolved account. Predicates are pure:
// they inspect account state and either permit or fail with Forbidden.
type Predicate func(account *types.Account) error

func HasRole(roles ...string) Predicate {
	return func(account *types.Account) error {
		if account == nil {
			return apierr.Forbidden(fmt.Errorf("no resolved account"))
		}
		for _, role := range roles {
			if account.Role == role {
				return nil
			}
		}
		return apierr.Forbidden(fmt.Errorf("role %q not permitted", account.Role))
	}
}

func IsVerified() Predicate {
	return func(account *types.Account) error {
		if account == nil {
			return apierr.Forbidden(fmt.Errorf("no resolved account"))
		}
		if !account.Verified {
			return apierr.Forbidden(fmt.Errorf("account not verified"))
		}
		return nil
	}
}

// All composes predicates; the first failure wins.
func All(preds ...Predicate) Predicate {
	return func(account *types.Account) error {
		for _, p := range preds {
			if err := p(account); err != nil {
				return err
			}
		}
		return nil
	}
}

// Check evaluates a predicate against an account. Convenience for call
// sites that hold a predicate value.
func Check(account *types.Account, pred Predicate) error {
	return pred(account)
}
