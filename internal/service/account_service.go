package service

import (
	"context"
	"strings"

	"github.com/spec-kit/staff-service/internal/domain"
	"github.com/spec-kit/staff-service/internal/repository"
	apperrors "github.com/spec-kit/staff-service/pkg/util/errorutil"
)

// AccountService serves account administration.
type AccountService struct {
	accounts repository.AccountRepository
}

// NewAccountService builds the service.
func NewAccountService(repos *repository.Repositories) *AccountService {
	return &AccountService{accounts: repos.Accounts}
}

// List returns accounts matching filter.
func (s *AccountService) List(ctx context.Context, actor *domain.Account, filter repository.AccountFilter) ([]domain.Account, error) {
	if err := requireAuthority(actor, domain.AuthorityStaffAdmin); err != nil {
		return nil, err
	}
	if filter.StaffStatus != nil && !filter.StaffStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid staff_status", map[string]any{"staff_status": *filter.StaffStatus})
	}
	accounts, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return accounts, nil
}

// SetAuthority overrides an account's authority. The next login recomputes it from the
// member's guild roles.
func (s *AccountService) SetAuthority(ctx context.Context, actor *domain.Account, discordID string, authority domain.Authority) (*domain.Account, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return nil, err
	}
	if !authority.Valid() {
		return nil, apperrors.NewValidationError("invalid authority", map[string]any{"authority": authority})
	}
	discordID = strings.TrimSpace(discordID)
	if discordID == actor.DiscordID {
		return nil, apperrors.NewValidationError("cannot change your own authority", nil)
	}
	account, err := s.accounts.SetAuthority(ctx, discordID, authority)
	if err != nil {
		return nil, mapRepoErr(err, "account")
	}
	return account, nil
}
