package auth

import (
	"github.com/spec-kit/staff-service/internal/config"
	"github.com/spec-kit/staff-service/internal/domain"
)

// Classifier derives an authority from guild roles by fixed priority.
type Classifier struct {
	tiers []tier
}

type tier struct {
	authority domain.Authority
	roles     map[string]struct{}
}

// NewClassifier builds a classifier from the configured role ids.
func NewClassifier(cfg config.DiscordConfig) *Classifier {
	return &Classifier{tiers: []tier{
		newTier(domain.AuthoritySuperAdmin, cfg.SuperAdminRoleIDs),
		newTier(domain.AuthorityHeadAdmin, cfg.HeadAdminRoleIDs),
		newTier(domain.AuthorityStaffAdmin, cfg.StaffAdminRoleIDs),
		newTier(domain.AuthorityStaffMember, cfg.StaffMemberRoleIDs),
	}}
}

func newTier(authority domain.Authority, roleIDs []string) tier {
	set := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		set[id] = struct{}{}
	}
	return tier{authority: authority, roles: set}
}

// Classify returns the highest authority any of roles maps to, or player.
func (c *Classifier) Classify(roles []string) domain.Authority {
	for _, t := range c.tiers {
		for _, role := range roles {
			if _, ok := t.roles[role]; ok {
				return t.authority
			}
		}
	}
	return domain.AuthorityPlayer
}
