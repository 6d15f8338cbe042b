package domain

import "errors"

// ErrInvalidGrant is returned by an identity provider that rejected the authorization code.
var ErrInvalidGrant = errors.New("authorization code rejected")

// Authority is the permission tier derived from guild roles at login.
// It is stored as a cache of the identity provider's answer and overwritten on every login.
type Authority string

const (
	AuthorityPlayer      Authority = "player"
	AuthorityStaffMember Authority = "staff_member"
	AuthorityStaffAdmin  Authority = "staff_admin"
	AuthorityHeadAdmin   Authority = "head_admin"
	AuthoritySuperAdmin  Authority = "super_admin"
)

var authorityOrder = map[Authority]int{
	AuthorityPlayer:      0,
	AuthorityStaffMember: 1,
	AuthorityStaffAdmin:  2,
	AuthorityHeadAdmin:   3,
	AuthoritySuperAdmin:  4,
}

// Level returns the ordinal of the authority; unknown values rank as player.
func (a Authority) Level() int {
	return authorityOrder[a]
}

// AtLeast reports whether a ranks at or above other.
func (a Authority) AtLeast(other Authority) bool {
	return a.Level() >= other.Level()
}

// Valid reports whether a is a known authority.
func (a Authority) Valid() bool {
	_, ok := authorityOrder[a]
	return ok
}

// Identity is what the identity provider returns for an OAuth code.
type Identity struct {
	ExternalID string
	Username   string
	Avatar     string
	Roles      []string
}
