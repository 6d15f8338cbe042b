package domain

// Capability is an external grant (a guild role) that represents a staff position.
type Capability string

const (
	CapabilityProbation Capability = "probation"
	CapabilityStaff     Capability = "staff"
	CapabilityWhitelist Capability = "whitelist"
)

// RankCapability returns the capability that represents rank r.
func RankCapability(r Rank) Capability {
	return Capability("rank:" + string(r))
}

// RankCapabilities lists the capabilities of every rank.
func RankCapabilities() []Capability {
	out := make([]Capability, 0, len(Ranks))
	for _, r := range Ranks {
		out = append(out, RankCapability(r))
	}
	return out
}

// StaffCapabilities lists every capability removed when a member leaves staff.
func StaffCapabilities() []Capability {
	return append([]Capability{CapabilityProbation, CapabilityStaff}, RankCapabilities()...)
}
