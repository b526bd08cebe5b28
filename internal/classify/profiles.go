package classify

import "github.com/jonathan/autosurvey/internal/types"

// Generation profiles
const (
	ProfilePublic   = "autosurvey-public"
	ProfileEdu      = "autosurvey-edu"
	ProfileIndustry = "autosurvey-industry"
	ProfileHealth   = "autosurvey-health"
	// ProfileGeneral serves unmapped domains, including DomainNone.
	ProfileGeneral = "general-purpose"
)

var profileTable = map[types.Domain]string{
	types.DomainPublicSocial:    ProfilePublic,
	types.DomainEducation:       ProfileEdu,
	types.DomainIndustryEconomy: ProfileIndustry,
	types.DomainHealthWelfare:   ProfileHealth,
}

// ProfileFor returns the generation profile for a domain.
func ProfileFor(d types.Domain) string {
	if profile, ok := profileTable[d]; ok {
		return profile
	}
	return ProfileGeneral
}

// Profiles lists every profile id, general-purpose last.
func Profiles() []string {
	return []string{ProfilePublic, ProfileEdu, ProfileIndustry, ProfileHealth, ProfileGeneral}
}
