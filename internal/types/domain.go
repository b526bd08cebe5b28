package types

// Domain is the closed-set topic label used to route generation.
type Domain string

// Domains
const (
	DomainPublicSocial    Domain = "public-social"
	DomainEducation       Domain = "education"
	DomainIndustryEconomy Domain = "industry-economy"
	DomainHealthWelfare   Domain = "health-welfare"
	DomainNone            Domain = "none"
)

// AllDomains lists every domain label.
var AllDomains = []Domain{
	DomainPublicSocial, DomainEducation, DomainIndustryEconomy, DomainHealthWelfare, DomainNone,
}
