// Package party holds the two caller-identity entities: competent
// authorities (municipal regulators submitting areas) and platforms
// (rental platforms submitting activities). Both are versioned records
// provisioned implicitly from the caller's token claims, never through a
// dedicated endpoint.
package party

import "time"

// CompetentAuthority is one version of a competent authority record.
// AuthorityID is the functional id from the caller's token; TechnicalID is
// the surrogate key that child areas pin their references to.
type CompetentAuthority struct {
	TechnicalID int64
	AuthorityID string
	Name        string
	CreatedAt   time.Time
	EndedAt     *time.Time
}

// Platform is one version of a rental platform record.
type Platform struct {
	TechnicalID int64
	PlatformID  string
	Name        string
	CreatedAt   time.Time
	EndedAt     *time.Time
}
