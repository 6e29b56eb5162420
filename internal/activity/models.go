// Package activity implements the rental activity resource: bookings
// reported by platforms against a regulated area. Activities are versioned
// records pinned to both the area version and the platform version that were
// current at submission time.
package activity

import "time"

// Address is a value composite embedded in Activity. Letter and Addition
// are optional and empty when absent.
type Address struct {
	Street     string
	Number     int
	Letter     string
	Addition   string
	PostalCode string
	City       string
}

// Temporal is the rental period composite.
type Temporal struct {
	Start time.Time
	End   time.Time
}

// Activity is one version of an activity record. The technical references
// point at specific parent rows, never at "whichever version is current".
type Activity struct {
	TechnicalID         int64
	ActivityID          string
	Name                string
	PlatformTechnicalID int64
	AreaTechnicalID     int64
	URL                 string
	Address             Address
	RegistrationNumber  string
	NumberOfGuests      *int
	CountryOfGuests     []string
	Temporal            Temporal
	CreatedAt           time.Time
	EndedAt             *time.Time
}

// AuthorityListing is the competent authority's view of a current activity:
// reporting platform included, authority fields omitted.
type AuthorityListing struct {
	ActivityID         string
	Name               string
	PlatformID         string
	PlatformName       string
	AreaID             string
	URL                string
	Address            Address
	RegistrationNumber string
	NumberOfGuests     *int
	CountryOfGuests    []string
	Temporal           Temporal
	CreatedAt          time.Time
}

// OwnListing is the platform's view of its own current activity: the
// referenced area's authority included for convenience, platform fields
// omitted since the caller is the platform.
type OwnListing struct {
	ActivityID         string
	Name               string
	AreaID             string
	AuthorityID        string
	AuthorityName      string
	URL                string
	Address            Address
	RegistrationNumber string
	NumberOfGuests     *int
	CountryOfGuests    []string
	Temporal           Temporal
	CreatedAt          time.Time
}
