// Package area implements the geographic area resource: shapefiles submitted
// by competent authorities and retrievable by rental platforms. Areas are
// versioned records; the owning authority reference is pinned to the
// authority version that was current when the area version was written.
package area

import "time"

// Area is one version of an area record. AuthorityTechnicalID references a
// specific competent authority row, not the authority's functional id.
type Area struct {
	TechnicalID          int64
	AreaID               string
	Name                 string
	AuthorityTechnicalID int64
	Filename             string
	Filedata             []byte
	CreatedAt            time.Time
	EndedAt              *time.Time
}

// Listing is the member-state-wide view of a current area, including the
// owning authority's functional id and name.
type Listing struct {
	AreaID        string
	Name          string
	AuthorityID   string
	AuthorityName string
	Filename      string
	CreatedAt     time.Time
}

// OwnListing is the authority-scoped view of a current area. Authority
// fields are omitted since the caller is the authority.
type OwnListing struct {
	AreaID    string
	Name      string
	Filename  string
	CreatedAt time.Time
}

// Shapefile is the downloadable payload of a current area.
type Shapefile struct {
	Filename string
	Filedata []byte
}
