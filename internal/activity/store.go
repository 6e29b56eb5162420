package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sdep-gateway/internal/platform/database"
	"sdep-gateway/pkg/sentinel"
	"sdep-gateway/pkg/tx"
)

// Store persists activity versions.
type Store struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewStore(db *sql.DB, dialect database.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// GetCurrent returns the current version for the functional id, or
// sentinel.ErrNotFound when none is live.
func (s *Store) GetCurrent(ctx context.Context, activityID string) (Activity, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT id, activity_id, activity_name, platform_id, area_id, url,
		       address_street, address_number, address_letter, address_addition,
		       address_postal_code, address_city, registration_number,
		       number_of_guests, country_of_guests,
		       temporal_start_date_time, temporal_end_date_time, created_at, ended_at
		FROM activity
		WHERE activity_id = $1 AND ended_at IS NULL`, activityID)

	a, err := s.scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Activity{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Activity{}, fmt.Errorf("get current activity: %w", database.Remap(err))
	}
	return a, nil
}

// ExistsAny reports whether any version, current or ended, exists for the id.
func (s *Store) ExistsAny(ctx context.Context, activityID string) (bool, error) {
	q := tx.Resolve(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity WHERE activity_id = $1`, activityID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check activity history: %w", database.Remap(err))
	}
	return count > 0, nil
}

// EndCurrent sets ended_at on the current version.
func (s *Store) EndCurrent(ctx context.Context, activityID string, endedAt time.Time) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE activity SET ended_at = $1
		WHERE activity_id = $2 AND ended_at IS NULL`,
		s.dialect.TimeValue(endedAt), activityID)
	if err != nil {
		return fmt.Errorf("end activity version: %w", database.Remap(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end activity version: %w", database.Remap(err))
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Create inserts a new current version and returns it with its technical id.
func (s *Store) Create(ctx context.Context, a Activity) (Activity, error) {
	countries, err := s.dialect.ArrayValue(a.CountryOfGuests)
	if err != nil {
		return Activity{}, fmt.Errorf("create activity version: %w", database.Remap(err))
	}

	q := tx.Resolve(ctx, s.db)
	err = q.QueryRowContext(ctx, `
		INSERT INTO activity (activity_id, activity_name, platform_id, area_id, url,
		    address_street, address_number, address_letter, address_addition,
		    address_postal_code, address_city, registration_number,
		    number_of_guests, country_of_guests,
		    temporal_start_date_time, temporal_end_date_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`,
		a.ActivityID, database.NullString(a.Name), a.PlatformTechnicalID, a.AreaTechnicalID,
		database.NullString(a.URL),
		a.Address.Street, a.Address.Number,
		database.NullString(a.Address.Letter), database.NullString(a.Address.Addition),
		a.Address.PostalCode, a.Address.City, a.RegistrationNumber,
		nullInt(a.NumberOfGuests), countries,
		s.dialect.TimeValue(a.Temporal.Start), s.dialect.TimeValue(a.Temporal.End),
		s.dialect.TimeValue(a.CreatedAt)).Scan(&a.TechnicalID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Activity{}, sentinel.ErrConflict
		}
		return Activity{}, fmt.Errorf("create activity version: %w", database.Remap(err))
	}
	return a, nil
}

const listingColumns = `act.activity_id, act.activity_name, act.url,
		       act.address_street, act.address_number, act.address_letter, act.address_addition,
		       act.address_postal_code, act.address_city, act.registration_number,
		       act.number_of_guests, act.country_of_guests,
		       act.temporal_start_date_time, act.temporal_end_date_time, act.created_at`

// ListByAuthority returns current activities whose referenced area belongs
// to the given authority, newest first. limit <= 0 means unlimited.
func (s *Store) ListByAuthority(ctx context.Context, authorityID string, offset, limit int) ([]AuthorityListing, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+listingColumns+`, p.platform_id, p.platform_name, ar.area_id
		FROM activity act
		JOIN platform p ON p.id = act.platform_id
		JOIN area ar ON ar.id = act.area_id
		JOIN competent_authority ca ON ca.id = ar.competent_authority_id
		WHERE ca.competent_authority_id = $1 AND act.ended_at IS NULL
		ORDER BY act.created_at DESC, act.id DESC`+s.dialect.LimitOffset(limit, offset), authorityID)
	if err != nil {
		return nil, fmt.Errorf("list activities for authority: %w", database.Remap(err))
	}
	defer rows.Close()

	var listings []AuthorityListing
	for rows.Next() {
		var (
			l            AuthorityListing
			core         listingScan
			platformName sql.NullString
		)
		dest := core.targets(s.dialect)
		dest = append(dest, &l.PlatformID, &platformName, &l.AreaID)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("list activities for authority: %w", database.Remap(err))
		}
		core.apply(&l.ActivityID, &l.Name, &l.URL, &l.Address, &l.RegistrationNumber,
			&l.NumberOfGuests, &l.CountryOfGuests, &l.Temporal, &l.CreatedAt)
		l.PlatformName = platformName.String
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities for authority: %w", database.Remap(err))
	}
	return listings, nil
}

// ListByPlatform returns the platform's own current activities, newest
// first, with the referenced area's authority attached.
func (s *Store) ListByPlatform(ctx context.Context, platformID string, offset, limit int) ([]OwnListing, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT `+listingColumns+`, ar.area_id, ca.competent_authority_id, ca.competent_authority_name
		FROM activity act
		JOIN platform p ON p.id = act.platform_id
		JOIN area ar ON ar.id = act.area_id
		JOIN competent_authority ca ON ca.id = ar.competent_authority_id
		WHERE p.platform_id = $1 AND act.ended_at IS NULL
		ORDER BY act.created_at DESC, act.id DESC`+s.dialect.LimitOffset(limit, offset), platformID)
	if err != nil {
		return nil, fmt.Errorf("list activities for platform: %w", database.Remap(err))
	}
	defer rows.Close()

	var listings []OwnListing
	for rows.Next() {
		var (
			l             OwnListing
			core          listingScan
			authorityName sql.NullString
		)
		dest := core.targets(s.dialect)
		dest = append(dest, &l.AreaID, &l.AuthorityID, &authorityName)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("list activities for platform: %w", database.Remap(err))
		}
		core.apply(&l.ActivityID, &l.Name, &l.URL, &l.Address, &l.RegistrationNumber,
			&l.NumberOfGuests, &l.CountryOfGuests, &l.Temporal, &l.CreatedAt)
		l.AuthorityName = authorityName.String
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities for platform: %w", database.Remap(err))
	}
	return listings, nil
}

// Count returns the number of current activities.
func (s *Store) Count(ctx context.Context) (int, error) {
	q := tx.Resolve(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity WHERE ended_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", database.Remap(err))
	}
	return count, nil
}

// CountByAuthority returns the number of current activities whose referenced
// area belongs to the given authority.
func (s *Store) CountByAuthority(ctx context.Context, authorityID string) (int, error) {
	q := tx.Resolve(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activity act
		JOIN area ar ON ar.id = act.area_id
		JOIN competent_authority ca ON ca.id = ar.competent_authority_id
		WHERE ca.competent_authority_id = $1 AND act.ended_at IS NULL`, authorityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count activities for authority: %w", database.Remap(err))
	}
	return count, nil
}

// CountByPlatform returns the number of the platform's own current activities.
func (s *Store) CountByPlatform(ctx context.Context, platformID string) (int, error) {
	q := tx.Resolve(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activity act
		JOIN platform p ON p.id = act.platform_id
		WHERE p.platform_id = $1 AND act.ended_at IS NULL`, platformID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count activities for platform: %w", database.Remap(err))
	}
	return count, nil
}

// listingScan holds the intermediate scan state shared by the listing
// queries, which select the same activity columns in the same order.
type listingScan struct {
	activityID string
	name       sql.NullString
	url        sql.NullString
	street     string
	number     int
	letter     sql.NullString
	addition   sql.NullString
	postalCode string
	city       string
	regNumber  string
	guests     sql.NullInt64
	countries  []string
	start      database.Time
	end        database.Time
	createdAt  database.Time
}

func (c *listingScan) targets(dialect database.Dialect) []any {
	return []any{
		&c.activityID, &c.name, &c.url,
		&c.street, &c.number, &c.letter, &c.addition,
		&c.postalCode, &c.city, &c.regNumber,
		&c.guests, dialect.ArrayScanner(&c.countries),
		&c.start, &c.end, &c.createdAt,
	}
}

func (c *listingScan) apply(activityID, name, url *string, addr *Address, regNumber *string,
	guests **int, countries *[]string, temporal *Temporal, createdAt *time.Time) {
	*activityID = c.activityID
	*name = c.name.String
	*url = c.url.String
	*addr = Address{
		Street:     c.street,
		Number:     c.number,
		Letter:     c.letter.String,
		Addition:   c.addition.String,
		PostalCode: c.postalCode,
		City:       c.city,
	}
	*regNumber = c.regNumber
	if c.guests.Valid {
		v := int(c.guests.Int64)
		*guests = &v
	}
	*countries = c.countries
	*temporal = Temporal{Start: c.start.V, End: c.end.V}
	*createdAt = c.createdAt.V
}

func (s *Store) scanActivity(row *sql.Row) (Activity, error) {
	var (
		a         Activity
		name      sql.NullString
		url       sql.NullString
		letter    sql.NullString
		addition  sql.NullString
		guests    sql.NullInt64
		start     database.Time
		end       database.Time
		createdAt database.Time
		endedAt   database.NullTime
	)
	err := row.Scan(&a.TechnicalID, &a.ActivityID, &name, &a.PlatformTechnicalID, &a.AreaTechnicalID,
		&url, &a.Address.Street, &a.Address.Number, &letter, &addition,
		&a.Address.PostalCode, &a.Address.City, &a.RegistrationNumber,
		&guests, s.dialect.ArrayScanner(&a.CountryOfGuests),
		&start, &end, &createdAt, &endedAt)
	if err != nil {
		return Activity{}, err
	}
	a.Name = name.String
	a.URL = url.String
	a.Address.Letter = letter.String
	a.Address.Addition = addition.String
	if guests.Valid {
		v := int(guests.Int64)
		a.NumberOfGuests = &v
	}
	a.Temporal = Temporal{Start: start.V, End: end.V}
	a.CreatedAt = createdAt.V
	a.EndedAt = endedAt.Ptr()
	return a, nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
