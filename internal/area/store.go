package area

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

// Store persists area versions.
type Store struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewStore(db *sql.DB, dialect database.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

const areaColumns = `id, area_id, area_name, competent_authority_id, filename, filedata, created_at, ended_at`

// GetCurrent returns the current version for the functional id, or
// sentinel.ErrNotFound when none is live.
func (s *Store) GetCurrent(ctx context.Context, areaID string) (Area, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT `+areaColumns+`
		FROM area
		WHERE area_id = $1 AND ended_at IS NULL`, areaID)

	a, err := scanArea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Area{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Area{}, fmt.Errorf("get current area: %w", database.Remap(err))
	}
	return a, nil
}

// GetCurrentOwnedBy returns the current version for the functional id only
// when its pinned authority carries the given authority functional id.
func (s *Store) GetCurrentOwnedBy(ctx context.Context, areaID, authorityID string) (Area, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT a.id, a.area_id, a.area_name, a.competent_authority_id, a.filename, a.filedata, a.created_at, a.ended_at
		FROM area a
		JOIN competent_authority ca ON ca.id = a.competent_authority_id
		WHERE a.area_id = $1 AND ca.competent_authority_id = $2 AND a.ended_at IS NULL`, areaID, authorityID)

	a, err := scanArea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Area{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Area{}, fmt.Errorf("get current area for authority: %w", database.Remap(err))
	}
	return a, nil
}

// ExistsAny reports whether any version, current or ended, exists for the id.
func (s *Store) ExistsAny(ctx context.Context, areaID string) (bool, error) {
	q := tx.Resolve(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM area WHERE area_id = $1`, areaID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check area history: %w", database.Remap(err))
	}
	return count > 0, nil
}

// EndCurrent sets ended_at on the current version.
func (s *Store) EndCurrent(ctx context.Context, areaID string, endedAt time.Time) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE area SET ended_at = $1
		WHERE area_id = $2 AND ended_at IS NULL`,
		s.dialect.TimeValue(endedAt), areaID)
	if err != nil {
		return fmt.Errorf("end area version: %w", database.Remap(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end area version: %w", database.Remap(err))
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// EndCurrentOwnedBy sets ended_at on the current version only when its
// pinned authority carries the given authority functional id. The single
// statement leaves no window for a concurrent delete to slip between a
// lookup and the update.
func (s *Store) EndCurrentOwnedBy(ctx context.Context, areaID, authorityID string, endedAt time.Time) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE area SET ended_at = $1
		WHERE area_id = $2 AND ended_at IS NULL
		AND competent_authority_id IN (
			SELECT id FROM competent_authority WHERE competent_authority_id = $3)`,
		s.dialect.TimeValue(endedAt), areaID, authorityID)
	if err != nil {
		return fmt.Errorf("end area version: %w", database.Remap(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end area version: %w", database.Remap(err))
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Create inserts a new current version and returns it with its technical id.
func (s *Store) Create(ctx context.Context, a Area) (Area, error) {
	q := tx.Resolve(ctx, s.db)
	err := q.QueryRowContext(ctx, `
		INSERT INTO area (area_id, area_name, competent_authority_id, filename, filedata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		a.AreaID, database.NullString(a.Name), a.AuthorityTechnicalID, a.Filename, a.Filedata,
		s.dialect.TimeValue(a.CreatedAt)).Scan(&a.TechnicalID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Area{}, sentinel.ErrConflict
		}
		return Area{}, fmt.Errorf("create area version: %w", database.Remap(err))
	}
	return a, nil
}

// List returns all current areas with their owning authority, newest first.
// limit <= 0 means unlimited.
func (s *Store) List(ctx context.Context, offset, limit int) ([]Listing, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT a.area_id, a.area_name, ca.competent_authority_id, ca.competent_authority_name, a.filename, a.created_at
		FROM area a
		JOIN competent_authority ca ON ca.id = a.competent_authority_id
		WHERE a.ended_at IS NULL
		ORDER BY a.created_at DESC, a.id DESC`+s.dialect.LimitOffset(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", database.Remap(err))
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var (
			l         Listing
			name      sql.NullString
			caName    sql.NullString
			createdAt database.Time
		)
		if err := rows.Scan(&l.AreaID, &name, &l.AuthorityID, &caName, &l.Filename, &createdAt); err != nil {
			return nil, fmt.Errorf("list areas: %w", database.Remap(err))
		}
		l.Name = name.String
		l.AuthorityName = caName.String
		l.CreatedAt = createdAt.V
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list areas: %w", database.Remap(err))
	}
	return listings, nil
}

// ListByAuthority returns the authority's own current areas, newest first.
func (s *Store) ListByAuthority(ctx context.Context, authorityID string, offset, limit int) ([]OwnListing, error) {
	q := tx.Resolve(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT a.area_id, a.area_name, a.filename, a.created_at
		FROM area a
		JOIN competent_authority ca ON ca.id = a.competent_authority_id
		WHERE ca.competent_authority_id = $1 AND a.ended_at IS NULL
		ORDER BY a.created_at DESC, a.id DESC`+s.dialect.LimitOffset(limit, offset), authorityID)
	if err != nil {
		return nil, fmt.Errorf("list areas for authority: %w", database.Remap(err))
	}
	defer rows.Close()

	var listings []OwnListing
	for rows.Next() {
		var (
			l         OwnListing
			name      sql.NullString
			createdAt database.Time
		)
		if err := rows.Scan(&l.AreaID, &name, &l.Filename, &createdAt); err != nil {
			return nil, fmt.Errorf("list areas for authority: %w", database.Remap(err))
		}
		l.Name = name.String
		l.CreatedAt = createdAt.V
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list areas for authority: %w", database.Remap(err))
	}
	return listings, nil
}

// Count returns the number of current areas.
func (s *Store) Count(ctx context.Context) (int, error) {
	q := tx.Resolve(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM area WHERE ended_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count areas: %w", database.Remap(err))
	}
	return count, nil
}

// CountByAuthority returns the number of the authority's own current areas.
func (s *Store) CountByAuthority(ctx context.Context, authorityID string) (int, error) {
	q := tx.Resolve(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM area a
		JOIN competent_authority ca ON ca.id = a.competent_authority_id
		WHERE ca.competent_authority_id = $1 AND a.ended_at IS NULL`, authorityID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count areas for authority: %w", database.Remap(err))
	}
	return count, nil
}

func scanArea(row *sql.Row) (Area, error) {
	var (
		a         Area
		name      sql.NullString
		createdAt database.Time
		endedAt   database.NullTime
	)
	if err := row.Scan(&a.TechnicalID, &a.AreaID, &name, &a.AuthorityTechnicalID,
		&a.Filename, &a.Filedata, &createdAt, &endedAt); err != nil {
		return Area{}, err
	}
	a.Name = name.String
	a.CreatedAt = createdAt.V
	a.EndedAt = endedAt.Ptr()
	return a, nil
}
