package party

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

// AuthorityStore persists competent authority versions.
type AuthorityStore struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewAuthorityStore(db *sql.DB, dialect database.Dialect) *AuthorityStore {
	return &AuthorityStore{db: db, dialect: dialect}
}

// GetCurrent returns the current version for the functional id, or
// sentinel.ErrNotFound when none is live.
func (s *AuthorityStore) GetCurrent(ctx context.Context, authorityID string) (CompetentAuthority, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT id, competent_authority_id, competent_authority_name, created_at, ended_at
		FROM competent_authority
		WHERE competent_authority_id = $1 AND ended_at IS NULL`, authorityID)

	ca, err := scanAuthority(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CompetentAuthority{}, sentinel.ErrNotFound
	}
	if err != nil {
		return CompetentAuthority{}, fmt.Errorf("get current competent authority: %w", database.Remap(err))
	}
	return ca, nil
}

// GetByTechnicalID returns the exact version a child record is pinned to,
// whether or not it is still current.
func (s *AuthorityStore) GetByTechnicalID(ctx context.Context, technicalID int64) (CompetentAuthority, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT id, competent_authority_id, competent_authority_name, created_at, ended_at
		FROM competent_authority
		WHERE id = $1`, technicalID)

	ca, err := scanAuthority(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CompetentAuthority{}, sentinel.ErrNotFound
	}
	if err != nil {
		return CompetentAuthority{}, fmt.Errorf("get competent authority by technical id: %w", database.Remap(err))
	}
	return ca, nil
}

// ExistsAny reports whether any version, current or ended, exists for the id.
func (s *AuthorityStore) ExistsAny(ctx context.Context, authorityID string) (bool, error) {
	q := tx.Resolve(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM competent_authority WHERE competent_authority_id = $1`, authorityID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check competent authority history: %w", database.Remap(err))
	}
	return count > 0, nil
}

// EndCurrent sets ended_at on the current version.
func (s *AuthorityStore) EndCurrent(ctx context.Context, authorityID string, endedAt time.Time) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE competent_authority SET ended_at = $1
		WHERE competent_authority_id = $2 AND ended_at IS NULL`,
		s.dialect.TimeValue(endedAt), authorityID)
	if err != nil {
		return fmt.Errorf("end competent authority version: %w", database.Remap(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end competent authority version: %w", database.Remap(err))
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Create inserts a new current version and returns it with its technical id.
func (s *AuthorityStore) Create(ctx context.Context, ca CompetentAuthority) (CompetentAuthority, error) {
	q := tx.Resolve(ctx, s.db)
	err := q.QueryRowContext(ctx, `
		INSERT INTO competent_authority (competent_authority_id, competent_authority_name, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		ca.AuthorityID, database.NullString(ca.Name), s.dialect.TimeValue(ca.CreatedAt)).Scan(&ca.TechnicalID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return CompetentAuthority{}, sentinel.ErrConflict
		}
		return CompetentAuthority{}, fmt.Errorf("create competent authority version: %w", database.Remap(err))
	}
	return ca, nil
}

func scanAuthority(row *sql.Row) (CompetentAuthority, error) {
	var (
		ca        CompetentAuthority
		name      sql.NullString
		createdAt database.Time
		endedAt   database.NullTime
	)
	if err := row.Scan(&ca.TechnicalID, &ca.AuthorityID, &name, &createdAt, &endedAt); err != nil {
		return CompetentAuthority{}, err
	}
	ca.Name = name.String
	ca.CreatedAt = createdAt.V
	ca.EndedAt = endedAt.Ptr()
	return ca, nil
}
