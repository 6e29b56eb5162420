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

// PlatformStore persists rental platform versions.
type PlatformStore struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewPlatformStore(db *sql.DB, dialect database.Dialect) *PlatformStore {
	return &PlatformStore{db: db, dialect: dialect}
}

// GetCurrent returns the current version for the functional id, or
// sentinel.ErrNotFound when none is live.
func (s *PlatformStore) GetCurrent(ctx context.Context, platformID string) (Platform, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		SELECT id, platform_id, platform_name, created_at, ended_at
		FROM platform
		WHERE platform_id = $1 AND ended_at IS NULL`, platformID)

	p, err := scanPlatform(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Platform{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Platform{}, fmt.Errorf("get current platform: %w", database.Remap(err))
	}
	return p, nil
}

// ExistsAny reports whether any version, current or ended, exists for the id.
func (s *PlatformStore) ExistsAny(ctx context.Context, platformID string) (bool, error) {
	q := tx.Resolve(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM platform WHERE platform_id = $1`, platformID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check platform history: %w", database.Remap(err))
	}
	return count > 0, nil
}

// EndCurrent sets ended_at on the current version.
func (s *PlatformStore) EndCurrent(ctx context.Context, platformID string, endedAt time.Time) error {
	q := tx.Resolve(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE platform SET ended_at = $1
		WHERE platform_id = $2 AND ended_at IS NULL`,
		s.dialect.TimeValue(endedAt), platformID)
	if err != nil {
		return fmt.Errorf("end platform version: %w", database.Remap(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end platform version: %w", database.Remap(err))
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Create inserts a new current version and returns it with its technical id.
func (s *PlatformStore) Create(ctx context.Context, p Platform) (Platform, error) {
	q := tx.Resolve(ctx, s.db)
	err := q.QueryRowContext(ctx, `
		INSERT INTO platform (platform_id, platform_name, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		p.PlatformID, database.NullString(p.Name), s.dialect.TimeValue(p.CreatedAt)).Scan(&p.TechnicalID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Platform{}, sentinel.ErrConflict
		}
		return Platform{}, fmt.Errorf("create platform version: %w", database.Remap(err))
	}
	return p, nil
}

func scanPlatform(row *sql.Row) (Platform, error) {
	var (
		p         Platform
		name      sql.NullString
		createdAt database.Time
		endedAt   database.NullTime
	)
	if err := row.Scan(&p.TechnicalID, &p.PlatformID, &name, &createdAt, &endedAt); err != nil {
		return Platform{}, err
	}
	p.Name = name.String
	p.CreatedAt = createdAt.V
	p.EndedAt = endedAt.Ptr()
	return p, nil
}
