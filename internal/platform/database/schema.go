package database

// Schema DDL for the four versioned entities. Column shapes and named
// constraints track the production migration set; the partial unique
// indexes additionally pin the one-current-row-per-functional-id invariant
// at the store level so a concurrent resubmission of the same functional id
// deterministically fails one of the two transactions.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS competent_authority (
    id BIGSERIAL PRIMARY KEY,
    competent_authority_id VARCHAR(64) NOT NULL,
    competent_authority_name VARCHAR(64),
    created_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ,
    CONSTRAINT uq_competent_authority_competent_authority_id_created_at
        UNIQUE (competent_authority_id, created_at)
);`,
	`CREATE INDEX IF NOT EXISTS ix_competent_authority_competent_authority_id
    ON competent_authority (competent_authority_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_competent_authority_current
    ON competent_authority (competent_authority_id) WHERE ended_at IS NULL;`,

	`CREATE TABLE IF NOT EXISTS platform (
    id BIGSERIAL PRIMARY KEY,
    platform_id VARCHAR(64) NOT NULL,
    platform_name VARCHAR(64),
    created_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ,
    CONSTRAINT uq_platform_platform_id_created_at UNIQUE (platform_id, created_at)
);`,
	`CREATE INDEX IF NOT EXISTS ix_platform_platform_id ON platform (platform_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_platform_current
    ON platform (platform_id) WHERE ended_at IS NULL;`,

	`CREATE TABLE IF NOT EXISTS area (
    id BIGSERIAL PRIMARY KEY,
    area_id VARCHAR(64) NOT NULL,
    area_name VARCHAR(64),
    competent_authority_id BIGINT NOT NULL REFERENCES competent_authority (id),
    filename VARCHAR(64) NOT NULL,
    filedata BYTEA NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ,
    CONSTRAINT uq_area_area_id_competent_authority_id_created_at
        UNIQUE (area_id, competent_authority_id, created_at),
    CONSTRAINT ck_area_filedata_max_size CHECK (length(filedata) <= 1048576)
);`,
	`CREATE INDEX IF NOT EXISTS ix_area_area_id ON area (area_id);`,
	`CREATE INDEX IF NOT EXISTS ix_area_competent_authority_id ON area (competent_authority_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_area_current
    ON area (area_id) WHERE ended_at IS NULL;`,

	`CREATE TABLE IF NOT EXISTS activity (
    id BIGSERIAL PRIMARY KEY,
    activity_id VARCHAR(64) NOT NULL,
    activity_name VARCHAR(64),
    platform_id BIGINT NOT NULL REFERENCES platform (id),
    area_id BIGINT NOT NULL REFERENCES area (id),
    url VARCHAR(128),
    address_street VARCHAR(64) NOT NULL,
    address_number INTEGER NOT NULL,
    address_letter VARCHAR(1),
    address_addition VARCHAR(10),
    address_postal_code VARCHAR(8) NOT NULL,
    address_city VARCHAR(64) NOT NULL,
    registration_number VARCHAR(32) NOT NULL,
    number_of_guests INTEGER,
    country_of_guests TEXT[],
    temporal_start_date_time TIMESTAMPTZ NOT NULL,
    temporal_end_date_time TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ,
    CONSTRAINT uq_activity_activity_id_platform_id_created_at
        UNIQUE (activity_id, platform_id, created_at),
    CONSTRAINT ck_activity_number_of_guests_range
        CHECK (number_of_guests IS NULL OR (number_of_guests >= 1 AND number_of_guests <= 1024)),
    CONSTRAINT ck_activity_country_of_guests_length
        CHECK (country_of_guests IS NULL OR
               (array_length(country_of_guests, 1) >= 1 AND array_length(country_of_guests, 1) <= 1024))
);`,
	`CREATE INDEX IF NOT EXISTS ix_activity_activity_id ON activity (activity_id);`,
	`CREATE INDEX IF NOT EXISTS ix_activity_platform_id ON activity (platform_id);`,
	`CREATE INDEX IF NOT EXISTS ix_activity_area_id ON activity (area_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_activity_current
    ON activity (activity_id) WHERE ended_at IS NULL;`,
}

// SQLite variant: integer rowid keys, RFC3339 text timestamps, JSON text
// arrays. The array cardinality check is Postgres-only (array_length does
// not exist in SQLite); the boundary validates cardinality regardless.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS competent_authority (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    competent_authority_id TEXT NOT NULL,
    competent_authority_name TEXT,
    created_at TEXT NOT NULL,
    ended_at TEXT,
    CONSTRAINT uq_competent_authority_competent_authority_id_created_at
        UNIQUE (competent_authority_id, created_at)
);`,
	`CREATE INDEX IF NOT EXISTS ix_competent_authority_competent_authority_id
    ON competent_authority (competent_authority_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_competent_authority_current
    ON competent_authority (competent_authority_id) WHERE ended_at IS NULL;`,

	`CREATE TABLE IF NOT EXISTS platform (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    platform_id TEXT NOT NULL,
    platform_name TEXT,
    created_at TEXT NOT NULL,
    ended_at TEXT,
    CONSTRAINT uq_platform_platform_id_created_at UNIQUE (platform_id, created_at)
);`,
	`CREATE INDEX IF NOT EXISTS ix_platform_platform_id ON platform (platform_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_platform_current
    ON platform (platform_id) WHERE ended_at IS NULL;`,

	`CREATE TABLE IF NOT EXISTS area (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    area_id TEXT NOT NULL,
    area_name TEXT,
    competent_authority_id INTEGER NOT NULL REFERENCES competent_authority (id),
    filename TEXT NOT NULL,
    filedata BLOB NOT NULL,
    created_at TEXT NOT NULL,
    ended_at TEXT,
    CONSTRAINT uq_area_area_id_competent_authority_id_created_at
        UNIQUE (area_id, competent_authority_id, created_at),
    CONSTRAINT ck_area_filedata_max_size CHECK (length(filedata) <= 1048576)
);`,
	`CREATE INDEX IF NOT EXISTS ix_area_area_id ON area (area_id);`,
	`CREATE INDEX IF NOT EXISTS ix_area_competent_authority_id ON area (competent_authority_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_area_current
    ON area (area_id) WHERE ended_at IS NULL;`,

	`CREATE TABLE IF NOT EXISTS activity (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    activity_id TEXT NOT NULL,
    activity_name TEXT,
    platform_id INTEGER NOT NULL REFERENCES platform (id),
    area_id INTEGER NOT NULL REFERENCES area (id),
    url TEXT,
    address_street TEXT NOT NULL,
    address_number INTEGER NOT NULL,
    address_letter TEXT,
    address_addition TEXT,
    address_postal_code TEXT NOT NULL,
    address_city TEXT NOT NULL,
    registration_number TEXT NOT NULL,
    number_of_guests INTEGER,
    country_of_guests TEXT,
    temporal_start_date_time TEXT NOT NULL,
    temporal_end_date_time TEXT NOT NULL,
    created_at TEXT NOT NULL,
    ended_at TEXT,
    CONSTRAINT uq_activity_activity_id_platform_id_created_at
        UNIQUE (activity_id, platform_id, created_at),
    CONSTRAINT ck_activity_number_of_guests_range
        CHECK (number_of_guests IS NULL OR (number_of_guests >= 1 AND number_of_guests <= 1024))
);`,
	`CREATE INDEX IF NOT EXISTS ix_activity_activity_id ON activity (activity_id);`,
	`CREATE INDEX IF NOT EXISTS ix_activity_platform_id ON activity (platform_id);`,
	`CREATE INDEX IF NOT EXISTS ix_activity_area_id ON activity (area_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_activity_current
    ON activity (activity_id) WHERE ended_at IS NULL;`,
}

// Schema returns the DDL statements for the dialect, in apply order.
func Schema(dialect Dialect) []string {
	if dialect == DialectSQLite {
		return sqliteSchema
	}
	return postgresSchema
}
