package migrations

import (
	"database/sql"
	"fmt"
)

// InitSchema creates the engine's tables when missing. The unique index on
// the group natural key is what makes group upserts idempotent, so it is
// created here rather than trusted to exist.
func InitSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS admission_groups (
			id UUID PRIMARY KEY,
			college_code TEXT NOT NULL,
			college_name TEXT NOT NULL,
			normalized_group_code TEXT NOT NULL,
			raw_group_code TEXT NOT NULL,
			group_name TEXT,
			province TEXT NOT NULL,
			subject_track TEXT NOT NULL,
			UNIQUE (college_code, normalized_group_code, province, subject_track)
		)`,
		`CREATE TABLE IF NOT EXISTS quota_records (
			id SERIAL PRIMARY KEY,
			year INT NOT NULL,
			province TEXT NOT NULL,
			subject_track TEXT NOT NULL,
			college_code TEXT NOT NULL,
			college_name TEXT NOT NULL,
			group_code_raw TEXT NOT NULL,
			group_name TEXT,
			major_code TEXT NOT NULL,
			major_name TEXT NOT NULL,
			plan_count INT NOT NULL DEFAULT 0,
			group_id UUID REFERENCES admission_groups(id)
		)`,
		`CREATE TABLE IF NOT EXISTS score_records (
			id SERIAL PRIMARY KEY,
			year INT NOT NULL,
			province TEXT NOT NULL,
			subject_track TEXT NOT NULL,
			college_code TEXT,
			group_code_raw TEXT,
			alt_group_label TEXT,
			min_score BIGINT,
			min_rank BIGINT,
			avg_score DOUBLE PRECISION,
			max_score BIGINT,
			group_id UUID REFERENCES admission_groups(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quota_records_group ON quota_records (group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quota_records_year ON quota_records (year)`,
		`CREATE INDEX IF NOT EXISTS idx_score_records_group ON score_records (group_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}
