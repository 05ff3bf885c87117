package models

import "database/sql"

// ScoreRecord represents the score_records table: one prior-year observed
// cutoff for a group. Group identifiers are frequently missing or stored
// under the alternate label field, which is why linking is a separate step.
type ScoreRecord struct {
	ID            int             `db:"id" json:"id"`
	Year          int             `db:"year" json:"year"`
	Province      string          `db:"province" json:"province"`
	SubjectTrack  string          `db:"subject_track" json:"subject_track"`
	CollegeCode   sql.NullString  `db:"college_code" json:"college_code,omitempty"`
	GroupCodeRaw  sql.NullString  `db:"group_code_raw" json:"group_code_raw,omitempty"`
	AltGroupLabel sql.NullString  `db:"alt_group_label" json:"alt_group_label,omitempty"`
	MinScore      sql.NullInt64   `db:"min_score" json:"min_score,omitempty"`
	MinRank       sql.NullInt64   `db:"min_rank" json:"min_rank,omitempty"`
	AvgScore      sql.NullFloat64 `db:"avg_score" json:"avg_score,omitempty"`
	MaxScore      sql.NullInt64   `db:"max_score" json:"max_score,omitempty"`
	GroupID       sql.NullString  `db:"group_id" json:"group_id,omitempty"`
}
