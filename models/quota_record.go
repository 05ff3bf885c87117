package models

import "database/sql"

// QuotaRecord represents the quota_records table: one major's planned
// admission slots for the current cycle. Many quota records share one
// admission group.
type QuotaRecord struct {
	ID           int            `db:"id" json:"id"`
	Year         int            `db:"year" json:"year"`
	Province     string         `db:"province" json:"province"`
	SubjectTrack string         `db:"subject_track" json:"subject_track"`
	CollegeCode  string         `db:"college_code" json:"college_code"`
	CollegeName  string         `db:"college_name" json:"college_name"`
	GroupCodeRaw string         `db:"group_code_raw" json:"group_code_raw"`
	GroupName    sql.NullString `db:"group_name" json:"group_name,omitempty"`
	MajorCode    string         `db:"major_code" json:"major_code"`
	MajorName    string         `db:"major_name" json:"major_name"`
	PlanCount    int            `db:"plan_count" json:"plan_count"`
	GroupID      sql.NullString `db:"group_id" json:"group_id,omitempty"`
}
