package models

import "database/sql"

// AdmissionGroup represents the admission_groups table: the set of majors at
// one college admitted together under a single cutoff line. At most one row
// exists per (college_code, normalized_group_code, province, subject_track).
type AdmissionGroup struct {
	ID                  string         `db:"id" json:"id"`
	CollegeCode         string         `db:"college_code" json:"college_code"`
	CollegeName         string         `db:"college_name" json:"college_name"`
	NormalizedGroupCode string         `db:"normalized_group_code" json:"normalized_group_code"`
	RawGroupCode        string         `db:"raw_group_code" json:"raw_group_code"`
	GroupName           sql.NullString `db:"group_name" json:"group_name,omitempty"`
	Province            string         `db:"province" json:"province"`
	SubjectTrack        string         `db:"subject_track" json:"subject_track"`
}
