// Package store persists admission groups and their record links in
// Postgres. Writes are idempotent upserts keyed by the group's natural tuple,
// so concurrent or repeated runs converge instead of duplicating rows.
// Per-record failures are counted and sampled, never allowed to abort a
// batch.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/nonsonwune/admitmatch/engine"
	"github.com/nonsonwune/admitmatch/models"
)

// ErrGroupNotFound is returned for lookups against a group id that does not
// exist; it marks an invalid call contract, not a data-quality condition.
var ErrGroupNotFound = errors.New("admission group not found")

// Store wraps the database handle for the engine's tables.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RecordError captures one failed per-record write.
type RecordError struct {
	Key engine.GroupKey
	Err error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("group %s/%s/%s/%s: %v",
		e.Key.CollegeCode, e.Key.NormalizedGroupCode, e.Key.Province, e.Key.SubjectTrack, e.Err)
}

// UpsertSummary reports a group persistence batch: rows inserted, rows left
// untouched because nothing changed, rows whose carried-through fields were
// refreshed, and rows that failed.
type UpsertSummary struct {
	Created int
	Reused  int
	Updated int
	Failed  int
	Errors  []RecordError
}

// ExistingGroupIDs loads the natural key -> id map of all persisted groups.
// The resolver consults it so reruns keep stable ids.
func (s *Store) ExistingGroupIDs(ctx context.Context) (map[engine.GroupKey]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, college_code, normalized_group_code, province, subject_track
		FROM admission_groups`)
	if err != nil {
		return nil, fmt.Errorf("loading existing group ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[engine.GroupKey]string)
	for rows.Next() {
		var id string
		var key engine.GroupKey
		if err := rows.Scan(&id, &key.CollegeCode, &key.NormalizedGroupCode, &key.Province, &key.SubjectTrack); err != nil {
			return nil, fmt.Errorf("scanning group id row: %w", err)
		}
		ids[key] = id
	}
	return ids, rows.Err()
}

// UpsertGroups writes resolved groups with upsert-by-tuple semantics. The
// conditional update clause means an unchanged row produces no result row,
// which is how reused rows are told apart from updated ones.
func (s *Store) UpsertGroups(ctx context.Context, groups []models.AdmissionGroup) (UpsertSummary, error) {
	var summary UpsertSummary

	existing, err := s.ExistingGroupIDs(ctx)
	if err != nil {
		return summary, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("starting group upsert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO admission_groups
			(id, college_code, college_name, normalized_group_code, raw_group_code, group_name, province, subject_track)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (college_code, normalized_group_code, province, subject_track)
		DO UPDATE SET
			college_name   = EXCLUDED.college_name,
			raw_group_code = EXCLUDED.raw_group_code,
			group_name     = EXCLUDED.group_name
		WHERE admission_groups.college_name IS DISTINCT FROM EXCLUDED.college_name
		   OR admission_groups.raw_group_code IS DISTINCT FROM EXCLUDED.raw_group_code
		   OR admission_groups.group_name IS DISTINCT FROM EXCLUDED.group_name
		RETURNING id`)
	if err != nil {
		return summary, fmt.Errorf("preparing group upsert: %w", err)
	}
	defer stmt.Close()

	for _, group := range groups {
		key := keyForGroup(group)
		_, existed := existing[key]

		var id string
		err := stmt.QueryRowContext(ctx,
			group.ID, group.CollegeCode, group.CollegeName, group.NormalizedGroupCode,
			group.RawGroupCode, group.GroupName, group.Province, group.SubjectTrack,
		).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Conflict hit and nothing needed updating.
			summary.Reused++
		case err != nil:
			summary.Failed++
			summary.Errors = append(summary.Errors, RecordError{Key: key, Err: err})
		case existed:
			summary.Updated++
		default:
			summary.Created++
		}
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing group upsert: %w", err)
	}
	return summary, nil
}

// AnnotateQuotaRecords points every bucketed quota record at its group.
func (s *Store) AnnotateQuotaRecords(ctx context.Context, reg *engine.Registry) (updated, failed int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("starting quota annotation transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE quota_records SET group_id = $1 WHERE id = $2`)
	if err != nil {
		return 0, 0, fmt.Errorf("preparing quota annotation: %w", err)
	}
	defer stmt.Close()

	for _, group := range reg.Groups() {
		for _, rec := range reg.QuotaRecords(keyForGroup(group)) {
			if _, execErr := stmt.ExecContext(ctx, group.ID, rec.ID); execErr != nil {
				failed++
				log.Printf("Warning: failed to annotate quota record %d: %v", rec.ID, execErr)
				continue
			}
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return updated, failed, fmt.Errorf("committing quota annotation: %w", err)
	}
	return updated, failed, nil
}

// AnnotateScoreRecords writes the resolved group id onto each linked score
// record. Unresolved records are left untouched; their group_id stays null.
func (s *Store) AnnotateScoreRecords(ctx context.Context, linked []engine.LinkedRecord) (updated, failed int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("starting score annotation transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE score_records SET group_id = $1 WHERE id = $2`)
	if err != nil {
		return 0, 0, fmt.Errorf("preparing score annotation: %w", err)
	}
	defer stmt.Close()

	for _, item := range linked {
		if _, execErr := stmt.ExecContext(ctx, item.GroupID, item.Record.ID); execErr != nil {
			failed++
			log.Printf("Warning: failed to annotate score record %d: %v", item.Record.ID, execErr)
			continue
		}
		updated++
	}

	if err := tx.Commit(); err != nil {
		return updated, failed, fmt.Errorf("committing score annotation: %w", err)
	}
	return updated, failed, nil
}

// LoadQuotaRecords returns the quota records for one cycle year.
func (s *Store) LoadQuotaRecords(ctx context.Context, year int) ([]models.QuotaRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, province, subject_track, college_code, college_name,
		       group_code_raw, group_name, major_code, major_name, plan_count, group_id
		FROM quota_records
		WHERE year = $1
		ORDER BY id`, year)
	if err != nil {
		return nil, fmt.Errorf("loading quota records for %d: %w", year, err)
	}
	defer rows.Close()
	return scanQuotaRecords(rows)
}

// LoadScoreRecords returns every historical score record.
func (s *Store) LoadScoreRecords(ctx context.Context) ([]models.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, province, subject_track, college_code, group_code_raw,
		       alt_group_label, min_score, min_rank, avg_score, max_score, group_id
		FROM score_records
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading score records: %w", err)
	}
	defer rows.Close()
	return scanScoreRecords(rows)
}

// LoadGroups returns all persisted admission groups.
func (s *Store) LoadGroups(ctx context.Context) ([]models.AdmissionGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, college_code, college_name, normalized_group_code,
		       raw_group_code, group_name, province, subject_track
		FROM admission_groups
		ORDER BY college_code, normalized_group_code`)
	if err != nil {
		return nil, fmt.Errorf("loading admission groups: %w", err)
	}
	defer rows.Close()

	var groups []models.AdmissionGroup
	for rows.Next() {
		var g models.AdmissionGroup
		if err := rows.Scan(&g.ID, &g.CollegeCode, &g.CollegeName, &g.NormalizedGroupCode,
			&g.RawGroupCode, &g.GroupName, &g.Province, &g.SubjectTrack); err != nil {
			return nil, fmt.Errorf("scanning admission group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GroupByID fetches one group, or nil when the id is unknown.
func (s *Store) GroupByID(ctx context.Context, id string) (*models.AdmissionGroup, error) {
	var g models.AdmissionGroup
	err := s.db.QueryRowContext(ctx, `
		SELECT id, college_code, college_name, normalized_group_code,
		       raw_group_code, group_name, province, subject_track
		FROM admission_groups
		WHERE id = $1`, id).Scan(&g.ID, &g.CollegeCode, &g.CollegeName, &g.NormalizedGroupCode,
		&g.RawGroupCode, &g.GroupName, &g.Province, &g.SubjectTrack)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading group %s: %w", id, err)
	}
	return &g, nil
}

// GroupDetail is the composite read-only view of one group.
type GroupDetail struct {
	Group        models.AdmissionGroup  `json:"group"`
	QuotaRecords []models.QuotaRecord   `json:"quota_records"`
	ScoreRecords []models.ScoreRecord   `json:"score_records"`
	Statistics   engine.GroupStatistics `json:"statistics"`
}

// PlanTotal sums the planned slots across the group's majors.
func (d *GroupDetail) PlanTotal() int {
	total := 0
	for _, rec := range d.QuotaRecords {
		total += rec.PlanCount
	}
	return total
}

// GroupDetail resolves a group by its natural key (the raw group code is
// normalized before lookup) and assembles its majors, score history and
// statistics. Returns nil, nil when no such group exists.
func (s *Store) GroupDetail(ctx context.Context, eng *engine.Engine, collegeCode, groupCode, province, subjectTrack string) (*GroupDetail, error) {
	var g models.AdmissionGroup
	err := s.db.QueryRowContext(ctx, `
		SELECT id, college_code, college_name, normalized_group_code,
		       raw_group_code, group_name, province, subject_track
		FROM admission_groups
		WHERE college_code = $1 AND normalized_group_code = $2 AND province = $3 AND subject_track = $4`,
		strings.TrimSpace(collegeCode), engine.NormalizeGroupCode(groupCode),
		strings.TrimSpace(province), strings.TrimSpace(subjectTrack),
	).Scan(&g.ID, &g.CollegeCode, &g.CollegeName, &g.NormalizedGroupCode,
		&g.RawGroupCode, &g.GroupName, &g.Province, &g.SubjectTrack)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading group detail: %w", err)
	}

	quotas, err := s.quotaRecordsByGroup(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	scores, err := s.ScoreRecordsByGroup(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	return &GroupDetail{
		Group:        g,
		QuotaRecords: quotas,
		ScoreRecords: scores,
		Statistics:   eng.Aggregate(g.ID, scores),
	}, nil
}

// ClassifyCandidate loads a group's linked history and classifies the
// candidate against it. A group with no history still classifies (the
// insufficient-data verdict); only an unknown group id is an error.
func (s *Store) ClassifyCandidate(ctx context.Context, eng *engine.Engine, candidateScore float64, candidateRank int64, groupID string) (engine.ClassificationResult, error) {
	group, err := s.GroupByID(ctx, groupID)
	if err != nil {
		return engine.ClassificationResult{}, err
	}
	if group == nil {
		return engine.ClassificationResult{}, ErrGroupNotFound
	}

	scores, err := s.ScoreRecordsByGroup(ctx, groupID)
	if err != nil {
		return engine.ClassificationResult{}, err
	}
	return eng.ClassifyCandidate(candidateScore, candidateRank, groupID, scores), nil
}

// ScoreRecordsByGroup returns a group's linked history, newest first.
func (s *Store) ScoreRecordsByGroup(ctx context.Context, groupID string) ([]models.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, province, subject_track, college_code, group_code_raw,
		       alt_group_label, min_score, min_rank, avg_score, max_score, group_id
		FROM score_records
		WHERE group_id = $1
		ORDER BY year DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading score records for group %s: %w", groupID, err)
	}
	defer rows.Close()
	return scanScoreRecords(rows)
}

func (s *Store) quotaRecordsByGroup(ctx context.Context, groupID string) ([]models.QuotaRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, year, province, subject_track, college_code, college_name,
		       group_code_raw, group_name, major_code, major_name, plan_count, group_id
		FROM quota_records
		WHERE group_id = $1
		ORDER BY major_code`, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading quota records for group %s: %w", groupID, err)
	}
	defer rows.Close()
	return scanQuotaRecords(rows)
}

func scanQuotaRecords(rows *sql.Rows) ([]models.QuotaRecord, error) {
	var records []models.QuotaRecord
	for rows.Next() {
		var rec models.QuotaRecord
		if err := rows.Scan(&rec.ID, &rec.Year, &rec.Province, &rec.SubjectTrack,
			&rec.CollegeCode, &rec.CollegeName, &rec.GroupCodeRaw, &rec.GroupName,
			&rec.MajorCode, &rec.MajorName, &rec.PlanCount, &rec.GroupID); err != nil {
			return nil, fmt.Errorf("scanning quota record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanScoreRecords(rows *sql.Rows) ([]models.ScoreRecord, error) {
	var records []models.ScoreRecord
	for rows.Next() {
		var rec models.ScoreRecord
		if err := rows.Scan(&rec.ID, &rec.Year, &rec.Province, &rec.SubjectTrack,
			&rec.CollegeCode, &rec.GroupCodeRaw, &rec.AltGroupLabel,
			&rec.MinScore, &rec.MinRank, &rec.AvgScore, &rec.MaxScore, &rec.GroupID); err != nil {
			return nil, fmt.Errorf("scanning score record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func keyForGroup(group models.AdmissionGroup) engine.GroupKey {
	return engine.GroupKey{
		CollegeCode:         group.CollegeCode,
		NormalizedGroupCode: group.NormalizedGroupCode,
		Province:            group.Province,
		SubjectTrack:        group.SubjectTrack,
	}
}
